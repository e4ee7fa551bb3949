package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sales-crm/internal/config"
)

// Sender delivers a message over its channel and returns the provider's
// message identifier.
type Sender interface {
	Send(ctx context.Context, m Message) (providerID string, err error)
}

// TwilioSMSSender sends SMS via the Twilio Messages resource.
type TwilioSMSSender struct {
	httpc   *http.Client
	baseURL string
	cfg     config.TwilioConfig
}

// NewTwilioSMSSender builds the SMS sender. baseURL overrides the Twilio API
// endpoint, for tests; pass "" for production.
func NewTwilioSMSSender(cfg config.TwilioConfig, baseURL string) *TwilioSMSSender {
	if baseURL == "" {
		baseURL = "https://api.twilio.com/2010-04-01"
	}
	return &TwilioSMSSender{
		httpc:   &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
	}
}

func (s *TwilioSMSSender) Send(ctx context.Context, m Message) (string, error) {
	if m.Channel != ChannelSMS {
		return "", fmt.Errorf("messaging: twilio sender only handles sms, got %q", m.Channel)
	}
	if !s.cfg.Configured() {
		return "", fmt.Errorf("messaging: twilio not configured")
	}

	form := url.Values{}
	form.Set("To", m.To)
	form.Set("From", s.cfg.CallerID)
	form.Set("Body", m.Body)

	u := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("messaging: send sms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &ae) == nil && ae.Message != "" {
			return "", fmt.Errorf("messaging: send sms: %d %s", ae.Code, ae.Message)
		}
		return "", fmt.Errorf("messaging: send sms: status %d", resp.StatusCode)
	}

	var res struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("messaging: decode sms response: %w", err)
	}
	return res.Sid, nil
}
