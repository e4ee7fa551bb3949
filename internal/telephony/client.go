package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sales-crm/internal/voice"
)

// DefaultAPIBaseURL is the Twilio REST API base.
const DefaultAPIBaseURL = "https://api.twilio.com/2010-04-01"

// restClient is a minimal Twilio REST wrapper. It intentionally avoids the
// vendor SDK dependency; the adapter needs only the Calls resource.
type restClient struct {
	httpc      *http.Client
	baseURL    string
	accountSID string
	authToken  string
}

func newRESTClient(accountSID, authToken, baseURL string) *restClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &restClient{
		httpc:      &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
	}
}

// apiError is the JSON error body Twilio returns on non-2xx responses.
type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	MoreInfo string `json:"more_info"`
}

func (c *restClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	u := fmt.Sprintf("%s/Accounts/%s%s", c.baseURL, c.accountSID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if jsonErr := json.Unmarshal(body, &ae); jsonErr == nil && ae.Code != 0 {
			// Credential faults get the typed error so the supervisor can
			// classify them (expired token forces a device rebuild).
			return &voice.DeviceError{Code: ae.Code, Message: ae.Message}
		}
		return fmt.Errorf("telephony: %s: status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("telephony: decode %s: %w", path, err)
		}
	}
	return nil
}

func (c *restClient) get(ctx context.Context, path string, out any) error {
	u := fmt.Sprintf("%s/Accounts/%s%s", c.baseURL, c.accountSID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if jsonErr := json.Unmarshal(body, &ae); jsonErr == nil && ae.Code != 0 {
			return &voice.DeviceError{Code: ae.Code, Message: ae.Message}
		}
		return fmt.Errorf("telephony: %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}
