package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sales-crm/internal/config"
)

// ErrDrafterUnavailable means no drafting API is configured; callers fall
// back to manual composition.
var ErrDrafterUnavailable = errors.New("messaging: drafting api not configured")

// Drafter produces a suggested message body from a short instruction plus
// contact context, via a chat-completions style API.
type Drafter struct {
	httpc *http.Client
	cfg   config.AIConfig
}

func NewDrafter(cfg config.AIConfig) *Drafter {
	return &Drafter{
		httpc: &http.Client{Timeout: 30 * time.Second},
		cfg:   cfg,
	}
}

// DraftRequest describes what to write.
type DraftRequest struct {
	Channel     Channel
	Instruction string
	ContactName string
	Company     string
	SenderName  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Draft asks the drafting API for a message body.
func (d *Drafter) Draft(ctx context.Context, req DraftRequest) (string, error) {
	if !d.cfg.Configured() {
		return "", ErrDrafterUnavailable
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return "", fmt.Errorf("messaging: draft instruction required")
	}

	system := fmt.Sprintf(
		"You write short, professional %s messages for a sales rep named %s. Reply with the message body only.",
		req.Channel, req.SenderName)
	user := req.Instruction
	if req.ContactName != "" {
		user += "\nRecipient: " + req.ContactName
	}
	if req.Company != "" {
		user += " at " + req.Company
	}

	payload, err := json.Marshal(chatRequest{
		Model: d.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	u := strings.TrimRight(d.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	resp, err := d.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("messaging: draft request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("messaging: decode draft response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if cr.Error != nil {
			return "", fmt.Errorf("messaging: draft api: %s", cr.Error.Message)
		}
		return "", fmt.Errorf("messaging: draft api: status %d", resp.StatusCode)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("messaging: draft api returned no choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
