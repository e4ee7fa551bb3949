package telephony

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-crm/internal/config"
	"sales-crm/internal/voice"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenProvider mints Twilio Voice access tokens: short-lived JWTs
// signed with an API key pair, carrying a voice grant for one identity.
// This is the credential both the browser SDK leg and the signaling device
// register with.
//
// Token shape ref: https://www.twilio.com/docs/iam/access-tokens
type AccessTokenProvider struct {
	cfg   config.TwilioConfig
	clock func() time.Time
}

func NewAccessTokenProvider(cfg config.TwilioConfig) *AccessTokenProvider {
	return &AccessTokenProvider{cfg: cfg, clock: time.Now}
}

func (p *AccessTokenProvider) FetchCredential(ctx context.Context, identity string) (voice.Credential, error) {
	if identity == "" {
		return voice.Credential{}, errors.New("telephony: identity required")
	}
	if p.cfg.APIKeySID == "" || p.cfg.APIKeySecret == "" {
		return voice.Credential{}, errors.New("telephony: api key pair not configured")
	}

	now := p.clock().UTC()
	exp := now.Add(p.cfg.VoiceTokenTTL)

	grants := map[string]any{
		"identity": identity,
		"voice": map[string]any{
			"incoming": map[string]any{"allow": true},
			"outgoing": map[string]any{"application_sid": p.cfg.TwiMLAppSID},
		},
	}
	claims := jwt.MapClaims{
		"jti":    fmt.Sprintf("%s-%d", p.cfg.APIKeySID, now.Unix()),
		"iss":    p.cfg.APIKeySID,
		"sub":    p.cfg.AccountSID,
		"iat":    now.Unix(),
		"exp":    exp.Unix(),
		"grants": grants,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	// Twilio requires the content-type header on access tokens.
	tok.Header["cty"] = "twilio-fpa;v=1"

	signed, err := tok.SignedString([]byte(p.cfg.APIKeySecret))
	if err != nil {
		return voice.Credential{}, fmt.Errorf("telephony: sign access token: %w", err)
	}

	return voice.Credential{Token: signed, Identity: identity, ExpiresAt: exp}, nil
}
