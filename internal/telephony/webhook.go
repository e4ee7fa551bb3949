package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// StatusEvent is a call progress callback from the provider.
type StatusEvent struct {
	CallSID      string
	Status       string
	From         string
	To           string
	Duration     int
	ErrorCode    int
	ErrorMessage string
}

// ParseStatusEvent decodes a Twilio status callback form.
func ParseStatusEvent(form url.Values) (StatusEvent, error) {
	ev := StatusEvent{
		CallSID:      form.Get("CallSid"),
		Status:       form.Get("CallStatus"),
		From:         form.Get("From"),
		To:           form.Get("To"),
		ErrorMessage: form.Get("ErrorMessage"),
	}
	if ev.CallSID == "" {
		return StatusEvent{}, fmt.Errorf("telephony: status callback missing CallSid")
	}
	if ev.Status == "" {
		return StatusEvent{}, fmt.Errorf("telephony: status callback missing CallStatus")
	}
	if v := form.Get("CallDuration"); v != "" {
		ev.Duration, _ = strconv.Atoi(v)
	}
	if v := form.Get("ErrorCode"); v != "" {
		ev.ErrorCode, _ = strconv.Atoi(v)
	}
	return ev, nil
}

// InboundCallForm is the webhook payload for a new inbound leg.
type InboundCallForm struct {
	CallSID    string
	AccountSID string
	From       string
	To         string
	CallerName string
}

// ParseInboundCall decodes a Twilio inbound voice webhook form.
func ParseInboundCall(form url.Values) (InboundCallForm, error) {
	f := InboundCallForm{
		CallSID:    form.Get("CallSid"),
		AccountSID: form.Get("AccountSid"),
		From:       form.Get("From"),
		To:         form.Get("To"),
		CallerName: form.Get("CallerName"),
	}
	if f.CallSID == "" {
		return InboundCallForm{}, fmt.Errorf("telephony: inbound webhook missing CallSid")
	}
	if f.From == "" {
		return InboundCallForm{}, fmt.Errorf("telephony: inbound webhook missing From")
	}
	return f, nil
}

// RecordingEvent is a recording status callback.
type RecordingEvent struct {
	CallSID      string
	RecordingSID string
	RecordingURL string
	Duration     int
	Status       string
}

// ParseRecordingEvent decodes a Twilio recording status callback form.
func ParseRecordingEvent(form url.Values) (RecordingEvent, error) {
	ev := RecordingEvent{
		CallSID:      form.Get("CallSid"),
		RecordingSID: form.Get("RecordingSid"),
		RecordingURL: form.Get("RecordingUrl"),
		Status:       form.Get("RecordingStatus"),
	}
	if ev.CallSID == "" || ev.RecordingSID == "" {
		return RecordingEvent{}, fmt.Errorf("telephony: recording callback missing identifiers")
	}
	if v := form.Get("RecordingDuration"); v != "" {
		ev.Duration, _ = strconv.Atoi(v)
	}
	return ev, nil
}

// ComputeSignature builds the Twilio request signature: HMAC-SHA1 over the
// full URL concatenated with the sorted form keys and values, base64 encoded.
// Ref: https://www.twilio.com/docs/usage/security#validating-requests
func ComputeSignature(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(fullURL))
	for _, k := range keys {
		mac.Write([]byte(k))
		mac.Write([]byte(form.Get(k)))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks the X-Twilio-Signature header against the request.
func ValidateSignature(authToken, fullURL string, form url.Values, signature string) bool {
	if authToken == "" || signature == "" {
		return false
	}
	want := ComputeSignature(authToken, fullURL, form)
	return subtle.ConstantTimeCompare([]byte(want), []byte(signature)) == 1
}
