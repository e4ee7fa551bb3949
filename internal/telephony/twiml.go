package telephony

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Minimal TwiML builder. Only the verbs the call-session flows need are
// modeled; keep it adapter-only and free of the vendor SDK.
// Ref: https://www.twilio.com/docs/voice/twiml

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr,omitempty"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	Digits  string   `xml:"digits,attr,omitempty"`
}

type twimlDial struct {
	XMLName xml.Name     `xml:"Dial"`
	Record  string       `xml:"record,attr,omitempty"`
	Number  string       `xml:"Number,omitempty"`
	Client  *twimlClient `xml:"Client,omitempty"`
}

type twimlClient struct {
	Identity string `xml:",chardata"`
}

func renderTwiML(verbs ...any) (string, error) {
	r := twimlResponse{Verbs: verbs}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TwiMLReject declines an inbound leg without answering it.
func TwiMLReject() (string, error) {
	return renderTwiML(twimlReject{Reason: "busy"})
}

// TwiMLHangup ends the current leg.
func TwiMLHangup() (string, error) {
	return renderTwiML(twimlHangup{})
}

// TwiMLHold keeps an inbound leg ringing while the agent decides. The pause
// bounds how long an unanswered invitation can sit before the provider gives
// up the leg.
func TwiMLHold(seconds int) (string, error) {
	if seconds <= 0 {
		seconds = 30
	}
	return renderTwiML(twimlPause{Length: seconds})
}

// TwiMLDialClient bridges the current leg to a registered SDK client.
func TwiMLDialClient(identity string, record bool) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("telephony: client identity required")
	}
	d := twimlDial{Client: &twimlClient{Identity: identity}}
	if record {
		d.Record = "record-from-answer"
	}
	return renderTwiML(d)
}

// TwiMLDialNumber bridges the current leg to a PSTN number.
func TwiMLDialNumber(number string, record bool) (string, error) {
	if number == "" {
		return "", fmt.Errorf("telephony: dial number required")
	}
	d := twimlDial{Number: number}
	if record {
		d.Record = "record-from-answer"
	}
	return renderTwiML(d)
}

// TwiMLPlayDigits sends DTMF on the live leg via a call update.
func TwiMLPlayDigits(digits string) (string, error) {
	if digits == "" {
		return "", fmt.Errorf("telephony: digits required")
	}
	return renderTwiML(twimlPlay{Digits: digits})
}
