package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WebhookVerifier authenticates inbound card-payment webhooks. The provider
// signs each delivery with HMAC-SHA256 over "<timestamp>.<body>" and sends
// the result in a Signature header of the form:
//
//	t=<unix timestamp>,v1=<hex signature>
type WebhookVerifier struct {
	secret    []byte
	tolerance time.Duration
}

// NewWebhookVerifier creates a verifier for the given shared secret.
func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    []byte(secret),
		tolerance: tolerance,
	}
}

// Verify checks the signature header against the raw request body.
// The timestamp must be within tolerance of now to bound replay windows.
func (v *WebhookVerifier) Verify(header string, body []byte, now time.Time) error {
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if v.tolerance > 0 && age > v.tolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	expected := v.sign(ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// sign computes the lowercase hex HMAC-SHA256 of "<timestamp>.<body>".
func (v *WebhookVerifier) sign(timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a valid header for the given body, used by tests and
// the local webhook simulator.
func (v *WebhookVerifier) SignatureHeader(body []byte, now time.Time) string {
	ts := now.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, v.sign(ts, body))
}

func parseSignatureHeader(header string) (timestamp int64, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			timestamp, err = strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("malformed timestamp: %w", err)
			}
		case "v1":
			signature = val
		}
	}
	if timestamp == 0 || signature == "" {
		return 0, "", fmt.Errorf("malformed signature header")
	}
	return timestamp, signature, nil
}
