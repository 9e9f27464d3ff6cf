// Package webhook verifies the signed envelope carried by inbound provider
// webhooks before their payload is trusted. The envelope follows the
// standard-webhooks convention: an id, a unix timestamp, and one or more
// base64 HMAC-SHA256 signatures over "id.timestamp.body".
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/email-relay/internal/relayerr"
)

// EventTypeEmailReceived is the only event kind that triggers storage; other
// kinds are acknowledged and discarded.
const EventTypeEmailReceived = "email.received"

// Event is the parsed webhook payload. Transient, never persisted.
type Event struct {
	Type string    `json:"type"`
	Data EmailData `json:"data"`
}

// EmailData carries the delivered email's metadata.
type EmailData struct {
	EmailID   string `json:"email_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"created_at"`
}

// Verifier checks webhook envelopes against the shared secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a webhook verifier. An empty secret is a configuration
// error: the endpoint must refuse all webhooks rather than accept unverified
// input. Secrets are accepted with or without the provider's "whsec_" prefix;
// the remainder is base64-decoded when possible, otherwise used as raw bytes.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, relayerr.New(relayerr.KindConfiguration, "webhook signing secret is not configured")
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Verifier{
		secret:    decodeSecret(secret),
		tolerance: tolerance,
		now:       time.Now,
	}, nil
}

// Verify checks the envelope over the raw body. Any mismatch, or a timestamp
// outside the freshness window, rejects the event before its payload is
// parsed for business logic.
func (v *Verifier) Verify(body []byte, id, timestamp, signature string) error {
	if id == "" || timestamp == "" || signature == "" {
		return relayerr.New(relayerr.KindAuth, "Missing webhook signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return relayerr.New(relayerr.KindAuth, "Invalid webhook timestamp")
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.tolerance || age < -v.tolerance {
		return relayerr.New(relayerr.KindAuth, "Webhook timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// The header may carry several space-separated versioned signatures
	// (key rotation); any matching v1 candidate authenticates the event.
	for _, part := range strings.Fields(signature) {
		candidate := strings.TrimPrefix(part, "v1,")
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return relayerr.New(relayerr.KindAuth, "Invalid webhook signature")
}

func decodeSecret(secret string) []byte {
	trimmed := strings.TrimPrefix(secret, "whsec_")
	if raw, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return raw
	}
	return []byte(trimmed)
}
