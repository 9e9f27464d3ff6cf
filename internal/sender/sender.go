// Package sender validates operator-composed messages and forwards them to
// the configured delivery provider.
package sender

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/ignite/email-relay/internal/pkg/logger"
	"github.com/ignite/email-relay/internal/relayerr"
)

// maxSubjectLen is the transmission limit; longer subjects are truncated,
// not rejected.
const maxSubjectLen = 200

// Basic local@domain shape. Providers do the real validation downstream.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Message is a validated outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Result carries the provider's message identifier.
type Result struct {
	ID string `json:"id"`
}

// Provider is the external delivery collaborator.
type Provider interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// Service validates and forwards outbound email.
type Service struct {
	provider Provider
	from     string
}

// NewService creates a sender service. A nil provider is tolerated until
// send time, where it surfaces as a configuration error.
func NewService(provider Provider, from string) *Service {
	return &Service{provider: provider, from: from}
}

// Send validates in order, short-circuiting on the first failure, then
// delegates to the provider. Provider rejections surface as 400-class
// provider errors: in this domain they are typically input-driven (bad
// address, content policy), not server faults.
func (s *Service) Send(ctx context.Context, to, subject, html string) (Result, error) {
	if to == "" || !emailRegex.MatchString(to) {
		return Result{}, relayerr.New(relayerr.KindValidation, "A valid recipient address is required")
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Result{}, relayerr.New(relayerr.KindValidation, "Subject is required")
	}
	if runes := []rune(subject); len(runes) > maxSubjectLen {
		subject = string(runes[:maxSubjectLen])
	}

	if visuallyEmpty(html) {
		return Result{}, relayerr.New(relayerr.KindValidation, "Email content cannot be empty")
	}

	if s.provider == nil {
		return Result{}, relayerr.New(relayerr.KindConfiguration, "delivery provider is not configured")
	}

	res, err := s.provider.Send(ctx, Message{
		From:    s.from,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		var tagged *relayerr.Error
		if !errors.As(err, &tagged) {
			err = relayerr.Wrap(relayerr.KindProvider, "delivery provider request failed", err)
		}
		return Result{}, err
	}

	logger.Info("email sent", "to", to, "id", res.ID)
	return res, nil
}

// visuallyEmpty reports whether html renders as nothing: empty, whitespace,
// a blank paragraph, or a paragraph holding only a line break or a
// non-breaking space.
func visuallyEmpty(html string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(html), ""))
	switch normalized {
	case "", "<p></p>", "<p><br></p>", "<p><br/></p>", "<p>&nbsp;</p>":
		return true
	}
	return false
}
