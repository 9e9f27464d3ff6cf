package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/relayerr"
)

func TestVerifyPassword(t *testing.T) {
	tests := []struct {
		name       string
		candidate  string
		configured string
		want       bool
	}{
		{"exact match", "correct horse battery", "correct horse battery", true},
		{"length mismatch", "short", "a much longer password", false},
		{"single differing byte", "correct horse batterz", "correct horse battery", false},
		{"first byte differs", "Xorrect horse battery", "correct horse battery", false},
		{"empty candidate", "", "configured", false},
		{"empty configured never matches", "anything", "", false},
		{"both empty still refused", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.candidate, tt.configured); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testVerifier(start time.Time) (*Verifier, *time.Time) {
	now := start
	v := NewVerifier(config.AuthConfig{TokenSecret: "test-signing-secret"})
	v.now = func() time.Time { return now }
	return v, &now
}

func TestTokenRoundTrip(t *testing.T) {
	v, _ := testVerifier(time.Unix(1_700_000_000, 0))

	token, err := v.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	user, err := v.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if user != "admin" {
		t.Errorf("user = %q, want admin", user)
	}
}

func TestTokenExpiry(t *testing.T) {
	v, now := testVerifier(time.Unix(1_700_000_000, 0))

	token, err := v.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	// Still valid just inside the 8 hour window.
	*now = now.Add(7*time.Hour + 59*time.Minute)
	if _, err := v.VerifyToken(token); err != nil {
		t.Errorf("VerifyToken() at 7h59m error = %v, want valid", err)
	}

	// Rejected just past it, with the expiry-specific error.
	*now = now.Add(2 * time.Minute)
	_, err = v.VerifyToken(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("VerifyToken() at 8h01m error = %v, want ErrExpiredToken", err)
	}
}

func TestVerifyToken_Invalid(t *testing.T) {
	v, _ := testVerifier(time.Unix(1_700_000_000, 0))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", func() string {
			tok, _ := v.IssueToken()
			return tok + "x"
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("VerifyToken(%q) error = %v, want ErrInvalidToken", tt.token, err)
			}
		})
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	issuer, _ := testVerifier(time.Unix(1_700_000_000, 0))
	token, _ := issuer.IssueToken()

	other := NewVerifier(config.AuthConfig{TokenSecret: "a-different-secret"})
	if _, err := other.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyToken() with wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestMissingSecretIsConfigurationError(t *testing.T) {
	v := NewVerifier(config.AuthConfig{})

	if _, err := v.IssueToken(); relayerr.KindOf(err) != relayerr.KindConfiguration {
		t.Errorf("IssueToken() kind = %v, want KindConfiguration", relayerr.KindOf(err))
	}
	if _, err := v.VerifyToken("whatever"); relayerr.KindOf(err) != relayerr.KindConfiguration {
		t.Errorf("VerifyToken() kind = %v, want KindConfiguration", relayerr.KindOf(err))
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"Bearer ", ""},
		{"Basic abc", ""},
		{"", ""},
		{"bearer abc", ""}, // scheme is case-sensitive here
	}
	for _, tt := range tests {
		if got := BearerToken(tt.header); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
