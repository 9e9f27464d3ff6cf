// Package auth implements operator authentication: constant-time password
// comparison for login and signed session tokens for everything after it.
// Tokens are stateless HS256 JWTs; there is no server-side revocation list.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/relayerr"
)

// Sentinel errors for token verification.
var (
	ErrInvalidToken = relayerr.New(relayerr.KindAuth, "Invalid token")
	ErrExpiredToken = relayerr.New(relayerr.KindAuth, "Token has expired")
)

// VerifyPassword compares a candidate against the configured operator
// password. The length gate short-circuits, then the byte comparison runs in
// constant time so timing leaks nothing beyond the length check itself.
// Returns false, never an error, on any failure.
func VerifyPassword(candidate, configured string) bool {
	if configured == "" {
		return false
	}
	if len(candidate) != len(configured) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(configured)) == 1
}

// Verifier issues and verifies operator session tokens.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewVerifier creates a token verifier from auth configuration. The signing
// and verification secret is the same shared key; its absence is reported at
// issue/verify time as a configuration error, never as an auth failure.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.TokenSecret),
		ttl:    cfg.TokenTTL(),
		now:    time.Now,
	}
}

// IssueToken produces a signed token asserting the admin role, valid for the
// configured window (8 hours by default) from issuance.
func (v *Verifier) IssueToken() (string, error) {
	if len(v.secret) == 0 {
		return "", relayerr.New(relayerr.KindConfiguration, "token signing secret is not configured")
	}

	now := v.now()
	claims := jwt.MapClaims{
		"user": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(v.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", relayerr.Wrap(relayerr.KindInternal, "token signing failed", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and returns the asserted user.
func (v *Verifier) VerifyToken(tokenString string) (string, error) {
	if len(v.secret) == 0 {
		return "", relayerr.New(relayerr.KindConfiguration, "token signing secret is not configured")
	}

	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	user, _ := claims["user"].(string)
	if user == "" {
		return "", ErrInvalidToken
	}
	return user, nil
}

// BearerToken extracts the token from an Authorization header.
// Returns "" when the header is missing or not a Bearer scheme.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
