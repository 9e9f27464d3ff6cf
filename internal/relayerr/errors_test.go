package relayerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"tagged", New(KindAuth, "bad token"), KindAuth},
		{"wrapped tag", fmt.Errorf("handler: %w", New(KindValidation, "bad input")), KindValidation},
		{"untagged", errors.New("boom"), KindInternal},
		{"nested cause", Wrap(KindConnection, "store down", errors.New("dial refused")), KindConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindConfiguration, http.StatusInternalServerError},
		{KindConnection, http.StatusInternalServerError},
		{KindAuth, http.StatusUnauthorized},
		{KindValidation, http.StatusBadRequest},
		{KindProvider, http.StatusBadRequest},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := HTTPStatus(New(tt.kind, "x")); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	if msg := PublicMessage(New(KindValidation, "Subject is required")); msg != "Subject is required" {
		t.Errorf("PublicMessage() = %q", msg)
	}
	if msg := PublicMessage(errors.New("pq: connection reset")); msg != "An internal error occurred" {
		t.Errorf("PublicMessage() leaked internals: %q", msg)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial refused")
	err := Wrap(KindConnection, "store down", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}
