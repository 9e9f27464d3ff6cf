package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/relayerr"
)

// ResendProvider delivers through the Resend HTTP API.
type ResendProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewResendProvider creates a Resend API provider.
func NewResendProvider(cfg config.ResendConfig) *ResendProvider {
	return &ResendProvider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// Send posts the message to the provider's transmission endpoint and returns
// the provider-assigned message id.
func (p *ResendProvider) Send(ctx context.Context, msg Message) (Result, error) {
	if p.apiKey == "" {
		return Result{}, relayerr.New(relayerr.KindConfiguration, "provider API key is not configured")
	}

	payload := map[string]interface{}{
		"from":    msg.From,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, relayerr.Wrap(relayerr.KindInternal, "payload serialization failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return Result{}, relayerr.Wrap(relayerr.KindInternal, "building provider request failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, relayerr.Wrap(relayerr.KindProvider, "delivery provider is unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, relayerr.Wrap(relayerr.KindProvider, "reading provider response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, relayerr.New(relayerr.KindProvider, providerMessage(respBody, resp.StatusCode))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Result{}, relayerr.Wrap(relayerr.KindProvider, "undecodable provider response", err)
	}
	return result, nil
}

// providerMessage surfaces the provider's own error text when present.
func providerMessage(body []byte, status int) string {
	var parsed struct {
		Message string `json:"message"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return fmt.Sprintf("delivery provider rejected the request (HTTP %d)", status)
}
