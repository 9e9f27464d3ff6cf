package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ignite/email-relay/internal/auth"
	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/inbox"
	"github.com/ignite/email-relay/internal/pkg/httputil"
	"github.com/ignite/email-relay/internal/pkg/logger"
	"github.com/ignite/email-relay/internal/relayerr"
	"github.com/ignite/email-relay/internal/sender"
	"github.com/ignite/email-relay/internal/webhook"
)

// maxWebhookBody caps inbound payloads; provider events are small.
const maxWebhookBody = 1 << 20

// Handlers holds the route-specific logic and its collaborators.
type Handlers struct {
	cfg    *config.Config
	inbox  *inbox.Store
	sender *sender.Service
	tokens *auth.Verifier
	hooks  *webhook.Verifier // nil until the signing secret is configured
	now    func() time.Time
}

// NewHandlers wires the handlers. hooks may be nil when the webhook secret
// is absent; the inbound endpoint then refuses all webhooks with a
// configuration error instead of accepting unverified input.
func NewHandlers(cfg *config.Config, ibx *inbox.Store, snd *sender.Service, tokens *auth.Verifier, hooks *webhook.Verifier) *Handlers {
	return &Handlers{
		cfg:    cfg,
		inbox:  ibx,
		sender: snd,
		tokens: tokens,
		hooks:  hooks,
		now:    time.Now,
	}
}

// HealthCheck reports liveness. Ungoverned and unauthenticated.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// HandleLogin exchanges the operator password for a session token.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}

	if h.cfg.Auth.AdminPassword == "" {
		h.respondError(w, relayerr.New(relayerr.KindConfiguration, "operator password is not configured"))
		return
	}

	if !auth.VerifyPassword(req.Password, h.cfg.Auth.AdminPassword) {
		logger.Warn("login rejected", "identity", r.RemoteAddr)
		httputil.Unauthorized(w, "Invalid password")
		return
	}

	token, err := h.tokens.IssueToken()
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"token": token})
}

// HandleListEmails returns up to 100 stored records, newest first.
func (h *Handlers) HandleListEmails(w http.ResponseWriter, r *http.Request) {
	records, err := h.inbox.ReadRecent(r.Context(), 0)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.OK(w, records)
}

// HandleSend validates and forwards an operator-composed message.
func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		HTML    string `json:"html"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}

	result, err := h.sender.Send(r.Context(), req.To, req.Subject, req.HTML)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"message": "Email sent successfully",
		"data":    result,
	})
}

// HandleInbound authenticates a provider webhook and stores delivered email.
// Recognized-but-uninteresting event kinds are acknowledged and discarded.
func (h *Handlers) HandleInbound(w http.ResponseWriter, r *http.Request) {
	if h.hooks == nil {
		h.respondError(w, relayerr.New(relayerr.KindConfiguration, "webhook signing secret is not configured"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "unreadable request body")
		return
	}

	id, timestamp, signature := envelopeHeaders(r)
	if err := h.hooks.Verify(body, id, timestamp, signature); err != nil {
		logger.Warn("webhook rejected", "id", id, "error", err)
		h.respondError(w, err)
		return
	}

	var event webhook.Event
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.BadRequest(w, "invalid webhook payload")
		return
	}

	if event.Type != webhook.EventTypeEmailReceived {
		httputil.OK(w, map[string]string{"message": "Event ignored"})
		return
	}

	if event.Data == (webhook.EmailData{}) {
		httputil.BadRequest(w, "missing event data")
		return
	}

	rec := inbox.FromWebhook(event.Data, h.now())
	if err := h.inbox.Append(r.Context(), rec); err != nil {
		h.respondError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"message": "Email stored"})
}

// envelopeHeaders reads the signed-envelope headers, accepting both the
// webhook-* names and the provider's svix-* aliases.
func envelopeHeaders(r *http.Request) (id, timestamp, signature string) {
	id = headerOr(r, "webhook-id", "svix-id")
	timestamp = headerOr(r, "webhook-timestamp", "svix-timestamp")
	signature = headerOr(r, "webhook-signature", "svix-signature")
	return
}

func headerOr(r *http.Request, name, alias string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return r.Header.Get(alias)
}

// respondError maps a tagged error to its status. 4xx messages are safe to
// expose; 5xx bodies stay generic unless dev mode is on, with the real error
// always logged server-side.
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := relayerr.HTTPStatus(err)
	msg := relayerr.PublicMessage(err)
	if status >= 500 {
		logger.Error("request failed", "status", status, "error", err)
		if !h.cfg.DevMode {
			msg = "An internal error occurred"
		}
	}
	httputil.Error(w, status, msg)
}
