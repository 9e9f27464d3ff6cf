package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/email-relay/internal/api"
	"github.com/ignite/email-relay/internal/auth"
	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/inbox"
	"github.com/ignite/email-relay/internal/pkg/logger"
	"github.com/ignite/email-relay/internal/ratelimit"
	"github.com/ignite/email-relay/internal/sender"
	"github.com/ignite/email-relay/internal/store"
	"github.com/ignite/email-relay/internal/webhook"
)

// checkPortAvailable verifies that the target port is not already in use,
// so a stale process occupying it fails loudly at boot instead of at first
// request.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func buildProvider(ctx context.Context, cfg *config.Config) sender.Provider {
	switch cfg.Provider.Kind {
	case "ses":
		provider, err := sender.NewSESProvider(ctx, cfg.Provider.SES)
		if err != nil {
			logger.Error("SES provider init failed, outbound sending disabled", "error", err)
			return nil
		}
		return provider
	default:
		return sender.NewResendProvider(cfg.Provider.Resend)
	}
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.RedactEnabled())

	// Misconfiguration surfaces per-route as 500s rather than refusing to
	// boot; the warning makes it visible before the first request does.
	if err := cfg.Validate(); err != nil {
		logger.Warn("incomplete configuration", "error", err)
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		logger.Error("pre-flight check failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	manager := store.NewManager(cfg.Store)
	governor := ratelimit.NewGovernor()
	tokens := auth.NewVerifier(cfg.Auth)
	inboxStore := inbox.New(manager, cfg.Inbox)
	sendService := sender.NewService(buildProvider(ctx, cfg), cfg.Provider.From)

	var hooks *webhook.Verifier
	if cfg.Webhook.SigningSecret != "" {
		hooks, err = webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance())
		if err != nil {
			logger.Error("webhook verifier init failed", "error", err)
			os.Exit(1)
		}
	}

	handlers := api.NewHandlers(cfg, inboxStore, sendService, tokens, hooks)
	server := api.NewServer(cfg.Server, handlers, governor)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("email relay listening", "host", host, "port", cfg.Server.Port)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	manager.Close()
}
