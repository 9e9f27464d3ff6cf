// Package store owns the single shared connection to the list-store. Every
// request path that touches persisted email history acquires the handle
// through the Manager, which lazily opens it, reuses it while healthy, and
// recreates it after a failure.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/pkg/logger"
	"github.com/ignite/email-relay/internal/relayerr"
)

// connState tracks the lifecycle of the shared handle.
type connState int

const (
	stateAbsent connState = iota
	stateConnecting
	stateOpen
	stateBroken
)

const (
	// maxConnectAttempts bounds automatic reconnection before a terminal
	// connection error is surfaced instead of looping indefinitely.
	maxConnectAttempts = 3
	retryBackoffStep   = 100 * time.Millisecond
	retryBackoffCap    = 3 * time.Second
)

// Manager holds the process-wide list-store handle. Concurrent requests
// share it; transitions are guarded by a mutex so double-construction races
// cannot leak half-open clients.
type Manager struct {
	mu     sync.Mutex
	cfg    config.StoreConfig
	client *redis.Client
	state  connState
}

// NewManager creates a connection manager. No connection is opened until the
// first Acquire.
func NewManager(cfg config.StoreConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Acquire returns the shared store client, opening it on first use. A cached
// open handle is returned immediately with no liveness round-trip. Broken or
// absent handles are redialed with capped backoff; after three consecutive
// failures the error is surfaced to the caller and the cached handle is
// discarded so the next call starts fresh.
func (m *Manager) Acquire(ctx context.Context) (*redis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateOpen && m.client != nil {
		return m.client, nil
	}

	if m.cfg.URL == "" {
		return nil, relayerr.New(relayerr.KindConfiguration, "store URL is not configured")
	}

	m.state = stateConnecting
	client := m.newClient()

	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout())
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			m.client = client
			m.state = stateOpen
			logger.Info("store connection ready", "attempt", attempt)
			return client, nil
		}

		logger.Warn("store connect failed", "attempt", attempt, "error", lastErr)
		if attempt == maxConnectAttempts {
			break
		}
		if err := sleepCtx(ctx, backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	client.Close()
	m.client = nil
	m.state = stateBroken
	return nil, relayerr.Wrap(relayerr.KindConnection, "store is unreachable", lastErr)
}

// MarkBroken discards the cached handle after a runtime I/O error so the
// next Acquire redials instead of reusing a dead connection. WRONGTYPE and
// other command-level replies are not connection failures and are ignored.
func (m *Manager) MarkBroken(err error) {
	if err == nil || isCommandError(err) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.state = stateBroken
	logger.Warn("store connection marked broken", "error", err)
}

// Close releases the cached handle, typically during shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.state = stateAbsent
}

func (m *Manager) newClient() *redis.Client {
	opts, err := redis.ParseURL(m.cfg.URL)
	if err != nil {
		// Bare host:port addresses are accepted too.
		opts = &redis.Options{Addr: m.cfg.URL}
	}
	opts.DialTimeout = m.cfg.Timeout()
	opts.MaxRetries = maxConnectAttempts
	opts.MinRetryBackoff = retryBackoffStep
	opts.MaxRetryBackoff = retryBackoffCap
	// Diagnostic visibility only; must not alter control flow.
	opts.OnConnect = func(ctx context.Context, cn *redis.Conn) error {
		logger.Debug("store connection established")
		return nil
	}
	return redis.NewClient(opts)
}

// backoff computes the reconnect delay: min(attempt x 100ms, 3s).
func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * retryBackoffStep
	if d > retryBackoffCap {
		return retryBackoffCap
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isCommandError reports whether err is a server reply to a well-formed
// command (e.g. WRONGTYPE) rather than a transport failure.
func isCommandError(err error) bool {
	var redisErr redis.Error
	if !errors.As(err, &redisErr) {
		return false
	}
	msg := redisErr.Error()
	return !strings.HasPrefix(msg, "LOADING") && !strings.HasPrefix(msg, "READONLY")
}
