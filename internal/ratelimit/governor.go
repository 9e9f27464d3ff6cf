// Package ratelimit implements the per-identity, per-route request governor.
// It is a fixed-window counter over an in-process table: best-effort,
// single-process, with no coordination across instances. A caller spreading
// requests across instances can evade it; that is a documented limitation of
// this design, not a defect.
package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Policy is a fixed-window limit for one route.
type Policy struct {
	Window time.Duration
	Max    int
}

// Per-route policies.
var (
	LoginPolicy = Policy{Window: 15 * time.Minute, Max: 5}
	SendPolicy  = Policy{Window: time.Hour, Max: 10}
	ReadPolicy  = Policy{Window: 15 * time.Minute, Max: 100}
)

// Decision is the outcome of a governor check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set only when rejected
}

type record struct {
	count   int
	resetAt time.Time
}

// Governor tracks request counts inside fixed time windows.
type Governor struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

// NewGovernor creates an empty governor.
func NewGovernor() *Governor {
	return &Governor{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Check admits or rejects one request for (identity, route) under the given
// policy. Expired records are purged opportunistically on every call; there
// is no background sweep.
func (g *Governor) Check(identity, route string, pol Policy) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	// Amortized cleanup: drop every record whose window already ended.
	for k, rec := range g.records {
		if now.After(rec.resetAt) {
			delete(g.records, k)
		}
	}

	key := identity + "|" + route
	rec, ok := g.records[key]
	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 1, resetAt: now.Add(pol.Window)}
		g.records[key] = rec
		return Decision{
			Allowed:   true,
			Limit:     pol.Max,
			Remaining: pol.Max - 1,
			ResetAt:   rec.resetAt,
		}
	}

	if rec.count >= pol.Max {
		// Rejection never advances the counter; the window runs out on
		// its own schedule.
		retry := int(math.Ceil(rec.resetAt.Sub(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return Decision{
			Allowed:    false,
			Limit:      pol.Max,
			Remaining:  0,
			ResetAt:    rec.resetAt,
			RetryAfter: retry,
		}
	}

	rec.count++
	return Decision{
		Allowed:   true,
		Limit:     pol.Max,
		Remaining: pol.Max - rec.count,
		ResetAt:   rec.resetAt,
	}
}

// Len reports the number of live records, for diagnostics.
func (g *Governor) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// ClientIdentity derives the caller identity from forwarded-client headers,
// falling back through the alternates and finally to a shared "unknown"
// sentinel when the request carries none of them.
func ClientIdentity(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		// First hop is the client; proxies append their own addresses.
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(v)
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return strings.TrimSpace(v)
	}
	if v := r.Header.Get("CF-Connecting-IP"); v != "" {
		return strings.TrimSpace(v)
	}
	return "unknown"
}

func formatReset(t time.Time) string {
	return fmt.Sprintf("%d", t.Unix())
}
