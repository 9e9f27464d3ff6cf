// Package inbox persists the bounded recent history of received email on
// the shared list-store. Appends head-insert, so the newest record is always
// physically first and reads come back newest-first with no reordering.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/pkg/logger"
	"github.com/ignite/email-relay/internal/relayerr"
	"github.com/ignite/email-relay/internal/store"
	"github.com/ignite/email-relay/internal/webhook"
)

// Placeholders for missing optional metadata. Ingestion never fails solely
// because a provider omitted a field.
const (
	PlaceholderUnknown   = "Unknown"
	PlaceholderNoSubject = "(No Subject)"
)

// EmailRecord is one received email. Immutable once stored.
type EmailRecord struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	ReceivedAt string `json:"receivedAt"`
}

// FromWebhook builds a record from a verified webhook payload, substituting
// placeholders for missing metadata and deriving a synthetic id from the
// ingestion time when the provider supplied none.
func FromWebhook(data webhook.EmailData, now time.Time) EmailRecord {
	rec := EmailRecord{
		ID:         data.EmailID,
		From:       data.From,
		To:         data.To,
		Subject:    data.Subject,
		ReceivedAt: data.CreatedAt,
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("email_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
	}
	if rec.From == "" {
		rec.From = PlaceholderUnknown
	}
	if rec.To == "" {
		rec.To = PlaceholderUnknown
	}
	if rec.Subject == "" {
		rec.Subject = PlaceholderNoSubject
	}
	if rec.ReceivedAt == "" {
		rec.ReceivedAt = now.UTC().Format(time.RFC3339)
	}
	return rec
}

// Store reads and writes the received-email list.
type Store struct {
	manager    *store.Manager
	key        string
	maxHistory int64
	readLimit  int64
}

// New creates an inbox store over the shared connection manager.
func New(m *store.Manager, cfg config.InboxConfig) *Store {
	key := cfg.ListKey
	if key == "" {
		key = "emails:received"
	}
	readLimit := cfg.ReadLimit
	if readLimit <= 0 {
		readLimit = 100
	}
	return &Store{
		manager:    m,
		key:        key,
		maxHistory: cfg.MaxHistory,
		readLimit:  readLimit,
	}
}

// Append head-inserts a record and trims the list to the configured history
// bound. The trim is best-effort: a failed trim never fails the append.
func (s *Store) Append(ctx context.Context, rec EmailRecord) error {
	client, err := s.manager.Acquire(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return relayerr.Wrap(relayerr.KindInternal, "record serialization failed", err)
	}

	if err := client.LPush(ctx, s.key, data).Err(); err != nil {
		s.manager.MarkBroken(err)
		return relayerr.Wrap(relayerr.KindConnection, "failed to store email", err)
	}

	if s.maxHistory > 0 {
		if err := client.LTrim(ctx, s.key, 0, s.maxHistory-1).Err(); err != nil {
			logger.Warn("inbox trim failed", "error", err)
		}
	}

	logger.Info("email stored", "id", rec.ID, "from", rec.From)
	return nil
}

// ReadRecent returns up to limit records from the head of the list, newest
// first. Elements that fail to deserialize are dropped and logged; a poison
// pill never aborts the whole read. An uninitialized key, including one
// holding a non-list value, is a valid empty-history state, not an error.
func (s *Store) ReadRecent(ctx context.Context, limit int64) ([]EmailRecord, error) {
	client, err := s.manager.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.readLimit {
		limit = s.readLimit
	}

	vals, err := client.LRange(ctx, s.key, 0, limit-1).Result()
	if err != nil {
		if strings.Contains(err.Error(), "WRONGTYPE") {
			return []EmailRecord{}, nil
		}
		s.manager.MarkBroken(err)
		return nil, relayerr.Wrap(relayerr.KindConnection, "failed to read emails", err)
	}

	records := make([]EmailRecord, 0, len(vals))
	for _, v := range vals {
		var rec EmailRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			logger.Warn("dropping undecodable email record", "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
