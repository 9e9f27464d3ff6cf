package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/store"
	"github.com/ignite/email-relay/internal/webhook"
)

func testStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	manager := store.NewManager(config.StoreConfig{URL: mr.Addr(), TimeoutSeconds: 1})
	t.Cleanup(manager.Close)

	return New(manager, config.InboxConfig{ListKey: "emails:received", MaxHistory: 1000, ReadLimit: 100}), mr
}

func TestAppendThenReadRecent(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	older := EmailRecord{ID: "em_1", From: "a@example.com", To: "ops@example.com", Subject: "first", ReceivedAt: "2026-08-30T10:00:00Z"}
	newer := EmailRecord{ID: "em_2", From: "b@example.com", To: "ops@example.com", Subject: "second", ReceivedAt: "2026-08-30T11:00:00Z"}

	if err := s.Append(ctx, older); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, newer); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := s.ReadRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	// Newest insertion comes back first; relative order of the rest holds.
	if records[0].ID != "em_2" {
		t.Errorf("records[0].ID = %s, want em_2 (newest first)", records[0].ID)
	}
	if records[1].ID != "em_1" {
		t.Errorf("records[1].ID = %s, want em_1", records[1].ID)
	}
}

func TestReadRecent_EmptyList(t *testing.T) {
	s, _ := testStore(t)

	records, err := s.ReadRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ReadRecent() on empty list error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestReadRecent_WrongTypeKeyIsEmptyHistory(t *testing.T) {
	s, mr := testStore(t)

	// A string already sitting at the list key is an uninitialized-history
	// state, not corruption.
	mr.Set("emails:received", "not a list")

	records, err := s.ReadRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v, want nil", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestReadRecent_PoisonPillIsDropped(t *testing.T) {
	s, mr := testStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, EmailRecord{ID: "em_1", From: "a@example.com", To: "x@example.com", Subject: "ok"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	mr.Lpush("emails:received", "{this is not json")
	if err := s.Append(ctx, EmailRecord{ID: "em_2", From: "b@example.com", To: "x@example.com", Subject: "ok too"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := s.ReadRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v, poison pill must not abort the read", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 surviving records", len(records))
	}
	if records[0].ID != "em_2" || records[1].ID != "em_1" {
		t.Errorf("surviving order = %s, %s; want em_2, em_1", records[0].ID, records[1].ID)
	}
}

func TestReadRecent_LimitClamp(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, EmailRecord{ID: "em", Subject: "s"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := s.ReadRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(records) != 3 {
		t.Errorf("len(records) = %d, want 3", len(records))
	}

	// Limits beyond the configured cap fall back to the cap.
	records, err = s.ReadRecent(ctx, 500)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(records) != 5 {
		t.Errorf("len(records) = %d, want 5", len(records))
	}
}

func TestAppend_TrimsHistory(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	manager := store.NewManager(config.StoreConfig{URL: mr.Addr(), TimeoutSeconds: 1})
	t.Cleanup(manager.Close)

	s := New(manager, config.InboxConfig{ListKey: "emails:received", MaxHistory: 3, ReadLimit: 100})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, EmailRecord{ID: "em", Subject: "s"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := s.ReadRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(records) != 3 {
		t.Errorf("len(records) = %d, want history trimmed to 3", len(records))
	}
}

func TestFromWebhook(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		data webhook.EmailData
		want EmailRecord
	}{
		{
			"complete payload",
			webhook.EmailData{EmailID: "em_1", From: "a@example.com", To: "b@example.com", Subject: "hi", CreatedAt: "2026-08-30T11:59:00Z"},
			EmailRecord{ID: "em_1", From: "a@example.com", To: "b@example.com", Subject: "hi", ReceivedAt: "2026-08-30T11:59:00Z"},
		},
		{
			"placeholders for missing metadata",
			webhook.EmailData{EmailID: "em_2"},
			EmailRecord{ID: "em_2", From: PlaceholderUnknown, To: PlaceholderUnknown, Subject: PlaceholderNoSubject, ReceivedAt: "2026-08-30T12:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromWebhook(tt.data, now); got != tt.want {
				t.Errorf("FromWebhook() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFromWebhook_SyntheticID(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	rec := FromWebhook(webhook.EmailData{From: "a@example.com"}, now)
	if rec.ID == "" {
		t.Fatal("missing provider id must yield a synthetic id")
	}
	other := FromWebhook(webhook.EmailData{From: "a@example.com"}, now)
	if rec.ID == other.ID {
		t.Error("synthetic ids must not collide for simultaneous ingestions")
	}
}
