package eventstore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const testRunID = "run-123"

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()
	payload := []byte(`{"test": "data"}`)

	if err := store.Append(ctx, testRunID, "TestEvent", payload, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.RunID() != testRunID {
		t.Errorf("expected run_id %s, got %s", testRunID, event.RunID())
	}
	if event.Type() != "TestEvent" {
		t.Errorf("expected event_type TestEvent, got %s", event.Type())
	}
	if !bytes.Equal(event.Payload(), payload) {
		t.Errorf("expected payload %s, got %s", payload, event.Payload())
	}
	if event.Metadata()["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", event.Metadata())
	}
	if event.ID() == 0 {
		t.Error("expected a database-assigned id")
	}
}

func TestEventStoreGetByRunIDIsolatesRuns(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	for _, id := range []string{"run-a", "run-b", "run-a"} {
		if err := store.Append(ctx, id, "TestEvent", []byte(`{}`), nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := store.GetByRunID(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for run-a, got %d", len(events))
	}
	if events[0].ID() >= events[1].ID() {
		t.Errorf("events not in insertion order: %d then %d", events[0].ID(), events[1].ID())
	}
	if events[0].Metadata() != nil {
		t.Errorf("expected nil metadata, got %v", events[0].Metadata())
	}
}

func TestEventStoreGetRange(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	if err := store.Append(ctx, testRunID, "TestEvent", []byte(`{}`), nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	now := time.Now()
	events, err := store.GetRange(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event in range, got %d", len(events))
	}

	events, err = store.GetRange(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events in future range, got %d", len(events))
	}
}

func TestEventStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Append(t.Context(), testRunID, "TestEvent", []byte(`{}`), nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByRunID(t.Context(), testRunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected persisted event, got %d", len(events))
	}
}

func TestEventStoreErrorsMatchSentinels(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = store.Close()

	err = store.Append(t.Context(), testRunID, "TestEvent", []byte(`{}`), nil)
	if !errors.Is(err, ErrEventAppendFailed) {
		t.Fatalf("expected ErrEventAppendFailed, got %v", err)
	}
	_, err = store.GetByRunID(t.Context(), testRunID)
	if !errors.Is(err, ErrEventQueryFailed) {
		t.Fatalf("expected ErrEventQueryFailed, got %v", err)
	}
}
