package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/lysyi3m/tube-comb/app/database"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []database.LogEntry
	err     error
}

func (f *fakeStore) InsertLogs(entries []database.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeStore) all() []database.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.LogEntry(nil), f.entries...)
}

func TestHandlerTeesRecords(t *testing.T) {
	var out bytes.Buffer
	store := &fakeStore{}
	writer := NewWriter(store, 16)
	logger := slog.New(NewHandler(slog.NewTextHandler(&out, nil), writer))

	logger.Info("Upstream HTTP error", "component", "upstream", "status", 500, "error", errors.New("boom"))
	logger.With("component", "keypool").WithGroup("key").Warn("All keys exhausted", "count", 3)
	logger.Debug("filtered out")
	writer.Close()

	if !strings.Contains(out.String(), "Upstream HTTP error") {
		t.Errorf("Expected record on the wrapped handler, got %q", out.String())
	}

	entries := store.all()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 stored entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Logger != "upstream" {
		t.Errorf("Expected logger 'upstream', got '%s'", first.Logger)
	}
	if first.Level != "INFO" || first.LevelNo != 0 {
		t.Errorf("Expected INFO/0, got %s/%d", first.Level, first.LevelNo)
	}
	if string(first.Attrs) != `{"error":"boom","status":500}` {
		t.Errorf("Unexpected attrs %s", first.Attrs)
	}
	if first.SourceFile != "handler_test.go" || first.SourceLine == 0 {
		t.Errorf("Expected source location, got %s:%d", first.SourceFile, first.SourceLine)
	}

	second := entries[1]
	if second.Logger != "keypool" {
		t.Errorf("Expected logger 'keypool', got '%s'", second.Logger)
	}
	if string(second.Attrs) != `{"key":{"count":3}}` {
		t.Errorf("Expected grouped attrs, got %s", second.Attrs)
	}
}

func TestHandlerDefaultLogger(t *testing.T) {
	store := &fakeStore{}
	writer := NewWriter(store, 4)
	logger := slog.New(NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), writer))

	logger.Error("Starting failed")
	writer.Close()

	entries := store.all()
	if len(entries) != 1 || entries[0].Logger != "app" {
		t.Fatalf("Expected one entry from 'app', got %+v", entries)
	}
	if entries[0].Attrs != nil {
		t.Errorf("Expected no attrs, got %s", entries[0].Attrs)
	}
}

func TestWriterDropsWhenFull(t *testing.T) {
	w := &Writer{entries: make(chan database.LogEntry, 1)}

	if !w.Write(database.LogEntry{Message: "first"}) {
		t.Error("Expected first entry to be queued")
	}
	if w.Write(database.LogEntry{Message: "second"}) {
		t.Error("Expected second entry to be dropped")
	}
}

func TestWriterClose(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	writer := NewWriter(store, 4)

	writer.Write(database.LogEntry{Message: "lost"})
	writer.Close()
	writer.Close()

	if writer.Write(database.LogEntry{Message: "late"}) {
		t.Error("Expected write after close to be rejected")
	}
}
