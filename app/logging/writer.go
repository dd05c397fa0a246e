package logging

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/tube-comb/app/database"
	"github.com/lysyi3m/tube-comb/app/metrics"
)

const (
	defaultBatchSize     = 64
	defaultFlushInterval = time.Second
)

// Store is where the writer persists batches.
type Store interface {
	InsertLogs(entries []database.LogEntry) error
}

// Writer moves log entries to the store on a background goroutine. Entries
// are dropped when the buffer is full so callers never block on the store.
type Writer struct {
	store         Store
	entries       chan database.LogEntry
	done          chan struct{}
	batchSize     int
	flushInterval time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewWriter(store Store, buffer int) *Writer {
	if buffer <= 0 {
		buffer = 1024
	}

	w := &Writer{
		store:         store,
		entries:       make(chan database.LogEntry, buffer),
		done:          make(chan struct{}),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	go w.run()
	return w
}

// Write queues an entry. It reports false when the entry was dropped.
func (w *Writer) Write(entry database.LogEntry) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}

	select {
	case w.entries <- entry:
		return true
	default:
		metrics.LogStoreDropped.Inc()
		return false
	}
}

// Close stops accepting entries and waits until queued ones are stored.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.entries)
	w.mu.Unlock()

	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]database.LogEntry, 0, w.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.store.InsertLogs(batch); err != nil {
			// not through the default logger, which feeds this writer
			slog.New(fallback).Error("Failed to store log entries", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
