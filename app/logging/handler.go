package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/lysyi3m/tube-comb/app/database"
)

// ComponentKey is the attribute that names the logger of a record.
const ComponentKey = "component"

const defaultLogger = "app"

var fallback slog.Handler = slog.NewTextHandler(os.Stderr, nil)

// Handler passes records to next and also queues them on a Writer.
type Handler struct {
	next   slog.Handler
	writer *Writer
	attrs  []slog.Attr
	groups []string
}

func NewHandler(next slog.Handler, writer *Writer) *Handler {
	return &Handler{next: next, writer: writer}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)
	if h.writer != nil {
		h.writer.Write(h.entry(r))
	}
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		next:   h.next.WithAttrs(attrs),
		writer: h.writer,
		attrs:  append(slices.Clip(h.attrs), h.qualify(attrs)...),
		groups: h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{
		next:   h.next.WithGroup(name),
		writer: h.writer,
		attrs:  h.attrs,
		groups: append(slices.Clip(h.groups), name),
	}
}

// qualify nests attrs under the handler's open groups.
func (h *Handler) qualify(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}

	out := attrs
	for i := len(h.groups) - 1; i >= 0; i-- {
		out = []slog.Attr{{Key: h.groups[i], Value: slog.GroupValue(out...)}}
	}
	return out
}

func (h *Handler) entry(r slog.Record) database.LogEntry {
	entry := database.LogEntry{
		Timestamp: r.Time,
		Logger:    defaultLogger,
		Level:     r.Level.String(),
		LevelNo:   int(r.Level),
		Message:   r.Message,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	fields := make(map[string]any)
	collect := func(a slog.Attr) {
		if a.Key == ComponentKey && a.Value.Kind() == slog.KindString {
			entry.Logger = a.Value.String()
			return
		}
		addAttr(fields, a)
	}

	for _, a := range h.attrs {
		collect(a)
	}
	recordAttrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		recordAttrs = append(recordAttrs, a)
		return true
	})
	for _, a := range h.qualify(recordAttrs) {
		collect(a)
	}

	if len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			entry.Attrs = data
		}
	}

	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		entry.SourceFile = filepath.Base(frame.File)
		entry.SourceFunc = frame.Function
		entry.SourceLine = frame.Line
	}

	return entry
}

func addAttr(dst map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return
	}

	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		if len(group) == 0 {
			return
		}
		target := dst
		if a.Key != "" {
			nested := make(map[string]any, len(group))
			dst[a.Key] = nested
			target = nested
		}
		for _, ga := range group {
			addAttr(target, ga)
		}
	case slog.KindTime:
		dst[a.Key] = v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[a.Key] = v.Duration().String()
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			dst[a.Key] = x.Error()
		case fmt.Stringer:
			dst[a.Key] = x.String()
		default:
			dst[a.Key] = x
		}
	default:
		dst[a.Key] = v.Any()
	}
}
