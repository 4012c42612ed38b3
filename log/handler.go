package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Handler is a slog.Handler that writes one compact line per record:
// an optional level prefix, the message, then key=value attributes.
type Handler struct {
	level  slog.Level
	mu     *sync.Mutex
	output io.Writer
	attrs  []slog.Attr
	group  string
}

// NewHandler creates a new handler writing to output
func NewHandler(output io.Writer, level slog.Level) *Handler {
	return &Handler{
		level:  level,
		mu:     &sync.Mutex{},
		output: output,
	}
}

// Enabled returns whether the handler handles records at the given level
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes the record
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	switch {
	case r.Level >= slog.LevelError:
		b.WriteString("[ERROR] ")
	case r.Level >= slog.LevelWarn:
		b.WriteString("[WARN] ")
	case r.Level >= slog.LevelInfo:
		// No prefix for INFO
	default:
		b.WriteString("[DEBUG] ")
	}

	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, b.String())
	return err
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) || a.Key == slog.TimeKey {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Resolve().Any())
}

// WithAttrs returns a new Handler with the given attributes appended
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup returns a new Handler that prefixes attribute keys with name
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}
