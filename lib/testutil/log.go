// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Record is one captured log record, flattened to its message, level,
// and attributes (including those added with Logger.With).
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is a slog.Handler that captures every record at or above
// Debug. It is safe for concurrent use.
type LogRecorder struct {
	state *recorderState
	attrs []slog.Attr
}

type recorderState struct {
	mu      sync.Mutex
	records []Record
}

// NewLogRecorder returns an empty recorder and a logger writing to it.
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	recorder := &LogRecorder{state: &recorderState{}}
	return recorder, slog.New(recorder)
}

// Enabled implements slog.Handler.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, len(r.attrs)+record.NumAttrs())
	for _, attr := range r.attrs {
		attrs[attr.Key] = attr.Value.Resolve().Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Resolve().Any()
		return true
	})

	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.records = append(r.state.records, Record{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	return nil
}

// WithAttrs implements slog.Handler.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	combined = append(combined, r.attrs...)
	combined = append(combined, attrs...)
	return &LogRecorder{state: r.state, attrs: combined}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (r *LogRecorder) WithGroup(string) slog.Handler {
	return r
}

// Records returns a copy of everything captured so far.
func (r *LogRecorder) Records() []Record {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return append([]Record(nil), r.state.records...)
}

// Find returns the captured records with the given message.
func (r *LogRecorder) Find(message string) []Record {
	var matches []Record
	for _, record := range r.Records() {
		if record.Message == message {
			matches = append(matches, record)
		}
	}
	return matches
}
