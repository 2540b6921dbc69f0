// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-bucketwatch.
//
// go-bucketwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package changelog

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// DeltaSink is the durable, greppable destination for size-delta records.
type DeltaSink interface {
	Emit(ctx context.Context, entry common.SizeDeltaEntry) error
}

// WriterSink emits one JSON line per entry to an io.Writer, typically
// stdout where the hosting platform's log collection picks it up.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing JSON lines to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit writes one entry as a single JSON line.
func (s *WriterSink) Emit(ctx context.Context, entry common.SizeDeltaEntry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.w).Encode(entry)
}

// MemorySink records emitted entries in memory. Useful for testing.
type MemorySink struct {
	mu      sync.Mutex
	entries []common.SizeDeltaEntry
	err     error
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit records the entry, or returns the injected error.
func (s *MemorySink) Emit(ctx context.Context, entry common.SizeDeltaEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of all recorded entries.
func (s *MemorySink) Entries() []common.SizeDeltaEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]common.SizeDeltaEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// FailWith makes subsequent Emit calls return err.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
