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

package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// MemoryStore is an in-memory ledger and size index for tests and local
// pipeline runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]*common.SizeRecord
	sizes   map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]*common.SizeRecord),
		sizes:   make(map[string]int64),
	}
}

// Append stores one size record, keeping per-bucket timestamp order.
func (m *MemoryStore) Append(ctx context.Context, record *common.SizeRecord) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recordCopy := *record
	recs := append(m.records[record.BucketKey], &recordCopy)
	// RFC 3339 timestamps sort lexicographically; insertion is normally
	// already in order, this covers out-of-order appends from retries.
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp < recs[j].Timestamp
	})
	m.records[record.BucketKey] = recs
	return nil
}

// QueryRecent returns records with Timestamp >= since, ascending.
func (m *MemoryStore) QueryRecent(ctx context.Context, bucketKey, since string) ([]*common.SizeRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*common.SizeRecord
	for _, rec := range m.records[bucketKey] {
		if rec.Timestamp >= since {
			recordCopy := *rec
			out = append(out, &recordCopy)
		}
	}
	return out, nil
}

// QueryMax returns the maximum TotalSize ever recorded, or 0 if none.
func (m *MemoryStore) QueryMax(ctx context.Context, bucketKey string) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var max int64
	for _, rec := range m.records[bucketKey] {
		if rec.TotalSize > max {
			max = rec.TotalSize
		}
	}
	return max, nil
}

// PutSize records the last known size for an object key.
func (m *MemoryStore) PutSize(ctx context.Context, bucketKey, objectKey string, size int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	m.sizes[sizeKey(bucketKey, objectKey)] = size
	m.mu.Unlock()
	return nil
}

// GetSize returns the last known size for an object key.
func (m *MemoryStore) GetSize(ctx context.Context, bucketKey, objectKey string) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	m.mu.RLock()
	size, ok := m.sizes[sizeKey(bucketKey, objectKey)]
	m.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", common.ErrSizeNotFound, objectKey)
	}
	return size, nil
}

// DeleteSize clears the recorded size for an object key.
func (m *MemoryStore) DeleteSize(ctx context.Context, bucketKey, objectKey string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	delete(m.sizes, sizeKey(bucketKey, objectKey))
	m.mu.Unlock()
	return nil
}

// Len returns the number of records for a bucket. Useful for testing.
func (m *MemoryStore) Len(bucketKey string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[bucketKey])
}

func sizeKey(bucketKey, objectKey string) string {
	return bucketKey + "/" + objectKey
}
