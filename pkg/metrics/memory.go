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

package metrics

import (
	"context"
	"sync"
	"time"
)

// point is one timestamped data point.
type point struct {
	at    time.Time
	value int64
}

// MemorySeries is an in-memory metric time series implementing both
// Publisher and Source. It backs tests and local pipeline runs where no
// managed metric service exists.
type MemorySeries struct {
	mu     sync.Mutex
	points []point
	now    func() time.Time
}

// NewMemorySeries creates an empty series.
func NewMemorySeries() *MemorySeries {
	return &MemorySeries{now: time.Now}
}

// NewMemorySeriesWithClock creates a series with an injected clock.
// Used by tests.
func NewMemorySeriesWithClock(now func() time.Time) *MemorySeries {
	return &MemorySeries{now: now}
}

// PublishDelta appends one data point at the current time.
func (s *MemorySeries) PublishDelta(ctx context.Context, delta int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	s.points = append(s.points, point{at: s.now(), value: delta})
	s.mu.Unlock()
	return nil
}

// WindowSum sums the data points within the trailing window.
func (s *MemorySeries) WindowSum(ctx context.Context, window time.Duration) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	cutoff := s.now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, p := range s.points {
		if p.at.After(cutoff) {
			sum += p.value
		}
	}
	return sum, nil
}

// Len returns the number of recorded points. Useful for testing.
func (s *MemorySeries) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}
