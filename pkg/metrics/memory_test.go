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
	"testing"
	"time"
)

func TestMemorySeriesWindowSum(t *testing.T) {
	current := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	series := NewMemorySeriesWithClock(func() time.Time { return current })
	ctx := context.Background()

	_ = series.PublishDelta(ctx, 19)
	current = current.Add(10 * time.Second)
	_ = series.PublishDelta(ctx, 28)
	current = current.Add(10 * time.Second)
	_ = series.PublishDelta(ctx, -28)

	sum, err := series.WindowSum(ctx, time.Minute)
	if err != nil {
		t.Fatalf("WindowSum() returned error: %v", err)
	}
	if sum != 19 {
		t.Errorf("WindowSum() = %d, want 19", sum)
	}
}

func TestMemorySeriesWindowExcludesOldPoints(t *testing.T) {
	current := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	series := NewMemorySeriesWithClock(func() time.Time { return current })
	ctx := context.Background()

	_ = series.PublishDelta(ctx, 100)
	current = current.Add(2 * time.Minute)
	_ = series.PublishDelta(ctx, 5)

	sum, err := series.WindowSum(ctx, time.Minute)
	if err != nil {
		t.Fatalf("WindowSum() returned error: %v", err)
	}
	if sum != 5 {
		t.Errorf("WindowSum() = %d, want 5 (old point outside window)", sum)
	}
}

func TestMemorySeriesEmpty(t *testing.T) {
	series := NewMemorySeries()

	sum, err := series.WindowSum(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("WindowSum() returned error: %v", err)
	}
	if sum != 0 {
		t.Errorf("WindowSum() on empty series = %d, want 0", sum)
	}
	if series.Len() != 0 {
		t.Errorf("Len() = %d, want 0", series.Len())
	}
}

func TestMemorySeriesContextCancellation(t *testing.T) {
	series := NewMemorySeries()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := series.PublishDelta(ctx, 1); err == nil {
		t.Error("PublishDelta() with cancelled context returned nil")
	}
	if _, err := series.WindowSum(ctx, time.Minute); err == nil {
		t.Error("WindowSum() with cancelled context returned nil")
	}
}
