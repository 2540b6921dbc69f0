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

// Package metrics abstracts the cumulative size-delta metric stream
// published by the change logger and watched by the threshold alarm.
package metrics

import (
	"context"
	"time"
)

// DefaultNamespace is the metric namespace used when none is configured.
const DefaultNamespace = "BucketWatch"

// DefaultMetricName is the metric name used when none is configured.
const DefaultMetricName = "TotalObjectSize"

// Publisher publishes one size-delta data point (units: bytes) into the
// cumulative metric stream.
type Publisher interface {
	PublishDelta(ctx context.Context, delta int64) error
}

// Source reads back the metric stream for alarm evaluation.
type Source interface {
	// WindowSum returns the sum of all data points within the trailing
	// window ending now.
	WindowSum(ctx context.Context, window time.Duration) (int64, error)
}
