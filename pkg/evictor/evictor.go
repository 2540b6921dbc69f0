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

// Package evictor deletes the single largest object from the target bucket
// when the threshold alarm fires.
package evictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/observability"
)

// Evictor removes the largest object from a bucket on trigger.
type Evictor struct {
	storage common.Storage
	bucket  string
	logger  adapters.Logger
	metrics *observability.PipelineMetrics
}

// New creates an Evictor for the given target bucket.
func New(storage common.Storage, bucket string, logger adapters.Logger) *Evictor {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Evictor{storage: storage, bucket: bucket, logger: logger}
}

// WithMetrics attaches process counters and returns the Evictor.
func (e *Evictor) WithMetrics(m *observability.PipelineMetrics) *Evictor {
	e.metrics = m
	return e
}

// Evict lists the entire bucket, selects the object with the strictly
// greatest size (ties resolved to the first encountered in listing order),
// and deletes exactly that object.
//
// An empty bucket yields a NoObjectsFound result, not an error. Listing
// and deletion errors are surfaced to the caller: eviction failures are
// operationally significant. The listing may be stale by deletion time;
// deleting an already-deleted object is non-fatal.
func (e *Evictor) Evict(ctx context.Context) (*common.EvictionResult, error) {
	objects, err := common.ListAll(ctx, e.storage, "")
	if err != nil {
		return nil, fmt.Errorf("list bucket %s: %w", e.bucket, err)
	}

	if len(objects) == 0 {
		e.logger.Warn(ctx, "no objects found in bucket, nothing to evict",
			adapters.F("bucket", e.bucket))
		return &common.EvictionResult{NoObjectsFound: true}, nil
	}

	largest := objects[0]
	for _, obj := range objects[1:] {
		if obj.Size > largest.Size {
			largest = obj
		}
	}

	if err := e.storage.DeleteWithContext(ctx, largest.Key); err != nil {
		if errors.Is(err, common.ErrKeyNotFound) {
			// Raced with another mutation; the object is already gone.
			e.logger.Warn(ctx, "largest object already deleted",
				adapters.F("object_key", largest.Key))
			return &common.EvictionResult{DeletedKey: largest.Key, DeletedSize: largest.Size}, nil
		}
		return nil, fmt.Errorf("delete object %s: %w", largest.Key, err)
	}

	if e.metrics != nil {
		e.metrics.Evictions.Inc()
	}
	e.logger.Info(ctx, "evicted largest object",
		adapters.F("bucket", e.bucket),
		adapters.F("object_key", largest.Key),
		adapters.F("size", largest.Size))

	return &common.EvictionResult{DeletedKey: largest.Key, DeletedSize: largest.Size}, nil
}
