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

// Package ledger defines the append-only size history store and the
// last-known-size index consulted when removal notifications arrive
// without a size.
package ledger

import (
	"context"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// Ledger is the append-only, timestamp-ordered history of size snapshots.
// Records are never updated or deleted.
type Ledger interface {
	// Append durably stores one size record. It must not fail silently:
	// a nil return guarantees the record is persisted.
	Append(ctx context.Context, record *common.SizeRecord) error

	// QueryRecent returns all records for bucketKey with Timestamp >= since,
	// ascending by timestamp. since is an RFC 3339 timestamp; an empty
	// since returns the full history.
	QueryRecent(ctx context.Context, bucketKey, since string) ([]*common.SizeRecord, error)

	// QueryMax returns the maximum TotalSize ever recorded for bucketKey,
	// or 0 if no records exist.
	QueryMax(ctx context.Context, bucketKey string) (int64, error)
}

// SizeIndex tracks the last known size per object key. It is written on
// every Created event and consulted (then cleared) on Removed events,
// replacing a log-history scan as the source of truth for deletion deltas.
type SizeIndex interface {
	// PutSize records the last known size for an object key.
	PutSize(ctx context.Context, bucketKey, objectKey string, size int64) error

	// GetSize returns the last known size for an object key, or
	// common.ErrSizeNotFound when none was recorded.
	GetSize(ctx context.Context, bucketKey, objectKey string) (int64, error)

	// DeleteSize clears the recorded size for an object key. Clearing a
	// key with no recorded size is a no-op.
	DeleteSize(ctx context.Context, bucketKey, objectKey string) error
}

// Store combines the ledger and the size index; both DynamoDB and memory
// implementations back them with the same table.
type Store interface {
	Ledger
	SizeIndex
}
