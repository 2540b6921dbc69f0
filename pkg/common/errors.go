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

package common

import "errors"

var (
	// Configuration errors

	// ErrNotConfigured is returned when a backend is used before Configure.
	ErrNotConfigured = errors.New("not configured")

	// ErrBucketNotSet is returned when the required bucket is not set.
	ErrBucketNotSet = errors.New("bucket not set")

	// ErrRegionNotSet is returned when the required region is not set.
	ErrRegionNotSet = errors.New("region not set")

	// ErrTableNotSet is returned when the required ledger table is not set.
	ErrTableNotSet = errors.New("table not set")

	// ErrQueueNotSet is returned when the required queue URL is not set.
	ErrQueueNotSet = errors.New("queue URL not set")

	// Storage operation errors

	// ErrKeyNotFound is returned when a key is not found in storage.
	ErrKeyNotFound = errors.New("key not found")

	// ErrSizeNotFound is returned by the size index when no size has been
	// recorded for an object key.
	ErrSizeNotFound = errors.New("no recorded size for key")

	// ErrInternal is returned for internal errors during operations.
	ErrInternal = errors.New("internal error")
)
