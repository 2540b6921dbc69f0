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

package cli

import "errors"

var (
	// ErrBucketRequired is returned when no target bucket is configured.
	ErrBucketRequired = errors.New("bucket is required")

	// ErrTableRequired is returned when no ledger table is configured.
	ErrTableRequired = errors.New("table is required for non-memory backends")

	// ErrQueueRequired is returned when no queue URL is configured.
	ErrQueueRequired = errors.New("queue URL is required for non-memory backends")

	// ErrInvalidErrorPolicy is returned for an unrecognized on-record-error
	// value.
	ErrInvalidErrorPolicy = errors.New("on-record-error must be 'continue' or 'fail'")
)
