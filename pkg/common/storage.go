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

import (
	"context"
	"io"
	"time"
)

// Storage is the common interface for all bucket backends. The aggregator
// and the evictor both enumerate the bucket through ListWithOptions and
// must follow NextToken until Truncated is false.
type Storage interface {
	// Configure sets up the backend with the necessary credentials and settings.
	Configure(settings map[string]string) error

	// Put stores an object in the backend.
	Put(key string, data io.Reader) error

	// PutWithContext stores an object in the backend with context support.
	PutWithContext(ctx context.Context, key string, data io.Reader) error

	// Get retrieves an object from the backend.
	Get(key string) (io.ReadCloser, error)

	// GetWithContext retrieves an object from the backend with context support.
	GetWithContext(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object from the backend.
	Delete(key string) error

	// DeleteWithContext removes an object from the backend with context support.
	DeleteWithContext(ctx context.Context, key string) error

	// Exists checks if an object exists in the backend.
	Exists(ctx context.Context, key string) (bool, error)

	// ListWithOptions returns a paginated list of objects with sizes.
	ListWithOptions(ctx context.Context, opts *ListOptions) (*ListResult, error)

	// SignedURL returns a time-limited URL granting read access to key.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ListAll drains every page of a listing and returns the full object set.
// Backends cap page sizes, so any bucket large enough to matter spans
// multiple pages.
func ListAll(ctx context.Context, storage Storage, prefix string) ([]*ObjectInfo, error) {
	var objects []*ObjectInfo
	opts := &ListOptions{Prefix: prefix}
	for {
		page, err := storage.ListWithOptions(ctx, opts)
		if err != nil {
			return nil, err
		}
		objects = append(objects, page.Objects...)
		if !page.Truncated {
			return objects, nil
		}
		opts.ContinueFrom = page.NextToken
	}
}
