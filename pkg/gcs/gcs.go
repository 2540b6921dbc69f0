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

// Package gcs provides a Google Cloud Storage implementation of the storage
// interface.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// DefaultPageSize is the page size used when the caller does not specify one.
const DefaultPageSize = 1000

// Function variable to enable unit testing without real network I/O.
var gcsNewClient = func(ctx context.Context) (*storage.Client, error) {
	return storage.NewClient(ctx)
}

// GCS is a storage backend backed by a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// New creates a new, unconfigured GCS storage backend.
func New() *GCS {
	return &GCS{}
}

// Configure sets up the backend. Recognized settings: bucket (required).
// Credentials come from the ambient application-default environment.
func (g *GCS) Configure(settings map[string]string) error {
	g.bucket = settings["bucket"]
	if g.bucket == "" {
		return common.ErrBucketNotSet
	}
	if g.client != nil {
		return nil
	}
	// Allow skipping client creation for testing
	if settings["skip_client"] == "true" {
		return nil
	}
	client, err := gcsNewClient(context.Background())
	if err != nil {
		return err
	}
	g.client = client
	return nil
}

// Put stores an object in the bucket.
func (g *GCS) Put(key string, data io.Reader) error {
	return g.PutWithContext(context.Background(), key, data)
}

// PutWithContext stores an object in the bucket with context support.
func (g *GCS) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if err := g.ready(key); err != nil {
		return err
	}
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Get retrieves an object from the bucket.
func (g *GCS) Get(key string) (io.ReadCloser, error) {
	return g.GetWithContext(context.Background(), key)
}

// GetWithContext retrieves an object from the bucket with context support.
func (g *GCS) GetWithContext(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := g.ready(key); err != nil {
		return nil, err
	}
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
		}
		return nil, err
	}
	return r, nil
}

// Delete removes an object from the bucket. A missing object is treated as
// already deleted, matching the evictor's tolerance of stale listings.
func (g *GCS) Delete(key string) error {
	return g.DeleteWithContext(context.Background(), key)
}

// DeleteWithContext removes an object from the bucket with context support.
func (g *GCS) DeleteWithContext(ctx context.Context, key string) error {
	if err := g.ready(key); err != nil {
		return err
	}
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// Exists checks if an object exists in the bucket.
func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	if err := g.ready(key); err != nil {
		return false, err
	}
	_, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListWithOptions returns one page of objects using token pagination.
func (g *GCS) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if g.client == nil {
		return nil, common.ErrNotConfigured
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultPageSize
	}

	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: opts.Prefix})
	pager := iterator.NewPager(it, maxResults, opts.ContinueFrom)

	var attrs []*storage.ObjectAttrs
	nextToken, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, err
	}

	result := &common.ListResult{
		Objects:   make([]*common.ObjectInfo, 0, len(attrs)),
		NextToken: nextToken,
		Truncated: nextToken != "",
	}
	for _, a := range attrs {
		result.Objects = append(result.Objects, &common.ObjectInfo{
			Key:          a.Name,
			Size:         a.Size,
			LastModified: a.Updated,
		})
	}
	return result, nil
}

// SignedURL returns a time-limited signed GET URL for the object.
func (g *GCS) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := g.ready(key); err != nil {
		return "", err
	}
	return g.client.Bucket(g.bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
}

func (g *GCS) ready(key string) error {
	if g.client == nil {
		return common.ErrNotConfigured
	}
	return common.ValidateKey(key)
}
