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

// Package memory provides an in-memory implementation of the storage
// interface. This is useful for testing, development, and local pipeline
// runs where no cloud bucket is available.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// object represents a stored object with its data and attributes.
type object struct {
	data         []byte
	lastModified time.Time
}

// Memory is a storage backend that stores objects in memory.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]*object
}

// New creates a new Memory storage backend.
func New() *Memory {
	return &Memory{objects: make(map[string]*object)}
}

// Configure sets up the backend with the necessary settings.
// The memory backend has no required settings.
func (m *Memory) Configure(settings map[string]string) error {
	return nil
}

// Put stores an object in the backend.
func (m *Memory) Put(key string, data io.Reader) error {
	return m.PutWithContext(context.Background(), key, data)
}

// PutWithContext stores an object in the backend with context support.
func (m *Memory) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dataBytes, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.objects[key] = &object{data: dataBytes, lastModified: time.Now()}
	m.mu.Unlock()

	return nil
}

// Get retrieves an object from the backend.
func (m *Memory) Get(key string) (io.ReadCloser, error) {
	return m.GetWithContext(context.Background(), key)
}

// GetWithContext retrieves an object from the backend with context support.
func (m *Memory) GetWithContext(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := common.ValidateKey(key); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	obj, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}

	// Return a copy of the data to prevent mutation
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)

	return io.NopCloser(bytes.NewReader(dataCopy)), nil
}

// Delete removes an object from the backend.
func (m *Memory) Delete(key string) error {
	return m.DeleteWithContext(context.Background(), key)
}

// DeleteWithContext removes an object from the backend with context support.
func (m *Memory) DeleteWithContext(ctx context.Context, key string) error {
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.objects[key]; !exists {
		return fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}

	delete(m.objects, key)
	return nil
}

// Exists checks if an object exists in the backend.
func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := common.ValidateKey(key); err != nil {
		return false, err
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()

	return exists, nil
}

// ListWithOptions returns a paginated list of objects with sizes.
func (m *Memory) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if opts == nil {
		opts = &common.ListOptions{}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matchingKeys []string
	for key := range m.objects {
		if strings.HasPrefix(key, opts.Prefix) {
			matchingKeys = append(matchingKeys, key)
		}
	}
	sort.Strings(matchingKeys)

	allObjects := make([]*common.ObjectInfo, 0, len(matchingKeys))
	for _, key := range matchingKeys {
		obj := m.objects[key]
		allObjects = append(allObjects, &common.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}

	startIdx := 0
	if opts.ContinueFrom != "" {
		for i, obj := range allObjects {
			if obj.Key == opts.ContinueFrom {
				startIdx = i + 1
				break
			}
		}
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 1000
	}

	endIdx := startIdx + maxResults
	if endIdx > len(allObjects) {
		endIdx = len(allObjects)
	}

	result := &common.ListResult{Objects: allObjects[startIdx:endIdx]}
	if endIdx < len(allObjects) {
		result.Truncated = true
		result.NextToken = allObjects[endIdx-1].Key
	}

	return result, nil
}

// SignedURL returns a synthetic URL for the object. The memory backend has
// no real signing authority; the URL is stable and unique per key.
func (m *Memory) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	exists, err := m.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}
	return fmt.Sprintf("memory://%s?expires=%d", key, time.Now().Add(expiry).Unix()), nil
}

// Clear removes all objects from the storage. This is useful for testing.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.objects = make(map[string]*object)
	m.mu.Unlock()
}

// Count returns the number of objects in storage. This is useful for testing.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
