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

// Package common holds the shared types and interfaces used across the
// bucketwatch pipeline: mutation notifications, size history records and
// the storage backend contract.
package common

import (
	"time"
)

// EventKind identifies the type of bucket mutation a notification describes.
type EventKind string

const (
	// EventCreated indicates an object was created or overwritten.
	EventCreated EventKind = "Created"

	// EventRemoved indicates an object was deleted.
	EventRemoved EventKind = "Removed"
)

// MutationNotification is a single in-flight bucket change event as decoded
// from the queue. Delivery is at-least-once: consumers must tolerate
// duplicates and reordering.
type MutationNotification struct {
	// BucketKey is the bucket the mutation occurred in.
	BucketKey string `json:"bucket_key"`

	// ObjectKey is the key of the mutated object.
	ObjectKey string `json:"object_key"`

	// Kind is the mutation type.
	Kind EventKind `json:"kind"`

	// SizeBytes is the object size. Only populated for Created events;
	// removal notifications do not carry the deleted object's size.
	SizeBytes int64 `json:"size_bytes,omitempty"`
}

// SizeRecord is one append-only snapshot of a bucket's aggregate size.
// Each record reflects a full recomputation at Timestamp, never a delta.
type SizeRecord struct {
	// BucketKey is the partition key.
	BucketKey string `json:"bucket_key"`

	// Timestamp is an ISO-8601 (RFC 3339 nano) sort key, monotonically
	// non-decreasing per bucket.
	Timestamp string `json:"timestamp"`

	// TotalSize is the summed size in bytes of every object in the bucket.
	TotalSize int64 `json:"total_size"`

	// ObjectCount is the number of objects in the bucket.
	ObjectCount int64 `json:"object_count"`
}

// SizeDeltaEntry is the structured log record emitted by the change logger
// for every processed mutation. The field names are part of the greppable
// log contract.
type SizeDeltaEntry struct {
	ObjectKey string `json:"object_name"`
	SizeDelta int64  `json:"size_delta"`
}

// EvictionResult reports the outcome of a single eviction run.
type EvictionResult struct {
	// DeletedKey is the key of the evicted object, empty when NoObjectsFound.
	DeletedKey string `json:"deleted_key,omitempty"`

	// DeletedSize is the size in bytes of the evicted object.
	DeletedSize int64 `json:"deleted_size,omitempty"`

	// NoObjectsFound is true when the bucket was empty and nothing was
	// deleted. This is a defined no-op outcome, not an error.
	NoObjectsFound bool `json:"no_objects_found,omitempty"`
}

// ObjectInfo describes a single stored object as returned by listing.
type ObjectInfo struct {
	// Key is the object's storage key.
	Key string `json:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// LastModified is when the object was last written.
	LastModified time.Time `json:"last_modified"`
}

// ListOptions specifies options for listing objects.
type ListOptions struct {
	// Prefix filters objects to those starting with this prefix.
	Prefix string

	// MaxResults specifies the maximum number of results per page.
	// 0 means use backend default.
	MaxResults int

	// ContinueFrom is a pagination token from a previous ListResult.
	// Empty string means start from the beginning.
	ContinueFrom string
}

// ListResult contains one page of a list operation.
type ListResult struct {
	// Objects contains the objects on this page.
	Objects []*ObjectInfo

	// NextToken is the pagination token for the next page.
	NextToken string

	// Truncated indicates whether more results are available.
	Truncated bool
}
