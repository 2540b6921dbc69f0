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

// Package factory creates storage backends by type name.
package factory

import (
	"errors"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// ErrUnknownBackend is returned when an unknown backend type is requested.
var ErrUnknownBackend = errors.New("unknown storage backend type")

// StorageCreator is a function that creates a storage backend.
type StorageCreator func(settings map[string]string) (common.Storage, error)

var storageRegistry = make(map[string]StorageCreator)

// RegisterStorage registers a storage backend creator.
func RegisterStorage(backendType string, creator StorageCreator) {
	storageRegistry[backendType] = creator
}

// NewStorage creates a new storage backend based on the given type.
func NewStorage(backendType string, settings map[string]string) (common.Storage, error) {
	creator, exists := storageRegistry[backendType]
	if !exists {
		return nil, ErrUnknownBackend
	}
	return creator(settings)
}
