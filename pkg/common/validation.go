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
	"fmt"
	"strings"
)

// MaxKeyLength is the maximum allowed length for object keys.
const MaxKeyLength = 1024

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidateKey validates an object key for security issues.
// Returns an error if the key is empty, exceeds the maximum length,
// is an absolute path, or contains traversal sequences, null bytes or
// control characters.
func ValidateKey(key string) error {
	if key == "" {
		return &ValidationError{Field: "key", Message: "key cannot be empty"}
	}
	if len(key) > MaxKeyLength {
		return &ValidationError{
			Field:   "key",
			Message: fmt.Sprintf("key length exceeds maximum of %d bytes", MaxKeyLength),
		}
	}
	if strings.HasPrefix(key, "/") || (len(key) >= 2 && key[1] == ':') {
		return &ValidationError{Field: "key", Message: "key cannot be an absolute path"}
	}
	if strings.Contains(key, "..") {
		return &ValidationError{Field: "key", Message: "key cannot contain path traversal sequences (..)"}
	}
	if strings.ContainsAny(key, "\x00\n\r\t") {
		return &ValidationError{Field: "key", Message: "key contains invalid characters"}
	}
	return nil
}
