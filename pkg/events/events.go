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

// Package events decodes queue message bodies into mutation notifications.
//
// Messages arrive as an SQS body carrying an SNS envelope whose Message
// field is the storage event JSON; with raw message delivery enabled the
// body is the storage event itself. Both shapes are accepted.
package events

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// storageEventSource is the eventSource value for bucket notifications.
const storageEventSource = "aws:s3"

// snsEnvelope is the SNS fan-out wrapper around the storage event.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// storageEvent is the bucket notification payload.
type storageEvent struct {
	Records []storageEventRecord `json:"Records"`
}

type storageEventRecord struct {
	EventSource string `json:"eventSource"`
	EventName   string `json:"eventName"`
	S3          struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size int64  `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// Decode parses a queue message body into mutation notifications.
// Records from other event sources or with unrecognized event names are
// skipped, not errors; a body that is not a storage event at all is an
// error for the caller's batch-failure policy to handle.
func Decode(body string) ([]common.MutationNotification, error) {
	payload := body

	// Unwrap the SNS envelope when present.
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		payload = envelope.Message
	}

	var event storageEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("decode storage event: %w", err)
	}
	if event.Records == nil {
		return nil, fmt.Errorf("decode storage event: no records in message body")
	}

	notifications := make([]common.MutationNotification, 0, len(event.Records))
	for _, record := range event.Records {
		if record.EventSource != storageEventSource {
			continue
		}

		kind, ok := eventKind(record.EventName)
		if !ok {
			continue
		}

		notification := common.MutationNotification{
			BucketKey: record.S3.Bucket.Name,
			ObjectKey: decodeObjectKey(record.S3.Object.Key),
			Kind:      kind,
		}
		if kind == common.EventCreated {
			notification.SizeBytes = record.S3.Object.Size
		}
		notifications = append(notifications, notification)
	}

	return notifications, nil
}

// eventKind maps storage event names to mutation kinds.
// Event names look like "ObjectCreated:Put" or "ObjectRemoved:Delete".
func eventKind(eventName string) (common.EventKind, bool) {
	switch {
	case strings.HasPrefix(eventName, "ObjectCreated"):
		return common.EventCreated, true
	case strings.HasPrefix(eventName, "ObjectRemoved"):
		return common.EventRemoved, true
	default:
		return "", false
	}
}

// decodeObjectKey reverses the URL encoding applied to object keys in
// bucket notifications (spaces arrive as '+').
func decodeObjectKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}
