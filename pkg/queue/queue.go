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

// Package queue abstracts the durable message queues feeding the pipeline
// consumers. Delivery is at-least-once: a message stays eligible for
// redelivery until it is acked.
package queue

import "context"

// Message is one delivered queue message.
type Message struct {
	// ID identifies the message for logging.
	ID string

	// Body is the raw message payload.
	Body string

	// ReceiptHandle is the delivery-specific token required to ack.
	ReceiptHandle string
}

// Consumer receives messages from one durable queue.
type Consumer interface {
	// Receive returns up to max messages, blocking up to the backend's
	// poll interval. An empty slice with a nil error means no messages
	// were available.
	Receive(ctx context.Context, max int) ([]Message, error)

	// Ack acknowledges a message so it is not redelivered. Only acked
	// messages are considered processed.
	Ack(ctx context.Context, msg Message) error
}
