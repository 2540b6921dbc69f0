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

// Package pipeline polls a queue consumer, decodes mutation notifications
// and dispatches them to a handler, acking only what was processed.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/events"
	"github.com/jeremyhahn/go-bucketwatch/pkg/observability"
	"github.com/jeremyhahn/go-bucketwatch/pkg/queue"
)

// Handler processes one decoded batch of mutation notifications.
type Handler interface {
	HandleBatch(ctx context.Context, batch []common.MutationNotification) error
}

// ErrorPolicy selects what happens to a message whose processing failed.
type ErrorPolicy string

const (
	// PolicyContinue acks the failed message after logging it. The record
	// is dropped; throughput is preserved.
	PolicyContinue ErrorPolicy = "continue"

	// PolicyFail leaves the failed message unacked so the queue redelivers
	// it. Duplicated side effects from the successful part of the batch
	// are tolerated by the consumers' idempotence.
	PolicyFail ErrorPolicy = "fail"
)

// DefaultBatchSize is the per-poll receive size.
const DefaultBatchSize = 10

// DefaultIdleWait is the pause between polls that acked nothing. The SQS
// consumer long-polls; the in-memory queue returns immediately, so without
// a pause an idle Run would spin.
const DefaultIdleWait = time.Second

// Runner connects one queue to one handler.
type Runner struct {
	name      string
	consumer  queue.Consumer
	handler   Handler
	policy    ErrorPolicy
	batchSize int
	idleWait  time.Duration
	logger    adapters.Logger
	metrics   *observability.PipelineMetrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithErrorPolicy sets the batch-failure policy.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(r *Runner) { r.policy = policy }
}

// WithBatchSize sets the per-poll receive size.
func WithBatchSize(n int) Option {
	return func(r *Runner) { r.batchSize = n }
}

// WithIdleWait sets the pause between polls that acked nothing.
func WithIdleWait(d time.Duration) Option {
	return func(r *Runner) { r.idleWait = d }
}

// WithMetrics attaches process counters.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a Runner. name labels log lines and metrics.
func NewRunner(name string, consumer queue.Consumer, handler Handler, logger adapters.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	r := &Runner{
		name:      name,
		consumer:  consumer,
		handler:   handler,
		policy:    PolicyFail,
		batchSize: DefaultBatchSize,
		idleWait:  DefaultIdleWait,
		logger:    logger.WithFields(adapters.F("consumer", name)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until the context is cancelled. Receive errors are logged and
// polling continues. Polls that ack nothing, including failed polls, wait
// idleWait before the next receive.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		acked, err := r.ProcessOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error(ctx, "poll failed", adapters.F("error", err.Error()))
		}

		if acked == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.idleWait):
			}
		}
	}
}

// ProcessOnce performs a single poll cycle and returns the number of
// messages acked.
func (r *Runner) ProcessOnce(ctx context.Context) (int, error) {
	messages, err := r.consumer.Receive(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("receive: %w", err)
	}

	acked := 0
	for _, msg := range messages {
		if r.processMessage(ctx, msg) {
			if err := r.consumer.Ack(ctx, msg); err != nil {
				// The work is done; redelivery will be absorbed by the
				// handlers' idempotence.
				r.logger.Error(ctx, "ack failed",
					adapters.F("message_id", msg.ID),
					adapters.F("error", err.Error()))
				continue
			}
			acked++
		}
	}
	return acked, nil
}

// processMessage returns whether the message should be acked.
func (r *Runner) processMessage(ctx context.Context, msg queue.Message) bool {
	batch, err := events.Decode(msg.Body)
	if err != nil {
		// An undecodable body never becomes decodable; redelivering it
		// would poison the queue. Drop it regardless of policy.
		r.logger.Warn(ctx, "dropping undecodable message",
			adapters.F("message_id", msg.ID),
			adapters.F("error", err.Error()))
		r.count(func(m *observability.PipelineMetrics) {
			m.MessagesSkipped.WithLabelValues(r.name).Inc()
		})
		return true
	}

	if err := r.handler.HandleBatch(ctx, batch); err != nil {
		r.logger.Error(ctx, "handler failed",
			adapters.F("message_id", msg.ID),
			adapters.F("policy", string(r.policy)),
			adapters.F("error", err.Error()))
		r.count(func(m *observability.PipelineMetrics) {
			m.MessagesFailed.WithLabelValues(r.name).Inc()
		})
		return r.policy == PolicyContinue
	}

	r.count(func(m *observability.PipelineMetrics) {
		m.MessagesProcessed.WithLabelValues(r.name).Inc()
	})
	return true
}

func (r *Runner) count(fn func(*observability.PipelineMetrics)) {
	if r.metrics != nil {
		fn(r.metrics)
	}
}
