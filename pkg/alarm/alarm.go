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

// Package alarm implements the edge-triggered threshold evaluator over the
// cumulative size-delta metric stream.
//
// The evaluator is a two-state machine. The eviction side effect fires
// exactly on the OK to ALARM transition, never again while the state is
// held: the evictor depends on this edge-triggered contract to avoid
// deleting one object per evaluation period.
package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/metrics"
)

// State is the alarm state.
type State string

const (
	// StateOK means the windowed sum is at or below the threshold.
	StateOK State = "OK"

	// StateAlarm means the windowed sum exceeded the threshold.
	StateAlarm State = "ALARM"
)

// DefaultThresholdBytes is the default alarm threshold.
const DefaultThresholdBytes = 20

// DefaultWindow is the default evaluation window.
const DefaultWindow = time.Minute

// TriggerFunc is invoked, fire-and-forget, on the OK to ALARM transition.
// Its outcome does not influence the state machine.
type TriggerFunc func(ctx context.Context)

// Evaluator watches the metric stream and drives the state machine.
type Evaluator struct {
	source    metrics.Source
	threshold int64
	window    time.Duration
	onAlarm   TriggerFunc
	logger    adapters.Logger

	mu    sync.Mutex
	state State
}

// New creates an Evaluator in the OK state. threshold <= 0 and window <= 0
// fall back to the defaults.
func New(source metrics.Source, threshold int64, window time.Duration, onAlarm TriggerFunc, logger adapters.Logger) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultThresholdBytes
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Evaluator{
		source:    source,
		threshold: threshold,
		window:    window,
		onAlarm:   onAlarm,
		logger:    logger,
		state:     StateOK,
	}
}

// State returns the current alarm state.
func (e *Evaluator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Evaluate performs one evaluation: read the windowed sum and apply the
// transition rules. The trigger fires only on OK to ALARM; remaining in
// ALARM across evaluations fires nothing.
func (e *Evaluator) Evaluate(ctx context.Context) error {
	sum, err := e.source.WindowSum(ctx, e.window)
	if err != nil {
		return err
	}

	e.mu.Lock()
	previous := e.state
	if sum > e.threshold {
		e.state = StateAlarm
	} else {
		e.state = StateOK
	}
	current := e.state
	e.mu.Unlock()

	if previous == current {
		return nil
	}

	e.logger.Info(ctx, "alarm state transition",
		adapters.F("from", string(previous)),
		adapters.F("to", string(current)),
		adapters.F("window_sum", sum),
		adapters.F("threshold", e.threshold))

	if previous == StateOK && current == StateAlarm && e.onAlarm != nil {
		e.onAlarm(ctx)
	}
	return nil
}

// Run evaluates on a fixed interval until the context is cancelled.
// Evaluation errors are logged and the loop continues; a broken metric
// source must not kill the alarm.
func (e *Evaluator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = e.window
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Evaluate(ctx); err != nil {
				e.logger.Error(ctx, "alarm evaluation failed",
					adapters.F("error", err.Error()))
			}
		}
	}
}
