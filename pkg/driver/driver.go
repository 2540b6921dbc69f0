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

// Package driver exercises the deployed pipeline end to end: it uploads a
// sequence of objects sized around the alarm threshold, waits for the
// fan-out, alarm and eviction to run, and finally calls the plot endpoint.
package driver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// The three probe objects. A alone stays under the default 20-byte
// threshold; A+B crosses it, so B (the larger) should be evicted; C then
// crosses it again, evicting A.
const (
	objectAKey  = "sample-a.txt"
	objectASize = 19

	objectBKey  = "sample-b.txt"
	objectBSize = 28

	objectCKey  = "sample-c.txt"
	objectCSize = 2
)

// DefaultProcessingWait is the pause after an upload for fan-out and
// aggregation to settle.
const DefaultProcessingWait = 10 * time.Second

// DefaultEvictionWait is the pause for the alarm to evaluate and the
// evictor to run.
const DefaultEvictionWait = 30 * time.Second

// Driver runs the probe sequence.
type Driver struct {
	storage        common.Storage
	plotURL        string
	processingWait time.Duration
	evictionWait   time.Duration
	httpClient     *http.Client
	logger         adapters.Logger
}

// New creates a Driver. plotURL may be empty to skip the final plot call.
func New(storage common.Storage, plotURL string, processingWait, evictionWait time.Duration, logger adapters.Logger) *Driver {
	if processingWait <= 0 {
		processingWait = DefaultProcessingWait
	}
	if evictionWait <= 0 {
		evictionWait = DefaultEvictionWait
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Driver{
		storage:        storage,
		plotURL:        plotURL,
		processingWait: processingWait,
		evictionWait:   evictionWait,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
	}
}

// Run executes the probe sequence. Eviction outcomes are observed and
// logged, not asserted: the driver reports what happened, the pipeline's
// own tests assert behavior.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.put(ctx, objectAKey, objectASize); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.processingWait); err != nil {
		return err
	}

	if err := d.put(ctx, objectBKey, objectBSize); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.evictionWait); err != nil {
		return err
	}
	d.observe(ctx, objectBKey)

	if err := d.put(ctx, objectCKey, objectCSize); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.evictionWait); err != nil {
		return err
	}
	d.observe(ctx, objectAKey)

	if d.plotURL == "" {
		return nil
	}
	return d.callPlot(ctx)
}

func (d *Driver) put(ctx context.Context, key string, size int) error {
	content := strings.Repeat("x", size)
	if err := d.storage.PutWithContext(ctx, key, strings.NewReader(content)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	d.logger.Info(ctx, "created probe object",
		adapters.F("object_key", key),
		adapters.F("size", size))
	return nil
}

func (d *Driver) observe(ctx context.Context, key string) {
	exists, err := d.storage.Exists(ctx, key)
	switch {
	case err != nil:
		d.logger.Warn(ctx, "could not check probe object",
			adapters.F("object_key", key),
			adapters.F("error", err.Error()))
	case exists:
		d.logger.Info(ctx, "probe object still present, eviction may not have run",
			adapters.F("object_key", key))
	default:
		d.logger.Info(ctx, "probe object was evicted as expected",
			adapters.F("object_key", key))
	}
}

func (d *Driver) callPlot(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.plotURL, nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call plot endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	d.logger.Info(ctx, "plot endpoint response",
		adapters.F("status", resp.StatusCode),
		adapters.F("body", string(body)))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plot endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Driver) sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
