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

package rest

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/plot"
	"github.com/jeremyhahn/go-bucketwatch/pkg/version"
)

const (
	// DefaultLookback is the history window queried for the plot.
	DefaultLookback = 10 * time.Second

	// DefaultURLTTL is the lifetime of the returned signed link.
	DefaultURLTTL = time.Hour

	// plotKeyPrefix namespaces rendered artifacts inside the bucket.
	plotKeyPrefix = "plots/"
)

// Handler serves the visualization endpoint.
type Handler struct {
	ledger   ledger.Ledger
	storage  common.Storage
	bucket   string
	lookback time.Duration
	urlTTL   time.Duration
	logger   adapters.Logger
	now      func() time.Time
}

// NewHandler creates a visualization handler. lookback and urlTTL <= 0
// fall back to the defaults.
func NewHandler(l ledger.Ledger, storage common.Storage, bucket string, lookback, urlTTL time.Duration, logger adapters.Logger) *Handler {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Handler{
		ledger:   l,
		storage:  storage,
		bucket:   bucket,
		lookback: lookback,
		urlTTL:   urlTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Plot handles GET /plot: query the recent size history and the historical
// maximum, render a chart, upload it to the bucket and return a
// time-limited signed link.
func (h *Handler) Plot(c *gin.Context) {
	ctx := c.Request.Context()

	since := h.now().Add(-h.lookback).UTC().Format(time.RFC3339Nano)
	records, err := h.ledger.QueryRecent(ctx, h.bucket, since)
	if err != nil {
		h.logger.Error(ctx, "failed to query size history", adapters.F("error", err.Error()))
		RespondWithError(c, http.StatusInternalServerError, "failed to query size history")
		return
	}

	maxSize, err := h.ledger.QueryMax(ctx, h.bucket)
	if err != nil {
		h.logger.Error(ctx, "failed to query max size", adapters.F("error", err.Error()))
		RespondWithError(c, http.StatusInternalServerError, "failed to query max size")
		return
	}

	rendered := plot.Render(records, maxSize)
	key := plotKeyPrefix + uuid.NewString() + ".svg"

	if err := h.storage.PutWithContext(ctx, key, bytes.NewReader(rendered)); err != nil {
		h.logger.Error(ctx, "failed to upload plot", adapters.F("error", err.Error()))
		RespondWithError(c, http.StatusInternalServerError, "failed to upload plot")
		return
	}

	url, err := h.storage.SignedURL(ctx, key, h.urlTTL)
	if err != nil {
		h.logger.Error(ctx, "failed to sign plot URL", adapters.F("error", err.Error()))
		RespondWithError(c, http.StatusInternalServerError, "failed to sign plot URL")
		return
	}

	h.logger.Info(ctx, "plot generated",
		adapters.F("key", key),
		adapters.F("records", len(records)),
		adapters.F("max_size", maxSize))

	c.JSON(http.StatusOK, PlotResponse{
		Message: "Plot generated successfully",
		PlotURL: url,
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: version.Version})
}
