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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/memory"
)

func newTestServer(t *testing.T, store ledger.Store, storage common.Storage) *Server {
	t.Helper()
	handler := NewHandler(store, storage, "my-bucket", time.Hour, time.Hour, nil)
	return NewServer(handler, DefaultServerConfig(), prometheus.NewRegistry())
}

func seedRecords(t *testing.T, store ledger.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	for i, size := range []int64{19, 47, 28} {
		require.NoError(t, store.Append(ctx, &common.SizeRecord{
			BucketKey:   "my-bucket",
			Timestamp:   now.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano),
			TotalSize:   size,
			ObjectCount: int64(i + 1),
		}))
	}
}

func TestPlotEndpoint(t *testing.T) {
	store := ledger.NewMemoryStore()
	storage := memory.New()
	seedRecords(t, store)

	server := newTestServer(t, store, storage)
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/plot", nil)
	server.Engine().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp PlotResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "Plot generated successfully", resp.Message)
	assert.True(t, strings.HasPrefix(resp.PlotURL, "memory://plots/"), "plotUrl = %q", resp.PlotURL)

	// The rendered artifact was stored under the plots/ prefix.
	objects, err := common.ListAll(context.Background(), storage, "plots/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.True(t, strings.HasSuffix(objects[0].Key, ".svg"))
}

func TestPlotEndpointEmptyHistory(t *testing.T) {
	server := newTestServer(t, ledger.NewMemoryStore(), memory.New())
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/plot", nil)
	server.Engine().ServeHTTP(recorder, req)

	// No history renders an empty chart, not an error.
	assert.Equal(t, http.StatusOK, recorder.Code)
}

type failingLedger struct {
	ledger.Store
}

func (f *failingLedger) QueryRecent(ctx context.Context, bucketKey, since string) ([]*common.SizeRecord, error) {
	return nil, assert.AnError
}

func TestPlotEndpointLedgerFailure(t *testing.T) {
	server := newTestServer(t, &failingLedger{Store: ledger.NewMemoryStore()}, memory.New())
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/plot", nil)
	server.Engine().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotEmpty(t, resp.Error)
}

type uploadFailingStorage struct {
	*memory.Memory
}

func (f *uploadFailingStorage) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	return assert.AnError
}

func TestPlotEndpointUploadFailure(t *testing.T) {
	store := ledger.NewMemoryStore()
	seedRecords(t, store)

	server := newTestServer(t, store, &uploadFailingStorage{Memory: memory.New()})
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/plot", nil)
	server.Engine().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, ledger.NewMemoryStore(), memory.New())
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Engine().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, ledger.NewMemoryStore(), memory.New())
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	server.Engine().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}
