package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshops/api/internal/model"
)

func optimizeReq() *model.OptimizeRequest {
	return &model.OptimizeRequest{
		Orders:     []model.Order{{ID: 1, WeightKg: 120}},
		Vehicles:   []model.Vehicle{{ID: 10, CapacityKg: 1000}},
		Parameters: model.DefaultOptimizeParams(),
	}
}

func TestOptimizeStructuredRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.OptimizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Orders, 1)

		json.NewEncoder(w).Encode(model.OptimizeResponse{
			Routes:  map[int][]int{10: {1}},
			Metrics: &model.TheoreticalMetrics{DistanceKm: 42.5, DurationMin: 96},
		})
	}))
	defer srv.Close()

	client := NewOptimizerClient(srv.URL, 5*time.Second)
	resp, err := client.Optimize(context.Background(), optimizeReq())
	require.NoError(t, err)

	assert.False(t, resp.Simulation)
	assert.Equal(t, []int{1}, resp.Routes[10])
	require.NotNil(t, resp.Metrics)
	assert.Equal(t, 42.5, resp.Metrics.DistanceKm)
}

func TestOptimizeSimulationResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"simulation": true}`))
	}))
	defer srv.Close()

	client := NewOptimizerClient(srv.URL, 5*time.Second)
	resp, err := client.Optimize(context.Background(), optimizeReq())
	require.NoError(t, err)
	assert.True(t, resp.Simulation)
	assert.Empty(t, resp.Routes)
}

func TestOptimizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewOptimizerClient(srv.URL, 5*time.Second)
	_, err := client.Optimize(context.Background(), optimizeReq())
	assert.ErrorContains(t, err, "status 502")
}

func TestOptimizeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewOptimizerClient(srv.URL, 50*time.Millisecond)
	_, err := client.Optimize(context.Background(), optimizeReq())
	assert.Error(t, err)
}

func TestOptimizeMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewOptimizerClient(srv.URL, 5*time.Second)
	_, err := client.Optimize(context.Background(), optimizeReq())
	assert.ErrorContains(t, err, "decode response")
}
