package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"freshops/api/internal/model"
)

// OptimizerClient calls the external route optimization service.
// The service is a black box: it either returns structured routes with
// theoretical metrics, or {"simulation": true} telling us to fall back
// to the local heuristic.
type OptimizerClient struct {
	url        string
	httpClient *http.Client
}

// NewOptimizerClient creates an optimizer client with a hard request timeout.
func NewOptimizerClient(url string, timeout time.Duration) *OptimizerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OptimizerClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Optimize submits orders, vehicles and parameters and returns the service response.
// Transport errors, non-2xx statuses and malformed bodies are returned as errors;
// the caller decides whether to fall back.
func (c *OptimizerClient) Optimize(ctx context.Context, req *model.OptimizeRequest) (*model.OptimizeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("optimizer: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("optimizer: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("optimizer: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("optimizer: unexpected status %d", resp.StatusCode)
	}

	var out model.OptimizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("optimizer: decode response: %w", err)
	}

	return &out, nil
}
