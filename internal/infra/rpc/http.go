package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vietddude/epicmint/internal/metrics"
)

// HTTPClient implements Client for JSON-RPC 2.0 over HTTP.
type HTTPClient struct {
	name       string
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewHTTPClient creates a new HTTP-based JSON-RPC client.
func NewHTTPClient(name, endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the client identifier used in metrics.
func (c *HTTPClient) Name() string {
	return c.name
}

// Call makes a single JSON-RPC call.
func (c *HTTPClient) Call(ctx context.Context, method string, params []any) (any, error) {
	start := time.Now()
	metrics.RPCCallsTotal.WithLabelValues(c.name, method).Inc()

	if params == nil {
		params = []any{}
	}
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      c.nextID.Add(1),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		c.recordFailure(method, "marshal")
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		c.recordFailure(method, "request")
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(method, "transport")
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure(method, "read")
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(method, "http")
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result any    `json:"result"`
		Error  *Error `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		c.recordFailure(method, "parse")
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if rpcResp.Error != nil {
		c.recordFailure(method, "rpc")
		return nil, rpcResp.Error
	}

	metrics.RPCLatency.WithLabelValues(c.name, method).Observe(time.Since(start).Seconds())
	return rpcResp.Result, nil
}

func (c *HTTPClient) recordFailure(method, errType string) {
	metrics.RPCErrorsTotal.WithLabelValues(c.name, method, errType).Inc()
}
