// Package transport is the authenticated request/response channel between a
// replica and the Authority.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/driftsync/driftsync/pkg/api"
)

//go:generate moq -out client_mock.go . Client

// Client is the wire boundary the reconciler talks through.
type Client interface {
	// Sync ships a batch of operations plus the current cursor and returns
	// the Authority's response.
	Sync(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error)
}

// StatusError is returned for non-2xx responses so callers can distinguish
// a rejected request from a network failure.
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// Retryable reports whether the request may succeed on a later attempt.
// Client errors are permanent, except throttling and request timeout.
func (e *StatusError) Retryable() bool {
	if e.Code >= 500 {
		return true
	}
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// HTTPClient implements Client over HTTP with bearer-token auth.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a transport client for the given server URL. The
// token authenticates the replica's tenant; obtaining it is the caller's
// concern.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Sync performs POST /api/v1/sync.
func (c *HTTPClient) Sync(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync", req, &resp); err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	return &resp, nil
}

// doRequest performs a JSON request/response round trip.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			statusErr.Message = errResp.Error
		}
		return statusErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
