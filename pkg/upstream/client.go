package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// Client performs HTTP requests against the configured Chat Completions
// backend. One Client is shared across all in-flight requests; it holds no
// per-request mutable state.
type Client struct {
	httpClient       *http.Client
	streamHTTPClient *http.Client
	baseURL          string
	apiKey           string
}

// New creates a Client for the backend at baseURL.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		// Streaming requests are not subject to a fixed timeout: their
		// lifetime is governed by the request context instead.
		streamHTTPClient: &http.Client{},
		baseURL:          baseURL,
		apiKey:           apiKey,
	}
}

// Stream sends req to the backend with stream=true and returns the raw HTTP
// response for the caller to read as an SSE body via pkg/sse. The caller
// must close resp.Body.
func (c *Client) Stream(ctx context.Context, req *ChatCompletionRequest) (*http.Response, *api.APIError) {
	reqCopy := *req
	reqCopy.Stream = true
	if reqCopy.StreamOptions == nil {
		reqCopy.StreamOptions = &ChatStreamOptions{IncludeUsage: true}
	}

	httpResp, apiErr := c.do(ctx, c.streamHTTPClient, &reqCopy, "text/event-stream")
	if apiErr != nil {
		return nil, apiErr
	}
	return httpResp, nil
}

// Complete sends req to the backend with stream=false and returns the parsed
// response.
func (c *Client) Complete(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, *api.APIError) {
	reqCopy := *req
	reqCopy.Stream = false

	httpResp, apiErr := c.do(ctx, c.httpClient, &reqCopy, "application/json")
	if apiErr != nil {
		return nil, apiErr
	}
	defer httpResp.Body.Close()

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}
	return &chatResp, nil
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, req *ChatCompletionRequest, accept string) (*http.Response, *api.APIError) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}

	return httpResp, nil
}

// ListModels queries the backend's /v1/models endpoint.
func (c *Client) ListModels(ctx context.Context) ([]ChatModel, error) {
	url := c.baseURL + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating models request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("backend returned status %d listing models", httpResp.StatusCode)
	}

	var modelsResp ChatModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("parsing models response: %w", err)
	}
	return modelsResp.Data, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.streamHTTPClient.CloseIdleConnections()
	return nil
}
