package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient implements Client against the dashboard's generation API.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
// If hc is nil a client with a 30s timeout is used.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		http: hc,
	}
}

// Submit implements Client.
func (c *HTTPClient) Submit(ctx context.Context, kind string, req SubmitRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/generate/%s", c.base, kind)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &HTTPError{StatusCode: http.StatusOK, Message: "submit returned no job id", Endpoint: endpoint}
	}
	return resp.ID, nil
}

// Status implements Client.
func (c *HTTPClient) Status(ctx context.Context, id string) (JobStatus, error) {
	endpoint := fmt.Sprintf("%s/generate/status/%s", c.base, id)

	var st JobStatus
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &st); err != nil {
		return JobStatus{}, err
	}
	return st, nil
}

// Cancel implements Client.
func (c *HTTPClient) Cancel(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/tasks/%s", c.base, id)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// do issues one request and decodes a JSON response into out (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
			Endpoint:   endpoint,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// errorMessage extracts the service's error field from a failure body,
// falling back to the raw text.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "request failed"
	}

	var payload struct {
		Error        string `json:"error"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.ErrorMessage != "" {
			return payload.ErrorMessage
		}
	}
	return strings.TrimSpace(string(raw))
}
