package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// RemoteStore persists workspaces through the dashboard's HTTP API:
// GET /workspaces/{id} to load, PATCH /workspaces/{id} to save.
type RemoteStore struct {
	base string
	http *http.Client
}

// NewRemoteStore creates a store for the API at baseURL.
// If hc is nil a client with a 15s timeout is used.
func NewRemoteStore(baseURL string, hc *http.Client) *RemoteStore {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteStore{
		base: strings.TrimRight(baseURL, "/"),
		http: hc,
	}
}

// Load implements mediaflow.WorkspaceStore.
func (s *RemoteStore) Load(ctx context.Context, id string) (*mediaflow.Document, error) {
	endpoint := fmt.Sprintf("%s/workspaces/%s", s.base, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build load request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("load workspace %s: HTTP %d", id, resp.StatusCode)
	}

	var doc mediaflow.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	return &doc, nil
}

// Save implements mediaflow.WorkspaceStore.
func (s *RemoteStore) Save(ctx context.Context, id string, doc *mediaflow.Document) error {
	endpoint := fmt.Sprintf("%s/workspaces/%s", s.base, id)

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode workspace %s: %w", id, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("save workspace %s: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("save workspace %s: HTTP %d", id, resp.StatusCode)
	}
	return nil
}
