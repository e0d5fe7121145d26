package genapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHTTPClient_Submit verifies request shape and job ID extraction.
func TestHTTPClient_Submit(t *testing.T) {
	var gotPath string
	var gotReq SubmitRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]string{"id": "gen-42"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil)
	id, err := c.Submit(context.Background(), "image", SubmitRequest{
		Model:  "flux-schnell",
		Prompt: "a cat",
		Size:   "1024x1024",
	})

	require.NoError(t, err)
	assert.Equal(t, "gen-42", id)
	assert.Equal(t, "/generate/image", gotPath)
	assert.Equal(t, "flux-schnell", gotReq.Model)
	assert.Equal(t, "a cat", gotReq.Prompt)
}

// TestHTTPClient_Submit_MissingID rejects empty job handles.
func TestHTTPClient_Submit_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, nil).Submit(context.Background(), "image", SubmitRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job id")
}

// TestHTTPClient_Status decodes a poll response.
func TestHTTPClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate/status/gen-42", r.URL.Path)
		json.NewEncoder(w).Encode(JobStatus{
			State:      StateProcessing,
			Progress:   60,
			OutputType: "image/png",
		})
	}))
	defer srv.Close()

	st, err := NewHTTPClient(srv.URL, nil).Status(context.Background(), "gen-42")
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, st.State)
	assert.Equal(t, 60, st.Progress)
}

// TestHTTPClient_Status_HTTPError surfaces the service's error body as
// a typed HTTPError.
func TestHTTPClient_Status_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "maintenance window"})
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, nil).Status(context.Background(), "gen-42")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.StatusCode)
	assert.Equal(t, "maintenance window", httpErr.Message)
	assert.True(t, IsTransient(err))
}

// TestHTTPClient_Cancel hits the task deletion endpoint.
func TestHTTPClient_Cancel(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewHTTPClient(srv.URL, nil).Cancel(context.Background(), "gen-42"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/tasks/gen-42", gotPath)
}

// TestHTTPClient_ContextCancellation verifies cancellation is not
// classified as retryable.
func TestHTTPClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(srv.URL, nil).Status(ctx, "gen-1")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}
