package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// workspaceHandler is a minimal in-memory workspace API for client tests.
func workspaceHandler() http.Handler {
	var mu sync.Mutex
	docs := make(map[string][]byte)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/workspaces/"):]
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			data, ok := docs[id]
			if !ok {
				http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
				return
			}
			w.Write(data)
		case http.MethodPatch:
			var doc mediaflow.Document
			if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
				http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
				return
			}
			data, _ := json.Marshal(&doc)
			docs[id] = data
			w.Write([]byte(`{"message":"saved"}`))
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// TestRemoteStore_RoundTrip saves and reloads through the HTTP API.
func TestRemoteStore_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(workspaceHandler())
	defer srv.Close()

	roundTrip(t, NewRemoteStore(srv.URL, nil))
}

// TestRemoteStore_NotFound maps 404 to the sentinel.
func TestRemoteStore_NotFound(t *testing.T) {
	srv := httptest.NewServer(workspaceHandler())
	defer srv.Close()

	_, err := NewRemoteStore(srv.URL, nil).Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestRemoteStore_ServerError surfaces non-2xx saves as errors.
func TestRemoteStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, nil)
	err := s.Save(context.Background(), "ws-1", sampleDocument(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

// TestRemoteStore_UsesPatchForSave verifies the save verb matches the
// dashboard API contract.
func TestRemoteStore_UsesPatchForSave(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, NewRemoteStore(srv.URL, nil).Save(context.Background(), "ws-1", sampleDocument(t)))
	assert.Equal(t, http.MethodPatch, gotMethod)
}
