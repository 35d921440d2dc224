package repositories

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edplatform/upload-manager/internal/config"
)

func dispatchConfig(baseURL string) config.DispatchConfig {
	return config.DispatchConfig{
		BaseURL:      baseURL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		ServiceToken: "svc-token",
	}
}

func TestHTTPDispatcherEnqueue(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(dispatchConfig(srv.URL))
	err := d.Enqueue(context.Background(), "process-pdf", map[string]any{"fileId": "FILE_x"})
	require.NoError(t, err)

	assert.Equal(t, "/process-pdf", gotPath)
	assert.Equal(t, "Bearer svc-token", gotAuth)
	assert.Equal(t, "FILE_x", gotBody["fileId"])
}

func TestHTTPDispatcherRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(dispatchConfig(srv.URL))
	err := d.Enqueue(context.Background(), "process-image", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPDispatcherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(dispatchConfig(srv.URL))
	err := d.Enqueue(context.Background(), "process-csv", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPDispatcherGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(dispatchConfig(srv.URL))
	err := d.Enqueue(context.Background(), "process-video", map[string]any{})
	require.Error(t, err)
	// Initial attempt plus MaxRetries.
	assert.Equal(t, int32(3), calls.Load())
}
