package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/whalewatch/internal/ratelimit"
)

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/thing", r.URL.Path)
		assert.Equal(t, "btc", r.URL.Query().Get("asset"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"name": "whale", "size": 42}`))
	}))
	defer server.Close()

	c := New("test", server.URL+"/", time.Second, ratelimit.New(100))

	var out struct {
		Name string `json:"name"`
		Size int    `json:"size"`
	}
	err := c.GetJSON(context.Background(), "thing", "/v1/thing", url.Values{"asset": {"btc"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "whale", out.Name)
	assert.Equal(t, 42, out.Size)
	assert.Equal(t, "test", c.Name())
}

func TestGetJSONStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New("test", server.URL, time.Second, nil)
	var out map[string]any
	err := c.GetJSON(context.Background(), "thing", "/", nil, &out)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "slow down", statusErr.Body)
}

func TestGetJSONDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	var out map[string]any
	err := New("test", server.URL, time.Second, nil).GetJSON(context.Background(), "thing", "/", nil, &out)
	assert.ErrorContains(t, err, "decode thing response")
}

func TestGetJSONCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := ratelimit.New(1)
	require.NoError(t, l.Wait(context.Background()))

	var out map[string]any
	err := New("test", "http://127.0.0.1:0", time.Second, l).GetJSON(ctx, "thing", "/", nil, &out)
	assert.ErrorIs(t, err, context.Canceled)
}
