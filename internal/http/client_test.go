package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	var gotAuth, gotBody, gotQuery, gotPath, gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotQuery = r.URL.RawQuery
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL+"/api/"), WithHeader("Authorization", "Bearer x"), WithTimeout(time.Second))
	req := NewRequest("post", "/login").WithQueryParam("v", "2").WithBody(map[string]string{"user": "ada"})

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.False(t, resp.IsServerError())
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.Equal(t, "/api/login", gotPath)
	assert.Equal(t, "v=2", gotQuery)
	assert.Equal(t, "Bearer x", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"user":"ada"}`, gotBody)

	var body struct{ OK bool }
	require.NoError(t, resp.JSON(&body))
	assert.True(t, body.OK)

	assert.Positive(t, resp.Timing.TotalTime)
	assert.GreaterOrEqual(t, resp.Timing.TotalTime, resp.Timing.TimeToFirstByte)
}

func TestClient_ReusesConnections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	defer client.CloseIdleConnections()

	_, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/ping"))
	require.NoError(t, err)
	second, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/ping"))
	require.NoError(t, err)

	assert.True(t, second.Timing.ConnReused)
	assert.Equal(t, "pong", string(second.Body))
}

func TestClient_MaxBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxBodySize(10))
	resp, err := client.Do(context.Background(), NewRequest("", ""))
	require.NoError(t, err)
	assert.Len(t, resp.Body, 10)
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(WithBaseURL(server.URL)).Do(ctx, NewRequest(http.MethodGet, "/slow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequest_Build(t *testing.T) {
	req, err := NewRequest(http.MethodPut, "items/1").
		WithHeader("X-Trace", "abc").
		WithBody("raw").
		Build(context.Background(), "http://example.com")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/items/1", req.URL.String())
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "abc", req.Header.Get("X-Trace"))
	assert.Empty(t, req.Header.Get("Content-Type"))

	_, err = NewRequest(http.MethodGet, "/").Build(context.Background(), "://bad")
	assert.Error(t, err)
}
