package httpaction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_GetRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("X-Custom", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	fn := New(nil)
	result, err := fn(context.Background(), map[string]any{
		"url":     srv.URL,
		"headers": map[string]any{"Authorization": "Bearer tok"},
	})
	require.NoError(t, err)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, out["status_code"])
	assert.Equal(t, `{"ok":true}`, out["body"])
}

func TestNew_PostRequestWithBody(t *testing.T) {
	var receivedMethod string
	var receivedBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		receivedBody = string(buf)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	fn := New(srv.Client())
	result, err := fn(context.Background(), map[string]any{
		"url":    srv.URL,
		"method": "post",
		"body":   `{"name":"rome"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", receivedMethod)
	assert.Equal(t, `{"name":"rome"}`, receivedBody)

	out := result.(map[string]any)
	assert.Equal(t, http.StatusCreated, out["status_code"])
}

func TestNew_MissingURLErrors(t *testing.T) {
	fn := New(nil)
	_, err := fn(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestNew_UnsupportedMethodErrors(t *testing.T) {
	fn := New(nil)
	_, err := fn(context.Background(), map[string]any{"url": "http://example.com", "method": "DELETE"})
	assert.Error(t, err)
}
