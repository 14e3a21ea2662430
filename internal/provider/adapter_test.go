package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
)

func TestCreateSubmitsRequestAndDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-5", body.Model)

		_ = json.NewEncoder(w).Encode(ProviderResponse{ID: "resp_1", Status: "queued"})
	}))
	defer server.Close()

	adapter := NewAdapter("test-key", server.URL)
	resp, err := adapter.Create(context.Background(), CreateRequest{Model: "gpt-5", Input: []InputItem{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "resp_1", resp.ID)
	assert.Equal(t, "queued", resp.Status)
}

func TestRetrieveReturnsTerminalResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses/resp_1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(ProviderResponse{ID: "resp_1", Status: "completed"})
	}))
	defer server.Close()

	adapter := NewAdapter("test-key", server.URL)
	resp, err := adapter.Retrieve(context.Background(), "resp_1")
	require.NoError(t, err)
	assert.True(t, Terminal(resp.Status))
}

func TestCreateRejectedErrorIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "invalid model"}})
	}))
	defer server.Close()

	adapter := NewAdapter("test-key", server.URL)
	_, err := adapter.Create(context.Background(), CreateRequest{Model: "bad-model"})
	require.Error(t, err)
	assert.Equal(t, gwerrors.KindProviderRejected, gwerrors.KindOf(err))
	assert.Equal(t, 1, calls)
}

func TestMissingAPIKeyIsProviderUnavailable(t *testing.T) {
	adapter := NewAdapter("", "http://localhost")
	_, err := adapter.Create(context.Background(), CreateRequest{Model: "gpt-5"})
	require.Error(t, err)
	assert.Equal(t, gwerrors.KindProviderUnavailable, gwerrors.KindOf(err))
}
