package thinkclient

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

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

func TestThinkSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mcptypes.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tools/call", req.Method)

		toolResp := mcptypes.ToolResponse{Content: []mcptypes.ContentBlock{mcptypes.TextBlock("thought logged")}}
		result, err := json.Marshal(toolResp)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(mcptypes.Response{JSONRPC: "2.0", ID: req.ID, Result: result})
	}))
	defer server.Close()

	c := New(server.URL, time.Second, 2)
	resp, err := c.Think(context.Background(), "call_1", json.RawMessage(`{"thought":"hi"}`))
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "thought logged", resp.Content[0].Text)
}

func TestThinkJSONRPCRejectionIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req mcptypes.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(mcptypes.Response{
			JSONRPC: "2.0", ID: req.ID,
			Error: &mcptypes.Error{Code: mcptypes.ErrCodeInvalidParams, Message: "bad think arguments"},
		})
	}))
	defer server.Close()

	c := New(server.URL, time.Second, 3)
	_, err := c.Think(context.Background(), "call_1", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, gwerrors.KindThinkTool, gwerrors.KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestThinkTransportFailureRetriedUpToLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, time.Second, 2)
	_, err := c.Think(context.Background(), "call_1", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, gwerrors.KindThinkTool, gwerrors.KindOf(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestThinkContextCancelledMidRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, time.Second, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Think(ctx, "call_1", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, gwerrors.KindCancelled, gwerrors.KindOf(err))
}
