package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgateway/mcpgw/internal/observability"
	"github.com/mcpgateway/mcpgw/internal/session"
	"github.com/mcpgateway/mcpgw/internal/toolregistry"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

func newTestRouter(t *testing.T, requireSession bool) *Router {
	t.Helper()
	tools := toolregistry.New()
	tools.MustRegister(
		mcptypes.ToolSpec{Name: "echo", Description: "echo", InputSchema: json.RawMessage(`{}`)},
		func(ctx context.Context, sess session.Session, arguments json.RawMessage) mcptypes.ToolResponse {
			return mcptypes.ToolResponse{Content: []mcptypes.ContentBlock{mcptypes.TextBlock("hi")}}
		},
	)
	return &Router{
		Sessions: session.New(requireSession),
		Tools:    tools,
		Metrics:  observability.NewMetrics(prometheus.NewRegistry()),
	}
}

func rpcCall(t *testing.T, mux http.Handler, method string, params any) mcptypes.Response {
	t.Helper()
	var paramsJSON json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		paramsJSON = b
	}
	reqBody, err := json.Marshal(mcptypes.Request{JSONRPC: "2.0", ID: "1", Method: method, Params: paramsJSON})
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(reqBody))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httpReq)

	var resp mcptypes.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDispatchInitializeAllocatesSession(t *testing.T) {
	r := newTestRouter(t, true)
	mux := r.NewMux()

	resp := rpcCall(t, mux, "initialize", nil)
	require.Nil(t, resp.Error)

	var result initializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 1, r.Sessions.Len())
}

func TestDispatchToolsList(t *testing.T) {
	r := newTestRouter(t, false)
	mux := r.NewMux()

	resp := rpcCall(t, mux, "tools/list", nil)
	require.Nil(t, resp.Error)

	var result toolsListResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "echo", result.Tools[0].Name)
}

func TestDispatchToolsCallLenientModeNoSession(t *testing.T) {
	r := newTestRouter(t, false)
	mux := r.NewMux()

	resp := rpcCall(t, mux, "tools/call", toolsCallParams{Name: "echo", Arguments: json.RawMessage(`{}`)})
	require.Nil(t, resp.Error)

	var toolResp mcptypes.ToolResponse
	require.NoError(t, json.Unmarshal(resp.Result, &toolResp))
	assert.Equal(t, "hi", toolResp.Content[0].Text)
}

func TestDispatchToolsCallStrictModeRejectsMissingSession(t *testing.T) {
	r := newTestRouter(t, true)
	mux := r.NewMux()

	resp := rpcCall(t, mux, "tools/call", toolsCallParams{Name: "echo", Arguments: json.RawMessage(`{}`)})
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcptypes.ErrCodeSessionRequired, resp.Error.Code)
}

func TestDispatchToolsCallStrictModeAcceptsValidSession(t *testing.T) {
	r := newTestRouter(t, true)
	sess := r.Sessions.Allocate()
	mux := r.NewMux()

	resp := rpcCall(t, mux, "tools/call", toolsCallParams{Name: "echo", Arguments: json.RawMessage(`{}`), SessionID: sess.ID})
	require.Nil(t, resp.Error)
}

func TestDispatchShutdownEvictsOnlyCallersSession(t *testing.T) {
	r := newTestRouter(t, false)
	own := r.Sessions.Allocate()
	other := r.Sessions.Allocate()
	mux := r.NewMux()

	resp := rpcCall(t, mux, "shutdown", shutdownParams{SessionID: own.ID})
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, r.Sessions.Len())

	_, err := r.Sessions.Validate(other.ID)
	require.NoError(t, err)
}

func TestDispatchShutdownWithoutSessionIDLeavesRegistryUntouched(t *testing.T) {
	r := newTestRouter(t, false)
	r.Sessions.Allocate()
	r.Sessions.Allocate()
	mux := r.NewMux()

	resp := rpcCall(t, mux, "shutdown", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, 2, r.Sessions.Len())
}

func TestDispatchPing(t *testing.T) {
	r := newTestRouter(t, false)
	mux := r.NewMux()

	resp := rpcCall(t, mux, "ping", nil)
	require.Nil(t, resp.Error)
}

func TestDispatchUnknownMethod(t *testing.T) {
	r := newTestRouter(t, false)
	mux := r.NewMux()

	resp := rpcCall(t, mux, "bogus/method", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcptypes.ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, false)
	mux := r.NewMux()

	httpReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMCPEndpointRejectsNonPost(t *testing.T) {
	r := newTestRouter(t, false)
	mux := r.NewMux()

	httpReq := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
