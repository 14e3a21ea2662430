// Package router implements the gateway's JSON-RPC Router: the HTTP surface
// that dispatches initialize/tools/list/tools/call/shutdown/ping requests,
// grounded on the teacher's gateway.Server HTTP mounting (mux, promhttp,
// ReadHeaderTimeout, graceful Shutdown), trimmed to the single POST /mcp
// endpoint this gateway's JSON-RPC surface needs in place of the teacher's
// webhook/WebSocket/web-UI mounts.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
	"github.com/mcpgateway/mcpgw/internal/observability"
	"github.com/mcpgateway/mcpgw/internal/session"
	"github.com/mcpgateway/mcpgw/internal/toolregistry"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

// Router dispatches JSON-RPC 2.0 requests against the gateway's session
// registry and tool registry.
type Router struct {
	Sessions *session.Registry
	Tools    *toolregistry.Registry
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	server   *http.Server
	listener net.Listener
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      map[string]any `json:"serverInfo"`
	SessionID       string         `json:"sessionId"`
}

type toolsListResult struct {
	Tools []mcptypes.ToolSpec `json:"tools"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	SessionID string          `json:"sessionId,omitempty"`
}

type shutdownParams struct {
	SessionID string `json:"sessionId,omitempty"`
}

// NewMux builds the gateway's HTTP mux: POST /mcp for JSON-RPC, GET /health
// for a liveness probe, and /metrics for Prometheus scraping.
func (r *Router) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", r.handleHealth)
	mux.HandleFunc("/mcp", r.handleMCP)
	return mux
}

// Serve starts the HTTP listener on addr and runs until the context is
// cancelled, at which point it gracefully shuts the server down.
func (r *Router) Serve(ctx context.Context, addr string) error {
	r.server = &http.Server{
		Addr:              addr,
		Handler:           r.NewMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	r.listener = listener

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.server.Serve(listener)
	}()

	if r.Logger != nil {
		r.Logger.Info(ctx, "router listening", "addr", addr)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": r.Sessions.Len(),
	})
}

func (r *Router) handleMCP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var rpcReq mcptypes.Request
	if err := json.NewDecoder(req.Body).Decode(&rpcReq); err != nil {
		r.writeResponse(w, mcptypes.NewError(nil, mcptypes.ErrCodeParseError, "invalid JSON-RPC request: "+err.Error()))
		return
	}

	resp := r.dispatch(req.Context(), rpcReq)
	r.writeResponse(w, resp)
}

func (r *Router) writeResponse(w http.ResponseWriter, resp *mcptypes.Response) {
	w.Header().Set("Content-Type", "application/json")
	if resp.Error != nil {
		r.countRPCError(resp.Error.Code)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (r *Router) countRPCError(code int) {
	if r.Metrics != nil {
		r.Metrics.RPCErrors.WithLabelValues(fmt.Sprintf("%d", code)).Inc()
	}
}

// dispatch routes one decoded JSON-RPC request to its method handler,
// mapping every gwerrors.GatewayError into a JSON-RPC error object per
// spec.md §7's propagation policy.
func (r *Router) dispatch(ctx context.Context, req mcptypes.Request) *mcptypes.Response {
	switch req.Method {
	case "initialize":
		return r.handleInitialize(req)
	case "tools/list":
		return r.handleToolsList(req)
	case "tools/call":
		return r.handleToolsCall(ctx, req)
	case "shutdown":
		return r.handleShutdown(req)
	case "ping":
		result, _ := mcptypes.NewResult(req.ID, map[string]any{})
		return result
	default:
		return mcptypes.NewError(req.ID, mcptypes.ErrCodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (r *Router) handleInitialize(req mcptypes.Request) *mcptypes.Response {
	sess := r.Sessions.Allocate()
	result, err := mcptypes.NewResult(req.ID, initializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo:      map[string]any{"name": "mcpgw", "version": "0.1.0"},
		SessionID:       sess.ID,
	})
	if err != nil {
		return mcptypes.NewError(req.ID, mcptypes.ErrCodeInternalError, err.Error())
	}
	return result
}

func (r *Router) handleToolsList(req mcptypes.Request) *mcptypes.Response {
	result, err := mcptypes.NewResult(req.ID, toolsListResult{Tools: r.Tools.List()})
	if err != nil {
		return mcptypes.NewError(req.ID, mcptypes.ErrCodeInternalError, err.Error())
	}
	return result
}

func (r *Router) handleToolsCall(ctx context.Context, req mcptypes.Request) *mcptypes.Response {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcptypes.NewError(req.ID, mcptypes.ErrCodeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	sess, err := r.Sessions.Validate(params.SessionID)
	if err != nil {
		return errToResponse(req.ID, err)
	}

	toolResp, err := r.Tools.Call(ctx, params.Name, sess, params.Arguments)
	if err != nil {
		return errToResponse(req.ID, err)
	}

	result, err := mcptypes.NewResult(req.ID, toolResp)
	if err != nil {
		return mcptypes.NewError(req.ID, mcptypes.ErrCodeInternalError, err.Error())
	}
	return result
}

// handleShutdown evicts the calling client's own session, per spec.md §3's
// per-session lifecycle ("Destroyed by shutdown or process exit"). Only
// process exit tears down every session in the registry; that full-registry
// Clear() is cmd/mcpgw's job, not a single client's shutdown call.
func (r *Router) handleShutdown(req mcptypes.Request) *mcptypes.Response {
	var params shutdownParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcptypes.NewError(req.ID, mcptypes.ErrCodeInvalidParams, "invalid shutdown params: "+err.Error())
		}
	}
	if params.SessionID != "" {
		r.Sessions.Destroy(params.SessionID)
	}
	result, _ := mcptypes.NewResult(req.ID, map[string]any{})
	return result
}

// errToResponse maps a GatewayError's Kind to a JSON-RPC error code per
// spec.md §7: SessionError gets the gateway-specific -32001 code, every
// other kind maps to the generic internal-error code since the chat
// orchestrator already surfaces tool-level failures as a
// ToolResponse{isError:true} rather than a JSON-RPC error.
func errToResponse(id any, err error) *mcptypes.Response {
	if gwerrors.KindOf(err) == gwerrors.KindSession {
		return mcptypes.NewError(id, mcptypes.ErrCodeSessionRequired, err.Error())
	}
	return mcptypes.NewError(id, mcptypes.ErrCodeInternalError, err.Error())
}
