// Package thinkclient implements the Think Client: an HTTP/JSON-RPC client
// to the upstream think MCP server, used by the Think Processor to dispatch
// "think" function calls the provider emits mid-conversation. Grounded on
// the teacher's mcp.HTTPTransport.Call (internal/mcp/transport_http.go):
// same POST-a-JSON-RPC-envelope-and-decode shape, trimmed of the SSE
// notification loop and server-initiated sampling support the think server
// does not need, and extended with the per-call timeout and retry/backoff
// spec.md §4.6 requires.
package thinkclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

// Client dispatches MCP tools/call requests to a single upstream think
// server over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
	timeout    time.Duration
	retryLimit int
}

// New builds a Client targeting url, with per-call timeout and a bounded
// retry count (spec.md's THINK_TOOL_TIMEOUT_MS / THINK_TOOL_RETRY_LIMIT).
func New(url string, timeout time.Duration, retryLimit int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		timeout:    timeout,
		retryLimit: retryLimit,
	}
}

// Think dispatches a single "think" tool call and returns its ToolResponse.
// Retries transport failures with exponential backoff up to retryLimit
// times; a JSON-RPC-level error response is returned immediately without
// retry, since retrying a rejected call cannot succeed.
func (c *Client) Think(ctx context.Context, callID string, arguments json.RawMessage) (mcptypes.ToolResponse, error) {
	params := struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{Name: "think", Arguments: arguments}

	var lastErr error
	for attempt := 0; attempt <= c.retryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return mcptypes.ToolResponse{}, gwerrors.Wrap(gwerrors.KindCancelled, "think call cancelled", ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}

		resp, err := c.call(ctx, "tools/call", params)
		if err == nil {
			var toolResp mcptypes.ToolResponse
			if unmarshalErr := json.Unmarshal(resp, &toolResp); unmarshalErr != nil {
				return mcptypes.ToolResponse{}, gwerrors.Wrap(gwerrors.KindThinkTool, "decode think response", unmarshalErr)
			}
			return toolResp, nil
		}

		lastErr = err
		if !isRetryableErr(err) {
			return mcptypes.ToolResponse{}, gwerrors.Wrap(gwerrors.KindThinkTool, "think call "+callID+" failed", err)
		}
	}

	return mcptypes.ToolResponse{}, gwerrors.Wrap(gwerrors.KindThinkTool, "think call "+callID+" exhausted retries", lastErr)
}

// call posts a single JSON-RPC request with a per-call timeout and returns
// its raw result.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	req := mcptypes.Request{JSONRPC: "2.0", ID: uuid.NewString(), Method: method, Params: paramsJSON}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("think server HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var rpcResp mcptypes.Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, &rpcError{code: rpcResp.Error.Code, message: rpcResp.Error.Message}
	}
	return rpcResp.Result, nil
}

// rpcError marks a well-formed JSON-RPC error response from the think
// server, as opposed to a transport-level failure: retrying a rejected
// call cannot succeed, so isRetryableErr excludes it.
type rpcError struct {
	code    int
	message string
}

func (e *rpcError) Error() string { return fmt.Sprintf("think server error %d: %s", e.code, e.message) }

func isRetryableErr(err error) bool {
	var rpcErr *rpcError
	return err != nil && !asRPCError(err, &rpcErr)
}

func asRPCError(err error, target **rpcError) bool {
	if e, ok := err.(*rpcError); ok {
		*target = e
		return true
	}
	return false
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
	if d > 5*time.Second {
		return 5 * time.Second
	}
	return d
}
