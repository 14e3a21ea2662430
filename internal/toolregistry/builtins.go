package toolregistry

import (
	"context"
	"encoding/json"

	"github.com/mcpgateway/mcpgw/internal/orchestrator"
	"github.com/mcpgateway/mcpgw/internal/session"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

// RegisterBuiltins wires the gateway's fixed tool catalog (spec.md §4.3):
// echo and read_file as trivial stubs (their concrete implementations are
// out of scope; only their interfaces matter here), chat as the orchestration
// core's entry point, and — when think is enabled — a think schema entry so
// tools/list reports it available even though it is never directly callable
// from an MCP client.
func RegisterBuiltins(r *Registry, orc *orchestrator.Orchestrator, thinkEnabled bool) error {
	if err := r.Register(echoSpec, echoHandler); err != nil {
		return err
	}
	if err := r.Register(readFileSpec, readFileHandler); err != nil {
		return err
	}
	if err := r.Register(chatSpec, chatHandler(orc)); err != nil {
		return err
	}
	if thinkEnabled {
		if err := r.Register(thinkSpec, thinkHandler); err != nil {
			return err
		}
	}
	return nil
}

var echoSpec = mcptypes.ToolSpec{
	Name:        "echo",
	Description: "Returns its text argument unchanged, for connectivity smoke tests.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {"text": {"type": "string"}},
		"required": ["text"]
	}`),
}

func echoHandler(_ context.Context, _ session.Session, arguments json.RawMessage) mcptypes.ToolResponse {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return mcptypes.ErrorResponse("invalid echo arguments: " + err.Error())
	}
	return mcptypes.ToolResponse{Content: []mcptypes.ContentBlock{mcptypes.TextBlock(args.Text)}}
}

var readFileSpec = mcptypes.ToolSpec{
	Name:        "read_file",
	Description: "Reads a file's contents from the gateway host. Stub: no sandboxing or access control implemented.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`),
}

func readFileHandler(_ context.Context, _ session.Session, arguments json.RawMessage) mcptypes.ToolResponse {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return mcptypes.ErrorResponse("invalid read_file arguments: " + err.Error())
	}
	data, err := readFile(args.Path)
	if err != nil {
		return mcptypes.ErrorResponse("read_file: " + err.Error())
	}
	return mcptypes.ToolResponse{Content: []mcptypes.ContentBlock{mcptypes.TextBlock(string(data))}}
}

var chatSpec = mcptypes.ToolSpec{
	Name:        "chat",
	Description: "Orchestrates a multi-turn conversation with the configured provider, dispatching think-tool calls until the provider produces a final response or the turn limit is reached.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"model": {"type": "string"},
			"messages": {"type": "array"},
			"tools": {"type": "array"},
			"tool_choice": {},
			"metadata": {"type": "object"},
			"parallel_tool_calls": {"type": "boolean"}
		},
		"required": ["model", "messages"]
	}`),
}

func chatHandler(orc *orchestrator.Orchestrator) Handler {
	return func(ctx context.Context, _ session.Session, arguments json.RawMessage) mcptypes.ToolResponse {
		req, err := orchestrator.ParseChatRequest(arguments)
		if err != nil {
			return mcptypes.ErrorResponse(err.Error())
		}
		return orc.Invoke(ctx, req)
	}
}

// thinkSpec mirrors orchestrator.ThinkToolSchema's shape so tools/list
// reports a consistent schema regardless of whether a caller ever supplies
// their own think tool definition.
var thinkSpec = mcptypes.ToolSpec{
	Name:        "think",
	Description: orchestrator.ThinkToolSchema.Description,
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {"thought": {"type": "string"}},
		"required": ["thought"]
	}`),
}

// thinkHandler is never exercised by the chat orchestration path — think
// calls are dispatched internally via the Think Client, not through
// tools/call. A direct client invocation is rejected rather than silently
// accepted, since the gateway has nowhere to route it.
func thinkHandler(_ context.Context, _ session.Session, _ json.RawMessage) mcptypes.ToolResponse {
	return mcptypes.ErrorResponse("think is dispatched internally by the chat orchestrator and cannot be called directly")
}
