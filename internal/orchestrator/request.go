// Package orchestrator implements the Chat Orchestrator: the bounded
// iterative submit→poll→normalize→think→follow-up loop that backs the
// gateway's "chat" tool. Grounded on the teacher's AgenticLoop
// (internal/agent/loop.go): a phase/iteration state machine driving a
// provider call each turn, trimmed of session/branch persistence, tool
// approval policy, and async job dispatch, none of which this gateway's
// stateless, single-provider-tool domain has a use for.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
)

// Message is one entry of a ChatRequest's messages array.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ToolDef is a tool definition the caller supplies for the provider to
// consider, in addition to any auto-injected think-tool schema.
type ToolDef struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ChatRequest is the arguments object of a tools/call{name:"chat"} request
// (spec.md §3).
type ChatRequest struct {
	Model             string            `json:"model"`
	Messages          []Message         `json:"messages"`
	Tools             []ToolDef         `json:"tools,omitempty"`
	ToolChoice        any               `json:"tool_choice,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	ParallelToolCalls *bool             `json:"parallel_tool_calls,omitempty"`
}

var validRoles = map[string]bool{
	"user": true, "developer": true, "assistant": true, "system": true, "tool": true,
}

// Validate enforces ChatRequest's invariants (spec.md §3): model
// non-empty, messages non-empty, every message has a recognized role.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return gwerrors.New(gwerrors.KindValidation, "model is required")
	}
	if len(r.Messages) == 0 {
		return gwerrors.New(gwerrors.KindValidation, "messages must be non-empty")
	}
	for i, msg := range r.Messages {
		if !validRoles[msg.Role] {
			return gwerrors.New(gwerrors.KindValidation, fmt.Sprintf("messages[%d]: invalid role %q", i, msg.Role))
		}
		if msg.Content == nil {
			return gwerrors.New(gwerrors.KindValidation, fmt.Sprintf("messages[%d]: content is required", i))
		}
	}
	return nil
}

// ParseChatRequest decodes a tools/call chat invocation's raw arguments.
func ParseChatRequest(raw json.RawMessage) (ChatRequest, error) {
	var req ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return ChatRequest{}, gwerrors.Wrap(gwerrors.KindValidation, "invalid chat arguments", err)
	}
	if err := req.Validate(); err != nil {
		return ChatRequest{}, err
	}
	return req, nil
}

// ThinkToolSchema is the function-tool definition auto-injected into a
// ChatRequest's tools array when the think tool is enabled and the caller
// did not already supply one named "think" (spec.md §4.8 step 2).
var ThinkToolSchema = ToolDef{
	Type:        "function",
	Name:        "think",
	Description: "Use this tool to reason step by step about a problem before responding, without taking any external action.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"thought": map[string]any{"type": "string"},
		},
		"required": []string{"thought"},
	},
}

// withThinkSchema returns tools with ThinkToolSchema appended, unless the
// caller already registered a tool named "think".
func withThinkSchema(tools []ToolDef) []ToolDef {
	for _, t := range tools {
		if t.Name == "think" {
			return tools
		}
	}
	out := make([]ToolDef, len(tools), len(tools)+1)
	copy(out, tools)
	return append(out, ThinkToolSchema)
}
