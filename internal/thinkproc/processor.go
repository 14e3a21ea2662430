// Package thinkproc implements the Think Processor: given a turn's
// function calls, it partitions "think" calls from everything else,
// dispatches think calls through the Think Client, and builds the
// follow-up inputs the Chat Orchestrator resubmits to the provider.
package thinkproc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
	"github.com/mcpgateway/mcpgw/internal/provider"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

// ThinkDispatcher is the subset of the Think Client the processor depends on.
type ThinkDispatcher interface {
	Think(ctx context.Context, callID string, arguments json.RawMessage) (mcptypes.ToolResponse, error)
}

// ThinkLogEntry records the outcome of one think dispatch, accumulated
// across turns and surfaced in the final response's metadata.thinkTool.
type ThinkLogEntry struct {
	CallID string              `json:"call_id"`
	Status string              `json:"status"` // "ok" or "error"
	Result mcptypes.ToolResponse `json:"result"`
}

// Result is the Think Processor's output for one turn.
type Result struct {
	FollowUpInputs []provider.InputItem
	ThinkLogs      []ThinkLogEntry
	RemainingCalls []mcptypes.ToolCall
}

const thinkToolName = "think"

// Process partitions calls into think vs non-think, dispatches each think
// call in turn order, and builds the corresponding follow-up inputs. It
// returns a ThinkToolError immediately on the first think call whose
// call_id is empty or whose dispatch errors, per spec.md §4.7 step 1/4.
// The think_logs accumulated before the failing call are still returned
// alongside the error (plus an "error" entry for the failing call when the
// think server returned an error result), so the caller can surface them in
// the final response's metadata rather than losing the record of what
// happened.
func Process(ctx context.Context, dispatcher ThinkDispatcher, calls []mcptypes.ToolCall) (Result, error) {
	var result Result

	for _, call := range calls {
		if call.Name != thinkToolName {
			result.RemainingCalls = append(result.RemainingCalls, call)
			continue
		}

		if strings.TrimSpace(call.CallID) == "" {
			return result, gwerrors.New(gwerrors.KindThinkTool, "think call missing call_id")
		}

		resp, err := dispatcher.Think(ctx, call.CallID, call.Arguments)
		if err != nil {
			return result, gwerrors.Wrap(gwerrors.KindThinkTool, "think call "+call.CallID+" failed", err)
		}

		entry := ThinkLogEntry{CallID: call.CallID, Result: resp}
		if resp.IsError {
			entry.Status = "error"
			result.ThinkLogs = append(result.ThinkLogs, entry)
			return result, gwerrors.New(gwerrors.KindThinkTool, "think call "+call.CallID+" returned error: "+concatText(resp.Content))
		}

		entry.Status = "ok"
		result.ThinkLogs = append(result.ThinkLogs, entry)
		result.FollowUpInputs = append(result.FollowUpInputs, followUpFor(call.CallID, resp.Content))
	}

	return result, nil
}

// followUpFor builds the function_call_output input item the orchestrator
// resubmits to the provider, per spec.md §4.7 step 5.
func followUpFor(callID string, content []mcptypes.ContentBlock) provider.InputItem {
	text := concatText(content)
	if text == "" {
		text = "ok"
	}
	return provider.InputItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: []mcptypes.ContentBlock{mcptypes.InputTextBlock(text)},
	}
}

// concatText joins the non-empty text of content's text blocks with "\n\n".
func concatText(content []mcptypes.ContentBlock) string {
	var parts []string
	for _, block := range content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
