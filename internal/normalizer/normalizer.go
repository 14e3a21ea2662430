// Package normalizer implements the Response Normalizer: a total function
// folding a heterogeneous provider payload into a uniform
// content/tool-calls/metadata shape (spec.md §4.5). Three-tier extraction
// mirrors the teacher's own layered fallback style (providers.OpenAIProvider
// converts streaming deltas defensively, never panicking on an unexpected
// shape); the Chat-completions-style tier is grounded on
// github.com/sashabaranov/go-openai's ChatCompletionMessage/ToolCall types,
// reused here purely as a parsing target for providers that still speak the
// older Chat Completions response shape inside a Responses-style envelope.
package normalizer

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mcpgateway/mcpgw/internal/provider"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

// Normalized is the Response Normalizer's output: content blocks ready to
// surface to the caller, function calls ready for the Think Processor, and
// provider metadata worth preserving (usage, finish_reason).
type Normalized struct {
	Content   []mcptypes.ContentBlock
	ToolCalls []mcptypes.ToolCall
	Meta      map[string]any
}

// Normalize folds resp into a Normalized view. It never errors: an
// unrecognized shape degrades to a raw-JSON text block rather than
// discarding the response (spec.md §4.5's "guarantee non-empty content"
// invariant).
func Normalize(resp *provider.ProviderResponse) Normalized {
	out := Normalized{Meta: map[string]any{}}

	if resp.Usage != nil {
		out.Meta["usage"] = resp.Usage
	}
	if resp.FinishReason != "" {
		out.Meta["finish_reason"] = resp.FinishReason
	}

	for _, item := range resp.OutputItems {
		switch item.Type {
		case "function_call":
			out.ToolCalls = append(out.ToolCalls, mcptypes.ToolCall{
				CallID:    item.CallID,
				Name:      item.Name,
				Arguments: parseArguments(item.Arguments),
			})
		case "message":
			out.Content = append(out.Content, extractMessageContent(item)...)
		default:
			if chatBlocks, ok := tryChatCompletionsShape(item.Raw); ok {
				out.Content = append(out.Content, chatBlocks...)
				continue
			}
			out.Content = append(out.Content, mcptypes.ContentBlock{Type: item.Type, Raw: item.Raw})
		}
	}

	if len(out.Content) == 0 && len(out.ToolCalls) == 0 {
		out.Content = fallbackRawText(resp)
	}

	return out
}

// parseArguments validates a function_call item's arguments_json string,
// per spec.md §4.5 step 1: a well-formed JSON value passes through
// untouched, and a malformed one degrades to {"raw": arguments_json}
// rather than embedding invalid bytes in the final marshaled ToolResponse.
func parseArguments(arguments string) json.RawMessage {
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	fallback, err := json.Marshal(map[string]string{"raw": arguments})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return fallback
}

// extractMessageContent parses a Responses-style "message" output item's
// content array, which is either a plain string or a list of
// {type,text}-shaped parts.
func extractMessageContent(item provider.OutputItem) []mcptypes.ContentBlock {
	if len(item.Content) == 0 {
		return nil
	}

	var asString string
	if err := json.Unmarshal(item.Content, &asString); err == nil {
		if asString == "" {
			return nil
		}
		return []mcptypes.ContentBlock{mcptypes.TextBlock(asString)}
	}

	var parts []mcptypes.ContentBlock
	if err := json.Unmarshal(item.Content, &parts); err == nil {
		return parts
	}

	return []mcptypes.ContentBlock{{Type: "text", Raw: item.Content}}
}

// tryChatCompletionsShape attempts to parse raw as a Chat Completions
// "choice"-shaped payload (an older or non-Responses provider tunneled
// through the same endpoint), using go-openai's wire types as the parsing
// target. Only the message's text content is extracted: ok=false when raw
// does not match that shape or its message text is empty, and tool_calls
// in the message are not surfaced as ToolCalls.
func tryChatCompletionsShape(raw json.RawMessage) ([]mcptypes.ContentBlock, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var choice struct {
		Message openai.ChatCompletionMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &choice); err != nil {
		return nil, false
	}
	if choice.Message.Content == "" && len(choice.Message.ToolCalls) == 0 {
		return nil, false
	}
	if choice.Message.Content == "" {
		return nil, false
	}
	return []mcptypes.ContentBlock{mcptypes.TextBlock(choice.Message.Content)}, true
}

// fallbackRawText is the normalizer's last resort: the entire response
// serialized as a single text block, so the caller always sees something
// rather than an empty content array.
func fallbackRawText(resp *provider.ProviderResponse) []mcptypes.ContentBlock {
	b, err := json.Marshal(resp)
	if err != nil {
		return []mcptypes.ContentBlock{mcptypes.TextBlock("")}
	}
	return []mcptypes.ContentBlock{mcptypes.TextBlock(string(b))}
}
