// Package provider implements the gateway's Provider Adapter: a thin,
// capability-checked wrapper over an OpenAI-Responses-style async LLM
// endpoint (create/retrieve, previous_response_id continuation). Wire
// shapes are grounded on the Responses API's documented request/response
// bodies (see other_examples' textualai Responses client for the request
// shape this adapter's CreateRequest mirrors, minus its streaming-specific
// fields since the gateway polls rather than streams).
package provider

import "encoding/json"

// CreateRequest is the body posted to the provider's response-creation
// endpoint. Unlike the streaming Responses client this package is
// grounded on, it has no stream field: the gateway polls for completion
// via the Response Poller instead of consuming an SSE stream.
type CreateRequest struct {
	Model              string         `json:"model"`
	Input              []InputItem    `json:"input"`
	Tools              []ToolDef      `json:"tools,omitempty"`
	ToolChoice         any            `json:"tool_choice,omitempty"`
	ParallelToolCalls  *bool          `json:"parallel_tool_calls,omitempty"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	Store              *bool          `json:"store,omitempty"`
}

// InputItem is one entry of a CreateRequest's input array: either a
// role+content message, or a function_call_output echoing a prior tool
// call's result back to the provider.
type InputItem struct {
	Type   string `json:"type,omitempty"` // "message" (default, omitted) or "function_call_output"
	Role   string `json:"role,omitempty"`
	Content any   `json:"content,omitempty"`

	// function_call_output fields. Output is a content-block array per
	// spec.md §4.7 step 5 ({type:"input_text", text}), not a bare string.
	CallID string `json:"call_id,omitempty"`
	Output any    `json:"output,omitempty"`
}

// ToolDef is a function tool definition as accepted by the tools array.
type ToolDef struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
	Strict      *bool  `json:"strict,omitempty"`
}

// ProviderResponse is the normalized view of a create/retrieve payload
// (spec.md §3). Status drives the Response Poller's terminal-status check.
type ProviderResponse struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	OutputItems  []OutputItem `json:"output"`
	Usage        *Usage       `json:"usage,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
	Error        *APIError    `json:"error,omitempty"`
}

// Usage mirrors the provider's token-accounting block.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// OutputItem is one entry of a ProviderResponse's output array.
// Recognized Type values are "message" and "function_call"; anything else
// is preserved opaquely in Raw and passed through by the Normalizer.
type OutputItem struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`

	// message fields.
	Role    string          `json:"role,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`

	// function_call fields.
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

func (o OutputItem) MarshalJSON() ([]byte, error) {
	if o.Raw != nil {
		return o.Raw, nil
	}
	type alias OutputItem
	return json.Marshal(alias(o))
}

func (o *OutputItem) UnmarshalJSON(data []byte) error {
	type alias OutputItem
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = OutputItem(a)
	o.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// APIError mirrors the provider's {"error": {...}} error envelope,
// following the shape go-openai's openai.APIError uses for Chat
// Completions errors, reused here for Responses-endpoint error bodies.
type APIError struct {
	Code    any    `json:"code,omitempty"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Terminal reports whether status is a terminal ProviderResponse status
// (spec.md §3: anything not in {queued, in_progress}).
func Terminal(status string) bool {
	return status != "queued" && status != "in_progress"
}
