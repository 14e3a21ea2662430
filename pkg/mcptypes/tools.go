package mcptypes

import "encoding/json"

// ToolSpec describes a tool exposed by the gateway's tools/list catalog.
// Immutable once registered; name is unique within a Tool Registry.
type ToolSpec struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"input_schema"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// ContentBlock is one piece of a ToolResponse's content array. Unknown
// Type values pass through opaquely via Raw.
type ContentBlock struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	Raw  json.RawMessage `json:"-"`
}

// MarshalJSON emits Raw verbatim for opaque block types, and the
// {type,text} shape for the two block types the gateway understands.
func (c ContentBlock) MarshalJSON() ([]byte, error) {
	if c.Type != "text" && c.Type != "input_text" && c.Raw != nil {
		return c.Raw, nil
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}{Type: c.Type, Text: c.Text})
}

func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	var shape struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	c.Type = shape.Type
	c.Text = shape.Text
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// TextBlock is a convenience constructor for a {"type":"text"} block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// InputTextBlock is a convenience constructor for a {"type":"input_text"} block.
func InputTextBlock(text string) ContentBlock {
	return ContentBlock{Type: "input_text", Text: text}
}

// ToolCall is a provider-requested function invocation. CallID is opaque
// and must be echoed verbatim in the paired function_call_output.
type ToolCall struct {
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResponse is the uniform return shape of every gateway tool.
type ToolResponse struct {
	Content   []ContentBlock `json:"content"`
	ToolCalls []ToolCall     `json:"toolCalls"`
	IsError   bool           `json:"isError"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ErrorResponse builds a ToolResponse carrying a single text block and
// IsError=true, per spec.md §7's ValidationError/propagation policy.
func ErrorResponse(text string) ToolResponse {
	return ToolResponse{
		Content: []ContentBlock{TextBlock(text)},
		IsError: true,
	}
}
