package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgateway/mcpgw/internal/provider"
	"github.com/mcpgateway/mcpgw/internal/thinkproc"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

type fakeProvider struct {
	responses []*provider.ProviderResponse
	errs      []error
	requests  []provider.CreateRequest
	call      int
}

func (f *fakeProvider) Create(ctx context.Context, req provider.CreateRequest) (*provider.ProviderResponse, error) {
	f.requests = append(f.requests, req)
	i := f.call
	f.call++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

type fakePoller struct {
	resp *provider.ProviderResponse
	err  error
}

func (f *fakePoller) PollUntilTerminal(ctx context.Context, responseID string) (*provider.ProviderResponse, error) {
	return f.resp, f.err
}

type fakeThink struct {
	responses map[string]mcptypes.ToolResponse
}

func (f *fakeThink) Think(ctx context.Context, callID string, arguments json.RawMessage) (mcptypes.ToolResponse, error) {
	return f.responses[callID], nil
}

func basicReq() ChatRequest {
	return ChatRequest{
		Model:    "gpt-5",
		Messages: []Message{{Role: "user", Content: "hello"}},
	}
}

func messageOutput(text string) provider.OutputItem {
	data, _ := json.Marshal(map[string]any{"type": "message", "role": "assistant", "content": text})
	var item provider.OutputItem
	_ = json.Unmarshal(data, &item)
	return item
}

func functionCallOutput(callID, name, args string) provider.OutputItem {
	data, _ := json.Marshal(map[string]any{"type": "function_call", "call_id": callID, "name": name, "arguments": args})
	var item provider.OutputItem
	_ = json.Unmarshal(data, &item)
	return item
}

func TestInvokeNoToolCallsReturnsDoneOnFirstTurn(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.ProviderResponse{
		{ID: "resp_1", Status: "completed", OutputItems: []provider.OutputItem{messageOutput("hi there")}},
	}}
	o := &Orchestrator{Provider: fp, MaxTurns: 5}

	resp := o.Invoke(context.Background(), basicReq())
	require.False(t, resp.IsError)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "hi there", resp.Content[0].Text)
	assert.Equal(t, 1, fp.call)
}

func TestInvokePollsWhenNonTerminal(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.ProviderResponse{
		{ID: "resp_1", Status: "queued"},
	}}
	fpoll := &fakePoller{resp: &provider.ProviderResponse{ID: "resp_1", Status: "completed", OutputItems: []provider.OutputItem{messageOutput("polled result")}}}
	o := &Orchestrator{Provider: fp, Poller: fpoll, MaxTurns: 5}

	resp := o.Invoke(context.Background(), basicReq())
	require.False(t, resp.IsError)
	assert.Equal(t, "polled result", resp.Content[0].Text)
}

func TestInvokeThinkRoundTripThenDone(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.ProviderResponse{
		{ID: "resp_1", Status: "completed", OutputItems: []provider.OutputItem{functionCallOutput("call_1", "think", `{"thought":"hmm"}`)}},
		{ID: "resp_2", Status: "completed", OutputItems: []provider.OutputItem{messageOutput("final answer")}},
	}}
	think := &fakeThink{responses: map[string]mcptypes.ToolResponse{
		"call_1": {Content: []mcptypes.ContentBlock{mcptypes.TextBlock("thought logged")}},
	}}
	o := &Orchestrator{Provider: fp, ThinkEnabled: true, Think: think, MaxTurns: 5}

	resp := o.Invoke(context.Background(), basicReq())
	require.False(t, resp.IsError)
	assert.Equal(t, "final answer", resp.Content[0].Text)
	assert.Equal(t, 2, fp.call)

	require.Len(t, fp.requests, 2)
	assert.Equal(t, "resp_1", fp.requests[1].PreviousResponseID)
	require.Len(t, fp.requests[1].Input, 1)
	assert.Equal(t, "call_1", fp.requests[1].Input[0].CallID)
}

func TestInvokeNonThinkToolCallReturnsAsRemaining(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.ProviderResponse{
		{ID: "resp_1", Status: "completed", OutputItems: []provider.OutputItem{functionCallOutput("call_1", "read_file", `{"path":"a.txt"}`)}},
	}}
	o := &Orchestrator{Provider: fp, MaxTurns: 5}

	resp := o.Invoke(context.Background(), basicReq())
	require.False(t, resp.IsError)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "read_file", resp.ToolCalls[0].Name)
	assert.Equal(t, 1, fp.call)
}

func TestInvokeExceedsMaxTurns(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.ProviderResponse{
		{ID: "resp_1", Status: "completed", OutputItems: []provider.OutputItem{functionCallOutput("call_1", "think", `{"thought":"loop"}`)}},
	}}
	think := &fakeThink{responses: map[string]mcptypes.ToolResponse{
		"call_1": {Content: []mcptypes.ContentBlock{mcptypes.TextBlock("thought logged")}},
	}}
	o := &Orchestrator{Provider: fp, ThinkEnabled: true, Think: think, MaxTurns: 3}

	resp := o.Invoke(context.Background(), basicReq())
	require.True(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, "maximum tool iterations")
	assert.Equal(t, 3, fp.call)
	require.Contains(t, resp.Metadata, "thinkTool")
}

func TestInvokeProviderErrorSurfacesAsErrorResponse(t *testing.T) {
	fp := &fakeProvider{errs: []error{assertErr{}}}
	o := &Orchestrator{Provider: fp, MaxTurns: 5}

	resp := o.Invoke(context.Background(), basicReq())
	require.True(t, resp.IsError)
	assert.Equal(t, "synthetic provider failure", resp.Content[0].Text)
}

type assertErr struct{}

func (assertErr) Error() string { return "synthetic provider failure" }

// TestCallIDPairingProperty checks that every think call_id dispatched in a
// turn appears, verbatim and in the same order, as the CallID of that
// turn's follow-up function_call_output input items.
func TestCallIDPairingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("follow-up call_ids match dispatched think call_ids in order", prop.ForAll(
		func(callIDs []string) bool {
			ids := dedupeNonEmpty(callIDs)
			if len(ids) == 0 {
				return true
			}

			var calls []mcptypes.ToolCall
			responses := map[string]mcptypes.ToolResponse{}
			for _, id := range ids {
				calls = append(calls, mcptypes.ToolCall{CallID: id, Name: "think", Arguments: json.RawMessage(`{"thought":"x"}`)})
				responses[id] = mcptypes.ToolResponse{Content: []mcptypes.ContentBlock{mcptypes.TextBlock("ok")}}
			}
			think := &fakeThink{responses: responses}

			result, err := thinkproc.Process(context.Background(), think, calls)
			if err != nil {
				return false
			}
			if len(result.FollowUpInputs) != len(ids) {
				return false
			}
			for i, id := range ids {
				if result.FollowUpInputs[i].CallID != id {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func dedupeNonEmpty(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
