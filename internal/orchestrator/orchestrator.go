package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
	"github.com/mcpgateway/mcpgw/internal/normalizer"
	"github.com/mcpgateway/mcpgw/internal/observability"
	"github.com/mcpgateway/mcpgw/internal/provider"
	"github.com/mcpgateway/mcpgw/internal/thinkproc"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

// ProviderClient is the subset of the Provider Adapter the orchestrator depends on.
type ProviderClient interface {
	Create(ctx context.Context, req provider.CreateRequest) (*provider.ProviderResponse, error)
}

// Poller is the subset of the Response Poller the orchestrator depends on.
type Poller interface {
	PollUntilTerminal(ctx context.Context, responseID string) (*provider.ProviderResponse, error)
}

// Orchestrator implements the Chat Orchestrator loop (spec.md §4.8).
type Orchestrator struct {
	Provider     ProviderClient
	Poller       Poller
	ThinkEnabled bool
	Think        thinkproc.ThinkDispatcher
	Tracer       *observability.Tracer
	Metrics      *observability.Metrics
	MaxTurns     int
}

// Invoke runs one chat tool invocation to completion: submit, poll,
// normalize, dispatch think calls, resubmit, up to MaxTurns.
func (o *Orchestrator) Invoke(ctx context.Context, req ChatRequest) mcptypes.ToolResponse {
	tc := traceContextFromMetadata(req.Metadata)

	var run *observability.RunHandle
	if o.Tracer != nil && tc.Active() {
		run = o.Tracer.StartRun(ctx, tc, "chat", req)
		ctx = run.Context()
	}

	resp := o.invoke(ctx, req)

	if run != nil {
		if resp.IsError {
			run.FinalizeError(fmt.Errorf("%v", resp.Content))
		} else {
			run.FinalizeSuccess(resp)
		}
	}
	return resp
}

func (o *Orchestrator) invoke(ctx context.Context, req ChatRequest) mcptypes.ToolResponse {
	tools := req.Tools
	if o.ThinkEnabled {
		tools = withThinkSchema(tools)
	}

	createReq := provider.CreateRequest{
		Model:             req.Model,
		Input:             toInputItems(req.Messages),
		Tools:             toProviderTools(tools),
		ToolChoice:        req.ToolChoice,
		ParallelToolCalls: req.ParallelToolCalls,
		Metadata:          toProviderMetadata(req.Metadata),
	}

	var thinkLogs []thinkproc.ThinkLogEntry

	for turn := 0; turn < o.MaxTurns; turn++ {
		select {
		case <-ctx.Done():
			o.countTurn("error")
			return errorResponse(gwerrors.Wrap(gwerrors.KindCancelled, "chat invocation cancelled", ctx.Err()), thinkLogs)
		default:
		}

		resp, err := o.submitAndResolve(ctx, createReq)
		if err != nil {
			o.countTurn("error")
			return errorResponse(err, thinkLogs)
		}

		norm := normalizer.Normalize(resp)
		norm.Meta["response_id"] = resp.ID
		norm.Meta["model"] = req.Model

		if len(norm.ToolCalls) == 0 {
			o.countTurn("done")
			return doneResponse(norm, thinkLogs, nil)
		}

		if o.Think == nil {
			o.countTurn("done")
			return doneResponse(norm, thinkLogs, norm.ToolCalls)
		}

		result, err := thinkproc.Process(ctx, o.Think, norm.ToolCalls)
		if o.Metrics != nil {
			for _, entry := range result.ThinkLogs {
				o.Metrics.ThinkCalls.WithLabelValues(entry.Status).Inc()
			}
		}
		if err != nil {
			o.countTurn("error")
			return errorResponse(err, append(thinkLogs, result.ThinkLogs...))
		}
		thinkLogs = append(thinkLogs, result.ThinkLogs...)

		if len(result.FollowUpInputs) == 0 {
			o.countTurn("done")
			return doneResponse(norm, thinkLogs, result.RemainingCalls)
		}

		o.countTurn("continue")
		createReq = provider.CreateRequest{
			Model:              req.Model,
			PreviousResponseID: resp.ID,
			Input:              result.FollowUpInputs,
			Metadata:           toProviderMetadata(req.Metadata),
		}
	}

	o.countTurn("max_turns")
	return mcptypes.ToolResponse{
		Content: []mcptypes.ContentBlock{mcptypes.TextBlock("Reached maximum tool iterations without completion.")},
		IsError: true,
		Metadata: map[string]any{
			"thinkTool": thinkLogs,
		},
	}
}

// submitAndResolve performs one turn's create (or follow-up create) call,
// then hands off to the Response Poller if the result is not yet terminal.
func (o *Orchestrator) submitAndResolve(ctx context.Context, req provider.CreateRequest) (*provider.ProviderResponse, error) {
	resp, err := o.Provider.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if provider.Terminal(resp.Status) {
		return resp, nil
	}
	if o.Poller == nil {
		return resp, nil
	}
	return o.Poller.PollUntilTerminal(ctx, resp.ID)
}

func (o *Orchestrator) countTurn(outcome string) {
	if o.Metrics != nil {
		o.Metrics.ChatTurns.WithLabelValues(outcome).Inc()
	}
}

func doneResponse(norm normalizer.Normalized, thinkLogs []thinkproc.ThinkLogEntry, remaining []mcptypes.ToolCall) mcptypes.ToolResponse {
	meta := norm.Meta
	if len(thinkLogs) > 0 {
		meta["thinkTool"] = thinkLogs
	}
	return mcptypes.ToolResponse{
		Content:   norm.Content,
		ToolCalls: remaining,
		Metadata:  meta,
	}
}

func errorResponse(err error, thinkLogs []thinkproc.ThinkLogEntry) mcptypes.ToolResponse {
	meta := map[string]any{}
	if len(thinkLogs) > 0 {
		meta["thinkTool"] = thinkLogs
	}
	var ge *gwerrors.GatewayError
	if errors.As(err, &ge) && ge.ResponseID != "" {
		meta["responseId"] = ge.ResponseID
	}
	return mcptypes.ToolResponse{
		Content:  []mcptypes.ContentBlock{mcptypes.TextBlock(err.Error())},
		IsError:  true,
		Metadata: meta,
	}
}

func toInputItems(messages []Message) []provider.InputItem {
	items := make([]provider.InputItem, len(messages))
	for i, m := range messages {
		items[i] = provider.InputItem{Role: m.Role, Content: m.Content}
	}
	return items
}

func toProviderTools(tools []ToolDef) []provider.ToolDef {
	if len(tools) == 0 {
		return nil
	}
	out := make([]provider.ToolDef, len(tools))
	for i, t := range tools {
		out[i] = provider.ToolDef{Type: t.Type, Name: t.Name, Description: t.Description, Parameters: t.Parameters}
	}
	return out
}

func toProviderMetadata(metadata map[string]string) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// traceContextFromMetadata extracts an observability.TraceContext from a
// ChatRequest's metadata, per spec.md §4.9's implicit-activation rule: a
// metadata.langsmith sub-object serialized to JSON by the caller (or by a
// prior turn's Trace Adapter, on continuation).
func traceContextFromMetadata(metadata map[string]string) observability.TraceContext {
	tc, err := observability.DeserializeMetadata(metadata)
	if err != nil {
		return observability.TraceContext{}
	}
	return tc
}
