package observability

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceContext describes the tracing intent carried on a ChatRequest's
// metadata. Activation is implicit: a run is traced when Enabled is true,
// OR ParentRunID/TraceID is non-empty, matching the metadata.langsmith.*
// convention the chat orchestrator reads off an inbound request.
type TraceContext struct {
	Enabled      bool              `json:"enabled"`
	ParentRunID  string            `json:"parent_run_id"`
	TraceID      string            `json:"trace_id"`
	Project      string            `json:"project"`
	Tags         []string          `json:"tags"`
	Metadata     map[string]string `json:"metadata"`
}

// Active reports whether a run should be traced, per the implicit
// activation rule: metadata.langsmith.enabled=true, or the presence of a
// parent_run_id/trace_id inherited from an upstream caller.
func (tc TraceContext) Active() bool {
	return tc.Enabled || tc.ParentRunID != "" || tc.TraceID != ""
}

// RunHandle is a single traced operation (one chat turn, one provider
// call, one think-tool dispatch). The orchestrator calls StartRun to obtain
// one, then FinalizeSuccess or FinalizeError exactly once.
type RunHandle struct {
	ctx  context.Context
	span trace.Span
	t    *Tracer
}

// StartRun begins a new traced run named runName, recording inputs as a
// best-effort JSON-serialized span attribute. StartRun does not consult
// tc.Active(): it always starts a span on t, which is a no-op span only
// when t was built without an export endpoint. Orchestrator.Invoke checks
// Active() before calling it.
func (t *Tracer) StartRun(ctx context.Context, tc TraceContext, runName string, inputs any) *RunHandle {
	attrs := []attribute.KeyValue{}
	if tc.Project != "" {
		attrs = append(attrs, attribute.String("langsmith.project", tc.Project))
	}
	if tc.ParentRunID != "" {
		attrs = append(attrs, attribute.String("langsmith.parent_run_id", tc.ParentRunID))
	}
	if len(tc.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("langsmith.tags", tc.Tags))
	}
	if b, err := json.Marshal(inputs); err == nil {
		attrs = append(attrs, attribute.String("run.inputs", string(b)))
	}
	for k, v := range tc.Metadata {
		attrs = append(attrs, attribute.String("metadata."+k, v))
	}

	runCtx, span := t.Start(ctx, runName, SpanOptions{
		Kind:       trace.SpanKindInternal,
		Attributes: attrs,
	})
	return &RunHandle{ctx: runCtx, span: span, t: t}
}

// Context returns the run's context, carrying the active span for any
// nested StartRun calls (e.g. a think-tool dispatch nested under a chat turn).
func (r *RunHandle) Context() context.Context { return r.ctx }

// RunID returns the OTel span ID backing this run, suitable for
// propagating as the next turn's parent_run_id.
func (r *RunHandle) RunID() string {
	return r.span.SpanContext().SpanID().String()
}

// FinalizeSuccess ends the run, recording outputs as a span attribute.
func (r *RunHandle) FinalizeSuccess(outputs any) {
	if b, err := json.Marshal(outputs); err == nil {
		r.span.SetAttributes(attribute.String("run.outputs", string(b)))
	}
	r.span.End()
}

// FinalizeError ends the run, recording err as the run's failure.
func (r *RunHandle) FinalizeError(err error) {
	r.t.RecordError(r.span, err)
	r.span.End()
}

// SerializeMetadata round-trips a TraceContext into the string-keyed
// metadata map a provider call carries, since provider metadata fields are
// constrained to string values (spec.md §3). Structured trace context is
// flattened to JSON under a single "langsmith" key so it survives the
// round trip through the provider unmodified.
func SerializeMetadata(tc TraceContext) (map[string]string, error) {
	b, err := json.Marshal(tc)
	if err != nil {
		return nil, err
	}
	return map[string]string{"langsmith": string(b)}, nil
}

// DeserializeMetadata recovers a TraceContext from the metadata map
// SerializeMetadata produced. Returns the zero TraceContext, no error, if
// metadata carries no "langsmith" key (tracing was never active).
func DeserializeMetadata(metadata map[string]string) (TraceContext, error) {
	raw, ok := metadata["langsmith"]
	if !ok {
		return TraceContext{}, nil
	}
	var tc TraceContext
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		return TraceContext{}, err
	}
	return tc, nil
}
