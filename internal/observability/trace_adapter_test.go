package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceContextActive(t *testing.T) {
	assert.False(t, TraceContext{}.Active())
	assert.True(t, TraceContext{Enabled: true}.Active())
	assert.True(t, TraceContext{ParentRunID: "run_1"}.Active())
	assert.True(t, TraceContext{TraceID: "trace_1"}.Active())
}

func TestSerializeDeserializeMetadataRoundTrip(t *testing.T) {
	tc := TraceContext{
		Enabled:     true,
		ParentRunID: "run_123",
		Project:     "mcpgw-chat",
		Tags:        []string{"prod", "chat"},
		Metadata:    map[string]string{"user_tier": "gold"},
	}

	meta, err := SerializeMetadata(tc)
	require.NoError(t, err)
	require.Contains(t, meta, "langsmith")

	got, err := DeserializeMetadata(meta)
	require.NoError(t, err)
	assert.Equal(t, tc, got)
}

func TestDeserializeMetadataAbsentKeyIsZeroValue(t *testing.T) {
	got, err := DeserializeMetadata(map[string]string{"other": "value"})
	require.NoError(t, err)
	assert.Equal(t, TraceContext{}, got)
	assert.False(t, got.Active())
}

func TestStartRunWithNoopTracerDoesNotPanic(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "mcpgw-test"})
	defer shutdown(context.Background())

	run := tracer.StartRun(context.Background(), TraceContext{Enabled: true}, "chat", map[string]any{"model": "gpt-5"})
	require.NotNil(t, run)
	assert.NotNil(t, run.Context())
	run.FinalizeSuccess(map[string]any{"ok": true})
}
