package observability

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSerializeMetadataRoundTripProperty checks deserialize(serialize(tc)) == tc
// across randomly generated TraceContext values, per the round-trip invariant
// the chat orchestrator relies on to survive a provider metadata hop.
func TestSerializeMetadataRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("serialize then deserialize recovers the original TraceContext", prop.ForAll(
		func(enabled bool, parentRunID, project string, tags []string) bool {
			tc := TraceContext{
				Enabled:     enabled,
				ParentRunID: parentRunID,
				Project:     project,
				Tags:        tags,
			}

			meta, err := SerializeMetadata(tc)
			if err != nil {
				return false
			}
			got, err := DeserializeMetadata(meta)
			if err != nil {
				return false
			}
			return tracesEqual(tc, got)
		},
		gen.Bool(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func tracesEqual(a, b TraceContext) bool {
	if a.Enabled != b.Enabled || a.ParentRunID != b.ParentRunID || a.TraceID != b.TraceID || a.Project != b.Project {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	if len(a.Metadata) != len(b.Metadata) {
		return false
	}
	for k, v := range a.Metadata {
		if b.Metadata[k] != v {
			return false
		}
	}
	return true
}
