// Package toolregistry implements the gateway's Tool Registry: a static,
// process-startup-fixed name→(spec, handler) map consulted by tools/list
// and tools/call. Grounded on the teacher's tool_registry.go, trimmed of
// per-session refcounted locking (this registry's entries are immutable
// after startup; the Session Registry guards its map with a single mutex) and
// extended with the duplicate-name rejection spec.md §4.3 requires.
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
	"github.com/mcpgateway/mcpgw/internal/session"
	"github.com/mcpgateway/mcpgw/pkg/mcptypes"
)

// Handler executes one tools/call invocation of the tool it is registered
// under. sess is the zero Session when the caller operated without a
// session id in lenient mode.
type Handler func(ctx context.Context, sess session.Session, arguments json.RawMessage) mcptypes.ToolResponse

type entry struct {
	spec    mcptypes.ToolSpec
	handler Handler
}

// Registry is the gateway's fixed tool catalog. Safe for concurrent
// Call/List after New returns; Register is not safe to call concurrently
// with itself or with Call/List and is only ever used during startup wiring.
type Registry struct {
	order   []string
	entries map[string]entry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a tool, returning an error if its name is already taken —
// the gateway refuses to start with a duplicate tool name rather than let
// one silently shadow another (spec.md §4.3).
func (r *Registry) Register(spec mcptypes.ToolSpec, handler Handler) error {
	if spec.Name == "" {
		return gwerrors.New(gwerrors.KindInternal, "tool spec missing name")
	}
	if _, exists := r.entries[spec.Name]; exists {
		return gwerrors.New(gwerrors.KindInternal, fmt.Sprintf("duplicate tool name: %s", spec.Name))
	}
	r.entries[spec.Name] = entry{spec: spec, handler: handler}
	r.order = append(r.order, spec.Name)
	return nil
}

// MustRegister is Register, panicking on error. Only used at startup
// wiring time, where a duplicate or malformed tool spec is a programmer
// error that should fail fast rather than be handled.
func (r *Registry) MustRegister(spec mcptypes.ToolSpec, handler Handler) {
	if err := r.Register(spec, handler); err != nil {
		panic(err)
	}
}

// List returns every registered tool's spec, in registration order.
func (r *Registry) List() []mcptypes.ToolSpec {
	specs := make([]mcptypes.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.entries[name].spec)
	}
	return specs
}

// Call dispatches to name's handler. An unknown tool name or an arguments
// validation failure surfaces as ToolResponse{IsError:true}, per spec.md
// §4.1's propagation policy: handler-level failures become tool errors, not
// JSON-RPC errors. Call only returns a non-nil error for conditions the
// router itself must reject before ever reaching the tool layer.
func (r *Registry) Call(ctx context.Context, name string, sess session.Session, arguments json.RawMessage) (mcptypes.ToolResponse, error) {
	e, ok := r.entries[name]
	if !ok {
		return mcptypes.ErrorResponse("unknown tool: " + name), nil
	}
	if err := validateArguments(name, e.spec.InputSchema, arguments); err != nil {
		return mcptypes.ErrorResponse(err.Error()), nil
	}
	return e.handler(ctx, sess, arguments), nil
}
