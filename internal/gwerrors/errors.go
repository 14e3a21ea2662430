// Package gwerrors realizes the gateway's error-kind taxonomy (spec.md §7)
// as a small struct-error type, grounded on the teacher's
// internal/agent.ToolError/ToolErrorType pattern.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a GatewayError for propagation-policy purposes. These
// are design kinds, not wire-level error codes: the JSON-RPC router and
// the chat orchestrator each map a Kind to their own surface (a JSON-RPC
// error object, or a ToolResponse{IsError:true}).
type Kind string

const (
	KindValidation          Kind = "validation"
	KindSession             Kind = "session"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindProviderTransport   Kind = "provider_transport"
	KindProviderRejected    Kind = "provider_rejected"
	KindThinkTool           Kind = "think_tool"
	KindMaxTurns            Kind = "max_turns"
	KindCancelled           Kind = "cancelled"
	KindInternal            Kind = "internal"
)

// GatewayError is the gateway's structured error type. ResponseID is
// populated when the failure occurred while a provider response id was
// already known (ProviderRejected per spec.md §7).
type GatewayError struct {
	Kind       Kind
	Message    string
	ResponseID string
	Cause      error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *GatewayError {
	return &GatewayError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Cause: cause}
}

func (e *GatewayError) WithResponseID(id string) *GatewayError {
	e.ResponseID = id
	return e
}

// KindOf returns the Kind of err if it is (or wraps) a *GatewayError, and
// KindInternal otherwise.
func KindOf(err error) Kind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// Sentinel errors naming two terminal conditions. The orchestrator does not
// return or wrap either value, so errors.Is against them does not match its
// results.
var (
	// ErrCancelled carries the same message as the KindCancelled
	// GatewayError the orchestrator returns when a chat invocation's
	// context is cancelled mid-turn.
	ErrCancelled = errors.New("chat invocation cancelled")

	// ErrMaxTurns names the MAX_TURNS guardrail; the orchestrator reports
	// that condition as an error ToolResponse, not as this error.
	ErrMaxTurns = errors.New("reached maximum tool iterations without completion")
)
