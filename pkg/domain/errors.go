package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSelector is returned when subscribing or unsubscribing with a selector
	// outside the known kinds, the wildcard and the lifecycle selectors.
	ErrInvalidSelector = errors.New("invalid event selector")

	// ErrUnknownTraceKind is returned when a trace cannot be classified at all.
	ErrUnknownTraceKind = errors.New("unknown trace kind")

	// ErrHandlerNotImplemented is returned when no typed handler exists for a trace kind or subtype.
	ErrHandlerNotImplemented = errors.New("handler not implemented")

	// ErrConversationEnded is returned when a turn is attempted after an end trace.
	ErrConversationEnded = errors.New("conversation has ended")

	// ErrSessionNotInitialized is returned when a turn is attempted before the initial state exists.
	ErrSessionNotInitialized = errors.New("session not initialized")

	// ErrMalformedTrace is returned when a trace payload lacks fields its kind requires.
	ErrMalformedTrace = errors.New("malformed trace")

	// ErrTurnInProgress is returned when a turn is started while another one is in flight.
	ErrTurnInProgress = errors.New("turn already in progress")

	// ErrHandlerTimeout is returned when a handler exceeds the configured timeout.
	ErrHandlerTimeout = errors.New("handler timed out")

	// ErrVariableUndefined is returned when reading a variable that is not in the bag.
	ErrVariableUndefined = errors.New("variable is undefined")

	// ErrNotSerializable is returned when a value cannot be stored in the variable bag.
	ErrNotSerializable = errors.New("value is not JSON serializable")

	// ErrStateNotCached is returned by a StateCache on a miss.
	ErrStateNotCached = errors.New("state not cached")
)

// UnknownKindError reports a trace kind (or a payload subtype) outside the known set.
type UnknownKindError struct {
	Kind    Kind
	Subtype string
}

func (e *UnknownKindError) Error() string {
	if e.Subtype != "" {
		return fmt.Sprintf("%s: %q has unknown subtype %q", ErrUnknownTraceKind, e.Kind, e.Subtype)
	}
	return fmt.Sprintf("%s: %q", ErrUnknownTraceKind, e.Kind)
}

func (e *UnknownKindError) Unwrap() error { return ErrUnknownTraceKind }

// NotImplementedError reports a missing typed handler for a kind, or for one
// subtype of a kind whose payload is itself a tagged union.
type NotImplementedError struct {
	Kind    Kind
	Subtype string
}

func (e *NotImplementedError) Error() string {
	if e.Subtype != "" {
		return fmt.Sprintf("%s: %q subtype of %q", ErrHandlerNotImplemented, e.Subtype, e.Kind)
	}
	return fmt.Sprintf("%s: %q", ErrHandlerNotImplemented, e.Kind)
}

func (e *NotImplementedError) Unwrap() error { return ErrHandlerNotImplemented }

// MalformedTraceError reports a payload that does not satisfy its kind's shape.
type MalformedTraceError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *MalformedTraceError) Error() string {
	msg := fmt.Sprintf("%s: kind=%q", ErrMalformedTrace, e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" field=%q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *MalformedTraceError) Unwrap() error { return ErrMalformedTrace }

// AsUnknownKind checks if err is an UnknownKindError and returns it.
func AsUnknownKind(err error) (*UnknownKindError, bool) {
	var target *UnknownKindError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsNotImplemented checks if err is a NotImplementedError and returns it.
func AsNotImplemented(err error) (*NotImplementedError, bool) {
	var target *NotImplementedError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
