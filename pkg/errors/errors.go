package errors

import (
	"fmt"
	"io"
	"strings"
)

// HarmonyError is the interface implemented by all errors raised by the
// object model and the proxy validation layer.
type HarmonyError interface {
	error
	Kind() string // e.g., "Descriptor", "Invariant", "Revoked"
	// Message returns the specific error message without the kind prefix.
	Message() string
	Unwrap() error
}

// --- Concrete Error Types ---

// DescriptorError is raised when a raw value cannot be normalized into a
// property descriptor (InvalidDescriptorShape).
type DescriptorError struct {
	Msg   string
	Cause error
}

func (e *DescriptorError) Error() string   { return "Descriptor Error: " + e.Msg }
func (e *DescriptorError) Kind() string    { return "Descriptor" }
func (e *DescriptorError) Message() string { return e.Msg }
func (e *DescriptorError) Unwrap() error   { return e.Cause }
func (e *DescriptorError) CausedBy(cause error) *DescriptorError {
	e.Cause = cause
	return e
}

// NewDescriptorError formats a DescriptorError.
func NewDescriptorError(format string, args ...any) *DescriptorError {
	return &DescriptorError{Msg: fmt.Sprintf(format, args...)}
}

// Reason discriminates the individual invariants a trap answer can break.
type Reason string

const (
	ReasonSealedReportedAbsent       Reason = "sealed-reported-absent"
	ReasonFixedReportedAbsent        Reason = "fixed-reported-absent"
	ReasonNewPropertyOnNonExtensible Reason = "new-property-on-non-extensible"
	ReasonIncompatibleDescriptor     Reason = "incompatible-descriptor"
	ReasonNonConfigurableNotSealed   Reason = "non-configurable-not-sealed"
	ReasonSealedDeleted              Reason = "sealed-deleted"
	ReasonDuplicateName              Reason = "duplicate-name"
	ReasonSealedOmitted              Reason = "sealed-omitted"
	ReasonFixedOmitted               Reason = "fixed-omitted"
	ReasonSealedNonEnumerableListed  Reason = "sealed-non-enumerable-listed"
	ReasonFrozenValueMismatch        Reason = "frozen-value-mismatch"
	ReasonGetterlessAccessorValue    Reason = "getterless-accessor-value"
	ReasonFrozenAssignment           Reason = "frozen-assignment"
	ReasonSetterlessAssignment       Reason = "setterless-assignment"
	ReasonStateMismatch              Reason = "state-mismatch"
	ReasonPrototypeMismatch          Reason = "prototype-mismatch"
	ReasonStateNotReached            Reason = "state-not-reached"
	ReasonConstructResultNotObject   Reason = "construct-result-not-object"
)

// InvariantViolation is raised when a trap answer contradicts the state of
// the proxy's backing record.
type InvariantViolation struct {
	Operation   string
	Property    string
	HasProperty bool // Property is meaningful only when set
	Reason      Reason
	Msg         string
	Cause       error
}

func (e *InvariantViolation) Error() string {
	if e.HasProperty {
		return fmt.Sprintf("Invariant Violation in '%s' for property '%s': %s", e.Operation, e.Property, e.Msg)
	}
	return fmt.Sprintf("Invariant Violation in '%s': %s", e.Operation, e.Msg)
}
func (e *InvariantViolation) Kind() string    { return "Invariant" }
func (e *InvariantViolation) Message() string { return e.Msg }
func (e *InvariantViolation) Unwrap() error   { return e.Cause }
func (e *InvariantViolation) CausedBy(cause error) *InvariantViolation {
	e.Cause = cause
	return e
}

// NewInvariantViolation builds a violation that is not tied to a property.
func NewInvariantViolation(op string, reason Reason, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Operation: op, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// NewPropertyViolation builds a violation about a single named property.
func NewPropertyViolation(op, name string, reason Reason, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{
		Operation:   op,
		Property:    name,
		HasProperty: true,
		Reason:      reason,
		Msg:         fmt.Sprintf(format, args...),
	}
}

// NotCallableError is raised when apply/construct reach a non-callable target.
type NotCallableError struct {
	Operation string
	Msg       string
	Cause     error
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("Not Callable in '%s': %s", e.Operation, e.Msg)
}
func (e *NotCallableError) Kind() string    { return "NotCallable" }
func (e *NotCallableError) Message() string { return e.Msg }
func (e *NotCallableError) Unwrap() error   { return e.Cause }

// RevokedProxyError is raised by every operation on a revoked proxy.
type RevokedProxyError struct {
	Operation string
	Cause     error
}

func (e *RevokedProxyError) Error() string {
	return fmt.Sprintf("Revoked Proxy: cannot perform '%s' on a proxy that has been revoked", e.Operation)
}
func (e *RevokedProxyError) Kind() string    { return "Revoked" }
func (e *RevokedProxyError) Message() string { return "proxy is revoked" }
func (e *RevokedProxyError) Unwrap() error   { return e.Cause }

// InvalidTrapError is raised when a handler defines a trap that is not callable.
type InvalidTrapError struct {
	Trap  string
	Msg   string
	Cause error
}

func (e *InvalidTrapError) Error() string {
	return fmt.Sprintf("Invalid Trap '%s': %s", e.Trap, e.Msg)
}
func (e *InvalidTrapError) Kind() string    { return "InvalidTrap" }
func (e *InvalidTrapError) Message() string { return e.Msg }
func (e *InvalidTrapError) Unwrap() error   { return e.Cause }

// TypeError represents a rejected structural operation at the host level,
// e.g. a freeze request refused by a handler or a failed assignment.
type TypeError struct {
	Msg   string
	Cause error
}

func (e *TypeError) Error() string   { return "Type Error: " + e.Msg }
func (e *TypeError) Kind() string    { return "Type" }
func (e *TypeError) Message() string { return e.Msg }
func (e *TypeError) Unwrap() error   { return e.Cause }
func (e *TypeError) CausedBy(cause error) *TypeError {
	e.Cause = cause
	return e
}

// NewTypeError formats a TypeError.
func NewTypeError(format string, args ...any) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// --- Error Reporting ---

// DisplayErrors writes a list of errors to w, one block per error, with the
// error kind and, for invariant violations, the broken rule.
func DisplayErrors(w io.Writer, errs []HarmonyError) {
	for _, err := range errs {
		fmt.Fprintf(w, "%s Error: %s\n", err.Kind(), err.Message())
		if iv, ok := err.(*InvariantViolation); ok {
			var b strings.Builder
			b.WriteString("  operation: " + iv.Operation)
			if iv.HasProperty {
				b.WriteString(", property: " + iv.Property)
			}
			b.WriteString(", reason: " + string(iv.Reason))
			fmt.Fprintln(w, b.String())
		}
		fmt.Fprintln(w)
	}
}
