package sml

import "fmt"

// Fault classifies a directory failure. The service layer collapses every
// fault into one remote-coordination error code but keeps the fault reachable
// for diagnostics.
type Fault string

const (
	FaultBadRequest    Fault = "bad_request"
	FaultUnauthorized  Fault = "unauthorized"
	FaultNotFound      Fault = "not_found"
	FaultInternalError Fault = "internal_error"
	FaultTransport     Fault = "transport"
)

// Error is a typed directory failure.
type Error struct {
	Fault     Fault
	Operation string
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("sml %s: %s fault: %v", e.Operation, e.Fault, e.cause)
	}
	return fmt.Sprintf("sml %s: %s fault", e.Operation, e.Fault)
}

func (e *Error) Unwrap() error { return e.cause }

func newFault(fault Fault, operation string, cause error) *Error {
	return &Error{Fault: fault, Operation: operation, cause: cause}
}
