package lifecycle

import (
	"errors"
	"fmt"
)

// Operation names a lifecycle entry point
type Operation string

const (
	OpFaults     Operation = "faults"
	OpAddVlan    Operation = "add-vlan"
	OpRemoveVlan Operation = "remove-vlan"
	OpProvision  Operation = "provision"
	OpReset      Operation = "reset"
)

// Outcome classifies a completed operation
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNoChange
	OutcomeValidationError
	OutcomeConnectivityError
	OutcomeStateConfirmationError
	OutcomeResourceUnavailable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoChange:
		return "no-change"
	case OutcomeValidationError:
		return "validation-error"
	case OutcomeConnectivityError:
		return "connectivity-error"
	case OutcomeStateConfirmationError:
		return "state-confirmation-error"
	case OutcomeResourceUnavailable:
		return "resource-unavailable"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Failed reports whether the outcome is an error
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSuccess, OutcomeNoChange:
		return false
	case OutcomeValidationError, OutcomeConnectivityError, OutcomeStateConfirmationError,
		OutcomeResourceUnavailable, OutcomeFatal:
		return true
	default:
		return true
	}
}

// outcomeFor maps an error kind to the outcome reported to callers
func outcomeFor(kind ErrorKind) Outcome {
	switch kind {
	case KindNone:
		return OutcomeSuccess
	case KindValidation:
		return OutcomeValidationError
	case KindConnectivity:
		return OutcomeConnectivityError
	case KindStateConfirmation:
		return OutcomeStateConfirmationError
	case KindResourceUnavailable:
		return OutcomeResourceUnavailable
	case KindFatal:
		return OutcomeFatal
	default:
		return OutcomeFatal
	}
}

// Result is the answer to one lifecycle request. Every operation returns
// exactly one Result with a non-empty Message.
type Result struct {
	Operation Operation
	Outcome   Outcome
	Message   string

	// Err is the classified failure, nil on success and no-change
	Err error
}

// Text returns the human-readable message
func (r Result) Text() string {
	return r.Message
}

// EndSession reports whether the voice interaction ends with this answer.
// Every lifecycle operation is a one-shot request.
func (r Result) EndSession() bool {
	return true
}

func succeeded(op Operation, message string) Result {
	return Result{Operation: op, Outcome: OutcomeSuccess, Message: message}
}

func unchanged(op Operation, message string) Result {
	return Result{Operation: op, Outcome: OutcomeNoChange, Message: message}
}

// failed converts err into a Result. Unclassified errors get the
// operation's generic failure text.
func failed(op Operation, err error) Result {
	kind := KindOf(err)
	message := fatalMessage(op)
	var le *Error
	if errors.As(err, &le) && le.Message != "" {
		message = le.Message
	}
	return Result{Operation: op, Outcome: outcomeFor(kind), Message: message, Err: err}
}
