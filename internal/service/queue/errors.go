package queue

import "errors"

// Kind classifies queue errors for transport bindings.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error is a business-rule rejection. Callers compare against the sentinels
// below with errors.Is.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

var (
	ErrClinicNotFound       = newError(KindNotFound, "ClinicNotFound", "clinic not found")
	ErrPatientNotFound      = newError(KindNotFound, "PatientNotFound", "patient not found in queue")
	ErrQueueNotOpen         = newError(KindInvalidState, "QueueNotOpen", "queue is not open")
	ErrInvalidState         = newError(KindInvalidState, "InvalidState", "queue is in the wrong state for this operation")
	ErrInvalidTransition    = newError(KindInvalidState, "InvalidTransition", "status transition not allowed")
	ErrAlreadyQueued        = newError(KindConflict, "AlreadyQueued", "patient is already in the queue")
	ErrPatientsStillWaiting = newError(KindConflict, "PatientsStillWaiting", "patients are still waiting")
	ErrQueueFull            = newError(KindConflict, "QueueFull", "queue has reached its capacity")
	ErrValidation           = newError(KindValidation, "Validation", "invalid input")
)

// KindOf returns the kind of a queue error, or KindInternal for anything else.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindInternal
}

// CodeOf returns the stable error code, or "Internal".
func CodeOf(err error) string {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return "Internal"
}
