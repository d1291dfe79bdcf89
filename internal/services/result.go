package services

import (
	"errors"
	"fmt"
)

// FailureKind classifies a business-rule failure. Failures are ordinary
// results; only store failures come back as errors.
type FailureKind string

const (
	// NotEligible covers both "no such check" and "not yours to act on".
	NotEligible       FailureKind = "NOT_ELIGIBLE"
	ExpiredWindow     FailureKind = "EXPIRED_WINDOW"
	MissingParameters FailureKind = "MISSING_PARAMETERS"
	Unsupported       FailureKind = "UNSUPPORTED"
)

var (
	ErrNotEligible       = errors.New("check not eligible")
	ErrExpiredWindow     = errors.New("revocation window expired")
	ErrMissingParameters = errors.New("missing parameters")
	ErrUnsupported       = errors.New("unsupported operation")
)

func (k FailureKind) Err() error {
	switch k {
	case NotEligible:
		return ErrNotEligible
	case ExpiredWindow:
		return ErrExpiredWindow
	case MissingParameters:
		return ErrMissingParameters
	case Unsupported:
		return ErrUnsupported
	}
	return nil
}

// Result is the outcome of one lifecycle operation. Success results carry the
// check id; failures carry a FailureKind.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	CheckID *int64      `json:"check_id,omitempty"`
	Failure FailureKind `json:"failure,omitempty"`

	// CounterpartyID is the party resolved while serving the operation, if any.
	CounterpartyID *int64 `json:"-"`
}

func succeeded(checkID int64, format string, args ...any) Result {
	id := checkID
	return Result{Success: true, Message: fmt.Sprintf(format, args...), CheckID: &id}
}

func failed(kind FailureKind, msg string) Result {
	return Result{Message: msg, Failure: kind}
}

// Err returns nil for a success, otherwise an error wrapping the kind's
// sentinel so callers can use errors.Is.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	sentinel := r.Failure.Err()
	if sentinel == nil {
		return errors.New(r.Message)
	}
	return fmt.Errorf("%w: %s", sentinel, r.Message)
}

func (r Result) withCounterparty(id int64) Result {
	r.CounterpartyID = &id
	return r
}
