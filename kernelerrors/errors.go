// Package kernelerrors defines the classified error vocabulary shared by
// every kernel component. Errors are classified by Kind rather than by
// concrete type so callers can branch on errors.As/Kind without depending
// on which package raised the failure.
package kernelerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a kernel error for dispatch and receipt recording.
type Kind string

const (
	KindStructure             Kind = "StructureError"
	KindDoctrineBreach        Kind = "DoctrineBreach"
	KindBudgetExceeded        Kind = "BudgetExceeded"
	KindPatternNotFound       Kind = "PatternNotFound"
	KindSnapshotNotFound      Kind = "SnapshotNotFound"
	KindCaseNotFound          Kind = "CaseNotFound"
	KindPreconditionNotMet    Kind = "PreconditionNotSatisfied"
	KindExternal              Kind = "ExternalError"
	KindSuperseded            Kind = "Superseded"
	KindDuplicateSnapshot     Kind = "DuplicateSnapshot"
	KindNoMatchingBranch      Kind = "NoMatchingBranch"
	KindGuardNotReady         Kind = "GuardNotReady"
)

// Error is a classified kernel error. Subject identifies the entity the
// error is about (a case id, snapshot hash, pattern id, ...).
type Error struct {
	Kind    Kind
	Subject string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retriable reports whether the Case Engine may retry the operation that
// produced this error, per spec §7's propagation policy.
func (e *Error) Retriable() bool {
	switch e.Kind {
	case KindPreconditionNotMet, KindGuardNotReady, KindExternal, KindSuperseded:
		return true
	default:
		return false
	}
}

// Fatal reports whether the error must escalate to the Supervision Tree
// and fail the case.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindStructure, KindDoctrineBreach:
		return true
	default:
		return false
	}
}

func New(kind Kind, subject, message string) *Error {
	return &Error{Kind: kind, Subject: subject, Message: message}
}

func Wrap(kind Kind, subject, message string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, or "" if err is not a kernel error.
func KindOf(err error) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ""
}

// Is reports whether err is a kernel error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

var (
	ErrSnapshotNotFound  = New(KindSnapshotNotFound, "", "snapshot not found")
	ErrDuplicateSnapshot = New(KindDuplicateSnapshot, "", "snapshot already exists")
	ErrSuperseded        = New(KindSuperseded, "", "promotion lost the race")
	ErrPatternNotFound   = New(KindPatternNotFound, "", "pattern id out of range")
	ErrCaseNotFound      = New(KindCaseNotFound, "", "case not found")
	ErrNoMatchingBranch  = New(KindNoMatchingBranch, "", "no outgoing predicate matched")
)
