package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a consensus-layer error per spec.md SS7, so the
// broker/session layer and the (out-of-scope) API layer can decide peer
// actions and HTTP-style status codes without re-deriving the reason a call
// failed.
type ErrorKind int

const (
	// KindIO covers KV/filesystem failures. Retried once at the operation
	// boundary on transient codes by the caller, otherwise surfaced.
	KindIO ErrorKind = iota
	// KindValidation covers bad header targets, bad signatures, bad txs
	// roots, and orphans. Never retried; the peer that supplied the data
	// is penalized.
	KindValidation
	// KindMissingDependency covers a block referencing an unknown parent
	// or dep. The hash is queued for download; the original operation
	// stays pending.
	KindMissingDependency
	// KindSpam covers unexpected protocol payloads. The connection is
	// closed and a misbehavior update is recorded.
	KindSpam
	// KindCapacity covers pool-full rejections. Reported to the submitter,
	// non-fatal.
	KindCapacity
	// KindInternal covers assert-class invariant violations. Fatal.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "IO"
	case KindValidation:
		return "Validation"
	case KindMissingDependency:
		return "MissingDependency"
	case KindSpam:
		return "Spam"
	case KindCapacity:
		return "Capacity"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// HTTPStatus maps an ErrorKind to the HTTP-style status code spec.md SS7
// assigns it, for the (out-of-scope) API layer to reuse without redefining
// this mapping.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindSpam, KindCapacity:
		return 400
	case KindMissingDependency:
		return 404
	case KindIO:
		return 503
	case KindInternal:
		return 500
	default:
		return 500
	}
}

// KindedError is a classified consensus error. Grounded on the teacher's
// domain/consensus/ruleerrors.RuleError: a message plus an optional wrapped
// cause, satisfying errors.Unwrap/Cause so %+v prints the full chain.
type KindedError struct {
	Kind    ErrorKind
	Message string
	inner   error
}

func (e *KindedError) Error() string {
	if e.inner != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.inner.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap satisfies errors.Unwrap.
func (e *KindedError) Unwrap() error { return e.inner }

// Cause satisfies github.com/pkg/errors.Cause.
func (e *KindedError) Cause() error { return e.inner }

// NewKindedError constructs a classified error wrapping cause (which may be
// nil).
func NewKindedError(kind ErrorKind, message string, cause error) error {
	return errors.WithStack(&KindedError{Kind: kind, Message: message, inner: cause})
}

// AsKindedError extracts the ErrorKind from err, if it (or something it
// wraps) is a *KindedError. ok is false for errors this layer never
// classified.
func AsKindedError(err error) (kind ErrorKind, ok bool) {
	var ke *KindedError
	if errors.As(err, &ke) {
		return ke.Kind, true
	}
	return 0, false
}

// ErrMissingParent indicates a header/block references a parent hash this
// node has not yet accepted.
func ErrMissingParent(hash Hash) error {
	return NewKindedError(KindMissingDependency, fmt.Sprintf("missing parent %s", hash), nil)
}

// ErrMissingBlock indicates BlockFlow needed a block it does not have. The
// caller is expected to queue hash for download rather than treat this as
// fatal.
func ErrMissingBlock(hash Hash) error {
	return NewKindedError(KindMissingDependency, fmt.Sprintf("missing block %s", hash), nil)
}

// ErrInvalidExecution indicates a block's transactions failed to execute
// against its parent's world state.
func ErrInvalidExecution(cause error) error {
	return NewKindedError(KindValidation, "invalid execution", cause)
}
