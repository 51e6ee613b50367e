// Package errs defines the error taxonomy shared across the lifecycle
// engine (spec.md §7), following the teacher's RegistryError shape: a
// typed struct with a classification enum, an optional wrapped cause, and
// Error()/Unwrap() so callers can use errors.As against a specific Type.
package errs

import "fmt"

// Type classifies a lifecycle error for CLI exit-code mapping and
// per-target propagation decisions (spec.md §7).
type Type int

const (
	// Config indicates missing/invalid configuration, a duplicate
	// repository name, or an undefined env var referenced by a path.
	// Fatal; aborts before any target runs.
	Config Type = iota

	// NotFound indicates a query matched nothing in the catalog.
	NotFound

	// Ambiguous indicates a query matched multiple rows and requires
	// interactive disambiguation.
	Ambiguous

	// ChecksumMismatch indicates a downloaded artifact's blake3 digest
	// did not match the catalog's declared digest.
	ChecksumMismatch

	// IOFailed indicates a disk or network failure, retryable at the
	// per-target level.
	IOFailed

	// NotOurs indicates a filesystem entry the system was asked to
	// replace or remove lacks the ownership marker.
	NotOurs

	// BadBundle indicates a bundle signature mismatch, missing
	// compressed-FS magic, or symlink recursion while inspecting one.
	BadBundle

	// LedgerCorrupt indicates a ledger row failed an integrity check.
	LedgerCorrupt
)

func (t Type) String() string {
	switch t {
	case Config:
		return "Config"
	case NotFound:
		return "NotFound"
	case Ambiguous:
		return "Ambiguous"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case IOFailed:
		return "IOFailed"
	case NotOurs:
		return "NotOurs"
	case BadBundle:
		return "BadBundle"
	case LedgerCorrupt:
		return "LedgerCorrupt"
	default:
		return "Unknown"
	}
}

// Error is a typed lifecycle error carrying the package identity the
// failure concerns, when known.
type Error struct {
	Kind    Type
	Pkg     string // repo/pkg_name identity, when applicable; empty for config errors
	Message string
	Err     error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Pkg != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Pkg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is matching against any *Error target by comparing
// Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Type, pkg, message string) *Error {
	return &Error{Kind: kind, Pkg: pkg, Message: message}
}

// Wrap constructs an Error of the given kind around a cause.
func Wrap(kind Type, pkg, message string, cause error) *Error {
	return &Error{Kind: kind, Pkg: pkg, Message: message, Err: cause}
}

// KindOf extracts the Type of err if it is (or wraps) an *Error, and
// reports whether one was found.
func KindOf(err error) (Type, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return 0, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
