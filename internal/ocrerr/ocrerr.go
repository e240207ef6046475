// Package ocrerr classifies every failure the service can report. Each stage
// converts its own errors into an *Error carrying a Kind before handing them
// on, so nothing unclassified reaches the HTTP layer.
package ocrerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNone             Kind = ""
	MissingImage         Kind = "missing_image"
	EmptySelection       Kind = "empty_selection"
	ImageTooLarge        Kind = "image_too_large"
	InvalidImage         Kind = "invalid_image"
	EngineUnavailable    Kind = "engine_unavailable"
	EngineSelfTestFailed Kind = "engine_self_test_failed"
	ServiceUnavailable   Kind = "service_unavailable"
	RecognitionFailed    Kind = "recognition_failed"
	InternalError        Kind = "internal_error"
)

// Error is a classified failure. Err holds the underlying cause, which is
// only ever logged.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain. Unclassified
// errors are InternalError; a nil error is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindNone {
		return e.Kind
	}
	return InternalError
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
