// ABOUTME: Error taxonomy for pipeline operations
// ABOUTME: Classifies failures by kind and maps persistence conflicts onto user-facing errors
package pipeline

import (
	"errors"
	"fmt"

	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/resolve"
)

// Kind is the category of a pipeline failure.
type Kind string

const (
	// KindInput rejects the request before any OCR or resolution work.
	KindInput Kind = "input"
	// KindExtraction means no handle could be read from the screenshot.
	KindExtraction Kind = "extraction"
	// KindTemplate means the message does not match the stage template.
	KindTemplate Kind = "template"
	// KindResolution means the handle did not resolve to a usable cycle.
	KindResolution Kind = "resolution"
	// KindNotFound means the addressed record does not exist for the caller.
	KindNotFound Kind = "not_found"
	// KindInternal is an unexpected fault. Its cause is logged, never shown.
	KindInternal Kind = "internal"
)

// Reasons that are not resolver reasons.
const (
	ReasonDuplicateScreenshot = "duplicate_screenshot"
	ReasonDuplicateStage      = "duplicate_stage"
	ReasonAlreadyReviewed     = "already_reviewed"
	ReasonDuplicateHandle     = "duplicate_handle"
)

const internalMessage = "internal server error"

// Error is a classified pipeline failure.
type Error struct {
	Kind          Kind     `json:"kind"`
	Message       string   `json:"message"`
	Reason        string   `json:"reason,omitempty"`
	Candidates    []string `json:"candidates,omitempty"`
	ExpectedStage *int     `json:"expected_stage,omitempty"`
	DetectedStage *int     `json:"detected_stage,omitempty"`
	// Err is the underlying cause for internal faults.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a pipeline error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}

func inputError(reason, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: internalMessage, Err: err}
}

func resolutionError(res resolve.Result) *Error {
	return &Error{
		Kind:       KindResolution,
		Reason:     string(res.Reason),
		Message:    res.Error,
		Candidates: res.Candidates,
	}
}

// classify turns any error into a pipeline error. Uniqueness violations are
// the backstop for concurrent requests and read as the conflict the
// in-process checks would have reported.
func classify(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case errors.Is(err, db.ErrDuplicateHash):
		return inputError(ReasonDuplicateScreenshot, "this screenshot was already uploaded")
	case errors.Is(err, db.ErrDuplicateHandle):
		return &Error{
			Kind:    KindResolution,
			Reason:  ReasonDuplicateHandle,
			Message: "another prospect already uses this handle",
		}
	case errors.Is(err, db.ErrDuplicateCycle):
		return &Error{
			Kind:    KindResolution,
			Reason:  string(resolve.ReasonDuplicateCanvassing),
			Message: "this prospect was already canvassed by this staff member",
		}
	case errors.Is(err, db.ErrDuplicateStage):
		return &Error{
			Kind:    KindResolution,
			Reason:  ReasonDuplicateStage,
			Message: "this stage was already submitted for the cycle",
		}
	case errors.Is(err, db.ErrAlreadyReviewed):
		return inputError(ReasonAlreadyReviewed, "this message was already reviewed")
	}
	return internal(err)
}
