package editor

import (
	"errors"
	"fmt"
)

// Kind categorizes an editing failure. Every failure surfaced by the session
// surface is an *Error carrying one of these kinds.
type Kind int

const (
	// KindUnknownTool indicates a tool id outside the catalog.
	KindUnknownTool Kind = iota
	// KindUnknownBackground indicates a background preset id outside the catalog.
	KindUnknownBackground
	// KindMissingHotspot indicates a point tool was submitted without a click.
	KindMissingHotspot
	// KindMissingInstruction indicates a text tool was submitted with blank text.
	KindMissingInstruction
	// KindNoImageLoaded indicates an operation that needs an image ran before upload.
	KindNoImageLoaded
	// KindInvalidGeometry indicates a click against a zero-sized display area.
	KindInvalidGeometry
	// KindInvalidVersion indicates an empty or undecodable image payload.
	KindInvalidVersion
	// KindUnsupportedOperation indicates the active tool cannot be submitted
	// (local tools, no tool selected, no archive configured).
	KindUnsupportedOperation
	// KindOrchestratorBusy indicates another edit is still in flight.
	KindOrchestratorBusy
	// KindRefused indicates the backend blocked or declined the request.
	KindRefused
	// KindMalformedResponse indicates the backend answered without a usable image.
	KindMalformedResponse
	// KindTransportFailure indicates a network error or non-2xx status.
	KindTransportFailure
	// KindTimeout indicates the caller-imposed deadline expired.
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknownTool:          "UnknownTool",
	KindUnknownBackground:    "UnknownBackground",
	KindMissingHotspot:       "MissingHotspot",
	KindMissingInstruction:   "MissingInstruction",
	KindNoImageLoaded:        "NoImageLoaded",
	KindInvalidGeometry:      "InvalidGeometry",
	KindInvalidVersion:       "InvalidVersion",
	KindUnsupportedOperation: "UnsupportedOperation",
	KindOrchestratorBusy:     "OrchestratorBusy",
	KindRefused:              "Refused",
	KindMalformedResponse:    "MalformedResponse",
	KindTransportFailure:     "TransportFailure",
	KindTimeout:              "Timeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsInputError reports whether the kind is caller misuse or missing user input.
// Input errors are always detected before any network call.
func (k Kind) IsInputError() bool {
	switch k {
	case KindUnknownTool, KindUnknownBackground, KindMissingHotspot, KindMissingInstruction,
		KindNoImageLoaded, KindInvalidGeometry, KindInvalidVersion, KindUnsupportedOperation:
		return true
	}
	return false
}

// IsBackendError reports whether the kind originates from the external service.
func (k Kind) IsBackendError() bool {
	switch k {
	case KindRefused, KindMalformedResponse, KindTransportFailure, KindTimeout:
		return true
	}
	return false
}

// Error is the structured failure returned by every editing operation.
type Error struct {
	Kind Kind
	// Op is the operation the failure belongs to (e.g. "filter"). May be empty
	// for failures that are not tied to one operation.
	Op      Operation
	Message string
	Err     error
}

// NewError builds an *Error. cause may be nil.
func NewError(kind Kind, op Operation, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = string(e.Op) + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, editor.ErrMissingHotspot).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Cause returns the human-readable cause, suitable for display without a stack trace.
func (e *Error) Cause() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Sentinels for errors.Is matching.
var (
	ErrUnknownTool          = &Error{Kind: KindUnknownTool}
	ErrUnknownBackground    = &Error{Kind: KindUnknownBackground}
	ErrMissingHotspot       = &Error{Kind: KindMissingHotspot}
	ErrMissingInstruction   = &Error{Kind: KindMissingInstruction}
	ErrNoImageLoaded        = &Error{Kind: KindNoImageLoaded}
	ErrInvalidGeometry      = &Error{Kind: KindInvalidGeometry}
	ErrInvalidVersion       = &Error{Kind: KindInvalidVersion}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
	ErrOrchestratorBusy     = &Error{Kind: KindOrchestratorBusy}
	ErrRefused              = &Error{Kind: KindRefused}
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse}
	ErrTransportFailure     = &Error{Kind: KindTransportFailure}
	ErrTimeout              = &Error{Kind: KindTimeout}
)

// KindOf extracts the kind from err. ok is false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
