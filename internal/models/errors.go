package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure a core operation can return. The
// transport layer maps kinds to HTTP statuses; the core never retries.
type ErrorKind string

const (
	KindMissingInput            ErrorKind = "missing_input"
	KindInvalidImage            ErrorKind = "invalid_image"
	KindImageTooLarge           ErrorKind = "image_too_large"
	KindModelUnavailable        ErrorKind = "model_unavailable"
	KindInferenceFailed         ErrorKind = "inference_failed"
	KindTimeout                 ErrorKind = "timeout"
	KindUnknownRegion           ErrorKind = "unknown_region"
	KindInvalidRegionDefinition ErrorKind = "invalid_region_definition"
	KindMalformedBaseDocument   ErrorKind = "malformed_base_document"
)

// Error carries exactly one ErrorKind with a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewError builds a kinded error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, unwrapping as needed. Errors that
// did not originate in the core report as KindInferenceFailed so the boundary
// always has a status to map.
func KindOf(err error) ErrorKind {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Kind
	}
	return KindInferenceFailed
}
