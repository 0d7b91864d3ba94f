package convert

import (
	"errors"
	"fmt"

	"clipforge/internal/services"
)

// Kind classifies a conversion failure.
type Kind string

const (
	KindInputNotFound                Kind = "INPUT_NOT_FOUND"
	KindProbeFailed                  Kind = "PROBE_FAILED"
	KindDurationExceeded             Kind = "DURATION_EXCEEDED"
	KindSizeExceeded                 Kind = "SIZE_EXCEEDED"
	KindUnsupportedFormat            Kind = "UNSUPPORTED_FORMAT"
	KindUnsupportedFormatForPlatform Kind = "UNSUPPORTED_FORMAT_FOR_PLATFORM"
	KindUnknownPlatform              Kind = "UNKNOWN_PLATFORM"
	KindConversionFailed             Kind = "CONVERSION_FAILED"
	KindPostConversion               Kind = "POST_CONVERSION_ERROR"
)

// Error is returned by every Converter operation.
type Error struct {
	Kind    Kind
	Op      string
	Timeout bool
	Err     error
}

// NewError builds an Error for op.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause and the matching services marker so callers can
// classify with errors.Is.
func (e *Error) Unwrap() []error {
	errs := []error{e.marker()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) marker() error {
	switch e.Kind {
	case KindInputNotFound:
		return services.ErrNotFound
	case KindPostConversion:
		return services.ErrExternalTool
	case KindProbeFailed, KindConversionFailed:
		if e.Timeout {
			return services.ErrTimeout
		}
		return services.ErrExternalTool
	default:
		return services.ErrValidation
	}
}

// KindOf returns the Kind carried by err, or "" when err is not a conversion
// error.
func KindOf(err error) Kind {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return ""
}

// IsTimeout reports whether err is a conversion that hit its wall-clock limit.
func IsTimeout(err error) bool {
	var convErr *Error
	return errors.As(err, &convErr) && convErr.Timeout
}
