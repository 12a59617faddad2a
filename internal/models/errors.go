package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrQueryTooShort     = errors.New("query too short")
	ErrNotFound          = errors.New("not found")
	ErrEmptyInput        = errors.New("empty input")
	ErrConflict          = errors.New("conflict")
	ErrTooLarge          = errors.New("payload too large")
	ErrInternal          = errors.New("internal error")
)

// Machine-readable codes carried by failed pipeline stages.
const (
	CodeUnsupportedFormat   = "unsupported_format"
	CodeScannedNotSupported = "scanned_not_supported"
	CodeCorruptContent      = "corrupt_content"
	CodeTimeout             = "timeout"
	CodeInterrupted         = "interrupted"
	CodeInternal            = "internal"
)

// ExtractionError is returned by extractors. Code tells the caller whether a retry makes sense.
type ExtractionError struct {
	Code    string
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Retryable reports whether running the same input again could succeed.
func (e *ExtractionError) Retryable() bool {
	switch e.Code {
	case CodeUnsupportedFormat, CodeScannedNotSupported:
		return false
	}
	return true
}

// NewExtractionError builds an ExtractionError. Unsupported and scanned input wrap ErrUnsupportedFormat.
func NewExtractionError(code, msg string, err error) *ExtractionError {
	if err == nil && (code == CodeUnsupportedFormat || code == CodeScannedNotSupported) {
		err = ErrUnsupportedFormat
	}
	return &ExtractionError{Code: code, Message: msg, Err: err}
}

// ErrorCode extracts the machine-readable code from err, or CodeInternal.
func ErrorCode(err error) string {
	var ee *ExtractionError
	if errors.As(err, &ee) && ee.Code != "" {
		return ee.Code
	}
	return CodeInternal
}
