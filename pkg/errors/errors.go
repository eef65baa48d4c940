// Package errors defines the error kinds used across the extractor and thin
// wrappers over github.com/cockroachdb/errors so that wrapped errors keep
// stack traces, hints and kind markers.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Standard error types
var (
	ErrAuthentication = crdb.New("authentication error")
	ErrConfiguration  = crdb.New("configuration error")
	ErrValidation     = crdb.New("validation error")
	ErrInput          = crdb.New("input error")
	ErrOutput         = crdb.New("output error")
	ErrHTTPRequest    = crdb.New("HTTP request error")
	ErrHTTPResponse   = crdb.New("HTTP response error")
	ErrExtraction     = crdb.New("data extraction error")
)

// Re-exported helpers so callers only import this package.
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	As           = crdb.As
	Mark         = crdb.Mark
	FlattenHints = crdb.FlattenHints
)

// WrapError wraps an error with a standard error type.
// The result satisfies Is(result, errType) and Is(result, err).
func WrapError(err error, errType error, message string) error {
	if err == nil {
		return nil
	}
	wrapped := crdb.WrapWithDepthf(1, err, "%s: %s", errType.Error(), message)
	return crdb.Mark(wrapped, errType)
}

// Is provides a convenience wrapper around errors.Is
func Is(err, target error) bool {
	return crdb.Is(err, target)
}

// Unwrap provides a convenience wrapper around errors.Unwrap
func Unwrap(err error) error {
	return crdb.Unwrap(err)
}
