// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeInvalidResponse
	ErrTypeNotFound
	ErrTypeCanceled
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the API client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.StatusCode == 0 && t.Cause == nil
}

// Sentinel errors for easy checking.
var (
	ErrTimeout  = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound = &ClientError{Type: ErrTypeNotFound, Message: "not found"}
	ErrCanceled = &ClientError{Type: ErrTypeCanceled, Message: "request cancelled"}
)

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCanceled reports whether err is a caller cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// statusError builds the error for a non-2xx JSON response.
func statusError(resp *http.Response) *ClientError {
	typ := ErrTypeStatus
	if resp.StatusCode == http.StatusNotFound {
		typ = ErrTypeNotFound
	}
	return &ClientError{
		Type:       typ,
		Message:    fmt.Sprintf("API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode: resp.StatusCode,
	}
}

// transportError categorizes an error from http.Client.Do.
func transportError(ctx context.Context, err error) *ClientError {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request cancelled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "connection failed", Cause: err}
}

// retryable reports whether a read should be retried after err.
func retryable(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Type {
	case ErrTypeConnection, ErrTypeTimeout:
		return true
	case ErrTypeStatus:
		return ce.StatusCode >= 500
	}
	return false
}
