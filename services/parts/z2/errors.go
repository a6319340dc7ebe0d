// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package z2

import (
	"errors"
	"fmt"
)

// ErrorKind classifies client failures so callers can branch without
// string matching.
type ErrorKind string

const (
	// KindEntityNotFound means validation returned no positive match for
	// the part or company.
	KindEntityNotFound ErrorKind = "entity_not_found"

	// KindUpstream means the gateway answered with a non-2xx status.
	KindUpstream ErrorKind = "upstream_error"

	// KindTimeout means a call exceeded the request timeout or the
	// context deadline.
	KindTimeout ErrorKind = "timeout"
)

// Error is the typed failure returned by all client operations.
//
// Description:
//
//	Carries the failure kind plus whatever diagnostic detail the gateway
//	provided: the HTTP status for upstream errors, and the match
//	status/reason strings for failed validations.
type Error struct {
	Kind       ErrorKind
	Message    string
	HTTPStatus int

	// MatchStatus and MatchReason come from a negative validation result
	// (e.g. "No Match" / "Low confidence"). Empty for other kinds.
	MatchStatus string
	MatchReason string
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("z2: %s (status %d)", e.Message, e.HTTPStatus)
	}
	return "z2: " + e.Message
}

// notFoundError builds a KindEntityNotFound error for a failed validation.
func notFoundError(message, matchStatus, matchReason string) *Error {
	return &Error{
		Kind:        KindEntityNotFound,
		Message:     message,
		MatchStatus: matchStatus,
		MatchReason: matchReason,
	}
}

// upstreamError builds a KindUpstream error for a non-2xx response.
func upstreamError(endpoint string, status int) *Error {
	return &Error{
		Kind:       KindUpstream,
		Message:    fmt.Sprintf("%s returned an error", endpoint),
		HTTPStatus: status,
	}
}

// timeoutError builds a KindTimeout error.
func timeoutError(endpoint string) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("%s timed out", endpoint),
	}
}

// AsError unwraps err into *Error when possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFound reports whether err is a KindEntityNotFound failure.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindEntityNotFound
}
