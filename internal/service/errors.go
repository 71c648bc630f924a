// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package service contains the location mutation and cascade deletion
// logic that sits between the HTTP handlers and the store layer. The
// services take their persistence and authorization collaborators as
// interfaces so the tree and cascade rules are testable without a
// database.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure for the HTTP layer.
type Kind int

const (
	// KindValidation is malformed or missing input. Detected before any
	// persistence access.
	KindValidation Kind = iota
	// KindNotFound covers entities that are absent, soft-deleted, or
	// deliberately hidden from the caller.
	KindNotFound
	// KindForbidden is an authenticated caller lacking the required role,
	// used where revealing existence is acceptable.
	KindForbidden
	// KindConflict is a sibling slug collision at the same tree level.
	KindConflict
	// KindMaxDepth is a location nested beyond the depth limit. Reported
	// to clients as a validation failure, kept distinct for messaging.
	KindMaxDepth
	// KindInternal is a persistence failure or unexpected error. The
	// caller gets a generic message; details are logged server-side.
	KindInternal
)

// Error is the failure type returned by all service methods.
type Error struct {
	Kind Kind
	Msg  string
	err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.err }

// AsError extracts a *Error from err, or wraps err as internal if it
// is some other failure.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: KindInternal, Msg: "internal error", err: err}
}

func validationErr(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func notFoundErr(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func forbiddenErr(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func conflictErr(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func maxDepthErr(msg string) *Error {
	return &Error{Kind: KindMaxDepth, Msg: msg}
}

func internalErr(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, err: cause}
}
