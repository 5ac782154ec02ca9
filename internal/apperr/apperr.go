// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error kinds shared by every domain package.
// Callers test for a kind with errors.Is against the exported sentinels;
// handlers map kinds to HTTP status codes in one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel kinds. Wrapped *Error values match these via errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrLocked              = errors.New("locked")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Error carries a kind, the failing operation and a user-facing message.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or out-of-range input.
func Validation(op, format string, args ...any) error {
	return newErr(ErrValidation, op, format, args...)
}

// NotFound reports a missing entity, or one the actor may not see.
func NotFound(op, format string, args ...any) error {
	return newErr(ErrNotFound, op, format, args...)
}

// Forbidden reports an actor lacking ownership or privilege.
func Forbidden(op, format string, args ...any) error {
	return newErr(ErrForbidden, op, format, args...)
}

// Locked reports a write into a locked container.
func Locked(op, format string, args ...any) error {
	return newErr(ErrLocked, op, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(op, format string, args ...any) error {
	return newErr(ErrConflict, op, format, args...)
}

// Upstream wraps a failure talking to an external source.
func Upstream(op string, err error) error {
	return &Error{Kind: ErrUpstreamUnavailable, Op: op, Err: err}
}

// Message returns the user-facing message of err, falling back to the
// kind's text and finally to a generic message for unknown errors.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		return e.Kind.Error()
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrLocked, ErrConflict, ErrUpstreamUnavailable} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal server error"
}

// HTTPStatus maps an error to the status code a handler should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrLocked):
		return http.StatusLocked
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
