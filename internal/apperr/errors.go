// Package apperr: error kinds shared by the workflows and the HTTP layer
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUpload            = errors.New("image upload failed")
	ErrClassification    = errors.New("classification failed")
	ErrNotFound          = errors.New("report not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPersistence       = errors.New("persistence failed")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Upload(err error) error { return fmt.Errorf("%w: %w", ErrUpload, err) }

func Classification(err error) error { return fmt.Errorf("%w: %w", ErrClassification, err) }

func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func NotFound(id string) error { return fmt.Errorf("%w: %s", ErrNotFound, id) }

func Unauthorized(reason string) error { return fmt.Errorf("%w: %s", ErrUnauthorized, reason) }

func Forbidden(reason string) error { return fmt.Errorf("%w: %s", ErrForbidden, reason) }

func InvalidTransition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Kind is the machine-readable error class returned to clients.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUpload            Kind = "upload"
	KindClassification    Kind = "classification"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindPersistence       Kind = "persistence"
	KindInternal          Kind = "internal"
)

var table = []struct {
	err    error
	kind   Kind
	status int
}{
	{ErrValidation, KindValidation, http.StatusBadRequest},
	{ErrNotFound, KindNotFound, http.StatusNotFound},
	{ErrUnauthorized, KindUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, KindForbidden, http.StatusForbidden},
	{ErrInvalidTransition, KindInvalidTransition, http.StatusConflict},
	{ErrUpload, KindUpload, http.StatusBadGateway},
	{ErrClassification, KindClassification, http.StatusBadGateway},
	{ErrPersistence, KindPersistence, http.StatusInternalServerError},
}

// KindOf classifies err; anything unknown is internal.
func KindOf(err error) Kind {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindInternal
}

// HTTPStatus maps err to a status code: client mistakes are 4xx, server faults 5xx.
func HTTPStatus(err error) int {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// IsClient reports whether err was caused by the caller.
func IsClient(err error) bool {
	s := HTTPStatus(err)
	return s >= 400 && s < 500
}
