// Package server provides the HTTP REST API for idea evaluation jobs.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/idea-scout/internal/db"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing or unusable session token
type ErrUnauthorized struct {
	Reason string
}

func (e *ErrUnauthorized) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

// ErrForbidden indicates the resource belongs to another session
type ErrForbidden struct {
	Resource string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("%s belongs to another session", e.Resource)
}

// ErrNotReady indicates a job has not produced the requested output yet
type ErrNotReady struct {
	JobID  string
	Status string
}

func (e *ErrNotReady) Error() string {
	return fmt.Sprintf("job %s is %s", e.JobID, e.Status)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation   *ErrValidation
		unauthorized *ErrUnauthorized
		forbidden    *ErrForbidden
		notReady     *ErrNotReady
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notReady):
		return http.StatusConflict
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
