package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveTask is returned when a save is requested before any download
	ErrNoActiveTask = errors.New("no active download task")
	// ErrSaveSuppressed is returned when the save action is not offered
	ErrSaveSuppressed = errors.New("save action not available")
	// ErrNoTarget is returned when a download is requested before analysis
	ErrNoTarget = errors.New("nothing analyzed yet")
	// ErrSuperseded is returned to a flow replaced by a newer one
	ErrSuperseded = errors.New("download flow superseded")
)

// ValidationError is bad user input caught before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ServiceError is a non-2xx answer of the service
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	return e.Detail
}

// TransportError is a network or progress channel failure
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TaskError is an explicit error status reported for a task
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	return e.Message
}

// UserMessage returns the text shown to the user for err
func UserMessage(err error) string {
	var (
		validation *ValidationError
		service    *ServiceError
		task       *TaskError
		transport  *TransportError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &service):
		return service.Detail
	case errors.As(err, &task):
		return task.Message
	case errors.As(err, &transport):
		return "connection error: " + transport.Err.Error()
	default:
		return err.Error()
	}
}

// IsItemFailure reports whether err is a per-download failure that a batch
// skips over
func IsItemFailure(err error) bool {
	var (
		service   *ServiceError
		task      *TaskError
		transport *TransportError
	)
	return errors.As(err, &service) || errors.As(err, &task) || errors.As(err, &transport)
}
