package domain

import (
	"errors"
	"fmt"
)

// Booking engine error kinds. They are always wrapped in one of the typed
// errors below so callers can branch on both the kind and the HTTP class.
var (
	ErrStationNotOnRoute    = errors.New("station not on route")
	ErrInvalidDirection     = errors.New("invalid direction")
	ErrTrainNotFound        = errors.New("train not found")
	ErrSeatClassNotOffered  = errors.New("seat class not offered")
	ErrInsufficientSeats    = errors.New("insufficient seats")
	ErrNoPassengersSelected = errors.New("no passengers selected")
	ErrVersionConflict      = errors.New("version conflict")
	ErrPassengerNotFound    = errors.New("passenger not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid order transition")
	ErrStorageFailure       = errors.New("storage failure")
)

// DomainError keeps backward compatibility for generic codes.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

// StorageError wraps an unexpected persistence failure. The transaction it
// happened in has been rolled back; retrying is up to the caller.
func StorageError(op string, err error) error {
	return InternalError{
		Msg: "storage failure: " + op,
		Err: fmt.Errorf("%w: %w", ErrStorageFailure, err),
	}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}

// Code returns a stable snake_case code for err, used in API payloads.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStationNotOnRoute):
		return "station_not_on_route"
	case errors.Is(err, ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, ErrTrainNotFound):
		return "train_not_found"
	case errors.Is(err, ErrInsufficientSeats):
		return "insufficient_seats"
	case errors.Is(err, ErrSeatClassNotOffered):
		return "seat_class_not_offered"
	case errors.Is(err, ErrNoPassengersSelected):
		return "no_passengers_selected"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrPassengerNotFound):
		return "passenger_not_found"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case IsValidation(err):
		return "validation_error"
	case IsNotFound(err):
		return "not_found"
	case IsConflict(err):
		return "conflict"
	default:
		return "internal_error"
	}
}
