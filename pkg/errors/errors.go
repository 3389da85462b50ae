package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of caller-facing failure.
type ErrorCode int

const (
	ErrValidation ErrorCode = iota + 1000
	ErrConflict
	ErrSlotUnavailable
	ErrNotFound
	ErrAuthorization
	ErrStateTransition
	ErrInternal
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
	}
}

func NewConflict(message string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
	}
}

func NewSlotUnavailable(message string) *AppError {
	return &AppError{
		Code:    ErrSlotUnavailable,
		Message: message,
	}
}

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewAuthorization(message string) *AppError {
	return &AppError{
		Code:    ErrAuthorization,
		Message: message,
	}
}

func NewStateTransition(message string) *AppError {
	return &AppError{
		Code:    ErrStateTransition,
		Message: message,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// IsCode reports whether err (or anything it wraps) is an AppError
// carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsValidation(err error) bool      { return IsCode(err, ErrValidation) }
func IsConflict(err error) bool        { return IsCode(err, ErrConflict) }
func IsSlotUnavailable(err error) bool { return IsCode(err, ErrSlotUnavailable) }
func IsNotFound(err error) bool        { return IsCode(err, ErrNotFound) }
func IsAuthorization(err error) bool   { return IsCode(err, ErrAuthorization) }
func IsStateTransition(err error) bool { return IsCode(err, ErrStateTransition) }
