package domain

import (
	"errors"
	"fmt"
)

// Stable error codes returned to clients.
const (
	CodeNotFound        = "not_found"
	CodeIneligible      = "ineligible"
	CodeValidation      = "validation_error"
	CodeSlotUnavailable = "slot_unavailable"
	CodeInternal        = "internal"
)

// Error is a client-facing failure with a stable code and a human readable detail.
type Error struct {
	Code   string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Detail
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works
// regardless of the detail text.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrIneligible      = &Error{Code: CodeIneligible}
	ErrValidation      = &Error{Code: CodeValidation}
	ErrSlotUnavailable = &Error{Code: CodeSlotUnavailable}
)

func NotFound(format string, args ...interface{}) error {
	return &Error{Code: CodeNotFound, Detail: fmt.Sprintf(format, args...)}
}

func Ineligible(format string, args ...interface{}) error {
	return &Error{Code: CodeIneligible, Detail: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Code: CodeValidation, Detail: fmt.Sprintf(format, args...)}
}

func SlotUnavailable(format string, args ...interface{}) error {
	return &Error{Code: CodeSlotUnavailable, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf returns the stable code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
