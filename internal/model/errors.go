package model

import (
	"errors"
	"fmt"
)

// Error kinds. Callers compare with errors.Is; the HTTP layer maps each kind
// to a status code.
var (
	ErrValidation         = errors.New("validation error")
	ErrAuth               = errors.New("authentication required")
	ErrAccessDenied       = errors.New("access denied")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict is returned by stores on a unique-key collision.
	ErrConflict = errors.New("conflict")
)

// Error is a failure with a message safe to show the caller.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Validation returns an ErrValidation with msg.
func Validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }

// Unauthorized returns an ErrAuth with msg.
func Unauthorized(msg string) error { return &Error{Kind: ErrAuth, Msg: msg} }

// Denied returns an ErrAccessDenied with msg.
func Denied(msg string) error { return &Error{Kind: ErrAccessDenied, Msg: msg} }

// NotFound returns an ErrNotFound naming the missing thing.
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf("%s not found", what)}
}
