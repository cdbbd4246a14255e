// Package apperror defines the domain errors shared by every layer of the API.
//
// Each failure class has a sentinel (ErrNotFound, ErrValidation, ...) and a
// constructor that wraps it in an *AppError carrying a client-facing message.
// Callers test the class with errors.Is and read the message with errors.As;
// the HTTP layer is the only place that turns a class into a status code.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrInvalidID          = errors.New("invalid identifier")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStorage            = errors.New("storage failure")
	ErrLogout             = errors.New("logout failure")
)

type AppError struct {
	Err     error  // sentinel class, matched with errors.Is
	Message string // client-facing message
	Field   string // optional: field causing the error
	Cause   error  // optional: underlying error, never shown to clients
}

// Error joins Message and Cause. Client messages end with a period, which
// is dropped before the cause is appended.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.TrimSuffix(e.Message, "."), e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// InvalidIdentifier reports an external id that is not a 24-character hex string.
func InvalidIdentifier(raw string) *AppError {
	return &AppError{
		Err:     ErrInvalidID,
		Message: "ID inválido.",
		Field:   "id",
		Cause:   fmt.Errorf("%q is not a document identifier", raw),
	}
}

// Unauthorized is the auth gate's denial when no authenticated session exists.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidCredentials covers both an unknown email and a wrong password.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Credenciais inválidas.",
	}
}

// StorageFailure wraps an error raised by the document store during op.
func StorageFailure(op string, err error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("falha no armazenamento durante %s", op),
		Cause:   err,
	}
}

// LogoutFailed wraps an error raised while destroying a session.
func LogoutFailed(err error) *AppError {
	return &AppError{
		Err:     ErrLogout,
		Message: "Erro ao fazer logout.",
		Cause:   err,
	}
}
