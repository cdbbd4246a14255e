package handler

// RESPONSE HELPERS:
// Every handler answers with JSON through writeJSON / writeError, so the
// wire shape stays the same across resources:
//
//	{"mensagem": "Usuário criado com sucesso.", "id": "..."}
//	{"mensagem": "Erro ao buscar eventos.", "detalhe": "..."}
//
// ERROR MAPPING:
// Services return apperror values. writeError is the one place they turn
// into status codes:
//
//	ErrValidation, ErrInvalidID              → 400
//	ErrUnauthorized, ErrInvalidCredentials   → 401
//	ErrNotFound                              → 404
//	anything else                            → 500
//
// 404 and 500 bodies carry the caller's resource-specific message rather
// than the error text. "detalhe" only appears on 500s and only ever holds
// an AppError's Message, never a raw driver error.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/agenda-api/internal/apperror"
)

// MessageResponse is the body of most successful writes.
type MessageResponse struct {
	Message string `json:"mensagem"`
}

// CreatedResponse is the body of a 201.
type CreatedResponse struct {
	Message string `json:"mensagem"`
	ID      string `json:"id"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Message string `json:"mensagem"`
	Detail  string `json:"detalhe,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set afterwards is silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageResponse{Message: msg})
}

// errorText holds the resource-specific messages for the two statuses
// whose body should not echo the error itself.
type errorText struct {
	notFound string
	internal string
}

// writeError maps err to a status code and writes the error body.
func writeError(w http.ResponseWriter, err error, text errorText) {
	status := statusFor(err)

	var appErr *apperror.AppError
	hasApp := errors.As(err, &appErr)

	resp := ErrorResponse{}
	switch status {
	case http.StatusNotFound:
		resp.Message = text.notFound
	case http.StatusInternalServerError:
		resp.Message = text.internal
		if hasApp {
			resp.Detail = appErr.Message
		}
	default:
		if hasApp {
			resp.Message = appErr.Message
		} else {
			resp.Message = http.StatusText(status)
		}
	}
	if resp.Message == "" && hasApp {
		resp.Message = appErr.Message
	}

	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads one JSON value from the body into dst. An empty body
// leaves dst untouched and is not an error, so required-field checks
// downstream produce the usual validation message.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
