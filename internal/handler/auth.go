package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/auth"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/metrics"
	"github.com/sakif/agenda-api/internal/model"
	"github.com/sakif/agenda-api/internal/service"
)

const (
	msgLoginOK     = "Login bem-sucedido!"
	msgLoginFailed = "Erro interno do servidor ao tentar fazer login."
	msgLogoutOK    = "Logout bem-sucedido."
	msgLogoutError = "Erro ao fazer logout."
)

// Authenticator checks credentials. *service.AuthService satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.User, error)
}

var _ Authenticator = (*service.AuthService)(nil)

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Message string            `json:"mensagem"`
	User    model.UserSummary `json:"usuario"`
}

// AuthHandler owns the session lifecycle endpoints.
//
//   - HandleLogin  → check credentials, then bind the session to the user
//   - HandleLogout → drop the session row and expire the cookie
type AuthHandler struct {
	authn    Authenticator
	sessions *auth.SessionManager
	sink     diag.Sink
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. Logout failures are recorded to
// sink; a nil sink discards them.
func NewAuthHandler(authn Authenticator, sessions *auth.SessionManager, sink diag.Sink, logger *slog.Logger) *AuthHandler {
	if sink == nil {
		sink = diag.Discard
	}
	return &AuthHandler{authn: authn, sessions: sessions, sink: sink, logger: logger}
}

// HandleLogin authenticates a user and starts a session.
//
// HTTP: POST /login
// REQUEST BODY: {"email": "ana@x.com", "senha": "..."}
//
// The response never includes the password hash. On success the client
// gets a fresh connect.sid cookie; any session id it sent is revoked.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeMessage(w, http.StatusBadRequest, service.MsgCredentialsRequired)
		return
	}

	user, err := h.authn.Login(r.Context(), creds)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("login failed", slog.String("error", err.Error()))
		}
		writeError(w, err, errorText{internal: msgLoginFailed})
		return
	}

	summary := user.Summary()
	err = h.sessions.Establish(w, r, auth.State{
		UserID:          summary.ID,
		UserEmail:       summary.Email,
		IsAuthenticated: true,
	})
	if err != nil {
		h.logger.Error("could not establish session",
			slog.String("userID", summary.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err, errorText{internal: msgLoginFailed})
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Message: msgLoginOK, User: summary})
}

// HandleLogout ends the session.
//
// HTTP: POST /logout
//
// Works for anonymous clients too. The row is deleted server-side, so a
// copied cookie stops working immediately.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		metrics.AuthEvents.WithLabelValues("logout", "error").Inc()
		h.logger.Error("logout failed", slog.String("error", err.Error()))

		if !errors.Is(err, apperror.ErrLogout) {
			err = apperror.LogoutFailed(err)
		}
		h.sink.Record("Auth.logout: " + err.Error())
		writeError(w, err, errorText{internal: msgLogoutError})
		return
	}

	metrics.AuthEvents.WithLabelValues("logout", "ok").Inc()
	writeMessage(w, http.StatusOK, msgLogoutOK)
}
