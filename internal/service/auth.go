package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/auth"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/ident"
	"github.com/sakif/agenda-api/internal/metrics"
	"github.com/sakif/agenda-api/internal/model"
	"github.com/sakif/agenda-api/internal/repository"
)

// MsgCredentialsRequired is the login error when email or senha is blank.
const MsgCredentialsRequired = "Email e senha são obrigatórios."

// AuthService checks login credentials against stored users.
//
// An unknown email and a wrong password produce the same error, and both
// cost one bcrypt comparison, so a caller cannot tell which accounts exist.
type AuthService struct {
	users     *repository.Repository[model.User]
	passwords *auth.PasswordService
	sink      diag.Sink
	logger    *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(store repository.Store, passwords *auth.PasswordService, sink diag.Sink, logger *slog.Logger) *AuthService {
	sink = sinkOrDiscard(sink)
	return &AuthService{
		users:     repository.New[model.User](repository.Users, store, sink),
		passwords: passwords,
		sink:      sink,
		logger:    logger,
	}
}

// Login returns the user whose email and password match creds.
//
// Errors:
//   - apperror.ErrValidation when either field is blank
//   - apperror.ErrInvalidCredentials for unknown email or wrong password
//   - anything else is a storage or hash failure
func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		s.sink.Record("Auth.login: " + MsgCredentialsRequired)
		return nil, apperror.ValidationFailed("email", MsgCredentialsRequired)
	}

	user, err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}})
	if errors.Is(err, apperror.ErrNotFound) {
		s.passwords.VerifyNothing(creds.Password)
		return nil, s.reject(email, "usuário não encontrado")
	}
	if err != nil {
		metrics.AuthEvents.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	switch err := s.passwords.Verify(user.PasswordHash, creds.Password); {
	case errors.Is(err, auth.ErrPasswordMismatch):
		return nil, s.reject(email, "senha incorreta")
	case err != nil:
		s.sink.Record(fmt.Sprintf("Auth.login: hash inválido para %s: %v", email, err))
		metrics.AuthEvents.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("verifying password: %w", err)
	}

	metrics.AuthEvents.WithLabelValues("login", "ok").Inc()
	s.sink.Record(fmt.Sprintf("Auth.login: Login bem-sucedido para o usuário %s", email))
	s.logger.Info("user logged in", slog.String("userID", ident.Encode(user.ID)))
	return user, nil
}

func (s *AuthService) reject(email, reason string) error {
	metrics.AuthEvents.WithLabelValues("login", "rejected").Inc()
	s.sink.Record(fmt.Sprintf("Auth.login: credenciais inválidas para %s (%s)", email, reason))
	s.logger.Info("login rejected", slog.String("email", email))
	return apperror.InvalidCredentials()
}
