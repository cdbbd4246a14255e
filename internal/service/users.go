package service

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/auth"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/model"
	"github.com/sakif/agenda-api/internal/repository"
)

// MsgUserRequired is the create error when nome, email or senha is missing.
const MsgUserRequired = "Nome, email e senha são obrigatórios."

// UserService manages user documents. Passwords are hashed on the way in
// and never come back out.
type UserService = EntityService[model.User, model.NewUser]

// NewUserService builds the user service over store.
func NewUserService(store repository.Store, passwords *auth.PasswordService, sink diag.Sink, logger *slog.Logger) *UserService {
	hash := func(plaintext string) (string, error) {
		hashed, err := passwords.Hash(plaintext)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("senha", "A senha deve ter no máximo 72 bytes.")
		}
		return hashed, err
	}

	return &UserService{
		repo:     repository.New[model.User](repository.Users, store, sink),
		missing:  MsgUserRequired,
		validate: newValidator(),
		sink:     sinkOrDiscard(sink),
		logger:   logger,
		build: func(req model.NewUser) (*model.User, error) {
			name := strings.TrimSpace(req.Name)
			email := strings.TrimSpace(req.Email)
			if name == "" || email == "" {
				return nil, apperror.ValidationFailed("nome", MsgUserRequired)
			}
			hashed, err := hash(req.Password)
			if err != nil {
				return nil, err
			}
			return &model.User{Name: name, Email: email, PasswordHash: hashed}, nil
		},
		coerce: func(field string, value any) (any, error) {
			s, err := asRequiredString(field, value)
			if err != nil {
				return nil, err
			}
			if field == "senha" {
				return hash(s)
			}
			return s, nil
		},
	}
}
