package service

import (
	"log/slog"
	"strings"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/model"
	"github.com/sakif/agenda-api/internal/repository"
	"github.com/sakif/agenda-api/internal/sanitize"
)

// MsgCategoryRequired is the create error when nome is missing.
const MsgCategoryRequired = "Nome da categoria é obrigatório."

type CategoryService = EntityService[model.Category, model.NewCategory]

func NewCategoryService(store repository.Store, sink diag.Sink, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		repo:     repository.New[model.Category](repository.Categories, store, sink),
		missing:  MsgCategoryRequired,
		validate: newValidator(),
		sink:     sinkOrDiscard(sink),
		logger:   logger,
		build: func(req model.NewCategory) (*model.Category, error) {
			name := sanitize.Text(req.Name)
			if name == "" {
				return nil, apperror.ValidationFailed("nome", MsgCategoryRequired)
			}
			return &model.Category{Name: name, Color: strings.TrimSpace(req.Color)}, nil
		},
		coerce: func(field string, value any) (any, error) {
			if field == "nome" {
				s, err := asRequiredString(field, value)
				if err != nil {
					return nil, err
				}
				return sanitize.Text(s), nil
			}
			s, err := asString(field, value)
			return strings.TrimSpace(s), err
		},
	}
}
