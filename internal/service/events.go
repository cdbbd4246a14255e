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

// MsgEventRequired is the create error when titulo, data or idUsuario is
// missing.
const MsgEventRequired = "Título, data e ID do usuário são obrigatórios para o evento."

// EventService manages event documents.
//
// The date arrives in whatever shape the client had at hand and is stored
// as a BSON datetime (see ParseDate). Description markup is stripped.
// idUsuario and idCategoria are kept as given; nothing checks that they
// reference existing documents.
type EventService = EntityService[model.Event, model.NewEvent]

// NewEventService builds the event service over store.
func NewEventService(store repository.Store, sink diag.Sink, logger *slog.Logger) *EventService {
	return &EventService{
		repo:     repository.New[model.Event](repository.Events, store, sink),
		missing:  MsgEventRequired,
		validate: newValidator(),
		sink:     sinkOrDiscard(sink),
		logger:   logger,
		build:    buildEvent,
		coerce:   coerceEventField,
	}
}

func buildEvent(req model.NewEvent) (*model.Event, error) {
	title := sanitize.Text(req.Title)
	userID := strings.TrimSpace(req.UserID)
	if title == "" || userID == "" {
		return nil, apperror.ValidationFailed("titulo", MsgEventRequired)
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	return &model.Event{
		Title:       title,
		Date:        date,
		Description: sanitize.Text(req.Description),
		UserID:      userID,
		CategoryID:  strings.TrimSpace(req.CategoryID),
	}, nil
}

func coerceEventField(field string, value any) (any, error) {
	switch field {
	case "data":
		return ParseDate(value)
	case "titulo", "idUsuario":
		s, err := asRequiredString(field, value)
		if err != nil {
			return nil, err
		}
		if field == "titulo" {
			return sanitize.Text(s), nil
		}
		return s, nil
	case "descricao":
		s, err := asString(field, value)
		if err != nil {
			return nil, err
		}
		return sanitize.Text(s), nil
	default:
		s, err := asString(field, value)
		return strings.TrimSpace(s), err
	}
}
