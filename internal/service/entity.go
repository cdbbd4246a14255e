// Package service contains the business rules between the HTTP handlers and
// the repositories.
//
// THE LAYERS:
//
//	Handler (HTTP)      → decodes JSON, maps errors to status codes
//	Service (this)      → required fields, coercion, hashing, allow-lists
//	Repository (data)   → one storage call per operation
//
// Services never see an *http.Request and never choose a status code. They
// return apperror values and the handler decides what those mean over HTTP.
//
// ONE SHAPE, THREE KINDS:
// Users, events and categories share the same CRUD shape, so EntityService
// implements it once. Each kind plugs in two functions:
//
//   - build:  turns a create payload into a document
//   - coerce: validates and converts one field of an update payload
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/ident"
	"github.com/sakif/agenda-api/internal/repository"
)

// MsgNothingToUpdate is returned when an update payload has no usable field.
const MsgNothingToUpdate = "Nenhum dado fornecido para atualização."

// EntityService implements create/get/list/update/delete for one kind.
// T is the stored document, C the create payload.
type EntityService[T any, C any] struct {
	repo     *repository.Repository[T]
	build    func(C) (*T, error)
	coerce   func(field string, value any) (any, error)
	missing  string // message for a create payload lacking required fields
	validate *validator.Validate
	sink     diag.Sink
	logger   *slog.Logger
}

// Create validates req, builds the document and stores it. It returns the
// new document's id as 24 hex characters.
func (s *EntityService[T, C]) Create(ctx context.Context, req C) (string, error) {
	kind := s.repo.Kind()

	if err := s.validate.Struct(req); err != nil {
		fields := invalidFields(err)
		s.sink.Record(fmt.Sprintf("%s.insert: Campos obrigatórios faltando (%s)", kind.Label, strings.Join(fields, ", ")))
		return "", apperror.ValidationFailed(first(fields), s.missing)
	}

	doc, err := s.build(req)
	if err != nil {
		s.sink.Record(fmt.Sprintf("%s.insert: %v", kind.Label, err))
		return "", err
	}

	id, err := s.repo.Insert(ctx, doc)
	if err != nil {
		s.logger.Error("failed to create document",
			slog.String("kind", kind.Resource),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("creating %s: %w", kind.Resource, err)
	}

	s.logger.Info("document created",
		slog.String("kind", kind.Resource),
		slog.String("id", ident.Encode(id)),
	)
	return ident.Encode(id), nil
}

// Get returns one document; apperror.ErrNotFound when it does not exist.
func (s *EntityService[T, C]) Get(ctx context.Context, id string) (*T, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every document of the kind.
func (s *EntityService[T, C]) List(ctx context.Context) ([]T, error) {
	return s.repo.FindAll(ctx)
}

// Update applies the allow-listed, coerced fields of payload to the document
// and returns the modified count. Identifier and unknown keys are ignored;
// a payload with nothing else is a validation error.
func (s *EntityService[T, C]) Update(ctx context.Context, id string, payload map[string]any) (int64, error) {
	kind := s.repo.Kind()

	set := make(map[string]any, len(payload))
	for field, value := range payload {
		if !kind.Allows(field) {
			continue
		}
		coerced, err := s.coerce(field, value)
		if err != nil {
			s.sink.Record(fmt.Sprintf("%s.update: %v (ID: %s)", kind.Label, err, id))
			return 0, err
		}
		set[field] = coerced
	}

	if len(set) == 0 {
		s.sink.Record(fmt.Sprintf("%s.update: nenhum campo para atualizar (ID: %s)", kind.Label, id))
		return 0, apperror.ValidationFailed("", MsgNothingToUpdate)
	}

	n, err := s.repo.Update(ctx, id, set)
	if err != nil {
		return 0, fmt.Errorf("updating %s %s: %w", kind.Resource, id, err)
	}

	s.logger.Info("document updated",
		slog.String("kind", kind.Resource),
		slog.String("id", id),
		slog.Int64("modified", n),
	)
	return n, nil
}

// Delete removes one document and returns the deleted count.
func (s *EntityService[T, C]) Delete(ctx context.Context, id string) (int64, error) {
	kind := s.repo.Kind()

	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("deleting %s %s: %w", kind.Resource, id, err)
	}

	s.logger.Info("document deleted",
		slog.String("kind", kind.Resource),
		slog.String("id", id),
		slog.Int64("deleted", n),
	)
	return n, nil
}

// newValidator names fields by their JSON key, as clients see them.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// invalidFields lists the JSON keys that failed validation, in struct order.
func invalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func first(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func sinkOrDiscard(sink diag.Sink) diag.Sink {
	if sink == nil {
		return diag.Discard
	}
	return sink
}

// =========================================================================
// FIELD COERCION HELPERS
// =========================================================================

func asString(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", apperror.ValidationFailed(field, fmt.Sprintf("O campo %s deve ser um texto.", field))
	}
	return s, nil
}

// asRequiredString trims value and rejects blanks, so an update cannot
// erase a field that creation requires.
func asRequiredString(field string, value any) (string, error) {
	s, err := asString(field, value)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.ValidationFailed(field, fmt.Sprintf("O campo %s não pode ficar vazio.", field))
	}
	return s, nil
}
