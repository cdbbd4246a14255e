package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/service"
)

// EntityService is what a ResourceHandler needs from the service layer.
// *service.EntityService satisfies it for every kind.
type EntityService[T any, C any] interface {
	Create(ctx context.Context, req C) (string, error)
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context) ([]T, error)
	Update(ctx context.Context, id string, payload map[string]any) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

var (
	_ EntityService[struct{}, struct{}] = (*service.EntityService[struct{}, struct{}])(nil)
)

// Messages are the client-facing texts of one resource. Each resource
// words them differently ("Usuário criado", "Categoria criada", ...).
type Messages struct {
	Created   string
	Updated   string
	Deleted   string
	Invalid   string // create body that is not JSON
	NotFound  string // GET by id
	Unchanged string // PUT matched nothing or changed nothing
	Missing   string // DELETE matched nothing

	CreateFailed string
	GetFailed    string
	ListFailed   string
	UpdateFailed string
	DeleteFailed string
}

// ResourceHandler serves the five CRUD routes of one resource:
//
//	POST   /{resource}       → HandleCreate
//	GET    /{resource}       → HandleList
//	GET    /{resource}/{id}  → HandleGet
//	PUT    /{resource}/{id}  → HandleUpdate
//	DELETE /{resource}/{id}  → HandleDelete
type ResourceHandler[T any, C any] struct {
	svc    EntityService[T, C]
	msgs   Messages
	logger *slog.Logger
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler[T any, C any](svc EntityService[T, C], msgs Messages, logger *slog.Logger) *ResourceHandler[T, C] {
	return &ResourceHandler[T, C]{svc: svc, msgs: msgs, logger: logger}
}

// HandleCreate stores a new document.
//
// HTTP: POST /{resource}
// 201 {"mensagem": "...", "id": "<24 hex>"}
func (h *ResourceHandler[T, C]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req C
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid create body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, h.msgs.Invalid)
		return
	}

	id, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, h.msgs.NotFound, h.msgs.CreateFailed)
		return
	}

	writeJSON(w, http.StatusCreated, CreatedResponse{Message: h.msgs.Created, ID: id})
}

// HandleList returns every document.
//
// HTTP: GET /{resource}
func (h *ResourceHandler[T, C]) HandleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err, h.msgs.NotFound, h.msgs.ListFailed)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// HandleGet returns one document.
//
// HTTP: GET /{resource}/{id}
// 400 for a malformed id, 404 when it does not exist.
func (h *ResourceHandler[T, C]) HandleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, h.msgs.NotFound, h.msgs.GetFailed)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleUpdate merges the body into the document.
//
// HTTP: PUT /{resource}/{id}
//
// 404 covers both "no such id" and "nothing changed"; the store reports a
// single modified count and cannot tell them apart.
func (h *ResourceHandler[T, C]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		h.logger.Warn("invalid update body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, service.MsgNothingToUpdate)
		return
	}

	n, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.fail(w, r, err, h.msgs.Unchanged, h.msgs.UpdateFailed)
		return
	}
	if n == 0 {
		writeMessage(w, http.StatusNotFound, h.msgs.Unchanged)
		return
	}
	writeMessage(w, http.StatusOK, h.msgs.Updated)
}

// HandleDelete removes one document.
//
// HTTP: DELETE /{resource}/{id}
func (h *ResourceHandler[T, C]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, h.msgs.Missing, h.msgs.DeleteFailed)
		return
	}
	if n == 0 {
		writeMessage(w, http.StatusNotFound, h.msgs.Missing)
		return
	}
	writeMessage(w, http.StatusOK, h.msgs.Deleted)
}

func (h *ResourceHandler[T, C]) fail(w http.ResponseWriter, r *http.Request, err error, notFound, internal string) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		h.logger.Debug("request rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err, errorText{notFound: notFound, internal: internal})
}

// =========================================================================
// RESOURCE MESSAGES
// =========================================================================

var UserMessages = Messages{
	Created:      "Usuário criado com sucesso.",
	Updated:      "Usuário atualizado com sucesso.",
	Deleted:      "Usuário deletado com sucesso.",
	Invalid:      service.MsgUserRequired,
	NotFound:     "Usuário não encontrado.",
	Unchanged:    "Usuário não encontrado ou nenhum dado foi alterado.",
	Missing:      "Usuário não encontrado para deletar.",
	CreateFailed: "Erro ao criar usuário.",
	GetFailed:    "Erro ao buscar usuário.",
	ListFailed:   "Erro ao buscar usuários.",
	UpdateFailed: "Erro ao atualizar usuário.",
	DeleteFailed: "Erro ao deletar usuário.",
}

var EventMessages = Messages{
	Created:      "Evento criado com sucesso.",
	Updated:      "Evento atualizado com sucesso.",
	Deleted:      "Evento deletado com sucesso.",
	Invalid:      service.MsgEventRequired,
	NotFound:     "Evento não encontrado.",
	Unchanged:    "Evento não encontrado ou nenhum dado foi alterado.",
	Missing:      "Evento não encontrado para deletar.",
	CreateFailed: "Erro ao criar evento.",
	GetFailed:    "Erro ao buscar evento.",
	ListFailed:   "Erro ao buscar eventos.",
	UpdateFailed: "Erro ao atualizar evento.",
	DeleteFailed: "Erro ao deletar evento.",
}

var CategoryMessages = Messages{
	Created:      "Categoria criada com sucesso.",
	Updated:      "Categoria atualizada com sucesso.",
	Deleted:      "Categoria deletada com sucesso.",
	Invalid:      service.MsgCategoryRequired,
	NotFound:     "Categoria não encontrada.",
	Unchanged:    "Categoria não encontrada ou nenhum dado foi alterado.",
	Missing:      "Categoria não encontrada para deletar.",
	CreateFailed: "Erro ao criar categoria.",
	GetFailed:    "Erro ao buscar categoria.",
	ListFailed:   "Erro ao buscar categorias.",
	UpdateFailed: "Erro ao atualizar categoria.",
	DeleteFailed: "Erro ao deletar categoria.",
}
