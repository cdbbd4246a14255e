package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/ident"
	"github.com/sakif/agenda-api/internal/metrics"
)

// Repository is the data-access layer for one entity kind.
//
// Each method performs at most one storage call. Any failure is written to
// the diagnostic sink as "<Label>.<op>: <message>", counted, and returned.
// A missing document is an apperror.ErrNotFound result, not a failure, so
// it is neither recorded nor logged.
type Repository[T any] struct {
	kind     Kind
	coll     Collection
	sink     diag.Sink
	validate *validator.Validate
}

// New binds kind to its collection in store.
func New[T any](kind Kind, store Store, sink diag.Sink) *Repository[T] {
	if sink == nil {
		sink = diag.Discard
	}
	return &Repository[T]{
		kind:     kind,
		coll:     store.Collection(kind.Collection),
		sink:     sink,
		validate: newValidator(),
	}
}

// Kind returns the descriptor the repository was built with.
func (r *Repository[T]) Kind() Kind {
	return r.kind
}

// Insert validates the kind's required fields and stores doc.
func (r *Repository[T]) Insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	const op = "insert"

	if err := r.validate.Struct(doc); err != nil {
		return primitive.NilObjectID, r.fail(op, "invalid", requiredFieldsError(err))
	}

	id, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, r.fail(op, "error", apperror.StorageFailure(op, err))
	}

	r.observe(op, "ok")
	return id, nil
}

// FindByID returns the document with the given external id.
func (r *Repository[T]) FindByID(ctx context.Context, rawID string) (*T, error) {
	const op = "findById"

	id, err := ident.Decode(rawID)
	if err != nil {
		return nil, r.fail(op, "invalid", err)
	}

	doc, err := r.findOne(ctx, op, bson.D{{Key: "_id", Value: id}})
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound(r.kind.Resource, rawID)
	}
	return doc, err
}

// FindOne returns the first document matching filter.
func (r *Repository[T]) FindOne(ctx context.Context, filter bson.D) (*T, error) {
	return r.findOne(ctx, "findOne", filter)
}

func (r *Repository[T]) findOne(ctx context.Context, op string, filter bson.D) (*T, error) {
	raw, err := r.coll.FindOne(ctx, filter)
	if errors.Is(err, ErrNoDocument) {
		r.observe(op, "not_found")
		return nil, apperror.NotFound(r.kind.Resource, describeFilter(filter))
	}
	if err != nil {
		return nil, r.fail(op, "error", apperror.StorageFailure(op, err))
	}

	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, r.fail(op, "error", apperror.StorageFailure(op, fmt.Errorf("decoding document: %w", err)))
	}

	r.observe(op, "ok")
	return &doc, nil
}

// FindAll returns every document of the kind, in store order. The result is
// never nil, so it always encodes as a JSON array.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	const op = "findAll"

	raws, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, r.fail(op, "error", apperror.StorageFailure(op, err))
	}

	docs := make([]T, 0, len(raws))
	for _, raw := range raws {
		var doc T
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, r.fail(op, "error", apperror.StorageFailure(op, fmt.Errorf("decoding document: %w", err)))
		}
		docs = append(docs, doc)
	}

	r.observe(op, "ok")
	return docs, nil
}

// Update applies fields as a merge-patch and returns the modified count.
//
// Identifier keys and keys outside the kind's allow-list are dropped first.
// If nothing is left the call returns 0 without touching storage. A result
// of 0 otherwise means either no match or no change; callers cannot tell
// the two apart.
func (r *Repository[T]) Update(ctx context.Context, rawID string, fields map[string]any) (int64, error) {
	const op = "update"

	id, err := ident.Decode(rawID)
	if err != nil {
		return 0, r.fail(op, "invalid", err)
	}

	set := r.kind.Patch(fields)
	if len(set) == 0 {
		r.sink.Record(fmt.Sprintf("%s.%s: nenhum campo para atualizar (ID: %s)", r.kind.Label, op, rawID))
		r.observe(op, "noop")
		return 0, nil
	}

	n, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, set)
	if err != nil {
		return 0, r.fail(op, "error", apperror.StorageFailure(op, err))
	}

	r.observe(op, "ok")
	return n, nil
}

// Delete removes the document with the given external id and returns the
// deleted count (0 or 1).
func (r *Repository[T]) Delete(ctx context.Context, rawID string) (int64, error) {
	const op = "delete"

	id, err := ident.Decode(rawID)
	if err != nil {
		return 0, r.fail(op, "invalid", err)
	}

	n, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return 0, r.fail(op, "error", apperror.StorageFailure(op, err))
	}

	r.observe(op, "ok")
	return n, nil
}

func (r *Repository[T]) fail(op, outcome string, err error) error {
	r.sink.Record(fmt.Sprintf("%s.%s: %s", r.kind.Label, op, err.Error()))
	r.observe(op, outcome)
	return err
}

func (r *Repository[T]) observe(op, outcome string) {
	metrics.RepositoryOperations.WithLabelValues(r.kind.Resource, op, outcome).Inc()
}

// newValidator reports field names by their bson key ("nome"), which is
// also what clients send.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("bson"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func requiredFieldsError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return apperror.ValidationFailed(missing[0],
		fmt.Sprintf("Campos obrigatórios faltando: %s", strings.Join(missing, ", ")))
}

func describeFilter(filter bson.D) string {
	parts := make([]string, 0, len(filter))
	for _, e := range filter {
		parts = append(parts, fmt.Sprintf("%s=%v", e.Key, e.Value))
	}
	return strings.Join(parts, ",")
}
