// Package repository defines the data-access contract of the API.
//
// Two storage concerns live here:
//
//   - Entity documents (users, events, categories) go to a document store
//     behind the Store/Collection interfaces. The mongo package is the
//     production implementation and the memory package backs development
//     and tests.
//   - Session rows go to SQLite behind SessionRepository.
//
// Repository[T] (entity.go) sits on top of a Collection and enforces the
// per-kind rules: identifier decoding, required fields, patch allow-lists
// and failure recording.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoDocument is returned by Collection.FindOne when nothing matches.
var ErrNoDocument = errors.New("repository: no document matches filter")

// Collection is one named set of documents in a document store.
//
// Filters are equality matches on top-level fields. Documents come back as
// raw BSON so each caller decodes into its own type.
type Collection interface {
	InsertOne(ctx context.Context, doc any) (primitive.ObjectID, error)
	FindOne(ctx context.Context, filter bson.D) (bson.Raw, error)
	Find(ctx context.Context, filter bson.D) ([]bson.Raw, error)
	// UpdateOne applies set as a merge-patch to the first match and returns
	// how many documents actually changed (0 when the values were already equal).
	UpdateOne(ctx context.Context, filter bson.D, set bson.M) (int64, error)
	DeleteOne(ctx context.Context, filter bson.D) (int64, error)
}

// Store hands out collections and owns the underlying connection.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionRecord is one persisted session.
type SessionRecord struct {
	ID        string
	Data      string // securecookie-encoded session values
	ExpiresAt time.Time
}

// SessionRepository persists server-side session state.
type SessionRepository interface {
	SaveSession(ctx context.Context, rec *SessionRecord) error
	// GetSession returns apperror.ErrNotFound for unknown or expired ids.
	GetSession(ctx context.Context, id string, now time.Time) (*SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
