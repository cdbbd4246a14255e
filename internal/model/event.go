package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a document in the "eventos" collection.
//
// UserID and CategoryID are stored as plain hex strings. Nothing enforces
// that they point at existing documents.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"         json:"_id"`
	Title       string             `bson:"titulo"                json:"titulo" validate:"required"`
	Date        time.Time          `bson:"data"                  json:"data"   validate:"required"`
	Description string             `bson:"descricao,omitempty"   json:"descricao,omitempty"`
	UserID      string             `bson:"idUsuario,omitempty"   json:"idUsuario,omitempty"`
	CategoryID  string             `bson:"idCategoria,omitempty" json:"idCategoria,omitempty"`
}

// NewEvent is the body of POST /eventos.
//
// Date is left untyped because clients send ISO strings, plain dates and
// epoch milliseconds alike; the event service coerces it.
type NewEvent struct {
	Title       string `json:"titulo"    validate:"required"`
	Date        any    `json:"data"      validate:"required"`
	Description string `json:"descricao"`
	UserID      string `json:"idUsuario" validate:"required"`
	CategoryID  string `json:"idCategoria"`
}
