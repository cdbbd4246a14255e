package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Category is a document in the "categorias" collection.
type Category struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name  string             `bson:"nome"          json:"nome" validate:"required"`
	Color string             `bson:"cor,omitempty" json:"cor,omitempty"`
}

// NewCategory is the body of POST /categorias.
type NewCategory struct {
	Name  string `json:"nome" validate:"required"`
	Color string `json:"cor"`
}
