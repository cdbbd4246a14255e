// Package model defines the documents stored in the agenda database and the
// payloads accepted by the create endpoints.
//
// Field names on the wire and in storage are Portuguese (nome, titulo, ...)
// because existing clients already speak that contract.
package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/agenda-api/internal/ident"
)

// User is a document in the "usuarios" collection.
//
// PasswordHash holds a bcrypt hash under the "senha" key and is never
// serialised to JSON, so every response that embeds a User is safe to send.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"nome"          json:"nome"  validate:"required"`
	Email        string             `bson:"email"         json:"email" validate:"required"`
	PasswordHash string             `bson:"senha,omitempty" json:"-"`
}

// NewUser is the body of POST /usuarios.
type NewUser struct {
	Name     string `json:"nome"  validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"senha" validate:"required"`
}

// Credentials is the body of POST /login.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"senha" validate:"required"`
}

// UserSummary is what a successful login reveals about the user.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"nome"`
}

// Summary strips everything but the public identity fields.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:    ident.Encode(u.ID),
		Email: u.Email,
		Name:  u.Name,
	}
}
