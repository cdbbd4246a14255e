// Package ident converts external string identifiers into document identifiers.
//
// Every lookup, update and delete by id passes through Decode before any
// storage call is made, so a malformed id never reaches the store.
package ident

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/agenda-api/internal/apperror"
)

// Decode parses raw as a 24-character hex ObjectID.
func Decode(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidIdentifier(raw)
	}
	return id, nil
}

// Encode is the inverse of Decode. Every id handed to a client goes
// through it.
func Encode(id primitive.ObjectID) string {
	return id.Hex()
}
