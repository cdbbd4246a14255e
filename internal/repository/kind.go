package repository

import "go.mongodb.org/mongo-driver/bson"

// Kind describes one entity type: where it is stored and which fields a
// client may patch.
type Kind struct {
	Label      string   // prefix of diagnostic entries, e.g. "Usuario"
	Resource   string   // singular noun used in not-found messages
	Collection string   // document store collection name
	Fields     []string // fields an update may set
}

var (
	Users = Kind{
		Label:      "Usuario",
		Resource:   "usuario",
		Collection: "usuarios",
		Fields:     []string{"nome", "email", "senha"},
	}
	Events = Kind{
		Label:      "Evento",
		Resource:   "evento",
		Collection: "eventos",
		Fields:     []string{"titulo", "data", "descricao", "idUsuario", "idCategoria"},
	}
	Categories = Kind{
		Label:      "Categoria",
		Resource:   "categoria",
		Collection: "categorias",
		Fields:     []string{"nome", "cor"},
	}
)

// Allows reports whether field is on the kind's patch allow-list.
func (k Kind) Allows(field string) bool {
	if field == "_id" || field == "id" {
		return false
	}
	for _, f := range k.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Patch returns the subset of fields an update may apply. Identifier keys
// and unknown keys are dropped; the input is not modified.
func (k Kind) Patch(fields map[string]any) bson.M {
	set := bson.M{}
	for key, value := range fields {
		if k.Allows(key) {
			set[key] = value
		}
	}
	return set
}
