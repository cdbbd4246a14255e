package handler

import (
	"context"
	"net/http"
)

const msgWelcome = "Bem-vindo à API da Agenda! Utilize os endpoints /usuarios, /eventos, /categorias."

// HandleRoot answers GET / with a pointer to the resource endpoints.
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, msgWelcome)
}

// Pinger is anything whose reachability /healthz should report.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of a healthy /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HandleHealth pings the document store.
//
// HTTP: GET /healthz
// 200 {"status":"ok"} or 500 with the database error message.
func HandleHealth(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Message: "Erro interno do servidor ao conectar ao banco de dados.",
			})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
