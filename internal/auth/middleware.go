package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/metrics"
)

// UnauthorizedMessage is the body message of every gate denial.
const UnauthorizedMessage = "Acesso não autorizado. Por favor, faça login."

// contextKey keeps session values in the request context private to this
// package.
type contextKey string

const stateKey contextKey = "sessionState"

// Decision is the outcome of Check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Check admits a client only when the session says it is authenticated
// and names a user.
func Check(st State) Decision {
	if st.IsAuthenticated && st.UserID != "" {
		return Allow
	}
	return Deny
}

// RequireSession is the auth gate for protected routes.
//
// Denied requests get 401 with UnauthorizedMessage and a diagnostic entry;
// the wrapped handler never runs, so nothing reaches the document store.
// Allowed requests carry their State in the context (SessionFromContext).
func RequireSession(m *SessionManager, sink diag.Sink, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, err := m.Load(r)
			if err != nil {
				logger.Warn("session could not be loaded; treating request as anonymous",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}

			if Check(st) == Deny {
				metrics.AuthEvents.WithLabelValues("gate", "deny").Inc()
				sink.Record("Acesso não autorizado: tentativa de acessar " + r.Method + " " + r.URL.Path + " sem autenticação.")

				deny(w, apperror.Unauthorized(UnauthorizedMessage))
				return
			}

			metrics.AuthEvents.WithLabelValues("gate", "allow").Inc()
			ctx := context.WithValue(r.Context(), stateKey, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// deny writes the gate's 401. The handler package owns error mapping for
// routes, but the gate runs before any handler and answers on its own.
func deny(w http.ResponseWriter, err *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"mensagem": err.Message})
}

// SessionFromContext returns the state stored by RequireSession.
// ok is false on routes the gate does not cover.
func SessionFromContext(ctx context.Context) (State, bool) {
	st, ok := ctx.Value(stateKey).(State)
	return st, ok
}
