package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/sakif/agenda-api/internal/auth"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/repository/memory"
)

// =========================================================================
// TEST HELPERS
// =========================================================================
//
// Services run against the in-memory store, so these tests exercise the
// real repository code underneath. bcrypt runs at cost 4.

type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) Record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, msg)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

var _ diag.Sink = (*recorder)(nil)

type fixture struct {
	store      *memory.Store
	sink       *recorder
	passwords  *auth.PasswordService
	users      *UserService
	events     *EventService
	categories *CategoryService
	auth       *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	sink := &recorder{}
	passwords := auth.NewPasswordServiceWithCost(4)

	return &fixture{
		store:      store,
		sink:       sink,
		passwords:  passwords,
		users:      NewUserService(store, passwords, sink, logger),
		events:     NewEventService(store, sink, logger),
		categories: NewCategoryService(store, sink, logger),
		auth:       NewAuthService(store, passwords, sink, logger),
	}
}

func ctx() context.Context { return context.Background() }
