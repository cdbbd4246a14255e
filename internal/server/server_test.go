package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/agenda-api/internal/config"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/repository"
	"github.com/sakif/agenda-api/internal/repository/memory"
	"github.com/sakif/agenda-api/internal/repository/sqlite"
)

// =========================================================================
// COUNTING STORE
// =========================================================================
//
// countingStore wraps the memory store and counts every collection call,
// so tests can prove the auth gate stops requests before storage.

type countingStore struct {
	*memory.Store
	calls atomic.Int64
}

func (s *countingStore) Collection(name string) repository.Collection {
	return &countingCollection{inner: s.Store.Collection(name), calls: &s.calls}
}

type countingCollection struct {
	inner repository.Collection
	calls *atomic.Int64
}

func (c *countingCollection) InsertOne(ctx context.Context, doc any) (primitive.ObjectID, error) {
	c.calls.Add(1)
	return c.inner.InsertOne(ctx, doc)
}

func (c *countingCollection) FindOne(ctx context.Context, filter bson.D) (bson.Raw, error) {
	c.calls.Add(1)
	return c.inner.FindOne(ctx, filter)
}

func (c *countingCollection) Find(ctx context.Context, filter bson.D) ([]bson.Raw, error) {
	c.calls.Add(1)
	return c.inner.Find(ctx, filter)
}

func (c *countingCollection) UpdateOne(ctx context.Context, filter bson.D, set bson.M) (int64, error) {
	c.calls.Add(1)
	return c.inner.UpdateOne(ctx, filter, set)
}

func (c *countingCollection) DeleteOne(ctx context.Context, filter bson.D) (int64, error) {
	c.calls.Add(1)
	return c.inner.DeleteOne(ctx, filter)
}

// =========================================================================
// TEST HELPERS
// =========================================================================

type testAPI struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	store  *countingStore

	mu   sync.Mutex
	diag []string
}

func (a *testAPI) diagnostics() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.diag...)
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	sessions, err := sqlite.New(":memory:")
	require.NoError(t, err)

	api := &testAPI{t: t, store: &countingStore{Store: memory.New()}}

	cfg := config.Config{
		Port:               3000,
		Environment:        config.EnvDevelopment,
		Store:              config.StoreConfig{Driver: config.StoreMemory},
		Session:            config.SessionConfig{Secret: []byte("0123456789abcdef0123456789abcdef"), MaxAge: 24 * time.Hour},
		LoginRatePerMinute: 0,
		BcryptCost:         4,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := diag.SinkFunc(func(msg string) {
		api.mu.Lock()
		defer api.mu.Unlock()
		api.diag = append(api.diag, msg)
	})

	s, err := NewWithDeps(cfg, logger, Deps{Store: api.store, Sessions: sessions, Sink: sink})
	require.NoError(t, err)

	api.srv = httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		api.srv.Close()
		s.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	api.client = &http.Client{Jar: jar}
	return api
}

func (a *testAPI) do(method, path, body string) (int, map[string]any) {
	a.t.Helper()
	status, raw := a.doRaw(method, path, body)

	var out map[string]any
	if strings.HasPrefix(raw, "{") {
		require.NoError(a.t, json.Unmarshal([]byte(raw), &out))
	}
	return status, out
}

func (a *testAPI) doRaw(method, path, body string) (int, string) {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, strings.NewReader(body))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, string(b)
}

// login registers Ana and logs in, leaving the session cookie in the jar.
func (a *testAPI) login() string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/usuarios", `{"nome":"Ana","email":"ana@x.com","senha":"pw"}`)
	require.Equal(a.t, http.StatusCreated, status)
	id := body["id"].(string)

	status, _ = a.do(http.MethodPost, "/login", `{"email":"ana@x.com","senha":"pw"}`)
	require.Equal(a.t, http.StatusOK, status)
	return id
}

// =========================================================================
// PUBLIC ROUTES
// =========================================================================

func TestRoot(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["mensagem"], "Bem-vindo")
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)

	status, text := api.doRaw(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, text, "agenda_http_requests_total")
}

func TestRegisterIsPublic(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodPost, "/usuarios", `{"nome":"Ana","email":"ana@x.com","senha":"pw"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Usuário criado com sucesso.", body["mensagem"])
	assert.Len(t, body["id"], 24)

	status, body = api.do(http.MethodPost, "/usuarios", `{"nome":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Nome, email e senha são obrigatórios.", body["mensagem"])
}

// =========================================================================
// AUTH GATE
// =========================================================================

func TestGateBlocksAnonymousWithoutStorage(t *testing.T) {
	api := newTestAPI(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/usuarios"},
		{http.MethodGet, "/usuarios/507f1f77bcf86cd799439011"},
		{http.MethodPut, "/usuarios/507f1f77bcf86cd799439011"},
		{http.MethodDelete, "/usuarios/507f1f77bcf86cd799439011"},
		{http.MethodPost, "/eventos"},
		{http.MethodGet, "/eventos"},
		{http.MethodPost, "/categorias"},
		{http.MethodDelete, "/categorias/abc"},
	}
	for _, rt := range routes {
		status, body := api.do(rt.method, rt.path, `{}`)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", rt.method, rt.path)
		assert.Equal(t, "Acesso não autorizado. Por favor, faça login.", body["mensagem"])
	}

	assert.Equal(t, int64(0), api.store.calls.Load())
	assert.Len(t, api.diagnostics(), len(routes))
}

func TestLoginLogoutCycle(t *testing.T) {
	api := newTestAPI(t)
	api.login()

	status, _ := api.do(http.MethodGet, "/eventos", "")
	assert.Equal(t, http.StatusOK, status)

	status, body := api.do(http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logout bem-sucedido.", body["mensagem"])

	status, _ = api.do(http.MethodGet, "/eventos", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginFailures(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodPost, "/usuarios", `{"nome":"Ana","email":"ana@x.com","senha":"pw"}`)

	status, body := api.do(http.MethodPost, "/login", `{"email":"ana@x.com","senha":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Credenciais inválidas.", body["mensagem"])

	status, body = api.do(http.MethodPost, "/login", `{"email":"nobody@x.com","senha":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Credenciais inválidas.", body["mensagem"])

	status, _ = api.do(http.MethodPost, "/login", `{"email":"ana@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodGet, "/usuarios", "")
	assert.Equal(t, http.StatusUnauthorized, status, "failed logins leave the client anonymous")
}

func TestClientErrorsAreRecorded(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(http.MethodPost, "/usuarios", `{"nome":"Ana"}`)
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = api.do(http.MethodPost, "/login", `{"email":""}`)
	require.Equal(t, http.StatusBadRequest, status)

	api.login()

	status, body := api.do(http.MethodPost, "/categorias", `{"nome":"Casa"}`)
	require.Equal(t, http.StatusCreated, status)
	id := body["id"].(string)
	status, _ = api.do(http.MethodPut, "/categorias/"+id, `{"nome":"  "}`)
	require.Equal(t, http.StatusBadRequest, status)

	assert.Equal(t, []string{
		"Usuario.insert: Campos obrigatórios faltando (email, senha)",
		"Auth.login: Email e senha são obrigatórios.",
		"Auth.login: Login bem-sucedido para o usuário ana@x.com",
		"Categoria.update: O campo nome não pode ficar vazio. (ID: " + id + ")",
	}, api.diagnostics())
}

// =========================================================================
// AUTHENTICATED CRUD
// =========================================================================

func TestUsersNeverExposePassword(t *testing.T) {
	api := newTestAPI(t)
	id := api.login()

	status, text := api.doRaw(http.MethodGet, "/usuarios", "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, text, "senha")
	assert.NotContains(t, text, "$2a$")

	status, body := api.do(http.MethodGet, "/usuarios/"+id, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ana", body["nome"])
	assert.NotContains(t, body, "senha")
}

func TestEventLifecycle(t *testing.T) {
	api := newTestAPI(t)
	userID := api.login()

	status, body := api.do(http.MethodPost, "/eventos",
		`{"titulo":"Reunião","data":"2024-05-01T10:00:00Z","idUsuario":"`+userID+`"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Evento criado com sucesso.", body["mensagem"])
	id := body["id"].(string)

	status, body = api.do(http.MethodGet, "/eventos/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Reunião", body["titulo"])
	assert.Equal(t, "2024-05-01T10:00:00Z", body["data"])

	status, body = api.do(http.MethodPut, "/eventos/"+id, `{"titulo":"Reunião semanal"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Evento atualizado com sucesso.", body["mensagem"])

	status, body = api.do(http.MethodPut, "/eventos/"+id, `{"titulo":"Reunião semanal"}`)
	assert.Equal(t, http.StatusNotFound, status, "unchanged values modify nothing")
	assert.Equal(t, "Evento não encontrado ou nenhum dado foi alterado.", body["mensagem"])

	status, body = api.do(http.MethodPut, "/eventos/"+id, `{"_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Nenhum dado fornecido para atualização.", body["mensagem"])

	status, _ = api.do(http.MethodDelete, "/eventos/"+id, "")
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodDelete, "/eventos/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Evento não encontrado para deletar.", body["mensagem"])
}

func TestEventValidation(t *testing.T) {
	api := newTestAPI(t)
	userID := api.login()

	status, body := api.do(http.MethodPost, "/eventos", `{"titulo":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Título, data e ID do usuário são obrigatórios para o evento.", body["mensagem"])

	status, body = api.do(http.MethodPost, "/eventos", `{"titulo":"x","data":"??","idUsuario":"`+userID+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Data inválida.", body["mensagem"])
}

func TestMalformedIDIsBadRequest(t *testing.T) {
	api := newTestAPI(t)
	api.login()

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		status, body := api.do(method, "/categorias/not-an-id", `{"nome":"x"}`)
		assert.Equal(t, http.StatusBadRequest, status, method)
		assert.Equal(t, "ID inválido.", body["mensagem"], method)
	}
}

func TestCategoryListAndNotFound(t *testing.T) {
	api := newTestAPI(t)
	api.login()

	status, text := api.doRaw(http.MethodGet, "/categorias", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, text)

	api.do(http.MethodPost, "/categorias", `{"nome":"Trabalho","cor":"#00f"}`)
	_, text = api.doRaw(http.MethodGet, "/categorias", "")
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Trabalho", list[0]["nome"])

	status, body := api.do(http.MethodGet, "/categorias/507f1f77bcf86cd799439011", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Categoria não encontrada.", body["mensagem"])
}
