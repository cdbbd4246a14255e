package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/sakif/agenda-api/internal/apperror"
)

// CookieName is the session cookie existing clients already send.
const CookieName = "connect.sid"

const (
	keyUserID          = "userId"
	keyUserEmail       = "userEmail"
	keyIsAuthenticated = "isAuthenticated"
)

// State is the per-client session state.
type State struct {
	UserID          string
	UserEmail       string
	IsAuthenticated bool
}

// CookieOptions returns the cookie attributes for sessions lasting maxAge.
// Secure is set only in production so plain-HTTP development still works.
func CookieOptions(maxAge time.Duration, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionManager reads and writes State through an SQLStore.
type SessionManager struct {
	store *SQLStore
	name  string
}

func NewSessionManager(store *SQLStore) *SessionManager {
	return &SessionManager{store: store, name: CookieName}
}

// Store exposes the underlying store, e.g. for purging at startup.
func (m *SessionManager) Store() *SQLStore {
	return m.store
}

// Load returns the state attached to the request. A request without a
// usable session yields the zero State; err reports tampered cookies or
// storage failures, and the caller should still treat the client as
// anonymous.
func (m *SessionManager) Load(r *http.Request) (State, error) {
	sess, err := m.store.Get(r, m.name)
	if sess == nil {
		return State{}, err
	}
	return stateFrom(sess), err
}

// Establish marks the client as authenticated. Any previous session row is
// deleted and a new id is issued, so an id planted before login is useless.
func (m *SessionManager) Establish(w http.ResponseWriter, r *http.Request, st State) error {
	sess, _ := m.store.Get(r, m.name)
	if sess == nil {
		sess = m.fresh()
	}

	if err := m.store.discard(r.Context(), sess); err != nil {
		return err
	}

	sess.Values = map[interface{}]interface{}{
		keyUserID:          st.UserID,
		keyUserEmail:       st.UserEmail,
		keyIsAuthenticated: st.IsAuthenticated,
	}
	sess.Options.MaxAge = m.store.Options.MaxAge
	return sess.Save(r, w)
}

// Destroy forgets the client's session and expires its cookie. It is safe
// to call for anonymous clients.
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	if sess == nil {
		sess = m.fresh()
	}

	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return apperror.LogoutFailed(err)
	}
	return nil
}

func (m *SessionManager) fresh() *sessions.Session {
	sess := sessions.NewSession(m.store, m.name)
	opts := *m.store.Options
	sess.Options = &opts
	sess.IsNew = true
	return sess
}

func stateFrom(sess *sessions.Session) State {
	var st State
	st.UserID, _ = sess.Values[keyUserID].(string)
	st.UserEmail, _ = sess.Values[keyUserEmail].(string)
	st.IsAuthenticated, _ = sess.Values[keyIsAuthenticated].(bool)
	return st
}
