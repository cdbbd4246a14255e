package auth

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/repository"
)

// SQLStore is a gorilla/sessions Store that keeps session values on the
// server, in a repository.SessionRepository (SQLite in production).
//
// The cookie carries only the session id, signed (and optionally encrypted)
// with securecookie. Values are encoded with the same codecs before they are
// written to the row, so a copied database file is useless without the key.
//
// Destroying a session deletes its row, so a stolen cookie stops working
// the moment its owner logs out.
type SQLStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	rows repository.SessionRepository
	now  func() time.Time
}

var _ sessions.Store = (*SQLStore)(nil)

// NewSQLStore builds a store. keyPairs follow securecookie conventions:
// a hash key, optionally followed by a block key, repeated for rotation.
func NewSQLStore(rows repository.SessionRepository, opts sessions.Options, keyPairs ...[]byte) *SQLStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
	return &SQLStore{
		Codecs:  codecs,
		Options: &opts,
		rows:    rows,
		now:     time.Now,
	}
}

// Get returns the session cached for this request, loading it on first use.
func (s *SQLStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing cookie, an
// unknown id or an expired row all yield a fresh session with no error.
// A cookie that fails signature checks yields a fresh session and the
// decode error.
func (s *SQLStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		session.ID = ""
		return session, err
	}

	err = s.load(r.Context(), session)
	switch {
	case err == nil:
		session.IsNew = false
		return session, nil
	case errors.Is(err, apperror.ErrNotFound):
		// Never resurrect an id the server no longer knows.
		session.ID = ""
		return session, nil
	default:
		session.ID = ""
		return session, err
	}
}

// Save persists the session and writes the cookie. A non-positive MaxAge
// deletes the row and expires the cookie.
func (s *SQLStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge <= 0 {
		if err := s.rows.DeleteSession(ctx, session.ID); err != nil {
			return err
		}
		session.ID = ""
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		id, err := newSessionID()
		if err != nil {
			return err
		}
		session.ID = id
	}

	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return fmt.Errorf("auth: encoding session values: %w", err)
	}

	rec := &repository.SessionRecord{
		ID:        session.ID,
		Data:      data,
		ExpiresAt: s.now().Add(time.Duration(session.Options.MaxAge) * time.Second),
	}
	if err := s.rows.SaveSession(ctx, rec); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("auth: encoding session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// PurgeExpired deletes rows whose expiry has passed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.rows.DeleteExpiredSessions(ctx, s.now())
}

// discard deletes the persisted row of session and clears its id, so the
// next Save issues a new one.
func (s *SQLStore) discard(ctx context.Context, session *sessions.Session) error {
	if session.ID == "" {
		return nil
	}
	if err := s.rows.DeleteSession(ctx, session.ID); err != nil {
		return err
	}
	session.ID = ""
	return nil
}

func (s *SQLStore) load(ctx context.Context, session *sessions.Session) error {
	rec, err := s.rows.GetSession(ctx, session.ID, s.now())
	if err != nil {
		return err
	}
	if err := securecookie.DecodeMulti(session.Name(), rec.Data, &session.Values, s.Codecs...); err != nil {
		return fmt.Errorf("auth: decoding session values: %w", err)
	}
	return nil
}

var sessionIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func newSessionID() (string, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("auth: generating session id")
	}
	return strings.ToLower(sessionIDEncoding.EncodeToString(key)), nil
}
