// Package session persists the signed-in user's credential between runs.
// A Store is created once at startup and handed to whatever needs it; there
// is no package-level session state. It is populated at login and cleared
// at logout or when the server rejects the credential.
package session

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"

	"github.com/imkarma/taskboard/internal/api"
)

// Store is the SQLite-backed session. Reads are served from memory; every
// change is written through.
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	token *oauth2.Token
	user  *api.User
}

// Open opens (or creates) the session database at the given path and loads
// any saved session.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	// Enable WAL mode so a CLI call and an open dashboard can share the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS session (
		id            INTEGER PRIMARY KEY CHECK (id = 1),
		access_token  TEXT NOT NULL,
		token_type    TEXT NOT NULL DEFAULT 'bearer',
		user_id       INTEGER NOT NULL DEFAULT 0,
		email         TEXT DEFAULT '',
		username      TEXT DEFAULT '',
		role          TEXT DEFAULT '',
		saved_at      DATETIME NOT NULL
	);
	`)
	return err
}

func (s *Store) load() error {
	row := s.db.QueryRow(
		`SELECT access_token, token_type, user_id, email, username, role FROM session WHERE id = 1`,
	)
	var tok oauth2.Token
	var u api.User
	err := row.Scan(&tok.AccessToken, &tok.TokenType, &u.ID, &u.Email, &u.Username, &u.Role)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	s.token = &tok
	if u.Email != "" {
		s.user = &u
	}
	s.mu.Unlock()
	return nil
}

// Save stores a fresh credential. user may be nil when it is not known yet.
func (s *Store) Save(tok *oauth2.Token, user *api.User) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("save session: empty token")
	}
	var u api.User
	if user != nil {
		u = *user
	}

	_, err := s.db.Exec(
		`INSERT INTO session (id, access_token, token_type, user_id, email, username, role, saved_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			token_type   = excluded.token_type,
			user_id      = excluded.user_id,
			email        = excluded.email,
			username     = excluded.username,
			role         = excluded.role,
			saved_at     = excluded.saved_at`,
		tok.AccessToken, tok.TokenType, u.ID, u.Email, u.Username, u.Role, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.token = &oauth2.Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	s.user = user
	s.mu.Unlock()
	return nil
}

// SetUser records the profile of the already-stored credential.
func (s *Store) SetUser(u api.User) error {
	_, err := s.db.Exec(
		`UPDATE session SET user_id = ?, email = ?, username = ?, role = ? WHERE id = 1`,
		u.ID, u.Email, u.Username, u.Role,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Token implements api.Credentials.
func (s *Store) Token() (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, false
	}
	t := *s.token
	return &t, true
}

// User returns the signed-in user, if known.
func (s *Store) User() (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return api.User{}, false
	}
	return *s.user, true
}

// LoggedIn reports whether a credential is stored.
func (s *Store) LoggedIn() bool {
	_, ok := s.Token()
	return ok
}

// Clear implements api.Credentials. Clearing an empty session is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = nil
	s.user = nil
	s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
