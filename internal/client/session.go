package client

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"bazaar/internal/users"
)

// sessionFileName is the fixed name of the durable session file.
const sessionFileName = "session.json"

// StoredSession is the persisted client state: the bearer token and the
// user summary, so a restart does not force re-authentication.
type StoredSession struct {
	Token string           `json:"token"`
	User  users.PublicUser `json:"user"`
}

// SessionCache persists the session to a local file, the CLI analog of
// browser local storage.
type SessionCache struct {
	path string
}

// NewSessionCache creates a session cache at the given file path
func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// DefaultSessionCache places the session file in the user config directory
func DefaultSessionCache() (*SessionCache, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return NewSessionCache(filepath.Join(dir, "bazaar", sessionFileName)), nil
}

// Load reads the stored session. An absent file means unauthenticated
// (nil, nil). A malformed file is cleared and also treated as
// unauthenticated rather than surfaced as an error.
func (s *SessionCache) Load() (*StoredSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var session StoredSession
	if err := json.Unmarshal(data, &session); err != nil || session.Token == "" {
		slog.Warn("Discarding malformed session cache", "path", s.path)
		if err := s.Clear(); err != nil {
			slog.Warn("Failed to clear malformed session cache", "error", err)
		}
		return nil, nil
	}

	return &session, nil
}

// Save persists the session. The file is written with owner-only
// permissions since it holds a live credential.
func (s *SessionCache) Save(token string, user users.PublicUser) error {
	data, err := json.Marshal(StoredSession{Token: token, User: user})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the stored session. Clearing an absent session is a no-op.
func (s *SessionCache) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Session is the explicit authentication state object. It is constructed
// once and passed to whatever needs it; there is no ambient global state.
type Session struct {
	api   *Client
	cache *SessionCache

	user          users.PublicUser
	authenticated bool
}

// NewSession binds an API client to a durable cache
func NewSession(api *Client, cache *SessionCache) *Session {
	return &Session{api: api, cache: cache}
}

// Init restores authentication state from the cache. A missing or
// malformed cache leaves the session unauthenticated without error.
func (s *Session) Init() error {
	stored, err := s.cache.Load()
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}

	s.api.SetToken(stored.Token)
	s.user = stored.User
	s.authenticated = true
	return nil
}

// Register creates an account and becomes authenticated as it
func (s *Session) Register(ctx context.Context, name, email, password string) error {
	resp, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	return s.establish(resp.AccessToken, resp.User)
}

// Login authenticates with credentials
func (s *Session) Login(ctx context.Context, email, password string) error {
	tok, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	// Login returns only the token; the summary we know locally is the email
	return s.establish(tok, users.PublicUser{Email: email})
}

// Logout revokes the token server-side (best effort), then clears durable
// storage before resetting in-memory state.
func (s *Session) Logout(ctx context.Context) error {
	if s.authenticated {
		if err := s.api.Logout(ctx); err != nil {
			slog.Warn("Server-side token revocation failed, clearing local session anyway", "error", err)
		}
	}

	if err := s.cache.Clear(); err != nil {
		return err
	}

	s.api.SetToken("")
	s.user = users.PublicUser{}
	s.authenticated = false
	return nil
}

// Authenticated reports whether the session holds a token
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// User returns the cached user summary
func (s *Session) User() users.PublicUser {
	return s.user
}

func (s *Session) establish(token string, user users.PublicUser) error {
	if err := s.cache.Save(token, user); err != nil {
		return err
	}
	s.api.SetToken(token)
	s.user = user
	s.authenticated = true
	return nil
}
