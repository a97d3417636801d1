package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ctbadmin/internal/adapters/storage/kv"
	"ctbadmin/internal/domain/account"
)

// Persisted keys.
const (
	KeyToken     = "ctb_token"
	KeyUser      = "ctb_user"
	KeyLastEmail = "ctb_last_email"
)

// ErrNotLoggedIn is returned by Require when no validated session exists.
var ErrNotLoggedIn = errors.New("not logged in")

// State is the lifecycle of the session.
type State int

const (
	StateAnonymous State = iota
	StateLoading
	StateAuthenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Authenticator is the part of the API client the session needs.
type Authenticator interface {
	Login(ctx context.Context, creds account.Credentials) (string, account.User, error)
	Me(ctx context.Context) (account.User, error)
}

// Store holds the bearer token and user profile and mirrors them to the local
// kv store. Every mutation bumps a generation counter; an asynchronous token
// validation only applies its result if the generation it started under is
// still current.
type Store struct {
	api   Authenticator
	state kv.Store
	now   func() time.Time

	mu         sync.Mutex
	token      string
	user       *account.User
	status     State
	generation uint64
	loaded     chan struct{} // closed when the pending validation settles
}

// New creates an anonymous store.
func New(api Authenticator, state kv.Store) *Store {
	return &Store{api: api, state: state, now: time.Now, status: StateAnonymous}
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the cached profile.
func (s *Store) User() (account.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return account.User{}, false
	}
	return *s.user, true
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Login validates the credentials, authenticates against the backend and
// persists the new session. Any validation still in flight is superseded.
// PRE: none
// POST: On success state is Authenticated and token/user are persisted.
// Errors from account validation, client.ErrInvalidCredentials and
// client.ErrNetwork are passed through for errors.Is.
func (s *Store) Login(ctx context.Context, email, password string) (account.User, error) {
	creds := account.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := creds.Validate(); err != nil {
		return account.User{}, err
	}

	token, user, err := s.api.Login(ctx, creds)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", creds.Email, "error", err)
		return account.User{}, err
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return account.User{}, fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.Set(ctx, KeyToken, token); err != nil {
		return account.User{}, fmt.Errorf("persist session: %w", err)
	}
	if err := s.state.Set(ctx, KeyUser, string(raw)); err != nil {
		return account.User{}, fmt.Errorf("persist session: %w", err)
	}
	s.generation++
	s.token = token
	s.user = &user
	s.status = StateAuthenticated
	s.settleLocked()

	slog.Info("auth_event", "event", "login_success", "email", user.Email, "role", user.Role)
	return user, nil
}

// Logout clears the session in memory and on disk. It is safe to call at any
// time, including when already logged out and from the unauthorized hook.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutLocked()
}

// logoutLocked clears memory and persisted keys. Caller holds s.mu.
func (s *Store) logoutLocked() {
	wasActive := s.token != ""
	s.generation++
	s.token = ""
	s.user = nil
	s.status = StateAnonymous
	s.settleLocked()

	if err := s.state.Delete(context.Background(), KeyToken, KeyUser); err != nil {
		slog.Warn("auth_event", "event", "logout_persist_failed", "error", err)
	}
	if wasActive {
		slog.Info("auth_event", "event", "logout")
	}
}

// Restore loads a persisted session. Unusable values ("", "undefined",
// "null", corrupt JSON) are treated as absent. A JWT whose exp is already past
// is discarded without a network call. Otherwise the store enters
// StateLoading and validates the token against /auth/me in the background.
// Local state that cannot be decrypted is reported as kv.ErrUnseal and left
// untouched.
// PRE: none
// POST: State is Anonymous or Loading; Wait blocks until the validation settles
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.readSealed(ctx, KeyToken)
	if err != nil {
		return err
	}
	if token == "" {
		s.Logout()
		return nil
	}
	if exp, ok := account.TokenExpiry(token); ok && !exp.After(s.now()) {
		slog.Info("auth_event", "event", "token_expired", "expired_at", exp)
		s.Logout()
		return nil
	}

	raw, err := s.readSealed(ctx, KeyUser)
	if err != nil {
		return err
	}
	var user *account.User
	if raw != "" {
		var u account.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			user = &u
		}
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.token = token
	s.user = user
	s.status = StateLoading
	s.settleLocked()
	s.loaded = make(chan struct{})
	s.mu.Unlock()

	go s.validate(ctx, gen)
	return nil
}

func (s *Store) validate(ctx context.Context, gen uint64) {
	user, err := s.api.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		slog.Debug("auth_event", "event", "stale_validation_dropped", "generation", gen)
		return
	}
	if err != nil {
		slog.Info("auth_event", "event", "token_rejected", "error", err)
		s.logoutLocked()
		return
	}
	s.user = &user
	s.status = StateAuthenticated
	s.settleLocked()

	if raw, err := json.Marshal(user); err == nil {
		if err := s.state.Set(ctx, KeyUser, string(raw)); err != nil {
			slog.Warn("auth_event", "event", "user_persist_failed", "error", err)
		}
	}
	slog.Debug("auth_event", "event", "token_validated", "email", user.Email)
}

// settleLocked releases Wait callers. Caller holds s.mu.
func (s *Store) settleLocked() {
	if s.loaded != nil {
		close(s.loaded)
		s.loaded = nil
	}
}

// Wait blocks until no validation is pending and returns the resulting state.
// PRE: none
// POST: Returns the settled state, or ctx.Err() if ctx ends first
func (s *Store) Wait(ctx context.Context) (State, error) {
	s.mu.Lock()
	ch := s.loaded
	s.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return StateLoading, ctx.Err()
		}
	}
	return s.State(), nil
}

// Require restores and waits for the session, returning the user of a valid
// session or ErrNotLoggedIn.
func (s *Store) Require(ctx context.Context) (account.User, error) {
	if s.State() == StateAnonymous {
		if err := s.Restore(ctx); err != nil {
			return account.User{}, err
		}
	}
	state, err := s.Wait(ctx)
	if err != nil {
		return account.User{}, err
	}
	u, ok := s.User()
	if state != StateAuthenticated || !ok {
		return account.User{}, ErrNotLoggedIn
	}
	return u, nil
}

// RememberEmail stores the address prefilled on the next login.
func (s *Store) RememberEmail(ctx context.Context, email string) error {
	return s.state.Set(ctx, KeyLastEmail, strings.TrimSpace(email))
}

// LastEmail returns the remembered address, or "".
func (s *Store) LastEmail(ctx context.Context) string {
	return s.read(ctx, KeyLastEmail)
}

// ForgetEmail removes the remembered address.
func (s *Store) ForgetEmail(ctx context.Context) error {
	return s.state.Delete(ctx, KeyLastEmail)
}

// readSealed returns a usable persisted value, or "" for missing and
// placeholder values. A value that cannot be decrypted is an error.
func (s *Store) readSealed(ctx context.Context, key string) (string, error) {
	v, err := s.state.Get(ctx, key)
	switch {
	case errors.Is(err, kv.ErrUnseal):
		return "", fmt.Errorf("read %s: %w", key, err)
	case errors.Is(err, kv.ErrNotFound):
		return "", nil
	case err != nil:
		slog.Warn("session_state_unreadable", "key", key, "error", err)
		return "", nil
	}
	v = strings.TrimSpace(v)
	switch v {
	case "", "undefined", "null":
		return "", nil
	}
	return v, nil
}

// read is readSealed for values whose loss is harmless.
func (s *Store) read(ctx context.Context, key string) string {
	v, err := s.readSealed(ctx, key)
	if err != nil {
		slog.Warn("session_state_unreadable", "key", key, "error", err)
	}
	return v
}
