package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ctbadmin/internal/adapters/storage/kv"
	"ctbadmin/internal/domain/account"
)

// --- Fakes ---

type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr map[string]error
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[key]; err != nil {
		return "", err
	}
	v, ok := m.data[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type fakeAuth struct {
	loginToken string
	loginUser  account.User
	loginErr   error

	meUser  account.User
	meErr   error
	meGate  chan struct{} // when non-nil, Me blocks until closed
	meCalls int
	mu      sync.Mutex
}

func (f *fakeAuth) Login(_ context.Context, _ account.Credentials) (string, account.User, error) {
	return f.loginToken, f.loginUser, f.loginErr
}

func (f *fakeAuth) Me(ctx context.Context) (account.User, error) {
	f.mu.Lock()
	f.meCalls++
	gate := f.meGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.meUser, f.meErr
}

var admin = account.User{ID: "1", Email: "admin@centrebienetre.ca", Role: "ADMIN"}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

// TestLogin tests the login contract.
func TestLogin(t *testing.T) {
	errBadCreds := errors.New("invalid email or password")

	tests := []struct {
		name      string
		email     string
		password  string
		auth      *fakeAuth
		wantErr   error
		wantState State
	}{
		{
			name: "success", email: "admin@centrebienetre.ca", password: "pw",
			auth:      &fakeAuth{loginToken: "tok", loginUser: admin},
			wantState: StateAuthenticated,
		},
		{
			name: "rejected", email: "admin@centrebienetre.ca", password: "bad",
			auth:      &fakeAuth{loginErr: errBadCreds},
			wantErr:   errBadCreds,
			wantState: StateAnonymous,
		},
		{
			name: "empty password never calls backend", email: "admin@centrebienetre.ca", password: "",
			auth:      &fakeAuth{loginErr: errors.New("must not be called")},
			wantErr:   account.ErrEmptyPassword,
			wantState: StateAnonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newMemKV()
			s := New(tt.auth, state)

			_, err := s.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if s.State() != tt.wantState {
				t.Errorf("state = %s, want %s", s.State(), tt.wantState)
			}
			if persisted := state.has(KeyToken); persisted != (tt.wantErr == nil) {
				t.Errorf("token persisted = %v", persisted)
			}
		})
	}
}

// TestLogout_Idempotent verifies repeated logouts are harmless.
func TestLogout_Idempotent(t *testing.T) {
	state := newMemKV()
	s := New(&fakeAuth{loginToken: "tok", loginUser: admin}, state)
	if _, err := s.Login(context.Background(), admin.Email, "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	s.Logout()
	s.Logout()
	if s.Token() != "" || s.State() != StateAnonymous {
		t.Error("logout must clear the session")
	}
	if state.has(KeyToken) || state.has(KeyUser) {
		t.Error("logout must clear persisted keys")
	}
}

// TestRestore tests startup validation outcomes.
func TestRestore(t *testing.T) {
	tests := []struct {
		name      string
		stored    map[string]string
		auth      *fakeAuth
		wantState State
		wantMe    int
	}{
		{
			name:      "nothing stored",
			stored:    map[string]string{},
			auth:      &fakeAuth{},
			wantState: StateAnonymous,
		},
		{
			name:      "undefined placeholder",
			stored:    map[string]string{KeyToken: "undefined", KeyUser: "undefined"},
			auth:      &fakeAuth{},
			wantState: StateAnonymous,
		},
		{
			name:      "valid token refreshes user",
			stored:    map[string]string{KeyToken: "opaque", KeyUser: `{"id":"1","email":"old@x.ca"}`},
			auth:      &fakeAuth{meUser: admin},
			wantState: StateAuthenticated,
			wantMe:    1,
		},
		{
			name:      "corrupt user json tolerated",
			stored:    map[string]string{KeyToken: "opaque", KeyUser: "{not json"},
			auth:      &fakeAuth{meUser: admin},
			wantState: StateAuthenticated,
			wantMe:    1,
		},
		{
			name:      "rejected token logs out",
			stored:    map[string]string{KeyToken: "opaque"},
			auth:      &fakeAuth{meErr: errors.New("401")},
			wantState: StateAnonymous,
			wantMe:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newMemKV()
			for k, v := range tt.stored {
				state.data[k] = v
			}
			s := New(tt.auth, state)
			s.Restore(context.Background())

			got, err := s.Wait(context.Background())
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if got != tt.wantState {
				t.Errorf("state = %s, want %s", got, tt.wantState)
			}
			if tt.auth.meCalls != tt.wantMe {
				t.Errorf("Me calls = %d, want %d", tt.auth.meCalls, tt.wantMe)
			}
			if got == StateAuthenticated {
				u, _ := s.User()
				if u.Email != admin.Email {
					t.Errorf("user = %+v, want refreshed profile", u)
				}
			}
		})
	}
}

// TestRestore_ExpiredJWT verifies an expired token is dropped without a call.
func TestRestore_ExpiredJWT(t *testing.T) {
	state := newMemKV()
	state.data[KeyToken] = signedToken(t, time.Now().Add(-time.Hour))
	auth := &fakeAuth{meUser: admin}
	s := New(auth, state)

	s.Restore(context.Background())
	if s.State() != StateAnonymous {
		t.Errorf("state = %s, want anonymous", s.State())
	}
	if auth.meCalls != 0 {
		t.Errorf("Me calls = %d, want 0", auth.meCalls)
	}
	if state.has(KeyToken) {
		t.Error("expired token must be removed")
	}
}

// TestRestore_StaleValidationDiscarded verifies a login during validation wins.
func TestRestore_StaleValidationDiscarded(t *testing.T) {
	state := newMemKV()
	state.data[KeyToken] = "old-token"
	gate := make(chan struct{})
	auth := &fakeAuth{meErr: errors.New("401"), meGate: gate, loginToken: "new-token", loginUser: admin}
	s := New(auth, state)

	s.Restore(context.Background())
	if s.State() != StateLoading {
		t.Fatalf("state = %s, want loading", s.State())
	}

	if _, err := s.Login(context.Background(), admin.Email, "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	close(gate)

	// Give the superseded validation time to finish.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		auth.mu.Lock()
		calls := auth.meCalls
		auth.mu.Unlock()
		if calls == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	if s.Token() != "new-token" || s.State() != StateAuthenticated {
		t.Errorf("token = %q state = %s; stale validation must not log out", s.Token(), s.State())
	}
	if v, _ := state.Get(context.Background(), KeyToken); v != "new-token" {
		t.Errorf("persisted token = %q, want new-token", v)
	}
}

// TestWait_HonoursContext verifies Wait returns when ctx ends.
func TestWait_HonoursContext(t *testing.T) {
	state := newMemKV()
	state.data[KeyToken] = "opaque"
	gate := make(chan struct{})
	defer close(gate)
	s := New(&fakeAuth{meGate: gate}, state)
	s.Restore(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

// TestRequire tests the guard used by authenticated commands.
func TestRequire(t *testing.T) {
	s := New(&fakeAuth{}, newMemKV())
	if _, err := s.Require(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Require() error = %v, want ErrNotLoggedIn", err)
	}

	state := newMemKV()
	state.data[KeyToken] = "opaque"
	s = New(&fakeAuth{meUser: admin}, state)
	u, err := s.Require(context.Background())
	if err != nil || u.Email != admin.Email {
		t.Errorf("Require() = %+v, %v", u, err)
	}
}

// TestRememberEmail tests the remembered login address.
func TestRememberEmail(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeAuth{}, newMemKV())
	if got := s.LastEmail(ctx); got != "" {
		t.Errorf("LastEmail = %q, want empty", got)
	}
	if err := s.RememberEmail(ctx, " admin@centrebienetre.ca "); err != nil {
		t.Fatalf("RememberEmail: %v", err)
	}
	if got := s.LastEmail(ctx); got != "admin@centrebienetre.ca" {
		t.Errorf("LastEmail = %q", got)
	}
	if err := s.ForgetEmail(ctx); err != nil {
		t.Fatalf("ForgetEmail: %v", err)
	}
	if got := s.LastEmail(ctx); got != "" {
		t.Errorf("LastEmail after forget = %q", got)
	}
}

// TestRequire_UndecryptableStateKept verifies a wrong state key is reported
// and the sealed session is not wiped.
func TestRequire_UndecryptableStateKept(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "token", key: KeyToken},
		{name: "user", key: KeyUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newMemKV()
			state.data[KeyToken] = "sealed-token"
			state.data[KeyUser] = "sealed-user"
			state.getErr = map[string]error{tt.key: fmt.Errorf("get %s: %w", tt.key, kv.ErrUnseal)}
			auth := &fakeAuth{}
			s := New(auth, state)

			_, err := s.Require(context.Background())
			if !errors.Is(err, kv.ErrUnseal) {
				t.Fatalf("Require() = %v, want ErrUnseal", err)
			}
			if !state.has(KeyToken) || !state.has(KeyUser) {
				t.Error("undecryptable session must stay on disk")
			}
			if auth.meCalls != 0 {
				t.Errorf("Me calls = %d, want 0", auth.meCalls)
			}
			if s.State() != StateAnonymous {
				t.Errorf("state = %v, want anonymous", s.State())
			}
		})
	}
}
