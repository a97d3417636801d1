package account_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ctbadmin/internal/domain/account"
)

// TestCredentials_Validate tests validation of the login form.
func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   account.Credentials
		wantErr error
	}{
		{
			name:    "valid",
			creds:   account.Credentials{Email: "admin@centrebienetre.ca", Password: "secret"},
			wantErr: nil,
		},
		{
			name:    "padded email",
			creds:   account.Credentials{Email: "  admin@centrebienetre.ca ", Password: "secret"},
			wantErr: nil,
		},
		{
			name:    "empty email",
			creds:   account.Credentials{Email: "", Password: "secret"},
			wantErr: account.ErrEmptyEmail,
		},
		{
			name:    "malformed email",
			creds:   account.Credentials{Email: "admin", Password: "secret"},
			wantErr: account.ErrInvalidEmail,
		},
		{
			name:    "empty password",
			creds:   account.Credentials{Email: "admin@centrebienetre.ca", Password: ""},
			wantErr: account.ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestUser_IsAdmin tests role detection.
func TestUser_IsAdmin(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{role: "ADMIN", want: true},
		{role: "admin", want: true},
		{role: "EDITOR", want: false},
		{role: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			u := account.User{Role: tt.role}
			if got := u.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestTokenExpiry verifies exp is read from unsigned-checked JWTs.
func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "sub": "1"})
	signed, err := tok.SignedString([]byte("any-key"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	got, ok := account.TokenExpiry(signed)
	if !ok {
		t.Fatal("expected exp claim to be found")
	}
	if !got.Equal(exp) {
		t.Errorf("exp = %v, want %v", got, exp)
	}

	if _, ok := account.TokenExpiry("opaque-session-token"); ok {
		t.Error("opaque tokens must report ok=false")
	}
}
