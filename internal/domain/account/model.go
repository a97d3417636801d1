package account

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// Role constants
const (
	RoleAdmin = "ADMIN"
)

// Domain errors
var (
	ErrEmptyEmail    = errors.New("email is required")
	ErrInvalidEmail  = errors.New("email is not valid")
	ErrEmptyPassword = errors.New("password is required")
)

var validate = validator.New()

// User is the profile of the authenticated administrator as returned by the backend.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// IsAdmin returns true if the user has the admin role.
// INVARIANT: User fields are not mutated
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin)
}

// DisplayName returns the name, falling back to the email.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

// Credentials carries the login form.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Validate checks the login form before any network call.
// PRE: none
// POST: Returns nil if both fields are usable, a domain error otherwise
func (c Credentials) Validate() error {
	c.Email = strings.TrimSpace(c.Email)
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch fe := verrs[0]; {
	case fe.Field() == "Email" && fe.Tag() == "required":
		return ErrEmptyEmail
	case fe.Field() == "Email":
		return ErrInvalidEmail
	default:
		return ErrEmptyPassword
	}
}

// TokenExpiry reads the exp claim of a JWT bearer token without verifying it.
// The signature is the backend's business; this is only used to skip a
// validation round-trip for tokens that are already expired.
// PRE: none
// POST: ok is false when the token is not a JWT or carries no exp claim
func TokenExpiry(token string) (exp time.Time, ok bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	date, err := parsed.Claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}
