package orchestrators

import (
	"context"
	"log/slog"

	"ctbadmin/internal/domain/account"
)

// SessionForLogin defines the session operations needed by Login and Logout.
type SessionForLogin interface {
	Login(ctx context.Context, email, password string) (account.User, error)
	Logout()
	RememberEmail(ctx context.Context, email string) error
	ForgetEmail(ctx context.Context) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
	Remember bool
}

// LoginDeps holds dependencies for Login and Logout.
type LoginDeps struct {
	Session SessionForLogin
}

// ExecuteLogin authenticates against the backend and stores the session.
// PRE: none
// POST: Returns the user on success. Validation errors are returned before
// any call; rejected credentials never clear an existing remembered address.
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (account.User, error) {
	user, err := deps.Session.Login(ctx, input.Email, input.Password)
	if err != nil {
		return account.User{}, err
	}

	if input.Remember {
		err = deps.Session.RememberEmail(ctx, input.Email)
	} else {
		err = deps.Session.ForgetEmail(ctx)
	}
	if err != nil {
		slog.Warn("auth_event", "event", "remember_email_failed", "error", err)
	}
	return user, nil
}

// ExecuteLogout clears the session.
// POST: No token remains in memory or on disk
func ExecuteLogout(_ context.Context, deps LoginDeps) {
	deps.Session.Logout()
}
