package main

import (
	"errors"
	"fmt"
	"os"

	"ctbadmin/internal/adapters/storage/kv"
	"ctbadmin/internal/application/session"
	"ctbadmin/internal/domain/capsule"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(exitCode(err))
	}
}

// describe turns an error into the message shown to the operator.
func describe(err error) string {
	var fe capsule.FieldErrors
	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		return "not logged in (run: ctbadmin login --email <address>)"
	case errors.Is(err, kv.ErrUnseal):
		return "local state cannot be decrypted; check CTB_STATE_KEY"
	case errors.As(err, &fe):
		msg := "invalid capsule:"
		for _, k := range sortedKeys(fe) {
			msg += fmt.Sprintf("\n  %s: %s", k, fe[k])
		}
		return msg
	}
	return err.Error()
}

func exitCode(err error) int {
	if errors.Is(err, session.ErrNotLoggedIn) {
		return 2
	}
	return 1
}
