// Package identity holds the port to the external identity account store
// used by user deletion.
package identity

import (
	"context"
	"errors"
)

// ErrAccountNotFound reports that no account exists for the subject. User
// deletion treats it as success: the account is already gone.
var ErrAccountNotFound = errors.New("identity: account not found")

// AccountStore removes login accounts held by the external provider.
type AccountStore interface {
	DeleteAccount(ctx context.Context, subject string) error
}

// Noop is an AccountStore for deployments without an external provider.
type Noop struct{}

// DeleteAccount always succeeds.
func (Noop) DeleteAccount(ctx context.Context, subject string) error {
	return nil
}
