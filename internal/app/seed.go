package app

import (
	"context"

	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/roles"
	"github.com/groveauth/grove/internal/users"
)

// Seed writes the protected root role and root-admin records if absent.
// Both must exist before any request is served.
func Seed(ctx context.Context, st store.Client) error {
	if err := roles.EnsureRootRole(ctx, st); err != nil {
		return err
	}
	return users.EnsureRootAdmin(ctx, st)
}
