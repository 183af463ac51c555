// Package authz decides which hierarchy mutations a caller may perform.
//
// Two closures exist on purpose and are not interchangeable: the manageable
// set (strict descendants of the caller's roles) gates mutations of
// existing roles and users, while the accessible set (held roles plus
// descendants) scopes listing and counting of users. Role creation is
// stricter still: it requires directly holding the parent role.
package authz

import (
	"context"

	"github.com/groveauth/grove/internal/hierarchy"
	"github.com/groveauth/grove/internal/shared"
)

// Evaluator applies the permission rules on top of the hierarchy engine.
type Evaluator struct {
	hierarchy *hierarchy.Engine
}

// NewEvaluator builds an Evaluator.
func NewEvaluator(engine *hierarchy.Engine) *Evaluator {
	return &Evaluator{hierarchy: engine}
}

// ManageableSet returns the strict descendants of the caller's held roles.
// The held roles themselves are not manageable.
func (e *Evaluator) ManageableSet(ctx context.Context, caller shared.Caller) (map[string]struct{}, error) {
	return e.hierarchy.Descendants(ctx, caller.RoleIDs)
}

// AccessibleSet returns the caller's held roles plus their descendants.
func (e *Evaluator) AccessibleSet(ctx context.Context, caller shared.Caller) (map[string]struct{}, error) {
	set, err := e.hierarchy.Descendants(ctx, caller.RoleIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range caller.RoleIDs {
		set[id] = struct{}{}
	}
	return set, nil
}

// CanCreateRole gates creation of a role under parentID. Non-root callers
// must hold the parent directly; a manageable descendant is not enough, and
// top-level roles are reserved for the root admin.
func (e *Evaluator) CanCreateRole(ctx context.Context, caller shared.Caller, parentID string) error {
	if caller.IsRootAdmin {
		return nil
	}
	if parentID == shared.TopLevelParent {
		return shared.E(shared.KindAuthorization, "only the root admin may create top-level roles")
	}
	if !caller.HoldsRole(parentID) {
		return shared.E(shared.KindAuthorization, "caller does not hold the parent role")
	}
	return nil
}

// CanMoveRole gates a parent change from currentParent to newParent. Both
// ends must sit inside the caller's manageable set; touching the top level
// on either end stays root-admin only.
func (e *Evaluator) CanMoveRole(ctx context.Context, caller shared.Caller, currentParent, newParent string) error {
	if caller.IsRootAdmin {
		return nil
	}
	if currentParent == shared.TopLevelParent || newParent == shared.TopLevelParent {
		return shared.E(shared.KindAuthorization, "only the root admin may rearrange top-level roles")
	}
	manageable, err := e.ManageableSet(ctx, caller)
	if err != nil {
		return err
	}
	if _, ok := manageable[currentParent]; !ok {
		return shared.E(shared.KindAuthorization, "current parent is outside the caller's scope")
	}
	if _, ok := manageable[newParent]; !ok {
		return shared.E(shared.KindAuthorization, "new parent is outside the caller's scope")
	}
	return nil
}

// CanDeleteRole gates deletion of one role.
func (e *Evaluator) CanDeleteRole(ctx context.Context, caller shared.Caller, roleID string) error {
	if caller.IsRootAdmin {
		return nil
	}
	manageable, err := e.ManageableSet(ctx, caller)
	if err != nil {
		return err
	}
	if _, ok := manageable[roleID]; !ok {
		return shared.E(shared.KindAuthorization, "role is outside the caller's scope")
	}
	return nil
}

// CanAssignRoles gates handing out a role set on user creation. Every role
// must be manageable.
func (e *Evaluator) CanAssignRoles(ctx context.Context, caller shared.Caller, roleIDs []string) error {
	if caller.IsRootAdmin {
		return nil
	}
	manageable, err := e.ManageableSet(ctx, caller)
	if err != nil {
		return err
	}
	return allManageable(manageable, roleIDs)
}

// CanUpdateUser gates replacing a user's role set. One out-of-scope role in
// either the current or the requested set denies the whole operation.
func (e *Evaluator) CanUpdateUser(ctx context.Context, caller shared.Caller, current, requested []string) error {
	if caller.IsRootAdmin {
		return nil
	}
	manageable, err := e.ManageableSet(ctx, caller)
	if err != nil {
		return err
	}
	if err := allManageable(manageable, current); err != nil {
		return err
	}
	return allManageable(manageable, requested)
}

// CanDeleteUser gates deletion of a user holding the given roles. A user
// with no roles at all can only be removed by the root admin.
func (e *Evaluator) CanDeleteUser(ctx context.Context, caller shared.Caller, roleIDs []string) error {
	if caller.IsRootAdmin {
		return nil
	}
	if len(roleIDs) == 0 {
		return shared.E(shared.KindAuthorization, "only the root admin may delete users without roles")
	}
	manageable, err := e.ManageableSet(ctx, caller)
	if err != nil {
		return err
	}
	return allManageable(manageable, roleIDs)
}

func allManageable(manageable map[string]struct{}, roleIDs []string) error {
	for _, id := range roleIDs {
		if _, ok := manageable[id]; !ok {
			return shared.Ef(shared.KindAuthorization, "role %s is outside the caller's scope", id)
		}
	}
	return nil
}
