package roles

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groveauth/grove/internal/authz"
	"github.com/groveauth/grove/internal/hierarchy"
	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/shared"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, EnsureRootRole(context.Background(), st))
	engine := hierarchy.NewEngine(st)
	svc := NewService(st, engine, authz.NewEvaluator(engine))
	return svc, st
}

func seedRole(t *testing.T, st store.Client, role Role) {
	t.Helper()
	doc, err := json.Marshal(role)
	require.NoError(t, err)
	err = st.Put(context.Background(), shared.TableRoles, store.Record{
		Key:      role.ID,
		ParentID: role.ParentID,
		Doc:      doc,
	})
	require.NoError(t, err)
}

var asRoot = shared.Caller{Subject: shared.RootAdminEmail, IsRootAdmin: true}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, asRoot, "", "Engineering", shared.RootRoleID)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(ctx, asRoot, "department", "   ", shared.RootRoleID)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestCreateDefaultsParentToTopLevel(t *testing.T) {
	svc, _ := newTestService(t)

	role, err := svc.Create(context.Background(), asRoot, "department", "Engineering", "")
	require.NoError(t, err)
	assert.Equal(t, shared.TopLevelParent, role.ParentID)
	assert.NotEmpty(t, role.ID)

	stored, err := svc.Get(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, role, stored)
}

func TestCreateRequiresDirectlyHeldParent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})
	seedRole(t, st, Role{ID: "b", RoleType: "team", Name: "B", ParentID: "a"})

	caller := shared.Caller{Subject: "lead@grove.local", RoleIDs: []string{"b"}}

	role, err := svc.Create(ctx, caller, "squad", "Under B", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", role.ParentID)

	// a sits above the caller.
	_, err = svc.Create(ctx, caller, "squad", "Under A", "a")
	assert.Equal(t, shared.KindAuthorization, shared.KindOf(err))

	// Non-root callers never create top-level roles.
	_, err = svc.Create(ctx, caller, "squad", "Top", "")
	assert.Equal(t, shared.KindAuthorization, shared.KindOf(err))
}

func TestUpdateProtectsRootRole(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Update(context.Background(), asRoot, shared.RootRoleID, "Renamed", "system", "")
	assert.Equal(t, shared.KindProtected, shared.KindOf(err))
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	svc, st := newTestService(t)
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})

	_, err := svc.Update(context.Background(), asRoot, "a", "A", "department", "a")
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestUpdateMissingParent(t *testing.T) {
	svc, st := newTestService(t)
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})

	_, err := svc.Update(context.Background(), asRoot, "a", "A", "department", "ghost")
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestUpdateMovesRole(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})
	seedRole(t, st, Role{ID: "b", RoleType: "team", Name: "B", ParentID: "a"})
	seedRole(t, st, Role{ID: "c", RoleType: "team", Name: "C", ParentID: "a"})
	seedRole(t, st, Role{ID: "d", RoleType: "squad", Name: "D", ParentID: "b"})

	caller := shared.Caller{Subject: "admin@grove.local", RoleIDs: []string{"a"}}

	updated, err := svc.Update(ctx, caller, "d", "D moved", "squad", "c")
	require.NoError(t, err)
	assert.Equal(t, "c", updated.ParentID)
	assert.Equal(t, "D moved", updated.Name)

	stored, err := svc.Get(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestUpdateDeniedOutsideScope(t *testing.T) {
	svc, st := newTestService(t)
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})
	seedRole(t, st, Role{ID: "b", RoleType: "team", Name: "B", ParentID: "a"})
	seedRole(t, st, Role{ID: "x", RoleType: "department", Name: "X", ParentID: shared.RootRoleID})

	caller := shared.Caller{Subject: "admin@grove.local", RoleIDs: []string{"a"}}
	_, err := svc.Update(context.Background(), caller, "b", "B", "team", "x")
	assert.Equal(t, shared.KindAuthorization, shared.KindOf(err))
}

func TestDeleteProtectsRootRole(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Delete(context.Background(), asRoot, shared.RootRoleID)
	assert.Equal(t, shared.KindProtected, shared.KindOf(err))
}

func TestDeleteConflictsOnChildren(t *testing.T) {
	svc, st := newTestService(t)
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})
	seedRole(t, st, Role{ID: "b", RoleType: "team", Name: "B", ParentID: "a"})
	seedRole(t, st, Role{ID: "c", RoleType: "team", Name: "C", ParentID: "a"})

	// Children block deletion for every caller, root admin included.
	err := svc.Delete(context.Background(), asRoot, "a")
	require.Error(t, err)
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))

	var domainErr *shared.Error
	require.True(t, errors.As(err, &domainErr))
	assert.ElementsMatch(t, []string{"b", "c"}, domainErr.ChildRoleIDs)
}

func TestDeleteLeafRole(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})
	seedRole(t, st, Role{ID: "b", RoleType: "team", Name: "B", ParentID: "a"})

	caller := shared.Caller{Subject: "admin@grove.local", RoleIDs: []string{"a"}}
	require.NoError(t, svc.Delete(ctx, caller, "b"))

	_, err := svc.Get(ctx, "b")
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestDeleteDeniedOutsideScope(t *testing.T) {
	svc, st := newTestService(t)
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})
	seedRole(t, st, Role{ID: "b", RoleType: "team", Name: "B", ParentID: "a"})

	// Deleting a held role needs a role above it.
	caller := shared.Caller{Subject: "lead@grove.local", RoleIDs: []string{"b"}}
	err := svc.Delete(context.Background(), caller, "b")
	assert.Equal(t, shared.KindAuthorization, shared.KindOf(err))
}

func TestListReturnsAllRoles(t *testing.T) {
	svc, st := newTestService(t)
	seedRole(t, st, Role{ID: "a", RoleType: "department", Name: "A", ParentID: shared.RootRoleID})
	seedRole(t, st, Role{ID: "b", RoleType: "team", Name: "B", ParentID: "a"})

	roles, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 3) // root + a + b
}
