package roles

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/groveauth/grove/internal/authz"
	"github.com/groveauth/grove/internal/hierarchy"
	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/shared"
)

const listPageSize = 100

// Service is the role directory: create, move, delete and read roles under
// the hierarchy policy rules.
type Service struct {
	store     store.Client
	engine    *hierarchy.Engine
	evaluator *authz.Evaluator
}

// NewService builds a Service.
func NewService(st store.Client, engine *hierarchy.Engine, evaluator *authz.Evaluator) *Service {
	return &Service{store: st, engine: engine, evaluator: evaluator}
}

// Create validates input, applies the create rule and persists a new role
// with a fresh id. An absent parent id maps to the TOP_LEVEL sentinel.
func (s *Service) Create(ctx context.Context, caller shared.Caller, roleType, name, parentID string) (Role, error) {
	roleType = strings.TrimSpace(roleType)
	name = strings.TrimSpace(name)
	if roleType == "" {
		return Role{}, shared.E(shared.KindValidation, "roleType is required")
	}
	if name == "" {
		return Role{}, shared.E(shared.KindValidation, "name is required")
	}
	if parentID == "" {
		parentID = shared.TopLevelParent
	}

	if err := s.evaluator.CanCreateRole(ctx, caller, parentID); err != nil {
		return Role{}, err
	}

	role := Role{ID: uuid.NewString(), RoleType: roleType, Name: name, ParentID: parentID}
	if err := s.put(ctx, role); err != nil {
		return Role{}, err
	}
	return role, nil
}

// Update replaces a role's name, type and parent. The root role is frozen,
// a role can never become its own parent, and the move rule covers both the
// current and the requested parent.
func (s *Service) Update(ctx context.Context, caller shared.Caller, id, name, roleType, parentID string) (Role, error) {
	if id == shared.RootRoleID {
		return Role{}, shared.E(shared.KindProtected, "the root role cannot be modified")
	}
	roleType = strings.TrimSpace(roleType)
	name = strings.TrimSpace(name)
	if roleType == "" {
		return Role{}, shared.E(shared.KindValidation, "roleType is required")
	}
	if name == "" {
		return Role{}, shared.E(shared.KindValidation, "name is required")
	}
	if parentID == "" {
		parentID = shared.TopLevelParent
	}
	if parentID == id {
		return Role{}, shared.E(shared.KindValidation, "a role cannot be its own parent")
	}
	if parentID != shared.TopLevelParent {
		if _, err := s.Get(ctx, parentID); err != nil {
			if shared.IsKind(err, shared.KindNotFound) {
				return Role{}, shared.E(shared.KindNotFound, "parent role not found")
			}
			return Role{}, err
		}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if err := s.evaluator.CanMoveRole(ctx, caller, current.ParentID, parentID); err != nil {
		return Role{}, err
	}

	updated := Role{ID: id, RoleType: roleType, Name: name, ParentID: parentID}
	if err := s.put(ctx, updated); err != nil {
		return Role{}, err
	}
	return updated, nil
}

// Delete removes a role. Roles with children are never deleted, for any
// caller; users still referencing the role keep their dangling reference.
func (s *Service) Delete(ctx context.Context, caller shared.Caller, id string) error {
	if id == shared.RootRoleID {
		return shared.E(shared.KindProtected, "the root role cannot be deleted")
	}
	if err := s.evaluator.CanDeleteRole(ctx, caller, id); err != nil {
		return err
	}
	children, err := s.engine.ChildIDs(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return &shared.Error{
			Kind:         shared.KindConflict,
			Message:      "role still has child roles",
			ChildRoleIDs: children,
		}
	}
	if err := s.store.Delete(ctx, shared.TableRoles, id); err != nil {
		return shared.Wrap(shared.KindStorage, "delete role failed", err)
	}
	return nil
}

// Get fetches one role by id.
func (s *Service) Get(ctx context.Context, id string) (Role, error) {
	rec, err := s.store.Get(ctx, shared.TableRoles, id)
	if errors.Is(err, store.ErrNotFound) {
		return Role{}, shared.E(shared.KindNotFound, "role not found")
	}
	if err != nil {
		return Role{}, shared.Wrap(shared.KindStorage, "get role failed", err)
	}
	return decode(rec)
}

// List returns every role via an exhaustive paginated scan. No per-role
// scope filter applies at this layer.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	roles := make([]Role, 0)
	cursor := ""
	for {
		page, err := s.store.Scan(ctx, shared.TableRoles, nil, listPageSize, cursor)
		if err != nil {
			return nil, shared.Wrap(shared.KindStorage, "list roles failed", err)
		}
		for _, rec := range page.Records {
			role, err := decode(rec)
			if err != nil {
				return nil, err
			}
			roles = append(roles, role)
		}
		if page.NextCursor == "" {
			return roles, nil
		}
		cursor = page.NextCursor
	}
}

// EnsureRootRole seeds the protected root role if it is missing.
func EnsureRootRole(ctx context.Context, st store.Client) error {
	_, err := st.Get(ctx, shared.TableRoles, shared.RootRoleID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return shared.Wrap(shared.KindStorage, "root role lookup failed", err)
	}
	root := Role{ID: shared.RootRoleID, RoleType: "system", Name: "Root", ParentID: shared.TopLevelParent}
	doc, err := json.Marshal(root)
	if err != nil {
		return err
	}
	rec := store.Record{Key: root.ID, ParentID: root.ParentID, Doc: doc}
	if err := st.Put(ctx, shared.TableRoles, rec); err != nil {
		return shared.Wrap(shared.KindStorage, "seed root role failed", err)
	}
	return nil
}

func (s *Service) put(ctx context.Context, role Role) error {
	doc, err := json.Marshal(role)
	if err != nil {
		return err
	}
	rec := store.Record{Key: role.ID, ParentID: role.ParentID, Doc: doc}
	if err := s.store.Put(ctx, shared.TableRoles, rec); err != nil {
		return shared.Wrap(shared.KindStorage, "store role failed", err)
	}
	return nil
}

func decode(rec store.Record) (Role, error) {
	var role Role
	if err := json.Unmarshal(rec.Doc, &role); err != nil {
		return Role{}, shared.Wrap(shared.KindStorage, "decode role record failed", err)
	}
	return role, nil
}
