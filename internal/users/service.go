package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/groveauth/grove/internal/authz"
	"github.com/groveauth/grove/internal/identity"
	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/shared"
)

const defaultPageSize = 20

// Service is the user directory and listing service.
type Service struct {
	store     store.Client
	evaluator *authz.Evaluator
	accounts  identity.AccountStore
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(st store.Client, evaluator *authz.Evaluator, accounts identity.AccountStore, logger *slog.Logger) *Service {
	return &Service{store: st, evaluator: evaluator, accounts: accounts, logger: logger}
}

// Page is one listing result.
type Page struct {
	Users      []User `json:"users"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Create persists a user under upsert semantics on the email key. The
// record is always written non-root; every assigned role must sit in the
// caller's manageable set.
func (s *Service) Create(ctx context.Context, caller shared.Caller, email, name string, roleIDs []string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" {
		return User{}, shared.E(shared.KindValidation, "email is required")
	}
	if name == "" {
		return User{}, shared.E(shared.KindValidation, "name is required")
	}
	if len(roleIDs) == 0 {
		return User{}, shared.E(shared.KindValidation, "at least one role is required")
	}

	if err := s.evaluator.CanAssignRoles(ctx, caller, roleIDs); err != nil {
		return User{}, err
	}

	user := User{Email: email, Name: name, Roles: roleIDs, IsRootAdmin: false}
	if err := s.put(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Update replaces a user's name and roles, preserving the root-admin flag.
// The root admin's role set is frozen even against root-admin callers;
// renaming the root admin stays allowed.
func (s *Service) Update(ctx context.Context, caller shared.Caller, email, name string, roleIDs []string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	current, err := s.Get(ctx, email)
	if err != nil {
		return User{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, shared.E(shared.KindValidation, "name is required")
	}
	if len(roleIDs) == 0 {
		return User{}, shared.E(shared.KindValidation, "at least one role is required")
	}
	if email == shared.RootAdminEmail && !sameRoleSet(current.Roles, roleIDs) {
		return User{}, shared.E(shared.KindProtected, "the root admin's role set cannot be changed")
	}

	if err := s.evaluator.CanUpdateUser(ctx, caller, current.Roles, roleIDs); err != nil {
		return User{}, err
	}

	updated := User{Email: email, Name: name, Roles: roleIDs, IsRootAdmin: current.IsRootAdmin}
	if err := s.put(ctx, updated); err != nil {
		return User{}, err
	}
	return updated, nil
}

// Delete removes a user in two ordered, non-transactional steps: the
// authoritative directory record first, then a best-effort identity-store
// cleanup. A cleanup failure after the directory write committed degrades
// the result to DeleteStatusPartial instead of failing the call.
func (s *Service) Delete(ctx context.Context, caller shared.Caller, email string) (DeleteStatus, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == shared.RootAdminEmail {
		return "", shared.E(shared.KindProtected, "the root admin cannot be deleted")
	}

	var currentRoles []string
	recordExists := true
	current, err := s.Get(ctx, email)
	switch {
	case err == nil:
		currentRoles = current.Roles
	case shared.IsKind(err, shared.KindNotFound):
		recordExists = false
	default:
		return "", err
	}

	if err := s.evaluator.CanDeleteUser(ctx, caller, currentRoles); err != nil {
		return "", err
	}

	if recordExists {
		if err := s.store.Delete(ctx, shared.TableUsers, email); err != nil {
			return "", shared.Wrap(shared.KindStorage, "delete user record failed", err)
		}
	}

	err = s.accounts.DeleteAccount(ctx, email)
	if err != nil && !errors.Is(err, identity.ErrAccountNotFound) {
		s.logger.Error("identity account cleanup failed",
			slog.String("email", email), slog.Any("error", err))
		return DeleteStatusPartial, nil
	}
	return DeleteStatusDeleted, nil
}

// Get fetches one user by email. No scope filter applies to single-record
// reads.
func (s *Service) Get(ctx context.Context, email string) (User, error) {
	rec, err := s.store.Get(ctx, shared.TableUsers, strings.ToLower(email))
	if errors.Is(err, store.ErrNotFound) {
		return User{}, shared.E(shared.KindNotFound, "user not found")
	}
	if err != nil {
		return User{}, shared.Wrap(shared.KindStorage, "get user failed", err)
	}
	return decode(rec)
}

// List returns one page of users visible to the caller, never including the
// caller's own record. Non-root callers see only users whose roles
// intersect the accessible set; the scan over-fetches by one so stripping
// the caller cannot shrink a full page, and the scan cursor is preserved
// untouched so resumption stays correct.
func (s *Service) List(ctx context.Context, caller shared.Caller, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	var filter store.Filter
	scanLimit := limit
	if !caller.IsRootAdmin {
		accessible, err := s.evaluator.AccessibleSet(ctx, caller)
		if err != nil {
			return Page{}, err
		}
		if len(accessible) == 0 {
			return Page{Users: []User{}}, nil
		}
		filter = func(rec store.Record) bool {
			var u User
			if err := json.Unmarshal(rec.Doc, &u); err != nil {
				return false
			}
			for _, id := range u.Roles {
				if _, ok := accessible[id]; ok {
					return true
				}
			}
			return false
		}
		scanLimit = limit + 1
	}

	page, err := s.store.Scan(ctx, shared.TableUsers, filter, scanLimit, cursor)
	if err != nil {
		return Page{}, shared.Wrap(shared.KindStorage, "list users failed", err)
	}

	out := Page{Users: make([]User, 0, len(page.Records)), NextCursor: page.NextCursor}
	for _, rec := range page.Records {
		if rec.Key == strings.ToLower(caller.Subject) {
			continue
		}
		user, err := decode(rec)
		if err != nil {
			return Page{}, err
		}
		out.Users = append(out.Users, user)
	}
	if len(out.Users) > limit {
		out.Users = out.Users[:limit]
	}
	return out, nil
}

// EnsureRootAdmin seeds the protected root-admin record if it is missing.
func EnsureRootAdmin(ctx context.Context, st store.Client) error {
	_, err := st.Get(ctx, shared.TableUsers, shared.RootAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return shared.Wrap(shared.KindStorage, "root admin lookup failed", err)
	}
	admin := User{
		Email:       shared.RootAdminEmail,
		Name:        "Root Admin",
		Roles:       []string{shared.RootRoleID},
		IsRootAdmin: true,
	}
	doc, err := json.Marshal(admin)
	if err != nil {
		return err
	}
	if err := st.Put(ctx, shared.TableUsers, store.Record{Key: admin.Email, Doc: doc}); err != nil {
		return shared.Wrap(shared.KindStorage, "seed root admin failed", err)
	}
	return nil
}

func (s *Service) put(ctx context.Context, user User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, shared.TableUsers, store.Record{Key: user.Email, Doc: doc}); err != nil {
		return shared.Wrap(shared.KindStorage, "store user failed", err)
	}
	return nil
}

func decode(rec store.Record) (User, error) {
	var user User
	if err := json.Unmarshal(rec.Doc, &user); err != nil {
		return User{}, shared.Wrap(shared.KindStorage, "decode user record failed", err)
	}
	return user, nil
}

func sameRoleSet(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, id := range b {
		setB[id] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for id := range setA {
		if _, ok := setB[id]; !ok {
			return false
		}
	}
	return true
}
