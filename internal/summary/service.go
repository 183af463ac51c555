// Package summary produces scope-aware aggregate counts.
package summary

import (
	"context"
	"encoding/json"

	"github.com/groveauth/grove/internal/authz"
	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/shared"
)

const countPageSize = 100

// Counts is the aggregate result.
type Counts struct {
	RoleCount int `json:"roleCount"`
	UserCount int `json:"userCount"`
}

// Service computes role and user counts for a caller.
type Service struct {
	store     store.Client
	evaluator *authz.Evaluator
}

// NewService builds a Service.
func NewService(st store.Client, evaluator *authz.Evaluator) *Service {
	return &Service{store: st, evaluator: evaluator}
}

// Summarize counts roles and users in the caller's scope. Root admins get
// exhaustive totals. For everyone else the role count uses the manageable
// set (strict descendants) while the user count uses the accessible set
// (held roles included); the two closures differ on purpose. A caller
// holding no roles short-circuits to zero without touching the store.
func (s *Service) Summarize(ctx context.Context, caller shared.Caller) (Counts, error) {
	if caller.IsRootAdmin {
		roleCount, err := s.countAll(ctx, shared.TableRoles)
		if err != nil {
			return Counts{}, err
		}
		userCount, err := s.countAll(ctx, shared.TableUsers)
		if err != nil {
			return Counts{}, err
		}
		return Counts{RoleCount: roleCount, UserCount: userCount}, nil
	}

	if len(caller.RoleIDs) == 0 {
		return Counts{}, nil
	}

	manageable, err := s.evaluator.ManageableSet(ctx, caller)
	if err != nil {
		return Counts{}, err
	}

	accessible := make(map[string]struct{}, len(manageable)+len(caller.RoleIDs))
	for id := range manageable {
		accessible[id] = struct{}{}
	}
	for _, id := range caller.RoleIDs {
		accessible[id] = struct{}{}
	}

	userCount, err := s.countUsersWithRoles(ctx, accessible)
	if err != nil {
		return Counts{}, err
	}
	return Counts{RoleCount: len(manageable), UserCount: userCount}, nil
}

func (s *Service) countAll(ctx context.Context, table string) (int, error) {
	count := 0
	cursor := ""
	for {
		page, err := s.store.Scan(ctx, table, nil, countPageSize, cursor)
		if err != nil {
			return 0, shared.Wrap(shared.KindStorage, "count scan failed", err)
		}
		count += len(page.Records)
		if page.NextCursor == "" {
			return count, nil
		}
		cursor = page.NextCursor
	}
}

func (s *Service) countUsersWithRoles(ctx context.Context, roleSet map[string]struct{}) (int, error) {
	filter := func(rec store.Record) bool {
		var u struct {
			Roles []string `json:"roles"`
		}
		if err := json.Unmarshal(rec.Doc, &u); err != nil {
			return false
		}
		for _, id := range u.Roles {
			if _, ok := roleSet[id]; ok {
				return true
			}
		}
		return false
	}

	count := 0
	cursor := ""
	for {
		page, err := s.store.Scan(ctx, shared.TableUsers, filter, countPageSize, cursor)
		if err != nil {
			return 0, shared.Wrap(shared.KindStorage, "user count scan failed", err)
		}
		count += len(page.Records)
		if page.NextCursor == "" {
			return count, nil
		}
		cursor = page.NextCursor
	}
}
