// Package hierarchy computes closures over the role tree. The tree is
// stored as flat parent-pointer records and nothing proves acyclicity on
// write, so every walk is iterative and guarded by a visited set.
package hierarchy

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/shared"
)

const defaultLookupConcurrency = 4

// Engine walks the role tree through the children index.
type Engine struct {
	store       store.Client
	concurrency int
}

// NewEngine builds an Engine on the shared store client.
func NewEngine(st store.Client) *Engine {
	return &Engine{store: st, concurrency: defaultLookupConcurrency}
}

// ChildIDs returns the direct children of one role: a single index lookup.
func (e *Engine) ChildIDs(ctx context.Context, roleID string) ([]string, error) {
	records, err := e.store.QueryChildren(ctx, shared.TableRoles, roleID)
	if err != nil {
		return nil, shared.Wrap(shared.KindStorage, "children lookup failed", err)
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.Key)
	}
	return ids, nil
}

// Descendants returns every role reachable below the seed roles. The seeds
// themselves are never part of the result. Sibling lookups within one level
// run concurrently; the visited set makes revisits no-ops, so the walk
// terminates even over a cyclic or self-referential parent graph.
func (e *Engine) Descendants(ctx context.Context, seeds []string) (map[string]struct{}, error) {
	visited := make(map[string]struct{}, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		frontier = append(frontier, id)
	}

	result := make(map[string]struct{})
	var mu sync.Mutex

	for len(frontier) > 0 {
		next := make([]string, 0, len(frontier))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for _, id := range frontier {
			id := id
			g.Go(func() error {
				children, err := e.store.QueryChildren(gctx, shared.TableRoles, id)
				if err != nil {
					return shared.Wrap(shared.KindStorage, "descendant traversal failed", err)
				}
				mu.Lock()
				defer mu.Unlock()
				for _, rec := range children {
					if _, seen := visited[rec.Key]; seen {
						continue
					}
					visited[rec.Key] = struct{}{}
					result[rec.Key] = struct{}{}
					next = append(next, rec.Key)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		frontier = next
	}
	return result, nil
}
