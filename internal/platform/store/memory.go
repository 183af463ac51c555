package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process backend with the same Scan semantics as the
// persistent ones. It backs package tests and local development.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]map[string]Record)}
}

func (m *Memory) Get(ctx context.Context, table, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.tables[table][key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) Put(ctx context.Context, table string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		t = make(map[string]Record)
		m.tables[table] = t
	}
	t[rec.Key] = rec
	return nil
}

func (m *Memory) Delete(ctx context.Context, table, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables[table], key)
	return nil
}

func (m *Memory) QueryChildren(ctx context.Context, table, parentID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, key := range m.sortedKeys(table) {
		rec := m.tables[table][key]
		if rec.ParentID == parentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) Scan(ctx context.Context, table string, filter Filter, limit int, cursor string) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	keys := m.sortedKeys(table)
	start := 0
	if cursor != "" {
		start = sort.SearchStrings(keys, cursor)
		if start < len(keys) && keys[start] == cursor {
			start++
		}
	}
	end := start + limit
	if end > len(keys) {
		end = len(keys)
	}
	page := Page{}
	for _, key := range keys[start:end] {
		rec := m.tables[table][key]
		if filter == nil || filter(rec) {
			page.Records = append(page.Records, rec)
		}
	}
	if end < len(keys) && end > start {
		page.NextCursor = keys[end-1]
	}
	return page, nil
}

func (m *Memory) sortedKeys(table string) []string {
	keys := make([]string, 0, len(m.tables[table]))
	for key := range m.tables[table] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
