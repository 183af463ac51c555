// Package store defines the key-value client the directory core runs on,
// plus the shipped backends. Every backend applies the same Scan contract:
// limit bounds the number of records scanned, the filter prunes the page
// afterwards, and the cursor always points at the last scanned key so a
// resume stays correct no matter how many records the filter dropped.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("store: record not found")

// Record is one stored item. ParentID feeds the children index and may be
// empty for tables without a hierarchy.
type Record struct {
	Key      string
	ParentID string
	Doc      []byte
}

// Filter prunes scanned records after the page fetch.
type Filter func(Record) bool

// Page is one Scan result. NextCursor is opaque; empty means exhausted.
type Page struct {
	Records    []Record
	NextCursor string
}

// Client is the abstract store consumed by the directory services. A single
// Client is shared across concurrent requests; implementations hold no
// per-call state.
type Client interface {
	Get(ctx context.Context, table, key string) (Record, error)
	Put(ctx context.Context, table string, rec Record) error
	Delete(ctx context.Context, table, key string) error
	QueryChildren(ctx context.Context, table, parentID string) ([]Record, error)
	Scan(ctx context.Context, table string, filter Filter, limit int, cursor string) (Page, error)
}
