package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx backed store. All tables share one relation keyed by
// (tbl, key) with a parent index; scans use keyset pagination on key order.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// DialPostgres connects a pool and ensures the schema exists.
func DialPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: postgres connect: %w", err)
	}
	pg := &Postgres{pool: pool}
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pg, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the backing relation and indexes if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS store_records (
    tbl       text NOT NULL,
    key       text NOT NULL,
    parent_id text NOT NULL DEFAULT '',
    doc       jsonb NOT NULL,
    PRIMARY KEY (tbl, key)
);
CREATE INDEX IF NOT EXISTS store_records_parent_idx ON store_records (tbl, parent_id);`
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("store: postgres schema: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, table, key string) (Record, error) {
	rec := Record{Key: key}
	err := p.pool.QueryRow(ctx,
		`SELECT parent_id, doc FROM store_records WHERE tbl = $1 AND key = $2`,
		table, key,
	).Scan(&rec.ParentID, &rec.Doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: postgres get %s/%s: %w", table, key, err)
	}
	return rec, nil
}

func (p *Postgres) Put(ctx context.Context, table string, rec Record) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO store_records (tbl, key, parent_id, doc) VALUES ($1, $2, $3, $4)
         ON CONFLICT (tbl, key) DO UPDATE SET parent_id = EXCLUDED.parent_id, doc = EXCLUDED.doc`,
		table, rec.Key, rec.ParentID, rec.Doc,
	)
	if err != nil {
		return fmt.Errorf("store: postgres put %s/%s: %w", table, rec.Key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, table, key string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM store_records WHERE tbl = $1 AND key = $2`, table, key,
	); err != nil {
		return fmt.Errorf("store: postgres delete %s/%s: %w", table, key, err)
	}
	return nil
}

func (p *Postgres) QueryChildren(ctx context.Context, table, parentID string) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, parent_id, doc FROM store_records WHERE tbl = $1 AND parent_id = $2 ORDER BY key`,
		table, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: postgres children %s/%s: %w", table, parentID, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.ParentID, &rec.Doc); err != nil {
			return nil, fmt.Errorf("store: postgres children %s/%s: %w", table, parentID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: postgres children %s/%s: %w", table, parentID, err)
	}
	return records, nil
}

func (p *Postgres) Scan(ctx context.Context, table string, filter Filter, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx,
		`SELECT key, parent_id, doc FROM store_records WHERE tbl = $1 AND key > $2 ORDER BY key LIMIT $3`,
		table, cursor, limit,
	)
	if err != nil {
		return Page{}, fmt.Errorf("store: postgres scan %s: %w", table, err)
	}
	defer rows.Close()

	page := Page{}
	scanned := 0
	lastKey := ""
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.ParentID, &rec.Doc); err != nil {
			return Page{}, fmt.Errorf("store: postgres scan %s: %w", table, err)
		}
		scanned++
		lastKey = rec.Key
		if filter == nil || filter(rec) {
			page.Records = append(page.Records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("store: postgres scan %s: %w", table, err)
	}
	if scanned == limit {
		page.NextCursor = lastKey
	}
	return page, nil
}
