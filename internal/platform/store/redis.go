package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "grove"

// Redis is the go-redis backed store. Each record lives in a hash
// (doc + parent), every table keeps a lexicographic key index in a sorted
// set so scans paginate deterministically, and children are tracked in one
// set per parent id.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// DialRedis connects and pings a redis server.
func DialRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func docKey(table, key string) string {
	return redisPrefix + ":doc:" + table + ":" + key
}

func indexKey(table string) string {
	return redisPrefix + ":keys:" + table
}

func parentKey(table, parentID string) string {
	return redisPrefix + ":parent:" + table + ":" + parentID
}

func (r *Redis) Get(ctx context.Context, table, key string) (Record, error) {
	fields, err := r.client.HGetAll(ctx, docKey(table, key)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("store: redis get %s/%s: %w", table, key, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}
	return Record{Key: key, ParentID: fields["parent"], Doc: []byte(fields["doc"])}, nil
}

func (r *Redis) Put(ctx context.Context, table string, rec Record) error {
	oldParent, err := r.client.HGet(ctx, docKey(table, rec.Key), "parent").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("store: redis put %s/%s: %w", table, rec.Key, err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, docKey(table, rec.Key), "doc", string(rec.Doc), "parent", rec.ParentID)
	pipe.ZAdd(ctx, indexKey(table), redis.Z{Score: 0, Member: rec.Key})
	if oldParent != "" && oldParent != rec.ParentID {
		pipe.SRem(ctx, parentKey(table, oldParent), rec.Key)
	}
	if rec.ParentID != "" {
		pipe.SAdd(ctx, parentKey(table, rec.ParentID), rec.Key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis put %s/%s: %w", table, rec.Key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, table, key string) error {
	parent, err := r.client.HGet(ctx, docKey(table, key), "parent").Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: redis delete %s/%s: %w", table, key, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, docKey(table, key))
	pipe.ZRem(ctx, indexKey(table), key)
	if parent != "" {
		pipe.SRem(ctx, parentKey(table, parent), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis delete %s/%s: %w", table, key, err)
	}
	return nil
}

func (r *Redis) QueryChildren(ctx context.Context, table, parentID string) ([]Record, error) {
	keys, err := r.client.SMembers(ctx, parentKey(table, parentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis children %s/%s: %w", table, parentID, err)
	}
	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		rec, err := r.Get(ctx, table, key)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *Redis) Scan(ctx context.Context, table string, filter Filter, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = 100
	}
	min := "-"
	if cursor != "" {
		min = "(" + cursor
	}
	keys, err := r.client.ZRangeByLex(ctx, indexKey(table), &redis.ZRangeBy{
		Min:   min,
		Max:   "+",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return Page{}, fmt.Errorf("store: redis scan %s: %w", table, err)
	}

	page := Page{}
	for _, key := range keys {
		rec, err := r.Get(ctx, table, key)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return Page{}, err
		}
		if filter == nil || filter(rec) {
			page.Records = append(page.Records, rec)
		}
	}
	if len(keys) == limit {
		page.NextCursor = keys[len(keys)-1]
	}
	return page, nil
}
