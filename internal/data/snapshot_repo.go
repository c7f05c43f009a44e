package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot signals an empty repository (first boot).
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotRepository persists the versioned blob. Save must complete before a
// mutation is considered applied, so a restart never loses a transition.
type SnapshotRepository interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

const snapshotKey = "fleetwatch:snapshot:v1"

// RedisSnapshotRepository stores the blob under a single key.
type RedisSnapshotRepository struct {
	rdb *redis.Client
}

func NewRedisSnapshotRepository(rdb *redis.Client) *RedisSnapshotRepository {
	return &RedisSnapshotRepository{rdb: rdb}
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.rdb.Set(ctx, snapshotKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (r *RedisSnapshotRepository) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := r.rdb.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return ParseSnapshot(raw)
}
