package storage

import (
	"context"
	"errors"
	"fmt"
	"ml_dashboard/src/model"
	"strings"
)

// ErrNotFound is returned by Load when nothing is stored under the key
var ErrNotFound = errors.New("storage: key not found")

// Backend persists opaque JSON blobs under string keys
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the backend selected by cfg.Driver
func Open(ctx context.Context, cfg model.StorageConfig) (Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "file":
		return NewFileStorage(cfg.Dir)
	case "sqlite":
		return NewSQLiteStorage(ctx, cfg.SQLitePath)
	case "redis":
		return NewRedisStorage(ctx, cfg.RedisURL, cfg.TTL)
	case "memory":
		return NewMemoryStorage(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
