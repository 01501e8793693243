// Package kv provides the durable key-value stores behind the reference
// data cache and the unit-system preference.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Store is a flat byte-valued key-value store. Implementations are safe
// for concurrent use and each Set/Delete is atomic per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes every listed key. Absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Options selects and configures a Store for Open.
type Options struct {
	Backend   string // badger, redis, memory
	Path      string
	RedisAddr string
}

// Open constructs the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "badger":
		cfg := DefaultBadgerConfig()
		cfg.Path = opts.Path
		return OpenBadger(cfg)
	case "redis":
		return OpenRedis(ctx, RedisConfig{Addr: opts.RedisAddr})
	case "memory", "":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("kv: unknown backend %q", opts.Backend)
}
