package prefs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
)

var ErrNotFound = errors.New("preference not found")

// Store keeps small expiring preference records. Expired records behave
// exactly like missing ones.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open picks the backends from config: the gorm store is always there, redis
// sits in front of it when an address is given.
func Open(dsn, redisAddr string) (Store, error) {
	durable, err := OpenGorm(dsn)
	if err != nil {
		return nil, err
	}
	if redisAddr == "" {
		return durable, nil
	}
	return &Tiered{Cache: NewRedis(redisAddr), Durable: durable}, nil
}

// Tiered reads through a fast cache and writes to both stores.
type Tiered struct {
	Cache   Store
	Durable Store
}

func (t *Tiered) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := t.Durable.Put(ctx, key, value, ttl); err != nil {
		return err
	}
	// The durable copy is enough to recover; a cache miss only costs a read.
	_ = t.Cache.Put(ctx, key, value, ttl)
	return nil
}

func (t *Tiered) Get(ctx context.Context, key string) (string, error) {
	if v, err := t.Cache.Get(ctx, key); err == nil {
		return v, nil
	}
	return t.Durable.Get(ctx, key)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	return multierr.Combine(t.Cache.Delete(ctx, key), t.Durable.Delete(ctx, key))
}

func (t *Tiered) Close() error {
	return multierr.Combine(t.Cache.Close(), t.Durable.Close())
}
