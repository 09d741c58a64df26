package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/gameflow/internal/config"
	"github.com/aretw0/gameflow/pkg/adapters/badger"
	"github.com/aretw0/gameflow/pkg/adapters/file"
	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/adapters/redis"
	"github.com/aretw0/gameflow/pkg/persistence/middleware"
	"github.com/aretw0/gameflow/pkg/ports"
)

// Backend is an opened state store plus the lock that goes with it.
type Backend struct {
	Store ports.StateStore
	// Locker is set for redis when the distributed lock is enabled.
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases the connections held by the backend.
func (b *Backend) Close() error {
	var errs []error
	for _, fn := range b.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// OpenStore builds the state store selected by cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}
	switch cfg.Backend {
	case "", "memory":
		b.Store = memory.NewStore()
	case "file":
		b.Store = file.NewStore(cfg.Path)
	case "badger":
		store, err := badger.Open(badger.Config{Path: cfg.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		b.Store = store
		b.closers = append(b.closers, store.Close)
	case "redis":
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		opts := []redis.Option{redis.WithPrefix(prefix)}
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		store := redis.New(cfg.Redis.Addr, "", 0, opts...)
		b.closers = append(b.closers, store.Close)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		b.Store = store
		if cfg.Redis.Lock {
			b.Locker = redis.NewLocker(store.Client(), prefix+"lock:")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.EncryptionKey != "" {
		mw, err := encryption(cfg)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Store = middleware.Chain(b.Store, mw)
	}
	logger.Debug("state store ready", "backend", cfg.Backend, "encrypted", cfg.EncryptionKey != "")
	return b, nil
}

func encryption(cfg config.StoreConfig) (middleware.Middleware, error) {
	active, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	ec := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.PreviousKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("decode previous key %d: %w", i, err)
		}
		ec.FallbackKeys = append(ec.FallbackKeys, key)
	}
	return middleware.NewEncryption(ec)
}
