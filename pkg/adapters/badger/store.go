package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/aretw0/gameflow/pkg/codec"
	"github.com/aretw0/gameflow/pkg/domain"
)

// keyPrefix namespaces flow states inside the database.
const keyPrefix = "instance/"

// Config controls how the database is opened.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in memory, for tests and ephemeral hosts.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives badger's internal logs. Nil disables them.
	Logger *slog.Logger
}

// Store implements ports.StateStore on an embedded Badger database.
type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an in-memory database.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

func key(instanceID string) []byte {
	return []byte(keyPrefix + instanceID)
}

// Save writes the state in a single transaction.
func (s *Store) Save(_ context.Context, instanceID string, state *domain.FlowState) error {
	data, err := codec.MarshalState(state)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(instanceID), data)
	}); err != nil {
		return fmt.Errorf("badger save %q: %w", instanceID, err)
	}
	return nil
}

// Load reads the state of an instance.
func (s *Store) Load(_ context.Context, instanceID string) (*domain.FlowState, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(instanceID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrInstanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger load %q: %w", instanceID, err)
	}
	return codec.UnmarshalState(data)
}

// Delete removes the state. Deleting a missing key is a no-op in badger.
func (s *Store) Delete(_ context.Context, instanceID string) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(instanceID))
	}); err != nil {
		return fmt.Errorf("badger delete %q: %w", instanceID, err)
	}
	return nil
}

// List returns stored instance ids in key order.
func (s *Store) List(_ context.Context) ([]string, error) {
	ids := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}
	return ids, nil
}

// RunGC reclaims value log space when at least ratio of it is garbage.
// It returns nil when nothing needed rewriting.
func (s *Store) RunGC(ratio float64) error {
	err := s.db.RunValueLogGC(ratio)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
