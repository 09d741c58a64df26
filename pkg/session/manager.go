package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// ErrInstanceExists is returned by StartWithID when the id is taken.
var ErrInstanceExists = errors.New("flow instance already exists")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates instance access, ensuring safe concurrent operations.
// Unused locks are garbage collected by reference counting.
type Manager struct {
	engine ports.FlowEngine
	store  ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	newID   func() string
	logger  *slog.Logger
	commit  []CommitFunc
}

// CommitFunc observes a persisted state change. prev is nil for a new instance.
// It runs while the instance lock is held and must not call back into the Manager
// for the same instance.
type CommitFunc func(ctx context.Context, prev, next *domain.FlowState)

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithIDGenerator replaces the random instance id generator.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCommitHook registers fn to observe every persisted start or step.
func WithCommitHook(fn CommitFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.commit = append(m.commit, fn)
		}
	}
}

// NewManager creates a Manager running instances of engine's flow.
func NewManager(engine ports.FlowEngine, store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		newID:   uuid.NewString,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu and call release after unlocking.
func (m *Manager) acquire(instanceID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[instanceID]
	if !exists {
		entry = &lockEntry{}
		m.locks[instanceID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[instanceID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, instanceID)
	}
}

// Start creates an instance with a fresh id and persists its initial state.
func (m *Manager) Start(ctx context.Context, bindings map[string]any) (*domain.FlowState, error) {
	return m.StartWithID(ctx, m.newID(), bindings)
}

// StartWithID creates an instance with a caller chosen id.
// It returns ErrInstanceExists if the id is already stored.
func (m *Manager) StartWithID(ctx context.Context, instanceID string, bindings map[string]any) (*domain.FlowState, error) {
	if instanceID == "" {
		return nil, fmt.Errorf("start instance: empty id")
	}
	var state *domain.FlowState
	err := m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, instanceID); err == nil {
			return fmt.Errorf("%w: %s", ErrInstanceExists, instanceID)
		} else if !errors.Is(err, domain.ErrInstanceNotFound) {
			return fmt.Errorf("failed to check instance existence: %w", err)
		}

		var err error
		state, err = m.engine.Start(ctx, instanceID, bindings)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, instanceID, state); err != nil {
			return fmt.Errorf("failed to persist new instance: %w", err)
		}
		m.committed(ctx, nil, state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("instance started", "instance", instanceID)
	return state, nil
}

// LoadOrStart loads an instance, starting it first if it does not exist.
func (m *Manager) LoadOrStart(ctx context.Context, instanceID string, bindings map[string]any) (*domain.FlowState, error) {
	var state *domain.FlowState
	err := m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, instanceID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrInstanceNotFound) {
			return fmt.Errorf("failed to check instance existence: %w", err)
		}
		state, err = m.engine.Start(ctx, instanceID, bindings)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, instanceID, state); err != nil {
			return err
		}
		m.committed(ctx, nil, state)
		return nil
	})
	return state, err
}

// Step loads an instance, advances it by one transition and persists the
// result. Failed steps leave the stored state untouched, except that a
// broken transition persists the invalid state and a breakpoint persists
// the committed arrival. In both cases the error is returned as well.
func (m *Manager) Step(ctx context.Context, instanceID string, event domain.Event) (*domain.FlowState, error) {
	var next *domain.FlowState
	err := m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, instanceID)
		if err != nil {
			return err
		}
		var stepErr error
		next, stepErr = m.engine.Step(ctx, state, event)
		if next == nil {
			return stepErr
		}
		if err := m.store.Save(ctx, instanceID, next); err != nil {
			return fmt.Errorf("failed to persist instance: %w", err)
		}
		m.committed(ctx, state, next)
		return stepErr
	})
	if err != nil && !errors.Is(err, domain.ErrBreakpoint) {
		m.logger.Warn("instance step failed", "instance", instanceID, "event", event.Name, "error", err)
	}
	return next, err
}

func (m *Manager) committed(ctx context.Context, prev, next *domain.FlowState) {
	for _, fn := range m.commit {
		fn(ctx, prev, next)
	}
}

// Load retrieves the stored state of an instance.
func (m *Manager) Load(ctx context.Context, instanceID string) (*domain.FlowState, error) {
	var state *domain.FlowState
	err := m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, instanceID)
		return err
	})
	return state, err
}

// Save persists a state, e.g. one restored by the host.
func (m *Manager) Save(ctx context.Context, instanceID string, state *domain.FlowState) error {
	return m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		return m.store.Save(ctx, instanceID, state)
	})
}

// Terminate unregisters an instance, whatever its status.
func (m *Manager) Terminate(ctx context.Context, instanceID string) error {
	err := m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		return m.store.Delete(ctx, instanceID)
	})
	if err == nil {
		m.logger.Info("instance terminated", "instance", instanceID)
	}
	return err
}

// List returns the ids of the stored instances.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock runs fn while holding the lock for the instance.
func (m *Manager) WithLock(ctx context.Context, instanceID string, fn func(context.Context) error) error {
	entry := m.acquire(instanceID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(instanceID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, instanceID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"instance", instanceID,
					"error", err,
				)
			}
		}()
	}

	return fn(ctx)
}
