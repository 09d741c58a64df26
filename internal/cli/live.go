package cli

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/pkg/domain"
)

// LiveEngine serves the latest compiled engine to hosts that keep state
// themselves, such as the session manager behind the HTTP server.
type LiveEngine struct {
	current atomic.Pointer[gameflow.Engine]
	logger  *slog.Logger
}

// NewLiveEngine starts from engine.
func NewLiveEngine(engine *gameflow.Engine, logger *slog.Logger) *LiveEngine {
	l := &LiveEngine{logger: logger}
	l.current.Store(engine)
	return l
}

// Current returns the engine in use.
func (l *LiveEngine) Current() *gameflow.Engine {
	return l.current.Load()
}

func (l *LiveEngine) Start(ctx context.Context, instanceID string, bindings map[string]any) (*domain.FlowState, error) {
	return l.Current().Start(ctx, instanceID, bindings)
}

func (l *LiveEngine) Step(ctx context.Context, state *domain.FlowState, event domain.Event) (*domain.FlowState, error) {
	return l.Current().Step(ctx, state, event)
}

// Follow recompiles the graph whenever its source changes, until ctx is
// done. A graph that fails to compile keeps the previous engine in place.
func (l *LiveEngine) Follow(ctx context.Context) error {
	changes, err := l.Current().Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				next, err := l.Current().Reload(ctx)
				if err != nil {
					l.logger.Error("live compile failed, keeping previous flow", "error", err)
					continue
				}
				l.current.Store(next)
				l.logger.Info("flow recompiled", "flow", next.Flow().Name, "nodes", len(next.Flow().Nodes))
			}
		}
	}()
	return nil
}
