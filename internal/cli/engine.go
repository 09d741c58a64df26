package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/internal/config"
	"github.com/aretw0/gameflow/pkg/adapters/file"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/observability"
	"github.com/aretw0/gameflow/pkg/registry"
)

// ErrNoGraph is returned when neither an argument nor the config names a graph.
var ErrNoGraph = errors.New("no graph file given (pass a path or set graph in the config)")

// GraphPath picks the graph file from the command arguments, falling back
// to the configured default.
func GraphPath(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg != nil && cfg.Graph != "" {
		return cfg.Graph, nil
	}
	return "", ErrNoGraph
}

// WatchInstanceID scopes the default watch-mode instance by graph path so
// projects do not resume each other's sessions.
func WatchInstanceID(path string) string {
	sum := md5.Sum([]byte(path))
	return fmt.Sprintf("watch-%x", sum[:4])
}

// EngineOptions maps the engine settings onto facade options. Debug logging
// of transitions is always installed; extra hooks are combined after it.
func EngineOptions(cfg config.EngineConfig, logger *slog.Logger, hooks ...domain.LifecycleHooks) []gameflow.Option {
	all := append([]domain.LifecycleHooks{observability.LoggingHooks(logger)}, hooks...)
	opts := []gameflow.Option{
		gameflow.WithLogger(logger),
		gameflow.WithLifecycleHooks(observability.Combine(all...)),
		gameflow.WithHistoryLimit(cfg.HistoryLimit),
	}
	if len(cfg.Breakpoints) > 0 {
		opts = append(opts, gameflow.WithBreakpoints(cfg.Breakpoints...))
	}
	return opts
}

// LoadEngine loads and compiles the graph file at path. Configured subflow
// graphs are loaded first and share one registry with the main flow.
func LoadEngine(ctx context.Context, path string, cfg *config.Config, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*gameflow.Engine, error) {
	opts := EngineOptions(cfg.Engine, logger, hooks...)
	var lib *gameflow.Library
	if len(cfg.Engine.Subflows) > 0 {
		reg := registry.NewWithBuiltins()
		lib = gameflow.NewLibrary(cfg.Engine.MaxSteps)
		registry.RegisterSubflow(reg, lib)
		opts = append(opts, gameflow.WithBehaviors(reg))
		for _, sub := range cfg.Engine.Subflows {
			child, err := gameflow.LoadFile(ctx, sub, gameflow.WithLogger(logger), gameflow.WithBehaviors(reg))
			if err != nil {
				return nil, fmt.Errorf("error loading subflow %s: %w", sub, err)
			}
			if err := lib.Add(child); err != nil {
				return nil, fmt.Errorf("error loading subflow %s: %w", sub, err)
			}
		}
	}

	loader := file.NewLoader(path, file.WithLogger(logger))
	engine, err := gameflow.Load(ctx, loader, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	if lib != nil {
		if err := lib.Add(engine); err != nil {
			return nil, fmt.Errorf("error initializing engine: %w", err)
		}
	}
	logger.Debug("engine ready", "graph", path, "flow", engine.Flow().Name, "nodes", len(engine.Flow().Nodes))
	return engine, nil
}
