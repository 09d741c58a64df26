package file

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/pkg/codec"
	"github.com/aretw0/gameflow/pkg/domain"
)

// DefaultDebounce is how long the watcher waits for more writes before
// signaling a change. Editors often save in several steps.
const DefaultDebounce = 100 * time.Millisecond

// Loader implements ports.GraphLoader and ports.Watchable for a single graph
// file. The format is chosen from the file extension.
type Loader struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDebounce sets the debounce window of Watch.
func WithDebounce(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.debounce = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for the graph file at path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path, debounce: DefaultDebounce, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the watched file.
func (l *Loader) Path() string { return l.path }

// LoadGraph reads and decodes the graph file.
func (l *Loader) LoadGraph(ctx context.Context) (*domain.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return codec.ReadGraphFile(l.path)
}

// Watch signals on the returned channel when the graph file is written,
// created or replaced. The parent directory is watched so atomic saves by
// rename are seen. The channel is closed when ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", l.path, err)
	}
	abs, err := filepath.Abs(l.path)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", l.path, err)
	}

	out := make(chan struct{}, 1)
	go l.loop(ctx, watcher, abs, out)
	return out, nil
}

func (l *Loader) loop(ctx context.Context, watcher *fsnotify.Watcher, target string, out chan<- struct{}) {
	defer close(out)
	defer watcher.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			l.logger.Debug("graph file changed", "path", target, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				timer.Reset(l.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			select {
			case out <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("graph watcher error", "path", target, "error", err)
		}
	}
}
