package apps

import (
	"context"
	"os"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher calls onChange once a burst of changes to app files in the
// directory has settled.
type Watcher struct {
	dir      string
	delay    time.Duration
	onChange func()
	logger   *zap.Logger
}

func NewWatcher(dir string, delay time.Duration, onChange func(), logger *zap.Logger) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		delay:    delay,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is done. The directory is created if missing so
// that the first app file added is picked up.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create apps directory")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.dir)
	}

	debounced := debounce.New(w.delay)
	w.logger.Info("Watching app configs", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !IsConfigFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("App config changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			debounced(w.onChange)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}
