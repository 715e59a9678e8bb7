// SPDX-License-Identifier: MPL-2.0

// Package watch reports changes to the bundle archives in a directory.
//
// Events are filtered through glob patterns and coalesced over a debounce
// window, so a bundle being rewritten (temp file, rename) fires one callback.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are never reported: in-progress bundle saves and editor or
// OS noise.
var defaultIgnores = []string{
	".*.tmp",
	"*.tmp",
	"*~",
	".DS_Store",
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the directory to watch. Subdirectories are not watched.
		Dir string
		// Patterns select the file names that trigger callbacks. An empty
		// slice reports every non-ignored file.
		Patterns []string
		// Ignore is merged with the built-in ignores.
		Ignore []string
		// Debounce is the quiet period before the callback fires.
		// Zero or negative values fall back to 500ms.
		Debounce time.Duration
		// OnChange receives the sorted, deduplicated changed file names.
		OnChange func(ctx context.Context, changed []string) error
		Logger   *log.Logger
	}

	// Watcher fires a debounced callback when matching files in a directory
	// change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		debounce time.Duration
		dir      string
		logger   *log.Logger
		started  atomic.Bool
	}
)

// New validates cfg and starts watching cfg.Dir, creating it if missing.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch: no directory given")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}
	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add directory %q: %w", dir, err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: debounce,
		dir:      dir,
		logger:   logger,
	}, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run processes events until ctx is canceled. It returns nil on cancellation
// and an error when the underlying watcher breaks. A callback still running
// when the next window closes is not re-entered; the pending changes are
// retried after another debounce period.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous callback still running, retrying later")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("change handler failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("could not close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			if filepath.Dir(evt.Name) != w.dir {
				continue
			}
			name := filepath.Base(evt.Name)
			if w.isIgnored(name) || !w.matches(name) {
				continue
			}
			w.logger.Debug("change", "file", name, "op", evt.Op.String())

			mu.Lock()
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) isIgnored(name string) bool {
	return matchAny(w.ignores, name)
}

func (w *Watcher) matches(name string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, name)
}

func matchAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}

// ensureDir creates dir when missing so a fresh bundles directory can be watched.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("watch: create %q: %w", dir, err)
	}
	return nil
}
