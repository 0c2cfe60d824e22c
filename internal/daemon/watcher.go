package daemon

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pubgate/internal/config"
	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
	"git.home.luguber.info/inful/pubgate/internal/scan"
)

// DefaultDebounce coalesces editor save bursts into one run.
const DefaultDebounce = 2 * time.Second

// Watcher monitors the content tree and the site configuration and calls
// onChange once a burst of changes has settled.
type Watcher struct {
	watcher      *fsnotify.Watcher
	onChange     func(reason string)
	debounceTime time.Duration

	mu         sync.Mutex
	contentDir string
	configFile string
	watched    map[string]bool

	stopChan   chan struct{}
	stopOnce   sync.Once
	reloadChan chan string
}

// NewWatcher creates a watcher. Call Watch to choose what to observe.
func NewWatcher(debounce time.Duration, onChange func(reason string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:      w,
		onChange:     onChange,
		debounceTime: debounce,
		watched:      map[string]bool{},
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan string, 1),
	}, nil
}

// Watch observes every directory under contentDir and the directory holding
// configFile. Calling it again with other paths moves the watches.
func (w *Watcher) Watch(contentDir, configFile string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	contentDir, _ = filepath.Abs(contentDir)
	if configFile != "" {
		configFile, _ = filepath.Abs(configFile)
	}
	if contentDir == w.contentDir && configFile == w.configFile {
		return nil
	}

	for dir := range w.watched {
		_ = w.watcher.Remove(dir)
	}
	w.watched = map[string]bool{}
	w.contentDir, w.configFile = contentDir, configFile

	if configFile != "" {
		if err := w.addLocked(filepath.Dir(configFile)); err != nil {
			return err
		}
	}
	if _, err := os.Stat(contentDir); err == nil {
		if err := w.addTreeLocked(contentDir); err != nil {
			return err
		}
	}
	slog.Info("Watching for changes", logfields.Path(contentDir), slog.String("config", configFile))
	return nil
}

func (w *Watcher) addLocked(dir string) error {
	if w.watched[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return errors.DaemonError("failed to watch directory").
			WithSeverity(errors.SeverityError).
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	w.watched[dir] = true
	return nil
}

func (w *Watcher) addTreeLocked(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.addLocked(p)
	})
}

// Start begins processing events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
	})
	return err
}

// relevant reports whether an event concerns the content tree or the config
// file, and the reason to report for it.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := event.Name
	if w.isConfig(name) {
		return "config", true
	}
	if w.contentDir != "" && name == w.contentDir && event.Op&fsnotify.Create == fsnotify.Create {
		if err := w.addTreeLocked(name); err != nil {
			slog.Warn("Failed to watch content directory", logfields.Path(name), logfields.Error(err))
		}
		return "content", true
	}
	if w.contentDir == "" || !strings.HasPrefix(name, w.contentDir+string(filepath.Separator)) {
		return "", false
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return "", false
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.addTreeLocked(name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(name), logfields.Error(err))
			}
			return "content", true
		}
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.watched[name] {
		delete(w.watched, name)
		return "content", true
	}
	return "content", scan.IsMarkdown(name)
}

// isConfig reports whether name is the watched config file, or any file the
// site config lookup would pick up next to it.
func (w *Watcher) isConfig(name string) bool {
	if w.configFile == "" || filepath.Dir(name) != filepath.Dir(w.configFile) {
		return false
	}
	base := filepath.Base(name)
	return base == filepath.Base(w.configFile) || slices.Contains(config.SiteConfigNames, base)
}

// watchLoop monitors file system events.
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if reason, ok := w.relevant(event); ok {
				slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				w.trigger(reason)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop fires onChange once no event has arrived for the debounce time.
func (w *Watcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.stopChan:
			stop()
			return
		case reason := <-w.reloadChan:
			stop()
			timer = time.AfterFunc(w.debounceTime, func() { w.onChange(reason) })
		}
	}
}

// trigger requests a debounced onChange.
func (w *Watcher) trigger(reason string) {
	select {
	case w.reloadChan <- reason:
	default:
		// already pending
	}
}
