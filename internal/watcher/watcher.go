// Package watcher watches the project tree and delivers debounced batches of
// file changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/conneroisu/rune/internal/logging"
)

// EventType is the kind of a file change.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
	// EventTypeOverflow stands for changes dropped from a full queue. It
	// has no path.
	EventTypeOverflow
)

var eventTypeNames = [...]string{"created", "modified", "deleted", "renamed", "overflow"}

func (e EventType) String() string {
	if e < 0 || int(e) >= len(eventTypeNames) {
		return "unknown"
	}
	return eventTypeNames[e]
}

// ChangeEvent is one change to a file.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// FileFilter reports whether a changed path is delivered.
type FileFilter func(path string) bool

// ChangeHandler handles one debounced batch.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// Options configure a FileWatcher.
type Options struct {
	// Root is the directory ignore patterns are relative to.
	Root     string
	Debounce time.Duration
	// Ignore holds gitignore-style patterns.
	Ignore []string
	// IgnoreFile is a .gitignore whose patterns are added to Ignore. A
	// missing file is skipped.
	IgnoreFile string
	Logger     logging.Logger
}

// FileWatcher watches directories recursively and groups rapid changes.
type FileWatcher struct {
	fs      *fsnotify.Watcher
	batch   *batcher
	logger  logging.Logger
	root    string
	ignored *ignore.GitIgnore

	mu       sync.RWMutex
	filters  []FileFilter
	handlers []ChangeHandler
}

// New creates a file watcher. Call AddRecursive and then Start.
func New(opts Options) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	root := opts.Root
	if root == "" {
		root = "."
	}
	delay := opts.Debounce
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	ignored, err := compileIgnore(opts.IgnoreFile, opts.Ignore)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	logger = logger.WithComponent("watcher")

	return &FileWatcher{
		fs:      w,
		batch:   newBatcher(delay, logger),
		logger:  logger,
		root:    filepath.Clean(root),
		ignored: ignored,
	}, nil
}

func compileIgnore(file string, lines []string) (*ignore.GitIgnore, error) {
	if file == "" {
		return ignore.CompileIgnoreLines(lines...), nil
	}

	gi, err := ignore.CompileIgnoreFileAndLines(file, lines...)
	if errors.Is(err, fs.ErrNotExist) {
		return ignore.CompileIgnoreLines(lines...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", file, err)
	}

	return gi, nil
}

func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mu.Lock()
	fw.filters = append(fw.filters, filter)
	fw.mu.Unlock()
}

func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mu.Lock()
	fw.handlers = append(fw.handlers, handler)
	fw.mu.Unlock()
}

// Ignored reports whether path matches an ignore pattern. Paths outside the
// root are matched as given.
func (fw *FileWatcher) Ignored(path string) bool {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}

	return fw.ignored.MatchesPath(filepath.ToSlash(rel))
}

// AddPath watches one directory.
func (fw *FileWatcher) AddPath(path string) error {
	clean, err := cleanDir(path)
	if err != nil {
		return err
	}

	return fw.fs.Add(clean)
}

// AddRecursive watches dir and every subdirectory that is not ignored.
func (fw *FileWatcher) AddRecursive(dir string) error {
	clean, err := cleanDir(dir)
	if err != nil {
		return err
	}

	return filepath.WalkDir(clean, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		case path != clean && fw.Ignored(path):
			return filepath.SkipDir
		}

		return fw.fs.Add(path)
	})
}

// WatchList returns the watched directories sorted.
func (fw *FileWatcher) WatchList() []string {
	list := fw.fs.WatchList()
	sort.Strings(list)

	return list
}

var errTraversal = errors.New("path contains directory traversal")

func cleanDir(path string) (string, error) {
	if path == "" {
		return "", errors.New("invalid path: empty")
	}
	clean := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid path %s: %w", path, errTraversal)
		}
	}

	return clean, nil
}

// Start runs the watcher until ctx is cancelled or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.batch.run(ctx)
	go fw.dispatch(ctx)
	go fw.receive(ctx)

	return nil
}

// Stop closes the underlying fsnotify watcher.
func (fw *FileWatcher) Stop() error {
	return fw.fs.Close()
}

func (fw *FileWatcher) receive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.fs.Events:
			if !ok {
				return
			}
			fw.observe(ctx, ev)
		case err, ok := <-fw.fs.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) observe(ctx context.Context, ev fsnotify.Event) {
	if fw.Ignored(ev.Name) {
		return
	}

	change := ChangeEvent{Type: eventType(ev.Op), Path: ev.Name}
	if info, err := os.Stat(ev.Name); err == nil {
		if info.IsDir() {
			// new directories are watched as they appear
			if ev.Has(fsnotify.Create) {
				if err := fw.AddRecursive(ev.Name); err != nil {
					fw.logger.Warn(ctx, err, "Failed to watch new directory", "path", ev.Name)
				}
			}
			return
		}
		change.ModTime = info.ModTime()
		change.Size = info.Size()
	}

	fw.mu.RLock()
	filters := fw.filters
	fw.mu.RUnlock()
	for _, keep := range filters {
		if !keep(ev.Name) {
			return
		}
	}

	fw.batch.add(change)
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	}

	return EventTypeModified
}

func (fw *FileWatcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.batch.batches():
			fw.mu.RLock()
			handlers := fw.handlers
			fw.mu.RUnlock()

			for _, handle := range handlers {
				if err := handle(ctx, events); err != nil {
					fw.logger.Error(ctx, err, "Change handler failed", "changes", len(events))
				}
			}
		}
	}
}

// NoTestFilter skips Go test files.
func NoTestFilter(path string) bool {
	return !strings.HasSuffix(filepath.Base(path), "_test.go")
}

// NoTempFilter skips editor swap and backup files.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasSuffix(base, "~") &&
		!strings.HasSuffix(base, ".swp") &&
		!strings.HasPrefix(base, ".#")
}
