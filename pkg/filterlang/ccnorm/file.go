package ccnorm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Logger receives table load and reload messages.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Warnf(string, ...any) {}

// ParseTable reads a table from YAML (or JSON) mapping single characters to
// their replacements:
//
//	"а": "A"
//	"0": "O"
func ParseTable(data []byte) (Table, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing confusable table: %w", err)
	}
	table := make(Table, len(raw))
	for k, v := range raw {
		r, size := utf8.DecodeRuneInString(k)
		if r == utf8.RuneError || size != len(k) {
			return nil, fmt.Errorf("confusable table key %q is not a single character", k)
		}
		table[r] = v
	}
	return table, nil
}

// File is a Provider reading its table from a YAML file. Entries in the file
// are added to BuiltinTable. Watch keeps the table in sync with the file.
type File struct {
	path   string
	logger Logger
	lazy   lazyTable

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewFile returns a provider for the table at path. logger may be nil.
func NewFile(path string, logger Logger) *File {
	if logger == nil {
		logger = nopLogger{}
	}
	f := &File{path: path, logger: logger}
	f.lazy.load = func(context.Context) (Table, error) { return f.read() }
	return f
}

func (f *File) read() (Table, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading confusable table: %w", err)
	}
	table, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	f.logger.Infof("loaded %d confusable entries from %s", len(table), f.path)
	return BuiltinTable.Merge(table), nil
}

// Initialize implements Provider.
func (f *File) Initialize(ctx context.Context) error {
	return f.lazy.initialize(ctx)
}

// Normalize implements Provider.
func (f *File) Normalize(s string) string {
	return f.lazy.normalize(s)
}

// Reload reads the file again, keeping the current table if that fails.
func (f *File) Reload() error {
	table, err := f.read()
	if err != nil {
		return err
	}
	f.lazy.replace(table)
	return nil
}

// Watch reloads the table whenever the file is written, until ctx is done
// or Close is called. The directory is watched so that editors replacing the
// file are noticed too.
func (f *File) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching confusable table: %w", err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("watching confusable table: %w", err)
	}

	f.mu.Lock()
	if f.watcher != nil {
		f.watcher.Close()
	}
	f.watcher = w
	f.mu.Unlock()

	go f.eventLoop(ctx, w)
	return nil
}

func (f *File) eventLoop(ctx context.Context, w *fsnotify.Watcher) {
	// wait for bursts of writes to settle
	const debounce = 100 * time.Millisecond
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := f.Reload(); err != nil {
				f.logger.Warnf("keeping previous confusable table: %v", err)
			} else {
				f.logger.Infof("reloaded confusable table %s", f.path)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warnf("confusable table watcher: %v", err)
		}
	}
}

// Close stops watching the file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	f.watcher = nil
	return err
}
