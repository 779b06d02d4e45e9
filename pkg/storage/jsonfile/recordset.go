// Package jsonfile stores record sets and the grievance log as JSON array
// files. Record sets are cached in memory and, when watching is enabled,
// reloaded after the file changes on disk. Grievance appends are
// serialized per file and written with an atomic rename.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/rhuss/servicedesk/pkg/debug"
	"github.com/rhuss/servicedesk/pkg/storage"
)

// Default file names under the records directory.
const (
	JobVacancyFile    = "job_vacancy.json"
	CompanyPolicyFile = "company_policy.json"
	CompanyNewsFile   = "company_news.json"
	GrievanceFile     = "log_grievances.json"
)

var _ storage.RecordSet = (*RecordSet)(nil)

// RecordSet reads a JSON array of objects from a file.
type RecordSet struct {
	path string

	mu     sync.RWMutex
	cache  []storage.Record
	loaded bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRecordSet returns a record set backed by path. The file is read
// lazily on the first ReadAll.
func NewRecordSet(path string) *RecordSet {
	return &RecordSet{path: filepath.Clean(path)}
}

// Path returns the backing file.
func (s *RecordSet) Path() string { return s.path }

// ReadAll returns the records of the file. A missing file is reported as
// an error wrapping storage.ErrNotFound.
func (s *RecordSet) ReadAll(ctx context.Context) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.loaded {
		out := s.cache
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cache, nil
	}

	records, err := readRecords(s.path)
	if err != nil {
		return nil, err
	}

	// Only cache when something will tell us the file changed.
	if s.watcher != nil {
		s.cache = records
		s.loaded = true
	}
	debug.Log("storage", "record set loaded", "path", s.path, "records", len(records))
	return records, nil
}

func readRecords(path string) ([]storage.Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var records []storage.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if records == nil {
		records = []storage.Record{}
	}
	return records, nil
}

// Watch starts caching the file contents and invalidates the cache when
// the file is written, replaced or removed. The directory is watched so
// that replacement by rename is seen. Watching stops when ctx is done or
// Close is called.
func (s *RecordSet) Watch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	go s.run(ctx, w, s.done)
	return nil
}

func (s *RecordSet) run(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.invalidate()
			debug.Log("storage", "record set changed", "path", s.path, "op", event.Op.String())
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("record set watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *RecordSet) invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.loaded = false
	s.mu.Unlock()
}

// Close stops watching. It is safe to call on a record set that never
// watched.
func (s *RecordSet) Close() error {
	s.mu.Lock()
	w, done := s.watcher, s.done
	s.watcher = nil
	s.cache = nil
	s.loaded = false
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}
