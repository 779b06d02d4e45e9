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
	"time"

	"github.com/rhuss/servicedesk/pkg/storage"
)

var _ storage.GrievanceLog = (*GrievanceLog)(nil)

// fileLocks holds one single-slot semaphore per absolute path so every
// GrievanceLog in the process writing the same file shares a lock.
var fileLocks sync.Map // map[string]chan struct{}

func lockFor(path string) chan struct{} {
	sem, _ := fileLocks.LoadOrStore(path, make(chan struct{}, 1))
	return sem.(chan struct{})
}

// GrievanceLog appends grievances to a JSON array file.
type GrievanceLog struct {
	path string
	now  func() time.Time
}

// NewGrievanceLog returns a grievance log backed by path. The file and its
// directory are created on the first append.
func NewGrievanceLog(path string) (*GrievanceLog, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return &GrievanceLog{path: abs, now: time.Now}, nil
}

// Path returns the backing file.
func (l *GrievanceLog) Path() string { return l.path }

// Append reads the log, assigns the next id and rewrites the file through a
// temporary file and rename. Waiting for the lock honours ctx; a caller
// whose context expires while another append holds the file gets
// storage.ErrBusy.
func (l *GrievanceLog) Append(ctx context.Context, d storage.GrievanceDraft) (storage.Grievance, error) {
	sem := lockFor(l.path)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return storage.Grievance{}, fmt.Errorf("appending to %s: %w: %w", l.path, storage.ErrBusy, ctx.Err())
	}
	defer func() { <-sem }()

	entries, err := l.read()
	if err != nil {
		return storage.Grievance{}, err
	}

	g := storage.NewGrievance(len(entries)+1, d, l.now())
	entries = append(entries, g)

	if err := l.write(entries); err != nil {
		return storage.Grievance{}, err
	}

	slog.Debug("grievance stored", "backend", "jsonfile", "id", g.ID, "path", l.path, "session_id", storage.SessionFrom(ctx))
	return g, nil
}

// List returns all grievances in file order. A missing file is an empty log.
func (l *GrievanceLog) List(ctx context.Context) ([]storage.Grievance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.read()
}

func (l *GrievanceLog) read() ([]storage.Grievance, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []storage.Grievance{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	if len(data) == 0 {
		return []storage.Grievance{}, nil
	}

	var entries []storage.Grievance
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *GrievanceLog) write(entries []storage.Grievance) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding grievances: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replacing %s: %w", l.path, err)
	}
	return nil
}
