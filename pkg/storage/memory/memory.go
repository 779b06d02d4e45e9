// Package memory provides in-memory record sets and grievance logs for
// tests and lightweight deployments. Data is lost when the process exits.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/rhuss/servicedesk/pkg/storage"
)

// Ensure the types implement the storage interfaces at compile time.
var (
	_ storage.RecordSet    = (*RecordSet)(nil)
	_ storage.GrievanceLog = (*GrievanceLog)(nil)
)

// RecordSet is a fixed, in-memory record set.
type RecordSet struct {
	mu      sync.RWMutex
	records []storage.Record
}

// NewRecordSet returns a record set holding the given records.
func NewRecordSet(records ...storage.Record) *RecordSet {
	return &RecordSet{records: cloneRecords(records)}
}

// ReadAll returns a copy of the records.
func (s *RecordSet) ReadAll(_ context.Context) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records), nil
}

// Replace swaps the stored records.
func (s *RecordSet) Replace(records ...storage.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneRecords(records)
}

func cloneRecords(in []storage.Record) []storage.Record {
	out := make([]storage.Record, len(in))
	for i, r := range in {
		out[i] = maps.Clone(r)
	}
	return out
}

// GrievanceLog is an in-memory grievance log.
type GrievanceLog struct {
	mu      sync.Mutex
	entries []storage.Grievance
	now     func() time.Time
}

// NewGrievanceLog creates an empty grievance log.
func NewGrievanceLog() *GrievanceLog {
	return &GrievanceLog{now: time.Now}
}

// Append stores a grievance under the next id.
func (l *GrievanceLog) Append(ctx context.Context, d storage.GrievanceDraft) (storage.Grievance, error) {
	if err := ctx.Err(); err != nil {
		return storage.Grievance{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	g := storage.NewGrievance(len(l.entries)+1, d, l.now())
	l.entries = append(l.entries, g)

	slog.Debug("grievance stored", "backend", "memory", "id", g.ID, "session_id", storage.SessionFrom(ctx))
	return g, nil
}

// List returns all grievances in id order.
func (l *GrievanceLog) List(_ context.Context) ([]storage.Grievance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]storage.Grievance, len(l.entries))
	copy(out, l.entries)
	return out, nil
}
