package storage

import (
	"context"
	"time"
)

// Record is one entry of a record set. Record sets are schemaless; callers
// look up the fields they need.
type Record map[string]any

// RecordSet is a read-only collection of records such as job openings,
// policies or news items.
type RecordSet interface {
	// ReadAll returns every record in stored order.
	ReadAll(ctx context.Context) ([]Record, error)
}

// TimestampLayout is the layout of Grievance.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// StatusOpen is the status of a newly logged grievance.
const StatusOpen = "open"

// GrievanceDraft is the caller-supplied part of a grievance.
type GrievanceDraft struct {
	Complainant string
	Accused     string
	Description string
}

// Grievance is a logged complaint.
type Grievance struct {
	ID          int    `json:"id"`
	Timestamp   string `json:"timestamp"`
	Complainant string `json:"complainant"`
	Accused     string `json:"accused"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// NewGrievance builds the grievance stored under id.
func NewGrievance(id int, d GrievanceDraft, now time.Time) Grievance {
	return Grievance{
		ID:          id,
		Timestamp:   now.Format(TimestampLayout),
		Complainant: d.Complainant,
		Accused:     d.Accused,
		Description: d.Description,
		Status:      StatusOpen,
	}
}

// GrievanceLog is an append-only log of grievances.
//
// Append assigns the next id (number of existing grievances plus one)
// and persists the grievance as one atomic step: concurrent appends never
// observe the same count.
type GrievanceLog interface {
	Append(ctx context.Context, d GrievanceDraft) (Grievance, error)
	List(ctx context.Context) ([]Grievance, error)
}
