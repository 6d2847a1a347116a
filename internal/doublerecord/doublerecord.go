// Package doublerecord detects probable duplicates of incoming common
// records and manages the keys that let a caller confirm an update despite
// a duplicate warning.
package doublerecord

import (
	"context"

	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// Verdict statuses returned by a Checker.
const (
	StatusOK           = "ok"
	StatusDoubleRecord = "doublerecord"
)

// Verdict is the answer of a frontend duplicate check.
//
// Status is StatusOK, StatusDoubleRecord, or another status naming a
// failure of the check itself; for the latter Message explains it.
type Verdict struct {
	Status     string             `json:"status"`
	Message    string             `json:"message,omitempty"`
	Candidates []result.Candidate `json:"doubleRecordFrontendDTOs,omitempty"`
}

// Checker is the duplicate-detection collaborator.
type Checker interface {
	// Frontend checks rec before it is stored and returns the candidates
	// the caller must confirm.
	Frontend(ctx context.Context, rec *marc.Record) (Verdict, error)

	// Notify reports a stored record for offline duplicate review.
	Notify(ctx context.Context, rec *marc.Record) error
}
