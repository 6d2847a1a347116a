package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/recordupdate/internal/marc"
)

// QueueJob is one downstream notification.
type QueueJob struct {
	Seq      int64         `json:"seq" yaml:"seq"`
	Provider string        `json:"provider" yaml:"provider"`
	ID       marc.RecordID `json:"id" yaml:"id"`
	Changed  bool          `json:"changed" yaml:"changed"`
	Leaf     bool          `json:"leaf" yaml:"leaf"`
	Priority int           `json:"priority" yaml:"priority"`
	Queued   time.Time     `json:"queued" yaml:"queued"`
}

// Enqueue appends one job. Seq and a zero Queued are filled in by the store.
func (s *Store) Enqueue(ctx context.Context, job QueueJob) error {
	queued := job.Queued
	if queued.IsZero() {
		queued = time.Now()
	}
	_, err := s.exec(ctx, s.db, `
		INSERT INTO queue
		(provider, bibliographic_record_id, agency_id, changed, leaf, priority, queued)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		job.Provider,
		job.ID.BibliographicRecordID,
		job.ID.AgencyID,
		boolToInt(job.Changed),
		boolToInt(job.Leaf),
		job.Priority,
		queued.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", job.ID, err)
	}
	return nil
}

// ChangedRecord enqueues id as changed and every record depending on it
// (enrichments and children, transitively) as unchanged. A record is a
// leaf when nothing points at it with another bibliographic id.
func (s *Store) ChangedRecord(ctx context.Context, provider string, id marc.RecordID, priority int) error {
	seen := map[marc.RecordID]bool{}
	return s.changed(ctx, provider, id, priority, true, seen)
}

func (s *Store) changed(ctx context.Context, provider string, id marc.RecordID, priority int, changed bool, seen map[marc.RecordID]bool) error {
	if seen[id] {
		return nil
	}
	seen[id] = true

	children, err := s.Children(ctx, id)
	if err != nil {
		return err
	}
	err = s.Enqueue(ctx, QueueJob{
		Provider: provider,
		ID:       id,
		Changed:  changed,
		Leaf:     len(children) == 0,
		Priority: priority,
	})
	if err != nil {
		return err
	}

	enrichments, err := s.Enrichments(ctx, id)
	if err != nil {
		return err
	}
	for _, dep := range append(enrichments, children...) {
		if err := s.changed(ctx, provider, dep, priority, false, seen); err != nil {
			return err
		}
	}
	return nil
}

// ReadQueue returns queued jobs in seq order. An empty provider returns
// jobs of every provider.
func (s *Store) ReadQueue(ctx context.Context, provider string) ([]QueueJob, error) {
	q := `
		SELECT seq, provider, bibliographic_record_id, agency_id, changed, leaf, priority, queued
		FROM queue`
	var args []any
	if provider != "" {
		q += ` WHERE provider = ?`
		args = append(args, provider)
	}
	rows, err := s.query(ctx, s.db, q+` ORDER BY seq ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	defer rows.Close()

	jobs := []QueueJob{}
	for rows.Next() {
		var (
			job           QueueJob
			changed, leaf int
			queued        string
		)
		if err := rows.Scan(&job.Seq, &job.Provider, &job.ID.BibliographicRecordID, &job.ID.AgencyID, &changed, &leaf, &job.Priority, &queued); err != nil {
			return nil, fmt.Errorf("scan queue: %w", err)
		}
		job.Changed = changed != 0
		job.Leaf = leaf != 0
		if job.Queued, err = time.Parse(timeLayout, queued); err != nil {
			return nil, fmt.Errorf("parse queued: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue: %w", err)
	}
	return jobs, nil
}
