package store

import (
	"context"
	"fmt"

	"github.com/roach88/recordupdate/internal/marc"
)

// SetRelationsFrom replaces every outgoing relation of from with to.
func (s *Store) SetRelationsFrom(ctx context.Context, from marc.RecordID, to []marc.RecordID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set relations %s: begin tx: %w", from, err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = s.exec(ctx, tx, `
		DELETE FROM relations WHERE bibliographic_record_id = ? AND agency_id = ?
	`, from.BibliographicRecordID, from.AgencyID)
	if err != nil {
		return fmt.Errorf("set relations %s: %w", from, err)
	}
	for _, t := range to {
		if err := s.insertRelation(ctx, tx, from, t); err != nil {
			return fmt.Errorf("set relations %s: %w", from, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set relations %s: commit: %w", from, err)
	}
	return nil
}

// Link makes to the only outgoing relation of from.
func (s *Store) Link(ctx context.Context, from, to marc.RecordID) error {
	return s.SetRelationsFrom(ctx, from, []marc.RecordID{to})
}

// LinkAppend adds a relation from -> to, keeping existing relations.
// Uses ON CONFLICT DO NOTHING, so appending an existing relation is a no-op.
func (s *Store) LinkAppend(ctx context.Context, from, to marc.RecordID) error {
	if err := s.insertRelation(ctx, s.db, from, to); err != nil {
		return fmt.Errorf("link append %s -> %s: %w", from, to, err)
	}
	return nil
}

// RemoveLinks removes every outgoing relation of from.
func (s *Store) RemoveLinks(ctx context.Context, from marc.RecordID) error {
	return s.SetRelationsFrom(ctx, from, nil)
}

func (s *Store) insertRelation(ctx context.Context, q execer, from, to marc.RecordID) error {
	_, err := s.exec(ctx, q, `
		INSERT INTO relations
		(bibliographic_record_id, agency_id, refer_bibliographic_record_id, refer_agency_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, from.BibliographicRecordID, from.AgencyID, to.BibliographicRecordID, to.AgencyID)
	return err
}

// RelationsFrom returns the outgoing relations of id.
func (s *Store) RelationsFrom(ctx context.Context, id marc.RecordID) ([]marc.RecordID, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT refer_bibliographic_record_id, refer_agency_id
		FROM relations
		WHERE bibliographic_record_id = ? AND agency_id = ?
	`, id.BibliographicRecordID, id.AgencyID)
	if err != nil {
		return nil, fmt.Errorf("relations from %s: %w", id, err)
	}
	defer rows.Close()
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("relations from %s: %w", id, err)
	}
	return ids, nil
}

// Children returns the records pointing at id with a different
// bibliographic id: volumes of a head, sections of a section head and
// records referencing an authority record.
func (s *Store) Children(ctx context.Context, id marc.RecordID) ([]marc.RecordID, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT bibliographic_record_id, agency_id
		FROM relations
		WHERE refer_bibliographic_record_id = ? AND refer_agency_id = ?
		AND bibliographic_record_id <> refer_bibliographic_record_id
	`, id.BibliographicRecordID, id.AgencyID)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	defer rows.Close()
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	return ids, nil
}

// Enrichments returns the records with the same bibliographic id that
// point at id.
func (s *Store) Enrichments(ctx context.Context, id marc.RecordID) ([]marc.RecordID, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT bibliographic_record_id, agency_id
		FROM relations
		WHERE refer_bibliographic_record_id = ? AND refer_agency_id = ?
		AND bibliographic_record_id = refer_bibliographic_record_id
	`, id.BibliographicRecordID, id.AgencyID)
	if err != nil {
		return nil, fmt.Errorf("enrichments of %s: %w", id, err)
	}
	defer rows.Close()
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("enrichments of %s: %w", id, err)
	}
	return ids, nil
}

// Parents returns the outgoing relations of id to other bibliographic ids.
func (s *Store) Parents(ctx context.Context, id marc.RecordID) ([]marc.RecordID, error) {
	all, err := s.RelationsFrom(ctx, id)
	if err != nil {
		return nil, err
	}
	parents := []marc.RecordID{}
	for _, r := range all {
		if r.BibliographicRecordID != id.BibliographicRecordID {
			parents = append(parents, r)
		}
	}
	return parents, nil
}
