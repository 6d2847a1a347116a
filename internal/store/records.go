package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/recordupdate/internal/marc"
)

// timeLayout keeps stored timestamps lexically ordered.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// IndexedSubfields are the field+subfield keys copied into record_index for
// live records.
var IndexedSubfields = []string{"001a", "002a", "002b", "002c", "002x", "014a", "021a", "245a"}

// Record is a stored record with its repository metadata.
type Record struct {
	ID         marc.RecordID
	Content    *marc.Record
	MimeType   string
	Deleted    bool
	Created    time.Time
	Modified   time.Time
	TrackingID string
}

// Exists reports whether a live (not deleted) record exists.
func (s *Store) Exists(ctx context.Context, id marc.RecordID) (bool, error) {
	var n int
	err := s.queryRow(ctx, s.db, `
		SELECT COUNT(*) FROM records
		WHERE bibliographic_record_id = ? AND agency_id = ? AND deleted = 0
	`, id.BibliographicRecordID, id.AgencyID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("record exists %s: %w", id, err)
	}
	return n > 0, nil
}

// ExistsMaybeDeleted reports whether any record row exists, deleted or not.
func (s *Store) ExistsMaybeDeleted(ctx context.Context, id marc.RecordID) (bool, error) {
	var n int
	err := s.queryRow(ctx, s.db, `
		SELECT COUNT(*) FROM records
		WHERE bibliographic_record_id = ? AND agency_id = ?
	`, id.BibliographicRecordID, id.AgencyID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("record exists maybe deleted %s: %w", id, err)
	}
	return n > 0, nil
}

// Fetch returns the record row, deleted or not. Returns ErrNotFound if no
// row exists.
func (s *Store) Fetch(ctx context.Context, id marc.RecordID) (*Record, error) {
	var (
		content, created, modified string
		deleted                    int
		rec                        = &Record{ID: id}
	)
	err := s.queryRow(ctx, s.db, `
		SELECT content, mimetype, deleted, created, modified, tracking_id
		FROM records
		WHERE bibliographic_record_id = ? AND agency_id = ?
	`, id.BibliographicRecordID, id.AgencyID).Scan(&content, &rec.MimeType, &deleted, &created, &modified, &rec.TrackingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}

	rec.Content, err = marc.Decode([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	rec.Deleted = deleted != 0
	if rec.Created, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("fetch %s: parse created: %w", id, err)
	}
	if rec.Modified, err = time.Parse(timeLayout, modified); err != nil {
		return nil, fmt.Errorf("fetch %s: parse modified: %w", id, err)
	}
	return rec, nil
}

// FetchContent returns the decoded content of a record.
func (s *Store) FetchContent(ctx context.Context, id marc.RecordID) (*marc.Record, error) {
	rec, err := s.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Content, nil
}

// Save inserts or replaces a record and refreshes its index entries.
//
// A zero Created keeps the stored creation time of an existing row, or
// falls back to Modified for a new one. A zero Modified means now.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Content == nil {
		return errors.New("save: record content is required")
	}
	content, err := marc.Encode(rec.Content)
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.ID, err)
	}

	modified := rec.Modified
	if modified.IsZero() {
		modified = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: begin tx: %w", rec.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	created := rec.Created
	if created.IsZero() {
		var stored string
		err := s.queryRow(ctx, tx, `
			SELECT created FROM records WHERE bibliographic_record_id = ? AND agency_id = ?
		`, rec.ID.BibliographicRecordID, rec.ID.AgencyID).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = modified
		case err != nil:
			return fmt.Errorf("save %s: read created: %w", rec.ID, err)
		default:
			if created, err = time.Parse(timeLayout, stored); err != nil {
				return fmt.Errorf("save %s: parse created: %w", rec.ID, err)
			}
		}
	}

	_, err = s.exec(ctx, tx, `
		INSERT INTO records
		(bibliographic_record_id, agency_id, content, mimetype, deleted, created, modified, tracking_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bibliographic_record_id, agency_id) DO UPDATE SET
			content = excluded.content,
			mimetype = excluded.mimetype,
			deleted = excluded.deleted,
			created = excluded.created,
			modified = excluded.modified,
			tracking_id = excluded.tracking_id
	`,
		rec.ID.BibliographicRecordID,
		rec.ID.AgencyID,
		string(content),
		rec.MimeType,
		boolToInt(rec.Deleted),
		created.UTC().Format(timeLayout),
		modified.UTC().Format(timeLayout),
		rec.TrackingID,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.ID, err)
	}

	if err := s.reindex(ctx, tx, rec); err != nil {
		return fmt.Errorf("save %s: %w", rec.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s: commit: %w", rec.ID, err)
	}
	return nil
}

// reindex replaces the index entries of rec. Deleted records are not indexed.
func (s *Store) reindex(ctx context.Context, tx *sql.Tx, rec *Record) error {
	_, err := s.exec(ctx, tx, `
		DELETE FROM record_index WHERE bibliographic_record_id = ? AND agency_id = ?
	`, rec.ID.BibliographicRecordID, rec.ID.AgencyID)
	if err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if rec.Deleted {
		return nil
	}
	for _, key := range IndexedSubfields {
		for _, v := range rec.Content.Values(key[:3], key[3:]) {
			_, err := s.exec(ctx, tx, `
				INSERT INTO record_index (bibliographic_record_id, agency_id, field_key, value)
				VALUES (?, ?, ?, ?)
			`, rec.ID.BibliographicRecordID, rec.ID.AgencyID, key, v)
			if err != nil {
				return fmt.Errorf("index %s: %w", key, err)
			}
		}
	}
	return nil
}

// AgenciesFor returns the agencies that have a record with the given
// bibliographic id, in ascending order.
func (s *Store) AgenciesFor(ctx context.Context, bibliographicRecordID string, includeDeleted bool) ([]int, error) {
	q := `SELECT agency_id FROM records WHERE bibliographic_record_id = ?`
	if !includeDeleted {
		q += ` AND deleted = 0`
	}
	rows, err := s.query(ctx, s.db, q+` ORDER BY agency_id`, bibliographicRecordID)
	if err != nil {
		return nil, fmt.Errorf("agencies for %s: %w", bibliographicRecordID, err)
	}
	defer rows.Close()

	agencies := []int{}
	for rows.Next() {
		var a int
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("agencies for %s: %w", bibliographicRecordID, err)
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agencies: %w", err)
	}
	return agencies, nil
}

// Match returns the records whose index holds value under key. A non-zero
// agency restricts matches to that agency; a non-empty excludeID drops
// records with that bibliographic id.
func (s *Store) Match(ctx context.Context, key, value string, agency int, excludeID string) ([]marc.RecordID, error) {
	q := `
		SELECT DISTINCT bibliographic_record_id, agency_id
		FROM record_index
		WHERE field_key = ? AND value = ?`
	args := []any{key, value}
	if agency != 0 {
		q += ` AND agency_id = ?`
		args = append(args, agency)
	}
	if excludeID != "" {
		q += ` AND bibliographic_record_id <> ?`
		args = append(args, excludeID)
	}
	rows, err := s.query(ctx, s.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("match %s=%s: %w", key, value, err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("match %s=%s: %w", key, value, err)
	}
	return ids, nil
}

func scanIDs(rows *sql.Rows) ([]marc.RecordID, error) {
	ids := []marc.RecordID{}
	for rows.Next() {
		var id marc.RecordID
		if err := rows.Scan(&id.BibliographicRecordID, &id.AgencyID); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	marc.SortIDs(ids)
	return ids, nil
}

func sortInts(v []int) []int {
	sort.Ints(v)
	return v
}
