package store

import (
	"context"
	"fmt"
)

// AddHoldings registers that agency holds the record.
func (s *Store) AddHoldings(ctx context.Context, bibliographicRecordID string, agency int) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO holdings (bibliographic_record_id, agency_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, bibliographicRecordID, agency)
	if err != nil {
		return fmt.Errorf("add holdings %s:%d: %w", bibliographicRecordID, agency, err)
	}
	return nil
}

// RemoveHoldings drops the holdings of agency on the record.
func (s *Store) RemoveHoldings(ctx context.Context, bibliographicRecordID string, agency int) error {
	_, err := s.exec(ctx, s.db, `
		DELETE FROM holdings WHERE bibliographic_record_id = ? AND agency_id = ?
	`, bibliographicRecordID, agency)
	if err != nil {
		return fmt.Errorf("remove holdings %s:%d: %w", bibliographicRecordID, agency, err)
	}
	return nil
}

// AgenciesWithHoldings returns the agencies holding the record, ascending.
func (s *Store) AgenciesWithHoldings(ctx context.Context, bibliographicRecordID string) ([]int, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT agency_id FROM holdings WHERE bibliographic_record_id = ?
	`, bibliographicRecordID)
	if err != nil {
		return nil, fmt.Errorf("holdings for %s: %w", bibliographicRecordID, err)
	}
	defer rows.Close()

	agencies := []int{}
	for rows.Next() {
		var a int
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("holdings for %s: %w", bibliographicRecordID, err)
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings: %w", err)
	}
	return sortInts(agencies), nil
}
