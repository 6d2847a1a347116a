package marc

import (
	"fmt"
	"sort"
)

// RecordID identifies exactly one stored record.
type RecordID struct {
	BibliographicRecordID string `json:"bibliographic_record_id" yaml:"id"`
	AgencyID              int    `json:"agency_id" yaml:"agency"`
}

// NewRecordID creates a RecordID.
func NewRecordID(id string, agency int) RecordID {
	return RecordID{BibliographicRecordID: id, AgencyID: agency}
}

// String renders "id:agency".
func (id RecordID) String() string {
	return fmt.Sprintf("%s:%d", id.BibliographicRecordID, id.AgencyID)
}

// SortIDs orders ids by agency, then bibliographic id.
func SortIDs(ids []RecordID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].AgencyID != ids[j].AgencyID {
			return ids[i].AgencyID < ids[j].AgencyID
		}
		return ids[i].BibliographicRecordID < ids[j].BibliographicRecordID
	})
}
