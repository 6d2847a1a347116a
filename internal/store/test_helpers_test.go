package store

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/marc"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with 001 *a id *b agency and the
// given extra fields.
func createTestRecord(id string, agency int, fields ...marc.Field) *Record {
	content := marc.NewRecord(marc.NewField("001", "a", id, "b", strconv.Itoa(agency)))
	for _, f := range fields {
		content.AddField(f)
	}
	return &Record{
		ID:       marc.NewRecordID(id, agency),
		Content:  content,
		MimeType: "text/marcxchange",
		Modified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}
