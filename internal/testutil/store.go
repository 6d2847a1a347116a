package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/store"
)

// OpenStore opens a file-backed store in a temporary directory. It is
// closed when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Record parses a record in the line format and fails the test on error.
func Record(t testing.TB, lines string) *marc.Record {
	t.Helper()
	rec, err := marc.ParseLines(lines)
	require.NoError(t, err)
	return rec
}

// Seed stores content as a live record with mime type, modified at at.
func Seed(t testing.TB, s *store.Store, content *marc.Record, mimeType string, at time.Time) {
	t.Helper()
	err := s.Save(context.Background(), &store.Record{
		ID:       content.ID(),
		Content:  content,
		MimeType: mimeType,
		Created:  at,
		Modified: at,
	})
	require.NoError(t, err)
}

// SeedDeleted stores content as a deleted record.
func SeedDeleted(t testing.TB, s *store.Store, content *marc.Record, mimeType string, at time.Time) {
	t.Helper()
	err := s.Save(context.Background(), &store.Record{
		ID:       content.ID(),
		Content:  content,
		MimeType: mimeType,
		Deleted:  true,
		Created:  at,
		Modified: at,
	})
	require.NoError(t, err)
}
