package doublerecord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/search"
	"github.com/roach88/recordupdate/internal/store"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "dr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func save(t *testing.T, s *store.Store, text string) {
	t.Helper()
	r := marc.MustParseLines(text)
	require.NoError(t, s.Save(context.Background(), &store.Record{ID: r.ID(), Content: r, MimeType: "text/marcxchange"}))
}

func TestLocalChecker(t *testing.T) {
	s := openStore(t)
	save(t, s, "001 00 *a50938409 *b870970\n021 00 *a9788711321690\n245 00 *aKaffe og te")
	save(t, s, "001 00 *a60000001 *b870970\n245 00 *aKaffe")
	checker := NewLocalChecker(search.NewStoreIndex(s), nil)
	ctx := context.Background()

	t.Run("isbn and title", func(t *testing.T) {
		rec := marc.MustParseLines("001 00 *a70000001 *b870970\n021 00 *a9788711321690\n245 00 *aKaffe")
		v, err := checker.Frontend(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, StatusDoubleRecord, v.Status)
		require.Len(t, v.Candidates, 2)
		assert.Equal(t, "50938409:870970", v.Candidates[0].PID)
		assert.Contains(t, v.Candidates[0].Message, "021a")
		assert.Equal(t, "60000001:870970", v.Candidates[1].PID)
	})

	t.Run("own record is not a duplicate", func(t *testing.T) {
		rec := marc.MustParseLines("001 00 *a60000001 *b870970\n245 00 *aKaffe")
		v, err := checker.Frontend(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, v.Status)
	})

	t.Run("no match", func(t *testing.T) {
		rec := marc.MustParseLines("001 00 *a70000001 *b870970\n245 00 *aTe")
		v, err := checker.Frontend(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, v.Status)
		assert.Empty(t, v.Candidates)
	})

	require.NoError(t, checker.Notify(ctx, marc.MustParseLines("001 00 *a1 *b870970")))
}

func TestClient(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		rec, err := marc.Decode(body)
		assert.NoError(t, err)
		assert.Equal(t, "70000001", rec.RecordID())
		if r.URL.Path == "/doublerecord/frontend" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "doublerecord",
				"doubleRecordFrontendDTOs": []map[string]string{
					{"pid": "50938409:870970", "message": "same isbn"},
				},
			})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	rec := marc.MustParseLines("001 00 *a70000001 *b870970")

	v, err := c.Frontend(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, StatusDoubleRecord, v.Status)
	require.Len(t, v.Candidates, 1)
	assert.Equal(t, "same isbn", v.Candidates[0].Message)

	require.NoError(t, c.Notify(context.Background(), rec))
	assert.Equal(t, []string{"/doublerecord/frontend", "/doublerecord/check"}, paths)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil, nil).Frontend(context.Background(), marc.MustParseLines("001 00 *a1 *b870970"))
	assert.ErrorContains(t, err, "500")
}

func TestKeys(t *testing.T) {
	s := openStore(t)
	clock := &fixedClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	keys := NewKeys(s, engine.NewFixedGenerator("key-1", "key-2"), clock, time.Hour)
	ctx := context.Background()

	key, err := keys.Issue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key-1", key)

	ok, err := keys.Redeem(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = keys.Redeem(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "keys are single use")

	expired, err := keys.Issue(ctx)
	require.NoError(t, err)
	clock.t = clock.t.Add(2 * time.Hour)
	ok, err = keys.Redeem(ctx, expired)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = keys.Redeem(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}
