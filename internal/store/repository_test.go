package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/marc"
)

func TestSaveFetch_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("20611529", 870970, marc.NewField("245", "a", "Kaffe"))
	rec.TrackingID = "track-1"
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Fetch(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Kaffe", got.Content.Value("245", "a"))
	assert.Equal(t, "text/marcxchange", got.MimeType)
	assert.Equal(t, "track-1", got.TrackingID)
	assert.False(t, got.Deleted)
	assert.True(t, got.Created.Equal(rec.Modified))
}

func TestFetch_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Fetch(context.Background(), marc.NewRecordID("nope", 870970))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_KeepsCreatedOnOverwrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRecord("1", 700400)
	require.NoError(t, s.Save(ctx, first))

	second := createTestRecord("1", 700400)
	second.Modified = first.Modified.Add(time.Hour)
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Fetch(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Created.Equal(first.Modified))
	assert.True(t, got.Modified.Equal(second.Modified))
}

func TestExists_DeletedRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("1", 870970)
	rec.Deleted = true
	require.NoError(t, s.Save(ctx, rec))

	exists, err := s.Exists(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	maybe, err := s.ExistsMaybeDeleted(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, maybe)

	agencies, err := s.AgenciesFor(ctx, "1", false)
	require.NoError(t, err)
	assert.Empty(t, agencies)

	agencies, err = s.AgenciesFor(ctx, "1", true)
	require.NoError(t, err)
	assert.Equal(t, []int{870970}, agencies)
}

func TestRelations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	head := marc.NewRecordID("head", 870970)
	volume := marc.NewRecordID("vol", 870970)
	enrichment := marc.NewRecordID("head", 700400)
	authority := marc.NewRecordID("auth", 870979)

	require.NoError(t, s.Link(ctx, volume, head))
	require.NoError(t, s.Link(ctx, enrichment, head))
	require.NoError(t, s.LinkAppend(ctx, head, authority))
	require.NoError(t, s.LinkAppend(ctx, head, authority))

	children, err := s.Children(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, []marc.RecordID{volume}, children)

	enrichments, err := s.Enrichments(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, []marc.RecordID{enrichment}, enrichments)

	parents, err := s.Parents(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, []marc.RecordID{authority}, parents)

	require.NoError(t, s.RemoveLinks(ctx, volume))
	children, err = s.Children(ctx, head)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestLink_ReplacesOutgoingRelations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	from := marc.NewRecordID("vol", 870970)
	require.NoError(t, s.Link(ctx, from, marc.NewRecordID("a", 870970)))
	require.NoError(t, s.Link(ctx, from, marc.NewRecordID("b", 870970)))

	rels, err := s.RelationsFrom(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, []marc.RecordID{marc.NewRecordID("b", 870970)}, rels)
}

func TestChangedRecord_EnqueuesDependents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	head := marc.NewRecordID("head", 870970)
	volume := marc.NewRecordID("vol", 870970)
	enrichment := marc.NewRecordID("head", 191919)
	require.NoError(t, s.Link(ctx, volume, head))
	require.NoError(t, s.Link(ctx, enrichment, head))

	require.NoError(t, s.ChangedRecord(ctx, "dataio-update", head, 1000))

	jobs, err := s.ReadQueue(ctx, "dataio-update")
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, head, jobs[0].ID)
	assert.True(t, jobs[0].Changed)
	assert.False(t, jobs[0].Leaf)

	assert.Equal(t, enrichment, jobs[1].ID)
	assert.False(t, jobs[1].Changed)
	assert.True(t, jobs[1].Leaf)

	assert.Equal(t, volume, jobs[2].ID)
	assert.Equal(t, 1000, jobs[2].Priority)

	other, err := s.ReadQueue(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestHoldings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddHoldings(ctx, "1", 723000))
	require.NoError(t, s.AddHoldings(ctx, "1", 700400))
	require.NoError(t, s.AddHoldings(ctx, "1", 700400))

	agencies, err := s.AgenciesWithHoldings(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []int{700400, 723000}, agencies)

	require.NoError(t, s.RemoveHoldings(ctx, "1", 700400))
	agencies, err = s.AgenciesWithHoldings(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []int{723000}, agencies)
}

func TestMatch_IndexesLiveRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("new", 870970, marc.NewField("002", "a", "old1", "a", "old2"))
	require.NoError(t, s.Save(ctx, rec))

	ids, err := s.Match(ctx, "002a", "old2", 870970, "")
	require.NoError(t, err)
	assert.Equal(t, []marc.RecordID{rec.ID}, ids)

	ids, err = s.Match(ctx, "002a", "old2", 870970, "new")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.Match(ctx, "002a", "old2", 700400, "")
	require.NoError(t, err)
	assert.Empty(t, ids)

	rec.Deleted = true
	require.NoError(t, s.Save(ctx, rec))
	ids, err = s.Match(ctx, "002a", "old1", 0, "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDoubleRecordKeys_SingleUse(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutDoubleRecordKey(ctx, "k1", now.Add(time.Hour)))

	ok, err := s.ConsumeDoubleRecordKey(ctx, "k1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConsumeDoubleRecordKey(ctx, "k1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ConsumeDoubleRecordKey(ctx, "unknown", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDoubleRecordKeys_Expired(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutDoubleRecordKey(ctx, "old", now.Add(-time.Minute)))
	require.NoError(t, s.PutDoubleRecordKey(ctx, "fresh", now.Add(time.Minute)))

	ok, err := s.ConsumeDoubleRecordKey(ctx, "old", now)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.PurgeExpiredDoubleRecordKeys(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUsers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.PasswordHash(ctx, "netpunkt", "700400")
	assert.ErrorIs(t, err, ErrUnknownUser)

	require.NoError(t, s.PutUser(ctx, "netpunkt", "700400", "hash1"))
	require.NoError(t, s.PutUser(ctx, "netpunkt", "700400", "hash2"))

	hash, err := s.PasswordHash(ctx, "netpunkt", "700400")
	require.NoError(t, err)
	assert.Equal(t, "hash2", hash)
}
