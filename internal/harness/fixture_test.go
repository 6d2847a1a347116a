package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/testutil"
)

func TestFixture_Apply(t *testing.T) {
	ctx := context.Background()
	st := testutil.OpenStore(t)
	head := marc.NewRecordID("50000001", 870970)
	volume := marc.NewRecordID("50000002", 870970)

	f := Fixture{
		Records: []FixtureRecord{
			{Lines: "001 00 *a50000001 *b870970\n004 00 *rn *ah"},
			{Lines: "001 00 *a50000002 *b870970\n004 00 *rn *ab\n014 00 *a50000001"},
			{Lines: "001 00 *a50000003 *b870970\n004 00 *rd *ae", Deleted: true},
		},
		Relations: []Relation{{From: volume, To: head}},
		Holdings:  []Holding{{ID: "50000002", Agencies: []int{710100, 723000}}},
		Users:     []User{{User: "cat", Group: "010100", Password: "secret"}},
	}
	n, err := f.Apply(ctx, st, DefaultNow)
	require.NoError(t, err)
	assert.Equal(t, Counts{Records: 3, Relations: 1, Holdings: 2, Users: 1}, n)

	children, err := st.Children(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, []marc.RecordID{volume}, children)

	agencies, err := st.AgenciesWithHoldings(ctx, "50000002")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{710100, 723000}, agencies)

	live, err := st.Exists(ctx, marc.NewRecordID("50000003", 870970))
	require.NoError(t, err)
	assert.False(t, live)

	ok, err := auth.New(st).Verify(ctx, auth.Credentials{User: "cat", Group: "010100", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFixture_ApplyReportsBadRecord(t *testing.T) {
	f := Fixture{Records: []FixtureRecord{{Lines: "not a record"}}}

	_, err := f.Apply(context.Background(), testutil.OpenStore(t), DefaultNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "records[0]")
}
