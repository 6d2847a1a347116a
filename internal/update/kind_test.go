package update

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/marc"
)

func TestKinds_HaveDistinctNames(t *testing.T) {
	seen := map[string]Kind{}
	for _, k := range Kinds() {
		require.True(t, k.Valid(), "kind %d", k)
		name := k.String()
		assert.NotEqual(t, "Unknown", name, "kind %d has no name", k)
		if prev, dup := seen[name]; dup {
			t.Errorf("kinds %d and %d share the name %q", prev, k, name)
		}
		seen[name] = k
	}
	assert.Len(t, seen, int(kindEnd)-1)
}

func TestKind_ZeroAndOutOfRangeAreInvalid(t *testing.T) {
	assert.False(t, Kind(0).Valid())
	assert.False(t, kindEnd.Valid())
	assert.Equal(t, "Unknown", Kind(0).String())
}

func TestVariantOf(t *testing.T) {
	assert.Equal(t, Single, VariantOf(false))
	assert.Equal(t, Volume, VariantOf(true))
	assert.Equal(t, "single", Single.String())
	assert.Equal(t, "volume", Volume.String())
}

func TestRequiredFieldsError_ListsMissingFields(t *testing.T) {
	f := newFixture(t)
	a := newStore(f.env, f.rc("010100", nil), nil, "")

	_, err := f.engine().Execute(context.Background(), a)
	require.Error(t, err)
	assert.True(t, engine.IsMissingFieldsError(err))

	var rfe *RequiredFieldsError
	require.True(t, errors.As(err, &rfe))
	assert.Equal(t, KindStore, rfe.Action)
	assert.Equal(t, []string{"record", "mimeType"}, rfe.Missing)
	assert.Contains(t, rfe.Error(), "Store: missing required fields: record, mimeType")
}

func TestRequiredFieldsError_NoEnv(t *testing.T) {
	a := newLink(nil, RequestContext{}, nil, marc.NewRecordID("1", CommonAgency))

	_, err := a.Perform(context.Background())

	var rfe *RequiredFieldsError
	require.True(t, errors.As(err, &rfe))
	assert.Equal(t, []string{"env", "record"}, rfe.MissingFields())
}
