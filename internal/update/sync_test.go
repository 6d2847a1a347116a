package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/engine"
)

const (
	classifiedBefore = `001 00 *a40000001 *b870970
004 00 *rn *ae
008 00 *tm *uf
245 00 *aMin titel
652 00 *m86-096`
	classifiedAfter = `001 00 *a40000001 *b870970
004 00 *rn *ae
008 00 *tm *uf
245 00 *aMin titel
652 00 *m86-097`
)

func enrichmentAgencies(t *testing.T, actions []engine.Action) []int {
	t.Helper()
	var out []int
	for _, a := range actions {
		create, ok := a.(*CreateEnrichmentWithClassificationsAction)
		require.True(t, ok, "unexpected action %s", a.Name())
		out = append(out, create.Agency())
	}
	return out
}

func TestPlanEnrichmentSync_OneEnrichmentPerHoldingLibrary(t *testing.T) {
	f := newFixture(t)
	current := f.seed(classifiedBefore)
	f.holdings("40000001", 723000, 700400, 710100, 820010)
	updated := f.record(classifiedAfter)

	actions, err := planEnrichmentSync(f.ctx, f.env, f.rc("010100", updated), current, updated)
	require.NoError(t, err)

	assert.Equal(t, []int{700400, 710100, 723000}, enrichmentAgencies(t, actions))
}

func TestPlanEnrichmentSync_UnchangedClassificationPlansNothing(t *testing.T) {
	f := newFixture(t)
	current := f.seed(classifiedBefore)
	f.holdings("40000001", 710100)

	actions, err := planEnrichmentSync(f.ctx, f.env, f.rc("010100", current), current, current.Clone())
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestPlanEnrichmentSync_NewTitleIsNotPreserved(t *testing.T) {
	f := newFixture(t)
	current := f.seed(`001 00 *a40000001 *b870970
004 00 *rn *ae
008 00 *tm *uf
245 00 *aMin titel
652 00 *mNy titel`)
	f.holdings("40000001", 710100)
	updated := f.record(classifiedAfter)

	actions, err := planEnrichmentSync(f.ctx, f.env, f.rc("010100", updated), current, updated)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestPlanEnrichmentSync_ExistingEnrichmentIsUpdated(t *testing.T) {
	f := newFixture(t)
	current := f.seed(classifiedBefore)
	f.seedEnrichment("001 00 *a40000001 *b710100\n004 00 *rn *ae\nd08 00 *aEgen note")
	updated := f.record(classifiedAfter)

	actions, err := planEnrichmentSync(f.ctx, f.env, f.rc("010100", updated), current, updated)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, "UpdateClassificationsInEnrichment", actions[0].Name())
}

func TestOverwrite_ChangedClassificationStoresEnrichments(t *testing.T) {
	f := newFixture(t)
	f.seed(classifiedBefore)
	f.holdings("40000001", 710100)
	updated := f.record(classifiedAfter)

	exec := f.run(newOverwriteRecord(f.env, f.rc("010100", updated), updated, Single))

	assert.Equal(t, []string{"Store", "RemoveLinks", "CreateEnrichmentWithClassifications", "Enqueue"}, exec.Root.ChildNames())
	enrichment := f.content("40000001", 710100)
	assert.Equal(t, "86-096", enrichment.Value("652", "m"))
}

func TestPlanEnrichmentSync_EnrichmentWithOwnClassificationIsSkipped(t *testing.T) {
	f := newFixture(t)
	current := f.seed(classifiedBefore)
	f.seedEnrichment("001 00 *a40000001 *b710100\n004 00 *rn *ae\n652 00 *m99.4")
	updated := f.record(classifiedAfter)

	actions, err := planEnrichmentSync(f.ctx, f.env, f.rc("010100", updated), current, updated)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestPlanEnrichmentSync_ActingLibraryGetsNoNewEnrichment(t *testing.T) {
	f := newFixture(t)
	current := f.seed(classifiedBefore)
	f.holdings("40000001", 710100, 723000)
	updated := f.record(classifiedAfter)

	actions, err := planEnrichmentSync(f.ctx, f.env, f.rc("710100", updated), current, updated)
	require.NoError(t, err)
	assert.Equal(t, []int{723000}, enrichmentAgencies(t, actions))
}

func TestPlanEnrichmentSync_LibraryWithoutEnrichmentsIsSkipped(t *testing.T) {
	f := newFixture(t)
	current := f.seed(classifiedBefore)
	f.holdings("40000001", 820010)
	updated := f.record(classifiedAfter)

	actions, err := planEnrichmentSync(f.ctx, f.env, f.rc("010100", updated), current, updated)
	require.NoError(t, err)
	assert.Empty(t, actions)

	f.holdings("40000001", 710100)
	actions, err = planEnrichmentSync(f.ctx, f.env, f.rc("010100", updated), current, updated)
	require.NoError(t, err)
	assert.Equal(t, []int{710100}, enrichmentAgencies(t, actions))
}
