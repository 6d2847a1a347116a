package classification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/marc"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func common(fields ...marc.Field) *marc.Record {
	base := []marc.Field{
		marc.NewField("001", "a", "20611529", "b", "870970"),
		marc.NewField("004", "r", "n", "a", "e"),
	}
	return marc.NewRecord(append(base, fields...)...)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "ærøea", clean("Ærø é-Å", true))
	assert.Equal(t, "ærøå", clean("Ærø é-Å", false))
	assert.Equal(t, "abc", cut("abcdef", 3))
	assert.Equal(t, "abcdef", cut("abcdef", 0))
}

func TestHasData(t *testing.T) {
	assert.False(t, HasData(nil))
	assert.False(t, HasData(common()))
	assert.True(t, HasData(common(marc.NewField("652", "m", "86-096"))))
}

func TestChanged(t *testing.T) {
	tests := []struct {
		name    string
		prev    *marc.Record
		next    *marc.Record
		changed bool
		reason  string
	}{
		{
			name: "identical",
			prev: common(marc.NewField("245", "a", "Kaffe"), marc.NewField("652", "m", "86-096")),
			next: common(marc.NewField("245", "a", "Kaffe"), marc.NewField("652", "m", "86-096")),
		},
		{
			name: "punctuation and case are ignored",
			prev: common(marc.NewField("245", "a", "Kaffe!")),
			next: common(marc.NewField("245", "a", "kaffe")),
		},
		{
			name:    "title changed",
			prev:    common(marc.NewField("245", "a", "Kaffe")),
			next:    common(marc.NewField("245", "a", "Te")),
			changed: true,
			reason:  Reason245a,
		},
		{
			name:    "008t from monograph to periodical",
			prev:    common(marc.NewField("008", "t", "m")),
			next:    common(marc.NewField("008", "t", "p")),
			changed: true,
			reason:  Reason008tMSToP,
		},
		{
			name: "009 pairs ignore order",
			prev: common(marc.NewField("009", "a", "a", "g", "xx", "a", "s")),
			next: common(marc.NewField("009", "a", "s", "a", "a", "g", "xx")),
		},
		{
			name:    "009 pair changed",
			prev:    common(marc.NewField("009", "a", "a", "g", "xx")),
			next:    common(marc.NewField("009", "a", "a", "g", "xe")),
			changed: true,
			reason:  Reason009ag,
		},
		{
			name:    "039 added",
			prev:    common(),
			next:    common(marc.NewField("039", "a", "fol")),
			changed: true,
			reason:  Reason039,
		},
		{
			name:    "author changed",
			prev:    common(marc.NewField("100", "a", "Hansen", "h", "Jens")),
			next:    common(marc.NewField("100", "a", "Hansen", "h", "Jans")),
			changed: true,
			reason:  Reason100,
		},
		{
			name:    "new uniform title differs from old title",
			prev:    common(marc.NewField("245", "a", "Kaffe")),
			next:    common(marc.NewField("239", "t", "Coffee"), marc.NewField("245", "a", "Kaffe")),
			changed: true,
			reason:  Reason239t,
		},
		{
			name: "new uniform title equals old title",
			prev: common(marc.NewField("245", "a", "Kaffe")),
			next: common(marc.NewField("239", "t", "Kaffe"), marc.NewField("245", "a", "Kaffe")),
		},
		{
			name: "section title change with same part number",
			prev: common(marc.NewField("245", "n", "2", "a", "Kaffe")),
			next: marc.NewRecord(
				marc.NewField("001", "a", "20611529", "b", "870970"),
				marc.NewField("004", "r", "n", "a", "s"),
				marc.NewField("245", "n", "2", "a", "Te"),
			),
		},
		{
			name:    "652m changed",
			prev:    common(marc.NewField("652", "m", "86-096")),
			next:    common(marc.NewField("652", "m", "86-097")),
			changed: true,
			reason:  Reason652m,
		},
		{
			name: "652a values ignore order",
			prev: common(marc.NewField("652", "a", "Hansen", "a", "Jensen")),
			next: common(marc.NewField("652", "a", "jensen", "a", "hansen")),
		},
		{
			name: "652m copied from 654m",
			prev: common(marc.NewField("652", "m", "86-096"), marc.NewField("654", "m", "99.4")),
			next: common(marc.NewField("652", "m", "99.4")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, reason := Changed(tt.prev, tt.next)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestChanged_Idempotent(t *testing.T) {
	rec := common(marc.NewField("245", "a", "Kaffe"), marc.NewField("652", "m", "86-096"))
	assert.False(t, HasChanged(rec, rec.Clone()))
	assert.False(t, HasChanged(nil, nil))
}

func TestProductionDate(t *testing.T) {
	got := productionDate("202420", time.UTC)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Friday, got.Weekday())
}

func TestInProduction(t *testing.T) {
	tests := []struct {
		name string
		f032 marc.Field
		want bool
	}{
		{"future week", marc.NewField("032", "a", "DBF202420"), true},
		{"temporary week", marc.NewField("032", "x", "DBF999999"), true},
		{"past week", marc.NewField("032", "a", "DBF202401"), false},
		{"past and future", marc.NewField("032", "a", "DBF202420", "x", "BKM202301"), false},
		{"unknown code", marc.NewField("032", "a", "XYZ202420"), false},
		{"not a week", marc.NewField("032", "a", "DBF20242A"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InProduction(common(tt.f032), testNow))
		})
	}
	assert.False(t, InProduction(common(), testNow))
}

func TestPublished(t *testing.T) {
	assert.True(t, Published(common(marc.NewField("032", "a", "DBF202401")), testNow))
	assert.False(t, Published(common(marc.NewField("032", "a", "DBF202420")), testNow))
	assert.False(t, Published(common(), testNow))
}

func TestShouldCreateEnrichment(t *testing.T) {
	published := marc.NewField("032", "a", "DBF202401")

	t.Run("published record", func(t *testing.T) {
		d := ShouldCreateEnrichment(common(published), common(published), testNow)
		assert.True(t, d.Create)
		assert.Empty(t, d.Reason)
	})

	t.Run("unclassified current record", func(t *testing.T) {
		d := ShouldCreateEnrichment(common(marc.NewField("652", "m", "Ny Titel")), common(published), testNow)
		assert.False(t, d.Create)
		assert.Equal(t, ReasonNoClassification, d.Reason)
		assert.Equal(t, []any{"652m", "Ny Titel"}, d.Args)
	})

	t.Run("temporary week in 032x", func(t *testing.T) {
		d := ShouldCreateEnrichment(common(), common(marc.NewField("032", "x", "DBF999999")), testNow)
		assert.False(t, d.Create)
		assert.Equal(t, []any{"032x", "DBF999999"}, d.Args)
	})

	t.Run("in production", func(t *testing.T) {
		d := ShouldCreateEnrichment(common(), common(marc.NewField("032", "a", "DBF202420")), testNow)
		assert.False(t, d.Create)
		assert.Equal(t, ReasonInProduction, d.Reason)
	})

	t.Run("in production with 008u=r and unchanged codes", func(t *testing.T) {
		f032 := marc.NewField("032", "a", "DBF202420")
		updating := common(marc.NewField("008", "u", "r"), f032)
		d := ShouldCreateEnrichment(common(f032), updating, testNow)
		assert.False(t, d.Create)
	})

	t.Run("in production with 008u=r and changed codes", func(t *testing.T) {
		updating := common(marc.NewField("008", "u", "r"), marc.NewField("032", "a", "DBF202420"))
		d := ShouldCreateEnrichment(common(marc.NewField("032", "a", "DBF202418")), updating, testNow)
		assert.True(t, d.Create)
	})
}

func TestCorrectExtended(t *testing.T) {
	c := common(
		marc.NewField("245", "a", "Kaffe"),
		marc.NewField("504", "a", "Om kaffe"),
		marc.NewField("652", "m", "86-096"),
	)

	t.Run("removes repeated fields", func(t *testing.T) {
		enrichment := marc.NewRecord(
			marc.NewField("001", "a", "20611529", "b", "700400"),
			marc.NewField("004", "r", "n", "a", "e"),
			marc.NewField("245", "a", "Kaffe"),
			marc.NewField("504", "&", "1", "a", "Om kaffe"),
			marc.NewField("530", "a", "Egen note"),
			marc.NewField("652", "m", "86-096"),
		)
		got := CorrectExtended(c, enrichment)
		names := []string{}
		for _, f := range got.Fields {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"001", "004", "530"}, names)
		assert.Len(t, enrichment.Fields, 6)
	})

	t.Run("keeps own classification", func(t *testing.T) {
		enrichment := marc.NewRecord(
			marc.NewField("001", "a", "20611529", "b", "700400"),
			marc.NewField("652", "m", "99.4"),
		)
		got := CorrectExtended(c, enrichment)
		assert.Equal(t, "99.4", got.Value("652", "m"))
	})

	t.Run("empty when only control fields remain", func(t *testing.T) {
		enrichment := marc.NewRecord(
			marc.NewField("001", "a", "20611529", "b", "700400"),
			marc.NewField("004", "r", "n", "a", "e"),
			marc.NewField("245", "a", "Kaffe"),
			marc.NewField("652", "m", "86-096"),
		)
		assert.True(t, CorrectExtended(c, enrichment).IsEmpty())
	})

	t.Run("DBC enrichment is never emptied", func(t *testing.T) {
		enrichment := marc.NewRecord(marc.NewField("001", "a", "20611529", "b", "191919"))
		assert.False(t, CorrectExtended(c, enrichment).IsEmpty())
	})

	t.Run("reference field follows its target", func(t *testing.T) {
		withRef := common(marc.NewField("900", "a", "Ref", "z", "530"))
		enrichment := marc.NewRecord(
			marc.NewField("001", "a", "20611529", "b", "700400"),
			marc.NewField("530", "a", "Egen note"),
			marc.NewField("900", "a", "Ref", "z", "530"),
		)
		got := CorrectExtended(withRef, enrichment)
		assert.True(t, got.HasField("900"))
	})
}

type recordingRecategorizer struct {
	calls int
	err   error
}

func (r *recordingRecategorizer) Recategorize(_ context.Context, _, _, enrichment *marc.Record) (*marc.Record, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	enrichment.AddField(marc.NewField("512", "a", "Tidligere opstilling"))
	return enrichment, nil
}

func TestCreateExtended(t *testing.T) {
	rec := &recordingRecategorizer{}
	b := NewBuilder(WithRecategorizer(rec), WithNow(func() time.Time { return testNow }))

	current := common(marc.NewField("245", "a", "Kaffe"), marc.NewField("652", "m", "86-096"), marc.NewField("504", "a", "x"))
	updating := common(marc.NewField("245", "a", "Te"))
	updating.AddOrReplaceSubfield("004", "a", "b")

	got, err := b.CreateExtended(context.Background(), current, updating, "700400")
	require.NoError(t, err)

	assert.Equal(t, "20611529", got.RecordID())
	assert.Equal(t, "700400", got.AgencyID())
	assert.Equal(t, "a", got.Value("001", "f"))
	assert.Equal(t, "20240301120000", got.Value("001", "c"))
	assert.Equal(t, "20240301", got.Value("001", "d"))
	assert.Equal(t, "Kaffe", got.Value("245", "a"))
	assert.Equal(t, "86-096", got.Value("652", "m"))
	assert.Equal(t, "b", got.Value("004", "a"))
	assert.False(t, got.HasField("504"))
	assert.True(t, got.HasField("512"))
	assert.Equal(t, 1, rec.calls)
}

func TestUpdateExtended(t *testing.T) {
	b := NewBuilder(WithNow(func() time.Time { return testNow }))
	current := common(marc.NewField("652", "m", "86-096"))

	t.Run("keeps own classification", func(t *testing.T) {
		enrichment := marc.NewRecord(
			marc.NewField("001", "a", "20611529", "b", "700400"),
			marc.NewField("652", "m", "99.4"),
		)
		got, err := b.UpdateExtended(context.Background(), current, current, enrichment)
		require.NoError(t, err)
		assert.Equal(t, []string{"99.4"}, got.Values("652", "m"))
		assert.Equal(t, "e", got.Value("004", "a"))
	})

	t.Run("recategorizer failure", func(t *testing.T) {
		b := NewBuilder(WithRecategorizer(&recordingRecategorizer{err: errors.New("boom")}))
		enrichment := marc.NewRecord(marc.NewField("001", "a", "20611529", "b", "700400"))
		_, err := b.UpdateExtended(context.Background(), current, current, enrichment)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestReclassifiedNotes(t *testing.T) {
	r := marc.NewRecord()
	SetReclassifiedNote(r)
	assert.Equal(t, NoteReclassified, r.Value("y08", "a"))

	r = marc.NewRecord(marc.NewField("y08", "a", "Sammenlagt"))
	AppendReclassifiedNote(r)
	assert.Equal(t, []string{"Sammenlagt", NoteReclassified}, r.Values("y08", "a"))

	r = marc.NewRecord(marc.NewField("y08", "a", NoteRecordTypeChanged))
	SetReclassifiedNote(r)
	AppendReclassifiedNote(r)
	assert.Equal(t, []string{NoteRecordTypeChanged}, r.Values("y08", "a"))
}
