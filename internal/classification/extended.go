package classification

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/recordupdate/internal/marc"
)

var (
	controlFields       = []string{"001", "004", "996"}
	referenceFields     = []string{"900", "910", "945"}
	ignorableSubfields  = []string{"&", "0", "1", "4"}
	keepAlwaysFields    = append(append([]string(nil), controlFields...), Fields...)
	agenciesKeptIfEmpty = []string{"191919", "870970"}
)

// Notes written to y08a of enrichments touched by a classification change.
const (
	NoteRecordTypeChanged = "UPDATE posttypeskift"
	NoteReclassified      = "UPDATE opstillingsændring"
)

// Recategorizer adds notes to an enrichment record when the common record
// it belongs to moves to another category.
type Recategorizer interface {
	Recategorize(ctx context.Context, current, updating, enrichment *marc.Record) (*marc.Record, error)
}

// NopRecategorizer returns the enrichment unchanged.
type NopRecategorizer struct{}

// Recategorize implements Recategorizer.
func (NopRecategorizer) Recategorize(_ context.Context, _, _, enrichment *marc.Record) (*marc.Record, error) {
	return enrichment, nil
}

// Builder builds and corrects enrichment records against their common
// record.
type Builder struct {
	recategorizer Recategorizer
	now           func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRecategorizer sets the recategorization collaborator.
func WithRecategorizer(r Recategorizer) BuilderOption {
	return func(b *Builder) { b.recategorizer = r }
}

// WithNow sets the time source for 001c and 001d.
func WithNow(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder returns a Builder with a NopRecategorizer and the wall clock.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{recategorizer: NopRecategorizer{}, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateExtended builds a new enrichment record for agency carrying the
// classification of current. The result is empty when nothing but control
// fields would remain.
func (b *Builder) CreateExtended(ctx context.Context, current, updating *marc.Record, agency string) (*marc.Record, error) {
	now := b.now()
	r := marc.NewRecord()
	r.AddOrReplaceSubfield("001", "a", updating.RecordID())
	r.AddOrReplaceSubfield("001", "b", agency)
	r.SetModified(now)
	r.SetCreated(now)
	r.AddOrReplaceSubfield("001", "f", "a")
	return b.UpdateExtended(ctx, current, updating, r)
}

// UpdateExtended copies the classification of current into enrichment when
// the enrichment has none of its own, applies recategorization notes and
// takes 004 from updating.
func (b *Builder) UpdateExtended(ctx context.Context, current, updating, enrichment *marc.Record) (*marc.Record, error) {
	r := enrichment.Clone()
	if !HasData(r) {
		r.CopyFieldsFrom(current, Fields...)
	}
	r, err := b.recategorizer.Recategorize(ctx, current, updating, r)
	if err != nil {
		return nil, fmt.Errorf("recategorize %s: %w", enrichment.ID(), err)
	}
	r.RemoveField("004")
	r.CopyFieldsFrom(updating, "004")
	return emptyIfControlOnly(r), nil
}

// CorrectExtended strips from enrichment what it repeats of common: the
// classification fields when they equal those of common, and every other
// field present verbatim in common. Subfields &, 0, 1 and 4 are ignored
// when comparing. Reference fields (900, 910, 945) are kept only when the
// field they point at in subfield z is kept.
func CorrectExtended(common, enrichment *marc.Record) *marc.Record {
	r := enrichment.Clone()
	if HasData(common) && !HasChanged(common, r) {
		r.RemoveFields(Fields...)
	}

	out := marc.NewRecord()
	for _, f := range r.Fields {
		if keepField(f, common, r) {
			out.AddField(f)
		}
	}
	return emptyIfControlOnly(out)
}

func keepField(f marc.Field, common, enrichment *marc.Record) bool {
	if slices.Contains(keepAlwaysFields, f.Name) {
		return true
	}
	same := common.FieldsNamed(f.Name)
	if len(same) == 0 {
		return true
	}
	if slices.Contains(referenceFields, f.Name) {
		z := f.Value("z")
		if z == "" {
			return false
		}
		if len(z) > 3 {
			z = z[:3]
		}
		return enrichment.HasField(z)
	}
	want := significantSubfields(f)
	for _, c := range same {
		if slices.Equal(significantSubfields(c), want) {
			return false
		}
	}
	return true
}

func significantSubfields(f marc.Field) []marc.Subfield {
	var out []marc.Subfield
	for _, sf := range f.Subfields {
		if !slices.Contains(ignorableSubfields, sf.Name) {
			out = append(out, marc.Subfield{Name: sf.Name, Value: strings.TrimSpace(sf.Value)})
		}
	}
	return out
}

// emptyIfControlOnly returns an empty record when r holds only 001, 004
// and 996. Common and DBC enrichment records, and records with 004n, are
// returned unchanged.
func emptyIfControlOnly(r *marc.Record) *marc.Record {
	if slices.Contains(agenciesKeptIfEmpty, r.AgencyID()) || r.HasSubfield("004", "n") {
		return r
	}
	for _, f := range r.Fields {
		if !slices.Contains(controlFields, f.Name) {
			return r
		}
	}
	return marc.NewRecord()
}

// SetReclassifiedNote sets y08a to NoteReclassified unless the record is
// already noted as having changed record type.
func SetReclassifiedNote(r *marc.Record) {
	if hasRecordTypeNote(r) {
		return
	}
	r.AddOrReplaceSubfield("y08", "a", NoteReclassified)
}

// AppendReclassifiedNote adds NoteReclassified as another y08a unless the
// record is already noted as having changed record type.
func AppendReclassifiedNote(r *marc.Record) {
	if hasRecordTypeNote(r) {
		return
	}
	for i := range r.Fields {
		if r.Fields[i].Name == "y08" {
			r.Fields[i].Subfields = append(r.Fields[i].Subfields, marc.Subfield{Name: "a", Value: NoteReclassified})
			return
		}
	}
	r.AddField(marc.NewField("y08", "a", NoteReclassified))
}

func hasRecordTypeNote(r *marc.Record) bool {
	for _, v := range r.Values("y08", "a") {
		if strings.Contains(v, NoteRecordTypeChanged) {
			return true
		}
	}
	return false
}
