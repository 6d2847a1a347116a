package update

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/marc"
)

var ageInterval = regexp.MustCompile(`^(For|for) ([0-9]+)-([0-9]+) (år)`)

// preprocessFailure is a business failure found while preprocessing, such
// as a volume whose head record does not exist.
type preprocessFailure struct {
	message string
}

func (f *preprocessFailure) Error() string { return f.message }

// preprocessor normalizes DBC common records before they are validated.
type preprocessor struct {
	env *Env
	now time.Time
}

// preprocess returns a normalized copy of rec. Only common records owned by
// DBC are changed. The returned error is a *preprocessFailure for business
// failures.
func preprocess(ctx context.Context, env *Env, rec *marc.Record, now time.Time) (*marc.Record, error) {
	out := rec.Clone()
	if out.AgencyIDInt() != CommonAgency || !out.HasValue("996", "a", ownerDBC) {
		return out, nil
	}
	p := preprocessor{env: env, now: now}
	p.ageInterval(out)
	p.eBook(out)
	if err := p.edition(ctx, out); err != nil {
		return nil, err
	}
	if err := p.isbnFromPreviousEdition(ctx, out); err != nil {
		return nil, err
	}
	if err := p.supplierRelations(ctx, out); err != nil {
		return nil, err
	}
	out.Sort()
	return out, nil
}

// ageInterval writes an age interval "For 3-5 år" in 666u out as one 666
// field per year.
func (p preprocessor) ageInterval(rec *marc.Record) {
	var years []string
	for _, v := range rec.Values("666", "u") {
		m := ageInterval.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		from, _ := strconv.Atoi(m[2])
		to, _ := strconv.Atoi(m[3])
		for y := from; y <= to; y++ {
			years = append(years, fmt.Sprintf("%s %d %s", m[1], y, m[4]))
		}
	}
	if len(years) == 0 {
		return
	}
	rec.Fields = slices.DeleteFunc(rec.Fields, func(f marc.Field) bool {
		return f.Name == "666" && f.HasSubfield("u") && !f.HasSubfield("0")
	})
	for _, y := range years {
		rec.AddField(marc.NewField("666", "0", "", "u", y))
	}
	rec.Sort()
}

// eBook marks online text that is not a periodical with 008w=1.
func (p preprocessor) eBook(rec *marc.Record) {
	if rec.HasValue("008", "w", "1") {
		return
	}
	if t := rec.RecordType(); t == "b" || t == "s" {
		return
	}
	if rec.Value("009", "a") == "a" && rec.Value("009", "g") == "xe" &&
		rec.Value("008", "t") != "p" && rec.Value("008", "u") != "o" {
		rec.AddOrReplaceSubfield("008", "w", "1")
	}
}

// edition keeps the first or new edition marker in 008& when 008u turns
// into r (revised).
func (p preprocessor) edition(ctx context.Context, rec *marc.Record) error {
	status := rec.Value("008", "u")
	marked := rec.HasValue("008", "&", "f") || rec.HasValue("008", "&", "u")

	if status == "u" && rec.HasValue("008", "&", "f") {
		setEdition(rec, "u")
		return nil
	}
	if status != "r" || marked {
		return nil
	}
	stored, err := p.env.Repo.ExistsMaybeDeleted(ctx, rec.ID())
	if err != nil {
		return fmt.Errorf("exists %s: %w", rec.ID(), err)
	}
	if !stored {
		return nil
	}
	existing, err := p.env.fetchContent(ctx, rec.ID())
	if err != nil {
		return err
	}
	switch existing.Value("008", "u") {
	case "f":
		setEdition(rec, "f")
	case "u":
		setEdition(rec, "u")
	case "r":
		edition, ok := existingValue(existing, "250", "a")
		switch {
		case !ok:
			setEdition(rec, "f")
		case strings.Contains(edition, "1."):
			if strings.Contains(edition, "i.e.") {
				setEdition(rec, "u")
			} else {
				setEdition(rec, "f")
			}
		default:
			if f, ok := existing.Field("520"); ok {
				for _, sf := range f.Subfields {
					if strings.Contains(sf.Value, "idligere") {
						setEdition(rec, "u")
						break
					}
				}
			}
		}
	}
	return nil
}

func existingValue(rec *marc.Record, field, sub string) (string, bool) {
	if !rec.HasSubfield(field, sub) {
		return "", false
	}
	return rec.Value(field, sub), true
}

// setEdition sets the edition marker of 008&, replacing the opposite
// marker. Other 008& values are kept.
func setEdition(rec *marc.Record, value string) {
	if rec.HasValue("008", "&", value) {
		return
	}
	opposite := "u"
	if value == "u" {
		opposite = "f"
	}
	for i := range rec.Fields {
		f := &rec.Fields[i]
		if f.Name != "008" {
			continue
		}
		for j := range f.Subfields {
			if f.Subfields[j].Name == "&" && f.Subfields[j].Value == opposite {
				f.Subfields[j].Value = value
				return
			}
		}
		f.Subfields = append(f.Subfields, marc.Subfield{Name: "&", Value: value})
		return
	}
}

// isbnFromPreviousEdition copies the ISBNs (021a and 021e) of the previous
// editions named in 520n into 520r of text and sound records.
func (p preprocessor) isbnFromPreviousEdition(ctx context.Context, rec *marc.Record) error {
	if !rec.HasSubfield("520", "n") {
		return nil
	}
	applies := isTextOrSound(rec)
	if !applies && rec.RecordType() == "b" {
		head, err := p.headVolume(ctx, rec)
		if err != nil {
			return err
		}
		applies = head != nil && isTextOrSound(head)
	}
	if !applies {
		return nil
	}

	for i := range rec.Fields {
		f := &rec.Fields[i]
		if f.Name != "520" {
			continue
		}
		original := slices.Clone(f.Subfields)
		for _, sf := range original {
			if sf.Name != "n" {
				continue
			}
			ok, err := p.env.exists(ctx, sf.Value, CommonAgency)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			isbns, err := p.isbnsOf(ctx, sf.Value)
			if err != nil {
				return err
			}
			for _, isbn := range isbns {
				r := marc.Subfield{Name: "r", Value: isbn}
				if !slices.Contains(original, r) {
					f.Subfields = append(f.Subfields, r)
				}
			}
		}
	}
	return nil
}

func isTextOrSound(rec *marc.Record) bool {
	return rec.HasValue("009", "a", "a") || rec.HasValue("009", "a", "r")
}

// isbnsOf returns the ISBNs of a common record, or of its head volume when
// the record is a volume without its own.
func (p preprocessor) isbnsOf(ctx context.Context, id string) ([]string, error) {
	rec, err := p.env.fetchContent(ctx, marc.NewRecordID(id, CommonAgency))
	if err != nil {
		return nil, err
	}
	if hasISBN(rec) {
		return isbns(rec), nil
	}
	if rec.RecordType() != "b" {
		return nil, nil
	}
	head, err := p.headVolume(ctx, rec)
	if err != nil {
		return nil, err
	}
	if head != nil && hasISBN(head) {
		return isbns(head), nil
	}
	return nil, nil
}

func hasISBN(rec *marc.Record) bool {
	return rec.HasSubfield("021", "a") || rec.HasSubfield("021", "e")
}

func isbns(rec *marc.Record) []string {
	var out []string
	for _, f := range rec.FieldsNamed("021") {
		for _, sf := range f.Subfields {
			if sf.Name == "a" || sf.Name == "e" {
				out = append(out, sf.Value)
			}
		}
	}
	return out
}

// headVolume returns the head record above a volume: its parent when that
// is a head record, or the parent of its section. It returns nil when there
// is no head record.
func (p preprocessor) headVolume(ctx context.Context, rec *marc.Record) (*marc.Record, error) {
	parentID := rec.ParentID()
	if parentID == "" {
		return nil, nil
	}
	ok, err := p.env.exists(ctx, parentID, CommonAgency)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &preprocessFailure{message: p.env.msg("parent.does.not.exist", parentID, CommonAgency)}
	}
	parent, err := p.env.fetchContent(ctx, marc.NewRecordID(parentID, CommonAgency))
	if err != nil {
		return nil, err
	}
	switch parent.RecordType() {
	case "h":
		return parent, nil
	case "s":
		if parent.ParentID() == "" {
			return nil, nil
		}
		return p.env.fetchContent(ctx, marc.NewRecordID(parent.ParentID(), CommonAgency))
	}
	return nil, nil
}

// supplierRelations sets the edition code of the supplier relation in 990
// while the record is in production.
func (p preprocessor) supplierRelations(ctx context.Context, rec *marc.Record) error {
	if !rec.HasSubfield("990", "b") || !classification.InProduction(rec, p.now) {
		return nil
	}
	if rec.HasSubfield("990", "i") {
		return nil
	}
	status, ok := existingValue(rec, "008", "u")
	if !ok {
		head, err := p.headVolume(ctx, rec)
		if err != nil {
			return err
		}
		if head != nil {
			status = head.Value("008", "u")
		}
	}

	switch {
	case slices.Contains([]string{"f", "c", "d", "o"}, status):
		rec.AddOrReplaceSubfield("990", "u", "nt")
	case status == "u":
		if rec.HasValue("990", "&", "1") {
			rec.RemoveSubfield("990", "&")
		} else {
			rec.AddOrReplaceSubfield("990", "u", "nu")
		}
	case status == "r":
		if rec.HasValue("990", "&", "1") {
			rec.RemoveSubfield("990", "&")
			return nil
		}
		for i := range rec.Fields {
			f := &rec.Fields[i]
			if f.Name != "990" || f.HasSubfield("r") {
				continue
			}
			copied := f.Clone()
			copied.Name = "d90"
			var kept []marc.Subfield
			for _, sf := range f.Subfields {
				if sf.Name == "b" && sf.Value != "l" {
					kept = append(kept, sf)
				}
			}
			f.Subfields = append(kept, marc.Subfield{Name: "u", Value: "op"})
			rec.AddField(copied)
			break
		}
	}
	return nil
}
