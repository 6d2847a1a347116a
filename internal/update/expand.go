package update

import (
	"context"
	"slices"

	"github.com/roach88/recordupdate/internal/marc"
)

// authorityHeadings are the fields of an authority record holding the
// heading copied into referring fields.
var authorityHeadings = []string{"100", "110", "133", "134"}

// expandAuthorities returns a copy of rec in which every field referring to
// an authority record in subfields 5 and 6 carries the heading subfields of
// that record followed by its own remaining subfields.
func expandAuthorities(ctx context.Context, env *Env, rec *marc.Record) (*marc.Record, error) {
	out := rec.Clone()
	cache := map[marc.RecordID]*marc.Record{}
	for i, f := range out.Fields {
		refs := authorityReferences(marc.NewRecord(f))
		if len(refs) == 0 {
			continue
		}
		ref := refs[0]
		authority, ok := cache[ref]
		if !ok {
			var err error
			authority, err = env.fetchContent(ctx, ref)
			if err != nil {
				return nil, err
			}
			cache[ref] = authority
		}
		heading, found := firstOf(authority, authorityHeadings)
		if !found {
			continue
		}
		expanded := marc.Field{Name: f.Name, Indicator: f.Indicator}
		expanded.Subfields = append(expanded.Subfields, heading.Clone().Subfields...)
		for _, sf := range f.Subfields {
			if sf.Name != "5" && sf.Name != "6" {
				expanded.Subfields = append(expanded.Subfields, sf)
			}
		}
		out.Fields[i] = expanded
	}
	return out, nil
}

func firstOf(rec *marc.Record, names []string) (marc.Field, bool) {
	for _, f := range rec.Fields {
		if slices.Contains(names, f.Name) {
			return f, true
		}
	}
	return marc.Field{}, false
}
