package marc

import (
	"sort"
	"time"
)

// ModifiedLayout is the layout of 001c.
const ModifiedLayout = "20060102150405"

// CreatedLayout is the layout of 001d.
const CreatedLayout = "20060102"

// AddOrReplaceSubfield sets field/sub to value. The first occurrence of the
// subfield is replaced; when absent the subfield is appended to the first
// occurrence of the field; when the field is absent it is added.
func (r *Record) AddOrReplaceSubfield(field, sub, value string) {
	for i := range r.Fields {
		if r.Fields[i].Name != field {
			continue
		}
		for j := range r.Fields[i].Subfields {
			if r.Fields[i].Subfields[j].Name == sub {
				r.Fields[i].Subfields[j].Value = value
				return
			}
		}
		r.Fields[i].Subfields = append(r.Fields[i].Subfields, Subfield{Name: sub, Value: value})
		return
	}
	r.Fields = append(r.Fields, NewField(field, sub, value))
}

// AddField appends a field.
func (r *Record) AddField(f Field) {
	r.Fields = append(r.Fields, f)
}

// RemoveField removes every occurrence of the named field.
func (r *Record) RemoveField(name string) {
	kept := r.Fields[:0]
	for _, f := range r.Fields {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	r.Fields = kept
}

// RemoveFields removes every field whose name is in names.
func (r *Record) RemoveFields(names ...string) {
	for _, n := range names {
		r.RemoveField(n)
	}
}

// RemoveSubfield removes every occurrence of field/sub. Fields left without
// subfields are dropped.
func (r *Record) RemoveSubfield(field, sub string) {
	kept := r.Fields[:0]
	for _, f := range r.Fields {
		if f.Name == field {
			subs := f.Subfields[:0]
			for _, sf := range f.Subfields {
				if sf.Name != sub {
					subs = append(subs, sf)
				}
			}
			f.Subfields = subs
			if len(f.Subfields) == 0 {
				continue
			}
		}
		kept = append(kept, f)
	}
	r.Fields = kept
}

// RemoveSubfieldValue removes subfields of field/sub whose value matches.
func (r *Record) RemoveSubfieldValue(field, sub, value string) {
	for i := range r.Fields {
		if r.Fields[i].Name != field {
			continue
		}
		subs := r.Fields[i].Subfields[:0]
		for _, sf := range r.Fields[i].Subfields {
			if !(sf.Name == sub && sf.Value == value) {
				subs = append(subs, sf)
			}
		}
		r.Fields[i].Subfields = subs
	}
	r.RemoveEmptyFields()
}

// RemoveEmptyFields drops fields without subfields.
func (r *Record) RemoveEmptyFields() {
	kept := r.Fields[:0]
	for _, f := range r.Fields {
		if len(f.Subfields) > 0 {
			kept = append(kept, f)
		}
	}
	r.Fields = kept
}

// MarkForDeletion sets 004r to "d".
func (r *Record) MarkForDeletion() {
	r.AddOrReplaceSubfield("004", "r", "d")
}

// CopyFieldsFrom appends the named fields of src, preserving src order.
func (r *Record) CopyFieldsFrom(src *Record, names ...string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, f := range src.Fields {
		if want[f.Name] {
			r.Fields = append(r.Fields, f.Clone())
		}
	}
}

// Sort orders fields by name. Fields with equal names keep their relative
// order.
func (r *Record) Sort() {
	sort.SliceStable(r.Fields, func(i, j int) bool {
		return r.Fields[i].Name < r.Fields[j].Name
	})
}

// SetModified sets 001c.
func (r *Record) SetModified(t time.Time) {
	r.AddOrReplaceSubfield("001", "c", t.Format(ModifiedLayout))
}

// SetCreated sets 001d when it is absent.
func (r *Record) SetCreated(t time.Time) {
	if r.Value("001", "d") == "" {
		r.AddOrReplaceSubfield("001", "d", t.Format(CreatedLayout))
	}
}
