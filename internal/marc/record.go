package marc

import (
	"fmt"
	"strings"
)

// Subfield is a single named value inside a field.
type Subfield struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Field is a named, ordered group of subfields.
type Field struct {
	Name      string     `json:"name"`
	Indicator string     `json:"indicator"`
	Subfields []Subfield `json:"subfields"`
}

// Record is an ordered list of fields.
type Record struct {
	Fields []Field `json:"fields"`
}

// NewField creates a field with the default "00" indicator.
//
// Subfields are given as name/value pairs:
//
//	NewField("001", "a", "12345678", "b", "870970")
func NewField(name string, pairs ...string) Field {
	f := Field{Name: name, Indicator: "00"}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Subfields = append(f.Subfields, Subfield{Name: pairs[i], Value: pairs[i+1]})
	}
	return f
}

// NewRecord creates a record from fields.
func NewRecord(fields ...Field) *Record {
	return &Record{Fields: fields}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := Field{Name: f.Name, Indicator: f.Indicator}
	if f.Subfields != nil {
		out.Subfields = make([]Subfield, len(f.Subfields))
		copy(out.Subfields, f.Subfields)
	}
	return out
}

// IsEmpty reports whether the record has no fields.
func (r *Record) IsEmpty() bool {
	return r == nil || len(r.Fields) == 0
}

// Value returns the first value of the named subfield, or "".
func (f Field) Value(name string) string {
	for _, sf := range f.Subfields {
		if sf.Name == name {
			return sf.Value
		}
	}
	return ""
}

// HasSubfield reports whether the field has a subfield with the given name.
func (f Field) HasSubfield(name string) bool {
	for _, sf := range f.Subfields {
		if sf.Name == name {
			return true
		}
	}
	return false
}

// Equal reports whether two fields have identical name, indicator and subfields.
func (f Field) Equal(other Field) bool {
	if f.Name != other.Name || f.Indicator != other.Indicator || len(f.Subfields) != len(other.Subfields) {
		return false
	}
	for i := range f.Subfields {
		if f.Subfields[i] != other.Subfields[i] {
			return false
		}
	}
	return true
}

// IsLetterField reports whether the field is a DBC internal field.
func (f Field) IsLetterField() bool {
	return f.Name != "" && f.Name[0] >= 'a' && f.Name[0] <= 'z'
}

// String renders the field in line format: "001 00 *a12345678 *b870970".
func (f Field) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte(' ')
	b.WriteString(f.Indicator)
	for _, sf := range f.Subfields {
		fmt.Fprintf(&b, " *%s%s", sf.Name, sf.Value)
	}
	return b.String()
}

// String renders the record in line format, one field per line.
func (r *Record) String() string {
	if r == nil {
		return ""
	}
	lines := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}
