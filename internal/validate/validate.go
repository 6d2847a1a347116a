package validate

import (
	"fmt"
	"slices"

	"github.com/roach88/recordupdate/internal/marc"
)

// Violation codes (E200-E299)
const (
	// Field errors (E201-E209)
	ErrFieldMissing       = "E201" // mandatory field absent
	ErrFieldNotRepeatable = "E202" // field occurs more than once
	ErrFieldNotAllowed    = "E203" // field not listed in a closed template

	// Subfield errors (E211-E219)
	ErrSubfieldMissing       = "E211" // mandatory subfield absent
	ErrSubfieldNotRepeatable = "E212" // subfield occurs more than once
	ErrSubfieldValue         = "E213" // value not in the allowed list
	ErrSubfieldPattern       = "E214" // value does not match the pattern
)

// Violation is one template rule broken by a record. Ordinal is the
// 1-based position of the offending field in the record; it is 0 for a
// missing field.
type Violation struct {
	Field    string `json:"field"`
	Subfield string `json:"subfield,omitempty"`
	Ordinal  int    `json:"ordinal,omitempty"`
	Message  string `json:"message"`
	Code     string `json:"code"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	loc := v.Field
	if v.Subfield != "" {
		loc += "*" + v.Subfield
	}
	return fmt.Sprintf("[%s] %s: %s", v.Code, loc, v.Message)
}

// Validate checks rec against t and returns every violation found, in
// record order for present fields followed by missing ones.
func (t *Template) Validate(rec *marc.Record) []Violation {
	var out []Violation
	seen := map[string]int{}

	for i, f := range rec.Fields {
		ordinal := i + 1
		rule, ok := t.Fields[f.Name]
		if !ok {
			if t.Closed && !f.IsLetterField() {
				out = append(out, Violation{
					Field:   f.Name,
					Ordinal: ordinal,
					Message: fmt.Sprintf("field %s is not allowed by template %s", f.Name, t.Name),
					Code:    ErrFieldNotAllowed,
				})
			}
			continue
		}
		seen[f.Name]++
		if seen[f.Name] == 2 && !rule.Repeatable {
			out = append(out, Violation{
				Field:   f.Name,
				Ordinal: ordinal,
				Message: fmt.Sprintf("field %s may occur only once", f.Name),
				Code:    ErrFieldNotRepeatable,
			})
		}
		out = append(out, checkSubfields(f, rule, ordinal)...)
	}

	for _, name := range sortedKeys(t.Fields) {
		if t.Fields[name].Mandatory && seen[name] == 0 {
			out = append(out, Violation{
				Field:   name,
				Message: fmt.Sprintf("field %s is mandatory", name),
				Code:    ErrFieldMissing,
			})
		}
	}
	return out
}

func checkSubfields(f marc.Field, rule FieldRule, ordinal int) []Violation {
	var out []Violation
	count := map[string]int{}
	for _, sf := range f.Subfields {
		count[sf.Name]++
		sr, ok := rule.Subfields[sf.Name]
		if !ok {
			continue
		}
		if count[sf.Name] == 2 && !sr.Repeatable {
			out = append(out, Violation{
				Field: f.Name, Subfield: sf.Name, Ordinal: ordinal,
				Message: fmt.Sprintf("subfield %s*%s may occur only once", f.Name, sf.Name),
				Code:    ErrSubfieldNotRepeatable,
			})
		}
		if len(sr.Values) > 0 && !slices.Contains(sr.Values, sf.Value) {
			out = append(out, Violation{
				Field: f.Name, Subfield: sf.Name, Ordinal: ordinal,
				Message: fmt.Sprintf("value %q of %s*%s is not one of %v", sf.Value, f.Name, sf.Name, sr.Values),
				Code:    ErrSubfieldValue,
			})
		}
		if sr.Pattern != nil && !sr.Pattern.MatchString(sf.Value) {
			out = append(out, Violation{
				Field: f.Name, Subfield: sf.Name, Ordinal: ordinal,
				Message: fmt.Sprintf("value %q of %s*%s does not match %s", sf.Value, f.Name, sf.Name, sr.Pattern),
				Code:    ErrSubfieldPattern,
			})
		}
	}
	for _, name := range sortedKeys(rule.Subfields) {
		if rule.Subfields[name].Mandatory && count[name] == 0 {
			out = append(out, Violation{
				Field: f.Name, Subfield: name, Ordinal: ordinal,
				Message: fmt.Sprintf("subfield %s*%s is mandatory", f.Name, name),
				Code:    ErrSubfieldMissing,
			})
		}
	}
	return out
}
