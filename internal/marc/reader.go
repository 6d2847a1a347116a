package marc

import "strconv"

// Field returns the first field with the given name.
func (r *Record) Field(name string) (Field, bool) {
	if r == nil {
		return Field{}, false
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldsNamed returns all fields with the given name in record order.
func (r *Record) FieldsNamed(name string) []Field {
	if r == nil {
		return nil
	}
	var out []Field
	for _, f := range r.Fields {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// HasField reports whether the record contains a field with the given name.
func (r *Record) HasField(name string) bool {
	_, ok := r.Field(name)
	return ok
}

// HasSubfield reports whether any field with the given name has the subfield.
func (r *Record) HasSubfield(field, sub string) bool {
	for _, f := range r.FieldsNamed(field) {
		if f.HasSubfield(sub) {
			return true
		}
	}
	return false
}

// Value returns the first value of field/sub across all occurrences of the
// field, or "" when absent.
func (r *Record) Value(field, sub string) string {
	for _, f := range r.FieldsNamed(field) {
		for _, sf := range f.Subfields {
			if sf.Name == sub {
				return sf.Value
			}
		}
	}
	return ""
}

// Values returns every value of field/sub in record order.
func (r *Record) Values(field, sub string) []string {
	var out []string
	for _, f := range r.FieldsNamed(field) {
		for _, sf := range f.Subfields {
			if sf.Name == sub {
				out = append(out, sf.Value)
			}
		}
	}
	return out
}

// HasValue reports whether field/sub has exactly the given value.
func (r *Record) HasValue(field, sub, value string) bool {
	for _, v := range r.Values(field, sub) {
		if v == value {
			return true
		}
	}
	return false
}

// RecordID returns 001a.
func (r *Record) RecordID() string {
	return r.Value("001", "a")
}

// AgencyID returns 001b.
func (r *Record) AgencyID() string {
	return r.Value("001", "b")
}

// AgencyIDInt returns 001b as an integer, or 0 when absent or malformed.
func (r *Record) AgencyIDInt() int {
	n, err := strconv.Atoi(r.AgencyID())
	if err != nil {
		return 0
	}
	return n
}

// ID returns the repository identity of the record.
func (r *Record) ID() RecordID {
	return RecordID{BibliographicRecordID: r.RecordID(), AgencyID: r.AgencyIDInt()}
}

// ParentID returns the parent record id (014a), or "".
func (r *Record) ParentID() string {
	return r.Value("014", "a")
}

// ParentAgencyID returns the agency of the parent record. Volumes always
// live in the same agency as their head record.
func (r *Record) ParentAgencyID() int {
	return r.AgencyIDInt()
}

// HasParent reports whether the record declares a parent.
func (r *Record) HasParent() bool {
	return r.ParentID() != ""
}

// MarkedForDeletion reports whether 004r is "d".
func (r *Record) MarkedForDeletion() bool {
	return r.HasValue("004", "r", "d")
}

// RecordType returns 004a: "e" single, "h" head, "s" section, "b" volume.
func (r *Record) RecordType() string {
	return r.Value("004", "a")
}

// PreviousIDs returns the declared previous identifiers (002a).
func (r *Record) PreviousIDs() []string {
	return r.Values("002", "a")
}

// Owner returns 996a.
func (r *Record) Owner() string {
	return r.Value("996", "a")
}
