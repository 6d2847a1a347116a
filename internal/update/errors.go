package update

import (
	"fmt"
	"strings"
)

// RequiredFieldsError reports the fields an action was built without.
// The engine turns it into a MISSING_FIELDS runtime error.
type RequiredFieldsError struct {
	Action  Kind
	Missing []string
}

// Error implements the error interface.
func (e *RequiredFieldsError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.Action, strings.Join(e.Missing, ", "))
}

// MissingFields lists the missing field names.
func (e *RequiredFieldsError) MissingFields() []string {
	return e.Missing
}

// requirements collects missing fields of one action.
type requirements struct {
	kind    Kind
	missing []string
}

func requireFields(kind Kind) *requirements {
	return &requirements{kind: kind}
}

// check records name as missing when present is false.
func (r *requirements) check(name string, present bool) *requirements {
	if !present {
		r.missing = append(r.missing, name)
	}
	return r
}

// err returns nil when nothing is missing.
func (r *requirements) err() error {
	if len(r.missing) == 0 {
		return nil
	}
	return &RequiredFieldsError{Action: r.kind, Missing: r.missing}
}
