// Package validate checks records against per-library templates written in
// CUE.
package validate

import (
	"fmt"
	"regexp"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// SubfieldRule constrains one subfield of a field.
type SubfieldRule struct {
	Mandatory  bool
	Repeatable bool
	Values     []string
	Pattern    *regexp.Regexp
}

// FieldRule constrains one field.
type FieldRule struct {
	Mandatory  bool
	Repeatable bool
	Subfields  map[string]SubfieldRule
}

// Template is a compiled validation template.
type Template struct {
	Name        string
	Description string
	Groups      []string
	Closed      bool
	Fields      map[string]FieldRule
}

// AllowsGroup reports whether a library group may use the template.
func (t *Template) AllowsGroup(group string) bool {
	if len(t.Groups) == 0 {
		return true
	}
	for _, g := range t.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// CompileTemplate parses a CUE value into a Template.
//
// The value should be the template struct itself, e.g.:
//
//	v := ctx.CompileString(src)
//	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("template.dbcsingle")))
func CompileTemplate(v cue.Value) (*Template, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	t := &Template{Fields: map[string]FieldRule{}}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		t.Name = labels[len(labels)-1].String()
	}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if !descVal.Exists() {
		return nil, &CompileError{Field: "description", Message: "description is required", Pos: v.Pos()}
	}
	desc, err := descVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t.Description = desc

	if groupsVal := v.LookupPath(cue.ParsePath("groups")); groupsVal.Exists() {
		if d, ok := groupsVal.Default(); ok {
			groupsVal = d
		}
		if err := groupsVal.Decode(&t.Groups); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if t.Closed, err = boolField(v, "closed"); err != nil {
		return nil, err
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "at least one field is required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		rule, err := parseField(iter.Value())
		if err != nil {
			return nil, err
		}
		t.Fields[iter.Selector().Unquoted()] = rule
	}
	if len(t.Fields) == 0 {
		return nil, &CompileError{Field: "fields", Message: "at least one field is required", Pos: fieldsVal.Pos()}
	}
	return t, nil
}

func parseField(v cue.Value) (FieldRule, error) {
	var (
		rule = FieldRule{Subfields: map[string]SubfieldRule{}}
		err  error
	)
	if rule.Mandatory, err = boolField(v, "mandatory"); err != nil {
		return rule, err
	}
	if rule.Repeatable, err = boolFieldDefault(v, "repeatable", true); err != nil {
		return rule, err
	}

	subsVal := v.LookupPath(cue.ParsePath("subfields"))
	if !subsVal.Exists() {
		return rule, nil
	}
	iter, err := subsVal.Fields()
	if err != nil {
		return rule, formatCUEError(err)
	}
	for iter.Next() {
		sub, err := parseSubfield(iter.Value())
		if err != nil {
			return rule, err
		}
		rule.Subfields[iter.Selector().Unquoted()] = sub
	}
	return rule, nil
}

func parseSubfield(v cue.Value) (SubfieldRule, error) {
	var (
		rule SubfieldRule
		err  error
	)
	if rule.Mandatory, err = boolField(v, "mandatory"); err != nil {
		return rule, err
	}
	if rule.Repeatable, err = boolFieldDefault(v, "repeatable", true); err != nil {
		return rule, err
	}
	if valuesVal := v.LookupPath(cue.ParsePath("values")); valuesVal.Exists() && valuesVal.IsConcrete() {
		if err := valuesVal.Decode(&rule.Values); err != nil {
			return rule, formatCUEError(err)
		}
	}
	if patternVal := v.LookupPath(cue.ParsePath("pattern")); patternVal.Exists() && patternVal.IsConcrete() {
		p, err := patternVal.String()
		if err != nil {
			return rule, formatCUEError(err)
		}
		if rule.Pattern, err = regexp.Compile(p); err != nil {
			return rule, &CompileError{Field: "pattern", Message: err.Error(), Pos: patternVal.Pos()}
		}
	}
	return rule, nil
}

func boolField(v cue.Value, name string) (bool, error) {
	return boolFieldDefault(v, name, false)
}

func boolFieldDefault(v cue.Value, name string, def bool) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(name))
	if !bv.Exists() {
		return def, nil
	}
	if d, ok := bv.Default(); ok {
		bv = d
	}
	b, err := bv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompileError represents a template compilation error with source
// position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
