package validate

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/marc"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Default()
	require.NoError(t, err)
	return r
}

func TestDefault_Names(t *testing.T) {
	r := defaultRegistry(t)
	assert.Equal(t, []string{"allowall", "dbcsingle", "dbcvolume", "fbsenrichment", "fbslokal"}, r.Names())
}

func TestRegistry_Has(t *testing.T) {
	r := defaultRegistry(t)
	assert.True(t, r.Has("allowall", "fbs"))
	assert.True(t, r.Has("dbcsingle", "dbc"))
	assert.False(t, r.Has("dbcsingle", "fbs"))
	assert.True(t, r.Has("fbslokal", "sbci"))
	assert.False(t, r.Has("nosuch", "dbc"))
}

func TestCompileTemplate(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
template: small: {
	description: "small"
	groups: ["fbs"]
	fields: {
		"001": {mandatory: true, repeatable: false, subfields: a: {mandatory: true, pattern: "^[0-9]+$"}}
		"004": {subfields: a: values: ["e", "b"]}
	}
}`)
	require.NoError(t, v.Err())

	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("template.small")))
	require.NoError(t, err)
	assert.Equal(t, "small", tmpl.Name)
	assert.Equal(t, []string{"fbs"}, tmpl.Groups)
	require.Contains(t, tmpl.Fields, "001")
	assert.True(t, tmpl.Fields["001"].Mandatory)
	assert.False(t, tmpl.Fields["001"].Repeatable)
	assert.True(t, tmpl.Fields["004"].Repeatable)
	assert.Equal(t, []string{"e", "b"}, tmpl.Fields["004"].Subfields["a"].Values)
	assert.NotNil(t, tmpl.Fields["001"].Subfields["a"].Pattern)
}

func TestCompileTemplate_Errors(t *testing.T) {
	ctx := cuecontext.New()

	v := ctx.CompileString(`t: {fields: "001": {}}`)
	_, err := CompileTemplate(v.LookupPath(cue.ParsePath("t")))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "description", ce.Field)

	v = ctx.CompileString(`t: {description: "x", fields: "001": {subfields: a: {pattern: "("}}}`)
	_, err = CompileTemplate(v.LookupPath(cue.ParsePath("t")))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "pattern", ce.Field)
}

func TestValidate_DBCSingle(t *testing.T) {
	tmpl, ok := defaultRegistry(t).Get("dbcsingle")
	require.True(t, ok)

	valid := marc.MustParseLines(`
001 00 *a50938409 *b870970 *c20240301120000 *d20240301 *fa
004 00 *rn *ae
245 00 *aKaffe
996 00 *aDBC`)
	assert.Empty(t, tmpl.Validate(valid))

	invalid := marc.MustParseLines(`
001 00 *a50938409 *b870970
004 00 *rx *ae
245 00 *aKaffe
245 00 *aTe
300 00 *a1 bind
y08 00 *anote`)
	got := tmpl.Validate(invalid)
	codes := make([]string, len(got))
	for i, v := range got {
		codes[i] = v.Code
	}
	assert.Equal(t, []string{ErrSubfieldValue, ErrFieldNotRepeatable, ErrFieldNotAllowed}, codes)
	assert.Equal(t, "004", got[0].Field)
	assert.Equal(t, "r", got[0].Subfield)
	assert.Equal(t, 2, got[0].Ordinal)
	assert.Equal(t, 4, got[1].Ordinal)
	assert.Equal(t, "300", got[2].Field)
}

func TestValidate_MissingFields(t *testing.T) {
	tmpl, _ := defaultRegistry(t).Get("dbcvolume")

	got := tmpl.Validate(marc.MustParseLines("001 00 *a1 *b870970\n004 00 *ab"))
	require.Len(t, got, 2)
	assert.Equal(t, Violation{Field: "014", Message: "field 014 is mandatory", Code: ErrFieldMissing}, got[0])
	assert.Equal(t, "245", got[1].Field)
}

func TestValidate_MissingSubfield(t *testing.T) {
	tmpl, _ := defaultRegistry(t).Get("allowall")

	got := tmpl.Validate(marc.MustParseLines("001 00 *a1"))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Subfield)
	assert.Equal(t, ErrSubfieldMissing, got[0].Code)
	assert.Equal(t, 1, got[0].Ordinal)
	assert.Equal(t, "[E211] 001*b: subfield 001*b is mandatory", got[0].Error())
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	src := `package local

template: mine: {
	description: "mine"
	fields: "245": {mandatory: true}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.cue"), []byte(src), 0o644))

	r, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, r.Names())

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadDir_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	src := `package local

template: bad: {
	description: "bad"
	fields: "245": {mandatory: "yes"}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(src), 0o644))

	_, err := LoadDir(dir)
	assert.Error(t, err)
}
