package validate

import (
	"embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed templates/*.cue
var embedded embed.FS

// Registry holds the compiled templates by name.
type Registry struct {
	templates map[string]*Template
}

// Default compiles the embedded templates.
func Default() (*Registry, error) {
	ctx := cuecontext.New()
	schema, err := compileEmbedded(ctx, "templates/schema.cue")
	if err != nil {
		return nil, err
	}
	defs, err := compileEmbedded(ctx, "templates/templates.cue")
	if err != nil {
		return nil, err
	}
	return fromValue(schema.Unify(defs))
}

// LoadDir compiles the templates of a CUE package directory. The embedded
// schema applies to them.
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates directory: not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	schema, err := compileEmbedded(ctx, "templates/schema.cue")
	if err != nil {
		return nil, err
	}
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("templates directory %s: no CUE instances loaded", dir)
	}
	if err := instances[0].Err; err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	v := ctx.BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return fromValue(schema.Unify(v))
}

func compileEmbedded(ctx *cue.Context, name string) (cue.Value, error) {
	src, err := embedded.ReadFile(name)
	if err != nil {
		return cue.Value{}, fmt.Errorf("read %s: %w", name, err)
	}
	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

func fromValue(v cue.Value) (*Registry, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}
	r := &Registry{templates: map[string]*Template{}}
	tmplVal := v.LookupPath(cue.ParsePath("template"))
	if !tmplVal.Exists() {
		return r, nil
	}
	iter, err := tmplVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, err := CompileTemplate(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", iter.Selector().Unquoted(), err)
		}
		r.templates[t.Name] = t
	}
	return r, nil
}

// Names returns the template names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for n := range r.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the named template.
func (r *Registry) Get(name string) (*Template, bool) {
	t, ok := r.templates[name]
	return t, ok
}

// Has reports whether the template exists and the library group may use
// it.
func (r *Registry) Has(name, group string) bool {
	t, ok := r.templates[name]
	return ok && t.AllowsGroup(group)
}
