package classification

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/recordupdate/internal/marc"
)

// clean lowercases s and keeps only a-z, 0-9, æ, ø and å. With fold set,
// s is first decomposed and stripped of combining marks, so "é" compares
// equal to "e" and "å" to "a".
func clean(s string, fold bool) string {
	if fold {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
		if out, _, err := transform.String(t, s); err == nil {
			s = out
		}
	}
	s = cases.Lower(language.Danish).String(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == 'æ', r == 'ø', r == 'å':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cut truncates s to n runes. n <= 0 keeps the whole string.
func cut(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// compareString concatenates the cleaned values of the subfields of f whose
// names appear in names.
func compareString(f *marc.Field, names string, fold bool, n int) string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	for _, sf := range f.Subfields {
		if sf.Name == "" || !strings.Contains(names, sf.Name) {
			continue
		}
		b.WriteString(cut(clean(sf.Value, fold), n))
	}
	return b.String()
}

// sameSubfields compares the named subfields of two fields. Two absent
// fields are equal; an absent field compares as empty content.
func sameSubfields(prev, next *marc.Field, names string, fold bool, n int) bool {
	if prev == nil && next == nil {
		return true
	}
	return compareString(prev, names, fold, n) == compareString(next, names, fold, n)
}

// firstField returns the first occurrence of name, or nil.
func firstField(r *marc.Record, name string) *marc.Field {
	if r == nil {
		return nil
	}
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i]
		}
	}
	return nil
}

// lookup returns the first value of field/sub and whether it exists.
func lookup(r *marc.Record, field, sub string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, f := range r.Fields {
		if f.Name != field {
			continue
		}
		for _, sf := range f.Subfields {
			if sf.Name == sub {
				return sf.Value, true
			}
		}
	}
	return "", false
}

// sameFirstValue compares the first field/sub value of two records. Both
// absent is equal, one absent is a difference.
func sameFirstValue(prev, next *marc.Record, field, sub string, fold bool, n int) bool {
	o, ok := lookup(prev, field, sub)
	nv, nk := lookup(next, field, sub)
	if !ok || !nk {
		return ok == nk
	}
	return cut(clean(o, fold), n) == cut(clean(nv, fold), n)
}

// sameAllValues compares every field/sub value of two records, ignoring
// order.
func sameAllValues(prev, next *marc.Record, field, sub string, fold bool, n int) bool {
	o := append([]string(nil), prev.Values(field, sub)...)
	nv := append([]string(nil), next.Values(field, sub)...)
	if len(o) != len(nv) {
		return false
	}
	sort.Strings(o)
	sort.Strings(nv)
	for i := range o {
		if cut(clean(o[i], fold), n) != cut(clean(nv[i], fold), n) {
			return false
		}
	}
	return true
}

// sameSet reports whether a and b hold the same distinct elements.
func sameSet[T comparable](a, b []T) bool {
	in := func(x T, s []T) bool {
		for _, y := range s {
			if x == y {
				return true
			}
		}
		return false
	}
	for _, x := range a {
		if !in(x, b) {
			return false
		}
	}
	for _, x := range b {
		if !in(x, a) {
			return false
		}
	}
	return true
}
