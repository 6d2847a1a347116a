// Package classification decides when the shelving and category data of a
// common record has changed, whether libraries should get enrichment
// records because of it, and how those enrichment records are built.
package classification

import (
	"github.com/roach88/recordupdate/internal/marc"
)

// Fields are the classification-bearing fields of a record.
var Fields = []string{"008", "009", "038", "039", "100", "110", "239", "245", "652"}

// Reason keys reported by Changed. They are message catalog keys.
const (
	Reason008tMSToP = "classificationchanged.reason.008t.ms.to.p"
	Reason008tPToMS = "classificationchanged.reason.008t.p.to.ms"
	Reason009ag     = "classificationchanged.reason.009ag.difference"
	Reason038a      = "classificationchanged.reason.038a.difference"
	Reason039       = "classificationchanged.reason.039.difference"
	Reason100       = "classificationchanged.reason.100ahkef.difference"
	Reason110       = "classificationchanged.reason.110saceikj.difference"
	Reason239t      = "classificationchanged.reason.239t.difference"
	Reason239       = "classificationchanged.reason.239ahkeft.difference"
	Reason245a      = "classificationchanged.reason.245a.difference"
	Reason245g      = "classificationchanged.reason.245g.difference"
	Reason245m      = "classificationchanged.reason.245m.difference"
	Reason245n      = "classificationchanged.reason.245n.difference"
	Reason245o      = "classificationchanged.reason.245o.difference"
	Reason245y      = "classificationchanged.reason.245y.difference"
	Reason245ae     = "classificationchanged.reason.245ae.difference"
	Reason245oe     = "classificationchanged.reason.245oe.difference"
	Reason652a      = "classificationchanged.reason.652a.difference"
	Reason652b      = "classificationchanged.reason.652b.difference"
	Reason652moE    = "classificationchanged.reason.652mo.e.difference"
	Reason652moF    = "classificationchanged.reason.652mo.f.difference"
	Reason652moH    = "classificationchanged.reason.652mo.h.difference"
	Reason652m      = "classificationchanged.reason.652m.difference"
	Reason652o      = "classificationchanged.reason.652o.difference"
)

// compareWholeValues disables truncation of compared values.
const compareWholeValues = 0

// HasData reports whether the record carries any classification field.
func HasData(r *marc.Record) bool {
	if r == nil {
		return false
	}
	for _, f := range r.Fields {
		for _, name := range Fields {
			if f.Name == name {
				return true
			}
		}
	}
	return false
}

type check func(prev, next *marc.Record) (string, bool)

var checks = []check{
	check008, check009, check038, check039, check100, check110,
	check239And245, check245, check652,
}

// Changed reports whether the classification of next differs from prev.
// The reason is the first difference found.
func Changed(prev, next *marc.Record) (bool, string) {
	if prev == nil {
		prev = marc.NewRecord()
	}
	if next == nil {
		next = marc.NewRecord()
	}
	for _, c := range checks {
		if reason, changed := c(prev, next); changed {
			return true, reason
		}
	}
	return false, ""
}

// HasChanged is Changed without the reason.
func HasChanged(prev, next *marc.Record) bool {
	changed, _ := Changed(prev, next)
	return changed
}

func check008(prev, next *marc.Record) (string, bool) {
	o := prev.Value("008", "t")
	n := next.Value("008", "t")
	switch {
	case (o == "m" || o == "s") && n == "p":
		return Reason008tMSToP, true
	case (n == "m" || n == "s") && o == "p":
		return Reason008tPToMS, true
	}
	return "", false
}

// agPairs collects the a/g pairs of the first 009 field. An a followed by a
// g forms one pair; an a without a following g and a lone g stand alone.
func agPairs(r *marc.Record) []string {
	f := firstField(r, "009")
	if f == nil {
		return nil
	}
	var (
		out  []string
		a    string
		gotA bool
	)
	for _, sf := range f.Subfields {
		switch sf.Name {
		case "a":
			if gotA {
				out = append(out, "a"+a)
			}
			gotA = true
			a = sf.Value
		case "g":
			if gotA {
				out = append(out, "a"+a+"g"+sf.Value)
				gotA = false
			} else {
				out = append(out, "g"+sf.Value)
			}
		}
	}
	if gotA {
		out = append(out, "a"+a)
	}
	return out
}

func check009(prev, next *marc.Record) (string, bool) {
	if !sameSet(agPairs(prev), agPairs(next)) {
		return Reason009ag, true
	}
	return "", false
}

func check038(prev, next *marc.Record) (string, bool) {
	if prev.Value("038", "a") != next.Value("038", "a") {
		return Reason038a, true
	}
	return "", false
}

func check039(prev, next *marc.Record) (string, bool) {
	o := firstField(prev, "039")
	n := firstField(next, "039")
	switch {
	case o == nil && n == nil:
		return "", false
	case o == nil || n == nil:
		return Reason039, true
	case !sameSet(o.Subfields, n.Subfields):
		return Reason039, true
	}
	return "", false
}

func check100(prev, next *marc.Record) (string, bool) {
	if !sameSubfields(firstField(prev, "100"), firstField(next, "100"), "ahkef", true, compareWholeValues) {
		return Reason100, true
	}
	return "", false
}

func check110(prev, next *marc.Record) (string, bool) {
	if !sameSubfields(firstField(prev, "110"), firstField(next, "110"), "saceikj", true, compareWholeValues) {
		return Reason110, true
	}
	return "", false
}

// check239And245 compares the uniform title (239) and the title (245a).
//
// When only one record has a 239, its 239t is compared to the 245a of the
// other record; a differing non-empty 239t is a change on its own. When both
// have a 239 the whole field is compared, and a 239t in next makes a 245a
// difference irrelevant. A 245a difference is also ignored for sections
// (004a=s) with an unchanged 245n and volumes (004a=b) with an unchanged
// 245g.
func check239And245(prev, next *marc.Record) (string, bool) {
	const n = compareWholeValues
	old239 := firstField(prev, "239")
	new239 := firstField(next, "239")
	check239 := false
	check245 := true

	crossCheck := func(with239, with245 *marc.Record) (string, bool, bool) {
		t := compareString(firstField(with239, "239"), "t", true, n)
		a := compareString(firstField(with245, "245"), "a", true, n)
		differs := a != t
		if differs && t != "" {
			return Reason239t, true, differs
		}
		return "", false, differs
	}

	switch {
	case old239 == nil && new239 != nil:
		reason, changed, differs := crossCheck(next, prev)
		if changed {
			return reason, true
		}
		check239, check245 = differs, differs
	case old239 != nil && new239 == nil:
		reason, changed, differs := crossCheck(prev, next)
		if changed {
			return reason, true
		}
		check239, check245 = differs, differs
	case old239 != nil && new239 != nil:
		check239 = true
		if _, ok := lookup(next, "239", "t"); ok {
			check245 = false
		}
	}

	if check239 && !sameSubfields(old239, new239, "ahkeftø", true, n) {
		return Reason239, true
	}

	old245 := firstField(prev, "245")
	new245 := firstField(next, "245")
	if !sameSubfields(old245, new245, "a", true, n) {
		switch next.RecordType() {
		case "s":
			if sameSubfields(old245, new245, "n", true, 0) {
				check245 = false
			}
		case "b":
			if sameSubfields(old245, new245, "g", true, 0) {
				check245 = false
			}
		}
		if check245 {
			return Reason245a, true
		}
	}
	return "", false
}

func check245(prev, next *marc.Record) (string, bool) {
	const n = compareWholeValues
	o := firstField(prev, "245")
	nw := firstField(next, "245")
	for _, c := range []struct {
		subfield string
		fold     bool
		reason   string
	}{
		{"g", true, Reason245g},
		{"m", false, Reason245m},
		{"n", true, Reason245n},
		{"o", true, Reason245o},
		{"y", true, Reason245y},
		{"æ", true, Reason245ae},
		{"ø", true, Reason245oe},
	} {
		if !sameSubfields(o, nw, c.subfield, c.fold, n) {
			return c.reason, true
		}
	}
	return "", false
}

// copiedFrom reports whether the value of prev's field/sub reappears as
// the same subfield of next's target field.
func copiedFrom(prev, next *marc.Record, field, target, sub string) bool {
	o, ok := lookup(prev, field, sub)
	if !ok {
		return false
	}
	n, nok := lookup(next, target, sub)
	return nok && o == n
}

func check652(prev, next *marc.Record) (string, bool) {
	const n = compareWholeValues
	if !sameAllValues(prev, next, "652", "a", true, n) {
		return Reason652a, true
	}
	if !sameAllValues(prev, next, "652", "b", true, n) {
		return Reason652b, true
	}

	mCopied := copiedFrom(prev, next, "654", "652", "m")
	oCopied := copiedFrom(prev, next, "654", "652", "o")
	_, hasM := lookup(prev, "652", "m")
	_, hasO := lookup(prev, "652", "o")
	if (hasM || hasO) && !(mCopied || oCopied) {
		if !sameFirstValue(prev, next, "652", "e", true, 0) {
			return Reason652moE, true
		}
		if !sameFirstValue(prev, next, "652", "f", true, 0) {
			return Reason652moF, true
		}
		if !sameFirstValue(prev, next, "652", "h", true, 0) {
			return Reason652moH, true
		}
	}
	if !mCopied && !sameFirstValue(prev, next, "652", "m", true, 0) {
		return Reason652m, true
	}
	if !oCopied && !sameFirstValue(prev, next, "652", "o", true, 0) {
		return Reason652o, true
	}
	return "", false
}
