package classification

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/recordupdate/internal/marc"
)

// CatalogCodes are the 032 catalog codes that carry an extraction week.
var CatalogCodes = []string{"DBF", "DLF", "DBI", "DMF", "DMO", "DPF", "BKM", "GBF", "GMO", "GPF", "FPF", "DBR", "UTI"}

// TemporaryDate marks an extraction week that is not yet decided.
const TemporaryDate = "999999"

// extractionCode splits a 032 value like "DBF202412" into code and week.
func extractionCode(value string) (code, week string, ok bool) {
	if len(value) != 9 {
		return "", "", false
	}
	code, week = value[:3], value[3:]
	if !slices.Contains(CatalogCodes, strings.ToUpper(code)) {
		return "", "", false
	}
	for _, c := range week {
		if c < '0' || c > '9' {
			return "", "", false
		}
	}
	return code, week, true
}

// productionDate is the Friday of the week before the extraction week.
func productionDate(week string, loc *time.Location) time.Time {
	year, _ := strconv.Atoi(week[:4])
	wk, _ := strconv.Atoi(week[4:])
	// Monday of ISO week 1 is the Monday of the week holding January 4th.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (wk-2)*7+4)
}

// inFuture reports whether the extraction week has not passed at now.
func inFuture(week string, now time.Time) bool {
	if week == TemporaryDate {
		return true
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !productionDate(week, now.Location()).Before(today)
}

// InProduction reports whether the record is still being produced at now:
// it carries an extraction week in the future in 032 and none in the past.
func InProduction(r *marc.Record, now time.Time) bool {
	f := firstField(r, "032")
	if f == nil {
		return false
	}
	future := false
	for _, sf := range f.Subfields {
		_, week, ok := extractionCode(sf.Value)
		if !ok {
			continue
		}
		if !inFuture(week, now) {
			return false
		}
		future = true
	}
	return future
}

// Published reports whether the record has an extraction week that has
// passed at now.
func Published(r *marc.Record, now time.Time) bool {
	f := firstField(r, "032")
	if f == nil {
		return false
	}
	for _, sf := range f.Subfields {
		if _, week, ok := extractionCode(sf.Value); ok && !inFuture(week, now) {
			return true
		}
	}
	return false
}

// hasTemporaryDate reports whether value is a catalog code with the
// undecided week.
func hasTemporaryDate(value string) bool {
	_, week, ok := extractionCode(value)
	return ok && week == TemporaryDate
}

// productionCodes lists the "subfield:value" catalog codes of the first
// 032 field, sorted.
func productionCodes(r *marc.Record) []string {
	f := firstField(r, "032")
	if f == nil {
		return nil
	}
	var out []string
	for _, sf := range f.Subfields {
		if _, _, ok := extractionCode(sf.Value); ok {
			out = append(out, sf.Name+":"+sf.Value)
		}
	}
	slices.Sort(out)
	return out
}
