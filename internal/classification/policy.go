package classification

import (
	"slices"
	"strings"
	"time"

	"github.com/roach88/recordupdate/internal/marc"
)

// Message keys explaining a negative Decision.
const (
	ReasonNoClassification = "do.not.create.enrichments.reason"
	ReasonInProduction     = "do.not.create.enrichments.inproduction.reason"
)

// Decision is the answer of ShouldCreateEnrichment. When Create is false,
// Reason is a message key and Args its arguments.
type Decision struct {
	Create bool
	Reason string
	Args   []any
}

func no(reason string, args ...any) Decision {
	return Decision{Reason: reason, Args: args}
}

// ShouldCreateEnrichment decides whether libraries get an enrichment
// record when the common record changes from current to updating.
//
// No enrichment is made when current is marked as unclassified in 652m,
// when updating has a catalog code with an undecided week in 032a or 032x,
// or when updating is in production. A record in production with 008u=r
// still gets enrichments if its 032 catalog codes change.
func ShouldCreateEnrichment(current, updating *marc.Record, now time.Time) Decision {
	if m := current.Value("652", "m"); strings.EqualFold(m, "ny titel") || strings.EqualFold(m, "uden klassemærke") {
		return no(ReasonNoClassification, "652m", m)
	}
	for _, sub := range []string{"x", "a"} {
		if v := updating.Value("032", sub); hasTemporaryDate(v) {
			return no(ReasonNoClassification, "032"+sub, v)
		}
	}
	if InProduction(updating, now) {
		if !updating.HasValue("008", "u", "r") {
			return no(ReasonInProduction)
		}
		if slices.Equal(productionCodes(current), productionCodes(updating)) {
			return no(ReasonInProduction)
		}
	}
	return Decision{Create: true}
}
