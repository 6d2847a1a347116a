package doublerecord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/search"
)

// matchKeys are the subfields compared by LocalChecker, in order.
var matchKeys = []string{"021a", "245a"}

// LocalChecker finds duplicates in the search index: another common record
// with the same ISBN (021a) or the same title (245a).
type LocalChecker struct {
	index  search.Index
	logger *slog.Logger
}

// NewLocalChecker creates a LocalChecker over index.
func NewLocalChecker(index search.Index, logger *slog.Logger) *LocalChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalChecker{index: index, logger: logger}
}

// Frontend implements Checker.
func (c *LocalChecker) Frontend(ctx context.Context, rec *marc.Record) (Verdict, error) {
	seen := map[string]bool{}
	var candidates []result.Candidate
	for _, key := range matchKeys {
		for _, v := range rec.Values(key[:3], key[3:]) {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			q := search.Subfield(key, v).Excluding("001a", rec.RecordID())
			owner, err := c.index.OwnerOf(ctx, q)
			if err != nil {
				return Verdict{}, fmt.Errorf("double record check %s: %w", rec.ID(), err)
			}
			if owner == "" {
				continue
			}
			pid := marc.NewRecordID(owner, search.CommonAgency).String()
			if seen[pid] {
				continue
			}
			seen[pid] = true
			candidates = append(candidates, result.Candidate{
				PID:     pid,
				Message: fmt.Sprintf("Double record for record %s, reason: %s", pid, key),
			})
		}
	}
	if len(candidates) == 0 {
		return Verdict{Status: StatusOK}, nil
	}
	return Verdict{Status: StatusDoubleRecord, Candidates: candidates}, nil
}

// Notify implements Checker. The local checker has no review queue; it
// logs the record.
func (c *LocalChecker) Notify(ctx context.Context, rec *marc.Record) error {
	c.logger.InfoContext(ctx, "double record review requested", "record", rec.ID().String())
	return nil
}
