package update

import (
	"maps"
	"slices"

	"github.com/roach88/recordupdate/internal/marc"
)

func sortedInts(v []int) []int {
	out := slices.Clone(v)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedSet(set map[int]bool) []int {
	return slices.Sorted(maps.Keys(set))
}

func idSet(ids []marc.RecordID) map[marc.RecordID]bool {
	out := make(map[marc.RecordID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
