package search

import (
	"context"
	"fmt"

	"github.com/roach88/recordupdate/internal/marc"
)

// Matcher looks up records by one indexed subfield. *store.Store
// implements it.
type Matcher interface {
	Match(ctx context.Context, key, value string, agency int, excludeID string) ([]marc.RecordID, error)
}

// StoreIndex answers queries from the repository's subfield index.
type StoreIndex struct {
	m Matcher
}

// NewStoreIndex creates a StoreIndex over m.
func NewStoreIndex(m Matcher) *StoreIndex {
	return &StoreIndex{m: m}
}

// HasDocuments implements Index.
func (s *StoreIndex) HasDocuments(ctx context.Context, q Query) (bool, error) {
	ids, err := s.find(ctx, q)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// OwnerOf implements Index.
func (s *StoreIndex) OwnerOf(ctx context.Context, q Query) (string, error) {
	ids, err := s.find(ctx, q)
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0].BibliographicRecordID, nil
}

func (s *StoreIndex) find(ctx context.Context, q Query) ([]marc.RecordID, error) {
	if len(q.Terms) == 0 {
		return nil, fmt.Errorf("search %s: query has no terms", q)
	}
	agency := q.agency()

	var found []marc.RecordID
	for i, t := range q.Terms {
		ids, err := s.m.Match(ctx, t.Key, t.Value, agency, "")
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", q, err)
		}
		if i == 0 {
			found = ids
			continue
		}
		found = intersect(found, ids)
	}

	if q.Exclude != nil && len(found) > 0 {
		excluded, err := s.m.Match(ctx, q.Exclude.Key, q.Exclude.Value, agency, "")
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", q, err)
		}
		found = subtract(found, excluded)
	}
	return found, nil
}

func intersect(a, b []marc.RecordID) []marc.RecordID {
	in := make(map[marc.RecordID]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	var out []marc.RecordID
	for _, id := range a {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

func subtract(a, b []marc.RecordID) []marc.RecordID {
	drop := make(map[marc.RecordID]bool, len(b))
	for _, id := range b {
		drop[id] = true
	}
	var out []marc.RecordID
	for _, id := range a {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
