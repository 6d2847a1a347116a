// Package search answers reference-integrity questions about common
// records: is a previous identifier in use, and which record owns it.
//
// Two Index implementations exist: StoreIndex reads the repository's own
// subfield index, Client asks a Solr-style search service over HTTP.
package search

import (
	"context"
	"fmt"
	"strings"
)

// CommonAgency is the agency searched unless a query says otherwise.
const CommonAgency = 870970

// Term is one field+subfield key ("002a") and the value it must hold.
type Term struct {
	Key   string
	Value string
}

// Query selects records of one agency holding every term and not holding
// the exclusion.
type Query struct {
	Terms   []Term
	Exclude *Term
	Agency  int
}

// Subfield returns a query for common records holding value in key.
func Subfield(key, value string) Query {
	return Query{Terms: []Term{{Key: key, Value: value}}, Agency: CommonAgency}
}

// And adds another required term.
func (q Query) And(key, value string) Query {
	q.Terms = append(append([]Term(nil), q.Terms...), Term{Key: key, Value: value})
	return q
}

// Excluding drops records holding value in key.
func (q Query) Excluding(key, value string) Query {
	q.Exclude = &Term{Key: key, Value: value}
	return q
}

// String renders the query in the search service syntax:
//
//	marc.002a:"20611529" AND -marc.001a:"20611529" AND marc.001b:870970
func (q Query) String() string {
	parts := make([]string, 0, len(q.Terms)+2)
	for _, t := range q.Terms {
		parts = append(parts, fmt.Sprintf("marc.%s:%q", t.Key, t.Value))
	}
	if q.Exclude != nil {
		parts = append(parts, fmt.Sprintf("-marc.%s:%q", q.Exclude.Key, q.Exclude.Value))
	}
	parts = append(parts, fmt.Sprintf("marc.001b:%d", q.agency()))
	return strings.Join(parts, " AND ")
}

func (q Query) agency() int {
	if q.Agency == 0 {
		return CommonAgency
	}
	return q.Agency
}

// Index is the search collaborator of the update engine.
type Index interface {
	// HasDocuments reports whether any record matches q.
	HasDocuments(ctx context.Context, q Query) (bool, error)

	// OwnerOf returns the 001a of the first record matching q, or "" when
	// nothing matches.
	OwnerOf(ctx context.Context, q Query) (string, error)
}
