package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/store"
	"github.com/roach88/recordupdate/internal/update"
)

// Fixture is the repository state a scenario starts from. It is also the
// input of the load command.
type Fixture struct {
	Records   []FixtureRecord `yaml:"records,omitempty"`
	Relations []Relation      `yaml:"relations,omitempty"`
	Holdings  []Holding       `yaml:"holdings,omitempty"`
	Users     []User          `yaml:"users,omitempty"`
}

// FixtureRecord is one stored record in the line format. An empty mime
// type is chosen from the agency of the record.
type FixtureRecord struct {
	Lines    string `yaml:"lines"`
	MimeType string `yaml:"mime_type,omitempty"`
	Deleted  bool   `yaml:"deleted,omitempty"`
}

// Relation links one record to another. Enrichments point at their common
// record, volumes at their head record.
type Relation struct {
	From marc.RecordID `yaml:"from"`
	To   marc.RecordID `yaml:"to"`
}

// Holding lists the agencies holding a bibliographic id.
type Holding struct {
	ID       string `yaml:"id"`
	Agencies []int  `yaml:"agencies"`
}

// User is a user allowed to send requests for a group.
type User struct {
	User     string `yaml:"user"`
	Group    string `yaml:"group"`
	Password string `yaml:"password"`
}

// Seeder is the part of the store a fixture writes to.
type Seeder interface {
	Save(ctx context.Context, rec *store.Record) error
	Link(ctx context.Context, from, to marc.RecordID) error
	AddHoldings(ctx context.Context, bibliographicRecordID string, agency int) error
	PutUser(ctx context.Context, user, group, passwordHash string) error
}

// Counts summarizes what Apply wrote.
type Counts struct {
	Records   int `json:"records"`
	Relations int `json:"relations"`
	Holdings  int `json:"holdings"`
	Users     int `json:"users"`
}

// Apply writes the fixture. Records are stored as modified at at.
func (f *Fixture) Apply(ctx context.Context, s Seeder, at time.Time) (Counts, error) {
	var n Counts
	for i, r := range f.Records {
		rec, err := marc.ParseLines(r.Lines)
		if err != nil {
			return n, fmt.Errorf("records[%d]: %w", i, err)
		}
		mimeType := r.MimeType
		if mimeType == "" {
			mimeType = update.MimeTypeFor(rec.AgencyIDInt())
		}
		if err := s.Save(ctx, &store.Record{
			ID: rec.ID(), Content: rec, MimeType: mimeType, Deleted: r.Deleted, Created: at, Modified: at,
		}); err != nil {
			return n, fmt.Errorf("records[%d]: %w", i, err)
		}
		n.Records++
	}
	for i, r := range f.Relations {
		if err := s.Link(ctx, r.From, r.To); err != nil {
			return n, fmt.Errorf("relations[%d]: %w", i, err)
		}
		n.Relations++
	}
	for i, h := range f.Holdings {
		for _, agency := range h.Agencies {
			if err := s.AddHoldings(ctx, h.ID, agency); err != nil {
				return n, fmt.Errorf("holdings[%d]: %w", i, err)
			}
			n.Holdings++
		}
	}
	for i, u := range f.Users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return n, fmt.Errorf("users[%d]: %w", i, err)
		}
		if err := s.PutUser(ctx, u.User, u.Group, hash); err != nil {
			return n, fmt.Errorf("users[%d]: %w", i, err)
		}
		n.Users++
	}
	return n, nil
}
