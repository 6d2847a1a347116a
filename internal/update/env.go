package update

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/doublerecord"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/messages"
	"github.com/roach88/recordupdate/internal/search"
	"github.com/roach88/recordupdate/internal/store"
	"github.com/roach88/recordupdate/internal/validate"
)

// Repository is the record store as the actions use it. *store.Store
// implements it.
type Repository interface {
	Exists(ctx context.Context, id marc.RecordID) (bool, error)
	ExistsMaybeDeleted(ctx context.Context, id marc.RecordID) (bool, error)
	Fetch(ctx context.Context, id marc.RecordID) (*store.Record, error)
	FetchContent(ctx context.Context, id marc.RecordID) (*marc.Record, error)
	Save(ctx context.Context, rec *store.Record) error
	Children(ctx context.Context, id marc.RecordID) ([]marc.RecordID, error)
	Enrichments(ctx context.Context, id marc.RecordID) ([]marc.RecordID, error)
	AgenciesFor(ctx context.Context, bibliographicRecordID string, includeDeleted bool) ([]int, error)
	Link(ctx context.Context, from, to marc.RecordID) error
	LinkAppend(ctx context.Context, from, to marc.RecordID) error
	RemoveLinks(ctx context.Context, from marc.RecordID) error
	ChangedRecord(ctx context.Context, provider string, id marc.RecordID, priority int) error
	Enqueue(ctx context.Context, job store.QueueJob) error
}

// Holdings answers which agencies hold a record.
type Holdings interface {
	AgenciesWithHoldings(ctx context.Context, bibliographicRecordID string) ([]int, error)
}

// Rules answers library capability and group questions.
type Rules interface {
	HasCapability(ctx context.Context, agency string, rule librules.Rule) (bool, error)
	LibraryGroup(ctx context.Context, agency string) (librules.Group, error)
}

// Settings are the deployment settings the actions read.
type Settings struct {
	// Production instances reject agencies reserved for test.
	Production bool

	// Queue providers per library group. PHHoldings receives the holdings
	// notifications of PH libraries.
	ProviderDBC        string
	ProviderFBS        string
	ProviderPH         string
	ProviderPHHoldings string

	// Queue priorities. MaxPriority bounds client overrides.
	DefaultPriority int
	MaxPriority     int

	// Providers lists the providers a DBC client may request.
	Providers []string
}

// DefaultSettings are the settings of a development instance.
func DefaultSettings() Settings {
	return Settings{
		ProviderDBC:        "dataio-update-well3.5",
		ProviderFBS:        "opencataloging-update",
		ProviderPH:         "fbs-ph-update",
		ProviderPHHoldings: "dataio-ph-holding-update",
		DefaultPriority:    1000,
		MaxPriority:        1000,
		Providers:          []string{"dataio-update-well3.5", "opencataloging-update", "fbs-ph-update", "dataio-bulk"},
	}
}

// Env holds the collaborators of the actions. It is shared by all requests
// and never modified by them.
type Env struct {
	Repo          Repository
	Holdings      Holdings
	Rules         Rules
	Index         search.Index
	DoubleRecords doublerecord.Checker
	Keys          *doublerecord.Keys
	Auth          *auth.Authenticator
	Templates     *validate.Registry
	Messages      *messages.Catalog
	Enrichments   *classification.Builder
	Settings      Settings
}

// Validate reports collaborators that are missing.
func (e *Env) Validate() error {
	var errs []error
	for _, c := range []struct {
		name    string
		present bool
	}{
		{"Repo", e.Repo != nil},
		{"Holdings", e.Holdings != nil},
		{"Rules", e.Rules != nil},
		{"Index", e.Index != nil},
		{"DoubleRecords", e.DoubleRecords != nil},
		{"Keys", e.Keys != nil},
		{"Auth", e.Auth != nil},
		{"Templates", e.Templates != nil},
		{"Messages", e.Messages != nil},
		{"Enrichments", e.Enrichments != nil},
	} {
		if !c.present {
			errs = append(errs, fmt.Errorf("env: %s is required", c.name))
		}
	}
	return errors.Join(errs...)
}

// msg formats a catalog message.
func (e *Env) msg(key string, args ...any) string {
	return e.Messages.Format(key, args...)
}

// hasCapability asks the rules for an int agency.
func (e *Env) hasCapability(ctx context.Context, agency int, rule librules.Rule) (bool, error) {
	return e.Rules.HasCapability(ctx, librules.AgencyString(agency), rule)
}

// holdingAgencies returns the agencies holding the record as a set.
func (e *Env) holdingAgencies(ctx context.Context, bibliographicRecordID string) (map[int]bool, error) {
	agencies, err := e.Holdings.AgenciesWithHoldings(ctx, bibliographicRecordID)
	if err != nil {
		return nil, fmt.Errorf("holdings for %s: %w", bibliographicRecordID, err)
	}
	out := make(map[int]bool, len(agencies))
	for _, a := range agencies {
		out[a] = true
	}
	return out, nil
}

// fetchContent loads the content of a record that must exist.
func (e *Env) fetchContent(ctx context.Context, id marc.RecordID) (*marc.Record, error) {
	rec, err := e.Repo.FetchContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return rec, nil
}

// exists reports whether a live record exists.
func (e *Env) exists(ctx context.Context, id string, agency int) (bool, error) {
	ok, err := e.Repo.Exists(ctx, marc.NewRecordID(id, agency))
	if err != nil {
		return false, fmt.Errorf("exists %s:%d: %w", id, agency, err)
	}
	return ok, nil
}
