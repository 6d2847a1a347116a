package update

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// planEnrichmentSync returns the actions that bring the enrichments of the
// libraries holding a common record in line with its new classification.
// current and updated are the stored and the incoming version, both with
// authority headings expanded.
func planEnrichmentSync(ctx context.Context, env *Env, rc RequestContext, current, updated *marc.Record) ([]engine.Action, error) {
	logger := engine.Logger(ctx)
	if !classification.HasData(current) || !classification.HasData(updated) {
		return nil, nil
	}
	changed, reason := classification.Changed(current, updated)
	if !changed {
		return nil, nil
	}
	logger.Info("classification changed", "id", updated.ID().String(), "reason", reason)

	id := updated.ID()
	libraries, err := env.holdingAgencies(ctx, id.BibliographicRecordID)
	if err != nil {
		return nil, err
	}
	others, err := env.Repo.AgenciesFor(ctx, id.BibliographicRecordID, false)
	if err != nil {
		return nil, fmt.Errorf("agencies for %s: %w", id, err)
	}
	for _, a := range others {
		libraries[a] = true
	}
	delete(libraries, id.AgencyID)

	decision := classification.ShouldCreateEnrichment(current, updated, rc.Now())
	var out []engine.Action
	for _, agency := range sortedSet(libraries) {
		uses, err := env.hasCapability(ctx, agency, librules.UseEnrichments)
		if err != nil {
			return nil, fmt.Errorf("rules of %d: %w", agency, err)
		}
		if !uses {
			continue
		}

		enrichmentID := marc.NewRecordID(id.BibliographicRecordID, agency)
		exists, err := env.Repo.Exists(ctx, enrichmentID)
		if err != nil {
			return nil, fmt.Errorf("exists %s: %w", enrichmentID, err)
		}
		if exists {
			enrichment, err := env.fetchContent(ctx, enrichmentID)
			if err != nil {
				return nil, err
			}
			if classification.HasData(enrichment) {
				logger.Debug("enrichment keeps own classification", "id", enrichmentID.String())
				continue
			}
			out = append(out, newUpdateClassificationsInEnrichment(env, rc, current, updated, enrichment))
			continue
		}

		if librules.AgencyString(agency) == rc.GroupID() {
			continue
		}
		if !decision.Create {
			logger.Info("no enrichment created", "agency", agency,
				"reason", env.msg(decision.Reason, decision.Args...))
			continue
		}
		out = append(out, newCreateEnrichmentWithClassifications(env, rc, current, updated, agency))
	}
	return out, nil
}

// CreateEnrichmentWithClassificationsAction creates an enrichment for a library
// holding the classification the common record had before it changed.
type CreateEnrichmentWithClassificationsAction struct {
	base
	current  *marc.Record
	agency   int
	targetID string
}

// newCreateEnrichmentWithClassifications creates the enrichment of agency
// from current. updating is the record the enrichment belongs to.
func newCreateEnrichmentWithClassifications(env *Env, rc RequestContext, current, updating *marc.Record, agency int) *CreateEnrichmentWithClassificationsAction {
	return &CreateEnrichmentWithClassificationsAction{
		base:    newBase(KindCreateEnrichmentWithClassifications, env, rc, updating),
		current: current,
		agency:  agency,
	}
}

// withTarget stores the enrichment under another bibliographic id.
func (a *CreateEnrichmentWithClassificationsAction) withTarget(id string) *CreateEnrichmentWithClassificationsAction {
	a.targetID = id
	return a
}

// Agency returns the library the enrichment is created for.
func (a *CreateEnrichmentWithClassificationsAction) Agency() int { return a.agency }

// Attrs implements engine.Action.
func (a *CreateEnrichmentWithClassificationsAction) Attrs() []slog.Attr {
	return append(a.base.Attrs(), slog.Int("enrichment_agency", a.agency), slog.String("target_id", a.targetID))
}

// Perform implements engine.Action.
func (a *CreateEnrichmentWithClassificationsAction) Perform(ctx context.Context) (*result.Result, error) {
	err := a.requireBase().
		check("current", a.current != nil).
		check("agency", a.agency != 0).
		err()
	if err != nil {
		return nil, err
	}
	enrichment, err := a.env.Enrichments.CreateExtended(ctx, a.current, a.record, librules.AgencyString(a.agency))
	if err != nil {
		return nil, fmt.Errorf("create enrichment for %d: %w", a.agency, err)
	}
	if enrichment.IsEmpty() {
		engine.Logger(ctx).Info("enrichment would be empty", "agency", a.agency)
		return result.OK(), nil
	}
	if a.targetID != "" {
		enrichment.AddOrReplaceSubfield("001", "a", a.targetID)
	}
	classification.SetReclassifiedNote(enrichment)
	a.add(enrichmentStoreSequence(a.env, a.rc, enrichment)...)
	return result.OK(), nil
}

// UpdateClassificationsInEnrichmentAction copies the previous classification of a
// common record into an existing enrichment without one.
type UpdateClassificationsInEnrichmentAction struct {
	base
	current  *marc.Record
	updating *marc.Record
}

func newUpdateClassificationsInEnrichment(env *Env, rc RequestContext, current, updating, enrichment *marc.Record) *UpdateClassificationsInEnrichmentAction {
	return &UpdateClassificationsInEnrichmentAction{
		base:     newBase(KindUpdateClassificationsInEnrichment, env, rc, enrichment),
		current:  current,
		updating: updating,
	}
}

// Perform implements engine.Action.
func (a *UpdateClassificationsInEnrichmentAction) Perform(ctx context.Context) (*result.Result, error) {
	err := a.requireBase().
		check("current", a.current != nil).
		check("updating", a.updating != nil).
		err()
	if err != nil {
		return nil, err
	}
	enrichment, err := a.env.Enrichments.UpdateExtended(ctx, a.current, a.updating, a.record)
	if err != nil {
		return nil, fmt.Errorf("update enrichment %s: %w", a.record.ID(), err)
	}
	if enrichment.IsEmpty() {
		return result.OK(), nil
	}
	classification.AppendReclassifiedNote(enrichment)
	enrichment.SetModified(a.rc.Now().In(engine.CopenhagenLocation()))
	enrichment.Sort()
	a.add(enrichmentStoreSequence(a.env, a.rc, enrichment)...)
	return result.OK(), nil
}

// enrichmentStoreSequence stores an enrichment, links it to its common
// record and enqueues it.
func enrichmentStoreSequence(env *Env, rc RequestContext, enrichment *marc.Record) []engine.Action {
	return []engine.Action{
		newStoreEnrichment(env, rc, enrichment),
		newLink(env, rc, enrichment, marc.NewRecordID(enrichment.RecordID(), CommonAgency)),
		newEnqueue(env, rc, enrichment),
	}
}

// unionAgencies merges agency sets.
func unionAgencies(sets ...map[int]bool) map[int]bool {
	out := map[int]bool{}
	for _, s := range sets {
		maps.Copy(out, s)
	}
	return out
}
