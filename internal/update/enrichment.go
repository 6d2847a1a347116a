package update

import (
	"context"
	"fmt"

	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// UpdateEnrichmentAction stores, or deletes, the enrichment a library
// keeps on a common record. Only what the enrichment adds to the common
// record is stored.
type UpdateEnrichmentAction struct {
	base
	parentAgency int
}

// newUpdateEnrichment updates an enrichment of the common record held by
// parentAgency.
func newUpdateEnrichment(env *Env, rc RequestContext, rec *marc.Record, parentAgency int) *UpdateEnrichmentAction {
	if parentAgency == 0 {
		parentAgency = CommonAgency
	}
	return &UpdateEnrichmentAction{base: newBase(KindUpdateEnrichment, env, rc, rec), parentAgency: parentAgency}
}

// ParentAgency returns the agency of the common record.
func (a *UpdateEnrichmentAction) ParentAgency() int { return a.parentAgency }

// Perform implements engine.Action.
func (a *UpdateEnrichmentAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	rec := a.record
	id := rec.ID()

	if rec.MarkedForDeletion() {
		return a.performDeletion(ctx)
	}
	if rec.HasParent() {
		return failed(a.env.msg("enrichment.has.parent", id.BibliographicRecordID, id.AgencyID)), nil
	}

	commonID := marc.NewRecordID(id.BibliographicRecordID, a.parentAgency)
	ok, err := a.env.Repo.Exists(ctx, commonID)
	if err != nil {
		return nil, fmt.Errorf("exists %s: %w", commonID, err)
	}
	if !ok {
		return failed(a.env.msg("record.does.not.exist", id.BibliographicRecordID)), nil
	}
	common, err := a.env.fetchContent(ctx, commonID)
	if err != nil {
		return nil, err
	}

	enrichment := classification.CorrectExtended(common, rec)
	if enrichment.IsEmpty() {
		return a.performDeletion(ctx)
	}
	enrichment.RemoveSubfield("z98", "b")
	a.add(
		newStoreEnrichment(a.env, a.rc, enrichment),
		newLink(a.env, a.rc, enrichment, commonID),
		newEnqueue(a.env, a.rc, enrichment),
	)
	return result.OK(), nil
}

// performDeletion deletes the enrichment if it is stored.
func (a *UpdateEnrichmentAction) performDeletion(ctx context.Context) (*result.Result, error) {
	id := a.record.ID()
	ok, err := a.env.Repo.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exists %s: %w", id, err)
	}
	if !ok {
		return result.OK(), nil
	}
	a.add(
		newEnqueue(a.env, a.rc, a.record),
		newRemoveLinks(a.env, a.rc, a.record),
		newDeleteWithMimeType(a.env, a.rc, a.record, MimeEnrichment),
	)
	return result.OK(), nil
}
