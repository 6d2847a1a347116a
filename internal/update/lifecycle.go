package update

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/search"
)

// UpdateCommonAction checks the references of a common record and hands it
// to the lifecycle.
type UpdateCommonAction struct {
	base
}

func newUpdateCommon(env *Env, rc RequestContext, rec *marc.Record) *UpdateCommonAction {
	return &UpdateCommonAction{base: newBase(KindUpdateCommon, env, rc, rec)}
}

// Perform implements engine.Action.
func (a *UpdateCommonAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	rec := a.record
	id := rec.RecordID()

	if !rec.MarkedForDeletion() && rec.AgencyIDInt() == CommonAgency {
		linked, err := a.env.Index.HasDocuments(ctx, search.Subfield("002a", id))
		if err != nil {
			return nil, fmt.Errorf("002a owner of %s: %w", id, err)
		}
		if linked {
			return failed(a.env.msg("update.record.with.002.links")), nil
		}
	}

	if rec.Owner() != ownerDBC && slices.ContainsFunc(rec.Values("032", "x"), func(v string) bool {
		return strings.Contains(v, "OVE")
	}) {
		root, err := a.env.Rules.HasCapability(ctx, a.rc.GroupID(), librules.AuthRoot)
		if err != nil {
			return nil, fmt.Errorf("rules of %s: %w", a.rc.GroupID(), err)
		}
		if !root {
			return failed(a.env.msg("update.library.record.catalog.codes.not.cb")), nil
		}
	}

	for _, ref := range authorityReferences(rec) {
		ok, err := a.env.Repo.Exists(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("authority %s: %w", ref, err)
		}
		if !ok {
			return failed(a.env.msg("ref.record.doesnt.exist", ref.BibliographicRecordID, ref.AgencyID)), nil
		}
	}

	a.add(newUpdateRecord(a.env, a.rc, rec, VariantOf(rec.HasParent())))
	return result.OK(), nil
}

// UpdateRecordAction decides whether a common record is created,
// overwritten or deleted.
type UpdateRecordAction struct {
	base
	variant Variant
}

func newUpdateRecord(env *Env, rc RequestContext, rec *marc.Record, v Variant) *UpdateRecordAction {
	return &UpdateRecordAction{base: newBase(KindUpdateRecord, env, rc, rec), variant: v}
}

// Variant returns the single or volume variant.
func (a *UpdateRecordAction) Variant() Variant { return a.variant }

// Attrs implements engine.Action.
func (a *UpdateRecordAction) Attrs() []slog.Attr {
	return append(a.base.Attrs(), slog.String("variant", a.variant.String()))
}

// Perform implements engine.Action.
func (a *UpdateRecordAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	rec := a.record
	id := rec.ID()

	exists, err := a.env.Repo.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exists %s: %w", id, err)
	}
	if !exists {
		a.add(newCreateRecord(a.env, a.rc, rec, a.variant))
		return result.OK(), nil
	}

	if id.AgencyID == CommonAgency && rec.RecordType() == "e" {
		if res, err := a.checkHeadToSingle(ctx); res != nil || err != nil {
			return res, err
		}
	}

	if rec.MarkedForDeletion() {
		if res, err := a.checkChildrenOnDelete(ctx); res != nil || err != nil {
			return res, err
		}
		if id.AgencyID == CommonAgency {
			if res, err := a.checkHoldingsOnDelete(ctx); res != nil || err != nil {
				return res, err
			}
		}
		moves, err := planMigrationOnDelete(ctx, a.env, a.rc, rec)
		if err != nil {
			return nil, err
		}
		a.add(moves...)
		a.add(newDeleteCommon(a.env, a.rc, rec, a.variant))
		return result.OK(), nil
	}

	a.add(newOverwriteRecord(a.env, a.rc, rec, a.variant))
	return result.OK(), nil
}

// checkHeadToSingle rejects turning a head or section record that still
// has common children into a single record.
func (a *UpdateRecordAction) checkHeadToSingle(ctx context.Context) (*result.Result, error) {
	id := a.record.ID()
	current, err := a.env.fetchContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if t := current.RecordType(); t != "h" && t != "s" {
		return nil, nil
	}
	children, err := a.env.Repo.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	for _, c := range children {
		if c.AgencyID == CommonAgency {
			return failed(a.env.msg("head.or.section.to.single.children", id.BibliographicRecordID, id.AgencyID)), nil
		}
	}
	return nil, nil
}

// checkChildrenOnDelete rejects deleting a record with children other than
// literature analyses. It runs before any enrichment is moved away, so a
// rejected delete leaves the repository untouched.
func (a *UpdateRecordAction) checkChildrenOnDelete(ctx context.Context) (*result.Result, error) {
	id := a.record.ID()
	children, err := a.env.Repo.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	if !allLittolk(children) {
		return failed(a.env.msg("delete.record.children.error", id.BibliographicRecordID)), nil
	}
	return nil, nil
}

// checkHoldingsOnDelete rejects deleting a common record that a library
// exporting holdings still holds, unless another record takes it over
// through 002a.
func (a *UpdateRecordAction) checkHoldingsOnDelete(ctx context.Context) (*result.Result, error) {
	id := a.record.ID()
	holders, err := a.env.Holdings.AgenciesWithHoldings(ctx, id.BibliographicRecordID)
	if err != nil {
		return nil, fmt.Errorf("holdings for %s: %w", id, err)
	}
	for _, agency := range sortedInts(holders) {
		exports, err := a.env.hasCapability(ctx, agency, librules.AuthExportHoldings)
		if err != nil {
			return nil, fmt.Errorf("rules of %d: %w", agency, err)
		}
		if !exports {
			continue
		}
		aliased, err := a.env.Index.HasDocuments(ctx, search.Subfield("002a", id.BibliographicRecordID))
		if err != nil {
			return nil, fmt.Errorf("002a owner of %s: %w", id, err)
		}
		if !aliased {
			return failed(a.env.msg("delete.common.with.holdings.error", id.BibliographicRecordID, id.AgencyID, agency)), nil
		}
	}
	return nil, nil
}

// CreateRecordAction stores a common record that does not exist yet.
type CreateRecordAction struct {
	base
	variant Variant
}

func newCreateRecord(env *Env, rc RequestContext, rec *marc.Record, v Variant) *CreateRecordAction {
	return &CreateRecordAction{base: newBase(KindCreateRecord, env, rc, rec), variant: v}
}

// Variant returns the single or volume variant.
func (a *CreateRecordAction) Variant() Variant { return a.variant }

// Perform implements engine.Action.
func (a *CreateRecordAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	rec := a.record
	id := rec.ID()

	if a.variant == Volume {
		if res, err := checkParent(ctx, a.env, rec); res != nil || err != nil {
			return res, err
		}
	}

	if id.AgencyID == CommonAgency {
		if res, err := a.checkRestore(ctx); res != nil || err != nil {
			return res, err
		}
		linked, err := a.env.Index.HasDocuments(ctx, search.Subfield("002a", id.BibliographicRecordID))
		if err != nil {
			return nil, fmt.Errorf("002a owner of %s: %w", id, err)
		}
		if linked {
			return failed(a.env.msg("update.record.with.002.links")), nil
		}
	}

	var migration []engine.Action
	if id.AgencyID == CommonAgency {
		var err error
		migration, err = planMigration(ctx, a.env, a.rc, nil, rec)
		if err != nil {
			return nil, err
		}
	}

	a.add(assemble(a.env, a.rc, rec, a.variant, assembly{
		removeLinks: a.variant == Volume,
		middle:      migration,
	})...)
	return result.OK(), nil
}

// checkRestore rejects creating a common record while local records with
// the same id exist. Enrichments of a previously deleted common record do
// not count.
func (a *CreateRecordAction) checkRestore(ctx context.Context) (*result.Result, error) {
	id := a.record.ID()
	agencies, err := a.env.Repo.AgenciesFor(ctx, id.BibliographicRecordID, false)
	if err != nil {
		return nil, fmt.Errorf("agencies for %s: %w", id, err)
	}
	for _, agency := range agencies {
		if agency == id.AgencyID || agency == DBCEnrichment {
			continue
		}
		other, err := a.env.Repo.Fetch(ctx, marc.NewRecordID(id.BibliographicRecordID, agency))
		if err != nil {
			return nil, fmt.Errorf("load %s:%d: %w", id.BibliographicRecordID, agency, err)
		}
		if other.MimeType != MimeEnrichment {
			return failed(a.env.msg("create.record.with.locals")), nil
		}
	}
	return nil, nil
}

// checkParent rejects a volume that is its own parent, before looking at
// the repository, and a volume whose parent does not exist.
func checkParent(ctx context.Context, env *Env, rec *marc.Record) (*result.Result, error) {
	id := rec.ID()
	parentID := rec.ParentID()
	if parentID == id.BibliographicRecordID {
		agency := id.AgencyID
		if agency == CommonAgency {
			agency = DBCEnrichment
		}
		return failed(env.msg("parent.point.to.itself", id.BibliographicRecordID, agency)), nil
	}
	parentAgency := rec.ParentAgencyID()
	ok, err := env.exists(ctx, parentID, parentAgency)
	if err != nil {
		return nil, err
	}
	if !ok {
		return failed(env.msg("reference.record.not.exist", id.BibliographicRecordID, id.AgencyID, parentID, parentAgency)), nil
	}
	return nil, nil
}

// OverwriteRecordAction replaces the content of an existing common record
// and synchronizes what depends on it.
type OverwriteRecordAction struct {
	base
	variant Variant
}

func newOverwriteRecord(env *Env, rc RequestContext, rec *marc.Record, v Variant) *OverwriteRecordAction {
	return &OverwriteRecordAction{base: newBase(KindOverwriteRecord, env, rc, rec), variant: v}
}

// Variant returns the single or volume variant.
func (a *OverwriteRecordAction) Variant() Variant { return a.variant }

// Perform implements engine.Action.
func (a *OverwriteRecordAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	rec := a.record
	id := rec.ID()

	if a.variant == Volume {
		if res, err := checkParent(ctx, a.env, rec); res != nil || err != nil {
			return res, err
		}
	}

	if slices.Contains(dbcPrivateAgencies, id.AgencyID) {
		dependents, err := a.authorityDependents(ctx)
		if err != nil {
			return nil, err
		}
		a.add(assemble(a.env, a.rc, rec, a.variant, assembly{removeLinks: true, tail: dependents})...)
		return result.OK(), nil
	}

	current, err := a.env.fetchContent(ctx, id)
	if err != nil {
		return nil, err
	}
	currentExpanded, err := expandAuthorities(ctx, a.env, current)
	if err != nil {
		return nil, err
	}
	updatedExpanded, err := expandAuthorities(ctx, a.env, rec)
	if err != nil {
		return nil, err
	}

	middle, err := planEnrichmentSync(ctx, a.env, a.rc, currentExpanded, updatedExpanded)
	if err != nil {
		return nil, err
	}
	if id.AgencyID == CommonAgency {
		migration, err := planMigration(ctx, a.env, a.rc, current, rec)
		if err != nil {
			return nil, err
		}
		middle = append(middle, migration...)
	}
	ph, err := phHoldingsActions(ctx, a.env, a.rc, rec)
	if err != nil {
		return nil, err
	}

	a.add(assemble(a.env, a.rc, rec, a.variant, assembly{
		removeLinks: true,
		middle:      middle,
		tail:        ph,
	})...)
	return result.OK(), nil
}

// authorityDependents re-enqueues the records referring to an authority
// record so they are expanded with the new heading.
func (a *OverwriteRecordAction) authorityDependents(ctx context.Context) ([]engine.Action, error) {
	id := a.record.ID()
	if id.AgencyID != AuthorityAgency {
		return nil, nil
	}
	children, err := a.env.Repo.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	marc.SortIDs(children)
	out := make([]engine.Action, 0, len(children))
	for _, c := range children {
		out = append(out, newEnqueueID(a.env, a.rc, c))
	}
	return out, nil
}

// assembly is what differs between the lifecycle cases that store a
// record: whether stale links are removed first, the actions placed after
// the links and the actions placed after the record is enqueued.
type assembly struct {
	removeLinks bool
	middle      []engine.Action
	tail        []engine.Action
}

// assemble builds the store sequence of a common record:
//
//	Store, [RemoveLinks], [Link to parent], middle..., [LinkAuthority], Enqueue, tail...
//
// The parent link is added for volumes only, LinkAuthority only when the
// record refers to authority records.
func assemble(env *Env, rc RequestContext, rec *marc.Record, v Variant, asm assembly) []engine.Action {
	out := []engine.Action{newStoreRecord(env, rc, rec)}
	if asm.removeLinks {
		out = append(out, newRemoveLinks(env, rc, rec))
	}
	if v == Volume {
		out = append(out, newLinkParent(env, rc, rec))
	}
	out = append(out, asm.middle...)
	if len(authorityReferences(rec)) > 0 {
		out = append(out, newLinkAuthority(env, rc, rec))
	}
	out = append(out, newEnqueue(env, rc, rec))
	return append(out, asm.tail...)
}

// DeleteCommonAction deletes a common record together with its
// enrichments.
type DeleteCommonAction struct {
	base
	variant Variant
}

func newDeleteCommon(env *Env, rc RequestContext, rec *marc.Record, v Variant) *DeleteCommonAction {
	return &DeleteCommonAction{base: newBase(KindDeleteCommon, env, rc, rec), variant: v}
}

// Perform implements engine.Action.
func (a *DeleteCommonAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	rec := a.record
	id := rec.ID()

	children, err := a.env.Repo.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	marc.SortIDs(children)
	if len(children) > 0 {
		if !allLittolk(children) {
			return failed(a.env.msg("delete.record.children.error", id.BibliographicRecordID)), nil
		}
		// Analyses of a deleted record go with it.
		var cascade []engine.Action
		for _, c := range children {
			enrichment, err := a.env.fetchContent(ctx, marc.NewRecordID(c.BibliographicRecordID, DBCEnrichment))
			if err != nil {
				return nil, err
			}
			enrichment.MarkForDeletion()
			analysis, err := a.env.fetchContent(ctx, c)
			if err != nil {
				return nil, err
			}
			analysis.MarkForDeletion()
			cascade = append(cascade,
				newUpdateEnrichment(a.env, a.rc, enrichment, CommonAgency),
				newDeleteCommon(a.env, a.rc, analysis, VariantOf(analysis.HasParent())),
			)
		}
		a.add(cascade...)
	}

	enrichments, err := a.env.Repo.Enrichments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("enrichments of %s: %w", id, err)
	}
	marc.SortIDs(enrichments)
	for _, e := range enrichments {
		enrichment, err := a.env.fetchContent(ctx, e)
		if err != nil {
			return nil, err
		}
		enrichment.MarkForDeletion()
		a.add(newUpdateEnrichment(a.env, a.rc, enrichment, id.AgencyID))
	}

	a.add(
		newEnqueue(a.env, a.rc, rec),
		newRemoveLinks(a.env, a.rc, rec),
		newDelete(a.env, a.rc, rec),
	)

	if a.variant == Volume {
		head, err := lastChildCascade(ctx, a.env, rec)
		if err != nil {
			return nil, err
		}
		if head != nil {
			a.add(newUpdateRecord(a.env, a.rc, head, VariantOf(head.HasParent())))
		}
	}
	return result.OK(), nil
}

func allLittolk(ids []marc.RecordID) bool {
	for _, id := range ids {
		if id.AgencyID != LittolkAgency {
			return false
		}
	}
	return true
}

// lastChildCascade returns the parent of a volume marked for deletion when
// the volume is its only child, or nil.
func lastChildCascade(ctx context.Context, env *Env, rec *marc.Record) (*marc.Record, error) {
	parent := marc.NewRecordID(rec.ParentID(), rec.ParentAgencyID())
	siblings, err := env.Repo.Children(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", parent, err)
	}
	if len(siblings) != 1 || siblings[0] != rec.ID() {
		return nil, nil
	}
	head, err := env.fetchContent(ctx, parent)
	if err != nil {
		return nil, err
	}
	head.MarkForDeletion()
	return head, nil
}
