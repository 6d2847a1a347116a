package update

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/search"
)

// y08 notes written into enrichments of records that absorbed others.
const (
	noteMergedWith     = "Sammenlagt med post med faustnummer %s"
	noteMergedWithout  = "Manglende data i posten til at skabe korrekt y08 for faustnummer %s"
	noteObsoleteSuffix = " Postens opstilling ændret på grund af omkatalogisering"
)

// planMigration returns the actions moving and merging the enrichments of
// the records updated now supersedes through 002a. current is the stored
// version of updated, nil when it is being created; previous ids current
// already declared have been migrated before.
func planMigration(ctx context.Context, env *Env, rc RequestContext, current, updated *marc.Record) ([]engine.Action, error) {
	logger := engine.Logger(ctx)
	known := map[string]bool{}
	if current != nil {
		for _, id := range current.PreviousIDs() {
			known[id] = true
		}
	}
	targetID := updated.RecordID()
	inProduction := classification.InProduction(updated, rc.Now())

	var moves []engine.Action
	// sources collects, per library, the superseded records it gets a new
	// enrichment for.
	sources := map[int][]*marc.Record{}
	for _, prev := range slices.Compact(slices.Clone(updated.PreviousIDs())) {
		if known[prev] || prev == targetID {
			continue
		}
		oldID := marc.NewRecordID(prev, CommonAgency)
		ok, err := env.Repo.Exists(ctx, oldID)
		if err != nil {
			return nil, fmt.Errorf("exists %s: %w", oldID, err)
		}
		if !ok {
			continue
		}
		old, err := env.fetchContent(ctx, oldID)
		if err != nil {
			return nil, err
		}
		changed := classification.HasChanged(old, updated)
		logger.Info("previous record found", "previous", oldID.String(), "target", targetID, "classification_changed", changed)

		enriched, err := enrichmentsOf(ctx, env, oldID)
		if err != nil {
			return nil, err
		}
		for _, e := range enriched {
			enrichment, err := env.fetchContent(ctx, e)
			if err != nil {
				return nil, err
			}
			uses, err := env.hasCapability(ctx, e.AgencyID, librules.UseEnrichments)
			if err != nil {
				return nil, fmt.Errorf("rules of %d: %w", e.AgencyID, err)
			}
			if uses {
				moves = append(moves, newMoveEnrichment(env, rc, enrichment, targetID, changed, inProduction))
			}
		}
		if !changed {
			continue
		}

		decision := classification.ShouldCreateEnrichment(old, updated, rc.Now())
		if !decision.Create {
			logger.Info("no enrichment created", "previous", oldID.String(),
				"reason", env.msg(decision.Reason, decision.Args...))
			continue
		}
		holders, err := env.holdingAgencies(ctx, prev)
		if err != nil {
			return nil, err
		}
		skip := idSet(enriched)
		for _, agency := range sortedSet(holders) {
			if skip[marc.NewRecordID(prev, agency)] {
				continue
			}
			uses, err := env.hasCapability(ctx, agency, librules.UseEnrichments)
			if err != nil {
				return nil, fmt.Errorf("rules of %d: %w", agency, err)
			}
			if uses {
				sources[agency] = append(sources[agency], old)
			}
		}
	}

	out := moves
	var merged []*marc.Record
	seen := map[marc.RecordID]bool{}
	for _, agency := range sortedSet(keysOf(sources)) {
		srcs := sources[agency]
		if len(srcs) == 1 {
			out = append(out,
				newCreateEnrichmentWithClassifications(env, rc, srcs[0], srcs[0], agency).withTarget(targetID),
				newCreateEnrichmentForLinkedRecords(env, rc, updated, agency, srcs),
			)
			continue
		}
		logger.Info("merging previous records", "agency", agency, "target", targetID, "sources", len(srcs))
		out = append(out, newMergedEnrichment(env, rc, updated, agency, srcs))
		for _, src := range srcs {
			if !seen[src.ID()] {
				seen[src.ID()] = true
				merged = append(merged, src)
			}
		}
	}
	for _, src := range merged {
		out = append(out, newMarkMergedSource(env, rc, src, targetID))
	}
	return out, nil
}

// planMigrationOnDelete returns the actions handing the enrichments of a
// deleted common record over to the record that declares it in 002a.
func planMigrationOnDelete(ctx context.Context, env *Env, rc RequestContext, rec *marc.Record) ([]engine.Action, error) {
	logger := engine.Logger(ctx)
	id := rec.ID()
	motherID, err := env.Index.OwnerOf(ctx, search.Subfield("002a", id.BibliographicRecordID))
	if err != nil {
		return nil, fmt.Errorf("002a owner of %s: %w", id, err)
	}
	if motherID == "" {
		return nil, nil
	}
	ok, err := env.exists(ctx, motherID, id.AgencyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Warn("002a points to a missing record", "id", motherID, "agency", id.AgencyID)
		return nil, nil
	}
	mother, err := env.fetchContent(ctx, marc.NewRecordID(motherID, id.AgencyID))
	if err != nil {
		return nil, err
	}
	old, err := env.fetchContent(ctx, id)
	if err != nil {
		return nil, err
	}

	holders, err := env.holdingAgencies(ctx, id.BibliographicRecordID)
	if err != nil {
		return nil, err
	}
	enriched, err := enrichmentsOf(ctx, env, marc.NewRecordID(id.BibliographicRecordID, CommonAgency))
	if err != nil {
		return nil, err
	}
	hasEnrichment := idSet(enriched)
	total := unionAgencies(holders)
	for _, e := range enriched {
		total[e.AgencyID] = true
	}

	changed := classification.HasChanged(mother, old)
	inProduction := classification.InProduction(mother, rc.Now())
	logger.Info("record taken over", "id", id.String(), "by", motherID,
		"classification_changed", changed, "in_production", inProduction)

	var out []engine.Action
	for _, agency := range sortedSet(total) {
		uses, err := env.hasCapability(ctx, agency, librules.UseEnrichments)
		if err != nil {
			return nil, fmt.Errorf("rules of %d: %w", agency, err)
		}
		if !uses {
			continue
		}
		enrichmentID := marc.NewRecordID(id.BibliographicRecordID, agency)
		if hasEnrichment[enrichmentID] {
			enrichment, err := env.fetchContent(ctx, enrichmentID)
			if err != nil {
				return nil, err
			}
			out = append(out, newMoveEnrichment(env, rc, enrichment, motherID, changed, inProduction))
			continue
		}
		if changed && holders[agency] && !inProduction {
			out = append(out,
				newCreateEnrichmentWithClassifications(env, rc, old, old, agency).withTarget(motherID),
				newCreateEnrichmentForLinkedRecords(env, rc, mother, agency, []*marc.Record{old}),
			)
		}
	}
	return out, nil
}

// enrichmentsOf returns the library enrichments of a common record, sorted,
// without the DBC enrichment.
func enrichmentsOf(ctx context.Context, env *Env, id marc.RecordID) ([]marc.RecordID, error) {
	ids, err := env.Repo.Enrichments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("enrichments of %s: %w", id, err)
	}
	ids = slices.DeleteFunc(ids, func(e marc.RecordID) bool { return e.AgencyID == DBCEnrichment })
	marc.SortIDs(ids)
	return ids, nil
}

func keysOf[V any](m map[int]V) map[int]bool {
	out := make(map[int]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// MoveEnrichmentAction moves an enrichment from a superseded record to the
// record replacing it.
type MoveEnrichmentAction struct {
	base
	targetID              string
	classificationChanged bool
	targetInProduction    bool
}

func newMoveEnrichment(env *Env, rc RequestContext, enrichment *marc.Record, targetID string, changed, inProduction bool) *MoveEnrichmentAction {
	return &MoveEnrichmentAction{
		base:                  newBase(KindMoveEnrichment, env, rc, enrichment),
		targetID:              targetID,
		classificationChanged: changed,
		targetInProduction:    inProduction,
	}
}

// Target returns the bibliographic id the enrichment moves to.
func (a *MoveEnrichmentAction) Target() string { return a.targetID }

// Attrs implements engine.Action.
func (a *MoveEnrichmentAction) Attrs() []slog.Attr {
	return append(a.base.Attrs(), slog.String("target_id", a.targetID))
}

// Perform implements engine.Action.
func (a *MoveEnrichmentAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("targetID", a.targetID != "").err(); err != nil {
		return nil, err
	}
	deleted := a.record.Clone()
	deleted.MarkForDeletion()
	a.add(newUpdateEnrichment(a.env, a.rc, deleted, CommonAgency))

	moved := a.record.Clone()
	moved.AddOrReplaceSubfield("001", "a", a.targetID)
	if !classification.HasData(moved) && a.classificationChanged && !a.targetInProduction {
		target, err := a.env.fetchContent(ctx, marc.NewRecordID(a.targetID, CommonAgency))
		if err != nil {
			return nil, err
		}
		current, err := a.env.fetchContent(ctx, marc.NewRecordID(a.record.RecordID(), CommonAgency))
		if err != nil {
			return nil, err
		}
		a.add(newUpdateClassificationsInEnrichment(a.env, a.rc, current, target, moved))
		return result.OK(), nil
	}
	a.add(newUpdateEnrichment(a.env, a.rc, moved, CommonAgency))
	return result.OK(), nil
}

// CreateEnrichmentForLinkedRecordsAction writes into the enrichment of a
// library on the target record one y08 note per superseded record merged
// into it. A merged enrichment also takes the classification of the first
// source when it has none of its own.
type CreateEnrichmentForLinkedRecordsAction struct {
	base
	agency  int
	sources []*marc.Record
	merged  bool
}

func newCreateEnrichmentForLinkedRecords(env *Env, rc RequestContext, target *marc.Record, agency int, sources []*marc.Record) *CreateEnrichmentForLinkedRecordsAction {
	return &CreateEnrichmentForLinkedRecordsAction{
		base:    newBase(KindCreateEnrichmentForLinkedRecords, env, rc, target),
		agency:  agency,
		sources: sources,
	}
}

// newMergedEnrichment builds the one enrichment of agency that replaces
// the enrichments it would have had on each of sources.
func newMergedEnrichment(env *Env, rc RequestContext, target *marc.Record, agency int, sources []*marc.Record) *CreateEnrichmentForLinkedRecordsAction {
	a := newCreateEnrichmentForLinkedRecords(env, rc, target, agency, sources)
	a.merged = true
	return a
}

// Merged reports whether the enrichment combines several sources.
func (a *CreateEnrichmentForLinkedRecordsAction) Merged() bool { return a.merged }

// Agency returns the library owning the enrichment.
func (a *CreateEnrichmentForLinkedRecordsAction) Agency() int { return a.agency }

// Sources returns the ids of the merged records.
func (a *CreateEnrichmentForLinkedRecordsAction) Sources() []string {
	out := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		out = append(out, s.RecordID())
	}
	return out
}

// Attrs implements engine.Action.
func (a *CreateEnrichmentForLinkedRecordsAction) Attrs() []slog.Attr {
	return append(a.base.Attrs(),
		slog.Int("enrichment_agency", a.agency),
		slog.Any("sources", a.Sources()))
}

// Perform implements engine.Action.
func (a *CreateEnrichmentForLinkedRecordsAction) Perform(ctx context.Context) (*result.Result, error) {
	err := a.requireBase().
		check("agency", a.agency != 0).
		check("sources", len(a.sources) > 0).
		err()
	if err != nil {
		return nil, err
	}
	id := marc.NewRecordID(a.record.RecordID(), a.agency)
	ok, err := a.env.Repo.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exists %s: %w", id, err)
	}
	var enrichment *marc.Record
	if ok {
		if enrichment, err = a.env.fetchContent(ctx, id); err != nil {
			return nil, err
		}
	} else {
		enrichment = marc.NewRecord()
		enrichment.CopyFieldsFrom(a.record, "001", "004")
		enrichment.AddOrReplaceSubfield("001", "b", librules.AgencyString(a.agency))
	}
	if a.merged && !classification.HasData(enrichment) {
		enrichment.CopyFieldsFrom(a.sources[0], classification.Fields...)
	}
	for _, src := range a.sources {
		enrichment.AddField(marc.NewField("y08", "a", mergeNote(src)))
	}
	enrichment.Sort()
	a.add(enrichmentStoreSequence(a.env, a.rc, enrichment)...)
	return result.OK(), nil
}

// MarkMergedSourceAction marks a superseded common record whose
// classification went into a merged enrichment for deletion (004r=d). The
// record stays stored so holdings can move before it is deleted.
type MarkMergedSourceAction struct {
	base
	targetID string
}

func newMarkMergedSource(env *Env, rc RequestContext, src *marc.Record, targetID string) *MarkMergedSourceAction {
	return &MarkMergedSourceAction{
		base:     newBase(KindMarkMergedSource, env, rc, src),
		targetID: targetID,
	}
}

// Attrs implements engine.Action.
func (a *MarkMergedSourceAction) Attrs() []slog.Attr {
	return append(a.base.Attrs(), slog.String("target_id", a.targetID))
}

// Perform implements engine.Action.
func (a *MarkMergedSourceAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("targetID", a.targetID != "").err(); err != nil {
		return nil, err
	}
	current, err := a.env.fetchContent(ctx, a.record.ID())
	if err != nil {
		return nil, err
	}
	if current.MarkedForDeletion() {
		return result.OK(), nil
	}
	current.MarkForDeletion()
	engine.Logger(ctx).Info("merged record marked for deletion", "id", current.ID().String(), "target_id", a.targetID)
	a.add(newStoreRecord(a.env, a.rc, current), newEnqueue(a.env, a.rc, current))
	return result.OK(), nil
}

// mergeNote describes a merged record by its author and title.
func mergeNote(src *marc.Record) string {
	id := src.RecordID()
	title := src.Value("245", "a")
	if title == "" {
		return fmt.Sprintf(noteMergedWithout, id)
	}
	note := title
	if author := src.Value("100", "a"); author != "" {
		note = author + ": " + title
	}
	s := fmt.Sprintf(noteMergedWith, id) + " " + note
	return strings.Replace(s, noteObsoleteSuffix, "", 1)
}
