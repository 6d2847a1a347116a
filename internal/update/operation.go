package update

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/search"
)

// litWeekCode marks a record reviewed in the literature week list.
var litWeekCode = regexp.MustCompile(`^LIT[0-9]{6}`)

// UpdateOperationAction splits the request record into the records stored
// and dispatches each to the action owning its kind of record.
type UpdateOperationAction struct {
	base
}

func newUpdateOperation(env *Env, rc RequestContext) *UpdateOperationAction {
	return &UpdateOperationAction{base: newBase(KindUpdateOperation, env, rc, rc.Record())}
}

// Perform implements engine.Action.
func (a *UpdateOperationAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("group", a.rc.GroupID() != "").err(); err != nil {
		return nil, err
	}
	if res, err := a.checkUpdatability(ctx); res != nil || err != nil {
		return res, err
	}

	rec := a.record.Clone()
	if err := a.setCreatedDate(ctx, rec); err != nil {
		return nil, err
	}
	rc, err := a.createdOverride(ctx, rec)
	if err != nil {
		return nil, err
	}
	rc = rc.WithRecord(rec)
	a.add(newAuthenticateRecord(a.env, rc, rec))

	id := rec.ID()
	if id.AgencyID == CommonAgency {
		message, err := a.validatePreviousIDs(ctx, rec)
		if err != nil {
			return nil, err
		}
		if message != "" {
			return failed(message), nil
		}
	}

	possible, err := doubleRecordPossible(ctx, a.env, rc, rec)
	if err != nil {
		return nil, err
	}
	key := rc.DoubleRecordKey()
	if possible && rc.LibraryGroup().IsFBS() && key == "" && !rc.Validated() {
		a.add(newDoubleRecordFrontend(a.env, rc, rec))
	}

	records := splitRecord(rec, rc.LibraryGroup())
	for _, r := range records {
		res, err := a.dispatch(ctx, rc, r, records)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	if possible && rc.LibraryGroup().IsFBS() {
		if key != "" {
			ok, err := a.env.Keys.Redeem(ctx, key)
			if err != nil {
				return nil, err
			}
			if !ok {
				return failed(a.env.msg("double.record.frontend.unknown.key", key)), nil
			}
			engine.Logger(ctx).Info("double record key redeemed", "key", key)
		}
		a.add(newDoubleRecordChecking(a.env, rc, rec))
	}
	return result.OK(), nil
}

// dispatch appends the action for one of the split records. A non-nil
// result is a failure that stops the operation.
func (a *UpdateOperationAction) dispatch(ctx context.Context, rc RequestContext, rec *marc.Record, records []*marc.Record) (*result.Result, error) {
	id := rec.ID()
	group := rc.GroupID()

	if rec.MarkedForDeletion() {
		ok, err := a.env.Repo.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("exists %s: %w", id, err)
		}
		if !ok {
			return failed(a.env.msg("operation.delete.non.existing.record", id.BibliographicRecordID, id.AgencyID)), nil
		}
	}

	if IsDBCAgency(id.AgencyID) {
		if !rec.MarkedForDeletion() {
			exists, err := a.env.Repo.Exists(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("exists %s: %w", id, err)
			}
			if !exists {
				allowed, err := a.env.Rules.HasCapability(ctx, group, librules.AuthCreateCommonRecord)
				if err != nil {
					return nil, fmt.Errorf("rules of %s: %w", group, err)
				}
				if !allowed {
					return failed(a.env.msg("common.record.creation.not.allowed", group)), nil
				}
			}
		}
		a.add(newUpdateCommon(a.env, rc, rec))
		return nil, nil
	}

	if id.AgencyID == DBCEnrichment {
		common, err := commonRecordExists(ctx, a.env, rec, records, CommonAgency)
		if err != nil {
			return nil, err
		}
		if common {
			if err := a.removedLitWeek(ctx, rc, rec); err != nil {
				return nil, err
			}
			a.add(newUpdateEnrichment(a.env, rc, rec, CommonAgency))
			return nil, nil
		}
	}

	enriches, err := a.mayEnrich(ctx, group)
	if err != nil {
		return nil, err
	}
	if !enriches {
		a.add(newUpdateLocal(a.env, rc, rec, VariantOf(rec.HasParent())))
		return nil, nil
	}
	common, err := commonRecordExists(ctx, a.env, rec, records, CommonAgency)
	if err != nil {
		return nil, err
	}
	if common {
		a.add(newUpdateEnrichment(a.env, rc, rec, CommonAgency))
		return nil, nil
	}
	deleted, err := a.commonIDTaken(ctx, id.BibliographicRecordID)
	if err != nil {
		return nil, err
	}
	if deleted {
		return failed(a.env.msg("record.not.allowed.deleted.common.record", id.BibliographicRecordID)), nil
	}
	a.add(newUpdateLocal(a.env, rc, rec, VariantOf(rec.HasParent())))
	return nil, nil
}

// mayEnrich reports whether the library keeps enrichments on common
// records.
func (a *UpdateOperationAction) mayEnrich(ctx context.Context, group string) (bool, error) {
	for _, rule := range []librules.Rule{librules.CreateEnrichments, librules.AuthMetaCompass} {
		ok, err := a.env.Rules.HasCapability(ctx, group, rule)
		if err != nil {
			return false, fmt.Errorf("rules of %s: %w", group, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// commonIDTaken reports whether a common record, live or deleted, or a 002a
// reference already uses the id.
func (a *UpdateOperationAction) commonIDTaken(ctx context.Context, id string) (bool, error) {
	ok, err := a.env.Repo.ExistsMaybeDeleted(ctx, marc.NewRecordID(id, CommonAgency))
	if err != nil {
		return false, fmt.Errorf("exists %s:%d: %w", id, CommonAgency, err)
	}
	if ok {
		return true, nil
	}
	ok, err = a.env.Index.HasDocuments(ctx, search.Subfield("002a", id))
	if err != nil {
		return false, fmt.Errorf("002a owner of %s: %w", id, err)
	}
	return ok, nil
}

// commonRecordExists reports whether the common record of rec is stored or
// part of the same request.
func commonRecordExists(ctx context.Context, env *Env, rec *marc.Record, records []*marc.Record, agency int) (bool, error) {
	id := marc.NewRecordID(rec.RecordID(), agency)
	ok, err := env.Repo.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	if ok {
		return true, nil
	}
	return slices.ContainsFunc(records, func(r *marc.Record) bool { return r.ID() == id }), nil
}

// checkUpdatability rejects deleting a record that still has children,
// unless they are literature analyses or another record takes it over
// through 002a.
func (a *UpdateOperationAction) checkUpdatability(ctx context.Context) (*result.Result, error) {
	rec := a.record
	if !rec.MarkedForDeletion() {
		return nil, nil
	}
	owner, err := a.env.Index.OwnerOf(ctx, search.Subfield("002a", rec.RecordID()))
	if err != nil {
		return nil, fmt.Errorf("002a owner of %s: %w", rec.RecordID(), err)
	}
	if owner != "" {
		return nil, nil
	}
	agency := rec.AgencyIDInt()
	if agency == DBCEnrichment {
		agency = CommonAgency
	}
	children, err := a.env.Repo.Children(ctx, marc.NewRecordID(rec.RecordID(), agency))
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", rec.ID(), err)
	}
	if !allLittolk(children) {
		return failed(a.env.msg("delete.record.children.error", rec.RecordID())), nil
	}
	return nil, nil
}

// setCreatedDate fills in 001d: the stored creation date of an existing
// record, the date of the head record for literature analyses, or today.
func (a *UpdateOperationAction) setCreatedDate(ctx context.Context, rec *marc.Record) error {
	id := rec.ID()
	today := a.rc.Now().In(engine.CopenhagenLocation())

	if IsDBCAgency(id.AgencyID) {
		exists, err := a.env.Repo.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("exists %s: %w", id, err)
		}
		switch {
		case exists:
			return a.copyCreated(ctx, rec, id)
		case id.AgencyID == LittolkAgency && rec.HasParent():
			return a.copyCreated(ctx, rec, marc.NewRecordID(rec.ParentID(), rec.ParentAgencyID()))
		}
		rec.SetCreated(today)
		return nil
	}

	uses, err := a.env.Rules.HasCapability(ctx, a.rc.GroupID(), librules.UseEnrichments)
	if err != nil {
		return fmt.Errorf("rules of %s: %w", a.rc.GroupID(), err)
	}
	if !uses {
		return nil
	}
	if !rec.HasSubfield("001", "d") {
		exists, err := a.env.Repo.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("exists %s: %w", id, err)
		}
		if exists {
			return a.copyCreated(ctx, rec, id)
		}
	}
	rec.SetCreated(today)
	return nil
}

func (a *UpdateOperationAction) copyCreated(ctx context.Context, rec *marc.Record, from marc.RecordID) error {
	stored, err := a.env.fetchContent(ctx, from)
	if err != nil {
		return err
	}
	if d := stored.Value("001", "d"); d != "" {
		rec.AddOrReplaceSubfield("001", "d", d)
	}
	return nil
}

// createdOverride reads the creation time requested in n55a for a record
// that has never been stored, and removes n55.
func (a *UpdateOperationAction) createdOverride(ctx context.Context, rec *marc.Record) (RequestContext, error) {
	rc := a.rc
	if !rec.HasSubfield("n55", "a") {
		return rc, nil
	}
	value := rec.Value("n55", "a")
	rec.RemoveField("n55")
	if value == "" {
		return rc, nil
	}
	stored, err := a.env.Repo.ExistsMaybeDeleted(ctx, rec.ID())
	if err != nil {
		return rc, fmt.Errorf("exists %s: %w", rec.ID(), err)
	}
	if stored {
		return rc, nil
	}
	t, err := time.ParseInLocation(marc.CreatedLayout, value, engine.CopenhagenLocation())
	if err != nil {
		return rc, fmt.Errorf("parse n55a %q: %w", value, err)
	}
	return rc.WithCreatedOverride(t), nil
}

// validatePreviousIDs checks the previous identifiers (002) of a common
// record. It returns the message of the first problem found, or "".
func (a *UpdateOperationAction) validatePreviousIDs(ctx context.Context, rec *marc.Record) (string, error) {
	id := rec.ID()
	exists, err := a.env.Repo.Exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("exists %s: %w", id, err)
	}

	if rec.MarkedForDeletion() {
		if !exists {
			return "", nil
		}
		return a.validateDeletedPreviousIDs(ctx, id)
	}

	for _, prev := range rec.PreviousIDs() {
		if prev == id.BibliographicRecordID {
			return a.env.msg("update.record.with.001.equals.002a.links", prev), nil
		}
	}
	for _, sub := range []string{"a", "x"} {
		for _, v := range rec.Values("002", sub) {
			q := search.Subfield("002"+sub, v)
			if exists {
				q = q.Excluding("001a", id.BibliographicRecordID)
			}
			linked, err := a.env.Index.HasDocuments(ctx, q)
			if err != nil {
				return "", fmt.Errorf("002%s owner of %s: %w", sub, v, err)
			}
			if linked {
				return a.env.msg("update.record.with.002.links"), nil
			}
		}
	}
	if !exists {
		return "", nil
	}

	current, err := a.env.fetchContent(ctx, id)
	if err != nil {
		return "", err
	}
	for _, removed := range current.PreviousIDs() {
		if slices.Contains(rec.PreviousIDs(), removed) {
			continue
		}
		live, err := a.env.exists(ctx, removed, CommonAgency)
		if err != nil {
			return "", err
		}
		if live {
			continue
		}
		holders, err := a.env.Holdings.AgenciesWithHoldings(ctx, removed)
		if err != nil {
			return "", fmt.Errorf("holdings for %s: %w", removed, err)
		}
		if len(holders) > 0 {
			return a.env.msg("update.record.holdings.on.002a", removed), nil
		}
	}
	return "", nil
}

// validateDeletedPreviousIDs rejects deleting a record while holdings
// still depend on its previous identifiers.
func (a *UpdateOperationAction) validateDeletedPreviousIDs(ctx context.Context, id marc.RecordID) (string, error) {
	current, err := a.env.fetchContent(ctx, id)
	if err != nil {
		return "", err
	}
	holders, err := a.env.Holdings.AgenciesWithHoldings(ctx, id.BibliographicRecordID)
	if err != nil {
		return "", fmt.Errorf("holdings for %s: %w", id, err)
	}
	if len(holders) > 0 {
		for _, prev := range current.PreviousIDs() {
			found, err := a.env.Index.HasDocuments(ctx, search.Subfield("001a", prev))
			if err != nil {
				return "", fmt.Errorf("001a %s: %w", prev, err)
			}
			if !found {
				return a.env.msg("delete.record.holdings.on.002a"), nil
			}
		}
	}
	for _, prev := range current.PreviousIDs() {
		held, err := a.env.Holdings.AgenciesWithHoldings(ctx, prev)
		if err != nil {
			return "", fmt.Errorf("holdings for %s: %w", prev, err)
		}
		if len(held) == 0 {
			continue
		}
		live, err := a.env.exists(ctx, prev, id.AgencyID)
		if err != nil {
			return "", err
		}
		if !live {
			return a.env.msg("delete.record.holdings.on.002a"), nil
		}
	}
	return "", nil
}

// removedLitWeek deletes the literature analyses of a record whose DBC
// enrichment no longer carries a LIT week code in d09z.
func (a *UpdateOperationAction) removedLitWeek(ctx context.Context, rc RequestContext, rec *marc.Record) error {
	id := rec.ID()
	if slices.ContainsFunc(rec.Values("d09", "z"), litWeekCode.MatchString) {
		return nil
	}
	exists, err := a.env.Repo.Exists(ctx, id)
	if err != nil || !exists {
		return err
	}
	existing, err := a.env.fetchContent(ctx, id)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(existing.Values("d09", "z"), litWeekCode.MatchString) {
		return nil
	}
	children, err := a.env.Repo.Children(ctx, marc.NewRecordID(id.BibliographicRecordID, CommonAgency))
	if err != nil {
		return fmt.Errorf("children of %s: %w", id, err)
	}
	marc.SortIDs(children)
	for _, c := range children {
		if c.AgencyID != LittolkAgency {
			continue
		}
		enrichment, err := a.env.fetchContent(ctx, marc.NewRecordID(c.BibliographicRecordID, DBCEnrichment))
		if err != nil {
			return err
		}
		enrichment.MarkForDeletion()
		analysis, err := a.env.fetchContent(ctx, c)
		if err != nil {
			return err
		}
		analysis.MarkForDeletion()
		a.add(
			newUpdateEnrichment(a.env, rc, enrichment, CommonAgency),
			newDeleteCommon(a.env, rc, analysis, VariantOf(analysis.HasParent())),
		)
	}
	return nil
}

// splitRecord divides a common record sent by DBC into the common record
// and the DBC enrichment holding its letter fields. Other records and
// deletions are stored as sent.
func splitRecord(rec *marc.Record, group librules.Group) []*marc.Record {
	if !group.IsDBC() || rec.AgencyIDInt() != CommonAgency || rec.MarkedForDeletion() {
		return []*marc.Record{rec}
	}
	common := marc.NewRecord()
	enrichment := marc.NewRecord()
	for _, f := range rec.Fields {
		switch {
		case f.IsLetterField():
			enrichment.AddField(f.Clone())
		case f.Name == "001" || f.Name == "004":
			common.AddField(f.Clone())
			enrichment.AddField(f.Clone())
		default:
			common.AddField(f.Clone())
		}
	}
	if len(enrichment.Fields) == len(common.FieldsNamed("001"))+len(common.FieldsNamed("004")) {
		return []*marc.Record{rec}
	}
	enrichment.AddOrReplaceSubfield("001", "b", librules.AgencyString(DBCEnrichment))
	enrichment.Sort()
	return []*marc.Record{common, enrichment}
}
