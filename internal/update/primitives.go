package update

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/store"
)

// StoreAction saves a record.
type StoreAction struct {
	base
	mimeType string
}

func newStore(env *Env, rc RequestContext, rec *marc.Record, mimeType string) *StoreAction {
	return &StoreAction{base: newBase(KindStore, env, rc, rec), mimeType: mimeType}
}

// newStoreRecord stores a record with the mime type of its agency.
func newStoreRecord(env *Env, rc RequestContext, rec *marc.Record) *StoreAction {
	return newStore(env, rc, rec, MimeTypeFor(rec.AgencyIDInt()))
}

// newStoreEnrichment stores an enrichment record.
func newStoreEnrichment(env *Env, rc RequestContext, rec *marc.Record) *StoreAction {
	return newStore(env, rc, rec, MimeEnrichment)
}

// MimeType returns the mime type the record is stored with.
func (a *StoreAction) MimeType() string { return a.mimeType }

// Perform implements engine.Action.
func (a *StoreAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("mimeType", a.mimeType != "").err(); err != nil {
		return nil, err
	}
	rec := a.record.Clone()
	rec.Sort()
	if slices.Contains(stampedAgencies, rec.AgencyIDInt()) {
		rec.SetModified(a.rc.Now().In(engine.CopenhagenLocation()))
	}
	if err := a.save(ctx, rec, false); err != nil {
		return nil, err
	}
	return result.OK(), nil
}

func (a *StoreAction) save(ctx context.Context, rec *marc.Record, deleted bool) error {
	row := &store.Record{
		ID:         rec.ID(),
		Content:    rec,
		MimeType:   a.mimeType,
		Deleted:    deleted,
		Modified:   a.rc.Now(),
		TrackingID: a.rc.TrackingID(),
	}
	// The requested creation time applies to the request record only; the
	// store keeps the creation time of records that already exist.
	if created := a.rc.CreatedOverride(); !created.IsZero() && row.ID == a.rc.Record().ID() {
		row.Created = created
	}
	if err := a.env.Repo.Save(ctx, row); err != nil {
		return fmt.Errorf("store %s: %w", row.ID, err)
	}
	engine.Logger(ctx).Info("record stored", "id", row.ID.String(), "mimetype", row.MimeType, "deleted", deleted)
	return nil
}

// DeleteAction marks the stored version of a record as deleted.
type DeleteAction struct {
	StoreAction
}

func newDelete(env *Env, rc RequestContext, rec *marc.Record) *DeleteAction {
	mimeType := MimeMarcXChange
	if rec.AgencyIDInt() == ArticleAgency {
		mimeType = MimeArticle
	}
	return newDeleteWithMimeType(env, rc, rec, mimeType)
}

func newDeleteWithMimeType(env *Env, rc RequestContext, rec *marc.Record, mimeType string) *DeleteAction {
	a := &DeleteAction{StoreAction: *newStore(env, rc, rec, mimeType)}
	a.kind = KindDelete
	return a
}

// Perform implements engine.Action.
func (a *DeleteAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("mimeType", a.mimeType != "").err(); err != nil {
		return nil, err
	}
	current, err := a.env.fetchContent(ctx, a.record.ID())
	if err != nil {
		return nil, err
	}
	if !current.HasField("004") {
		current.CopyFieldsFrom(a.record, "004")
	}
	current.MarkForDeletion()
	current.SetModified(a.rc.Now().In(engine.CopenhagenLocation()))
	current.Sort()
	if err := a.save(ctx, current, true); err != nil {
		return nil, err
	}
	return result.OK(), nil
}

// LinkAction replaces the outgoing relations of a record with one relation
// to target.
type LinkAction struct {
	base
	target marc.RecordID
}

func newLink(env *Env, rc RequestContext, rec *marc.Record, target marc.RecordID) *LinkAction {
	return &LinkAction{base: newBase(KindLink, env, rc, rec), target: target}
}

// newLinkParent links a volume to its head record.
func newLinkParent(env *Env, rc RequestContext, rec *marc.Record) *LinkAction {
	return newLink(env, rc, rec, marc.NewRecordID(rec.ParentID(), rec.ParentAgencyID()))
}

// Target returns the record linked to.
func (a *LinkAction) Target() marc.RecordID { return a.target }

// Perform implements engine.Action.
func (a *LinkAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("target", a.target.BibliographicRecordID != "").err(); err != nil {
		return nil, err
	}
	id := a.record.ID()
	ok, err := a.env.Repo.Exists(ctx, a.target)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", id, err)
	}
	if !ok {
		return failed(a.env.msg("reference.record.not.exist",
			id.BibliographicRecordID, id.AgencyID, a.target.BibliographicRecordID, a.target.AgencyID)), nil
	}
	if err := a.env.Repo.Link(ctx, id, a.target); err != nil {
		return nil, fmt.Errorf("link %s -> %s: %w", id, a.target, err)
	}
	engine.Logger(ctx).Info("relation set", "from", id.String(), "to", a.target.String())
	return result.OK(), nil
}

// LinkAuthorityAction adds a relation to every authority record the record
// refers to.
type LinkAuthorityAction struct {
	base
}

func newLinkAuthority(env *Env, rc RequestContext, rec *marc.Record) *LinkAuthorityAction {
	return &LinkAuthorityAction{base: newBase(KindLinkAuthority, env, rc, rec)}
}

// Perform implements engine.Action.
func (a *LinkAuthorityAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	from := a.record.ID()
	for _, ref := range authorityReferences(a.record) {
		ok, err := a.env.Repo.Exists(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("authority %s: %w", ref, err)
		}
		if !ok {
			return failed(a.env.msg("auth.record.doesnt.exist", ref.BibliographicRecordID, ref.AgencyID)), nil
		}
		if err := a.env.Repo.LinkAppend(ctx, from, ref); err != nil {
			return nil, fmt.Errorf("link %s -> %s: %w", from, ref, err)
		}
	}
	return result.OK(), nil
}

// authorityReferences returns the authority records named in subfields 5
// and 6 of the authority fields, in record order without repeats.
func authorityReferences(rec *marc.Record) []marc.RecordID {
	var out []marc.RecordID
	seen := map[marc.RecordID]bool{}
	for _, f := range rec.Fields {
		if !isAuthorityField(f.Name) {
			continue
		}
		id, agency := f.Value("5"), f.Value("6")
		if id == "" || agency == "" {
			continue
		}
		n, err := strconv.Atoi(agency)
		if err != nil {
			continue
		}
		ref := marc.NewRecordID(id, n)
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

func isAuthorityField(name string) bool {
	return slices.Contains(authorityFields, name)
}

// RemoveLinksAction removes every outgoing relation of a record.
type RemoveLinksAction struct {
	base
}

func newRemoveLinks(env *Env, rc RequestContext, rec *marc.Record) *RemoveLinksAction {
	return &RemoveLinksAction{base: newBase(KindRemoveLinks, env, rc, rec)}
}

// Perform implements engine.Action.
func (a *RemoveLinksAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	if err := a.env.Repo.RemoveLinks(ctx, a.record.ID()); err != nil {
		return nil, fmt.Errorf("remove links %s: %w", a.record.ID(), err)
	}
	return result.OK(), nil
}

// EnqueueAction notifies downstream consumers that a record changed.
type EnqueueAction struct {
	base
}

func newEnqueue(env *Env, rc RequestContext, rec *marc.Record) *EnqueueAction {
	return &EnqueueAction{base: newBase(KindEnqueue, env, rc, rec)}
}

// newEnqueueID enqueues a record known only by its id.
func newEnqueueID(env *Env, rc RequestContext, id marc.RecordID) *EnqueueAction {
	return newEnqueue(env, rc, idRecord(id))
}

// idRecord is a record holding only 001a and 001b.
func idRecord(id marc.RecordID) *marc.Record {
	return marc.NewRecord(marc.NewField("001", "a", id.BibliographicRecordID, "b", librules.AgencyString(id.AgencyID)))
}

// Perform implements engine.Action.
func (a *EnqueueAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	provider := a.provider()
	if provider == "" {
		return failed(a.env.msg("provider.id.not.set")), nil
	}
	priority := a.env.Settings.DefaultPriority
	if p := a.rc.PriorityOverride(); p > 0 {
		priority = p
	}
	id := a.record.ID()

	if id.AgencyID == DBCEnrichment {
		err := a.env.Repo.Enqueue(ctx, store.QueueJob{
			Provider: provider, ID: id, Changed: true, Leaf: true, Priority: priority, Queued: a.rc.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", id, err)
		}
		return result.OK(), nil
	}

	if err := a.env.Repo.ChangedRecord(ctx, provider, id, priority); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", id, err)
	}
	if id.AgencyID == ArticleAgency {
		children, err := a.env.Repo.Children(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("children of %s: %w", id, err)
		}
		if len(children) > 0 {
			enrichment := marc.NewRecordID(id.BibliographicRecordID, DBCEnrichment)
			err := a.env.Repo.Enqueue(ctx, store.QueueJob{
				Provider: provider, ID: enrichment, Changed: true, Leaf: true, Priority: priority, Queued: a.rc.Now(),
			})
			if err != nil {
				return nil, fmt.Errorf("enqueue %s: %w", enrichment, err)
			}
		}
	}
	engine.Logger(ctx).Info("record enqueued", "id", id.String(), "provider", provider, "priority", priority)
	return result.OK(), nil
}

// provider picks the queue provider from the client override or the
// library group.
func (a *EnqueueAction) provider() string {
	if p := a.rc.ProviderOverride(); p != "" {
		return p
	}
	s := a.env.Settings
	switch g := a.rc.LibraryGroup(); {
	case g.IsDBC() || g.IsSBCI():
		return s.ProviderDBC
	case g.IsPH():
		return s.ProviderPH
	default:
		return s.ProviderFBS
	}
}

// EnqueuePHHoldingsAction tells the PH holdings consumer that a common
// record held by a PH library changed.
type EnqueuePHHoldingsAction struct {
	base
	agency int
}

func newEnqueuePHHoldings(env *Env, rc RequestContext, rec *marc.Record, agency int) *EnqueuePHHoldingsAction {
	return &EnqueuePHHoldingsAction{base: newBase(KindEnqueuePHHoldings, env, rc, rec), agency: agency}
}

// Perform implements engine.Action.
func (a *EnqueuePHHoldingsAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("agency", a.agency != 0).err(); err != nil {
		return nil, err
	}
	provider := a.env.Settings.ProviderPHHoldings
	if provider == "" {
		return failed(a.env.msg("provider.id.not.set")), nil
	}
	id := marc.NewRecordID(a.record.RecordID(), a.agency)
	if err := a.env.Repo.ChangedRecord(ctx, provider, id, a.env.Settings.DefaultPriority); err != nil {
		return nil, fmt.Errorf("enqueue ph holdings %s: %w", id, err)
	}
	return result.OK(), nil
}

// phHoldingsActions returns one EnqueuePHHoldings per PH library holding
// the record.
func phHoldingsActions(ctx context.Context, env *Env, rc RequestContext, rec *marc.Record) ([]engine.Action, error) {
	holders, err := env.Holdings.AgenciesWithHoldings(ctx, rec.RecordID())
	if err != nil {
		return nil, fmt.Errorf("holdings for %s: %w", rec.RecordID(), err)
	}
	var out []engine.Action
	for _, agency := range sortedInts(holders) {
		group, err := env.Rules.LibraryGroup(ctx, librules.AgencyString(agency))
		if err != nil {
			return nil, fmt.Errorf("library group of %d: %w", agency, err)
		}
		if group.IsPH() {
			out = append(out, newEnqueuePHHoldings(env, rc, rec, agency))
		}
	}
	return out, nil
}
