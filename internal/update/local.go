package update

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// UpdateLocalAction stores, or deletes, a record owned by one library that
// has no common record behind it.
type UpdateLocalAction struct {
	base
	variant Variant
}

func newUpdateLocal(env *Env, rc RequestContext, rec *marc.Record, v Variant) *UpdateLocalAction {
	return &UpdateLocalAction{base: newBase(KindUpdateLocal, env, rc, rec), variant: v}
}

// Variant returns the single or volume variant.
func (a *UpdateLocalAction) Variant() Variant { return a.variant }

// Attrs implements engine.Action.
func (a *UpdateLocalAction) Attrs() []slog.Attr {
	return append(a.base.Attrs(), slog.String("variant", a.variant.String()))
}

// Perform implements engine.Action.
func (a *UpdateLocalAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	rec := a.record
	id := rec.ID()

	if rec.MarkedForDeletion() {
		return a.performDeletion(ctx)
	}

	stored, err := a.env.Repo.ExistsMaybeDeleted(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exists %s: %w", id, err)
	}
	if stored {
		live, err := a.env.Repo.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("exists %s: %w", id, err)
		}
		if !live {
			previous, err := a.env.Repo.Fetch(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", id, err)
			}
			if previous.MimeType == MimeEnrichment {
				common, err := a.env.Repo.ExistsMaybeDeleted(ctx, marc.NewRecordID(id.BibliographicRecordID, CommonAgency))
				if err != nil {
					return nil, fmt.Errorf("exists %s:%d: %w", id.BibliographicRecordID, CommonAgency, err)
				}
				if common {
					return failed(a.env.msg("create.record.with.deleted.common")), nil
				}
			}
		}
	}

	if a.variant == Volume {
		if res, err := checkParent(ctx, a.env, rec); res != nil || err != nil {
			return res, err
		}
		a.add(
			newStore(a.env, a.rc, rec, MimeMarcXChange),
			newLinkParent(a.env, a.rc, rec),
			newEnqueue(a.env, a.rc, rec),
		)
		return result.OK(), nil
	}
	a.add(
		newStore(a.env, a.rc, rec, MimeMarcXChange),
		newRemoveLinks(a.env, a.rc, rec),
		newEnqueue(a.env, a.rc, rec),
	)
	return result.OK(), nil
}

// performDeletion deletes a local record that has no children and no
// holdings of a library exporting them.
func (a *UpdateLocalAction) performDeletion(ctx context.Context) (*result.Result, error) {
	rec := a.record
	id := rec.ID()

	children, err := a.env.Repo.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	if len(children) > 0 {
		return failed(a.env.msg("delete.record.children.error", id.BibliographicRecordID)), nil
	}

	holders, err := a.env.holdingAgencies(ctx, id.BibliographicRecordID)
	if err != nil {
		return nil, err
	}
	if holders[id.AgencyID] {
		exports, err := a.env.Rules.HasCapability(ctx, rec.AgencyID(), librules.AuthExportHoldings)
		if err != nil {
			return nil, fmt.Errorf("rules of %s: %w", rec.AgencyID(), err)
		}
		if exports {
			return failed(a.env.msg("delete.local.with.holdings.error")), nil
		}
	}

	a.add(
		newRemoveLinks(a.env, a.rc, rec),
		newDelete(a.env, a.rc, rec),
		newEnqueue(a.env, a.rc, rec),
	)
	if a.variant == Volume {
		head, err := lastChildCascade(ctx, a.env, rec)
		if err != nil {
			return nil, err
		}
		if head != nil {
			a.add(newUpdateLocal(a.env, a.rc, head, VariantOf(head.HasParent())))
		}
	}
	return result.OK(), nil
}
