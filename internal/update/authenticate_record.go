package update

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// AuthenticateRecordAction checks that the library sending the request
// may change the record.
type AuthenticateRecordAction struct {
	base
}

func newAuthenticateRecord(env *Env, rc RequestContext, rec *marc.Record) *AuthenticateRecordAction {
	return &AuthenticateRecordAction{base: newBase(KindAuthenticateRecord, env, rc, rec)}
}

// Perform implements engine.Action.
func (a *AuthenticateRecordAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().check("group", a.rc.GroupID() != "").err(); err != nil {
		return nil, err
	}
	group := a.rc.GroupID()
	rec := a.record

	root, err := a.env.Rules.HasCapability(ctx, group, librules.AuthRoot)
	if err != nil {
		return a.internal(err), nil
	}
	if root || group == rec.AgencyID() {
		return result.OK(), nil
	}

	if rec.AgencyIDInt() == CommonAgency {
		message, err := a.authenticateCommon(ctx)
		if err != nil {
			return a.internal(err), nil
		}
		if message == "" {
			message, err = a.authenticateMetaCompass(ctx)
			if err != nil {
				return a.internal(err), nil
			}
		}
		if message != "" {
			return failed(message), nil
		}
		return result.OK(), nil
	}

	if n, err := strconv.Atoi(group); err == nil && IsSchoolAgency(n) && rec.AgencyIDInt() == SchoolCommonAgency {
		return result.OK(), nil
	}
	return failed(a.env.msg("edit.record.other.library.error", rec.RecordID())), nil
}

func (a *AuthenticateRecordAction) internal(err error) *result.Result {
	return failed(a.env.msg("internal.authenticate.record.error", err))
}

// authenticateCommon applies the owner (996a) rules of common records. It
// returns the message of the first rule broken, or "".
func (a *AuthenticateRecordAction) authenticateCommon(ctx context.Context) (string, error) {
	rec := a.record
	id := rec.ID()
	group := a.rc.GroupID()
	owner := rec.Owner()

	exists, err := a.env.Repo.Exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("exists %s: %w", id, err)
	}
	if !exists {
		switch {
		case owner == "":
			return a.env.msg("create.common.record.error"), nil
		case owner != group:
			return a.env.msg("create.common.record.other.library.error"), nil
		}
		return "", nil
	}

	current, err := a.env.fetchContent(ctx, id)
	if err != nil {
		return "", err
	}
	currentOwner := current.Owner()

	switch currentOwner {
	case ownerDBC:
		ok, err := a.env.Rules.HasCapability(ctx, group, librules.AuthDBCRecords)
		if err != nil || ok {
			return "", err
		}
		return a.env.msg("update.common.record.owner.dbc.error"), nil
	case ownerRET:
		ok, err := a.env.Rules.HasCapability(ctx, group, librules.AuthRetRecord)
		if err != nil {
			return "", err
		}
		if !ok {
			return a.env.msg("update.common.record.error"), nil
		}
		if current.Value("008", "v") == "4" && !slices.Contains([]string{"0", "1", "5"}, rec.Value("008", "v")) {
			return a.env.msg("update.common.record.katalogiseringsniveau.error"), nil
		}
		return "", nil
	}

	if owner == "" {
		return a.env.msg("update.common.record.error"), nil
	}
	if currentOwner == ownerFreeLibrary && (group != ownerFreeLibrary || owner != ownerFreeLibrary) {
		return a.env.msg("update.common.record.change.record.700300"), nil
	}

	public, err := a.env.Rules.HasCapability(ctx, currentOwner, librules.AuthPublicLibCommonRecord)
	if err != nil {
		return "", err
	}
	if public {
		if owner != group {
			return a.env.msg("update.common.record.give.public.library.error"), nil
		}
		ok, err := a.env.Rules.HasCapability(ctx, group, librules.AuthPublicLibCommonRecord)
		if err != nil {
			return "", err
		}
		if !ok {
			return a.env.msg("update.common.record.take.public.library.error"), nil
		}
		return "", nil
	}

	if owner != group || group != currentOwner {
		return a.env.msg("update.common.record.other.library.error"), nil
	}
	return "", nil
}

// authenticateMetaCompass requires AUTH_METACOMPASS to add, change or
// remove field 665.
func (a *AuthenticateRecordAction) authenticateMetaCompass(ctx context.Context) (string, error) {
	rec := a.record
	id := rec.ID()
	incoming, has := rec.Field("665")

	exists, err := a.env.Repo.Exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("exists %s: %w", id, err)
	}
	changed := has
	if exists {
		current, err := a.env.fetchContent(ctx, id)
		if err != nil {
			return "", err
		}
		stored, had := current.Field("665")
		changed = has != had || (has && !incoming.Equal(stored))
	}
	if !changed {
		return "", nil
	}
	ok, err := a.env.Rules.HasCapability(ctx, a.rc.GroupID(), librules.AuthMetaCompass)
	if err != nil || ok {
		return "", err
	}
	return a.env.msg("missing.auth.meta.compass"), nil
}
