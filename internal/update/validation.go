package update

import (
	"context"
	"fmt"

	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/validate"
)

// ValidateOperationAction groups the checks every request passes before
// anything is written, and is all that runs for validate-only requests.
type ValidateOperationAction struct {
	base
}

func newValidateOperation(env *Env, rc RequestContext) *ValidateOperationAction {
	return &ValidateOperationAction{base: newBase(KindValidateOperation, env, rc, rc.Record())}
}

// Perform implements engine.Action.
func (a *ValidateOperationAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	a.add(
		newAuthenticateUser(a.env, a.rc),
		newValidateSchema(a.env, a.rc),
	)
	possible, err := doubleRecordPossible(ctx, a.env, a.rc, a.record)
	if err != nil {
		return nil, err
	}
	if possible && a.rc.LibraryGroup().IsFBS() && a.rc.DoubleRecordKey() == "" {
		a.add(newDoubleRecordFrontendAndValidate(a.env, a.rc))
	} else {
		a.add(newValidateRecord(a.env, a.rc))
	}
	return result.OK(), nil
}

// doubleRecordPossible reports whether rec is a new common record sent by
// a library outside DBC, the only records checked for duplicates.
func doubleRecordPossible(ctx context.Context, env *Env, rc RequestContext, rec *marc.Record) (bool, error) {
	if rec.RecordID() == "" || rec.AgencyID() == "" || rec.MarkedForDeletion() {
		return false, nil
	}
	if rc.LibraryGroup().IsDBC() || rec.AgencyIDInt() != CommonAgency {
		return false, nil
	}
	exists, err := env.Repo.Exists(ctx, rec.ID())
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", rec.ID(), err)
	}
	return !exists, nil
}

// AuthenticateUserAction checks the user, group and password of the
// request.
type AuthenticateUserAction struct {
	base
}

func newAuthenticateUser(env *Env, rc RequestContext) *AuthenticateUserAction {
	return &AuthenticateUserAction{base: newBase(KindAuthenticateUser, env, rc, nil)}
}

// Perform implements engine.Action.
func (a *AuthenticateUserAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := requireFields(a.kind).check("env", a.env != nil).err(); err != nil {
		return nil, err
	}
	creds := a.rc.Credentials()
	switch {
	case creds.User == "" && creds.Group == "" && creds.Password == "":
		return result.AuthError(a.env.msg("auth.user.missing.arguments")), nil
	case creds.User == "":
		return result.AuthError(a.env.msg("auth.user.missing.username")), nil
	case creds.Group == "":
		return result.AuthError(a.env.msg("auth.user.missing.groupname")), nil
	case creds.Password == "":
		return result.AuthError(a.env.msg("auth.user.missing.password")), nil
	}
	ok, err := a.env.Auth.Verify(ctx, creds)
	if err != nil {
		return result.AuthError(a.env.msg("authentication.error", err)), nil
	}
	if !ok {
		return result.AuthError(""), nil
	}
	return result.OK(), nil
}

// ValidateSchemaAction checks that the validation template exists and the
// library group may use it.
type ValidateSchemaAction struct {
	base
}

func newValidateSchema(env *Env, rc RequestContext) *ValidateSchemaAction {
	return &ValidateSchemaAction{base: newBase(KindValidateSchema, env, rc, nil)}
}

// Perform implements engine.Action.
func (a *ValidateSchemaAction) Perform(context.Context) (*result.Result, error) {
	if err := requireFields(a.kind).check("env", a.env != nil).err(); err != nil {
		return nil, err
	}
	if a.rc.Schema() == "" {
		return failed("validateSchema must not be empty"), nil
	}
	if a.rc.GroupID() == "" {
		return failed("groupId must not be empty"), nil
	}
	if !a.env.Templates.Has(a.rc.Schema(), string(a.rc.LibraryGroup())) {
		return failed(a.env.msg("update.schema.not.found", a.rc.Schema())), nil
	}
	return result.OK(), nil
}

// ValidateRecordAction checks the record against its template.
type ValidateRecordAction struct {
	base
}

func newValidateRecord(env *Env, rc RequestContext) *ValidateRecordAction {
	return &ValidateRecordAction{base: newBase(KindValidateRecord, env, rc, rc.Record())}
}

// Perform implements engine.Action.
func (a *ValidateRecordAction) Perform(context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	return validateRecord(a.env, a.rc, a.record), nil
}

func validateRecord(env *Env, rc RequestContext, rec *marc.Record) *result.Result {
	tmpl, ok := env.Templates.Get(rc.Schema())
	if !ok {
		return failed(env.msg("update.schema.not.found", rc.Schema()))
	}
	return violationsResult(tmpl.Validate(rec))
}

// violationsResult turns template violations into error entries located
// at their field and subfield.
func violationsResult(violations []validate.Violation) *result.Result {
	if len(violations) == 0 {
		return result.OK()
	}
	res := result.WithStatus(result.StatusValidationError)
	for _, v := range violations {
		res.Add(result.Entry{
			Severity: result.SeverityError,
			Message:  v.Message,
			Field:    v.Field,
			Subfield: v.Subfield,
			Ordinal:  v.Ordinal,
		})
	}
	return res
}

// DoubleRecordFrontendAndValidateAction runs the duplicate check and the
// record validation together so a library sees duplicates and validation
// errors in one answer.
type DoubleRecordFrontendAndValidateAction struct {
	base
}

func newDoubleRecordFrontendAndValidate(env *Env, rc RequestContext) *DoubleRecordFrontendAndValidateAction {
	return &DoubleRecordFrontendAndValidateAction{base: newBase(KindDoubleRecordFrontendAndValidate, env, rc, rc.Record())}
}

// Perform implements engine.Action.
func (a *DoubleRecordFrontendAndValidateAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	res, err := newDoubleRecordFrontend(a.env, a.rc, a.record).Perform(ctx)
	if err != nil {
		return nil, err
	}
	res.Merge(validateRecord(a.env, a.rc, a.record))
	return res, nil
}
