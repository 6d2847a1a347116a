package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/doublerecord"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

const libraryRecord = `001 00 *a80000001 *b870970
004 00 *rn *ae
245 00 *aNy bog
996 00 *a710100`

const dbcRecord = `001 00 *a90000001 *b870970
004 00 *rn *ae
245 00 *aFællespost
996 00 *aDBC`

func (f *fixture) request(group, lines string) *Request {
	f.t.Helper()
	f.addUser("tester", group, "secret")
	return &Request{
		Authentication: &auth.Credentials{User: "tester", Group: group, Password: "secret"},
		Schema:         "allowall",
		Record:         lines,
	}
}

func TestService_DoubleRecordIssuesKey(t *testing.T) {
	f := newFixture(t)
	f.checker.verdict = doublerecord.Verdict{
		Status:     doublerecord.StatusDoubleRecord,
		Candidates: []result.Candidate{{PID: "870970-basis:12345678", Message: "Same title"}},
	}

	resp, err := f.service().Update(f.ctx, f.request("710100", libraryRecord))
	require.NoError(t, err)

	assert.Equal(t, "track-1", resp.TrackingID)
	assert.Equal(t, result.StatusDoubleRecord, resp.Status)
	assert.Equal(t, "key-1", resp.DoubleRecordKey)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "870970-basis:12345678", resp.Entries[0].Duplicate.PID)
	assert.NotContains(t, resp.Tree.Names(), "UpdateOperation")
	assert.False(t, f.exists("80000001", CommonAgency))
}

func TestService_ResubmitWithKeyStoresRecord(t *testing.T) {
	f := newFixture(t)
	f.checker.verdict = doublerecord.Verdict{
		Status:     doublerecord.StatusDoubleRecord,
		Candidates: []result.Candidate{{PID: "870970-basis:12345678"}},
	}
	svc := f.service()
	req := f.request("710100", libraryRecord)

	first, err := svc.Update(f.ctx, req)
	require.NoError(t, err)
	require.Equal(t, result.StatusDoubleRecord, first.Status)

	req.DoubleRecordKey = first.DoubleRecordKey
	resp, err := svc.Update(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, result.StatusOK, resp.Status)
	require.Len(t, resp.Tree.Children, 2)
	operation := resp.Tree.Children[1]
	assert.Equal(t, []string{"AuthenticateRecord", "UpdateCommon", "DoubleRecordChecking"}, operation.ChildNames())
	assert.True(t, f.exists("80000001", CommonAgency))
	assert.Equal(t, []marc.RecordID{marc.NewRecordID("80000001", CommonAgency)}, f.checker.notified)
}

func TestService_DuplicateCheckRunsOncePerRequest(t *testing.T) {
	f := newFixture(t)

	resp, err := f.service().Update(f.ctx, f.request("710100", libraryRecord))
	require.NoError(t, err)

	assert.Equal(t, result.StatusOK, resp.Status)
	assert.Equal(t, 1, f.checker.frontends)
	assert.Equal(t, 1, countNames(resp.Tree.Names(), "DoubleRecordFrontendAndValidate"))
	assert.NotContains(t, resp.Tree.Names(), "DoubleRecordFrontend")
	assert.True(t, f.exists("80000001", CommonAgency))
}

func TestUpdateOperation_UnvalidatedRequestChecksDuplicates(t *testing.T) {
	f := newFixture(t)
	rec := f.record(libraryRecord)

	exec := f.run(newUpdateOperation(f.env, f.rc("710100", rec)))

	assert.Equal(t, 1, f.checker.frontends)
	assert.Contains(t, exec.Root.ChildNames(), "DoubleRecordFrontend")
}

func countNames(names []string, name string) int {
	n := 0
	for _, s := range names {
		if s == name {
			n++
		}
	}
	return n
}

func TestService_UnknownKeyStoresNothing(t *testing.T) {
	f := newFixture(t)
	req := f.request("710100", libraryRecord)
	req.DoubleRecordKey = "forged"

	resp, err := f.service().Update(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, result.StatusFailed, resp.Status)
	assert.Equal(t, []string{f.env.msg("double.record.frontend.unknown.key", "forged")}, resp.Messages())
	assert.False(t, f.exists("80000001", CommonAgency))
}

func TestService_CheckerOutageDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.checker.err = assert.AnError

	resp, err := f.service().Update(f.ctx, f.request("710100", libraryRecord))
	require.NoError(t, err)

	assert.Equal(t, result.StatusOK, resp.Status)
	assert.True(t, f.exists("80000001", CommonAgency))
}

func TestService_ValidateOnlyWritesNothing(t *testing.T) {
	f := newFixture(t)

	resp, err := f.service().Validate(f.ctx, f.request("010100", dbcRecord))
	require.NoError(t, err)

	assert.Equal(t, result.StatusOK, resp.Status)
	assert.Equal(t, []string{"UpdateRequest", "ValidateOperation", "AuthenticateUser", "ValidateSchema", "ValidateRecord"},
		resp.Tree.Names())
	assert.False(t, f.exists("90000001", CommonAgency))
}

func TestService_DBCCreatesCommonRecord(t *testing.T) {
	f := newFixture(t)
	req := f.request("010100", dbcRecord)
	req.TrackingID = "client-42"

	resp, err := f.service().Update(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "client-42", resp.TrackingID)
	assert.Equal(t, result.StatusOK, resp.Status)
	stored := f.content("90000001", CommonAgency)
	assert.Equal(t, "20240301", stored.Value("001", "d"))
	assert.Equal(t, "Fællespost", stored.Value("245", "a"))
}

func TestService_WrongPasswordIsAuthFailure(t *testing.T) {
	f := newFixture(t)
	req := f.request("010100", dbcRecord)
	req.Authentication.Password = "wrong"

	resp, err := f.service().Update(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, result.StatusAuthFailed, resp.Status)
	assert.False(t, f.exists("90000001", CommonAgency))
}

func TestService_DeleteOfMissingRecord(t *testing.T) {
	f := newFixture(t)

	resp, err := f.service().Update(f.ctx, f.request("010100", "001 00 *a90000009 *b870970\n004 00 *rd *ae\n996 00 *aDBC"))
	require.NoError(t, err)

	assert.Equal(t, result.StatusFailed, resp.Status)
	assert.Equal(t, []string{f.env.msg("operation.delete.non.existing.record", "90000009", CommonAgency)}, resp.Messages())
}

func TestService_QueueOverride(t *testing.T) {
	f := newFixture(t)
	req := f.request("010100", dbcRecord)
	req.ExtraData = &ExtraData{Provider: "dataio-bulk", Priority: 5000}

	resp, err := f.service().Update(f.ctx, req)
	require.NoError(t, err)
	require.Equal(t, result.StatusOK, resp.Status)

	jobs, err := f.store.ReadQueue(f.ctx, "dataio-bulk")
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	assert.Equal(t, marc.NewRecordID("90000001", CommonAgency), jobs[0].ID)
	assert.Equal(t, 1000, jobs[0].Priority)
}

func TestService_UnknownProviderIsInvalidRequest(t *testing.T) {
	f := newFixture(t)
	req := f.request("010100", dbcRecord)
	req.ExtraData = &ExtraData{Provider: "nowhere"}

	resp, err := f.service().Update(f.ctx, req)
	require.Error(t, err)

	assert.True(t, engine.IsInvalidRequestError(err))
	assert.Equal(t, result.StatusInternalError, resp.Status)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, result.SeverityFatal, resp.Entries[0].Severity)
	assert.False(t, f.exists("90000001", CommonAgency))
}

func TestNewService_RequiresEnv(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)

	f := newFixture(t)
	f.env.Auth = nil
	_, err = NewService(f.env)
	assert.Error(t, err)
}
