package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

func TestRequest_DecodeRecord(t *testing.T) {
	lines := &Request{Record: "001 00 *a12345678 *b870970"}
	rec, err := lines.DecodeRecord()
	require.NoError(t, err)
	assert.Equal(t, marc.NewRecordID("12345678", 870970), rec.ID())

	data, err := marc.Encode(rec)
	require.NoError(t, err)
	packed := &Request{RecordPacking: PackingJSON, Record: string(data)}
	decoded, err := packed.DecodeRecord()
	require.NoError(t, err)
	assert.Equal(t, rec.ID(), decoded.ID())

	_, err = (&Request{RecordPacking: "xml", Record: "<record/>"}).DecodeRecord()
	assert.Error(t, err)
}

func TestRequest_ValidateOnly(t *testing.T) {
	assert.False(t, (&Request{}).ValidateOnly())
	assert.True(t, (&Request{Options: []string{OptionValidateOnly}}).ValidateOnly())
	assert.Empty(t, (&Request{}).Credentials().User)
}

func TestUpdateRequest_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		request    Request
		message    func(f *fixture) string
	}{
		{
			name:       "test agency in production",
			production: true,
			request:    Request{Schema: "allowall", Record: dbcRecord, Authentication: credentials("131010")},
			message:    func(f *fixture) string { return f.env.msg("agency.is.not.allowed.for.this.instance", "131010") },
		},
		{
			name:    "missing record",
			request: Request{Schema: "allowall", Authentication: credentials("010100")},
			message: func(f *fixture) string { return f.env.msg("request.record.is.missing") },
		},
		{
			name:    "missing record id",
			request: Request{Schema: "allowall", Record: "001 00 *b870970", Authentication: credentials("010100")},
			message: func(f *fixture) string { return f.env.msg("sanity.check.failed", "001a is missing") },
		},
		{
			name:    "agency is not a number",
			request: Request{Schema: "allowall", Record: "001 00 *a1234 *bDBC", Authentication: credentials("010100")},
			message: func(f *fixture) string {
				return f.env.msg("sanity.check.failed", `001b "DBC" is not an agency`)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.env.Settings.Production = tt.production

			exec := f.run(NewUpdateRequest(f.env, &tt.request, "track-1", testNow))

			assert.Equal(t, result.StatusFailed, exec.Result.Status)
			assert.Equal(t, []string{tt.message(f)}, exec.Result.Messages())
			assert.Empty(t, exec.Root.Children)
		})
	}
}

func TestUpdateRequest_InvalidFields(t *testing.T) {
	f := newFixture(t)
	req := &Request{
		Schema:         "allowall",
		Record:         dbcRecord,
		RecordPacking:  "xml",
		Options:        []string{"dry_run"},
		Authentication: credentials("010100"),
	}

	exec := f.run(NewUpdateRequest(f.env, req, "track-1", testNow))

	assert.Equal(t, result.StatusFailed, exec.Result.Status)
	require.Len(t, exec.Result.Messages(), 1)
	assert.Contains(t, exec.Result.Messages()[0], "RecordPacking")
	assert.Contains(t, exec.Result.Messages()[0], "Options[0]")
}

func TestUpdateRequest_BuildsContext(t *testing.T) {
	f := newFixture(t)
	req := &Request{
		Schema:          "allowall",
		Record:          dbcRecord,
		Authentication:  credentials("010100"),
		DoubleRecordKey: "key-9",
		Options:         []string{OptionValidateOnly},
	}
	root := NewUpdateRequest(f.env, req, "track-7", testNow)

	exec := f.run(root)

	assert.Equal(t, result.StatusAuthFailed, exec.Result.Status, "no user was added")
	rc := root.Context()
	assert.Equal(t, "track-7", rc.TrackingID())
	assert.Equal(t, "010100", rc.GroupID())
	assert.Equal(t, "key-9", rc.DoubleRecordKey())
	assert.True(t, rc.ValidateOnly())
	assert.True(t, rc.LibraryGroup().IsDBC())
}

func credentials(group string) *auth.Credentials {
	return &auth.Credentials{User: "tester", Group: group, Password: "secret"}
}
