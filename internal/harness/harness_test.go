package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/result"
)

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			res, err := Run(s)
			require.NoError(t, err)
			assert.True(t, res.Pass, "errors: %v", res.Errors)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"create-volume", "double-record", "validate-only", "wrong-password"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			_, err = RunWithGolden(t, s)
			require.NoError(t, err)
		})
	}
}

func TestRun_FailedExpectationIsReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong-status
description: Expects ok from a request without credentials.
flow:
  - request:
      schema: allowall
      record: |
        001 00 *a90000003 *b870970
        004 00 *rn *ae
    expect:
      status: ok
assertions:
  - type: record_exists
    record: {id: "90000003", agency: 870970}
`))
	require.NoError(t, err)

	res, err := Run(s)
	require.NoError(t, err)

	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "expected status ok, got auth_failed")
	assert.Contains(t, res.Errors[1], "record_exists")
	assert.Equal(t, result.StatusAuthFailed, res.Last().Status)
}

func TestRun_ProductionRejectsTestAgency(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: production
description: A test agency is rejected by a production instance.
production: true
flow:
  - request:
      authentication: {user: u, group: "131010", password: p}
      schema: allowall
      record: |
        001 00 *a90000004 *b870970
    expect:
      status: failed
`))
	require.NoError(t, err)

	res, err := Run(s)
	require.NoError(t, err)
	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Equal(t, []string{"UpdateRequest"}, res.Names())
}
