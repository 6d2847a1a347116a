package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFile writes content to name in dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newDatabase returns the path of a fresh database with the DBC user
// cat/secret.
func newDatabase(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "records.db")
	_, err := run(t, "--db", db, "user", "add", "--user", "cat", "--group", "010100", "--password", "secret")
	require.NoError(t, err)
	return db
}

const dbcRequest = `authentication: {user: cat, group: "010100", password: secret}
schema: allowall
record: |
  001 00 *a90000001 *b870970
  004 00 *rn *ae
  245 00 *aFællespost
  996 00 *aDBC
`
