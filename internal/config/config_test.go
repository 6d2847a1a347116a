package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/update"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.DoubleRecord.KeyTTL)
	assert.True(t, cfg.FileBacked())
	assert.Equal(t, update.DefaultSettings(), cfg.UpdateSettings())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordupdate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: pgx
  dsn: postgres://localhost/records
instance:
  production: true
queue:
  priority:
    default: 500
doublerecord:
  key_ttl: 2h
`), 0o644))
	t.Setenv("RECORDUPDATE_QUEUE_PRIORITY_MAX", "900")
	t.Setenv("RECORDUPDATE_SEARCH_URL", "http://solr:8983/solr/records")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.False(t, cfg.FileBacked())
	assert.Equal(t, 2*time.Hour, cfg.DoubleRecord.KeyTTL)
	assert.Equal(t, "http://solr:8983/solr/records", cfg.Search.URL)

	s := cfg.UpdateSettings()
	assert.True(t, s.Production)
	assert.Equal(t, 500, s.DefaultPriority)
	assert.Equal(t, 900, s.MaxPriority)
}

func TestLoad_Invalid(t *testing.T) {
	v := New()
	v.Set(KeyDatabaseDriver, "oracle")
	v.Set(KeyPriorityMax, 10)

	_, err := Load(v, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
	assert.Contains(t, err.Error(), KeyPriorityMax)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFileBacked_Memory(t *testing.T) {
	cfg := &Config{Database: Database{Driver: DriverSQLite, DSN: ":memory:"}}
	assert.False(t, cfg.FileBacked())
}
