package messages

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Format(t *testing.T) {
	c := Default()

	assert.Equal(t, "Record 123456789 cannot be deleted because it has child records",
		c.Format("delete.record.children.error", "123456789"))
	assert.Equal(t, "Record 1:870970 refers to 2:870970 which does not exist",
		c.Format("reference.record.not.exist", "1", 870970, "2", 870970))
}

func TestGet_UnknownKey(t *testing.T) {
	c := Default()
	assert.False(t, c.Has("no.such.key"))
	assert.Equal(t, "no.such.key", c.Get("no.such.key"))
}

func TestLoad_Overlay(t *testing.T) {
	c, err := Load(strings.NewReader(`provider.id.not.set: "Ingen provider"`))
	require.NoError(t, err)

	assert.Equal(t, "Ingen provider", c.Get("provider.id.not.set"))
	assert.True(t, c.Has("delete.record.children.error"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(strings.NewReader("- not\n- a map"))
	assert.Error(t, err)
}

func TestLoadFile_EmptyPath(t *testing.T) {
	c, err := LoadFile("")
	require.NoError(t, err)
	assert.True(t, c.Has("update.schema.not.found"))
}
