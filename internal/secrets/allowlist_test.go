package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAllowList(t *testing.T) {
	path := writeFile(t, "allowlist.toml", `
[allowlist]
global = ["fixture-token"]

[allowlist.rules]
PASSWORD = ["hunter2"]
`)

	list, err := LoadAllowList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixture-token"}, list.Global)
	assert.Equal(t, []string{"hunter2"}, list.Rules[TypePassword])

	reg, err := NewRegistry(DefaultRules(), list)
	require.NoError(t, err)
	pw, _ := reg.Lookup(TypePassword)
	assert.Empty(t, pw.FindAll("password=HUNTER2"))
	assert.Empty(t, pw.FindAll("password=fixture-token"))
}

func TestLoadAllowList_Missing(t *testing.T) {
	list, err := LoadAllowList("")
	require.NoError(t, err)
	assert.Empty(t, list.Global)
	assert.NotNil(t, list.Rules)

	list, err = LoadAllowList(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Empty(t, list.Global)
}

func TestLoadAllowList_Malformed(t *testing.T) {
	path := writeFile(t, "bad.toml", "[allowlist\nglobal = ")

	_, err := LoadAllowList(path)
	assert.ErrorIs(t, err, ErrInvalidTOML)
}
