package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesWithPrecedence(t *testing.T) {
	dir := t.TempDir()
	itoPath := filepath.Join(dir, ".ito")
	require.NoError(t, os.MkdirAll(itoPath, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ito.json"), []byte(`{
		"$schema": "ignored",
		"ralph": {"validationCommands": ["should not win"]}
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(itoPath, "config.json"), []byte(`{
		"ralph": {"validationCommands": ["make test"], "errorThreshold": 3}
	}`), 0o644))

	doc, err := Load(dir, itoPath)
	require.NoError(t, err)

	cmds, ok := Pointer(doc, "/ralph/validationCommands")
	require.True(t, ok)
	assert.Equal(t, []any{"make test"}, cmds)

	threshold, ok := Pointer(doc, "/ralph/errorThreshold")
	require.True(t, ok)
	assert.Equal(t, float64(3), threshold)

	_, ok = doc["$schema"].(string)
	assert.False(t, ok)
}

func TestLoadProjectDirOverlayWinsHighest(t *testing.T) {
	dir := t.TempDir()
	itoPath := filepath.Join(dir, ".ito")
	require.NoError(t, os.MkdirAll(itoPath, 0o755))
	projectDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(itoPath, "config.json"), []byte(`{
		"ralph": {"errorThreshold": 3}
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.json"), []byte(`{
		"ralph": {"errorThreshold": 9}
	}`), 0o644))

	t.Setenv("PROJECT_DIR", projectDir)

	doc, err := Load(dir, itoPath)
	require.NoError(t, err)

	threshold, ok := Pointer(doc, "/ralph/errorThreshold")
	require.True(t, ok)
	assert.Equal(t, float64(9), threshold)
}

func TestLoadMissingFilesYieldsEmptyDoc(t *testing.T) {
	dir := t.TempDir()
	doc, err := Load(dir, filepath.Join(dir, ".ito"))
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestPointerResolvesNestedPaths(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"b": "value"},
	}
	v, ok := Pointer(doc, "/a/b")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = Pointer(doc, "/a/missing")
	assert.False(t, ok)
}

func TestFindProjectRootWalksUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".ito"), 0o755))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested, ".ito")
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRootNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := FindProjectRoot(dir, ".ito")
	assert.Error(t, err)
}
