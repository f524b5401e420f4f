package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)
	require.NotEmpty(t, reg.Models)

	for _, m := range reg.Models {
		require.NotEmpty(t, m.Name)
		require.NotEmpty(t, m.URL)
		require.Regexp(t, `^sha256:[0-9a-f]{64}$`, m.Checksum)
		require.Positive(t, m.SizeBytes)
		require.NotEmpty(t, m.EntityTypes)
	}
}

func TestRegistryFind(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	m, ok := reg.Find("ner_en")
	require.True(t, ok)
	require.Equal(t, "en", m.Language)

	_, ok = reg.Find("does_not_exist")
	require.False(t, ok)
}

func TestRegistryDefaultModel(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)
	m, ok := reg.DefaultModel()
	require.True(t, ok)
	require.Equal(t, "ner_en", m.Name)
}

func TestIsInstalled(t *testing.T) {
	root := t.TempDir()
	m := Spec{Name: "ner_en"}
	require.False(t, IsInstalled(root, m))

	dir := InstallPath(root, m.Name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range []string{"model.onnx", "labels.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
	}
	require.False(t, IsInstalled(root, m), "tokenizer.json still missing")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer.json"), []byte("x"), 0o644))
	require.True(t, IsInstalled(root, m))
}

func TestValidateDirFlattensNestedLayout(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "ner_en")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	for _, f := range requiredFiles {
		require.NoError(t, os.WriteFile(filepath.Join(nested, f), []byte("x"), 0o644))
	}

	require.NoError(t, ValidateDir(dir))
	for _, f := range requiredFiles {
		_, err := os.Stat(filepath.Join(dir, f))
		require.NoError(t, err, "expected %s at top level after validation", f)
	}
}

func TestValidateDirMissingFiles(t *testing.T) {
	require.ErrorContains(t, ValidateDir(t.TempDir()), "missing required model files")
}
