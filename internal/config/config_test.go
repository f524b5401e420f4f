package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "explicit path that does not exist should fail")

	// Default path missing is fine: point HOME at an empty dir.
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	require.Empty(t, cfg.Model, "empty model defers to the registry default")
	require.Equal(t, 32*1024, cfg.MaxBytes)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: ner_multi
models_dir: /opt/tern/models
max_bytes: 1024
timeout: 5s
min_score: 0.6
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ner_multi", cfg.Model)
	require.Equal(t, "/opt/tern/models", cfg.ModelsDir)
	require.Equal(t, 1024, cfg.MaxBytes)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.InDelta(t, 0.6, cfg.MinScore, 1e-9)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: ner_en\n"), 0o644))
	t.Setenv("TERN_MODEL", "ner_multi")
	t.Setenv("TERN_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ner_multi", cfg.Model)
	require.Equal(t, "error", cfg.LogLevel)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models_dir: ~/models\nlog_file: ~/tern.log\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "models"), cfg.ModelsDir)
	require.Equal(t, filepath.Join(home, "tern.log"), cfg.LogFile)
}

func TestLoadClampsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_bytes: -5\ntimeout: 0s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 32*1024, cfg.MaxBytes)
	require.Equal(t, 30*time.Second, cfg.Timeout)
}
