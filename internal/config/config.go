package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the CLI and pipeline need. Values come from the
// config file, TERN_* environment variables, and defaults, in rising
// precedence of env over file.
type Config struct {
	// Model selects a registry model by name; empty means the registry's
	// default entry.
	Model     string        `mapstructure:"model"`
	ModelsDir string        `mapstructure:"models_dir"`
	MaxBytes  int           `mapstructure:"max_bytes"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MinScore  float64       `mapstructure:"min_score"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFile   string        `mapstructure:"log_file"`
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tern", "config.yaml"), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error; defaults and environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("model", "")
	v.SetDefault("models_dir", "")
	v.SetDefault("max_bytes", 32*1024)
	v.SetDefault("timeout", "30s")
	v.SetDefault("min_score", 0.0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || (!errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist)) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 32 * 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.ModelsDir = expandHome(cfg.ModelsDir)
	return cfg, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
