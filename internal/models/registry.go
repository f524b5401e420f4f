package models

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

//go:embed registry.json
var embeddedRegistry []byte

// requiredFiles are the assets a usable model directory must contain.
var requiredFiles = []string{"model.onnx", "labels.json", "tokenizer.json"}

type Registry struct {
	Version string `json:"version"`
	Models  []Spec `json:"models"`
}

// Spec describes one downloadable model in the registry.
type Spec struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Version      string   `json:"version"`
	Language     string   `json:"language"`
	URL          string   `json:"url"`
	Checksum     string   `json:"checksum"`
	SizeBytes    int64    `json:"size_bytes"`
	EntityTypes  []string `json:"entity_types"`
	Architecture string   `json:"architecture"`
	Description  string   `json:"description"`
	License      string   `json:"license"`
	Default      bool     `json:"default"`
}

// LoadRegistry parses the registry compiled into the binary, sorted by model
// name.
func LoadRegistry() (Registry, error) {
	var reg Registry
	if err := json.Unmarshal(embeddedRegistry, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse model registry: %w", err)
	}
	sort.Slice(reg.Models, func(i, j int) bool { return reg.Models[i].Name < reg.Models[j].Name })
	return reg, nil
}

// Find returns the spec with the given name.
func (r Registry) Find(name string) (Spec, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Spec{}, false
}

// DefaultModel returns the registry entry marked default, or the first entry.
func (r Registry) DefaultModel() (Spec, bool) {
	for _, m := range r.Models {
		if m.Default {
			return m, true
		}
	}
	if len(r.Models) > 0 {
		return r.Models[0], true
	}
	return Spec{}, false
}

// DefaultRoot is where models install unless configured otherwise.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tern", "models"), nil
}

// InstallPath is the directory a named model occupies under root.
func InstallPath(root, name string) string {
	return filepath.Join(root, name)
}

// IsInstalled reports whether every required asset of the model is present.
func IsInstalled(root string, m Spec) bool {
	dir := InstallPath(root, m.Name)
	for _, f := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return false
		}
	}
	return true
}

// ValidateDir checks that dir (or a single nested directory, as produced by
// some archives) contains the required assets, flattening nested layouts.
func ValidateDir(dir string) error {
	candidates := []string{dir}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.IsDir() {
			candidates = append(candidates, filepath.Join(dir, e.Name()))
		}
	}
	for _, c := range candidates {
		complete := true
		for _, f := range requiredFiles {
			if _, err := os.Stat(filepath.Join(c, f)); err != nil {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		if c != dir {
			for _, f := range requiredFiles {
				if err := os.Rename(filepath.Join(c, f), filepath.Join(dir, f)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return fmt.Errorf("archive is missing required model files")
}
