// Package fixture loads the canonical test-fixture shape spec §6 names:
// pages plus SegmentationOptions, either as JSON or YAML. Grounded on
// titus's pkg/rule.Loader (LoadRule/LoadRuleFile/LoadBuiltinRules), adapted
// from "load a rule or ruleset from disk" to "load a segmentation fixture
// from disk."
package fixture

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/arsegment/pkg/types"
)

// Fixture is the canonical wire shape: pages plus the options that drive
// segmentation over them.
type Fixture struct {
	Pages   []types.Page               `json:"pages" yaml:"pages"`
	Options types.SegmentationOptions `json:"options" yaml:"options"`
}

// Load parses fixture bytes as JSON or YAML depending on ext (".json" vs
// ".yml"/".yaml"; anything else is tried as JSON first, then YAML).
func Load(data []byte, ext string) (*Fixture, error) {
	switch ext {
	case ".yml", ".yaml":
		return loadYAML(data)
	case ".json":
		return loadJSON(data)
	default:
		if f, err := loadJSON(data); err == nil {
			return f, nil
		}
		return loadYAML(data)
	}
}

// LoadFile reads a fixture from path, choosing the decoder by file
// extension.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: failed to read %s: %w", path, err)
	}
	return Load(data, filepath.Ext(path))
}

func loadJSON(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture: failed to parse JSON: %w", err)
	}
	return &f, nil
}

func loadYAML(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture: failed to parse YAML: %w", err)
	}
	return &f, nil
}

// LoadDir reads every .json/.yml/.yaml file directly under dir (no
// recursion) as a named fixture, keyed by filename without extension —
// the way titus's LoadBuiltinRules walks an embedded directory of YAML
// rule files.
func LoadDir(fsys fs.FS, dir string) (map[string]*Fixture, error) {
	out := make(map[string]*Fixture)
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("fixture: failed to read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".json" && ext != ".yml" && ext != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("fixture: failed to read %s: %w", entry.Name(), err)
		}
		f, err := Load(data, ext)
		if err != nil {
			return nil, fmt.Errorf("fixture: %s: %w", entry.Name(), err)
		}
		name := entry.Name()[:len(entry.Name())-len(ext)]
		out[name] = f
	}
	return out, nil
}
