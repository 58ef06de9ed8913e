// Package manifest handles objtrace.toml configuration: which classes
// to record at startup, whether tracking starts active, where the
// snapshot history lives, and how reports render.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/objtrace/track"
)

// Manifest represents an objtrace.toml configuration.
type Manifest struct {
	Tracking Tracking `toml:"tracking"`
	History  History  `toml:"history"`
	Report   Report   `toml:"report"`

	// Dir is the directory containing the objtrace.toml file (set at
	// load time).
	Dir string `toml:"-"`
}

// Tracking configures the allocation registry.
type Tracking struct {
	Active bool     `toml:"active"`
	Record []string `toml:"record"`
}

// History configures snapshot persistence.
type History struct {
	Path string `toml:"path"`
}

// Report configures report rendering.
type Report struct {
	Delta bool `toml:"delta"`
}

// Load parses an objtrace.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "objtrace.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.History.Path == "" {
		m.History.Path = "objtrace.db"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an objtrace.toml file,
// then loads and returns the manifest. Returns nil if none is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "objtrace.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks the manifest for contradictions.
func (m *Manifest) Validate() error {
	if !m.Tracking.Active && len(m.Tracking.Record) > 0 {
		// Recording forces tracking on; flag the contradiction rather
		// than silently overriding the active setting.
		return fmt.Errorf("tracking.record requires tracking.active = true")
	}
	return nil
}

// HistoryPath returns the absolute path of the snapshot database.
func (m *Manifest) HistoryPath() string {
	if filepath.IsAbs(m.History.Path) {
		return m.History.Path
	}
	return filepath.Join(m.Dir, m.History.Path)
}

// Apply configures t from the manifest: the active flag first, then
// per-class recording (which itself implies active).
func (m *Manifest) Apply(t *track.Tracker) {
	t.SetActive(m.Tracking.Active)
	for _, class := range m.Tracking.Record {
		t.Record(track.ClassID(class))
	}
}
