// Package config handles calx.toml project manifests.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const FileName = "calx.toml"

type Manifest struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
	Run   Run    `toml:"run"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-"`
}

// Run holds defaults for calx run; command-line flags override them.
type Run struct {
	Function  string `toml:"function"`
	MaxFrames int    `toml:"max_frames"`
	Echo      string `toml:"echo"`
	ShowCode  bool   `toml:"show_code"`
}

// LoadManifest parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	// Defaults
	if m.Run.Function == "" {
		m.Run.Function = "main"
	}
	if m.Run.Echo == "" {
		m.Run.Echo = "stdout"
	}
	if m.Run.MaxFrames < 0 {
		return nil, fmt.Errorf("%s: max_frames must not be negative", path)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a calx.toml file. It returns
// nil, nil when there is none.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadManifest(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath resolves the entry file relative to the manifest directory.
func (m *Manifest) EntryPath() string {
	if m.Entry == "" || filepath.IsAbs(m.Entry) {
		return m.Entry
	}
	return filepath.Join(m.Dir, m.Entry)
}
