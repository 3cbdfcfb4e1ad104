// Package manifest handles tern.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project file.
const FileName = "tern.toml"

// Manifest represents a tern.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`
	Run     Run     `toml:"run"`

	// Dir is the directory containing the tern.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build configures compilation.
type Build struct {
	Entry            string   `toml:"entry"`
	Output           string   `toml:"output"`
	WarningsAsErrors bool     `toml:"warnings-as-errors"`
	Dump             []string `toml:"dump"` // any of "bound", "lowered", "asm"
}

// Run configures execution.
type Run struct {
	Seed     *int64 `toml:"seed"`
	MaxDepth int    `toml:"max-depth"`
}

// Load parses a tern.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text and applies defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	for _, d := range m.Build.Dump {
		switch d {
		case "bound", "lowered", "asm":
		default:
			return nil, fmt.Errorf("build.dump: unknown form %q", d)
		}
	}

	// Defaults
	if m.Project.Name == "" {
		m.Project.Name = "main"
	}
	if m.Build.Entry == "" {
		m.Build.Entry = "main.tern"
	}
	if m.Build.Output == "" {
		m.Build.Output = m.Project.Name + ".ternc"
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a tern.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
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

// EntryPath returns the absolute path of the entry source file.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Build.Entry)
}

// OutputPath returns the absolute path of the module image.
func (m *Manifest) OutputPath() string {
	return m.resolve(m.Build.Output)
}

// Dumps reports whether the named form is requested in build.dump.
func (m *Manifest) Dumps(form string) bool {
	for _, d := range m.Build.Dump {
		if d == form {
			return true
		}
	}
	return false
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
