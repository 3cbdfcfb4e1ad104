package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "test-app"
version = "0.1.0"

[build]
entry = "src/app.tern"
output = "out/app.ternc"
warnings-as-errors = true
dump = ["lowered", "asm"]

[run]
seed = 42
max-depth = 64
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "src", "app.tern") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if m.OutputPath() != filepath.Join(m.Dir, "out", "app.ternc") {
		t.Errorf("output path = %q", m.OutputPath())
	}
	if !m.Build.WarningsAsErrors {
		t.Error("warnings-as-errors = false, want true")
	}
	if !m.Dumps("asm") || !m.Dumps("lowered") || m.Dumps("bound") {
		t.Errorf("dump = %v, want [lowered asm]", m.Build.Dump)
	}
	if m.Run.Seed == nil || *m.Run.Seed != 42 {
		t.Errorf("run seed = %v, want 42", m.Run.Seed)
	}
	if m.Run.MaxDepth != 64 {
		t.Errorf("run max-depth = %d, want 64", m.Run.MaxDepth)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Build.Entry != "main.tern" {
		t.Errorf("default entry = %q, want main.tern", m.Build.Entry)
	}
	if m.Build.Output != "minimal.ternc" {
		t.Errorf("default output = %q, want minimal.ternc", m.Build.Output)
	}
	if m.Run.Seed != nil {
		t.Errorf("default seed = %v, want nil", *m.Run.Seed)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "[build]\noptimize = true\n"},
		{"unknown dump form", "[build]\ndump = [\"ssa\"]\n"},
		{"bad syntax", "[project\nname = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.content)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.content)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[project]
name = "found-project"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no tern.toml exists")
	}
}
