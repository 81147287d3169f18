package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRepoRoot(t *testing.T) {
	t.Setenv(RootEnvVar, "")

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, StateDirName), 0755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRepoRoot(nested)
	if err != nil {
		t.Fatalf("FindRepoRoot() error = %v", err)
	}
	if got != root {
		t.Errorf("FindRepoRoot() = %s, want %s", got, root)
	}
}

func TestFindRepoRoot_FallsBackToStart(t *testing.T) {
	t.Setenv(RootEnvVar, "")

	start := t.TempDir()
	got, err := FindRepoRoot(start)
	if err != nil {
		t.Fatal(err)
	}
	if got != start {
		t.Errorf("FindRepoRoot() = %s, want %s", got, start)
	}
}

func TestFindRepoRoot_EnvOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv(RootEnvVar, override)

	got, err := FindRepoRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got != override {
		t.Errorf("FindRepoRoot() = %s, want %s", got, override)
	}
}

func TestResolveAndRel(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo")

	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{".retriever/profiles.db", filepath.Join(root, ".retriever", "profiles.db")},
		{filepath.Join(string(filepath.Separator), "abs", "x.db"), filepath.Join(string(filepath.Separator), "abs", "x.db")},
	}
	for _, tt := range tests {
		if got := Resolve(root, tt.path); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if got := Rel(root, filepath.Join(root, "catalogs", "rules.toml")); got != "catalogs/rules.toml" {
		t.Errorf("Rel(inside) = %q", got)
	}
	outside := filepath.Join(string(filepath.Separator), "elsewhere", "x")
	if got := Rel(root, outside); got != outside {
		t.Errorf("Rel(outside) = %q, want unchanged", got)
	}
}
