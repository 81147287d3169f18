// Package testutil provides repository fixtures for tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixtureContext describes a fixture repository copied into a temp dir.
type FixtureContext struct {
	// Name is the fixture directory name under testdata/fixtures
	Name string

	// Root is the repository root of the copy
	Root string

	// Source is the checked-in fixture directory
	Source string
}

// LoadFixture copies testdata/fixtures/<name> into a fresh temp dir so the
// test may write state into it.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	source := filepath.Join(getFixturesRoot(t), name)
	if _, err := os.Stat(source); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", source)
	}

	root := t.TempDir()
	if err := copyTree(source, root); err != nil {
		t.Fatalf("Failed to copy fixture %s: %v", name, err)
	}

	return &FixtureContext{Name: name, Root: root, Source: source}
}

// Path joins elem onto the fixture root.
func (f *FixtureContext) Path(elem ...string) string {
	return filepath.Join(append([]string{f.Root}, elem...)...)
}

// AvailableFixtures lists the fixture names under testdata/fixtures.
func AvailableFixtures(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(getFixturesRoot(t))
	if err != nil {
		t.Fatalf("Failed to read fixtures directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !isHiddenDir(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// internal/testutil -> project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}
	return fixturesRoot
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

func isHiddenDir(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
