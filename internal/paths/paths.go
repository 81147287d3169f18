// Package paths locates the repository root and resolves repo-relative
// paths used by the configuration.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// StateDirName marks a repository root. It matches config.DirName.
const StateDirName = ".retriever"

// RootEnvVar overrides root discovery.
const RootEnvVar = "RETRIEVER_ROOT"

// FindRepoRoot walks up from start looking for a directory containing
// StateDirName. When none is found, start itself is returned. RETRIEVER_ROOT
// takes precedence when set.
func FindRepoRoot(start string) (string, error) {
	if env := os.Getenv(RootEnvVar); env != "" {
		return filepath.Abs(env)
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		info, err := os.Stat(filepath.Join(dir, StateDirName))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// Resolve joins a configured path onto repoRoot unless it is absolute.
func Resolve(repoRoot, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, filepath.FromSlash(path))
}

// Rel returns path relative to repoRoot with forward slashes, or path
// unchanged when it lies outside the repository.
func Rel(repoRoot, path string) string {
	rel, err := filepath.Rel(repoRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
