package profile

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	rerrors "retriever/internal/errors"
	"retriever/internal/selection"
)

// File is the portable TOML form of a profile.
type File struct {
	Name       string                 `toml:"name"`
	ExportedAt time.Time              `toml:"exported_at"`
	Attributes map[string]interface{} `toml:"attributes"`
}

// Export writes p to path as TOML.
func Export(path string, p *Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile file: %w", err)
	}
	return writeFile(f, p)
}

// writeFile encodes p into w and closes it. A failed close is reported
// since it may mean the data never reached disk.
func writeFile(w io.WriteCloser, p *Profile) error {
	file := File{
		Name:       p.Name,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Attributes: selection.Normalize(p.Attributes),
	}
	if err := toml.NewEncoder(w).Encode(file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close profile file: %w", err)
	}
	return nil
}

// Import reads a profile file written by Export. The attributes are
// normalized; the name falls back to the file name without extension.
func Import(path string) (*File, error) {
	var file File
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, rerrors.New(rerrors.ProfileNotFound, fmt.Sprintf("profile file %s not found", path), err)
		}
		return nil, fmt.Errorf("failed to parse profile file: %w", err)
	}
	if file.Name == "" {
		base := filepath.Base(path)
		file.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	file.Attributes = selection.Normalize(file.Attributes)
	return &file, nil
}
