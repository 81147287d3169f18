package profile

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	rerrors "retriever/internal/errors"
)

func TestExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "baseline.toml")
	p := &Profile{Name: "baseline", Attributes: sampleAttributes()}

	if err := Export(path, p); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	file, err := Import(path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if file.Name != "baseline" {
		t.Errorf("Name = %q", file.Name)
	}
	if file.ExportedAt.IsZero() {
		t.Error("ExportedAt should be set")
	}
	if !reflect.DeepEqual(file.Attributes, map[string]interface{}(sampleAttributes())) {
		t.Errorf("Attributes = %v, want %v", file.Attributes, sampleAttributes())
	}
}

func TestImport_NameFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handwritten.toml")
	content := `
[attributes]
"core.rules" = ["b", "a"]

[attributes."core.rules.config.a"]
depth = "2"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	file, err := Import(path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if file.Name != "handwritten" {
		t.Errorf("Name = %q, want handwritten", file.Name)
	}
	if got := file.Attributes["core.rules"]; !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("core.rules = %v", got)
	}
	if got := file.Attributes["core.rules.config.a"]; !reflect.DeepEqual(got, map[string]string{"depth": "2"}) {
		t.Errorf("config = %v", got)
	}
}

func TestImport_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Import(filepath.Join(dir, "missing.toml")); !rerrors.HasCode(err, rerrors.ProfileNotFound) {
		t.Errorf("missing file error = %v, want %s", err, rerrors.ProfileNotFound)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("name = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Import(bad); err == nil {
		t.Error("malformed TOML should fail")
	}
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestWriteFile_ReportsCloseError(t *testing.T) {
	diskFull := stderrors.New("no space left on device")
	w := &failingCloser{closeErr: diskFull}

	err := writeFile(w, &Profile{Name: "baseline", Attributes: sampleAttributes()})
	if !stderrors.Is(err, diskFull) {
		t.Fatalf("writeFile() error = %v, want close error", err)
	}
	if w.Len() == 0 {
		t.Error("profile should be encoded before close")
	}

	ok := &failingCloser{}
	if err := writeFile(ok, &Profile{Name: "baseline"}); err != nil {
		t.Errorf("writeFile() error = %v", err)
	}
}
