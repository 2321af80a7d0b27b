package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitGitRef(t *testing.T) {
	cases := []struct {
		in, wantURL, wantRef string
	}{
		{"https://example.com/x@abc123", "https://example.com/x", "abc123"},
		{"https://example.com/x", "https://example.com/x", ""},
		{"https://user@example.com/x@abc123", "https://user@example.com/x", "abc123"},
		{"https://example.com/x@abc123#fragment", "https://example.com/x", "abc123"},
	}
	for _, c := range cases {
		gotURL, gotRef := splitGitRef(c.in)
		if gotURL != c.wantURL || gotRef != c.wantRef {
			t.Errorf("splitGitRef(%q) = (%q, %q), want (%q, %q)", c.in, gotURL, gotRef, c.wantURL, c.wantRef)
		}
	}
}

func TestRunSubprocessSurfacesStderr(t *testing.T) {
	err := RunSubprocess(context.Background(), t.TempDir(), "sh", "-c", "echo boom 1>&2; exit 1")
	if err == nil {
		t.Fatal("RunSubprocess succeeded, want error")
	}
	if got := err.Error(); !contains(got, "boom") {
		t.Errorf("error %q does not surface stderr", got)
	}
}

func TestRunSubprocessSucceeds(t *testing.T) {
	if err := RunSubprocess(context.Background(), t.TempDir(), "true"); err != nil {
		t.Fatalf("RunSubprocess: %v", err)
	}
}

func TestUnzipExtractsFiles(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"a.txt":        "hello",
		"sub/b.txt":    "world",
		".cipdpkg/foo": "manifest",
	})
	target := t.TempDir()
	if err := unzip(archive, target); err != nil {
		t.Fatalf("unzip: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(target, "sub", "b.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "world" {
		t.Errorf("got %q, want world", data)
	}
}

func TestUnzipRejectsPathEscape(t *testing.T) {
	archive := buildZip(t, map[string]string{"../escape.txt": "evil"})
	if err := unzip(archive, t.TempDir()); err == nil {
		t.Fatal("unzip succeeded, want PathEscape error for zip-slip entry")
	}
}

func buildZip(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "archive.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func contains(s, substr string) bool {
	return bytes.Contains([]byte(s), []byte(substr))
}
