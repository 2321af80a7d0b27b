package entries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tapcart/gclient/pkg/gclient/types"
)

func TestReadMissingFileIsEmptyCache(t *testing.T) {
	cache, err := Read(filepath.Join(t.TempDir(), ".gclient_entries"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(cache) != 0 {
		t.Errorf("got %v, want empty cache", cache)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	path := Path(t.TempDir())
	cache := types.EntriesCache{
		"src/x":       "https://example.com/x@abc123",
		"src/tool:pk": "https://registry/pk@v1",
	}

	if err := Write(path, cache); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(cache) {
		t.Fatalf("got %v, want %v", got, cache)
	}
	for k, v := range cache {
		if got[k] != v {
			t.Errorf("got[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestReadRejectsMissingAssignment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gclient_entries")
	if err := os.WriteFile(path, []byte("not the right format"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("Read succeeded, want error for missing 'entries =' assignment")
	}
}
