package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tapcart/gclient/pkg/gclient/types"
)

func TestPlanNestingOrder(t *testing.T) {
	// Scenario 3: entries at "a/b/c" and "a/b" must schedule a/b first.
	deps := map[string]types.DependencyDef{
		"a/b/c": {URL: "https://example/c"},
		"a/b":   {URL: "https://example/b"},
		"z":     {URL: "https://example/z"},
	}
	plan, err := Plan(t.TempDir(), deps, nil, "https://registry")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	byPath := map[string]Entry{}
	for _, e := range plan.Entries {
		byPath[e.Path] = e
	}

	ab := byPath["a/b"]
	abc := byPath["a/b/c"]
	z := byPath["z"]

	if ab.HasRequired {
		t.Errorf("a/b has a prerequisite, want none")
	}
	if !abc.HasRequired || abc.RequiredSeq != ab.Seq {
		t.Errorf("a/b/c.RequiredSeq = %d (has=%v), want %d", abc.RequiredSeq, abc.HasRequired, ab.Seq)
	}
	if z.HasRequired {
		t.Errorf("z has a prerequisite, want none")
	}
}

func TestPlanDuplicateKeyIsFatal(t *testing.T) {
	// Two paths can't collide directly (map keys are unique), but a
	// CIPD entry naming the same package twice at one path must still
	// be rejected before nesting assignment.
	deps := map[string]types.DependencyDef{
		"tools": {Packages: []types.CIPDPackage{
			{Package: "dup", Version: "v1"},
			{Package: "dup", Version: "v2"},
		}},
	}
	if _, err := Plan(t.TempDir(), deps, nil, "https://registry"); err == nil {
		t.Fatal("Plan succeeded, want DuplicateKey error")
	}
}

func TestPlanUnchangedEntriesAreNotInUpdateSet(t *testing.T) {
	prev := types.EntriesCache{"src/x": "https://example/x@abc"}
	deps := map[string]types.DependencyDef{
		"src/x": {URL: "https://example/x@abc"},
	}
	plan, err := Plan(t.TempDir(), deps, prev, "https://registry")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Entries) != 0 {
		t.Errorf("got %d update-set entries, want 0 (unchanged)", len(plan.Entries))
	}
	if plan.NewCache["src/x"] != prev["src/x"] {
		t.Errorf("NewCache[src/x] = %q, want unchanged %q", plan.NewCache["src/x"], prev["src/x"])
	}
}

func TestPlanCIPDVersionChangeTriggersReplace(t *testing.T) {
	base := t.TempDir()
	toolDir := filepath.Join(base, "src/tool")
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(toolDir, "marker"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	prev := types.EntriesCache{"src/tool:pkg": "https://registry/pkg@v1"}
	deps := map[string]types.DependencyDef{
		"src/tool": {Packages: []types.CIPDPackage{{Package: "pkg", Version: "v2"}}},
	}

	plan, err := Plan(base, deps, prev, "https://registry")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(plan.Deleted) != 1 || plan.Deleted[0] != "src/tool" {
		t.Errorf("Deleted = %v, want [src/tool]", plan.Deleted)
	}
	if _, err := os.Stat(toolDir); !os.IsNotExist(err) {
		t.Errorf("src/tool still exists on disk, want removed")
	}
	if len(plan.Entries) != 1 || plan.Entries[0].Path != "src/tool" {
		t.Errorf("Entries = %+v, want one entry for src/tool", plan.Entries)
	}
	if plan.NewCache["src/tool:pkg"] != "https://registry/pkg@v2" {
		t.Errorf("NewCache[src/tool:pkg] = %q, want .../pkg@v2", plan.NewCache["src/tool:pkg"])
	}
}

func TestPlanRejectsPathEscape(t *testing.T) {
	prev := types.EntriesCache{"../evil": "https://example/evil@abc"}
	deps := map[string]types.DependencyDef{}
	if _, err := Plan(t.TempDir(), deps, prev, "https://registry"); err == nil {
		t.Fatal("Plan succeeded, want PathEscape error from deletion-set resolution")
	}
}

// TestPlanRejectsNewEntryPathEscape covers spec §5 scenario #5: a new
// dependency whose own path escapes basePath must abort Plan itself,
// before any entry (escaping or not) is handed to the fetch engine.
func TestPlanRejectsNewEntryPathEscape(t *testing.T) {
	deps := map[string]types.DependencyDef{
		"../evil":  {URL: "https://example/evil@abc"},
		"src/fine": {URL: "https://example/fine@abc"},
	}
	plan, err := Plan(t.TempDir(), deps, types.EntriesCache{}, "https://registry")
	if err == nil {
		t.Fatalf("Plan succeeded, want PathEscape error; got plan %+v", plan)
	}
}
