package condition

import (
	"testing"

	"github.com/tapcart/gclient/pkg/gclient/types"
)

func TestBuildScopeChecksOutLinuxViaUnixAlias(t *testing.T) {
	ws := &types.Workspace{TargetOS: []string{"unix"}}
	scope := BuildScope(&types.DepsSpec{}, types.Solution{}, ws)

	v, ok := scope.Lookup("checkout_linux")
	if !ok || !v.BoolValue() {
		t.Errorf("checkout_linux = %v, %v; want true (unix aliases linux)", v, ok)
	}
	if v, _ := scope.Lookup("checkout_mac"); v.BoolValue() {
		t.Errorf("checkout_mac = true, want false")
	}
}

func TestBuildScopeCustomVarsOverrideSpecVars(t *testing.T) {
	spec := &types.DepsSpec{Vars: map[string]types.VarsPrimitive{"r": types.String("spec")}}
	sol := types.Solution{CustomVars: map[string]types.VarsPrimitive{"r": types.String("custom")}}
	scope := BuildScope(spec, sol, &types.Workspace{})

	v, ok := scope.Lookup("r")
	if !ok || v.Str() != "custom" {
		t.Errorf("r = %q, want %q", v.Str(), "custom")
	}
}

func TestEvaluateDropsFalseCondition(t *testing.T) {
	ws := &types.Workspace{TargetOS: []string{"unix"}}
	scope := BuildScope(&types.DepsSpec{}, types.Solution{}, ws)

	deps := map[string]types.DependencyDef{
		"src/mac-only": {URL: "https://example/x", Condition: "checkout_mac"},
		"src/always":   {URL: "https://example/y"},
	}
	out, err := Evaluate(deps, scope, FilterOptions{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, ok := out["src/mac-only"]; ok {
		t.Errorf("src/mac-only survived, want dropped (checkout_mac is false)")
	}
	if _, ok := out["src/always"]; !ok {
		t.Errorf("src/always dropped, want kept (unconditional)")
	}
}

func TestEvaluateIgnoresPlatformedCIPDWhenRequested(t *testing.T) {
	deps := map[string]types.DependencyDef{
		"tools/bin": {Packages: []types.CIPDPackage{{Package: "tool/${platform}", Version: "latest"}}},
	}
	out, err := Evaluate(deps, nil, FilterOptions{CIPDIgnorePlatformed: true})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %d surviving entries, want 0 (platformed CIPD dropped)", len(out))
	}

	outKept, err := Evaluate(deps, nil, FilterOptions{CIPDIgnorePlatformed: false})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(outKept) != 1 {
		t.Errorf("got %d surviving entries, want 1 (filter disabled)", len(outKept))
	}
}
