package types

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    VarsPrimitive
		want bool
	}{
		{String(""), false},
		{String("x"), true},
		{Int(0), false},
		{Int(1), true},
		{Float(0), false},
		{Bool(false), false},
		{Bool(true), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%+v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestLiteralMarksStr(t *testing.T) {
	v := Literal("unquoted")
	if !v.IsLiteral() || !v.IsString() || v.Str() != "unquoted" {
		t.Errorf("Literal(...) = %+v", v)
	}
	if plain := String("unquoted"); plain.IsLiteral() {
		t.Errorf("String(...) should not be a literal marker")
	}
}

func TestAsStringFormatsBoolsAsPythonTitleCase(t *testing.T) {
	if got := Bool(true).AsString(); got != "True" {
		t.Errorf("AsString() = %q, want True", got)
	}
	if got := Bool(false).AsString(); got != "False" {
		t.Errorf("AsString() = %q, want False", got)
	}
}

func TestDependencyDefIsCIPD(t *testing.T) {
	git := DependencyDef{URL: "https://example.com/x"}
	if git.IsCIPD() {
		t.Error("git dep reported as CIPD")
	}
	cipd := DependencyDef{Packages: []CIPDPackage{{Package: "tool", Version: "v1"}}}
	if !cipd.IsCIPD() {
		t.Error("CIPD dep not reported as CIPD")
	}
}

func TestEntriesCacheKeys(t *testing.T) {
	if GitKey("src/x") != "src/x" {
		t.Errorf("GitKey = %q", GitKey("src/x"))
	}
	if CIPDKey("tools", "pkg") != "tools:pkg" {
		t.Errorf("CIPDKey = %q", CIPDKey("tools", "pkg"))
	}
	if PathOf("tools:pkg") != "tools" || PathOf("src/x") != "src/x" {
		t.Errorf("PathOf mismatch")
	}
	if !IsCIPDKey("tools:pkg") || IsCIPDKey("src/x") {
		t.Errorf("IsCIPDKey mismatch")
	}
}

func TestSolutionDepsFileNameDefaults(t *testing.T) {
	if (Solution{}).DepsFileName() != "DEPS" {
		t.Errorf("default deps file name should be DEPS")
	}
	if (Solution{DepsFile: "DEPS.custom"}).DepsFileName() != "DEPS.custom" {
		t.Errorf("override deps file name not honored")
	}
}
