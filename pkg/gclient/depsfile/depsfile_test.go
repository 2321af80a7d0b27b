package depsfile

import (
	"testing"

	"github.com/tapcart/gclient/pkg/gclient/types"
)

func TestParseMinimalGitDep(t *testing.T) {
	src := `
vars = {
  'chromium_git': 'https://example',
  'r': 'abc',
}
deps = {
  'src/x': '{chromium_git}/x@{r}',
}
`
	spec, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dep, ok := spec.Deps["src/x"]
	if !ok {
		t.Fatalf("missing src/x dep, got %+v", spec.Deps)
	}
	if dep.URL != "https://example/x@abc" {
		t.Errorf("URL = %q, want %q", dep.URL, "https://example/x@abc")
	}
}

func TestParseConditionAndCIPD(t *testing.T) {
	src := `
vars = {
  'r': 'v1',
}
deps = {
  'src/mac_only': {
    'url': 'https://example/mac@{r}',
    'condition': 'checkout_mac',
  },
  'src/tool': {
    'packages': [
      { 'package': 'infra/tool', 'version': 'version:2.0' },
    ],
    'condition': 'checkout_linux',
  },
}
`
	spec, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	mac := spec.Deps["src/mac_only"]
	if mac.Condition != "checkout_mac" {
		t.Errorf("condition = %q", mac.Condition)
	}

	tool := spec.Deps["src/tool"]
	if !tool.IsCIPD() {
		t.Fatalf("expected CIPD dep, got %+v", tool)
	}
	if len(tool.Packages) != 1 || tool.Packages[0].Package != "infra/tool" {
		t.Errorf("packages = %+v", tool.Packages)
	}
}

func TestParseVarPromotionForwardReference(t *testing.T) {
	src := `
vars = {
  'base': 'abc',
  'derived': Var('base'),
}
deps = {}
`
	spec, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := spec.Vars["derived"].AsString(); got != "abc" {
		t.Errorf("derived = %q, want %q", got, "abc")
	}
}

func TestParseStrMarker(t *testing.T) {
	src := `
vars = {
  'n': Str(42),
}
deps = {}
`
	spec, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v := spec.Vars["n"]
	if !v.IsLiteral() || v.Str() != "42" {
		t.Errorf("n = %+v", v)
	}
}

func TestParsePathEscapeRejected(t *testing.T) {
	src := `
vars = {}
deps = {
  '../evil': 'https://example/evil',
}
`
	_, err := Parse(src, nil)
	if err == nil {
		t.Fatal("expected PathEscape error, got nil")
	}
}

func TestParseCustomVarsOverlay(t *testing.T) {
	src := `
vars = {
  'r': 'default',
}
deps = {
  'src/x': 'https://example/x@{r}',
}
`
	spec, err := Parse(src, map[string]types.VarsPrimitive{"r": types.String("override")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := spec.Deps["src/x"].URL; got != "https://example/x@override" {
		t.Errorf("URL = %q", got)
	}
}
