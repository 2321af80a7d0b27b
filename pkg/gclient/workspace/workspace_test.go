package workspace

import (
	"testing"

	"github.com/tapcart/gclient/pkg/gclient/host"
)

func TestParseMinimalSolution(t *testing.T) {
	ws, err := Parse(`solutions = [
  {
    "name": "src",
    "url": "https://example.com/src.git",
  },
]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ws.Solutions) != 1 || ws.Solutions[0].Name != "src" {
		t.Fatalf("Solutions = %+v, want one named src", ws.Solutions)
	}
	if ws.Solutions[0].URL != "https://example.com/src.git" {
		t.Errorf("URL = %q", ws.Solutions[0].URL)
	}
	// Host OS/CPU are auto-appended since target_os/target_cpu_only isn't set.
	if !containsString(ws.TargetOS, host.OS()) {
		t.Errorf("TargetOS = %v, want host OS %q included", ws.TargetOS, host.OS())
	}
}

func TestParseAllSentinelExpands(t *testing.T) {
	ws, err := Parse(`solutions = [{"name": "src", "url": "https://example.com/src"}]
target_os = ["all"]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ws.TargetOS) != len(host.AllOS) {
		t.Errorf("TargetOS = %v, want full OS list %v", ws.TargetOS, host.AllOS)
	}
}

func TestParseTargetOSOnlySkipsHostDefault(t *testing.T) {
	ws, err := Parse(`solutions = [{"name": "src", "url": "https://example.com/src"}]
target_os = ["ios"]
target_os_only = True
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if containsString(ws.TargetOS, host.OS()) && host.OS() != "ios" {
		t.Errorf("TargetOS = %v, host OS should not be auto-appended under target_os_only", ws.TargetOS)
	}
	if len(ws.TargetOS) != 1 || ws.TargetOS[0] != "ios" {
		t.Errorf("TargetOS = %v, want [ios]", ws.TargetOS)
	}
}

func TestParseRejectsAllRecursedepsSolutions(t *testing.T) {
	// A workspace with zero solutions is the simplest case of "no real
	// solutions"; the malformed-input guard must reject it.
	if _, err := Parse(`solutions = []
`); err == nil {
		t.Fatal("Parse succeeded, want error for workspace with no solutions")
	}
}

func TestParseUnknownConstructIsFatal(t *testing.T) {
	if _, err := Parse(`not_a_real_binding = 1
`); err == nil {
		t.Fatal("Parse succeeded, want error for unknown top-level construct")
	}
}

func TestParseTOMLProducesEquivalentWorkspace(t *testing.T) {
	ws, err := ParseTOML([]byte(`
target_os = ["linux"]
target_os_only = true

[[solutions]]
name = "src"
url = "https://example.com/src.git"
`))
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}
	if len(ws.Solutions) != 1 || ws.Solutions[0].Name != "src" {
		t.Fatalf("Solutions = %+v", ws.Solutions)
	}
	if len(ws.TargetOS) != 1 || ws.TargetOS[0] != "linux" {
		t.Errorf("TargetOS = %v, want [linux]", ws.TargetOS)
	}
}
