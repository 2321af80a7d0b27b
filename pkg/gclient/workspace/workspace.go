// Package workspace interprets the workspace-level configuration (a
// ".gclient" file, or its TOML alternative) into a types.Workspace:
// solutions plus target-OS/CPU lists with host defaults applied.
//
// Grounded on original_source/src/gclient/dotgclient.rs (host-default
// fill-in rules, the "all" OS sentinel, the all-synthetic-solutions
// guard) and original_source/src/types/dotgclient.rs (field shapes).
package workspace

import (
	"os"

	"github.com/BurntSushi/toml"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/depsfile"
	"github.com/tapcart/gclient/pkg/gclient/host"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// Parse interprets a .gclient file's text (the canonical Python-flavored
// format) into a types.Workspace.
func Parse(text string) (*types.Workspace, error) {
	bindings, err := depsfile.ParseTopLevel(text)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.CodeConfig, err, "parsing .gclient")
	}

	ws := &types.Workspace{
		TargetOSOnly:  bindings["target_os_only"].Bool(),
		TargetCPUOnly: bindings["target_cpu_only"].Bool(),
	}

	solutionsRaw, ok := bindings["solutions"]
	if ok {
		for _, s := range solutionsRaw.List() {
			sol, err := parseSolution(s)
			if err != nil {
				return nil, err
			}
			ws.Solutions = append(ws.Solutions, sol)
		}
	}

	ws.TargetOS = rawStringList(bindings["target_os"])
	ws.TargetCPU = rawStringList(bindings["target_cpu"])

	if err := validateSolutions(ws.Solutions); err != nil {
		return nil, err
	}

	normalizeTargets(ws)
	return ws, nil
}

// ParseTOML decodes a ".gclient.toml" alternative workspace-config
// input into the identical types.Workspace shape, per SPEC_FULL.md §C.2.
func ParseTOML(data []byte) (*types.Workspace, error) {
	var doc tomlWorkspace
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, gerrors.Wrap(gerrors.CodeConfig, err, "parsing .gclient.toml")
	}

	ws := &types.Workspace{
		TargetOS:      doc.TargetOS,
		TargetCPU:     doc.TargetCPU,
		TargetOSOnly:  doc.TargetOSOnly,
		TargetCPUOnly: doc.TargetCPUOnly,
	}
	for _, s := range doc.Solutions {
		managed := s.Managed
		sol := types.Solution{
			Name:     s.Name,
			URL:      s.URL,
			DepsFile: s.DepsFile,
			Managed:  managed,
		}
		if len(s.CustomVars) > 0 {
			sol.CustomVars = map[string]types.VarsPrimitive{}
			for k, v := range s.CustomVars {
				sol.CustomVars[k] = types.String(v)
			}
		}
		ws.Solutions = append(ws.Solutions, sol)
	}

	if err := validateSolutions(ws.Solutions); err != nil {
		return nil, err
	}
	normalizeTargets(ws)
	return ws, nil
}

// ReadFile loads a workspace config from path, dispatching to the TOML
// decoder when the file carries a ".toml" extension and to the
// canonical script parser otherwise.
func ReadFile(path string) (*types.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.CodeIO, err, "reading workspace config %q", path)
	}
	if isTOMLPath(path) {
		return ParseTOML(data)
	}
	return Parse(string(data))
}

func isTOMLPath(path string) bool {
	n := len(path)
	return n >= 5 && path[n-5:] == ".toml"
}

// tomlWorkspace is the decode target for the .gclient.toml alternative
// input format (SPEC_FULL.md §C.2), mirroring types.Workspace/Solution.
type tomlWorkspace struct {
	Solutions     []tomlSolution `toml:"solutions"`
	TargetOS      []string       `toml:"target_os"`
	TargetCPU     []string       `toml:"target_cpu"`
	TargetOSOnly  bool           `toml:"target_os_only"`
	TargetCPUOnly bool           `toml:"target_cpu_only"`
}

type tomlSolution struct {
	Name       string            `toml:"name"`
	URL        string            `toml:"url"`
	DepsFile   string            `toml:"deps_file"`
	Managed    *bool             `toml:"managed"`
	CustomVars map[string]string `toml:"custom_vars"`
}

func parseSolution(r depsfile.Raw) (types.Solution, error) {
	if !r.IsDict() {
		return types.Solution{}, gerrors.New(gerrors.CodeConfig, "solutions entries must be mappings")
	}
	sol := types.Solution{}
	if v, ok := r.DictGet("name"); ok {
		sol.Name = v.Str()
	}
	if v, ok := r.DictGet("url"); ok {
		sol.URL = v.Str()
	}
	if v, ok := r.DictGet("deps_file"); ok {
		sol.DepsFile = v.Str()
	}
	if v, ok := r.DictGet("managed"); ok && v.IsBool() {
		b := v.Bool()
		sol.Managed = &b
	}
	if v, ok := r.DictGet("custom_vars"); ok && v.IsDict() {
		sol.CustomVars = map[string]types.VarsPrimitive{}
		for _, key := range v.DictKeys() {
			cv, _ := v.DictGet(key)
			if scalar, ok := cv.Scalar(); ok {
				sol.CustomVars[key] = scalar
			}
		}
	}
	if sol.Name == "" {
		return types.Solution{}, gerrors.New(gerrors.CodeConfig, "solution entry missing 'name'")
	}
	return sol, nil
}

func rawStringList(r depsfile.Raw) []string {
	var out []string
	for _, item := range r.List() {
		if item.IsString() {
			out = append(out, item.Str())
		}
	}
	return out
}

// validateSolutions enforces spec §4.3's malformed-input guard: a
// workspace whose solutions are all recursedeps-synthesized (or which
// declares none at all) is rejected.
func validateSolutions(solutions []types.Solution) error {
	if len(solutions) == 0 {
		return gerrors.New(gerrors.CodeConfig, "workspace declares no solutions")
	}
	for _, s := range solutions {
		if !s.FromRecursedeps {
			return nil
		}
	}
	return gerrors.New(gerrors.CodeConfig, "workspace has no real solutions (all from recursedeps)")
}

// normalizeTargets applies spec §4.3's OS/CPU defaulting: the "all"
// sentinel expands to the full list; otherwise the host is appended
// unless *_only is set.
func normalizeTargets(ws *types.Workspace) {
	if containsString(ws.TargetOS, "all") {
		ws.TargetOS = append([]string(nil), host.AllOS...)
	} else if !ws.TargetOSOnly && !containsString(ws.TargetOS, host.OS()) {
		ws.TargetOS = append(ws.TargetOS, host.OS())
	}

	if containsString(ws.TargetCPU, "all") {
		ws.TargetCPU = append([]string(nil), host.AllCPU...)
	} else if !ws.TargetCPUOnly && !containsString(ws.TargetCPU, host.CPU()) {
		ws.TargetCPU = append(ws.TargetCPU, host.CPU())
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
