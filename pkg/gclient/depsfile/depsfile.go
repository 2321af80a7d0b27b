// Package depsfile interprets a DEPS file's text into a typed
// types.DepsSpec: variable promotion, dependency map extraction, and
// the two URL/variable fix-ups described in spec §4.2.
//
// Grounded on original_source/src/gclient/deps_parser.rs (Parse
// resolves and promotes the vars first, then applies URL
// .format(**vars) to each dependency using the resolved vars)
// and original_source/src/var_utils.rs (custom_vars overlay, builtin
// host/checkout variable seeding — the latter lives in
// pkg/gclient/condition, not here, since it's per-evaluation scope
// assembly rather than part of the DEPS file itself).
package depsfile

import (
	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// Parse interprets a DEPS file's text and returns a typed DepsSpec.
// customVars overlay spec-declared var defaults, as solution.CustomVars
// does for the solution owning this DEPS file.
func Parse(text string, customVars map[string]types.VarsPrimitive) (*types.DepsSpec, error) {
	bindings, err := parseTopLevel(text)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.CodeConfig, err, "parsing DEPS file")
	}

	varsRaw := bindings["vars"]
	vars, err := resolveVars(varsRaw, customVars)
	if err != nil {
		return nil, err
	}

	deps, err := resolveDeps(bindings["deps"], vars)
	if err != nil {
		return nil, err
	}

	spec := &types.DepsSpec{
		Vars:              vars,
		Deps:              deps,
		GClientGNArgsFile: stringOf(bindings["gclient_gn_args_file"]),
		GClientGNArgs:     resolveStringList(bindings["gclient_gn_args"]),
		UseRelativePaths:  boolOf(bindings["use_relative_paths"]),
		Recursedeps:       resolveStringList(bindings["recursedeps"]),
	}

	for path := range deps {
		if err := gerrors.ValidatePath(path); err != nil {
			return nil, gerrors.Wrap(gerrors.CodeConfig, err, "dep %q", path)
		}
	}

	return spec, nil
}

func stringOf(v value) string {
	if v.kind == vkString {
		return v.str
	}
	return ""
}

func boolOf(v value) bool {
	return v.kind == vkBool && v.b
}
