// Package condition assembles the per-evaluation variable scope (spec
// vars, custom_vars, host facts, checkout_<os>/checkout_<cpu> booleans)
// and evaluates each dependency's optional condition against it,
// filtering the surviving dependency set.
//
// Grounded on original_source/src/var_utils.rs (set_builtin_vars: exact
// checkout_<os>/checkout_<cpu> vocabulary and the unix≡linux
// equivalence rule) and original_source/src/host.rs (host_os/host_cpu).
package condition

import (
	"strings"

	"github.com/tapcart/gclient/pkg/gclient/expr"
	"github.com/tapcart/gclient/pkg/gclient/host"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// checkoutOSNames are the OS names spec §4.4 step 4 seeds a
// checkout_<os> boolean and a bare <os> identifier for.
var checkoutOSNames = []string{"linux", "mac", "win", "ios", "chromeos", "fuchsia", "android"}

// checkoutCPUNames are the CPU names spec §4.4 step 5 seeds a
// checkout_<cpu> boolean and a bare <cpu> identifier for.
var checkoutCPUNames = []string{"arm", "arm64", "x86", "mips", "mips64", "ppc", "s390", "x64"}

// BuildScope assembles the variable scope for evaluating one DepsSpec's
// conditions and value expressions: spec.Vars, overlaid with the
// solution's custom_vars, overlaid with host_os/host_cpu and the
// checkout_*/bare-OS/CPU identifiers derived from the workspace's
// target_os/target_cpu lists.
func BuildScope(spec *types.DepsSpec, solution types.Solution, ws *types.Workspace) expr.MapEnv {
	scope := make(expr.MapEnv, len(spec.Vars)+len(solution.CustomVars)+32)
	for k, v := range spec.Vars {
		scope[k] = v
	}
	for k, v := range solution.CustomVars {
		scope[k] = v
	}

	scope["host_os"] = types.String(host.OS())
	scope["host_cpu"] = types.String(host.CPU())

	for _, name := range checkoutOSNames {
		scope["checkout_"+name] = types.Bool(osTargeted(ws, name))
		scope[name] = types.String(name)
	}
	// "unix" is an equivalence alias for linux in target_os, per
	// original_source/src/var_utils.rs's separate checkout_linux rule.
	scope["checkout_linux"] = types.Bool(osTargeted(ws, "linux"))

	for _, name := range checkoutCPUNames {
		scope["checkout_"+name] = types.Bool(containsString(ws.TargetCPU, name))
		scope[name] = types.String(name)
	}

	return scope
}

func osTargeted(ws *types.Workspace, os string) bool {
	if containsString(ws.TargetOS, os) {
		return true
	}
	if os == "linux" && containsString(ws.TargetOS, "unix") {
		return true
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FilterOptions controls the optional cipd_ignore_platformed filter
// (spec §4.4).
type FilterOptions struct {
	CIPDIgnorePlatformed bool
}

// Evaluate evaluates each dependency's condition against scope and
// returns the surviving subset, dropping entries whose condition is
// false and, when requested, CIPD entries carrying an unresolved
// "${...}" placeholder in any package name.
func Evaluate(deps map[string]types.DependencyDef, scope expr.Env, opts FilterOptions) (map[string]types.DependencyDef, error) {
	out := make(map[string]types.DependencyDef, len(deps))
	for path, def := range deps {
		if opts.CIPDIgnorePlatformed && def.IsCIPD() && hasUnresolvedPlaceholder(def) {
			continue
		}
		if def.Condition != "" {
			ok, err := expr.EvaluateBool(def.Condition, scope)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out[path] = def
	}
	return out, nil
}

func hasUnresolvedPlaceholder(def types.DependencyDef) bool {
	for _, pkg := range def.Packages {
		if strings.Contains(pkg.Package, "${") {
			return true
		}
	}
	return false
}
