package depsfile

import (
	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/expr"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// resolveVars evaluates the raw `vars` dict into a map of
// types.VarsPrimitive, applying custom_vars overlay and the fixpoint
// "variable promotion" pass described in spec §9: plain string values
// are taken as written, while call values (Var(...)/Str(...)) may
// reference other vars, so resolution iterates to a fixed point rather
// than a single left-to-right pass.
func resolveVars(raw value, customVars map[string]types.VarsPrimitive) (map[string]types.VarsPrimitive, error) {
	pending := map[string]value{}
	if raw.kind == vkDict {
		for _, e := range raw.dict {
			pending[e.key] = e.val
		}
	}

	resolved := map[string]types.VarsPrimitive{}

	const maxPasses = 50
	for pass := 0; len(pending) > 0 && pass < maxPasses; pass++ {
		progressed := false
		for name, v := range pending {
			val, ok, err := evalRawValue(v, resolved)
			if err != nil {
				return nil, gerrors.Wrap(gerrors.CodeEval, err, "resolving var %q", name)
			}
			if ok {
				resolved[name] = val
				delete(pending, name)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	if len(pending) > 0 {
		names := make([]string, 0, len(pending))
		for name := range pending {
			names = append(names, name)
		}
		return nil, gerrors.New(gerrors.CodeEval, "could not resolve vars (circular or undefined reference): %v", names)
	}

	for name, cv := range customVars {
		resolved[name] = cv
	}

	return resolved, nil
}

// evalRawValue evaluates a raw literal to a VarsPrimitive given the
// vars resolved so far. Returns ok=false (not an error) when the value
// references a name not yet resolved, so the fixpoint loop can retry it
// on a later pass.
func evalRawValue(v value, scope map[string]types.VarsPrimitive) (types.VarsPrimitive, bool, error) {
	switch v.kind {
	case vkString:
		return types.String(v.str), true, nil
	case vkInt:
		return types.Int(v.i), true, nil
	case vkFloat:
		return types.Float(v.f), true, nil
	case vkBool:
		return types.Bool(v.b), true, nil
	case vkNone:
		return types.String(""), true, nil
	case vkCall:
		if len(v.callArgs) != 1 {
			return types.VarsPrimitive{}, false, gerrors.New(gerrors.CodeEval, "%s() takes exactly one argument", v.call)
		}
		argVal, ok, err := evalRawValue(v.callArgs[0], scope)
		if err != nil || !ok {
			return types.VarsPrimitive{}, ok, err
		}
		switch v.call {
		case "Str":
			return types.Literal(argVal.AsString()), true, nil
		case "Var":
			name := argVal.AsString()
			ref, present := scope[name]
			if !present {
				return types.VarsPrimitive{}, false, nil
			}
			return ref, true, nil
		default:
			return types.VarsPrimitive{}, false, gerrors.New(gerrors.CodeEval, "unsupported function %q in vars", v.call)
		}
	default:
		return types.VarsPrimitive{}, false, gerrors.New(gerrors.CodeEval, "unsupported value kind in vars")
	}
}

// buildFormatScope converts a resolved vars map into an expr.Env for
// str.format(**vars) substitution.
func buildFormatScope(vars map[string]types.VarsPrimitive) expr.MapEnv {
	env := make(expr.MapEnv, len(vars))
	for k, v := range vars {
		env[k] = v
	}
	return env
}

// resolveDeps evaluates the raw `deps` dict into typed DependencyDefs,
// applying the URL .format(**vars) fix-up from spec §4.2 step 1.
func resolveDeps(raw value, vars map[string]types.VarsPrimitive) (map[string]types.DependencyDef, error) {
	deps := map[string]types.DependencyDef{}
	if raw.kind != vkDict {
		return deps, nil
	}
	scope := buildFormatScope(vars)

	for _, e := range raw.dict {
		path := e.key
		def, err := resolveDependencyDef(e.val, scope)
		if err != nil {
			return nil, gerrors.Wrap(gerrors.CodeConfig, err, "dep %q", path)
		}
		deps[path] = def
	}
	return deps, nil
}

func resolveDependencyDef(v value, scope expr.MapEnv) (types.DependencyDef, error) {
	switch v.kind {
	case vkString:
		url, err := expr.Format(v.str, scope)
		if err != nil {
			return types.DependencyDef{}, err
		}
		return types.DependencyDef{URL: url}, nil
	case vkDict:
		if pkgs, ok := v.dictGet("packages"); ok {
			return resolveCIPDDef(v, pkgs)
		}
		urlVal, ok := v.dictGet("url")
		if !ok {
			return types.DependencyDef{}, gerrors.New(gerrors.CodeConfig, "dep entry is neither a string nor a mapping with 'url'")
		}
		if urlVal.kind != vkString {
			return types.DependencyDef{}, gerrors.New(gerrors.CodeConfig, "dep 'url' must be a string")
		}
		url, err := expr.Format(urlVal.str, scope)
		if err != nil {
			return types.DependencyDef{}, err
		}
		cond := ""
		if c, ok := v.dictGet("condition"); ok && c.kind == vkString {
			cond = c.str
		}
		return types.DependencyDef{URL: url, Condition: cond}, nil
	default:
		return types.DependencyDef{}, gerrors.New(gerrors.CodeConfig, "dep entry is neither a string nor a mapping with 'url'")
	}
}

func resolveCIPDDef(entry, pkgsVal value) (types.DependencyDef, error) {
	if pkgsVal.kind != vkList {
		return types.DependencyDef{}, gerrors.New(gerrors.CodeConfig, "'packages' must be a list")
	}
	var pkgs []types.CIPDPackage
	for _, item := range pkgsVal.list {
		if item.kind != vkDict {
			return types.DependencyDef{}, gerrors.New(gerrors.CodeConfig, "each package entry must be a mapping")
		}
		nameVal, ok := item.dictGet("package")
		if !ok || nameVal.kind != vkString {
			return types.DependencyDef{}, gerrors.New(gerrors.CodeConfig, "package entry missing 'package' string")
		}
		versionVal, ok := item.dictGet("version")
		if !ok || versionVal.kind != vkString {
			return types.DependencyDef{}, gerrors.New(gerrors.CodeConfig, "package entry missing 'version' string")
		}
		pkgs = append(pkgs, types.CIPDPackage{Package: nameVal.str, Version: versionVal.str})
	}
	cond := ""
	if c, ok := entry.dictGet("condition"); ok && c.kind == vkString {
		cond = c.str
	}
	return types.DependencyDef{Packages: pkgs, Condition: cond}, nil
}

func resolveStringList(v value) []string {
	if v.kind != vkList {
		return nil
	}
	out := make([]string, 0, len(v.list))
	for _, item := range v.list {
		if item.kind == vkString {
			out = append(out, item.str)
		}
	}
	return out
}
