package depsfile

import "github.com/tapcart/gclient/pkg/gclient/types"

// Raw is an exported handle onto a parsed top-level literal value. It
// exists so that other DEPS-grammar consumers — chiefly
// pkg/gclient/workspace, which reads .gclient files in the same
// restricted literal grammar spec §4.3 describes as "a similar scope"
// — can reuse this package's literal parser without duplicating it.
type Raw struct{ v value }

// ParseTopLevel parses a script's top-level "name = <value>" bindings,
// shared by DEPS files and .gclient files (spec §4.2, §4.3).
func ParseTopLevel(text string) (map[string]Raw, error) {
	bindings, err := parseTopLevel(text)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Raw, len(bindings))
	for k, v := range bindings {
		out[k] = Raw{v}
	}
	return out, nil
}

// IsList reports whether r holds a list literal.
func (r Raw) IsList() bool { return r.v.kind == vkList }

// IsDict reports whether r holds a dict literal.
func (r Raw) IsDict() bool { return r.v.kind == vkDict }

// IsString reports whether r holds a string literal.
func (r Raw) IsString() bool { return r.v.kind == vkString }

// IsBool reports whether r holds a boolean literal.
func (r Raw) IsBool() bool { return r.v.kind == vkBool }

// List returns the elements of a list literal, or nil if r is not a list.
func (r Raw) List() []Raw {
	if r.v.kind != vkList {
		return nil
	}
	out := make([]Raw, len(r.v.list))
	for i, v := range r.v.list {
		out[i] = Raw{v}
	}
	return out
}

// DictGet looks up a key in a dict literal.
func (r Raw) DictGet(key string) (Raw, bool) {
	v, ok := r.v.dictGet(key)
	return Raw{v}, ok
}

// DictKeys returns the keys of a dict literal in source order.
func (r Raw) DictKeys() []string {
	if r.v.kind != vkDict {
		return nil
	}
	keys := make([]string, len(r.v.dict))
	for i, e := range r.v.dict {
		keys[i] = e.key
	}
	return keys
}

// Str returns the string contents of a string literal, or "" if r is
// not a string.
func (r Raw) Str() string {
	if r.v.kind != vkString {
		return ""
	}
	return r.v.str
}

// Bool returns the boolean contents of a bool literal, or false
// otherwise.
func (r Raw) Bool() bool {
	return r.v.kind == vkBool && r.v.b
}

// Scalar converts a literal scalar (string, int, float, bool) into a
// types.VarsPrimitive, evaluating Str(...)/Var(...) calls against an
// empty scope (used for custom_vars overlays, which are plain literal
// overrides rather than expressions over spec vars).
func (r Raw) Scalar() (types.VarsPrimitive, bool) {
	v, ok, err := evalRawValue(r.v, nil)
	if err != nil || !ok {
		return types.VarsPrimitive{}, false
	}
	return v, true
}
