// Package types holds the fetcher's data model: variables, dependency
// entries, workspace solutions, target-OS/CPU lists, and package
// descriptors.
//
// Grounded on spec.md §3 and original_source/src/types/{deps,dotgclient,machine}.rs.
package types

import "strconv"

// VarsPrimitive is a tagged value found in DEPS `vars` maps and
// variable scopes: a string, integer, float, boolean, or a wrapped
// literal string (the Str(...) marker, meaning "emit verbatim" rather
// than "re-quote").
type VarsPrimitive struct {
	kind    kind
	str     string
	i       int64
	f       float64
	b       bool
	literal bool
}

type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
)

// String constructs a plain string VarsPrimitive.
func String(s string) VarsPrimitive { return VarsPrimitive{kind: kindString, str: s} }

// Literal constructs a Str(...) marker VarsPrimitive: a string flagged
// as a Str(...) literal. The GN-args writer emits it as a quoted GN
// string.
func Literal(s string) VarsPrimitive {
	return VarsPrimitive{kind: kindString, str: s, literal: true}
}

// Int constructs an integer VarsPrimitive.
func Int(i int64) VarsPrimitive { return VarsPrimitive{kind: kindInt, i: i} }

// Float constructs a float VarsPrimitive.
func Float(f float64) VarsPrimitive { return VarsPrimitive{kind: kindFloat, f: f} }

// Bool constructs a boolean VarsPrimitive.
func Bool(b bool) VarsPrimitive { return VarsPrimitive{kind: kindBool, b: b} }

// IsString reports whether the value is a (possibly literal) string.
func (v VarsPrimitive) IsString() bool { return v.kind == kindString }

// IsLiteral reports whether the value is a Str(...) marker.
func (v VarsPrimitive) IsLiteral() bool { return v.literal }

// IsBool reports whether the value is a boolean.
func (v VarsPrimitive) IsBool() bool { return v.kind == kindBool }

// Str returns the string contents of a string/literal value.
func (v VarsPrimitive) Str() string { return v.str }

// BoolValue returns the boolean contents of a boolean value.
func (v VarsPrimitive) BoolValue() bool { return v.b }

// Truthy applies Python-style truthiness: empty string, zero, false,
// and the zero value are falsy; everything else is truthy.
func (v VarsPrimitive) Truthy() bool {
	switch v.kind {
	case kindString:
		return v.str != ""
	case kindInt:
		return v.i != 0
	case kindFloat:
		return v.f != 0
	case kindBool:
		return v.b
	default:
		return false
	}
}

// AsString renders the value the way str(value) would in the sandbox:
// literal and plain strings render as their contents, booleans as
// True/False, numbers via their natural formatting.
func (v VarsPrimitive) AsString() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindBool:
		if v.b {
			return "True"
		}
		return "False"
	case kindInt:
		return itoa(v.i)
	case kindFloat:
		return ftoa(v.f)
	default:
		return ""
	}
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// DependencyDef is a single entry in a DepsSpec's `deps` map: either a
// Git dependency or a CIPD package list, with an optional condition.
type DependencyDef struct {
	// Git fields. URL may embed "@ref".
	URL string

	// CIPD fields.
	Packages []CIPDPackage

	Condition string // optional expression string; empty means unconditional
}

// IsCIPD reports whether this entry is a CIPD dependency, discriminated
// structurally by the presence of a packages list (matching spec §3 and
// original_source/src/types/deps.rs, not the dep_type string key seen
// in some downstream Go ports).
func (d DependencyDef) IsCIPD() bool { return len(d.Packages) > 0 }

// CIPDPackage is a single {package, version} pair within a CIPD entry.
type CIPDPackage struct {
	Package string
	Version string
}

// DepsSpec is the evaluated DEPS file.
type DepsSpec struct {
	Vars               map[string]VarsPrimitive
	Deps               map[string]DependencyDef
	GClientGNArgsFile  string
	GClientGNArgs      []string
	UseRelativePaths   bool
	Recursedeps        []string
}

// Solution is a workspace-config entry naming a top-level repository.
type Solution struct {
	Name            string
	URL             string // may be empty for recursedeps-only synthetic solutions
	Managed         *bool  // preserved per spec §9's open question; never acted upon
	DepsFile        string // defaults to "DEPS"
	CustomVars      map[string]VarsPrimitive
	NoCheckout      bool
	FromRecursedeps bool
}

// DepsFileName returns the solution's DEPS filename, defaulting to "DEPS".
func (s Solution) DepsFileName() string {
	if s.DepsFile == "" {
		return "DEPS"
	}
	return s.DepsFile
}

// Workspace is the parsed .gclient configuration.
type Workspace struct {
	Solutions     []Solution
	TargetOS      []string
	TargetCPU     []string
	TargetOSOnly  bool
	TargetCPUOnly bool
}
