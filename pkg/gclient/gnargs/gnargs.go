// Package gnargs generates the downstream GN-args file: a whitelisted
// subset of variables serialized in a simple "key = value" syntax, per
// spec §4.5.
//
// Grounded on original_source/src/gn_args.rs (serialize_gn_arg's
// literal/bool/None/truthiness dispatch and the generated header line).
package gnargs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

const header = "# generated by gclient\n"

// Write renders spec.GClientGNArgs against scope and writes the result
// to spec.GClientGNArgsFile, resolved within basePath. It is a no-op if
// either field is unset (spec §4.5: "If both ... are present").
func Write(basePath string, spec *types.DepsSpec, scope map[string]types.VarsPrimitive) error {
	if spec.GClientGNArgsFile == "" || len(spec.GClientGNArgs) == 0 {
		return nil
	}

	target, err := gerrors.ResolveWithinBase(basePath, spec.GClientGNArgsFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "creating gn args directory for %q", target)
	}

	var b strings.Builder
	b.WriteString(header)
	for _, name := range spec.GClientGNArgs {
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(serialize(scope[name]))
		b.WriteString("\n")
	}

	if err := os.WriteFile(target, []byte(b.String()), 0o644); err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "writing gn args file %q", target)
	}
	return nil
}

// serialize renders one variable's value per spec §4.5's rules:
// literal strings become quoted JSON strings, booleans become
// true/false, an absent/null value becomes "null", and anything else
// falls back to its Python-style truthiness.
func serialize(v types.VarsPrimitive) string {
	if v == (types.VarsPrimitive{}) {
		return "null"
	}
	if v.IsLiteral() {
		encoded, _ := json.Marshal(v.Str())
		return string(encoded)
	}
	if v.IsBool() {
		if v.BoolValue() {
			return "true"
		}
		return "false"
	}
	if v.Truthy() {
		return "true"
	}
	return "false"
}
