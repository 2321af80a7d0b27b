package expr

import (
	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// EvaluateBool parses and evaluates expr as a boolean condition under
// scope. Used for DEPS entry `condition` expressions.
func EvaluateBool(expression string, scope Env) (bool, error) {
	v, err := EvaluateValue(expression, scope)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// EvaluateValue parses and evaluates expr as a value expression under
// scope. EvaluateBool is built on it; URL templates go through Format
// instead.
func EvaluateValue(expression string, scope Env) (types.VarsPrimitive, error) {
	n, err := compile(expression)
	if err != nil {
		return types.VarsPrimitive{}, gerrors.Wrap(gerrors.CodeEval, err, "parsing expression %q", expression)
	}
	v, err := n.eval(scope)
	if err != nil {
		return types.VarsPrimitive{}, gerrors.Wrap(gerrors.CodeEval, err, "evaluating expression %q", expression)
	}
	return v, nil
}

// Format applies str.format(**vars) semantics to a literal string
// (not run through the expression parser, since DEPS URL templates are
// plain strings containing {placeholder} markers, not expressions).
func Format(s string, scope Env) (string, error) {
	out, err := formatString(s, scope)
	if err != nil {
		return "", gerrors.Wrap(gerrors.CodeEval, err, "formatting %q", s)
	}
	return out, nil
}
