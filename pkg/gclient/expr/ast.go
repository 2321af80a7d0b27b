package expr

import (
	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// Env is the variable scope an expression is evaluated against.
// Grounded on the Expr/Env pairing in AlexanderEkdahl-rope/version/expr.go,
// generalized from boolean marker evaluation to typed value evaluation.
type Env interface {
	Lookup(name string) (types.VarsPrimitive, bool)
}

// MapEnv is the common Env implementation: a plain variable map.
type MapEnv map[string]types.VarsPrimitive

// Lookup implements Env.
func (m MapEnv) Lookup(name string) (types.VarsPrimitive, bool) {
	v, ok := m[name]
	return v, ok
}

// node is any expression AST node.
type node interface {
	eval(env Env) (types.VarsPrimitive, error)
}

type identNode struct{ name string }

func (n identNode) eval(env Env) (types.VarsPrimitive, error) {
	v, ok := env.Lookup(n.name)
	if !ok {
		return types.VarsPrimitive{}, gerrors.New(gerrors.CodeEval, "undefined identifier %q", n.name)
	}
	return v, nil
}

type stringLit struct{ value string }

func (n stringLit) eval(Env) (types.VarsPrimitive, error) { return types.String(n.value), nil }

type boolLit struct{ value bool }

func (n boolLit) eval(Env) (types.VarsPrimitive, error) { return types.Bool(n.value), nil }

type numberLit struct {
	isFloat bool
	i       int64
	f       float64
}

func (n numberLit) eval(Env) (types.VarsPrimitive, error) {
	if n.isFloat {
		return types.Float(n.f), nil
	}
	return types.Int(n.i), nil
}

type notNode struct{ x node }

func (n notNode) eval(env Env) (types.VarsPrimitive, error) {
	v, err := n.x.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	return types.Bool(!v.Truthy()), nil
}

type andNode struct{ lhs, rhs node }

func (n andNode) eval(env Env) (types.VarsPrimitive, error) {
	l, err := n.lhs.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	if !l.Truthy() {
		return l, nil
	}
	return n.rhs.eval(env)
}

type orNode struct{ lhs, rhs node }

func (n orNode) eval(env Env) (types.VarsPrimitive, error) {
	l, err := n.lhs.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	if l.Truthy() {
		return l, nil
	}
	return n.rhs.eval(env)
}

type cmpNode struct {
	lhs, rhs node
	negate   bool // != instead of ==
}

func (n cmpNode) eval(env Env) (types.VarsPrimitive, error) {
	l, err := n.lhs.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	r, err := n.rhs.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	eq := l.AsString() == r.AsString() && l.IsBool() == r.IsBool()
	if n.negate {
		eq = !eq
	}
	return types.Bool(eq), nil
}

// varCall is the Var(name) builtin: returns vars[name].
type varCall struct{ name node }

func (n varCall) eval(env Env) (types.VarsPrimitive, error) {
	name, err := n.name.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	v, ok := env.Lookup(name.AsString())
	if !ok {
		return types.VarsPrimitive{}, gerrors.New(gerrors.CodeEval, "Var(%q): undefined variable", name.AsString())
	}
	return v, nil
}

// strCall is the Str(x) builtin: wraps x's string form as a literal
// marker distinguishing "emit literally" from "emit as data".
type strCall struct{ x node }

func (n strCall) eval(env Env) (types.VarsPrimitive, error) {
	v, err := n.x.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	return types.Literal(v.AsString()), nil
}

// formatCall is "<string>".format(**vars): substitutes {name} markers
// in the string using the current scope.
type formatCall struct{ recv node }

func (n formatCall) eval(env Env) (types.VarsPrimitive, error) {
	v, err := n.recv.eval(env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	out, err := formatString(v.AsString(), env)
	if err != nil {
		return types.VarsPrimitive{}, err
	}
	return types.String(out), nil
}

func formatString(s string, env Env) (string, error) {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '{' {
			j := i + 1
			for j < len(s) && s[j] != '}' {
				j++
			}
			if j >= len(s) {
				return "", gerrors.New(gerrors.CodeEval, "unterminated format placeholder in %q", s)
			}
			name := s[i+1 : j]
			v, ok := env.Lookup(name)
			if !ok {
				return "", gerrors.New(gerrors.CodeEval, "format placeholder {%s} is undefined", name)
			}
			out = append(out, []byte(v.AsString())...)
			i = j + 1
			continue
		}
		out = append(out, s[i])
		i++
	}
	return string(out), nil
}
