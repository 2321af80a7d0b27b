package depsfile

import (
	"strconv"
	"strings"
	"unicode"

	gerrors "github.com/tapcart/gclient/pkg/errors"
)

// value is a raw parsed Python-literal-shaped value from a DEPS or
// .gclient script: a string, number, bool, None, dict, list, or a call
// expression (Var(...)/Str(...)) left unevaluated until a variable
// scope is available.
type value struct {
	kind   valueKind
	str    string
	i      int64
	f      float64
	b      bool
	dict   []dictEntry // preserves source order
	list   []value
	call   string // "Var" or "Str"
	callArgs []value
}

type dictEntry struct {
	key string
	val value
}

type valueKind int

const (
	vkString valueKind = iota
	vkInt
	vkFloat
	vkBool
	vkNone
	vkDict
	vkList
	vkCall
)

func (v value) dictGet(key string) (value, bool) {
	for _, e := range v.dict {
		if e.key == key {
			return e.val, true
		}
	}
	return value{}, false
}

// literalParser parses the restricted Python-literal grammar used for
// top-level DEPS/.gclient assignments: dict/list literals, strings,
// numbers, booleans, None, and Var(...)/Str(...) calls. Condition and
// URL-format expressions are handled separately by pkg/gclient/expr;
// this parser only needs to build the static shape of vars/deps/
// solutions before any variable scope exists.
type literalParser struct {
	s   string
	pos int
}

func newLiteralParser(s string) *literalParser { return &literalParser{s: s} }

func (p *literalParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		if c == '#' {
			for p.pos < len(p.s) && p.s[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *literalParser) expectByte(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return gerrors.New(gerrors.CodeConfig, "expected %q at position %d, found %q", c, p.pos, p.peek())
	}
	p.pos++
	return nil
}

func (p *literalParser) parseValue() (value, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		s, err := p.parseString()
		return value{kind: vkString, str: s}, err
	case c == '{':
		return p.parseDict()
	case c == '[' || c == '(':
		return p.parseList(c)
	case unicode.IsDigit(rune(c)) || c == '-':
		return p.parseNumber()
	case isIdentStartByte(c):
		return p.parseIdentOrCall()
	default:
		return value{}, gerrors.New(gerrors.CodeConfig, "unexpected character %q at position %d", c, p.pos)
	}
}

func isIdentStartByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentByte(c byte) bool {
	return isIdentStartByte(c) || (c >= '0' && c <= '9')
}

func (p *literalParser) parseString() (string, error) {
	quote := p.s[p.pos]
	triple := strings.HasPrefix(p.s[p.pos:], strings.Repeat(string(quote), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}
	var b strings.Builder
	terminator := string(quote)
	if triple {
		terminator = strings.Repeat(string(quote), 3)
	}
	for {
		if p.pos >= len(p.s) {
			return "", gerrors.New(gerrors.CodeConfig, "unterminated string literal")
		}
		if strings.HasPrefix(p.s[p.pos:], terminator) {
			p.pos += len(terminator)
			return b.String(), nil
		}
		if p.s[p.pos] == '\\' && p.pos+1 < len(p.s) {
			p.pos++
			esc := p.s[p.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}
			p.pos++
			continue
		}
		b.WriteByte(p.s[p.pos])
		p.pos++
	}
}

func (p *literalParser) parseNumber() (value, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && unicode.IsDigit(rune(p.s[p.pos])) {
		p.pos++
	}
	isFloat := false
	if p.peek() == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.s) && unicode.IsDigit(rune(p.s[p.pos])) {
			p.pos++
		}
	}
	text := p.s[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return value{}, gerrors.Wrap(gerrors.CodeConfig, err, "parsing number %q", text)
		}
		return value{kind: vkFloat, f: f}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return value{}, gerrors.Wrap(gerrors.CodeConfig, err, "parsing number %q", text)
	}
	return value{kind: vkInt, i: i}, nil
}

func (p *literalParser) parseIdentOrCall() (value, error) {
	start := p.pos
	for p.pos < len(p.s) && isIdentByte(p.s[p.pos]) {
		p.pos++
	}
	ident := p.s[start:p.pos]
	switch ident {
	case "True":
		return value{kind: vkBool, b: true}, nil
	case "False":
		return value{kind: vkBool, b: false}, nil
	case "None":
		return value{kind: vkNone}, nil
	}

	p.skipSpace()
	if p.peek() != '(' {
		return value{}, gerrors.New(gerrors.CodeConfig, "unsupported bare identifier %q at position %d", ident, start)
	}
	p.pos++ // consume '('
	var args []value
	p.skipSpace()
	if p.peek() != ')' {
		for {
			a, err := p.parseValue()
			if err != nil {
				return value{}, err
			}
			args = append(args, a)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				p.skipSpace()
				continue
			}
			break
		}
	}
	if err := p.expectByte(')'); err != nil {
		return value{}, err
	}
	return value{kind: vkCall, call: ident, callArgs: args}, nil
}

func (p *literalParser) parseDict() (value, error) {
	if err := p.expectByte('{'); err != nil {
		return value{}, err
	}
	var entries []dictEntry
	p.skipSpace()
	for p.peek() != '}' {
		p.skipSpace()
		key, err := p.parseValue()
		if err != nil {
			return value{}, err
		}
		if err := p.expectByte(':'); err != nil {
			return value{}, err
		}
		val, err := p.parseValue()
		if err != nil {
			return value{}, err
		}
		entries = append(entries, dictEntry{key: key.str, val: val})
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			p.skipSpace()
			continue
		}
		break
	}
	if err := p.expectByte('}'); err != nil {
		return value{}, err
	}
	return value{kind: vkDict, dict: entries}, nil
}

func (p *literalParser) parseList(open byte) (value, error) {
	close := byte(']')
	if open == '(' {
		close = ')'
	}
	if err := p.expectByte(open); err != nil {
		return value{}, err
	}
	var items []value
	p.skipSpace()
	for p.peek() != close {
		v, err := p.parseValue()
		if err != nil {
			return value{}, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			p.skipSpace()
			continue
		}
		break
	}
	if err := p.expectByte(close); err != nil {
		return value{}, err
	}
	return value{kind: vkList, list: items}, nil
}
