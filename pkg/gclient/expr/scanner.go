package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"

	gerrors "github.com/tapcart/gclient/pkg/errors"
)

// scanner walks a string by byte position, mirroring the string-
// position parser pattern used throughout the pack's own small
// grammars (see package doc).
type scanner struct {
	s   string
	pos int
}

func newScanner(s string) *scanner { return &scanner{s: s} }

func (sc *scanner) peekRune() rune {
	if sc.pos >= len(sc.s) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(sc.s[sc.pos:])
	return r
}

func (sc *scanner) advance() rune {
	if sc.pos >= len(sc.s) {
		return -1
	}
	r, size := utf8.DecodeRuneInString(sc.s[sc.pos:])
	sc.pos += size
	return r
}

func (sc *scanner) skipWhitespace() {
	for {
		r := sc.peekRune()
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			sc.advance()
			continue
		}
		break
	}
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentCont(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

// next scans the next token from the current position.
func (sc *scanner) next() (token, error) {
	sc.skipWhitespace()
	start := sc.pos
	r := sc.peekRune()

	switch {
	case r == -1:
		return token{kind: tokEOF, pos: start}, nil
	case r == '(':
		sc.advance()
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case r == ')':
		sc.advance()
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case r == ',':
		sc.advance()
		return token{kind: tokComma, text: ",", pos: start}, nil
	case r == '.':
		sc.advance()
		return token{kind: tokDot, text: ".", pos: start}, nil
	case r == '\'' || r == '"':
		return sc.scanString(r, start)
	case r == '=':
		sc.advance()
		if sc.peekRune() == '=' {
			sc.advance()
			return token{kind: tokEq, text: "==", pos: start}, nil
		}
		return token{}, gerrors.New(gerrors.CodeEval, "unexpected '=' at position %d", start)
	case r == '!':
		sc.advance()
		if sc.peekRune() == '=' {
			sc.advance()
			return token{kind: tokNeq, text: "!=", pos: start}, nil
		}
		return token{}, gerrors.New(gerrors.CodeEval, "unexpected '!' at position %d", start)
	case unicode.IsDigit(r):
		return sc.scanNumber(start)
	case isIdentStart(r):
		return sc.scanIdent(start)
	default:
		return token{}, gerrors.New(gerrors.CodeEval, "unexpected character %q at position %d", r, start)
	}
}

func (sc *scanner) scanIdent(start int) (token, error) {
	for isIdentCont(sc.peekRune()) {
		sc.advance()
	}
	text := sc.s[start:sc.pos]
	switch text {
	case "and":
		return token{kind: tokAnd, text: text, pos: start}, nil
	case "or":
		return token{kind: tokOr, text: text, pos: start}, nil
	case "not":
		return token{kind: tokNot, text: text, pos: start}, nil
	case "True":
		return token{kind: tokTrue, text: text, pos: start}, nil
	case "False":
		return token{kind: tokFalse, text: text, pos: start}, nil
	case "None":
		return token{kind: tokNone, text: text, pos: start}, nil
	default:
		return token{kind: tokIdent, text: text, pos: start}, nil
	}
}

func (sc *scanner) scanNumber(start int) (token, error) {
	for unicode.IsDigit(sc.peekRune()) {
		sc.advance()
	}
	if sc.peekRune() == '.' {
		sc.advance()
		for unicode.IsDigit(sc.peekRune()) {
			sc.advance()
		}
	}
	return token{kind: tokNumber, text: sc.s[start:sc.pos], pos: start}, nil
}

func (sc *scanner) scanString(quote rune, start int) (token, error) {
	sc.advance() // consume opening quote
	var b strings.Builder
	for {
		r := sc.peekRune()
		if r == -1 {
			return token{}, gerrors.New(gerrors.CodeEval, "unterminated string starting at %d", start)
		}
		if r == quote {
			sc.advance()
			break
		}
		if r == '\\' {
			sc.advance()
			esc := sc.advance()
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case '\\', '\'', '"':
				b.WriteRune(esc)
			default:
				b.WriteRune(esc)
			}
			continue
		}
		b.WriteRune(r)
		sc.advance()
	}
	return token{kind: tokString, text: b.String(), pos: start}, nil
}
