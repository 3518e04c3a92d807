// Package lexer implements the lexical analyzer for TxScript source.
//
// It reads the input byte by byte and produces a stream of tokens
// consumed by the parser, in the same single-pass, reuse-common-tokens
// style as the teacher's lexer package.
package lexer

import (
	"strings"

	"github.com/dr8co/txsc/token"
)

var (
	tokenPlus      = token.Token{Type: token.Plus, Literal: "+"}
	tokenMinus     = token.Token{Type: token.Minus, Literal: "-"}
	tokenAsterisk  = token.Token{Type: token.Asterisk, Literal: "*"}
	tokenSlash     = token.Token{Type: token.Slash, Literal: "/"}
	tokenPercent   = token.Token{Type: token.Percent, Literal: "%"}
	tokenTilde     = token.Token{Type: token.Tilde, Literal: "~"}
	tokenComma     = token.Token{Type: token.Comma, Literal: ","}
	tokenSemicolon = token.Token{Type: token.Semicolon, Literal: ";"}
	tokenLparen    = token.Token{Type: token.Lparen, Literal: "("}
	tokenRparen    = token.Token{Type: token.Rparen, Literal: ")"}
	tokenLbrace    = token.Token{Type: token.Lbrace, Literal: "{"}
	tokenRbrace    = token.Token{Type: token.Rbrace, Literal: "}"}
	tokenEOF       = token.Token{Type: token.EOF, Literal: ""}
)

// Lexer tokenizes TxScript source text.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
}

// New creates a Lexer over input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) withLine(t token.Token) token.Token {
	t.Line = l.line
	return t
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	line := l.line

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.Eq, Literal: "==", Line: line}
		}
		l.readChar()
		return token.Token{Type: token.Assign, Literal: "=", Line: line}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.NotEq, Literal: "!=", Line: line}
		}
		l.readChar()
		return token.Token{Type: token.Bang, Literal: "!", Line: line}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			l.readChar()
			return token.Token{Type: token.Lte, Literal: "<=", Line: line}
		case '<':
			l.readChar()
			l.readChar()
			return token.Token{Type: token.LShift, Literal: "<<", Line: line}
		}
		l.readChar()
		return token.Token{Type: token.Lt, Literal: "<", Line: line}
	case '>':
		switch l.peekChar() {
		case '=':
			l.readChar()
			l.readChar()
			return token.Token{Type: token.Gte, Literal: ">=", Line: line}
		case '>':
			l.readChar()
			l.readChar()
			return token.Token{Type: token.RShift, Literal: ">>", Line: line}
		}
		l.readChar()
		return token.Token{Type: token.Gt, Literal: ">", Line: line}
	case '+':
		l.readChar()
		return l.withLine(tokenPlus)
	case '-':
		l.readChar()
		return l.withLine(tokenMinus)
	case '*':
		l.readChar()
		return l.withLine(tokenAsterisk)
	case '/':
		l.readChar()
		return l.withLine(tokenSlash)
	case '%':
		l.readChar()
		return l.withLine(tokenPercent)
	case '~':
		l.readChar()
		return l.withLine(tokenTilde)
	case ',':
		l.readChar()
		return l.withLine(tokenComma)
	case ';':
		l.readChar()
		return l.withLine(tokenSemicolon)
	case '(':
		l.readChar()
		return l.withLine(tokenLparen)
	case ')':
		l.readChar()
		return l.withLine(tokenRparen)
	case '{':
		l.readChar()
		return l.withLine(tokenLbrace)
	case '}':
		l.readChar()
		return l.withLine(tokenRbrace)
	case '"':
		lit, ok := l.readString()
		if !ok {
			return token.Token{Type: token.Illegal, Literal: "unterminated string", Line: line}
		}
		tok := token.Token{Type: token.String, Literal: lit, Line: line}
		l.readChar()
		return tok
	case 0:
		return l.withLine(tokenEOF)
	default:
		if isLetter(l.ch) {
			literal := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(literal), Literal: literal, Line: line}
		}
		if isDigit(l.ch) {
			lit, typ := l.readNumber()
			return token.Token{Type: typ, Literal: lit, Line: line}
		}
		ch := l.ch
		l.readChar()
		return token.Token{Type: token.Illegal, Literal: string(ch), Line: line}
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

// readNumber reads a decimal integer or, on a "0x" prefix, a hex literal.
func (l *Lexer) readNumber() (string, token.Type) {
	position := l.position
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return l.input[position:l.position], token.Hex
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position], token.Int
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// skipWhitespace fast-forwards through whitespace, newlines (tracked for
// line numbers), and "//" line comments.
func (l *Lexer) skipWhitespace() {
	for {
		if l.ch == '\n' {
			l.line++
			l.readChar()
			continue
		}
		if l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
			continue
		}
		if l.ch == '/' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readString reads a double-quoted string literal, interpreting the
// standard backslash escapes; it is used both for byte-array literals
// and for base58check address literals.
func (l *Lexer) readString() (string, bool) {
	var b strings.Builder
	l.readChar()
	for {
		if l.ch == '"' {
			return b.String(), true
		}
		if l.ch == 0 {
			return b.String(), false
		}
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				return b.String(), false
			}
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte('\\')
				b.WriteByte(l.ch)
			}
		} else {
			b.WriteByte(l.ch)
		}
		l.readChar()
	}
}
