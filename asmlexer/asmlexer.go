// Package asmlexer tokenizes ASM source: whitespace-separated opcode
// names and "0x"-prefixed hex literals, one instruction stream per
// script, "//" starting a line comment. There's no Pratt grammar to
// drive here the way lexer/parser needs one -- ASM has no expressions,
// precedence, or nesting -- so tokenizing and parsing ASM is a single
// straight-line pass; asmparser calls Tokenize directly rather than
// pulling tokens one at a time the way parser.Parser pulls from
// lexer.Lexer.
package asmlexer

import "github.com/dr8co/txsc/token"

// Tokenize splits src into a stream of Ident/Hex tokens terminated by
// an EOF token, tracking line numbers for diagnostics.
func Tokenize(src string) []token.Token {
	var toks []token.Token
	line := 1
	i := 0
	n := len(src)

	for i < n {
		ch := src[i]
		switch {
		case ch == '\n':
			line++
			i++
		case ch == ' ' || ch == '\t' || ch == '\r':
			i++
		case ch == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		default:
			start := i
			for i < n && !isSpace(src[i]) {
				i++
			}
			field := src[start:i]
			toks = append(toks, token.Token{Type: fieldType(field), Literal: field, Line: line})
		}
	}

	toks = append(toks, token.Token{Type: token.EOF, Line: line})
	return toks
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func fieldType(field string) token.Type {
	if len(field) >= 2 && field[0] == '0' && (field[1] == 'x' || field[1] == 'X') {
		return token.Hex
	}
	return token.Ident
}
