package ast

import (
	"testing"

	"github.com/dr8co/txsc/token"
)

func TestScriptDelegatesToFirstStatement(t *testing.T) {
	stmt := &ExpressionStatement{Token: token.Token{Literal: "5", Line: 3}}
	script := &Script{Statements: []Statement{stmt}}

	if got := script.TokenLiteral(); got != "5" {
		t.Errorf("TokenLiteral() = %q, want %q", got, "5")
	}
	if got := script.Line(); got != 3 {
		t.Errorf("Line() = %d, want 3", got)
	}
}

func TestEmptyScriptHasZeroValues(t *testing.T) {
	script := &Script{}
	if got := script.TokenLiteral(); got != "" {
		t.Errorf("TokenLiteral() = %q, want empty", got)
	}
	if got := script.Line(); got != 0 {
		t.Errorf("Line() = %d, want 0", got)
	}
}
