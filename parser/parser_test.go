package parser

import (
	"testing"

	"github.com/dr8co/txsc/ast"
	"github.com/dr8co/txsc/lexer"
)

func parseScript(t *testing.T, input string) *ast.Script {
	t.Helper()
	p := New(lexer.New(input))
	script := p.ParseScript()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return script
}

func TestParseAssumeStatement(t *testing.T) {
	script := parseScript(t, "assume sig, pubkey;")
	if len(script.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(script.Statements))
	}
	stmt, ok := script.Statements[0].(*ast.AssumeStatement)
	if !ok {
		t.Fatalf("expected *ast.AssumeStatement, got %T", script.Statements[0])
	}
	want := []string{"sig", "pubkey"}
	if len(stmt.Names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(stmt.Names))
	}
	for i, name := range want {
		if stmt.Names[i] != name {
			t.Errorf("name[%d] = %q, want %q", i, stmt.Names[i], name)
		}
	}
}

func TestParseLetAndAssign(t *testing.T) {
	script := parseScript(t, "let mut x = 1 + 2; x = x * 3;")
	if len(script.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(script.Statements))
	}

	let, ok := script.Statements[0].(*ast.LetStatement)
	if !ok {
		t.Fatalf("expected *ast.LetStatement, got %T", script.Statements[0])
	}
	if !let.Mutable || let.Name != "x" {
		t.Fatalf("unexpected let statement: %+v", let)
	}
	infix, ok := let.Value.(*ast.InfixExpression)
	if !ok || infix.Operator != "+" {
		t.Fatalf("expected '+' infix expression, got %+v", let.Value)
	}

	assign, ok := script.Statements[1].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected *ast.AssignStatement, got %T", script.Statements[1])
	}
	if assign.Name != "x" {
		t.Errorf("assign.Name = %q, want x", assign.Name)
	}
}

func TestParseIfElse(t *testing.T) {
	script := parseScript(t, "if (x < y) { verify x; } else { verify y; }")
	stmt, ok := script.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", script.Statements[0])
	}
	if len(stmt.Consequence) != 1 || len(stmt.Alternative) != 1 {
		t.Fatalf("expected one statement per branch, got %d/%d", len(stmt.Consequence), len(stmt.Alternative))
	}
	cond, ok := stmt.Condition.(*ast.InfixExpression)
	if !ok || cond.Operator != "<" {
		t.Fatalf("expected '<' condition, got %+v", stmt.Condition)
	}
}

func TestParseFuncStatement(t *testing.T) {
	script := parseScript(t, "func double(a) { return a * 2; }")
	fn, ok := script.Statements[0].(*ast.FuncStatement)
	if !ok {
		t.Fatalf("expected *ast.FuncStatement, got %T", script.Statements[0])
	}
	if fn.Name != "double" || len(fn.Params) != 1 || fn.Params[0] != "a" {
		t.Fatalf("unexpected func statement: %+v", fn)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*ast.ReturnStatement); !ok {
		t.Fatalf("expected *ast.ReturnStatement, got %T", fn.Body[0])
	}
}

func TestParseCallAndCast(t *testing.T) {
	script := parseScript(t, "push(hash160(pubkey) as bytes);")
	stmt, ok := script.Statements[0].(*ast.PushStatement)
	if !ok {
		t.Fatalf("expected *ast.PushStatement, got %T", script.Statements[0])
	}
	cast, ok := stmt.Value.(*ast.CastExpression)
	if !ok || cast.AsType != "bytes" {
		t.Fatalf("expected bytes cast, got %+v", stmt.Value)
	}
	call, ok := cast.Value.(*ast.CallExpression)
	if !ok || call.Function != "hash160" || len(call.Arguments) != 1 {
		t.Fatalf("expected hash160(pubkey), got %+v", cast.Value)
	}
}

func TestParseInnerScriptLiteral(t *testing.T) {
	script := parseScript(t, "let r = { verify x; };")
	let := script.Statements[0].(*ast.LetStatement)
	inner, ok := let.Value.(*ast.InnerScriptLiteral)
	if !ok {
		t.Fatalf("expected *ast.InnerScriptLiteral, got %T", let.Value)
	}
	if len(inner.Statements) != 1 {
		t.Fatalf("expected 1 inner statement, got %d", len(inner.Statements))
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string // operator at the top of the tree
	}{
		{"1 + 2 * 3;", "+"},
		{"1 * 2 + 3;", "+"},
		{"1 < 2 and 3 < 4;", "and"},
		{"1 == 2 or 3 == 4;", "or"},
	}
	for _, tt := range tests {
		script := parseScript(t, tt.input)
		stmt, ok := script.Statements[0].(*ast.ExpressionStatement)
		if !ok {
			t.Fatalf("%q: expected *ast.ExpressionStatement, got %T", tt.input, script.Statements[0])
		}
		infix, ok := stmt.Expression.(*ast.InfixExpression)
		if !ok {
			t.Fatalf("%q: expected top-level infix expression, got %+v", tt.input, stmt.Expression)
		}
		if infix.Operator != tt.want {
			t.Errorf("%q: top operator = %q, want %q", tt.input, infix.Operator, tt.want)
		}
	}
}

func TestParseHexLiteral(t *testing.T) {
	script := parseScript(t, "push(0x00ff);")
	stmt := script.Statements[0].(*ast.PushStatement)
	lit, ok := stmt.Value.(*ast.BytesLiteral)
	if !ok {
		t.Fatalf("expected *ast.BytesLiteral, got %T", stmt.Value)
	}
	if len(lit.Value) != 2 || lit.Value[0] != 0x00 || lit.Value[1] != 0xff {
		t.Fatalf("unexpected bytes: %x", lit.Value)
	}
}

func TestParseErrorOnMissingToken(t *testing.T) {
	p := New(lexer.New("let x = "))
	p.ParseScript()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected a parse error for an incomplete let statement")
	}
}
