package sir

import (
	"testing"

	"github.com/dr8co/txsc/config"
)

func optimize(t *testing.T, script *Script, opts config.Options) (*Script, *SymbolTable) {
	t.Helper()
	symtab := NewSymbolTable()
	out, _, err := Optimize(script, symtab, opts)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	return out, symtab
}

func TestOptimizeConstantFoldsArithmetic(t *testing.T) {
	script := &Script{Statements: []Node{
		&VerifyOpCode{OpCode: OpCode{Name: "OP_NUMEQUAL"}, Test: &BinOpCode{
			OpCode: OpCode{Name: "OP_ADD"},
			Left:   NewInt(1, 2),
			Right:  NewInt(1, 3),
		}},
	}}
	out, _ := optimize(t, script, config.Default())
	verify := out.Statements[0].(*VerifyOpCode)
	i, ok := verify.Test.(*Int)
	if !ok || i.Value != 5 {
		t.Fatalf("expected constant-folded 5, got %+v", verify.Test)
	}
}

func TestOptimizeLeavesAssumptionsUnfolded(t *testing.T) {
	symtab := NewSymbolTable()
	symtab.AddStackAssumptions([]string{"x"})
	script := &Script{Statements: []Node{
		&UnaryOpCode{OpCode: OpCode{Name: "OP_NEGATE"}, Operand: NewSymbol(1, "x")},
	}}
	out, _, err := Optimize(script, symtab, config.Default())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	unary, ok := out.Statements[0].(*UnaryOpCode)
	if !ok {
		t.Fatalf("expected the unary op to survive unfolded, got %+v", out.Statements[0])
	}
	if _, ok := unary.Operand.(*Symbol); !ok {
		t.Fatalf("expected operand to remain a *Symbol, got %T", unary.Operand)
	}
}

func TestOptimizeStrictNumRejectsOversizedFold(t *testing.T) {
	script := &Script{Statements: []Node{
		&UnaryOpCode{OpCode: OpCode{Name: "OP_NEGATE"}, Operand: NewInt(1, 1<<40)},
	}}
	opts := config.Default()
	opts.StrictNum = true
	symtab := NewSymbolTable()
	if _, _, err := Optimize(script, symtab, opts); err == nil {
		t.Fatalf("expected a strict-num error for an oversized fold result")
	}
}

func TestOptimizeWarnsOnByteArrayArithmetic(t *testing.T) {
	script := &Script{Statements: []Node{
		&BinOpCode{OpCode: OpCode{Name: "OP_ADD"}, Left: NewBytes(1, []byte{1}), Right: NewInt(1, 2)},
	}}
	symtab := NewSymbolTable()
	out, warnings, err := Optimize(script, symtab, config.Default())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if out == nil || len(out.Statements) != 1 {
		t.Fatalf("expected the byte array arithmetic to survive as a warning, not an error")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", warnings)
	}
}

func TestOptimizeRejectsIntInByteStringOp(t *testing.T) {
	script := &Script{Statements: []Node{
		&UnaryOpCode{OpCode: OpCode{Name: "OP_SIZE"}, Operand: NewInt(1, 5)},
	}}
	symtab := NewSymbolTable()
	if _, _, err := Optimize(script, symtab, config.Default()); err == nil {
		t.Fatalf("expected an IRTypeError for an integer literal in a byte-string op")
	}
}

func TestOptimizeInlinesFunctionCall(t *testing.T) {
	script := &Script{Statements: []Node{
		&Function{Name: "double", Args: []string{"a"}, Body: []Node{
			&Return{Value: &BinOpCode{OpCode: OpCode{Name: "OP_MUL"}, Left: NewSymbol(1, "a"), Right: NewInt(1, 2)}},
		}},
		&Push{Expr: &FunctionCall{Name: "double", Args: []Node{NewInt(1, 21)}}},
	}}
	out, _ := optimize(t, script, config.Default())
	if len(out.Statements) != 1 {
		t.Fatalf("expected the function definition to vanish, got %d statements", len(out.Statements))
	}
	push, ok := out.Statements[0].(*Push)
	if !ok {
		t.Fatalf("expected *Push, got %T", out.Statements[0])
	}
	i, ok := push.Expr.(*Int)
	if !ok || i.Value != 42 {
		t.Fatalf("expected the inlined call to fold to 42, got %+v", push.Expr)
	}
}

func TestOptimizeDeclarationResolvesSymbolValue(t *testing.T) {
	script := &Script{Statements: []Node{
		&Declaration{Name: "x", Value: NewInt(1, 7), Type: TypeExpr},
		&Push{Expr: NewSymbol(1, "x")},
	}}
	out, _ := optimize(t, script, config.Default())
	push := out.Statements[1].(*Push)
	i, ok := push.Expr.(*Int)
	if !ok || i.Value != 7 {
		t.Fatalf("expected symbol to resolve to constant 7, got %+v", push.Expr)
	}
}
