package lowering

import (
	"testing"

	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/lir"
	"github.com/dr8co/txsc/sir"
)

func TestLowerIntLiteralPushesValue(t *testing.T) {
	script := &sir.Script{Statements: []sir.Node{sir.NewInt(1, 5)}}
	out, err := Lower(script, sir.NewSymbolTable(), config.Default())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 instruction, got %d: %v", len(out), out)
	}
	v, ok := lir.IntValue(out[0])
	if !ok || v != 5 {
		t.Fatalf("expected a push of 5, got %+v", out[0])
	}
}

func TestLowerBareExpressionRejectedWithoutImplicitPushes(t *testing.T) {
	script := &sir.Script{Statements: []sir.Node{sir.NewInt(1, 5)}}
	opts := config.Default()
	opts.ImplicitPushes = false

	_, err := Lower(script, sir.NewSymbolTable(), opts)
	if err == nil {
		t.Fatalf("expected an error when implicit pushes are disabled")
	}
}

func TestLowerVerifyStatementIgnoresImplicitPushes(t *testing.T) {
	script := &sir.Script{Statements: []sir.Node{
		&sir.VerifyOpCode{OpCode: sir.OpCode{Name: "OP_VERIFY"}, Test: sir.NewInt(1, 1)},
	}}
	opts := config.Default()
	opts.ImplicitPushes = false

	out, err := Lower(script, sir.NewSymbolTable(), opts)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected a push and a verify instruction, got %d: %v", len(out), out)
	}
}

func TestLowerDeclarationThenVariableRead(t *testing.T) {
	decl := &sir.Declaration{Name: "x", Value: sir.NewInt(1, 7), Type: sir.TypeExpr, Mutable: false}
	read := &sir.Symbol{Name: "x"}
	script := &sir.Script{Statements: []sir.Node{decl, read}}

	symtab := sir.NewSymbolTable()
	out, err := Lower(script, symtab, config.Default())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var sawDeclaration, sawVariable bool
	for _, n := range out {
		switch v := n.(type) {
		case *lir.Declaration:
			if v.VarName != "x" {
				t.Errorf("Declaration.VarName = %q, want x", v.VarName)
			}
			sawDeclaration = true
		case *lir.Variable:
			if v.VarName != "x" {
				t.Errorf("Variable.VarName = %q, want x", v.VarName)
			}
			sawVariable = true
		}
	}
	if !sawDeclaration || !sawVariable {
		t.Fatalf("expected both a Declaration and a Variable read, got %v", out)
	}

	sym, ok := symtab.Lookup("x")
	if !ok || sym.Type != sir.TypeExpr {
		t.Fatalf("expected x to be declared as TypeExpr in the symbol table")
	}
}

func TestLowerStackAssumptionReadEmitsAssumption(t *testing.T) {
	symtab := sir.NewSymbolTable()
	symtab.AddStackAssumptions([]string{"sig"})

	script := &sir.Script{Statements: []sir.Node{&sir.Symbol{Name: "sig"}}}
	out, err := Lower(script, symtab, config.Default())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(out))
	}
	a, ok := out[0].(*lir.Assumption)
	if !ok || a.VarName != "sig" {
		t.Fatalf("expected an Assumption for sig, got %+v", out[0])
	}
}

func TestLowerUndeclaredSymbolErrors(t *testing.T) {
	script := &sir.Script{Statements: []sir.Node{&sir.Symbol{Name: "ghost"}}}
	_, err := Lower(script, sir.NewSymbolTable(), config.Default())
	if err == nil {
		t.Fatalf("expected an error referencing an undeclared symbol")
	}
}

func TestLowerDeletionEmitsDeletionAfterRemovingFromSymtab(t *testing.T) {
	symtab := sir.NewSymbolTable()
	if err := symtab.Declare(sir.Symbol{Name: "x", Type: sir.TypeExpr}); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	script := &sir.Script{Statements: []sir.Node{&sir.Deletion{Name: "x"}}}
	out, err := Lower(script, symtab, config.Default())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(out))
	}
	if _, ok := out[0].(*lir.Deletion); !ok {
		t.Fatalf("expected a Deletion instruction, got %T", out[0])
	}
	if _, ok := symtab.Lookup("x"); ok {
		t.Fatalf("expected x to be removed from the symbol table")
	}
}

func TestLowerIfEmitsIfElseEndIfAroundBranches(t *testing.T) {
	n := &sir.If{
		Test:        sir.NewInt(1, 1),
		TrueBranch:  []sir.Node{sir.NewInt(1, 2)},
		FalseBranch: []sir.Node{sir.NewInt(1, 3)},
	}
	script := &sir.Script{Statements: []sir.Node{n}}
	out, err := Lower(script, sir.NewSymbolTable(), config.Default())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var shape []string
	for _, instr := range out {
		switch instr.(type) {
		case *lir.If:
			shape = append(shape, "If")
		case *lir.Else:
			shape = append(shape, "Else")
		case *lir.EndIf:
			shape = append(shape, "EndIf")
		}
	}
	want := []string{"If", "Else", "EndIf"}
	if len(shape) != len(want) {
		t.Fatalf("shape = %v, want %v", shape, want)
	}
	for i := range want {
		if shape[i] != want[i] {
			t.Fatalf("shape = %v, want %v", shape, want)
		}
	}
}

func TestLowerInnerScriptNestsIntoOwnLowerer(t *testing.T) {
	inner := &sir.InnerScript{Statements: []sir.Node{sir.NewInt(1, 9)}}
	script := &sir.Script{Statements: []sir.Node{inner}}

	out, err := Lower(script, sir.NewSymbolTable(), config.Default())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the nested script to collapse to 1 instruction, got %d: %v", len(out), out)
	}
	nested, ok := out[0].(*lir.InnerScript)
	if !ok {
		t.Fatalf("expected an InnerScript, got %T", out[0])
	}
	if len(nested.Statements) != 1 {
		t.Fatalf("expected 1 nested instruction, got %d", len(nested.Statements))
	}
}

func TestLowerFunctionReachingLoweringIsAnError(t *testing.T) {
	fn := &sir.Function{Name: "f", Body: []sir.Node{sir.NewInt(1, 1)}}
	script := &sir.Script{Statements: []sir.Node{fn}}
	if _, err := Lower(script, sir.NewSymbolTable(), config.Default()); err == nil {
		t.Fatalf("expected an error: an uninlined function definition must never reach lowering")
	}
}
