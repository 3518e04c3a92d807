package sir

import (
	"testing"

	"github.com/dr8co/txsc/txscerr"
)

func TestDeclareRejectsDuplicateInSameScope(t *testing.T) {
	t1 := NewSymbolTable()
	if err := t1.Declare(Symbol{Name: "x", Type: TypeInteger}); err != nil {
		t.Fatalf("first Declare: %v", err)
	}
	err := t1.Declare(Symbol{Name: "x", Type: TypeInteger})
	if e, ok := err.(*txscerr.Error); !ok || e.Kind != txscerr.MultipleDeclarations {
		t.Fatalf("expected MultipleDeclarations, got %v", err)
	}
}

func TestAssignRequiresMutable(t *testing.T) {
	t1 := NewSymbolTable()
	_ = t1.Declare(Symbol{Name: "x", Type: TypeInteger, Mutable: false})
	err := t1.Assign("x", 2)
	if e, ok := err.(*txscerr.Error); !ok || e.Kind != txscerr.Immutable {
		t.Fatalf("expected Immutable, got %v", err)
	}

	t2 := NewSymbolTable()
	_ = t2.Declare(Symbol{Name: "y", Type: TypeInteger, Mutable: true})
	if err := t2.Assign("y", 3); err != nil {
		t.Fatalf("Assign on mutable symbol: %v", err)
	}
	sym, _ := t2.Lookup("y")
	if sym.Value != 3 {
		t.Errorf("Value = %v, want 3", sym.Value)
	}
}

func TestAssignUndeclared(t *testing.T) {
	t1 := NewSymbolTable()
	err := t1.Assign("nope", 1)
	if e, ok := err.(*txscerr.Error); !ok || e.Kind != txscerr.Undeclared {
		t.Fatalf("expected Undeclared, got %v", err)
	}
}

func TestLookupSearchesEnclosingScopes(t *testing.T) {
	t1 := NewSymbolTable()
	_ = t1.Declare(Symbol{Name: "outer", Type: TypeInteger})
	t1.BeginScope(ScopeConditional)
	defer t1.EndScope()
	_ = t1.Declare(Symbol{Name: "inner", Type: TypeInteger})

	if _, ok := t1.Lookup("outer"); !ok {
		t.Errorf("expected to find outer from a nested scope")
	}
	if _, ok := t1.LookupOne("outer"); ok {
		t.Errorf("LookupOne should not see the parent scope's symbol")
	}
	if _, ok := t1.Lookup("inner"); !ok {
		t.Errorf("expected to find inner in the current scope")
	}
}

func TestEndScopeAtGlobalPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic ending the global scope")
		}
	}()
	NewSymbolTable().EndScope()
}

func TestAddStackAssumptionsDepthAndHeight(t *testing.T) {
	t1 := NewSymbolTable()
	t1.AddStackAssumptions([]string{"sig", "pubkey", "amount"})

	sig, ok := t1.Lookup("sig")
	if !ok || sig.Depth != 2 || sig.Height != 0 {
		t.Fatalf("sig: expected depth 2 height 0, got %+v", sig)
	}
	amount, ok := t1.Lookup("amount")
	if !ok || amount.Depth != 0 || amount.Height != 2 {
		t.Fatalf("amount: expected depth 0 height 2, got %+v", amount)
	}

	names := t1.StackNames()
	want := []string{"sig", "pubkey", "amount"}
	if len(names) != len(want) {
		t.Fatalf("StackNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("StackNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestAdjustAssumptionDepth(t *testing.T) {
	t1 := NewSymbolTable()
	t1.AddStackAssumptions([]string{"a", "b"})
	t1.AdjustAssumptionDepth("a", 1, -1)

	sym, _ := t1.Lookup("a")
	if sym.Depth != 2 || sym.Height != -1 {
		t.Fatalf("expected adjusted depth/height, got %+v", sym)
	}
}

func TestAddFunctionDefRequiresGlobalScope(t *testing.T) {
	t1 := NewSymbolTable()
	t1.BeginScope(ScopeFunction)
	if err := t1.AddFunctionDef("f", &Function{}); err == nil {
		t.Fatalf("expected an error defining a function outside the global scope")
	}
	t1.EndScope()
	if err := t1.AddFunctionDef("f", &Function{}); err != nil {
		t.Fatalf("AddFunctionDef at global scope: %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t1 := NewSymbolTable()
	_ = t1.Declare(Symbol{Name: "x", Type: TypeInteger, Mutable: true})

	clone := t1.Clone()
	_ = clone.Assign("x", 99)

	orig, _ := t1.Lookup("x")
	cloned, _ := clone.Lookup("x")
	if orig.Value == cloned.Value {
		t.Fatalf("expected clone mutation not to affect the original: orig=%v cloned=%v", orig.Value, cloned.Value)
	}
}

func TestDeleteRemovesFromNearestScope(t *testing.T) {
	t1 := NewSymbolTable()
	_ = t1.Declare(Symbol{Name: "x", Type: TypeInteger})
	if err := t1.Delete("x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := t1.Lookup("x"); ok {
		t.Errorf("expected x to be gone after Delete")
	}
	if err := t1.Delete("x"); err == nil {
		t.Errorf("expected a second Delete to fail with Undeclared")
	}
}
