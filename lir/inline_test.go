package lir

import (
	"testing"

	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/sir"
)

func TestInlineResolvesSingleUseStackAssumption(t *testing.T) {
	// "assume sig; verify sig;" lowers to exactly one reference to a
	// name that is never pushed or read anywhere else -- the case that
	// once fell through resolveArg's predecessor (GetHighestAssumption
	// alone) because nothing had yet folded the assumption into state.
	// sig is the sole stack item, so rolling it to the top is already a
	// no-op and the trailing OP_VERIFY is redundant (a script succeeds
	// whenever it leaves a truthy top); the whole thing collapses to an
	// empty script.
	symtab := sir.NewSymbolTable()
	symtab.AddStackAssumptions([]string{"sig"})

	instructions := []Node{NewAssumption("sig"), mustOp("OP_VERIFY")}
	altstack := NewAltStackManager(config.Default())

	out := Inline(instructions, symtab, altstack)

	if len(out) != 0 {
		t.Fatalf("expected the lone assumption's verify to collapse entirely, got %v", names(out))
	}
}

func TestInlineResolvesShallowerOfTwoStackAssumptions(t *testing.T) {
	// Only "sig" (the shallower of the two assumed names) is ever
	// referenced; "pub" is left untouched below it. This stays clear of
	// the documented gap (consuming BOTH assumptions in sequence), so
	// the single resolved reference must land exactly at depth 0.
	symtab := sir.NewSymbolTable()
	symtab.AddStackAssumptions([]string{"pub", "sig"})

	instructions := []Node{NewAssumption("sig"), mustOp("OP_DROP")}
	altstack := NewAltStackManager(config.Default())
	out := Inline(instructions, symtab, altstack)

	for _, n := range out {
		switch n.(type) {
		case *Assumption, *Variable:
			t.Fatalf("expected the reference to resolve, got %v", names(out))
		}
	}
}

func TestInlineResolvesRepeatedReadWithoutUnderflow(t *testing.T) {
	// A stack assumption read twice: the first read must copy rather
	// than consume (it is not the last occurrence), the second must
	// consume. Both resolve on a fresh, seeded StackState each pass, so
	// simulating the already-resolved first read on a later pass must
	// not underflow even though nothing else was ever pushed.
	symtab := sir.NewSymbolTable()
	symtab.AddStackAssumptions([]string{"x"})

	instructions := []Node{
		NewAssumption("x"), mustOp("OP_DROP"),
		NewAssumption("x"), mustOp("OP_DROP"),
	}
	altstack := NewAltStackManager(config.Default())
	out := Inline(instructions, symtab, altstack)

	for _, n := range out {
		switch n.(type) {
		case *Assumption, *Variable:
			t.Fatalf("expected both reads to resolve, got %v", names(out))
		}
	}
}

func TestInlineResolvesDeclaredLocalPositionally(t *testing.T) {
	symtab := sir.NewSymbolTable()
	if err := symtab.Declare(sir.Symbol{Name: "y", Type: sir.TypeExpr, Mutable: false}); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	// lowerDeclaration emits a Declaration's value instructions into the
	// main stream ahead of the marker itself; Declaration.Value is only
	// a bookkeeping copy, not re-processed.
	pushSeven := PushInt(7)
	instructions := []Node{
		pushSeven,
		NewDeclaration("y", []Node{pushSeven}),
		NewVariable("y"),
		mustOp("OP_DROP"),
	}
	altstack := NewAltStackManager(config.Default())
	out := Inline(instructions, symtab, altstack)

	for _, n := range out {
		if _, ok := n.(*Variable); ok {
			t.Fatalf("expected the declared local's read to resolve, got %v", names(out))
		}
	}
}
