package lir

import (
	"testing"

	"github.com/dr8co/txsc/config"
)

func TestAltStackItemRequiresAltStack(t *testing.T) {
	assumption := &AltStackItem{IsAssumption: true}
	if !assumption.RequiresAltStack() {
		t.Fatalf("expected an assumption to always require the alt stack")
	}

	immutableInConditional := &AltStackItem{AssignedInConditional: true, Assignments: 1}
	if immutableInConditional.RequiresAltStack() {
		t.Fatalf("expected a single-assignment local to stay on the main stack even inside a conditional")
	}

	reassignedInConditional := &AltStackItem{AssignedInConditional: true, Assignments: 2}
	if !reassignedInConditional.RequiresAltStack() {
		t.Fatalf("expected a reassigned-inside-conditional local to require the alt stack")
	}

	plain := &AltStackItem{Assignments: 2}
	if plain.RequiresAltStack() {
		t.Fatalf("expected a reassigned local outside any conditional to stay on the main stack")
	}
}

func TestAltStackAnalyzeIgnoresAssumptionsByDefault(t *testing.T) {
	// UseAltStackForAssumptions is false under config.Default(), so raw
	// stack assumptions must never be registered as alt-stack residents
	// even though Analyze is handed them.
	m := NewAltStackManager(config.Default())
	prologue := m.Analyze(nil, []StackAssumption{{Name: "sig", Depth: 0}})

	if len(prologue) != 0 {
		t.Fatalf("expected no prologue instructions, got %v", names(prologue))
	}
	if it, ok := m.items["sig"]; ok && it.RequiresAltStack() {
		t.Fatalf("expected sig to not require the alt stack, got %+v", it)
	}
}

func TestAltStackAnalyzeHoistsAssumptionsWhenConfigured(t *testing.T) {
	opts := config.Default()
	opts.UseAltStackForAssumptions = true
	m := NewAltStackManager(opts)

	prologue := m.Analyze(nil, []StackAssumption{{Name: "sig", Depth: 0}})

	if len(prologue) == 0 {
		t.Fatalf("expected a prologue moving sig onto the alt stack")
	}
	last := prologue[len(prologue)-1]
	if _, ok := last.(*ToAltStack); !ok {
		t.Fatalf("expected the prologue to end by pushing onto the alt stack, got %v", names(prologue))
	}
	if it := m.items["sig"]; !it.RequiresAltStack() {
		t.Fatalf("expected sig to require the alt stack once hoisted")
	}
}

func TestAltStackAnalyzeDetectsConditionalReassignment(t *testing.T) {
	m := NewAltStackManager(config.Default())
	instructions := []Node{
		&If{},
		NewAssignment("x", []Node{PushInt(1)}),
		&EndIf{},
		NewAssignment("x", []Node{PushInt(2)}),
	}
	m.Analyze(instructions, nil)

	it, ok := m.items["x"]
	if !ok {
		t.Fatalf("expected x to be tracked")
	}
	if !it.AssignedInConditional {
		t.Fatalf("expected x's first assignment inside the If to be recorded")
	}
	if it.Assignments != 2 {
		t.Fatalf("expected 2 assignments recorded, got %d", it.Assignments)
	}
	if !it.RequiresAltStack() {
		t.Fatalf("expected a reassigned-inside-conditional local to require the alt stack")
	}
}

func TestAltStackGetVariableNonResidentReturnsNil(t *testing.T) {
	m := NewAltStackManager(config.Default())
	if ops := m.GetVariable("missing", true); ops != nil {
		t.Fatalf("expected nil for a variable never registered, got %v", names(ops))
	}
}

func TestAltStackGetVariableLastOccurrenceConsumesSlot(t *testing.T) {
	opts := config.Default()
	opts.UseAltStackForAssumptions = true
	m := NewAltStackManager(opts)
	m.Analyze(nil, []StackAssumption{{Name: "sig", Depth: 0}})

	ops := m.GetVariable("sig", true)
	if len(ops) == 0 {
		t.Fatalf("expected operations to fetch sig from the alt stack")
	}
	if _, ok := ops[0].(*FromAltStack); !ok {
		t.Fatalf("expected the first op to pull sig off the alt stack, got %v", names(ops))
	}
	for _, n := range ops {
		if _, ok := n.(*ToAltStack); ok {
			t.Fatalf("expected a last-occurrence read to consume the slot, not push anything back, got %v", names(ops))
		}
	}
}

func TestAltStackGetVariableNonLastOccurrenceReplays(t *testing.T) {
	opts := config.Default()
	opts.UseAltStackForAssumptions = true
	m := NewAltStackManager(opts)
	m.Analyze(nil, []StackAssumption{{Name: "sig", Depth: 0}})

	ops := m.GetVariable("sig", false)

	var sawDup bool
	var lastIsToAltStack bool
	for _, n := range ops {
		if _, ok := n.(*OpCode); ok {
			sawDup = true
		}
		_, lastIsToAltStack = n.(*ToAltStack)
	}
	if !sawDup {
		t.Fatalf("expected a duplicate before replaying the value back, got %v", names(ops))
	}
	if !lastIsToAltStack {
		t.Fatalf("expected the sequence to end by pushing the replayed value back onto the alt stack, got %v", names(ops))
	}
}

func TestAltStackSetVariableNonResidentReturnsNil(t *testing.T) {
	m := NewAltStackManager(config.Default())
	asg := NewAssignment("missing", []Node{PushInt(1)})
	if ops := m.SetVariable(asg); ops != nil {
		t.Fatalf("expected nil for a variable never registered, got %v", names(ops))
	}
}

func TestAltStackSetVariableEndsByStoringTheNewValue(t *testing.T) {
	opts := config.Default()
	opts.UseAltStackForAssumptions = true
	m := NewAltStackManager(opts)
	m.Analyze(nil, []StackAssumption{{Name: "sig", Depth: 0}})

	asg := NewAssignment("sig", []Node{PushInt(9)})
	ops := m.SetVariable(asg)

	if len(ops) == 0 {
		t.Fatalf("expected operations to set sig's new value")
	}
	if ops[0] != asg.Value[0] {
		t.Fatalf("expected the new value's push to lead the sequence, got %v", names(ops))
	}
	if _, ok := ops[len(ops)-1].(*ToAltStack); !ok {
		t.Fatalf("expected the sequence to end by storing the new value on the alt stack, got %v", names(ops))
	}
}

func TestAltStackValuesAfterCountsOnlyAltStackResidents(t *testing.T) {
	opts := config.Default()
	opts.UseAltStackForAssumptions = true
	m := NewAltStackManager(opts)
	m.Analyze(nil, []StackAssumption{{Name: "pub", Depth: 1}, {Name: "sig", Depth: 0}})

	pub := m.items["pub"]
	sig := m.items["sig"]
	if m.valuesAfter(pub) != 1 {
		t.Fatalf("expected exactly one resident (sig) above pub, got %d", m.valuesAfter(pub))
	}
	if m.valuesAfter(sig) != 0 {
		t.Fatalf("expected no resident above sig, got %d", m.valuesAfter(sig))
	}
}
