package lir

import (
	"sort"

	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/opcode"
)

// StackAssumption names an assumed pre-existing stack item and the
// depth (distance from the top of the stack) it sits at, the
// ordering the alt-stack manager needs to move assumptions onto the
// alt stack before the script body runs.
type StackAssumption struct {
	Name  string
	Depth int
}

// AltStackItem tracks one variable's lifecycle for alt-stack placement
// decisions.
type AltStackItem struct {
	InitialValue          []Node
	Assignments           int
	VariableIndex         *int
	AssignedInConditional bool
	IsAssumption          bool
}

// IsImmutable reports whether this variable is assigned exactly once,
// meaning later re-reads can always use the value already sitting on
// the main stack rather than round-tripping through the alt stack.
func (a *AltStackItem) IsImmutable() bool { return a.Assignments == 1 }

// RequiresAltStack reports whether this variable's value can move
// around the stack unpredictably (an assumption, or reassigned inside
// a conditional) such that only the alt stack can track it reliably.
func (a *AltStackItem) RequiresAltStack() bool {
	if a.IsAssumption {
		return true
	}
	return a.AssignedInConditional && !a.IsImmutable()
}

// AltStackManager decides which variables need the alt stack and
// produces the instruction sequences to move them on, off, and back
// onto it.
type AltStackManager struct {
	Opts  config.Options
	items map[string]*AltStackItem
	order []string
}

// NewAltStackManager returns an empty manager.
func NewAltStackManager(opts config.Options) *AltStackManager {
	return &AltStackManager{Opts: opts, items: map[string]*AltStackItem{}}
}

func (m *AltStackManager) item(name string) *AltStackItem {
	it, ok := m.items[name]
	if !ok {
		it = &AltStackItem{}
		m.items[name] = it
		m.order = append(m.order, name)
	}
	return it
}

func repeatPattern(count int, ctor ...func() Node) []Node {
	var out []Node
	for i := 0; i < count; i++ {
		for _, c := range ctor {
			out = append(out, c())
		}
	}
	return out
}

// Analyze walks instructions, classifying every assigned-to variable
// and assumption, then returns the instructions needed to set up the
// alt stack's initial contents: each alt-stack-resident assumption is
// rolled up from its depth and moved to the alt stack. Assigned-to
// locals get no prologue entry.
func (m *AltStackManager) Analyze(instructions []Node, stackNames []StackAssumption) []Node {
	m.items = map[string]*AltStackItem{}
	m.order = nil

	if len(stackNames) > 0 && m.Opts.UseAltStackForAssumptions {
		rollDesc, _ := opcode.ByName("OP_ROLL")
		for i, sa := range stackNames {
			idx := i
			it := m.item(sa.Name)
			it.IsAssumption = true
			it.VariableIndex = &idx
			it.InitialValue = []Node{PushInt(int64(sa.Depth)), NewRoll(rollDesc)}
		}
	}

	conditionalLevel := 0
	for _, instr := range instructions {
		switch instr.(type) {
		case *If, *NotIf:
			conditionalLevel++
		case *EndIf:
			conditionalLevel--
		}
		if asg, ok := instr.(*Assignment); ok {
			it := m.item(asg.VarName)
			if conditionalLevel > 0 {
				it.AssignedInConditional = true
			}
			it.Assignments++
			if it.VariableIndex == nil {
				idx := len(m.order)
				it.VariableIndex = &idx
				it.InitialValue = asg.Value
			}
		}
	}

	m.compactIndices()

	type indexed struct {
		name string
		idx  int
	}
	var sortedItems []indexed
	for _, name := range m.order {
		it := m.items[name]
		if !it.RequiresAltStack() || it.VariableIndex == nil {
			continue
		}
		// Only pre-existing assumptions are hoisted into this prologue:
		// they are available from the very first instruction, so moving
		// them onto the alt stack up front is always correct. A locally
		// declared variable's initial value depends on control flow
		// already executed by the time it is declared, so Inline places
		// its ToAltStack in place at the declaration site instead.
		if !it.IsAssumption {
			continue
		}
		sortedItems = append(sortedItems, indexed{name, *it.VariableIndex})
	}
	sort.Slice(sortedItems, func(i, j int) bool { return sortedItems[i].idx < sortedItems[j].idx })

	var ops []Node
	for _, si := range sortedItems {
		it := m.items[si.name]
		ops = append(ops, it.InitialValue...)
		ops = append(ops, NewToAltStack())
	}
	return ops
}

// compactIndices squeezes out variable-index gaps left by variables
// that turned out not to require the alt stack, so indices referenced
// by the unused-index logic always remain contiguous.
func (m *AltStackManager) compactIndices() {
	indices := map[string]int{}
	maxIndex := -1
	for _, name := range m.order {
		it := m.items[name]
		if it.RequiresAltStack() && it.VariableIndex != nil {
			indices[name] = *it.VariableIndex
			if *it.VariableIndex > maxIndex {
				maxIndex = *it.VariableIndex
			}
		}
	}
	if maxIndex >= 0 {
		used := map[int]bool{}
		for _, v := range indices {
			used[v] = true
		}
		var unused []int
		for i := 0; i <= maxIndex; i++ {
			if !used[i] {
				unused = append(unused, i)
			}
		}
		for j := len(unused) - 1; j >= 0; j-- {
			idx := unused[j]
			for k, v := range indices {
				if v > idx {
					indices[k] = v - 1
				}
			}
		}
	}
	for _, name := range m.order {
		it := m.items[name]
		if v, ok := indices[name]; ok {
			vv := v
			it.VariableIndex = &vv
		} else {
			it.VariableIndex = nil
		}
	}
}

func (m *AltStackManager) valuesAfter(it *AltStackItem) int {
	if it.VariableIndex == nil {
		return 0
	}
	count := 0
	for _, name := range m.order {
		other := m.items[name]
		if other.VariableIndex != nil && *other.VariableIndex > *it.VariableIndex {
			count++
		}
	}
	return count
}

// GetVariable returns the operations needed to bring name to the top
// of the main stack, or nil if name's value never leaves the main
// stack. If isLastOccurrence is true the variable is consumed rather
// than replayed back onto the alt stack.
func (m *AltStackManager) GetVariable(name string, isLastOccurrence bool) []Node {
	it, ok := m.items[name]
	if !ok || !it.RequiresAltStack() {
		return nil
	}
	valuesAfter := m.valuesAfter(it)

	var ops []Node
	ops = append(ops, repeatPattern(valuesAfter, func() Node { return NewFromAltStack() })...)
	ops = append(ops, NewFromAltStack())

	var replacement []func() Node
	if !isLastOccurrence {
		ops = append(ops, mustOp("OP_DUP"), NewToAltStack())
		replacement = []func() Node{
			func() Node { return mustOp("OP_SWAP") },
			func() Node { return NewToAltStack() },
		}
	} else {
		replacement = []func() Node{
			func() Node { return mustOp("OP_SWAP") },
			func() Node { return NewToAltStack() },
		}
	}
	ops = append(ops, repeatPattern(valuesAfter, replacement...)...)
	return ops
}

// SetVariable returns the operations needed to store a new value for
// the assigned-to variable asg.VarName in its alt-stack slot, or nil
// if it never leaves the main stack.
func (m *AltStackManager) SetVariable(asg *Assignment) []Node {
	it, ok := m.items[asg.VarName]
	if !ok || !it.RequiresAltStack() {
		return nil
	}
	valuesAfter := m.valuesAfter(it)
	rollDesc, _ := opcode.ByName("OP_ROLL")

	ops := append([]Node(nil), asg.Value...)
	ops = append(ops, repeatPattern(valuesAfter, func() Node { return NewFromAltStack() })...)
	ops = append(ops, NewFromAltStack(), mustOp("OP_DROP"))
	ops = append(ops, PushInt(int64(valuesAfter)), NewRoll(rollDesc))
	ops = append(ops, NewToAltStack())
	ops = append(ops, repeatPattern(valuesAfter, func() Node { return NewToAltStack() })...)
	return ops
}
