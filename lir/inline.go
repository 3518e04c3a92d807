package lir

import (
	"github.com/dr8co/txsc/opcode"
	"github.com/dr8co/txsc/sir"
)

// Inline resolves every Assumption and Variable reference, every
// variable Declaration, and every Assignment into concrete
// stack-manipulation instructions (Pick, Roll, ToAltStack,
// FromAltStack), running to a fixed point: each pass re-optimizes with
// Peephole, re-resolves positions with Contextualize, rewrites the
// first eligible instruction it finds, then restarts from the top.
// Termination: the loop halts once a full pass makes no rewrite; limit
// is a safety net sized to the program, not a tuning knob, since a
// well-formed program rewrites each variable reference exactly once.
//
// Pre-existing stack assumptions that the alt-stack manager decides
// need the alt stack are moved there up front, via a prologue Analyze
// builds from the symbol table's current stack assumptions — they are
// available from the very first instruction, so hoisting them is
// always safe. A locally declared variable reaches the same
// conclusion only after its first Assignment is seen, so its alt-stack
// placement instead happens in place, at its Declaration site.
func Inline(instructions []Node, symtab *sir.SymbolTable, altstack *AltStackManager) []Node {
	names := symtab.StackNames()
	stackAssumptions := make([]StackAssumption, len(names))
	for i, name := range names {
		sym, _ := symtab.Lookup(name)
		stackAssumptions[i] = StackAssumption{Name: name, Depth: sym.Depth}
	}
	prologue := altstack.Analyze(instructions, stackAssumptions)

	current := append(append([]Node(nil), prologue...), instructions...)

	limit := (len(current) + 8) * 8
	for pass := 0; pass < limit; pass++ {
		current = Peephole(current)
		Contextualize(current)
		next, changed := inlinePass(current, symtab, altstack)
		current = next
		if !changed {
			break
		}
	}
	return current
}

// inlinePass simulates instructions from the top, stopping to rewrite
// the first Assumption, Variable, Declaration, or Assignment it finds
// that the alt-stack manager or stack-state simulator can resolve, and
// returning immediately so the caller can re-run Peephole and
// Contextualize before the next rewrite. It returns (instructions,
// false) once a full pass makes no rewrite.
func inlinePass(instructions []Node, symtab *sir.SymbolTable, altstack *AltStackManager) ([]Node, bool) {
	state := NewStackState(symtab)
	// Seed the raw stack-assumption prologue below AssumptionsOffset so
	// later Contextualize/Peephole passes re-simulating an
	// already-resolved assumption's Pick/Roll have real placeholder
	// items to pop and remove, instead of underflowing an empty
	// simulated stack. GetAssumptions still won't find them here --
	// resolveArg falls back to the symbol table's Depth for those.
	if names := symtab.StackNames(); len(names) > 0 {
		state.AddStackAssumptions(names)
	}

	for i := 0; i < len(instructions); i++ {
		instr := instructions[i]
		switch n := instr.(type) {
		case *If, *NotIf:
			state.BeginScope(sir.ScopeConditional)
			continue
		case *Else:
			state.EndScope()
			state.BeginScope(sir.ScopeConditional)
			continue
		case *EndIf:
			state.EndScope()
			continue
		case *Assumption:
			if rewritten, ok := rewriteRead(instructions, i, n.VarName, state, altstack); ok {
				return rewritten, true
			}
		case *Variable:
			if rewritten, ok := rewriteRead(instructions, i, n.VarName, state, altstack); ok {
				return rewritten, true
			}
		case *Declaration:
			if rewritten, ok := rewriteDeclaration(instructions, i, n, altstack); ok {
				return rewritten, true
			}
			// A Declaration that needs neither the alt stack nor any
			// further read is a pure marker with no runtime instruction
			// of its own -- and the ASM/byte-script emitters reject any
			// Declaration that reaches them -- so drop it. While reads
			// remain, it must stay: each later pass rebuilds StackState
			// from scratch, and re-simulating this marker (via the
			// fallthrough to Process below) is what re-tags the value
			// for that pass's GetHighestAssumption lookups.
			if !declarationStillRead(instructions, i, n.VarName) {
				return splice(instructions, i, 1, nil), true
			}
		case *Assignment:
			if rewritten, ok := rewriteAssignment(instructions, i, n, state, altstack); ok {
				return rewritten, true
			}
		}
		state.Process(instr)
	}
	return instructions, false
}

// declarationStillRead reports whether a later Variable instruction
// still references name, i.e. whether this Declaration marker must
// stay in place so a future pass's fresh StackState re-tags the value
// when it re-simulates the program from the top.
func declarationStillRead(instructions []Node, i int, name string) bool {
	for j := i + 1; j < len(instructions); j++ {
		if v, ok := instructions[j].(*Variable); ok && v.VarName == name {
			return true
		}
	}
	return false
}

// isLastOccurrence reports whether no later instruction reads name,
// i.e. whether the occurrence at i may consume the value (Roll)
// rather than merely copy it (Pick).
func isLastOccurrence(instructions []Node, i int, name string) bool {
	for j := i + 1; j < len(instructions); j++ {
		switch n := instructions[j].(type) {
		case *Assumption:
			if n.VarName == name {
				return false
			}
		case *Variable:
			if n.VarName == name {
				return false
			}
		}
	}
	return true
}

// resolveArg computes the Pick/Roll argument for name: the number of
// items between the simulated top and its current position. A value
// already tracked positionally (a declared local, or an assumption
// already folded into state by a prior reference) resolves via
// GetHighestAssumption. A raw stack assumption that has not yet been
// folded in carries no such entry -- GetAssumptions deliberately
// excludes the initial assumed prologue, see StateScope -- so it
// resolves instead straight from the symbol table's Depth bookkeeping,
// which AdjustAssumptionDepth keeps current across the reordering
// opcodes (ROT, SWAP, 2ROT, 2SWAP).
func resolveArg(name string, state *StackState) (int, bool) {
	if _, stackIndex, found := state.GetHighestAssumption(name); found {
		return state.Len() - stackIndex - 1, true
	}
	sym, ok := state.Symtab.Lookup(name)
	if !ok || sym.Type != sir.TypeStackItem {
		return 0, false
	}
	pushedSinceStart := state.Len() - state.AssumptionsOffset()
	return pushedSinceStart + sym.Depth, true
}

// rewriteRead resolves a single Assumption or Variable reference to
// name at position i: via the alt stack if the variable requires it,
// otherwise via a Pick (if read again later) or Roll (if this is its
// last use) computed from its current position in the simulated
// stack.
func rewriteRead(instructions []Node, i int, name string, state *StackState, altstack *AltStackManager) ([]Node, bool) {
	last := isLastOccurrence(instructions, i, name)

	if it, ok := altstack.items[name]; ok && it.RequiresAltStack() {
		ops := altstack.GetVariable(name, last)
		return splice(instructions, i, 1, ops), true
	}

	arg, found := resolveArg(name, state)
	if !found {
		return nil, false
	}

	pickDesc, _ := opcode.ByName("OP_PICK")
	rollDesc, _ := opcode.ByName("OP_ROLL")
	var op Node
	if last {
		op = NewRoll(rollDesc)
	} else {
		op = NewPick(pickDesc)
	}
	return splice(instructions, i, 1, []Node{PushInt(int64(arg)), op}), true
}

// rewriteDeclaration moves a newly declared variable's already-pushed
// value onto the alt stack in place, if the alt-stack manager
// determined (from the full scan Analyze already performed) that this
// name needs it. A declaration that never needs the alt stack is left
// as the no-op binding marker it already is; StackState.Process tags
// its value with VarName on the next simulation pass.
func rewriteDeclaration(instructions []Node, i int, decl *Declaration, altstack *AltStackManager) ([]Node, bool) {
	it, ok := altstack.items[decl.VarName]
	if !ok || !it.RequiresAltStack() {
		return nil, false
	}
	return splice(instructions, i, 1, []Node{NewToAltStack()}), true
}

// rewriteAssignment resolves a reassignment of an existing variable:
// via the alt-stack manager's swap sequence (stripped of its leading
// value-producing ops, since those already ran as the real
// instructions preceding this marker) if the variable requires the
// alt stack, otherwise by rolling the stale copy to the top and
// dropping it, then re-tagging the new value's slot with a synthetic
// Declaration so later reads still find it by name.
func rewriteAssignment(instructions []Node, i int, asg *Assignment, state *StackState, altstack *AltStackManager) ([]Node, bool) {
	it, ok := altstack.items[asg.VarName]
	if !ok {
		return nil, false
	}

	if it.RequiresAltStack() {
		setOps := altstack.SetVariable(asg)
		if len(setOps) < len(asg.Value) {
			return nil, false
		}
		setOps = setOps[len(asg.Value):]
		return splice(instructions, i, 1, setOps), true
	}

	arg, found := resolveArg(asg.VarName, state)
	if !found {
		return nil, false
	}
	rollDesc, _ := opcode.ByName("OP_ROLL")
	ops := []Node{
		PushInt(int64(arg)),
		NewRoll(rollDesc),
		mustOp("OP_DROP"),
		NewDeclaration(asg.VarName, nil),
	}
	return splice(instructions, i, 1, ops), true
}

// splice replaces the consumed instructions starting at i with
// replacement.
func splice(instructions []Node, i, consumed int, replacement []Node) []Node {
	out := make([]Node, 0, len(instructions)-consumed+len(replacement))
	out = append(out, instructions[:i]...)
	out = append(out, replacement...)
	out = append(out, instructions[i+consumed:]...)
	return out
}
