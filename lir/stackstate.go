package lir

import "github.com/dr8co/txsc/sir"

// StackItem models one item of the simulated data stack: either the
// result of some instruction, or a reference to a named variable
// (either an assumed pre-existing input, or a declared local whose
// value could not be constant-folded). VarName is set for both cases,
// so the inliner's positional lookups (GetAssumptions,
// GetHighestAssumption) apply uniformly to assumptions and declared
// locals alike.
type StackItem struct {
	Op      Node
	VarName string
}

// IsAssumption reports whether this item is an assumed stack variable,
// as opposed to a declared local tracked under the same mechanism.
func (s StackItem) IsAssumption() bool {
	_, ok := s.Op.(*Assumption)
	return ok
}

// IsNamed reports whether this item is tracked under a variable name
// at all (assumption or declared local).
func (s StackItem) IsNamed() bool { return s.VarName != "" }

// IntValue reports the integer value this item represents, if it is a
// constant push or small-int opcode.
func (s StackItem) IntValue() (int64, bool) { return IntValue(s.Op) }

// StateScope is one nested scope of simulated stack state: items below
// AssumptionsOffset are the assumed pre-existing values; items at or
// above it were pushed by the simulated program. A nested scope starts
// as a copy of its parent, AssumptionsOffset included.
type StateScope struct {
	AssumptionsOffset int
	Items             []StackItem
	AltStack          []StackItem
}

func (s *StateScope) clone() *StateScope {
	c := &StateScope{AssumptionsOffset: s.AssumptionsOffset}
	c.Items = append([]StackItem(nil), s.Items...)
	c.AltStack = append([]StackItem(nil), s.AltStack...)
	return c
}

// StackState simulates a script's effect on the data stack,
// instruction by instruction, threading assumption depth/height
// bookkeeping through the accompanying symbol table. The variable
// inliner (Inline) uses it to locate variable and assumption values.
type StackState struct {
	Symtab *sir.SymbolTable
	scopes []*StateScope
}

// NewStackState returns a StackState with one empty scope.
func NewStackState(symtab *sir.SymbolTable) *StackState {
	return &StackState{Symtab: symtab, scopes: []*StateScope{{}}}
}

func (s *StackState) top() *StateScope { return s.scopes[len(s.scopes)-1] }

// Len returns the number of items in the current scope's simulated stack.
func (s *StackState) Len() int { return len(s.top().Items) }

// AssumptionsOffset returns the current scope's assumptions offset.
func (s *StackState) AssumptionsOffset() int { return s.top().AssumptionsOffset }

// BeginScope opens a nested scope in lock-step with the symbol table,
// copying the current simulated stack so that the nested scope can
// diverge (e.g. inside a conditional branch) without affecting its
// sibling.
func (s *StackState) BeginScope(kind sir.ScopeKind) {
	stackNames := s.Symtab.StackNames()
	s.Symtab.BeginScope(kind)
	if len(stackNames) > 0 {
		s.Symtab.AddStackAssumptions(stackNames)
	}
	s.scopes = append(s.scopes, s.top().clone())
}

// EndScope closes the current scope in lock-step with the symbol table.
func (s *StackState) EndScope() {
	s.Symtab.EndScope()
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Copy returns a deep, independent copy of s, including its symbol
// table.
func (s *StackState) Copy() *StackState {
	c := &StackState{Symtab: s.Symtab.Clone()}
	for _, sc := range s.scopes {
		c.scopes = append(c.scopes, sc.clone())
	}
	return c
}

func (s *StackState) push(item StackItem) {
	top := s.top()
	top.Items = append(top.Items, item)
}

// PushInt pushes a constant integer as a simulated stack item.
func (s *StackState) PushInt(v int64) { s.push(StackItem{Op: PushInt(v)}) }

func (s *StackState) pop() StackItem {
	top := s.top()
	item := top.Items[len(top.Items)-1]
	top.Items = top.Items[:len(top.Items)-1]
	if len(top.Items) < top.AssumptionsOffset {
		top.AssumptionsOffset = len(top.Items)
	}
	return item
}

func (s *StackState) resolveIndex(offset int) int {
	top := s.top()
	if offset < 0 {
		return len(top.Items) + offset
	}
	return offset
}

// At returns the item at offset (Python-style negative indices allowed).
func (s *StackState) At(offset int) StackItem {
	return s.top().Items[s.resolveIndex(offset)]
}

func (s *StackState) set(offset int, item StackItem) {
	top := s.top()
	top.Items[s.resolveIndex(offset)] = item
}

// ChangeDepth adjusts the depth/height bookkeeping of the assumption
// symbol sitting at offset, if any; non-assumption items are left
// untouched. Declared locals carry no symbol-table depth/height to
// adjust, so only items whose VarName names an actual assumption have
// any effect.
func (s *StackState) ChangeDepth(offset, amount int) {
	item := s.At(offset)
	if !item.IsAssumption() {
		return
	}
	s.Symtab.AdjustAssumptionDepth(item.VarName, amount, -amount)
}

// MarkTop tags the current top-of-stack item with name, so that later
// Variable references to name resolve via GetAssumptions /
// GetHighestAssumption exactly like an Assumption would. Used when a
// Declaration's value could not be constant-folded away by the SIR
// optimizer and so must be tracked positionally at the LIR level.
func (s *StackState) MarkTop(name string) {
	top := s.top()
	if len(top.Items) == 0 {
		return
	}
	top.Items[len(top.Items)-1].VarName = name
}

// GetAssumptions returns every occurrence of the named variable
// (assumption or tracked declared local) still present in the current
// scope, at-or-after AssumptionsOffset, in stack order.
func (s *StackState) GetAssumptions(name string) []StackItem {
	top := s.top()
	var out []StackItem
	for _, item := range top.Items[top.AssumptionsOffset:] {
		if item.VarName == name {
			out = append(out, item)
		}
	}
	return out
}

// GetHighestAssumption returns the nearest-to-top occurrence of name
// and its stack index, or (StackItem{}, -1, false) if none remain.
func (s *StackState) GetHighestAssumption(name string) (StackItem, int, bool) {
	assumptions := s.GetAssumptions(name)
	if len(assumptions) == 0 {
		return StackItem{}, -1, false
	}
	highest := assumptions[len(assumptions)-1]
	top := s.top()
	stackIndex := top.AssumptionsOffset
	remaining := len(assumptions)
	for _, item := range top.Items[top.AssumptionsOffset:] {
		if item.VarName == highest.VarName {
			remaining--
		}
		if remaining == 0 {
			break
		}
		stackIndex++
	}
	return highest, stackIndex, true
}

// Clear resets the current scope to an empty stack.
func (s *StackState) Clear() {
	s.scopes = []*StateScope{{}}
}

// AddStackAssumptions seeds the bottom of the current scope's
// simulated stack with the given assumed variable names, ordered
// shallowest-last (matching sir.SymbolTable.AddStackAssumptions).
func (s *StackState) AddStackAssumptions(names []string) {
	top := s.top()
	items := make([]StackItem, len(names))
	for i, name := range names {
		items[i] = StackItem{Op: NewAssumption(name), VarName: name}
	}
	top.Items = items
	top.AssumptionsOffset = len(items)
}

// Process updates the simulated stack for the effect of op. Only
// instructions with a data-stack effect are handled; control-flow
// markers are handled by the caller via BeginScope/EndScope.
func (s *StackState) Process(op Node) {
	switch n := op.(type) {
	case *Push:
		s.push(StackItem{Op: n})
	case *SmallIntOpCode:
		s.push(StackItem{Op: n})
	case *Assumption:
		s.push(StackItem{Op: n, VarName: n.VarName})
	case *Variable:
		s.push(StackItem{Op: n, VarName: n.VarName})
	case *InnerScript:
		s.push(StackItem{Op: n})
	case *ToAltStack:
		item := s.pop()
		top := s.top()
		top.AltStack = append(top.AltStack, item)
	case *FromAltStack:
		top := s.top()
		item := top.AltStack[len(top.AltStack)-1]
		top.AltStack = top.AltStack[:len(top.AltStack)-1]
		s.push(item)
	case *Assignment:
		sym, ok := s.Symtab.Lookup(n.VarName)
		if ok {
			sym.Value = n.Value
			s.Symtab.Assign(n.VarName, n.Value)
		}
	case *Declaration:
		// The value was already pushed by the preceding flattened
		// instructions; tag it so later Variable reads can find it.
		s.MarkTop(n.VarName)
	case *Deletion:
		// Binding-only: the simulated stack is left unchanged.
	default:
		s.genericProcess(op)
	}
}

// genericProcess handles the stack-manipulation opcodes whose effect
// can't be derived purely from Delta (the ordering of items matters,
// not just the count), plus the generic fallback for every other
// opcode: pop Args items, then push enough opaque result markers to
// make the net change match Delta.
func (s *StackState) genericProcess(op Node) {
	switch op.Name() {
	case "OP_DEPTH":
		s.PushInt(int64(s.Len()))
		return
	case "OP_DROP":
		s.pop()
		return
	case "OP_DUP":
		s.push(s.At(-1))
		return
	case "OP_NIP":
		s.removeAt(-2)
		return
	case "OP_OVER":
		s.push(s.At(-2))
		return
	case "OP_PICK":
		i, _ := s.pop().IntValue()
		s.push(s.At(-int(i) - 1))
		return
	case "OP_ROLL":
		i, _ := s.pop().IntValue()
		val := s.removeAt(-int(i) - 1)
		s.push(val)
		return
	case "OP_ROT":
		v1 := s.At(-3)
		s.set(-3, s.At(-2))
		s.set(-2, s.At(-1))
		s.set(-1, v1)
		s.ChangeDepth(-1, -2)
		s.ChangeDepth(-2, 1)
		s.ChangeDepth(-3, 1)
		return
	case "OP_SWAP":
		v1, v2 := s.At(-2), s.At(-1)
		s.set(-2, v2)
		s.set(-1, v1)
		s.ChangeDepth(-1, -1)
		s.ChangeDepth(-2, 1)
		return
	case "OP_TUCK":
		val := s.At(-1)
		top := s.top()
		idx := s.resolveIndex(-2)
		top.Items = append(top.Items[:idx], append([]StackItem{val}, top.Items[idx:]...)...)
		return
	case "OP_2DROP":
		s.pop()
		s.pop()
		return
	case "OP_2DUP":
		v1, v2 := s.At(-2), s.At(-1)
		s.push(v1)
		s.push(v2)
		return
	case "OP_3DUP":
		v1, v2, v3 := s.At(-3), s.At(-2), s.At(-1)
		s.push(v1)
		s.push(v2)
		s.push(v3)
		return
	case "OP_2OVER":
		v1, v2 := s.At(-4), s.At(-3)
		s.push(v1)
		s.push(v2)
		return
	case "OP_2ROT":
		idx6, idx5 := s.resolveIndex(-6), s.resolveIndex(-5)
		v1, v2 := s.At(-6), s.At(-5)
		// Remove the higher index first so the lower index stays valid.
		s.removeAtAbsolute(idx5)
		s.removeAtAbsolute(idx6)
		s.push(v1)
		s.push(v2)
		s.ChangeDepth(-1, -4)
		s.ChangeDepth(-2, -4)
		s.ChangeDepth(-3, 2)
		s.ChangeDepth(-4, 2)
		s.ChangeDepth(-5, 2)
		s.ChangeDepth(-6, 2)
		return
	case "OP_2SWAP":
		v1, v2 := s.At(-4), s.At(-2)
		s.set(-4, v2)
		s.set(-2, v1)
		v3, v4 := s.At(-3), s.At(-1)
		s.set(-3, v4)
		s.set(-1, v3)
		s.ChangeDepth(-1, -2)
		s.ChangeDepth(-2, -2)
		s.ChangeDepth(-3, 2)
		s.ChangeDepth(-4, 2)
		return
	}

	if si, ok := op.(*SmallIntOpCode); ok {
		s.push(StackItem{Op: si})
		return
	}

	args := argCount(op)
	for i := 0; i < args; i++ {
		s.pop()
	}
	produced := args + op.Delta()
	for i := 0; i < produced; i++ {
		s.push(StackItem{Op: NewPush([]byte(op.Name()))})
	}
}

func (s *StackState) removeAt(offset int) StackItem {
	return s.removeAtAbsolute(s.resolveIndex(offset))
}

func (s *StackState) removeAtAbsolute(idx int) StackItem {
	top := s.top()
	item := top.Items[idx]
	top.Items = append(top.Items[:idx], top.Items[idx+1:]...)
	if idx < top.AssumptionsOffset {
		top.AssumptionsOffset--
	}
	return item
}

func argCount(op Node) int {
	switch n := op.(type) {
	case *Pick:
		return len(n.Args)
	case *Roll:
		return len(n.Args)
	case *CheckMultiSig:
		return len(n.Args)
	case *CheckMultiSigVerify:
		return len(n.Args)
	case *OpCode:
		return n.Desc.Args
	case *IfDup:
		return n.Desc.Args
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
