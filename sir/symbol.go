// Package sir implements the Structural Intermediate Representation:
// its node types, symbol table, formatter and optimizer.
package sir

import "github.com/dr8co/txsc/txscerr"

// Type is the value type carried by a symbol or SIR value node.
type Type string

// Symbol value types.
const (
	TypeInteger   Type = "integer"
	TypeByteArray Type = "byte_array"
	TypeExpr      Type = "expression"
	TypeSymbol    Type = "symbol"
	TypeStackItem Type = "stack_item"
	TypeFunc      Type = "function"
)

// ScopeKind distinguishes why a scope was opened, since a few
// operations (deletion inside a conditional, function-local mangling)
// need to know.
type ScopeKind int

// Scope kinds.
const (
	ScopeGeneral ScopeKind = iota
	ScopeConditional
	ScopeFunction
)

// Symbol is a single entry in the symbol table.
type Symbol struct {
	Name    string
	Value   interface{}
	Type    Type
	Mutable bool

	// Depth and Height are only meaningful for TypeStackItem symbols:
	// Depth is the symbol's distance from the top of the stack at the
	// point it was assumed, Height is its original stack position.
	Depth  int
	Height int
}

// Clone returns a value copy of the symbol. Value is copied by
// reference for composite types (e.g. *FunctionDef), matching the
// shallow-copy-of-leaves, deep-copy-of-structure semantics the rest of
// the symbol table clone relies on.
func (s Symbol) Clone() Symbol {
	return s
}

func (s Symbol) isAssumption() bool {
	return s.Type == TypeStackItem
}

type scope struct {
	kind    ScopeKind
	parent  *scope
	symbols map[string]Symbol
	// order preserves insertion order for deterministic
	// AddStackAssumptions replay and iteration in tests.
	order []string
}

func newScope(kind ScopeKind, parent *scope) *scope {
	return &scope{kind: kind, parent: parent, symbols: make(map[string]Symbol)}
}

func (s *scope) clone(parent *scope) *scope {
	c := &scope{kind: s.kind, parent: parent, symbols: make(map[string]Symbol, len(s.symbols))}
	c.order = append([]string(nil), s.order...)
	for k, v := range s.symbols {
		c.symbols[k] = v.Clone()
	}
	return c
}

func (s *scope) get(name string) (Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

func (s *scope) set(sym Symbol) {
	if _, exists := s.symbols[sym.Name]; !exists {
		s.order = append(s.order, sym.Name)
	}
	s.symbols[sym.Name] = sym
}

func (s *scope) delete(name string) {
	if _, ok := s.symbols[name]; !ok {
		return
	}
	delete(s.symbols, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SymbolTable is the scoped symbol table used by the SIR optimizer and
// the SIR->LIR lowering pass.
type SymbolTable struct {
	global  *scope
	current *scope
	stack   []*scope
}

// NewSymbolTable returns an empty symbol table containing only the
// global scope.
func NewSymbolTable() *SymbolTable {
	g := newScope(ScopeGeneral, nil)
	return &SymbolTable{global: g, current: g, stack: []*scope{g}}
}

// Clone deep-copies the table, preserving which scope is current.
func (t *SymbolTable) Clone() *SymbolTable {
	clones := make([]*scope, len(t.stack))
	var currentIdx int
	for i, s := range t.stack {
		var parent *scope
		if i > 0 {
			parent = clones[i-1]
		}
		clones[i] = s.clone(parent)
		if s == t.current {
			currentIdx = i
		}
	}
	return &SymbolTable{global: clones[0], current: clones[currentIdx], stack: clones}
}

// IsGlobalScope reports whether the current scope is the global scope.
func (t *SymbolTable) IsGlobalScope() bool {
	return t.current == t.global
}

// BeginScope pushes a new scope of the given kind as a child of the
// current scope.
func (t *SymbolTable) BeginScope(kind ScopeKind) {
	s := newScope(kind, t.current)
	t.stack = append(t.stack, s)
	t.current = s
}

// EndScope pops the current scope, returning to its parent. It panics
// if called at the global scope, matching the original implementation's
// "Already at global scope" invariant violation.
func (t *SymbolTable) EndScope() {
	if t.current.parent == nil {
		panic("sir: already at global scope")
	}
	t.current = t.current.parent
	t.stack = t.stack[:len(t.stack)-1]
}

// Declare inserts a brand-new symbol into the current scope. It fails
// with MultipleDeclarations if the name is already declared in the
// current scope.
func (t *SymbolTable) Declare(sym Symbol) error {
	if _, exists := t.current.get(sym.Name); exists {
		return txscerr.New(txscerr.MultipleDeclarations, 0, "%q is already declared in this scope", sym.Name)
	}
	t.current.set(sym)
	return nil
}

// Assign updates an existing symbol's value, searching outward from
// the current scope. It fails with Undeclared if no such symbol
// exists, or Immutable if the existing symbol cannot be reassigned.
func (t *SymbolTable) Assign(name string, value interface{}) error {
	for s := t.current; s != nil; s = s.parent {
		if sym, ok := s.get(name); ok {
			if !sym.Mutable {
				return txscerr.New(txscerr.Immutable, 0, "cannot assign to immutable %q", name)
			}
			sym.Value = value
			s.set(sym)
			return nil
		}
	}
	return txscerr.New(txscerr.Undeclared, 0, "%q was not declared", name)
}

// Lookup searches the current scope and every enclosing scope for
// name.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	for s := t.current; s != nil; s = s.parent {
		if sym, ok := s.get(name); ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// LookupOne searches only the current scope.
func (t *SymbolTable) LookupOne(name string) (Symbol, bool) {
	return t.current.get(name)
}

// LookupGlobal searches only the global scope.
func (t *SymbolTable) LookupGlobal(name string) (Symbol, bool) {
	return t.global.get(name)
}

// Delete removes name from the nearest scope that declares it. It
// fails with Undeclared if no such symbol exists.
func (t *SymbolTable) Delete(name string) error {
	for s := t.current; s != nil; s = s.parent {
		if _, ok := s.get(name); ok {
			s.delete(name)
			return nil
		}
	}
	return txscerr.New(txscerr.Undeclared, 0, "%q was not declared", name)
}

// AddStackAssumptions declares an ordered list of assumed stack items,
// the names a script assumes are already on the stack when it begins.
// The first name is assumed to be deepest; depth = size - height - 1.
func (t *SymbolTable) AddStackAssumptions(names []string) {
	size := len(names)
	for height, name := range names {
		depth := size - height - 1
		t.current.set(Symbol{
			Name:   name,
			Value:  depth,
			Type:   TypeStackItem,
			Depth:  depth,
			Height: height,
		})
	}
}

// AddFunctionDef registers a function definition symbol. It must be
// called while the current scope is the global scope.
func (t *SymbolTable) AddFunctionDef(name string, def *Function) error {
	if !t.IsGlobalScope() {
		return txscerr.New(txscerr.IRError, 0, "functions can only be defined in the global scope")
	}
	t.current.set(Symbol{Name: name, Value: def, Type: TypeFunc, Mutable: false})
	return nil
}

// AdjustAssumptionDepth adds deltaDepth/deltaHeight to the nearest
// enclosing assumption symbol named name, if one exists. Used by the
// LIR stack-state simulator to keep assumption bookkeeping correct
// across stack-reordering opcodes (ROT, SWAP, 2ROT, 2SWAP); bypasses
// the Mutable check Assign performs since this is internal bookkeeping,
// not a user-visible assignment.
func (t *SymbolTable) AdjustAssumptionDepth(name string, deltaDepth, deltaHeight int) {
	for s := t.current; s != nil; s = s.parent {
		if sym, ok := s.get(name); ok {
			sym.Depth += deltaDepth
			sym.Height += deltaHeight
			s.set(sym)
			return
		}
	}
}

// declareLocal inserts sym into the current scope unconditionally,
// overwriting any existing entry with the same name. Used by the
// function inliner, which always hands out unique mangled names and
// so never needs the MultipleDeclarations check Declare performs.
func (t *SymbolTable) declareLocal(sym Symbol) {
	t.current.set(sym)
}

// StackNames returns every currently assumed stack-item name, ordered
// by height (shallowest first is last), for use by the alt-stack
// manager when seeding its prologue.
func (t *SymbolTable) StackNames() []string {
	var names []string
	for _, name := range t.current.order {
		sym := t.current.symbols[name]
		if sym.isAssumption() {
			names = append(names, name)
		}
	}
	return names
}
