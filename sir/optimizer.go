package sir

import (
	"fmt"

	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/txscerr"
)

// commutativeOps is the set of binary opcodes whose operands may be
// freely swapped without changing the opcode.
var commutativeOps = map[string]bool{
	"OP_ADD": true, "OP_MUL": true, "OP_BOOLAND": true, "OP_BOOLOR": true,
	"OP_NUMEQUAL": true, "OP_NUMEQUALVERIFY": true, "OP_NUMNOTEQUAL": true,
	"OP_MIN": true, "OP_MAX": true, "OP_AND": true, "OP_OR": true,
	"OP_XOR": true, "OP_EQUAL": true, "OP_EQUALVERIFY": true,
}

// logicalEquivalents maps an opcode to the opcode obtained by swapping
// its operands and flipping the comparison direction.
var logicalEquivalents = map[string]string{
	"OP_LESSTHAN":            "OP_GREATERTHAN",
	"OP_GREATERTHAN":         "OP_LESSTHAN",
	"OP_LESSTHANOREQUAL":     "OP_GREATERTHANOREQUAL",
	"OP_GREATERTHANOREQUAL":  "OP_LESSTHANOREQUAL",
}

func isCommutative(name string) bool      { return commutativeOps[name] }
func hasLogicalEquivalent(name string) (string, bool) {
	n, ok := logicalEquivalents[name]
	return n, ok
}

// Optimizer runs constant folding, commutative rewriting, type
// checking and function inlining over a SIR tree.
type Optimizer struct {
	symtab   *SymbolTable
	opts     config.Options
	mangleN  int
	warnings []string
}

// Warnings returns every non-fatal type-check finding accumulated
// during the last Optimize call, in the style of parser.Parser's own
// Errors() accumulator.
func (o *Optimizer) Warnings() []string { return o.warnings }

func (o *Optimizer) addWarning(line int, format string, args ...interface{}) {
	o.warnings = append(o.warnings, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

// Optimize optimizes script in place against symtab, returning the
// (possibly rewritten) script and any non-fatal type-check warnings
// found along the way.
func Optimize(script *Script, symtab *SymbolTable, opts config.Options) (*Script, []string, error) {
	o := &Optimizer{symtab: symtab, opts: opts}
	stmts := make([]Node, 0, len(script.Statements))
	for _, stmt := range script.Statements {
		v, err := o.visit(stmt)
		if err != nil {
			return nil, nil, err
		}
		if v == nil {
			continue
		}
		stmts = append(stmts, v)
	}
	return &Script{pos: script.pos, Statements: stmts}, o.warnings, nil
}

func (o *Optimizer) visit(node Node) (result Node, err error) {
	if node == nil {
		return nil, nil
	}
	defer func() {
		if err != nil {
			err = txscerr.Wrap(node.Line(), err)
		}
	}()

	switch n := node.(type) {
	case *Declaration:
		return o.visitDeclaration(n)
	case *Assignment:
		return o.visitAssignment(n)
	case *Deletion:
		if err := o.symtab.Delete(n.Name); err != nil {
			if e, ok := err.(*txscerr.Error); ok && e.Kind == txscerr.Undeclared {
				return nil, err
			}
			// A delete of a plain constant-valued symbol is a no-op
			// (Open Question #3, see DESIGN.md): the symbol table
			// error kinds above already ensured this is a real entry.
		}
		return nil, nil
	case *If:
		return o.visitIf(n)
	case *Function:
		return o.visitFunction(n)
	case *FunctionCall:
		return o.visitFunctionCall(n)
	case *Return:
		v, err := o.visit(n.Value)
		if err != nil {
			return nil, err
		}
		return &Return{pos: n.pos, Value: v}, nil
	case *Symbol:
		return o.visitSymbol(n)
	case *UnaryOpCode:
		return o.visitUnary(n)
	case *BinOpCode:
		return o.visitBin(n)
	case *VariableArgsOpCode:
		return o.visitVariableArgs(n)
	case *VerifyOpCode:
		test, err := o.visit(n.Test)
		if err != nil {
			return nil, err
		}
		return &VerifyOpCode{OpCode: n.OpCode, Test: test}, nil
	case *Push:
		v, err := o.visit(n.Expr)
		if err != nil {
			return nil, err
		}
		return &Push{pos: n.pos, Expr: v}, nil
	case *InnerScript:
		stmts := make([]Node, 0, len(n.Statements))
		for _, s := range n.Statements {
			v, err := o.visit(s)
			if err != nil {
				return nil, err
			}
			if v != nil {
				stmts = append(stmts, v)
			}
		}
		return &InnerScript{pos: n.pos, Statements: stmts}, nil
	case *Cast:
		return o.visitCast(n)
	default:
		return node, nil
	}
}

func (o *Optimizer) visitDeclaration(n *Declaration) (Node, error) {
	value := n.Value
	if sym, ok := n.Value.(*Symbol); ok {
		resolved, found := o.symtab.Lookup(sym.Name)
		if found && resolved.Type != TypeStackItem && resolved.Type != TypeFunc {
			if v, ok := resolved.Value.(Node); ok {
				value = v
			}
		}
	}
	visited, err := o.visit(value)
	if err != nil {
		return nil, err
	}
	symType := TypeExpr
	if _, ok := visited.(*Int); ok {
		symType = TypeInteger
	} else if _, ok := visited.(*Bytes); ok {
		symType = TypeByteArray
	}
	if err := o.symtab.Declare(Symbol{Name: n.Name, Value: visited, Type: symType, Mutable: n.Mutable}); err != nil {
		return nil, err
	}
	return &Declaration{pos: n.pos, Name: n.Name, Value: visited, Type: symType, Mutable: n.Mutable}, nil
}

func (o *Optimizer) visitAssignment(n *Assignment) (Node, error) {
	visited, err := o.visit(n.Value)
	if err != nil {
		return nil, err
	}
	if err := o.symtab.Assign(n.Name, visited); err != nil {
		return nil, err
	}
	return &Assignment{pos: n.pos, Name: n.Name, Value: visited}, nil
}

func (o *Optimizer) visitIf(n *If) (Node, error) {
	test, err := o.visit(n.Test)
	if err != nil {
		return nil, err
	}
	o.symtab.BeginScope(ScopeConditional)
	tb, err := o.visitBlock(n.TrueBranch)
	o.symtab.EndScope()
	if err != nil {
		return nil, err
	}
	var fb []Node
	if len(n.FalseBranch) > 0 {
		o.symtab.BeginScope(ScopeConditional)
		fb, err = o.visitBlock(n.FalseBranch)
		o.symtab.EndScope()
		if err != nil {
			return nil, err
		}
	}
	return &If{pos: n.pos, Test: test, TrueBranch: tb, FalseBranch: fb}, nil
}

func (o *Optimizer) visitBlock(stmts []Node) ([]Node, error) {
	out := make([]Node, 0, len(stmts))
	for _, s := range stmts {
		v, err := o.visit(s)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (o *Optimizer) visitFunction(n *Function) (Node, error) {
	if len(n.Body) == 0 {
		return nil, txscerr.New(txscerr.IRError, n.Line(), "function %q has an empty body", n.Name)
	}
	var hasReturn bool
	for i, s := range n.Body {
		if _, ok := s.(*Return); ok {
			if hasReturn {
				return nil, txscerr.New(txscerr.IRError, n.Line(), "function %q can only have one return statement", n.Name)
			}
			hasReturn = true
			continue
		}
		if isPushOperation(s) && i == len(n.Body)-1 {
			return nil, txscerr.New(txscerr.IRImplicitPushError, n.Line(), "functions cannot push values to the stack")
		}
	}
	if !hasReturn {
		return nil, txscerr.New(txscerr.IRError, n.Line(), "function %q must have a return statement", n.Name)
	}
	if err := o.symtab.AddFunctionDef(n.Name, n); err != nil {
		return nil, err
	}
	return nil, nil
}

func isPushOperation(n Node) bool {
	switch n.(type) {
	case *Push, *OpCode, *UnaryOpCode, *BinOpCode, *VariableArgsOpCode, *Int, *Bytes:
		return true
	default:
		return false
	}
}

// visitFunctionCall inlines a call: it mangles every local declaration
// in the callee's body into the symbol table, substitutes formal
// parameters with the (already-optimized) call arguments, and returns
// the callee's (optimized, substituted) return value as a single
// expression -- the inlined call site never survives as a FunctionCall
// node past this pass.
func (o *Optimizer) visitFunctionCall(n *FunctionCall) (Node, error) {
	sym, ok := o.symtab.Lookup(n.Name)
	if !ok || sym.Type != TypeFunc {
		return nil, txscerr.New(txscerr.IRError, n.Line(), "%q is not a declared function", n.Name)
	}
	def, ok := sym.Value.(*Function)
	if !ok {
		return nil, txscerr.New(txscerr.IRError, n.Line(), "%q is not a function", n.Name)
	}
	if len(def.Args) != len(n.Args) {
		return nil, txscerr.New(txscerr.IRError, n.Line(), "%q takes %d argument(s), %d given", n.Name, len(def.Args), len(n.Args))
	}

	args := make([]Node, len(n.Args))
	for i, a := range n.Args {
		v, err := o.visit(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	o.mangleN++
	mangle := func(name string) string { return fmt.Sprintf("%s_%d", name, o.mangleN) }

	o.symtab.BeginScope(ScopeFunction)
	for i, argName := range def.Args {
		o.symtab.declareLocal(Symbol{Name: argName, Value: args[i], Type: TypeExpr})
	}

	fv := &functionInliner{opt: o, mangle: mangle, locals: map[string]string{}}
	for _, argName := range def.Args {
		fv.locals[argName] = argName
	}

	var retValue Node
	for _, stmt := range def.Body {
		v, err := fv.visit(stmt)
		if err != nil {
			o.symtab.EndScope()
			return nil, err
		}
		if ret, ok := v.(*Return); ok {
			retValue = ret.Value
		}
	}
	o.symtab.EndScope()

	visited, err := o.visit(retValue)
	if err != nil {
		return nil, err
	}
	return visited, nil
}

// functionInliner rewrites a function body's local declarations and
// references during inlining: each local name is mangled to a unique
// symbol table entry and formal-parameter references are substituted
// with the (already-visited) call argument nodes.
type functionInliner struct {
	opt    *Optimizer
	mangle func(string) string
	locals map[string]string
}

func (fv *functionInliner) visit(node Node) (Node, error) {
	switch n := node.(type) {
	case *Declaration:
		mangled := fv.mangle(n.Name)
		fv.locals[n.Name] = mangled
		value, err := fv.visit(n.Value)
		if err != nil {
			return nil, err
		}
		fv.opt.symtab.declareLocal(Symbol{Name: mangled, Value: value, Type: TypeExpr, Mutable: n.Mutable})
		return &Declaration{pos: n.pos, Name: mangled, Value: value, Mutable: n.Mutable}, nil
	case *Assignment:
		name := n.Name
		if m, ok := fv.locals[name]; ok {
			name = m
		}
		value, err := fv.visit(n.Value)
		if err != nil {
			return nil, err
		}
		if err := fv.opt.symtab.Assign(name, value); err != nil {
			return nil, err
		}
		return &Assignment{pos: n.pos, Name: name, Value: value}, nil
	case *Symbol:
		if m, ok := fv.locals[n.Name]; ok {
			if sym, found := fv.opt.symtab.Lookup(m); found {
				if v, ok := sym.Value.(Node); ok {
					return v, nil
				}
			}
			return &Symbol{pos: n.pos, Name: m}, nil
		}
		return n, nil
	case *Return:
		v, err := fv.visit(n.Value)
		if err != nil {
			return nil, err
		}
		return &Return{pos: n.pos, Value: v}, nil
	case *UnaryOpCode:
		v, err := fv.visit(n.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryOpCode{OpCode: n.OpCode, Operand: v}, nil
	case *BinOpCode:
		l, err := fv.visit(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := fv.visit(n.Right)
		if err != nil {
			return nil, err
		}
		return &BinOpCode{OpCode: n.OpCode, Left: l, Right: r}, nil
	case *VariableArgsOpCode:
		ops := make([]Node, len(n.Operands))
		for i, a := range n.Operands {
			v, err := fv.visit(a)
			if err != nil {
				return nil, err
			}
			ops[i] = v
		}
		return &VariableArgsOpCode{OpCode: n.OpCode, Operands: ops}, nil
	case *VerifyOpCode:
		t, err := fv.visit(n.Test)
		if err != nil {
			return nil, err
		}
		return &VerifyOpCode{OpCode: n.OpCode, Test: t}, nil
	case *FunctionCall:
		args := make([]Node, len(n.Args))
		for i, a := range n.Args {
			v, err := fv.visit(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fv.opt.visitFunctionCall(&FunctionCall{pos: n.pos, Name: n.Name, Args: args})
	default:
		return node, nil
	}
}

func (o *Optimizer) visitSymbol(n *Symbol) (Node, error) {
	sym, ok := o.symtab.Lookup(n.Name)
	if !ok {
		return nil, txscerr.New(txscerr.Undeclared, n.Line(), "%q was not declared", n.Name)
	}
	if sym.Type == TypeStackItem {
		return n, nil
	}
	value, ok := sym.Value.(Node)
	if !ok {
		return n, nil
	}
	switch value.(type) {
	case *Int, *Bytes:
		return value, nil
	}
	visited, err := o.visit(value)
	if err != nil {
		return nil, err
	}
	switch visited.(type) {
	case *Int, *Bytes:
		sym.Value = visited
		o.symtab.Assign(n.Name, visited)
		return visited, nil
	}
	return n, nil
}

func (o *Optimizer) checkTypes(name string, args ...Node) error {
	for _, a := range args {
		resolved := a
		if sym, ok := a.(*Symbol); ok {
			if s, found := o.symtab.Lookup(sym.Name); found {
				if v, ok := s.Value.(Node); ok {
					resolved = v
				}
			}
		}
		switch resolved.(type) {
		case *Bytes:
			if isArithmetic(name) {
				o.addWarning(a.Line(), "byte array used in arithmetic operation %s", name)
			}
		case *Int:
			if isByteStringOp(name) {
				return txscerr.New(txscerr.IRTypeError, a.Line(), "%s cannot operate on an integer literal", name)
			}
		}
	}
	return nil
}

func (o *Optimizer) visitUnary(n *UnaryOpCode) (Node, error) {
	if err := o.checkTypes(n.Name, n.Operand); err != nil {
		return nil, err
	}
	operand, err := o.visit(n.Operand)
	if err != nil {
		return nil, err
	}
	if err := o.checkStrictNum(n.Line(), operand); err != nil {
		return nil, err
	}
	if v, ok := evalUnary(n.Name, operand); ok {
		if err := o.checkStrictNumNode(n.Line(), v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return &UnaryOpCode{OpCode: OpCode{pos: n.pos, Name: n.Name}, Operand: operand}, nil
}

func (o *Optimizer) visitBin(n *BinOpCode) (Node, error) {
	name, left, right := o.commuteOperands(n.Name, n.Left, n.Right)
	if err := o.checkTypes(name, left, right); err != nil {
		return nil, err
	}
	l, err := o.visit(left)
	if err != nil {
		return nil, err
	}
	r, err := o.visit(right)
	if err != nil {
		return nil, err
	}
	if err := o.checkStrictNum(n.Line(), l, r); err != nil {
		return nil, err
	}
	if v, ok := evalBin(name, l, r); ok {
		if err := o.checkStrictNumNode(n.Line(), v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return &BinOpCode{OpCode: OpCode{pos: n.pos, Name: name}, Left: l, Right: r}, nil
}

func (o *Optimizer) visitVariableArgs(n *VariableArgsOpCode) (Node, error) {
	ops := make([]Node, len(n.Operands))
	for i, arg := range n.Operands {
		v, err := o.visit(arg)
		if err != nil {
			return nil, err
		}
		ops[i] = v
	}
	if v, ok := evalVariableArgs(n.Name, ops); ok {
		return v, nil
	}
	return &VariableArgsOpCode{OpCode: n.OpCode, Operands: ops}, nil
}

func (o *Optimizer) visitCast(n *Cast) (Node, error) {
	value := n.Value
	if sym, ok := value.(*Symbol); ok {
		if s, found := o.symtab.Lookup(sym.Name); found {
			if v, ok := s.Value.(Node); ok {
				value = v
			}
		}
	}
	visited, err := o.visit(value)
	if err != nil {
		return nil, err
	}
	switch n.AsType {
	case TypeInteger:
		i, ok := CoerceInt(visited)
		if !ok {
			return nil, txscerr.New(txscerr.IRTypeError, n.Line(), "cannot cast to integer")
		}
		return i, nil
	case TypeByteArray:
		b, ok := CoerceBytes(visited)
		if !ok {
			return nil, txscerr.New(txscerr.IRTypeError, n.Line(), "cannot cast to byte array")
		}
		return b, nil
	default:
		return visited, nil
	}
}

// commuteOperands implements the full nested-rotation variant of
// commutative rewriting (Open Question #2, see DESIGN.md /
// SPEC_FULL.md section 11): when a commutative op's left operand is
// itself the same op applied to an assumption and something else, the
// assumption is sunk into the right-hand position so later stack
// analysis sees it last.
func (o *Optimizer) commuteOperands(name string, left, right Node) (string, Node, Node) {
	if isCommutative(name) {
		if lb, ok := left.(*BinOpCode); ok && lb.Name == name {
			if isAssumption(lb.Left, o.symtab) {
				// Rotate: ((a . x) . y)  ->  ((x . y) . a)
				newLeft := &BinOpCode{OpCode: lb.OpCode, Left: lb.Right, Right: right}
				return name, newLeft, lb.Left
			}
		}
	}
	leftIsAssumption := isAssumption(left, o.symtab)
	rightIsAssumption := isAssumption(right, o.symtab)
	if leftIsAssumption || !rightIsAssumption {
		// Already in the preferred shape, or nothing to gain by
		// swapping.
		if isCommutative(name) && !leftIsAssumption && rightIsAssumption {
			return name, right, left
		}
		return name, left, right
	}
	if isCommutative(name) {
		return name, right, left
	}
	if eq, ok := hasLogicalEquivalent(name); ok {
		return eq, right, left
	}
	return name, left, right
}

func isAssumption(n Node, symtab *SymbolTable) bool {
	sym, ok := n.(*Symbol)
	if !ok {
		return false
	}
	s, found := symtab.Lookup(sym.Name)
	return found && s.Type == TypeStackItem
}

func isArithmetic(opName string) bool {
	switch opName {
	case "OP_CAT", "OP_SUBSTR", "OP_LEFT", "OP_RIGHT", "OP_SIZE", "OP_EQUAL":
		return false
	default:
		return true
	}
}

func isByteStringOp(opName string) bool {
	switch opName {
	case "OP_CAT", "OP_SUBSTR", "OP_LEFT", "OP_RIGHT", "OP_SIZE":
		return true
	default:
		return false
	}
}

func (o *Optimizer) checkStrictNum(line int, nodes ...Node) error {
	if !o.opts.StrictNum {
		return nil
	}
	for _, n := range nodes {
		if err := o.checkStrictNumNode(line, n); err != nil {
			return err
		}
	}
	return nil
}

func (o *Optimizer) checkStrictNumNode(line int, n Node) error {
	if !o.opts.StrictNum {
		return nil
	}
	if i, ok := n.(*Int); ok {
		if !isStrictNum(i.Value) {
			return txscerr.New(txscerr.IRStrictNumError, line, "%d does not fit in 4 bytes", i.Value)
		}
	}
	return nil
}
