// Package lowering implements the SIR -> LIR lowering pass: a
// recursive-descent walk that turns a tree-shaped sir.Script into a
// flat slice of lir.Node instructions.
package lowering

import (
	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/lir"
	"github.com/dr8co/txsc/opcode"
	"github.com/dr8co/txsc/sir"
	"github.com/dr8co/txsc/txscerr"
)

// Lower walks script's statements in order, threading symtab for
// declare/assign/delete bookkeeping, and returns the flattened LIR
// program.
func Lower(script *sir.Script, symtab *sir.SymbolTable, opts config.Options) ([]lir.Node, error) {
	l := &lowerer{symtab: symtab, opts: opts}
	for _, stmt := range script.Statements {
		if err := l.lowerStatement(stmt); err != nil {
			return nil, err
		}
	}
	return l.out, nil
}

type lowerer struct {
	symtab *sir.SymbolTable
	opts   config.Options
	out    []lir.Node
}

func (l *lowerer) emit(nodes ...lir.Node) {
	l.out = append(l.out, nodes...)
}

// sliceFrom returns everything emitted since mark, for bookkeeping
// fields (Declaration.Value, Assignment.Value) that record the
// instructions which produced a value without re-emitting them.
func (l *lowerer) sliceFrom(mark int) []lir.Node {
	return append([]lir.Node(nil), l.out[mark:]...)
}

func (l *lowerer) lowerStatement(n sir.Node) error {
	switch s := n.(type) {
	case *sir.Declaration:
		return l.lowerDeclaration(s)
	case *sir.Assignment:
		return l.lowerAssignment(s)
	case *sir.Deletion:
		return l.lowerDeletion(s)
	case *sir.If:
		return l.lowerIf(s)
	case *sir.Push:
		return l.lowerExpr(s.Expr)
	case *sir.VerifyOpCode:
		// verify is a first-class statement, not an implicit push:
		// lower it unconditionally regardless of ImplicitPushes.
		return l.lowerExpr(s)
	default:
		// A bare expression statement: its value is pushed implicitly,
		// which config.Options may disallow.
		if !l.opts.ImplicitPushes {
			return txscerr.New(txscerr.IRImplicitPushError, n.Line(),
				"statement produces a value that would be pushed implicitly; wrap it in push() or enable implicit_pushes")
		}
		return l.lowerExpr(n)
	}
}

// stackDeclName is the synthetic declaration compiler.toSIR emits for
// an "assume" statement. It carries no instructions of its own: the
// symbol table already recorded the assumed names and their stack
// depths when toSIR built it, and lir.Inline reads them straight back
// out via symtab.StackNames() to build the alt-stack prologue, so
// lowering it like an ordinary declaration would both double-declare
// the name and try to lower a *sir.Script value lowerExpr has no case
// for.
const stackDeclName = "_stack"

func (l *lowerer) lowerDeclaration(d *sir.Declaration) error {
	if d.Name == stackDeclName {
		return nil
	}

	mark := len(l.out)
	if err := l.lowerExpr(d.Value); err != nil {
		return err
	}
	value := l.sliceFrom(mark)
	if err := l.symtab.Declare(sir.Symbol{Name: d.Name, Type: d.Type, Mutable: d.Mutable}); err != nil {
		return txscerr.Wrap(d.Line(), err)
	}
	l.emit(lir.NewDeclaration(d.Name, value))
	return nil
}

func (l *lowerer) lowerAssignment(a *sir.Assignment) error {
	mark := len(l.out)
	if err := l.lowerExpr(a.Value); err != nil {
		return err
	}
	value := l.sliceFrom(mark)
	if err := l.symtab.Assign(a.Name, value); err != nil {
		return txscerr.Wrap(a.Line(), err)
	}
	l.emit(lir.NewAssignment(a.Name, value))
	return nil
}

func (l *lowerer) lowerDeletion(d *sir.Deletion) error {
	if err := l.symtab.Delete(d.Name); err != nil {
		return txscerr.Wrap(d.Line(), err)
	}
	l.emit(lir.NewDeletion(d.Name))
	return nil
}

func (l *lowerer) lowerIf(n *sir.If) error {
	if err := l.lowerExpr(n.Test); err != nil {
		return err
	}
	l.emit(lir.NewIf())

	l.symtab.BeginScope(sir.ScopeConditional)
	for _, stmt := range n.TrueBranch {
		if err := l.lowerStatement(stmt); err != nil {
			return err
		}
	}
	l.symtab.EndScope()

	if len(n.FalseBranch) > 0 {
		l.emit(lir.NewElse())
		l.symtab.BeginScope(sir.ScopeConditional)
		for _, stmt := range n.FalseBranch {
			if err := l.lowerStatement(stmt); err != nil {
				return err
			}
		}
		l.symtab.EndScope()
	}

	l.emit(lir.NewEndIf())
	return nil
}

// lowerExpr appends the instructions that evaluate n, leaving exactly
// one value on top of the stack.
func (l *lowerer) lowerExpr(n sir.Node) error {
	switch e := n.(type) {
	case *sir.Int:
		l.emit(lir.PushInt(e.Value))
		return nil

	case *sir.Bytes:
		if v, ok := e.AsInt(); ok && v >= -1 && v <= 16 {
			if s, ok := opcode.SmallIntByValue(int(v)); ok {
				l.emit(lir.NewSmallIntOpCode(s))
				return nil
			}
		}
		l.emit(lir.NewPush(e.Data))
		return nil

	case *sir.Symbol:
		sym, ok := l.symtab.Lookup(e.Name)
		if !ok {
			return txscerr.New(txscerr.IRError, e.Line(), "%q was not declared", e.Name)
		}
		if sym.Type == sir.TypeStackItem {
			l.emit(lir.NewAssumption(e.Name))
		} else {
			l.emit(lir.NewVariable(e.Name))
		}
		return nil

	case *sir.Cast:
		// Script stack items carry no runtime type tag; a cast is a
		// compile-time-only reinterpretation of the same bytes.
		return l.lowerExpr(e.Value)

	case *sir.Push:
		return l.lowerExpr(e.Expr)

	case *sir.If:
		return l.lowerIf(e)

	case *sir.InnerScript:
		sub := &lowerer{symtab: l.symtab, opts: l.opts}
		for _, stmt := range e.Statements {
			if err := sub.lowerStatement(stmt); err != nil {
				return err
			}
		}
		l.emit(lir.NewInnerScript(sub.out))
		return nil

	case *sir.VerifyOpCode:
		if err := l.lowerExpr(e.Test); err != nil {
			return err
		}
		return l.emitOp(e.Name, e.Line())

	case *sir.UnaryOpCode:
		if err := l.lowerExpr(e.Operand); err != nil {
			return err
		}
		return l.emitOp(e.Name, e.Line())

	case *sir.BinOpCode:
		if err := l.lowerExpr(e.Left); err != nil {
			return err
		}
		if err := l.lowerExpr(e.Right); err != nil {
			return err
		}
		return l.emitOp(e.Name, e.Line())

	case *sir.VariableArgsOpCode:
		for _, operand := range e.Operands {
			if err := l.lowerExpr(operand); err != nil {
				return err
			}
		}
		return l.emitOp(e.Name, e.Line())

	case *sir.OpCode:
		return l.emitOp(e.Name, e.Line())

	case *sir.Function:
		return txscerr.New(txscerr.IRError, e.Line(),
			"function definition %q reached lowering; the optimizer must inline every call", e.Name)
	case *sir.FunctionCall:
		return txscerr.New(txscerr.IRError, e.Line(),
			"call to %q reached lowering uninlined", e.Name)
	case *sir.Return:
		return txscerr.New(txscerr.IRError, e.Line(),
			"return statement reached lowering outside of an inlined function body")

	default:
		return txscerr.New(txscerr.IRError, n.Line(), "lowering: unhandled node type %T", n)
	}
}

// emitOp resolves name to its opcode descriptor and appends the
// matching lir.Node, dispatching to the handful of opcodes that carry
// extra per-occurrence metadata (IfDup, Pick, Roll, CheckMultiSig(Verify)).
func (l *lowerer) emitOp(name string, line int) error {
	switch name {
	case "OP_IFDUP":
		d, _ := opcode.ByName(name)
		l.emit(lir.NewIfDup(d))
		return nil
	case "OP_PICK":
		d, _ := opcode.ByName(name)
		l.emit(lir.NewPick(d))
		return nil
	case "OP_ROLL":
		d, _ := opcode.ByName(name)
		l.emit(lir.NewRoll(d))
		return nil
	case "OP_CHECKMULTISIG":
		d, _ := opcode.ByName(name)
		l.emit(lir.NewCheckMultiSig(d))
		return nil
	case "OP_CHECKMULTISIGVERIFY":
		d, _ := opcode.ByName(name)
		l.emit(lir.NewCheckMultiSigVerify(d))
		return nil
	}
	if s, ok := opcode.SmallIntByName(name); ok {
		l.emit(lir.NewSmallIntOpCode(s))
		return nil
	}
	d, ok := opcode.ByName(name)
	if !ok {
		return txscerr.New(txscerr.IRError, line, "unknown opcode %q", name)
	}
	l.emit(lir.NewOpCode(d))
	return nil
}
