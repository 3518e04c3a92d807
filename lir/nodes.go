// Package lir implements the Linear Intermediate Representation: a flat
// instruction list lowered from sir.Script, together with the passes that
// annotate and optimize it (contextualizer, stack-state simulator,
// alt-stack manager, peephole optimizer, variable inliner).
package lir

import "github.com/dr8co/txsc/opcode"

// Node is a single linear-IR instruction. Unlike sir.Node, a lir.Node
// never nests (aside from InnerScript, which embeds an already-lowered
// sub-program as an opaque push), so the representation is a plain
// slice of Nodes rather than a tree.
type Node interface {
	// Name is the canonical opcode/pseudo-instruction name.
	Name() string
	// Delta is this instruction's net stack effect. For a few opcodes
	// (IfDup, CheckMultiSig, CheckMultiSigVerify) this is only
	// meaningful after Contextualize has resolved it.
	Delta() int
	// Idx is this instruction's position in its enclosing instruction
	// list, assigned by Contextualize.
	Idx() int
	SetIdx(i int)
}

type base struct {
	name string
	idx  int
}

func (b *base) Name() string { return b.name }
func (b *base) Idx() int     { return b.idx }
func (b *base) SetIdx(i int) { b.idx = i }

// Push pushes a literal byte string onto the stack.
type Push struct {
	base
	Data []byte
}

// NewPush returns a Push instruction for data.
func NewPush(data []byte) *Push {
	return &Push{base: base{name: "push"}, Data: data}
}

// Delta implements Node.
func (p *Push) Delta() int { return 1 }

// SmallIntOpCode pushes a small integer literal via its dedicated
// single-byte opcode (OP_0..OP_16, OP_1NEGATE) rather than a generic push.
type SmallIntOpCode struct {
	base
	Value int
}

// NewSmallIntOpCode wraps a small-int descriptor as a lir instruction.
func NewSmallIntOpCode(s opcode.SmallInt) *SmallIntOpCode {
	return &SmallIntOpCode{base: base{name: s.Name}, Value: s.Value}
}

// Delta implements Node.
func (s *SmallIntOpCode) Delta() int { return 1 }

// OpCode is a plain opcode whose stack effect is the descriptor table's
// static Delta, i.e. it needs no per-occurrence annotation.
type OpCode struct {
	base
	Desc     opcode.Descriptor
	delta    int
	Verifier bool
}

// NewOpCode wraps a plain opcode descriptor as a lir instruction.
func NewOpCode(d opcode.Descriptor) *OpCode {
	return &OpCode{base: base{name: d.Name}, Desc: d, delta: d.Delta, Verifier: d.Verifier}
}

// Delta implements Node.
func (o *OpCode) Delta() int { return o.delta }

// SetDelta overrides the static delta.
func (o *OpCode) SetDelta(d int) { o.delta = d }

// IfDup's delta depends on whether the value it would duplicate is
// truthy, which is only knowable once Contextualize can trace the
// preceding instruction back to a constant. Delta stays unresolved
// (nil) until then, and Delta reports an unresolved delta as 0;
// neither the stack simulator nor the emitters reject an unresolved
// IfDup.
type IfDup struct {
	base
	Desc  opcode.Descriptor
	delta *int
}

// NewIfDup wraps the OP_IFDUP descriptor as a lir instruction.
func NewIfDup(d opcode.Descriptor) *IfDup {
	return &IfDup{base: base{name: d.Name}, Desc: d}
}

// Delta implements Node. It returns 0 when unresolved; callers that
// must distinguish "resolved to zero" from "unresolved" use
// ResolvedDelta.
func (i *IfDup) Delta() int {
	if i.delta == nil {
		return 0
	}
	return *i.delta
}

// ResolvedDelta reports the resolved delta and whether Contextualize
// was able to determine it.
func (i *IfDup) ResolvedDelta() (int, bool) {
	if i.delta == nil {
		return 0, false
	}
	return *i.delta, true
}

// SetResolvedDelta records the delta Contextualize determined.
func (i *IfDup) SetResolvedDelta(d int) { i.delta = &d }

// Pick and Roll additionally carry the stack index their depth argument
// resolves to, once Contextualize can trace that argument to a literal.
type Pick struct {
	base
	Desc opcode.Descriptor
	Args []int
}

// NewPick wraps the OP_PICK descriptor as a lir instruction.
func NewPick(d opcode.Descriptor) *Pick { return &Pick{base: base{name: d.Name}, Desc: d} }

// Delta implements Node.
func (p *Pick) Delta() int { return p.Desc.Delta }

// Roll wraps the OP_ROLL descriptor as a lir instruction.
type Roll struct {
	base
	Desc opcode.Descriptor
	Args []int
}

// NewRoll wraps the OP_ROLL descriptor as a lir instruction.
func NewRoll(d opcode.Descriptor) *Roll { return &Roll{base: base{name: d.Name}, Desc: d} }

// Delta implements Node.
func (r *Roll) Delta() int { return r.Desc.Delta }

// CheckMultiSig consumes a variable number of operands (signature
// count, signatures, pubkey count, pubkeys), determined by
// Contextualize when the counts are traceable to literals.
type CheckMultiSig struct {
	base
	Desc       opcode.Descriptor
	NumPubkeys *int
	NumSigs    *int
	Args       []int
}

// NewCheckMultiSig wraps an OP_CHECKMULTISIG(VERIFY) descriptor.
func NewCheckMultiSig(d opcode.Descriptor) *CheckMultiSig {
	return &CheckMultiSig{base: base{name: d.Name}, Desc: d}
}

// Delta implements Node.
func (c *CheckMultiSig) Delta() int { return c.Desc.Delta }

// CheckMultiSigVerify is OP_CHECKMULTISIGVERIFY, which additionally
// fails the script if the result is not truthy.
type CheckMultiSigVerify struct {
	CheckMultiSig
}

// NewCheckMultiSigVerify wraps the OP_CHECKMULTISIGVERIFY descriptor.
func NewCheckMultiSigVerify(d opcode.Descriptor) *CheckMultiSigVerify {
	return &CheckMultiSigVerify{CheckMultiSig: CheckMultiSig{base: base{name: d.Name}, Desc: d}}
}

// Assumption marks a stack position as an assumed pre-existing
// variable, rather than one declared within the script body.
type Assumption struct {
	base
	VarName string
}

// NewAssumption returns an Assumption instruction for name.
func NewAssumption(name string) *Assumption {
	return &Assumption{base: base{name: "assumption"}, VarName: name}
}

// Delta implements Node. An assumption is already on the stack; it adds
// nothing.
func (a *Assumption) Delta() int { return 0 }

// Variable references a declared (non-assumption) symbol by name. It
// is a placeholder the variable inliner resolves into the symbol's
// current value, found either on the main stack (via the stack-state
// simulator's mirror) or the alt stack.
type Variable struct {
	base
	VarName string
}

// NewVariable returns a Variable reference instruction.
func NewVariable(name string) *Variable {
	return &Variable{base: base{name: "variable"}, VarName: name}
}

// Delta implements Node. Until inlined, a Variable is a pure
// placeholder contributing nothing; the value it resolves to supplies
// its own delta once substituted.
func (v *Variable) Delta() int { return 0 }

// Declaration binds a name to the value most recently pushed by the
// instructions lowering already flattened ahead of it; Value is kept
// only as a record of those instructions, for the alt-stack manager and
// variable inliner. The node itself pushes nothing.
type Declaration struct {
	base
	VarName string
	Value   []Node
}

// NewDeclaration returns a Declaration instruction.
func NewDeclaration(name string, value []Node) *Declaration {
	return &Declaration{base: base{name: "declaration"}, VarName: name, Value: value}
}

// Delta implements Node.
func (d *Declaration) Delta() int { return 0 }

// Assignment replaces an existing variable's value in place.
type Assignment struct {
	base
	VarName string
	Value   []Node
}

// NewAssignment returns an Assignment instruction.
func NewAssignment(name string, value []Node) *Assignment {
	return &Assignment{base: base{name: "assignment"}, VarName: name, Value: value}
}

// Delta implements Node. A correctly alt-stack-managed assignment
// replaces a value without changing the stack's length.
func (a *Assignment) Delta() int { return 0 }

// Deletion removes a variable, popping its value off the stack.
type Deletion struct {
	base
	VarName string
}

// NewDeletion returns a Deletion instruction.
func NewDeletion(name string) *Deletion {
	return &Deletion{base: base{name: "deletion"}, VarName: name}
}

// Delta implements Node.
func (d *Deletion) Delta() int { return -1 }

// InnerScript embeds a fully lowered nested script as a single
// push-like value, e.g. a P2SH redeem script.
type InnerScript struct {
	base
	Statements []Node
}

// NewInnerScript returns an InnerScript instruction wrapping statements.
func NewInnerScript(statements []Node) *InnerScript {
	return &InnerScript{base: base{name: "inner_script"}, Statements: statements}
}

// Delta implements Node.
func (s *InnerScript) Delta() int { return 1 }

// If begins a conditional branch, consuming the test value.
type If struct{ base }

// NewIf returns an If instruction.
func NewIf() *If { return &If{base: base{name: "OP_IF"}} }

// Delta implements Node.
func (i *If) Delta() int { return -1 }

// NotIf begins a negated conditional branch, consuming the test value.
type NotIf struct{ base }

// NewNotIf returns a NotIf instruction.
func NewNotIf() *NotIf { return &NotIf{base: base{name: "OP_NOTIF"}} }

// Delta implements Node.
func (n *NotIf) Delta() int { return -1 }

// Else switches to the alternate branch of the enclosing conditional.
type Else struct{ base }

// NewElse returns an Else instruction.
func NewElse() *Else { return &Else{base: base{name: "OP_ELSE"}} }

// Delta implements Node.
func (e *Else) Delta() int { return 0 }

// EndIf closes the enclosing conditional.
type EndIf struct{ base }

// NewEndIf returns an EndIf instruction.
func NewEndIf() *EndIf { return &EndIf{base: base{name: "OP_ENDIF"}} }

// Delta implements Node.
func (e *EndIf) Delta() int { return 0 }

// ToAltStack moves the top stack item to the alternate stack.
type ToAltStack struct{ base }

// NewToAltStack returns a ToAltStack instruction.
func NewToAltStack() *ToAltStack { return &ToAltStack{base: base{name: "OP_TOALTSTACK"}} }

// Delta implements Node.
func (t *ToAltStack) Delta() int { return -1 }

// FromAltStack moves the top alt-stack item back to the main stack.
type FromAltStack struct{ base }

// NewFromAltStack returns a FromAltStack instruction.
func NewFromAltStack() *FromAltStack { return &FromAltStack{base: base{name: "OP_FROMALTSTACK"}} }

// Delta implements Node.
func (f *FromAltStack) Delta() int { return 1 }

// PushInt returns the most compact instruction that pushes v: a
// SmallIntOpCode when v has a dedicated pseudo-opcode, else a Push of
// its minimally-encoded script-number form.
func PushInt(v int64) Node {
	if v >= -1 && v <= 16 {
		if s, ok := opcode.SmallIntByValue(int(v)); ok {
			return NewSmallIntOpCode(s)
		}
	}
	return NewPush(encodeScriptNum(v))
}

// IntValue reports the integer value op pushes, if it is a
// SmallIntOpCode or a Push of a minimally-encoded script number.
func IntValue(op Node) (int64, bool) {
	switch n := op.(type) {
	case *SmallIntOpCode:
		return int64(n.Value), true
	case *Push:
		return decodeScriptNum(n.Data)
	}
	return 0, false
}

// encodeScriptNum mirrors sir's script-number encoding: minimal
// little-endian bytes with a sign bit in the top bit of the last byte.
func encodeScriptNum(v int64) []byte {
	if v == 0 {
		return nil
	}
	neg := v < 0
	abs := v
	if neg {
		abs = -abs
	}
	var result []byte
	for abs > 0 {
		result = append(result, byte(abs&0xff))
		abs >>= 8
	}
	if result[len(result)-1]&0x80 != 0 {
		if neg {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if neg {
		result[len(result)-1] |= 0x80
	}
	return result
}

func decodeScriptNum(data []byte) (int64, bool) {
	if len(data) == 0 {
		return 0, true
	}
	if len(data) > 8 {
		return 0, false
	}
	var result int64
	for i, b := range data {
		result |= int64(b) << uint(8*i)
	}
	if data[len(data)-1]&0x80 != 0 {
		result &^= int64(0x80) << uint(8*(len(data)-1))
		result = -result
	}
	return result, true
}
