package lir

import "github.com/dr8co/txsc/opcode"

// MaxPasses bounds the peephole optimizer's fixed-point iteration: five
// passes is more than enough for every rewrite chain the rule set can
// produce (each rule strictly shrinks, or holds steady, the
// instruction count, and no script windows this small chain more than
// a handful of times).
const MaxPasses = 5

// peepholeRule rewrites a window of instructions starting at i,
// returning the replacement instructions, how many source instructions
// it consumed, and whether it applied.
type peepholeRule func(instructions []Node, i int) ([]Node, int, bool)

// patternElem matches a single instruction slot in a static template
// rule. A wildcard slot matches anything and is captured for the
// builder to reuse verbatim (e.g. to preserve the non-literal operand
// of an addition-by-one rewrite).
type patternElem struct {
	match    func(Node) bool
	wildcard bool
}

func nameIs(name string) patternElem {
	return patternElem{match: func(n Node) bool { return n.Name() == name }}
}

func smallIntValue(v int) patternElem {
	return patternElem{match: func(n Node) bool {
		s, ok := n.(*SmallIntOpCode)
		return ok && s.Value == v
	}}
}

func wildcard() patternElem {
	return patternElem{match: func(Node) bool { return true }, wildcard: true}
}

// templateRule turns a static (pattern, builder) pair into a
// peepholeRule: if pattern matches at i, builder receives the
// instructions captured by wildcard slots, in order.
func templateRule(pattern []patternElem, build func(captured []Node) []Node) peepholeRule {
	return func(instructions []Node, i int) ([]Node, int, bool) {
		if i+len(pattern) > len(instructions) {
			return nil, 0, false
		}
		var captured []Node
		for k, elem := range pattern {
			n := instructions[i+k]
			if !elem.match(n) {
				return nil, 0, false
			}
			if elem.wildcard {
				captured = append(captured, n)
			}
		}
		return build(captured), len(pattern), true
	}
}

func mustOp(name string) *OpCode {
	d, ok := opcode.ByName(name)
	if !ok {
		panic("lir: unknown opcode " + name)
	}
	return NewOpCode(d)
}

func mustSmallInt(name string) *SmallIntOpCode {
	s, ok := opcode.SmallIntByName(name)
	if !ok {
		panic("lir: unknown small int opcode " + name)
	}
	return NewSmallIntOpCode(s)
}

func replaceWith(nodes ...Node) func([]Node) []Node {
	return func([]Node) []Node { return nodes }
}

// peepholeRules is ported from the original project's peephole
// optimizer function list (linear_optimizer.py): opcode+VERIFY
// merging, repeated-opcode folding, stack-shuffle simplification,
// arithmetic shortcut forms, no-op elision, and hash-chain folding.
var peepholeRules = []peepholeRule{
	// X; OP_VERIFY -> X_VERIFY, for any X with a *VERIFY counterpart.
	ruleOpThenVerifyMerge,

	// OP_DROP OP_DROP -> OP_2DROP
	templateRule([]patternElem{nameIs("OP_DROP"), nameIs("OP_DROP")}, replaceWith(mustOp("OP_2DROP"))),

	// 1 OP_PICK -> OP_OVER
	templateRule([]patternElem{smallIntValue(1), nameIs("OP_PICK")}, replaceWith(mustOp("OP_OVER"))),
	// 1 OP_ROLL OP_DROP -> OP_NIP
	templateRule([]patternElem{smallIntValue(1), nameIs("OP_ROLL"), nameIs("OP_DROP")}, replaceWith(mustOp("OP_NIP"))),
	// 0 OP_PICK -> OP_DUP
	templateRule([]patternElem{smallIntValue(0), nameIs("OP_PICK")}, replaceWith(mustOp("OP_DUP"))),
	// 0 OP_ROLL -> (nothing; rolling the top item to the top is a no-op)
	templateRule([]patternElem{smallIntValue(0), nameIs("OP_ROLL")}, replaceWith()),
	// 1 OP_ROLL 1 OP_ROLL -> (nothing; swapping the same pair twice cancels)
	templateRule([]patternElem{smallIntValue(1), nameIs("OP_ROLL"), smallIntValue(1), nameIs("OP_ROLL")}, replaceWith()),

	// x 2 OP_DIV -> x OP_2DIV
	templateRule([]patternElem{wildcard(), smallIntValue(2), nameIs("OP_DIV")},
		func(c []Node) []Node { return []Node{c[0], mustOp("OP_2DIV")} }),
	// x 1 OP_SUB -> x OP_1SUB
	templateRule([]patternElem{wildcard(), smallIntValue(1), nameIs("OP_SUB")},
		func(c []Node) []Node { return []Node{c[0], mustOp("OP_1SUB")} }),
	// 1 OP_NEGATE -> -1 (the OP_1NEGATE literal, not the opcode applied
	// to whatever was below)
	templateRule([]patternElem{smallIntValue(1), nameIs("OP_NEGATE")}, replaceWith(mustSmallInt("OP_1NEGATE"))),
	// OP_TOALTSTACK OP_FROMALTSTACK -> (nothing); inverse likewise
	templateRule([]patternElem{nameIs("OP_TOALTSTACK"), nameIs("OP_FROMALTSTACK")}, replaceWith()),
	templateRule([]patternElem{nameIs("OP_FROMALTSTACK"), nameIs("OP_TOALTSTACK")}, replaceWith()),
	// 1 OP_ROLL -> OP_SWAP
	templateRule([]patternElem{smallIntValue(1), nameIs("OP_ROLL")}, replaceWith(mustOp("OP_SWAP"))),
	// OP_NIP OP_DROP -> OP_2DROP; OP_OVER OP_OVER -> OP_2DUP
	templateRule([]patternElem{nameIs("OP_NIP"), nameIs("OP_DROP")}, replaceWith(mustOp("OP_2DROP"))),
	templateRule([]patternElem{nameIs("OP_OVER"), nameIs("OP_OVER")}, replaceWith(mustOp("OP_2DUP"))),
	// OP_NOT OP_IF -> OP_NOTIF
	templateRule([]patternElem{nameIs("OP_NOT"), nameIs("OP_IF")}, replaceWith(NewNotIf())),
	// OP_ELSE OP_ENDIF -> OP_ENDIF; OP_IF OP_ENDIF -> OP_DROP
	templateRule([]patternElem{nameIs("OP_ELSE"), nameIs("OP_ENDIF")}, replaceWith(NewEndIf())),
	templateRule([]patternElem{nameIs("OP_IF"), nameIs("OP_ENDIF")}, replaceWith(mustOp("OP_DROP"))),

	// X 1 OP_ADD / 1 X OP_ADD -> X OP_1ADD
	templateRule([]patternElem{wildcard(), smallIntValue(1), nameIs("OP_ADD")},
		func(c []Node) []Node { return []Node{c[0], mustOp("OP_1ADD")} }),
	templateRule([]patternElem{smallIntValue(1), wildcard(), nameIs("OP_ADD")},
		func(c []Node) []Node { return []Node{c[0], mustOp("OP_1ADD")} }),

	// X 2 OP_MUL / 2 X OP_MUL -> X OP_2MUL
	templateRule([]patternElem{wildcard(), smallIntValue(2), nameIs("OP_MUL")},
		func(c []Node) []Node { return []Node{c[0], mustOp("OP_2MUL")} }),
	templateRule([]patternElem{smallIntValue(2), wildcard(), nameIs("OP_MUL")},
		func(c []Node) []Node { return []Node{c[0], mustOp("OP_2MUL")} }),

	// 0 OP_SUB -> (nothing; subtracting zero is a no-op)
	templateRule([]patternElem{smallIntValue(0), nameIs("OP_SUB")}, replaceWith()),
	// X 0 OP_ADD / 0 X OP_ADD -> X
	templateRule([]patternElem{wildcard(), smallIntValue(0), nameIs("OP_ADD")},
		func(c []Node) []Node { return []Node{c[0]} }),
	templateRule([]patternElem{smallIntValue(0), wildcard(), nameIs("OP_ADD")},
		func(c []Node) []Node { return []Node{c[0]} }),

	// OP_DUP X OP_CHECKSIG -> X OP_CHECKSIG
	templateRule([]patternElem{nameIs("OP_DUP"), wildcard(), nameIs("OP_CHECKSIG")},
		func(c []Node) []Node { return []Node{c[0], mustOp("OP_CHECKSIG")} }),

	// OP_SHA256 OP_SHA256 -> OP_HASH256
	templateRule([]patternElem{nameIs("OP_SHA256"), nameIs("OP_SHA256")}, replaceWith(mustOp("OP_HASH256"))),
	// OP_SHA256 OP_RIPEMD160 -> OP_HASH160
	templateRule([]patternElem{nameIs("OP_SHA256"), nameIs("OP_RIPEMD160")}, replaceWith(mustOp("OP_HASH160"))),

	// x y OP_EQUAL OP_NOT -> x y OP_NUMNOTEQUAL, for literal operands
	// that fit the 4-byte strict-num range (outside it the two opcodes
	// are not interchangeable).
	templateRule([]patternElem{wildcard(), wildcard(), nameIs("OP_EQUAL"), nameIs("OP_NOT")},
		func(c []Node) []Node {
			if !fitsStrictNum(c[0]) || !fitsStrictNum(c[1]) {
				return []Node{c[0], c[1], mustOp("OP_EQUAL"), mustOp("OP_NOT")}
			}
			return []Node{c[0], c[1], mustOp("OP_NUMNOTEQUAL")}
		}),

	// OP_SWAP immediately before a commutative op is redundant.
	templateRule([]patternElem{nameIs("OP_SWAP"), commutativeOp()}, func(c []Node) []Node { return []Node{c[0]} }),
}

// commutativeOpNames is the set of LIR opcodes whose operand order
// does not matter, mirroring sir's commutativeOps table.
var commutativeOpNames = map[string]bool{
	"OP_ADD": true, "OP_MUL": true, "OP_BOOLAND": true, "OP_BOOLOR": true,
	"OP_NUMEQUAL": true, "OP_NUMEQUALVERIFY": true, "OP_NUMNOTEQUAL": true,
	"OP_MIN": true, "OP_MAX": true, "OP_AND": true, "OP_OR": true,
	"OP_XOR": true, "OP_EQUAL": true, "OP_EQUALVERIFY": true,
}

func commutativeOp() patternElem {
	return patternElem{
		match:    func(n Node) bool { return commutativeOpNames[n.Name()] },
		wildcard: true,
	}
}

func fitsStrictNum(n Node) bool {
	v, ok := IntValue(n)
	return ok && v >= -(1<<31) && v <= (1<<31)-1
}

// normalizePushesToSmallInts replaces any Push whose bytes decode to
// an integer in [-1, 16] with the equivalent SmallIntOpCode, the
// smallest possible encoding.
func normalizePushesToSmallInts(instructions []Node) ([]Node, bool) {
	changed := false
	out := make([]Node, len(instructions))
	for i, instr := range instructions {
		if p, ok := instr.(*Push); ok {
			if v, ok := decodeScriptNum(p.Data); ok && v >= -1 && v <= 16 {
				if s, ok := opcode.SmallIntByValue(int(v)); ok {
					out[i] = NewSmallIntOpCode(s)
					changed = true
					continue
				}
			}
		}
		out[i] = instr
	}
	return out, changed
}

// hoistReturn moves the first OP_RETURN occurrence to position 0 and
// drops everything after it, since execution never reaches past an
// unconditional OP_RETURN.
func hoistReturn(instructions []Node) ([]Node, bool) {
	for i, instr := range instructions {
		if instr.Name() == "OP_RETURN" {
			if i == 0 && len(instructions) == 1 {
				return instructions, false
			}
			return []Node{instr}, true
		}
	}
	return instructions, false
}

// ruleOpThenVerifyMerge merges "X; OP_VERIFY" into "X_VERIFY" whenever
// the opcode table records a merge target for X, i.e. a single
// equivalent-verifying form of the same opcode exists. This is
// data-driven from the opcode table rather than a static template,
// since it applies to every *VERIFY-capable opcode uniformly.
func ruleOpThenVerifyMerge(instructions []Node, i int) ([]Node, int, bool) {
	if i+1 >= len(instructions) {
		return nil, 0, false
	}
	op, ok := instructions[i].(*OpCode)
	if !ok {
		return nil, 0, false
	}
	if instructions[i+1].Name() != "OP_VERIFY" {
		return nil, 0, false
	}
	target, ok := opcode.VerifyMergeTarget(op.Name())
	if !ok {
		return nil, 0, false
	}
	desc, _ := opcode.ByName(target)
	return []Node{NewOpCode(desc)}, 2, true
}

// Peephole runs every rule over instructions to a fixed point (or
// MaxPasses, whichever comes first), then strips any trailing
// OP_VERIFY instructions, which are redundant since a script must
// already leave a truthy value to succeed.
func Peephole(instructions []Node) []Node {
	current := instructions
	for pass := 0; pass < MaxPasses; pass++ {
		changed := false

		var passChanged bool
		current, passChanged = peepholePass(current)
		changed = changed || passChanged

		current, passChanged = normalizePushesToSmallInts(current)
		changed = changed || passChanged

		current, passChanged = hoistReturn(current)
		changed = changed || passChanged

		if !changed {
			break
		}
	}
	for len(current) > 0 && current[len(current)-1].Name() == "OP_VERIFY" {
		current = current[:len(current)-1]
	}
	return current
}

func peepholePass(instructions []Node) ([]Node, bool) {
	out := make([]Node, 0, len(instructions))
	changed := false
	i := 0
	for i < len(instructions) {
		matched := false
		for _, rule := range peepholeRules {
			replacement, consumed, ok := rule(instructions, i)
			if !ok {
				continue
			}
			out = append(out, replacement...)
			i += consumed
			changed = true
			matched = true
			break
		}
		if matched {
			continue
		}
		out = append(out, instructions[i])
		i++
	}
	return out, changed
}

// Confluent reports whether two instruction lists serialize to the
// same opcode-name sequence: the notion of equality the peephole
// optimizer's confluence property (spec.md section 8) is stated
// against — the order in which independently-applicable rules fire
// must not affect the fixed point reached.
func Confluent(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name() != b[i].Name() {
			return false
		}
	}
	return true
}
