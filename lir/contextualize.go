package lir

// Contextualize assigns each instruction's Idx and resolves the
// metadata that depends on neighboring instructions: IfDup's dynamic
// delta, Pick/Roll's depth argument, and CheckMultiSig(Verify)'s
// variable operand count. Resolution only succeeds when the relevant
// argument is a traceable constant immediately preceding the opcode; an
// argument computed at runtime (e.g. left on the stack by a prior
// conditional) is simply left unresolved.
func Contextualize(instructions []Node) {
	for i, instr := range instructions {
		instr.SetIdx(i)
	}
	for _, instr := range instructions {
		switch n := instr.(type) {
		case *IfDup:
			contextualizeIfDup(instructions, n)
		case *Pick:
			contextualizePick(instructions, n)
		case *Roll:
			contextualizeRoll(instructions, n)
		case *CheckMultiSig:
			contextualizeCheckMultiSig(instructions, n)
		case *CheckMultiSigVerify:
			contextualizeCheckMultiSig(instructions, &n.CheckMultiSig)
		}
	}
}

func precedingValue(instructions []Node, idx, back int) (int64, bool) {
	pos := idx - back
	if pos < 0 || pos >= len(instructions) {
		return 0, false
	}
	return IntValue(instructions[pos])
}

// contextualizeIfDup resolves IfDup's delta from the value it would
// duplicate: 1 if that value is truthy (non-zero), 0 otherwise.
func contextualizeIfDup(instructions []Node, op *IfDup) {
	v, ok := precedingValue(instructions, op.Idx(), 1)
	if !ok {
		return
	}
	if v != 0 {
		op.SetResolvedDelta(1)
	} else {
		op.SetResolvedDelta(0)
	}
}

// contextualizePick resolves OP_PICK's depth argument: it consumes the
// literal depth n plus the stack item n positions below it, i.e. stack
// indices [1, n+2).
func contextualizePick(instructions []Node, op *Pick) {
	n, ok := precedingValue(instructions, op.Idx(), 1)
	if !ok {
		return
	}
	op.Args = []int{1, int(n) + 2}
}

// contextualizeRoll resolves OP_ROLL's argument the same way OP_PICK's is.
func contextualizeRoll(instructions []Node, op *Roll) {
	n, ok := precedingValue(instructions, op.Idx(), 1)
	if !ok {
		return
	}
	op.Args = []int{1, int(n) + 2}
}

// contextualizeCheckMultiSig scans backward from the opcode to find the
// literal pubkey count, skip that many pubkeys, find the literal
// signature count, then skip that many signatures — exactly the layout
// CHECKMULTISIG expects on the stack.
func contextualizeCheckMultiSig(instructions []Node, op *CheckMultiSig) {
	i := 1
	numPubkeys, ok := precedingValue(instructions, op.Idx(), i)
	if !ok {
		return
	}
	i++
	i += int(numPubkeys)
	numSigs, ok := precedingValue(instructions, op.Idx(), i)
	if !ok {
		return
	}
	i++
	i += int(numSigs)

	np, ns := int(numPubkeys), int(numSigs)
	op.NumPubkeys = &np
	op.NumSigs = &ns
	op.Args = make([]int, i)
	for k := range op.Args {
		op.Args[k] = k
	}
}
