// Package emit renders a compiled program into one of the three output
// dialects: TxScript (a readable re-rendering of the structural tree),
// ASM (symbolic assembly, one token per opcode/operand), and byte-script
// (raw hex, delegated entirely to bytescript). Each emitter is a plain
// function, not a visitor type, matching how the rest of this compiler
// favors a type-switch over node types rather than an accept/visit
// hierarchy.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dr8co/txsc/bytescript"
	"github.com/dr8co/txsc/lir"
	"github.com/dr8co/txsc/opcode"
	"github.com/dr8co/txsc/sir"
)

// TxScript renders script back into readable TxScript-like source.
//
// The original project never emitted TxScript at all -- its
// txscript_language.py wires a source_visitor but no target_visitor,
// TxScript was write-only. Re-rendering readable source from a flat LIR
// program (whose If/EndIf are just markers, not a tree) would mean
// re-discovering block structure a decompiler has to guess at; the
// structural tree the optimizer already produced loses nothing in the
// process and already has a formatter, so this emitter renders from
// sir.Script, not lir.Node; compiler.Emit calls it after Compile,
// on the SIR tree Compile kept.
func TxScript(script *sir.Script) string {
	return sir.Format(script)
}

// ASM renders instructions as whitespace-separated ASM tokens: each
// Push becomes a pair of hex tokens (length, then data, mirroring
// asm_language.py's ASMTargetVisitor.visit_Push), every other
// instruction becomes its bare opcode name with the "OP_" prefix
// stripped (Descriptor.OpStr/SmallInt.OpStr already carry this form).
func ASM(instructions []lir.Node) (string, error) {
	var tokens []string
	for _, instr := range instructions {
		toks, err := asmTokens(instr)
		if err != nil {
			return "", err
		}
		tokens = append(tokens, toks...)
	}
	return strings.Join(tokens, " "), nil
}

func asmTokens(instr lir.Node) ([]string, error) {
	switch n := instr.(type) {
	case *lir.Push:
		return []string{formatHex(len(n.Data)), formatHexBytes(n.Data)}, nil

	case *lir.SmallIntOpCode:
		d, ok := opcode.SmallIntByName(n.Name())
		if !ok {
			return nil, fmt.Errorf("emit: unknown small-int opcode %q", n.Name())
		}
		return []string{d.OpStr}, nil

	case *lir.InnerScript:
		// asm_language.py falls back to BtcScriptTargetVisitor for a
		// nested script: it serializes the inner program to raw bytes
		// and renders that as an ordinary Push.
		data, err := bytescript.Encode(n.Statements)
		if err != nil {
			return nil, err
		}
		return []string{formatHex(len(data)), formatHexBytes(data)}, nil

	case *lir.Assumption, *lir.Variable, *lir.Declaration, *lir.Assignment, *lir.Deletion:
		return nil, fmt.Errorf("emit: %q reached the ASM printer unresolved; run lir.Inline first", instr.Name())

	default:
		d, ok := opcode.ByName(instr.Name())
		if !ok {
			return nil, fmt.Errorf("emit: unknown opcode %q", instr.Name())
		}
		return []string{d.OpStr}, nil
	}
}

func formatHex(n int) string {
	return "0x" + evenHex(strconv.FormatInt(int64(n), 16))
}

func formatHexBytes(data []byte) string {
	return "0x" + evenHex(fmt.Sprintf("%x", data))
}

func evenHex(s string) string {
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return s
}

// ByteScriptHex renders instructions as a serialized hex script,
// delegating entirely to bytescript -- the byte-script dialect's
// encoder lives there since it is also the byte-script dialect's
// decoder.
func ByteScriptHex(instructions []lir.Node) (string, error) {
	return bytescript.EncodeHex(instructions)
}
