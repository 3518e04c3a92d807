// Package asmparser parses ASM source straight into a flat,
// uncontextualized []lir.Node program, the same representation
// bytescript.Decode produces from raw bytes. ASM has no structural
// nesting of its own -- If/Else/EndIf are markers in a flat stream, not
// a tree -- so there's nothing for a structural IR to recover here;
// callers compiling ASM further should run lir.Contextualize over the
// result first, exactly as bytescript.Decode's callers do.
package asmparser

import (
	"encoding/hex"
	"strings"

	"github.com/dr8co/txsc/asmlexer"
	"github.com/dr8co/txsc/lir"
	"github.com/dr8co/txsc/opcode"
	"github.com/dr8co/txsc/token"
	"github.com/dr8co/txsc/txscerr"
)

// Parse tokenizes and parses src into a LIR program.
func Parse(src string) ([]lir.Node, error) {
	tokens := asmlexer.Tokenize(src)
	var out []lir.Node

	for i := 0; tokens[i].Type != token.EOF; {
		t := tokens[i]

		if t.Type == token.Hex {
			if i+1 >= len(tokens) || tokens[i+1].Type != token.Hex {
				return nil, txscerr.New(txscerr.ParsingError, t.Line,
					"dangling hex literal %q: a push needs a length token followed by a data token", t.Literal)
			}
			data, err := hexLiteralToBytes(tokens[i+1].Literal)
			if err != nil {
				return nil, txscerr.New(txscerr.ParsingError, t.Line, "%s", err.Error())
			}
			out = append(out, lir.NewPush(data))
			i += 2
			continue
		}

		name := normalizeOpName(t.Literal)
		if s, ok := opcode.SmallIntByName(name); ok {
			out = append(out, lir.NewSmallIntOpCode(s))
			i++
			continue
		}
		d, ok := opcode.ByName(name)
		if !ok {
			return nil, txscerr.New(txscerr.ParsingError, t.Line, "unknown opcode %q", t.Literal)
		}
		out = append(out, nodeFor(d))
		i++
	}

	return out, nil
}

// normalizeOpName accepts both the bare OpStr form this project's own
// emit.ASM produces ("ADD", "CHECKSIG") and the conventional "OP_"
// prefixed form many hand-written ASM listings use.
func normalizeOpName(field string) string {
	upper := strings.ToUpper(field)
	if strings.HasPrefix(upper, "OP_") {
		return upper
	}
	return "OP_" + upper
}

func hexLiteralToBytes(lit string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(lit, "0x"), "0X")
	if len(trimmed)%2 != 0 {
		trimmed = "0" + trimmed
	}
	return hex.DecodeString(trimmed)
}

// nodeFor maps an opcode descriptor to its lir.Node constructor,
// mirroring bytescript.nodeFor: the handful of opcodes that carry extra
// per-occurrence metadata once lir.Contextualize resolves it need their
// own constructor rather than the generic one.
func nodeFor(d opcode.Descriptor) lir.Node {
	switch d.Name {
	case "OP_IF":
		return lir.NewIf()
	case "OP_NOTIF":
		return lir.NewNotIf()
	case "OP_ELSE":
		return lir.NewElse()
	case "OP_ENDIF":
		return lir.NewEndIf()
	case "OP_TOALTSTACK":
		return lir.NewToAltStack()
	case "OP_FROMALTSTACK":
		return lir.NewFromAltStack()
	case "OP_IFDUP":
		return lir.NewIfDup(d)
	case "OP_PICK":
		return lir.NewPick(d)
	case "OP_ROLL":
		return lir.NewRoll(d)
	case "OP_CHECKMULTISIG":
		return lir.NewCheckMultiSig(d)
	case "OP_CHECKMULTISIGVERIFY":
		return lir.NewCheckMultiSigVerify(d)
	default:
		return lir.NewOpCode(d)
	}
}
