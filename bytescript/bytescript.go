// Package bytescript converts between a flattened lir.Node program and
// the raw serialized byte-script Bitcoin Script actually runs on chain.
// It is a pure codec: nothing here executes or verifies a script, only
// encodes and decodes one.
package bytescript

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/dr8co/txsc/lir"
	"github.com/dr8co/txsc/opcode"
)

// DecodeAddressLiteral decodes a base58check address literal -- the
// form TxScript/ASM source embeds directly, e.g. in a
// `<address> OP_HASH160 ... OP_EQUAL` idiom -- into the raw hash bytes
// it pushes onto the stack. The front end calls this when it parses an
// address-literal token into a Bytes value.
func DecodeAddressLiteral(addr string) ([]byte, error) {
	a, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("bytescript: invalid address literal %q: %w", addr, err)
	}
	return a.ScriptAddress(), nil
}

// Encode serializes instructions into a raw script.
func Encode(instructions []lir.Node) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	if err := encodeInto(b, instructions); err != nil {
		return nil, err
	}
	return b.Script()
}

// EncodeHex is Encode followed by hex-encoding, the form the byte-script
// dialect's source and sink both use.
func EncodeHex(instructions []lir.Node) (string, error) {
	data, err := Encode(instructions)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

func encodeInto(b *txscript.ScriptBuilder, instructions []lir.Node) error {
	for _, instr := range instructions {
		switch n := instr.(type) {
		case *lir.Push:
			b.AddData(n.Data)

		case *lir.SmallIntOpCode:
			d, ok := opcode.SmallIntByName(n.Name())
			if !ok {
				return fmt.Errorf("bytescript: unknown small-int opcode %q", n.Name())
			}
			b.AddOp(d.Byte)

		case *lir.InnerScript:
			sub := txscript.NewScriptBuilder()
			if err := encodeInto(sub, n.Statements); err != nil {
				return err
			}
			subScript, err := sub.Script()
			if err != nil {
				return err
			}
			b.AddData(subScript)

		case *lir.Assumption, *lir.Variable, *lir.Declaration, *lir.Assignment, *lir.Deletion:
			return fmt.Errorf("bytescript: %q reached the byte-script encoder unresolved; run lir.Inline first", instr.Name())

		default:
			d, ok := opcode.ByName(instr.Name())
			if !ok {
				return fmt.Errorf("bytescript: unknown opcode %q", instr.Name())
			}
			b.AddOp(d.Byte)
		}
	}
	return nil
}

// Decode parses a raw script into a flat, uncontextualized lir.Node
// program: positional metadata on Pick, Roll, IfDup, and CheckMultiSig
// nodes is left unresolved, matching the state lowering.Lower leaves
// them in, so callers decoding a script for further compilation should
// run lir.Contextualize over the result before anything else.
//
// A data push can't be distinguished from an encoded InnerScript once
// serialized -- Bitcoin Script itself draws no such distinction, a P2SH
// redeem script is just bytes pushed onto the stack -- so every push
// decodes to a plain Push.
func Decode(script []byte) ([]lir.Node, error) {
	var out []lir.Node
	tok := txscript.MakeScriptTokenizer(0, script)
	for tok.Next() {
		op := tok.Opcode()

		// OP_FALSE (0x00) is simultaneously a valid push opcode (pushing
		// an empty byte string) and this project's small-int zero
		// literal; checking the small-int table first keeps it a
		// SmallIntOpCode rather than an indistinguishable empty Push.
		if s, ok := opcode.SmallIntByByte(op); ok {
			out = append(out, lir.NewSmallIntOpCode(s))
			continue
		}

		if data := tok.Data(); data != nil || isPushOpcode(op) {
			out = append(out, lir.NewPush(append([]byte(nil), data...)))
			continue
		}

		d, ok := opcode.ByByte(op)
		if !ok {
			return nil, fmt.Errorf("bytescript: unknown opcode byte 0x%02x", op)
		}
		out = append(out, nodeFor(d))
	}
	if err := tok.Err(); err != nil {
		return nil, fmt.Errorf("bytescript: %w", err)
	}
	return out, nil
}

// DecodeHex is the hex-decoding counterpart to EncodeHex.
func DecodeHex(s string) ([]lir.Node, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bytescript: %w", err)
	}
	return Decode(data)
}

func isPushOpcode(op byte) bool {
	return op > 0 && op < txscript.OP_1NEGATE
}

// nodeFor maps an opcode descriptor to its lir.Node constructor,
// special-casing the handful of opcodes that carry extra
// per-occurrence metadata once lir.Contextualize resolves it.
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
