// Package opcode defines the descriptor table for every opcode the
// compiler knows about. The table is built once, from a literal slice,
// and frozen into lookup maps at init time; nothing in this package is
// ever mutated after init.
package opcode

import "fmt"

// Descriptor describes a single opcode's stack effect and properties.
type Descriptor struct {
	// Name is the canonical opcode name, e.g. "OP_ADD".
	Name string

	// Byte is the opcode's numeric value in a serialized script.
	Byte byte

	// Delta is the net change in stack length this opcode causes,
	// i.e. (items pushed) - (items popped). An opcode whose delta
	// depends on runtime state (IFDUP, CHECKMULTISIG) reports the
	// delta that applies to its simplest/default form here; the LIR
	// contextualizer overrides it per occurrence.
	Delta int

	// Args is the number of stack items this opcode consumes, when
	// that count is fixed. -1 means variable (determined at
	// contextualize time, e.g. CHECKMULTISIG).
	Args int

	// Arithmetic marks an opcode that operates on 4-byte (strict)
	// numbers.
	Arithmetic bool

	// ByteManipulator marks an opcode that operates on byte strings
	// rather than numbers (CAT, SUBSTR, LEFT, RIGHT, SIZE, ...).
	ByteManipulator bool

	// Verifier marks an opcode that consumes a value and fails the
	// script if it is not truthy (the *VERIFY family).
	Verifier bool

	// OpStr is the display form used by emitters that omit the
	// "OP_" prefix (ASM output).
	OpStr string
}

// SmallInt describes a literal-value pseudo-opcode (OP_0..OP_16 and
// OP_1NEGATE).
type SmallInt struct {
	Descriptor
	Value int
}

// descriptors is the authoritative opcode catalog. Deltas are ported
// verbatim from the original project's linear-node catalog.
var descriptors = []Descriptor{
	{Name: "OP_IF", Byte: 0x63, Delta: -1, Args: 1, OpStr: "IF"},
	{Name: "OP_NOTIF", Byte: 0x64, Delta: -1, Args: 1, OpStr: "NOTIF"},
	{Name: "OP_ELSE", Byte: 0x67, Delta: 0, Args: 0, OpStr: "ELSE"},
	{Name: "OP_ENDIF", Byte: 0x68, Delta: 0, Args: 0, OpStr: "ENDIF"},

	{Name: "OP_VERIFY", Byte: 0x69, Delta: -1, Args: 1, Verifier: true, OpStr: "VERIFY"},
	{Name: "OP_IFDUP", Byte: 0x73, Delta: 0, Args: 1, OpStr: "IFDUP"}, // dynamic, see lir.Contextualize
	{Name: "OP_DEPTH", Byte: 0x74, Delta: 1, Args: 0, OpStr: "DEPTH"},
	{Name: "OP_DROP", Byte: 0x75, Delta: -1, Args: 1, OpStr: "DROP"},
	{Name: "OP_DUP", Byte: 0x76, Delta: 1, Args: 1, OpStr: "DUP"},
	{Name: "OP_NIP", Byte: 0x77, Delta: -1, Args: 2, OpStr: "NIP"},
	{Name: "OP_OVER", Byte: 0x78, Delta: 1, Args: 2, OpStr: "OVER"},
	{Name: "OP_PICK", Byte: 0x79, Delta: 1, Args: 1, OpStr: "PICK"},
	{Name: "OP_ROLL", Byte: 0x7a, Delta: 0, Args: 1, OpStr: "ROLL"},
	{Name: "OP_ROT", Byte: 0x7b, Delta: 0, Args: 3, OpStr: "ROT"},
	{Name: "OP_SWAP", Byte: 0x7c, Delta: 0, Args: 2, OpStr: "SWAP"},
	{Name: "OP_TUCK", Byte: 0x7d, Delta: 1, Args: 2, OpStr: "TUCK"},
	{Name: "OP_2DROP", Byte: 0x6d, Delta: -2, Args: 2, OpStr: "2DROP"},
	{Name: "OP_2DUP", Byte: 0x6e, Delta: 2, Args: 2, OpStr: "2DUP"},
	{Name: "OP_3DUP", Byte: 0x6f, Delta: 3, Args: 3, OpStr: "3DUP"},
	{Name: "OP_2OVER", Byte: 0x70, Delta: 2, Args: 4, OpStr: "2OVER"},
	{Name: "OP_2ROT", Byte: 0x71, Delta: 0, Args: 6, OpStr: "2ROT"},
	{Name: "OP_2SWAP", Byte: 0x72, Delta: 0, Args: 4, OpStr: "2SWAP"},

	{Name: "OP_CAT", Byte: 0x7e, Delta: -1, Args: 2, ByteManipulator: true, OpStr: "CAT"},
	{Name: "OP_SUBSTR", Byte: 0x7f, Delta: -2, Args: 3, ByteManipulator: true, OpStr: "SUBSTR"},
	{Name: "OP_LEFT", Byte: 0x80, Delta: -1, Args: 2, ByteManipulator: true, OpStr: "LEFT"},
	{Name: "OP_RIGHT", Byte: 0x81, Delta: -1, Args: 2, ByteManipulator: true, OpStr: "RIGHT"},
	{Name: "OP_SIZE", Byte: 0x82, Delta: 1, Args: 1, ByteManipulator: true, OpStr: "SIZE"},

	{Name: "OP_INVERT", Byte: 0x83, Delta: 0, Args: 1, OpStr: "INVERT"},
	{Name: "OP_AND", Byte: 0x84, Delta: -1, Args: 2, OpStr: "AND"},
	{Name: "OP_OR", Byte: 0x85, Delta: -1, Args: 2, OpStr: "OR"},
	{Name: "OP_XOR", Byte: 0x86, Delta: -1, Args: 2, OpStr: "XOR"},
	{Name: "OP_EQUAL", Byte: 0x87, Delta: -1, Args: 2, OpStr: "EQUAL"},
	{Name: "OP_EQUALVERIFY", Byte: 0x88, Delta: -2, Args: 2, Verifier: true, OpStr: "EQUALVERIFY"},

	{Name: "OP_1ADD", Byte: 0x8b, Delta: 0, Args: 1, Arithmetic: true, OpStr: "1ADD"},
	{Name: "OP_1SUB", Byte: 0x8c, Delta: 0, Args: 1, Arithmetic: true, OpStr: "1SUB"},
	{Name: "OP_2MUL", Byte: 0x8d, Delta: 0, Args: 1, Arithmetic: true, OpStr: "2MUL"},
	{Name: "OP_2DIV", Byte: 0x8e, Delta: 0, Args: 1, Arithmetic: true, OpStr: "2DIV"},
	{Name: "OP_NEGATE", Byte: 0x8f, Delta: 0, Args: 1, Arithmetic: true, OpStr: "NEGATE"},
	{Name: "OP_ABS", Byte: 0x90, Delta: 0, Args: 1, Arithmetic: true, OpStr: "ABS"},
	{Name: "OP_NOT", Byte: 0x91, Delta: 0, Args: 1, Arithmetic: true, OpStr: "NOT"},
	{Name: "OP_0NOTEQUAL", Byte: 0x92, Delta: 0, Args: 1, Arithmetic: true, OpStr: "0NOTEQUAL"},

	{Name: "OP_ADD", Byte: 0x93, Delta: -1, Args: 2, Arithmetic: true, OpStr: "ADD"},
	{Name: "OP_SUB", Byte: 0x94, Delta: -1, Args: 2, Arithmetic: true, OpStr: "SUB"},
	{Name: "OP_MUL", Byte: 0x95, Delta: -1, Args: 2, Arithmetic: true, OpStr: "MUL"},
	{Name: "OP_DIV", Byte: 0x96, Delta: -1, Args: 2, Arithmetic: true, OpStr: "DIV"},
	{Name: "OP_MOD", Byte: 0x97, Delta: -1, Args: 2, Arithmetic: true, OpStr: "MOD"},
	{Name: "OP_LSHIFT", Byte: 0x98, Delta: -1, Args: 2, Arithmetic: true, OpStr: "LSHIFT"},
	{Name: "OP_RSHIFT", Byte: 0x99, Delta: -1, Args: 2, Arithmetic: true, OpStr: "RSHIFT"},

	{Name: "OP_BOOLAND", Byte: 0x9a, Delta: -1, Args: 2, Arithmetic: true, OpStr: "BOOLAND"},
	{Name: "OP_BOOLOR", Byte: 0x9b, Delta: -1, Args: 2, Arithmetic: true, OpStr: "BOOLOR"},
	{Name: "OP_NUMEQUAL", Byte: 0x9c, Delta: -1, Args: 2, Arithmetic: true, OpStr: "NUMEQUAL"},
	{Name: "OP_NUMEQUALVERIFY", Byte: 0x9d, Delta: -2, Args: 2, Arithmetic: true, Verifier: true, OpStr: "NUMEQUALVERIFY"},
	{Name: "OP_NUMNOTEQUAL", Byte: 0x9e, Delta: -1, Args: 2, Arithmetic: true, OpStr: "NUMNOTEQUAL"},
	{Name: "OP_LESSTHAN", Byte: 0x9f, Delta: -1, Args: 2, Arithmetic: true, OpStr: "LESSTHAN"},
	{Name: "OP_GREATERTHAN", Byte: 0xa0, Delta: -1, Args: 2, Arithmetic: true, OpStr: "GREATERTHAN"},
	{Name: "OP_LESSTHANOREQUAL", Byte: 0xa1, Delta: -1, Args: 2, Arithmetic: true, OpStr: "LESSTHANOREQUAL"},
	{Name: "OP_GREATERTHANOREQUAL", Byte: 0xa2, Delta: -1, Args: 2, Arithmetic: true, OpStr: "GREATERTHANOREQUAL"},
	{Name: "OP_MIN", Byte: 0xa3, Delta: -1, Args: 2, Arithmetic: true, OpStr: "MIN"},
	{Name: "OP_MAX", Byte: 0xa4, Delta: -1, Args: 2, Arithmetic: true, OpStr: "MAX"},
	{Name: "OP_WITHIN", Byte: 0xa5, Delta: -2, Args: 3, Arithmetic: true, OpStr: "WITHIN"},

	{Name: "OP_RIPEMD160", Byte: 0xa6, Delta: 0, Args: 1, OpStr: "RIPEMD160"},
	{Name: "OP_SHA1", Byte: 0xa7, Delta: 0, Args: 1, OpStr: "SHA1"},
	{Name: "OP_SHA256", Byte: 0xa8, Delta: 0, Args: 1, OpStr: "SHA256"},
	{Name: "OP_HASH160", Byte: 0xa9, Delta: 0, Args: 1, OpStr: "HASH160"},
	{Name: "OP_HASH256", Byte: 0xaa, Delta: 0, Args: 1, OpStr: "HASH256"},
	{Name: "OP_CODESEPARATOR", Byte: 0xab, Delta: 0, Args: 0, OpStr: "CODESEPARATOR"},

	{Name: "OP_CHECKSIG", Byte: 0xac, Delta: -1, Args: 2, OpStr: "CHECKSIG"},
	{Name: "OP_CHECKSIGVERIFY", Byte: 0xad, Delta: -2, Args: 2, Verifier: true, OpStr: "CHECKSIGVERIFY"},
	{Name: "OP_CHECKMULTISIG", Byte: 0xae, Delta: 0, Args: -1, OpStr: "CHECKMULTISIG"},
	{Name: "OP_CHECKMULTISIGVERIFY", Byte: 0xaf, Delta: 0, Args: -1, Verifier: true, OpStr: "CHECKMULTISIGVERIFY"},

	{Name: "OP_TOALTSTACK", Byte: 0x6b, Delta: -1, Args: 1, OpStr: "TOALTSTACK"},
	{Name: "OP_FROMALTSTACK", Byte: 0x6c, Delta: 1, Args: 0, OpStr: "FROMALTSTACK"},

	{Name: "OP_RETURN", Byte: 0x6a, Delta: 0, Args: 0, OpStr: "RETURN"},
}

// smallInts is the catalog of literal-value pseudo-opcodes.
var smallInts = []SmallInt{
	{Descriptor: Descriptor{Name: "OP_FALSE", Byte: 0x00, Delta: 1, OpStr: "FALSE"}, Value: 0},
	{Descriptor: Descriptor{Name: "OP_1NEGATE", Byte: 0x4f, Delta: 1, OpStr: "1NEGATE"}, Value: -1},
	{Descriptor: Descriptor{Name: "OP_TRUE", Byte: 0x51, Delta: 1, OpStr: "TRUE"}, Value: 1},
}

func init() {
	for i := 2; i <= 16; i++ {
		smallInts = append(smallInts, SmallInt{
			Descriptor: Descriptor{
				Name:  fmt.Sprintf("OP_%d", i),
				Byte:  byte(0x50 + i),
				Delta: 1,
				OpStr: fmt.Sprintf("%d", i),
			},
			Value: i,
		})
	}

	byName = make(map[string]Descriptor, len(descriptors))
	byByte = make(map[byte]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
		byByte[d.Byte] = d
	}

	smallIntByValue = make(map[int]SmallInt, len(smallInts))
	smallIntByName = make(map[string]SmallInt, len(smallInts))
	smallIntByByte = make(map[byte]SmallInt, len(smallInts))
	for _, s := range smallInts {
		smallIntByValue[s.Value] = s
		smallIntByName[s.Name] = s
		smallIntByByte[s.Byte] = s
	}

	// Derive op+VERIFY merge pairs from the table itself, rather than
	// hard-coding them: every *VERIFY opcode whose base name (with the
	// "VERIFY" suffix stripped) also exists becomes a merge candidate.
	verifyMerge = make(map[string]string)
	for _, d := range descriptors {
		if !d.Verifier || d.Name == "OP_VERIFY" {
			continue
		}
		base := d.Name[:len(d.Name)-len("VERIFY")]
		if _, ok := byName[base]; ok {
			verifyMerge[base] = d.Name
		}
	}
}

var (
	byName          map[string]Descriptor
	byByte          map[byte]Descriptor
	smallIntByValue map[int]SmallInt
	smallIntByName  map[string]SmallInt
	smallIntByByte  map[byte]SmallInt
	verifyMerge     map[string]string
)

// ByName looks up a plain opcode descriptor by its canonical name.
func ByName(name string) (Descriptor, bool) {
	d, ok := byName[name]
	return d, ok
}

// ByByte looks up a plain opcode descriptor by its serialized value.
func ByByte(b byte) (Descriptor, bool) {
	d, ok := byByte[b]
	return d, ok
}

// SmallIntByValue looks up the small-int pseudo-opcode for a literal
// value, if one exists (-1 and 0..16).
func SmallIntByValue(v int) (SmallInt, bool) {
	s, ok := smallIntByValue[v]
	return s, ok
}

// SmallIntByName looks up a small-int pseudo-opcode by name.
func SmallIntByName(name string) (SmallInt, bool) {
	s, ok := smallIntByName[name]
	return s, ok
}

// SmallIntByByte looks up a small-int pseudo-opcode by serialized value.
func SmallIntByByte(b byte) (SmallInt, bool) {
	s, ok := smallIntByByte[b]
	return s, ok
}

// VerifyMergeTarget returns the *VERIFY opcode name that "base VERIFY"
// should merge into, if base has a verifying counterpart.
func VerifyMergeTarget(base string) (string, bool) {
	name, ok := verifyMerge[base]
	return name, ok
}

// All returns every plain opcode descriptor, in table order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// AllSmallInts returns every small-int pseudo-opcode, in table order.
func AllSmallInts() []SmallInt {
	out := make([]SmallInt, len(smallInts))
	copy(out, smallInts)
	return out
}
