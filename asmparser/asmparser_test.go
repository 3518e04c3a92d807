package asmparser

import (
	"testing"

	"github.com/dr8co/txsc/lir"
)

func TestParseOpcodesAndPush(t *testing.T) {
	out, err := Parse("OP_DUP 0x02 0xcafe OP_EQUALVERIFY")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 instructions, got %d: %v", len(out), out)
	}
	if out[0].Name() != "OP_DUP" {
		t.Errorf("out[0].Name() = %q, want OP_DUP", out[0].Name())
	}
	push, ok := out[1].(*lir.Push)
	if !ok {
		t.Fatalf("expected out[1] to be a Push, got %T", out[1])
	}
	if len(push.Data) != 2 || push.Data[0] != 0xca || push.Data[1] != 0xfe {
		t.Errorf("push.Data = %x, want cafe", push.Data)
	}
	if out[2].Name() != "OP_EQUALVERIFY" {
		t.Errorf("out[2].Name() = %q, want OP_EQUALVERIFY", out[2].Name())
	}
}

func TestParseAcceptsBareOpStrForm(t *testing.T) {
	// emit.ASM renders opcodes with their "OP_" prefix stripped; Parse
	// must accept that form back, not just the conventional OP_-prefixed
	// spelling hand-written ASM uses.
	out, err := Parse("DUP CHECKSIG")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 2 || out[0].Name() != "OP_DUP" || out[1].Name() != "OP_CHECKSIG" {
		t.Fatalf("expected [OP_DUP OP_CHECKSIG], got %v", out)
	}
}

func TestParseSmallInt(t *testing.T) {
	out, err := Parse("OP_3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(out))
	}
	si, ok := out[0].(*lir.SmallIntOpCode)
	if !ok {
		t.Fatalf("expected a SmallIntOpCode, got %T", out[0])
	}
	if si.Value != 3 {
		t.Errorf("si.Value = %d, want 3", si.Value)
	}
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	if _, err := Parse("OP_NOT_A_REAL_OP"); err == nil {
		t.Fatalf("expected an error for an unknown opcode")
	}
}

func TestParseRejectsDanglingHexLiteral(t *testing.T) {
	if _, err := Parse("0x02"); err == nil {
		t.Fatalf("expected an error for a dangling hex literal with no following data token")
	}
}

func TestParseRejectsMalformedHexData(t *testing.T) {
	if _, err := Parse("0x02 0xzz"); err == nil {
		t.Fatalf("expected an error for malformed hex data")
	}
}
