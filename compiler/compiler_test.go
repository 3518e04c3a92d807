package compiler

import (
	"strings"
	"testing"

	"github.com/dr8co/txsc/config"
)

func TestCompileASMRoundTrip(t *testing.T) {
	src := "DUP HASH160 0x02 0xabcd EQUALVERIFY CHECKSIG"
	result, err := Compile(src, ASM, config.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if result.SIR != nil {
		t.Fatalf("ASM source should never produce a SIR tree")
	}
	if len(result.LIR) == 0 {
		t.Fatalf("expected a non-empty LIR program")
	}

	out, err := Emit(result, ASM)
	if err != nil {
		t.Fatalf("Emit(ASM): %v", err)
	}
	for _, want := range []string{"DUP", "HASH160", "EQUALVERIFY", "CHECKSIG"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected ASM output to contain %q, got %q", want, out)
		}
	}
}

func TestCompileByteScriptRoundTrip(t *testing.T) {
	src := "DUP HASH160 0x02 0xabcd EQUALVERIFY CHECKSIG"
	asmResult, err := Compile(src, ASM, config.Default())
	if err != nil {
		t.Fatalf("Compile(ASM): %v", err)
	}
	hexOut, err := Emit(asmResult, ByteScript)
	if err != nil {
		t.Fatalf("Emit(ByteScript): %v", err)
	}
	if hexOut == "" {
		t.Fatalf("expected non-empty hex output")
	}

	byteResult, err := Compile(hexOut, ByteScript, config.Default())
	if err != nil {
		t.Fatalf("Compile(ByteScript): %v", err)
	}
	if len(byteResult.LIR) != len(asmResult.LIR) {
		t.Fatalf("round trip changed instruction count: %d vs %d", len(byteResult.LIR), len(asmResult.LIR))
	}
}

func TestCompileTxScriptToASM(t *testing.T) {
	src := "assume sig; verify sig;"
	result, err := Compile(src, TxScript, config.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if result.SIR == nil {
		t.Fatalf("expected a SIR tree for TxScript source")
	}
	if len(result.LIR) == 0 {
		t.Fatalf("expected a non-empty LIR program")
	}

	asmOut, err := Emit(result, ASM)
	if err != nil {
		t.Fatalf("Emit(ASM): %v", err)
	}
	if !strings.Contains(asmOut, "VERIFY") {
		t.Errorf("expected ASM output to contain VERIFY, got %q", asmOut)
	}

	txOut, err := Emit(result, TxScript)
	if err != nil {
		t.Fatalf("Emit(TxScript): %v", err)
	}
	if txOut == "" {
		t.Fatalf("expected non-empty TxScript re-rendering")
	}
}

func TestEmitTxScriptRequiresSIR(t *testing.T) {
	src := "DUP"
	result, err := Compile(src, ASM, config.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := Emit(result, TxScript); err == nil {
		t.Fatalf("expected an error emitting TxScript from a source with no SIR tree")
	}
}

func TestCompileUnknownDialect(t *testing.T) {
	if _, err := Compile("x", Dialect("nonsense"), config.Default()); err == nil {
		t.Fatalf("expected an error for an unknown source dialect")
	}
}
