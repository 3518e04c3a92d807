package lir

import (
	"testing"

	"github.com/dr8co/txsc/opcode"
)

func TestPushIntUsesSmallIntOpCode(t *testing.T) {
	for _, v := range []int64{-1, 0, 1, 16} {
		node := PushInt(v)
		if _, ok := node.(*SmallIntOpCode); !ok {
			t.Errorf("PushInt(%d) = %T, want *SmallIntOpCode", v, node)
		}
	}
}

func TestPushIntFallsBackToPush(t *testing.T) {
	node := PushInt(17)
	if _, ok := node.(*Push); !ok {
		t.Fatalf("PushInt(17) = %T, want *Push", node)
	}
}

func TestIntValueRoundTrip(t *testing.T) {
	for _, v := range []int64{-1, 0, 1, 16, 17, -128, 255, -255, 1 << 20, -(1 << 20)} {
		node := PushInt(v)
		got, ok := IntValue(node)
		if !ok {
			t.Fatalf("IntValue(%v) for input %d: not ok", node, v)
		}
		if got != v {
			t.Errorf("round trip %d -> %T -> %d", v, node, got)
		}
	}
}

func TestDeltaValues(t *testing.T) {
	if (&If{base: base{name: "OP_IF"}}).Delta() != -1 {
		t.Errorf("If.Delta() should be -1")
	}
	if NewAssumption("x").Delta() != 0 {
		t.Errorf("Assumption.Delta() should be 0")
	}
	if NewDeletion("x").Delta() != -1 {
		t.Errorf("Deletion.Delta() should be -1")
	}
	if NewToAltStack().Delta() != -1 || NewFromAltStack().Delta() != 1 {
		t.Errorf("alt-stack move deltas should be -1/+1")
	}
}

func TestIfDupUnresolvedDeltaIsZeroButDistinguishable(t *testing.T) {
	desc, ok := opcode.ByName("OP_IFDUP")
	if !ok {
		t.Fatal("OP_IFDUP not found in the opcode table")
	}
	dup := NewIfDup(desc)
	if dup.Delta() != 0 {
		t.Errorf("unresolved IfDup.Delta() = %d, want 0", dup.Delta())
	}
	if _, ok := dup.ResolvedDelta(); ok {
		t.Errorf("expected ResolvedDelta to report unresolved")
	}
	dup.SetResolvedDelta(1)
	if d, ok := dup.ResolvedDelta(); !ok || d != 1 {
		t.Errorf("expected resolved delta 1, got %d, %v", d, ok)
	}
}

func TestSetIdx(t *testing.T) {
	p := NewPush([]byte{1})
	p.SetIdx(5)
	if p.Idx() != 5 {
		t.Errorf("Idx() = %d, want 5", p.Idx())
	}
}
