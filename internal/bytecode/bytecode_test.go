package bytecode

import "testing"

func TestOpStringRoundTrip(t *testing.T) {
	for op, name := range opNames {
		if op.String() != name {
			t.Fatalf("%v.String() = %q, want %q", op, op.String(), name)
		}
		got, ok := Lookup(name)
		if !ok || got != op {
			t.Fatalf("Lookup(%q) = %v,%v want %v,true", name, got, ok, op)
		}
	}
}

func TestCmpOpCode(t *testing.T) {
	cases := map[string]byte{"<": 0, "<=": 1, ">": 2, ">=": 3}
	for op, want := range cases {
		got, ok := CmpOpCode(op)
		if !ok || got != want {
			t.Errorf("CmpOpCode(%q) = %v,%v want %v,true", op, got, ok, want)
		}
	}
	if _, ok := CmpOpCode("!="); ok {
		t.Error("CmpOpCode(\"!=\") should fail: != is not a supported ordering operator")
	}
}

func TestInstrSize(t *testing.T) {
	i := Instr{Op: IF_NUM_VI, Operands: append(U8(0), append(U8(1), U16(5)...)...)}
	if i.Size() != 1+1+1+2 {
		t.Fatalf("Size() = %d", i.Size())
	}
}
