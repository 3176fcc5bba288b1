package compiler

import (
	"strings"
	"testing"

	"github.com/BlackMegaLogan/LONG/internal/bytecode"
	"github.com/BlackMegaLogan/LONG/internal/diag"
	"github.com/BlackMegaLogan/LONG/internal/lexer"
	"github.com/BlackMegaLogan/LONG/internal/loader"
)

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	sink := diag.NewSink(false)
	lines, err := lexer.Scan(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	prog, err := loader.Load(lines, sink)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Compile(prog, sink)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestScenarioDisplayAndHalt(t *testing.T) {
	out := mustCompile(t, `DisplayText(DIRECT)="hi"
HALT
`)
	wantOps := []bytecode.Op{bytecode.PRINT_STR, bytecode.NL, bytecode.HALT, bytecode.PROGRAM_END}
	if len(out.Instrs) != len(wantOps) {
		t.Fatalf("got %d instrs, want %d: %+v", len(out.Instrs), len(wantOps), out.Instrs)
	}
	for i, op := range wantOps {
		if out.Instrs[i].Op != op {
			t.Errorf("instr %d = %v, want %v", i, out.Instrs[i].Op, op)
		}
	}
	if len(out.Pool) != 1 || out.Pool[0] != "hi" {
		t.Fatalf("pool = %v, want [hi]", out.Pool)
	}
}

func TestScenarioLoopForever(t *testing.T) {
	out := mustCompile(t, `Loop[FOREVER]
DisplayText(SHELL)="."
EndLoop
`)
	if len(out.Instrs) != 4 {
		t.Fatalf("got %d instrs, want 4: %+v", len(out.Instrs), out.Instrs)
	}
	if out.Instrs[0].Op != bytecode.PRINT_STR || out.Instrs[1].Op != bytecode.NL {
		t.Fatalf("instrs[0:2] = %+v", out.Instrs[:2])
	}
	if out.Instrs[2].Op != bytecode.GOTO {
		t.Fatalf("instr 2 = %v, want GOTO", out.Instrs[2].Op)
	}
	target := uint16(out.Instrs[2].Operands[0]) | uint16(out.Instrs[2].Operands[1])<<8
	if target != 0 {
		t.Fatalf("GOTO target = %d, want 0", target)
	}
}

func TestBytecodeDeterminism(t *testing.T) {
	src := "Set[X]=\"a\"\n" +
		"Set[Y]=Math(<`X`>+1)\n" +
		`If[X]="a"
DisplayText(SHELL)="yes"
Else
DisplayText(SHELL)="no"
EndIf
HALT
`
	a := mustCompile(t, src)
	b := mustCompile(t, src)
	if len(a.Instrs) != len(b.Instrs) {
		t.Fatalf("instr count differs: %d vs %d", len(a.Instrs), len(b.Instrs))
	}
	for i := range a.Instrs {
		if a.Instrs[i].Op != b.Instrs[i].Op || string(a.Instrs[i].Operands) != string(b.Instrs[i].Operands) {
			t.Fatalf("instr %d differs: %+v vs %+v", i, a.Instrs[i], b.Instrs[i])
		}
	}
	if strings.Join(a.Pool, ",") != strings.Join(b.Pool, ",") {
		t.Fatalf("pools differ: %v vs %v", a.Pool, b.Pool)
	}
	if strings.Join(a.VarSlots, ",") != strings.Join(b.VarSlots, ",") {
		t.Fatalf("var slots differ: %v vs %v", a.VarSlots, b.VarSlots)
	}
}

func TestLabelTargetsAreValidIndices(t *testing.T) {
	out := mustCompile(t, `Label[TOP]
Set[X]="1"
Goto[TOP]
`)
	for i, instr := range out.Instrs {
		if instr.Op != bytecode.GOTO {
			continue
		}
		target := uint16(instr.Operands[0]) | uint16(instr.Operands[1])<<8
		if int(target) >= len(out.Instrs) {
			t.Fatalf("instr %d: GOTO target %d out of range (len=%d)", i, target, len(out.Instrs))
		}
	}
}

func TestUnbalancedIfIsCompileError(t *testing.T) {
	sink := diag.NewSink(false)
	lines, err := lexer.Scan(strings.NewReader("If[X]=\"a\"\nHALT\n"))
	if err != nil {
		t.Fatal(err)
	}
	prog, err := loader.Load(lines, sink)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Compile(prog, sink); err == nil {
		t.Fatal("expected UnclosedIf compile error")
	}
}

func TestUnsupportedStatementIsCompileError(t *testing.T) {
	sink := diag.NewSink(false)
	lines, err := lexer.Scan(strings.NewReader("TrackInput[KEYBOARD]=INSTANT\n"))
	if err != nil {
		t.Fatal(err)
	}
	prog, err := loader.Load(lines, sink)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Compile(prog, sink); err == nil {
		t.Fatal("expected UnsupportedStatement compile error")
	}
}

func TestCallFunctionEmitsCallAndCapture(t *testing.T) {
	out := mustCompile(t, `StartFunction[Greet]
Return["hi"]
EndFunction
CallFunction[Greet]->RESULT
HALT
`)
	var sawCall, sawFuncLabel, sawCapture bool
	for i, instr := range out.Instrs {
		if instr.Op == bytecode.CALL {
			sawCall = true
			target := uint16(instr.Operands[0]) | uint16(instr.Operands[1])<<8
			if funcIx, ok := out.Labels["FUNC_Greet"]; ok && int(target) == funcIx {
				sawFuncLabel = true
			}
			if i+1 < len(out.Instrs) && out.Instrs[i+1].Op == bytecode.SET_VAR {
				sawCapture = true
			}
		}
	}
	if !sawCall {
		t.Fatal("expected a CALL instruction")
	}
	if !sawFuncLabel {
		t.Fatal("expected the CALL target to be the FUNC_Greet entry")
	}
	if !sawCapture {
		t.Fatal("expected a SET_VAR capturing __RETVAL right after the CALL")
	}
}

func TestDisplayTemplateUsesBacktickDelimiters(t *testing.T) {
	src := "Set[X]=\"Hi\"\n" +
		"DisplayText(SHELL)=\"<`X`>!\"\n" +
		"HALT\n"
	out := mustCompile(t, src)
	var sawVar, sawLiteral bool
	for _, instr := range out.Instrs {
		switch instr.Op {
		case bytecode.PRINT_VAR:
			sawVar = true
		case bytecode.PRINT_STR:
			pix := int(instr.Operands[0]) | int(instr.Operands[1])<<8
			if pix < len(out.Pool) && out.Pool[pix] == "!" {
				sawLiteral = true
			}
		}
	}
	if !sawVar {
		t.Fatal("expected a PRINT_VAR for the <`X`> template reference")
	}
	if !sawLiteral {
		t.Fatal("expected a PRINT_STR for the literal \"!\" tail")
	}
}

func TestSetTemplateLiteralWarnsOnce(t *testing.T) {
	var buf strings.Builder
	sink := diag.NewSink(false)
	sink.Out = &buf

	src := "Set[X]=\"a\"\n" +
		"Set[Y]=\"<`X`> again, <`X`> still\"\n" +
		"HALT\n"
	lines, err := lexer.Scan(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	prog, err := loader.Load(lines, sink)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Compile(prog, sink); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if got := strings.Count(out, "[WARN]"); got != 1 {
		t.Fatalf("expected exactly one [WARN] line for the repeated Set-template literal, got %d: %q", got, out)
	}
}
