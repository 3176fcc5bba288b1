package loader

import (
	"strings"
	"testing"

	"github.com/BlackMegaLogan/LONG/internal/diag"
	"github.com/BlackMegaLogan/LONG/internal/lexer"
)

func mustScan(t *testing.T, src string) []lexer.Line {
	t.Helper()
	lines, err := lexer.Scan(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return lines
}

func TestLoadSeparatesFunctionsAndIndexesLabels(t *testing.T) {
	src := `Label[TOP]
DisplayText(SHELL)="a"
StartFunction[Greet]
DisplayText(SHELL)="hi"
EndFunction
Goto[TOP]
`
	lines := mustScan(t, src)
	p, err := Load(lines, diag.NewSink(false))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Main) != 3 {
		t.Fatalf("main stream = %v", p.Main)
	}
	if p.Labels["TOP"] != 0 {
		t.Fatalf("label TOP = %d, want 0", p.Labels["TOP"])
	}
	if len(p.Functions["Greet"]) != 1 {
		t.Fatalf("function Greet = %v", p.Functions["Greet"])
	}
}

func TestLoadRejectsNestedFunction(t *testing.T) {
	lines := mustScan(t, "StartFunction[A]\nStartFunction[B]\nEndFunction\nEndFunction\n")
	if _, err := Load(lines, diag.NewSink(false)); err == nil {
		t.Fatal("expected NestedFunction error")
	}
}

func TestLoadRejectsUnclosedFunction(t *testing.T) {
	lines := mustScan(t, "StartFunction[A]\nDisplayText(SHELL)=\"x\"\n")
	if _, err := Load(lines, diag.NewSink(false)); err == nil {
		t.Fatal("expected UnclosedFunction error")
	}
}

func TestLoadIdempotence(t *testing.T) {
	src := "Label[L]\nDisplayText(SHELL)=\"a\"\nGoto[L]\n"
	lines := mustScan(t, src)
	p1, err := Load(lines, diag.NewSink(false))
	if err != nil {
		t.Fatal(err)
	}
	rewritten := strings.Join(p1.Rewrite(), "\n") + "\n"
	lines2 := mustScan(t, rewritten)
	p2, err := Load(lines2, diag.NewSink(false))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(p1.Main, "\n") != strings.Join(p2.Main, "\n") {
		t.Fatalf("main streams differ: %v vs %v", p1.Main, p2.Main)
	}
	if len(p1.Labels) != len(p2.Labels) || p1.Labels["L"] != p2.Labels["L"] {
		t.Fatalf("labels differ: %v vs %v", p1.Labels, p2.Labels)
	}
}

func TestLegacyLabelRecognized(t *testing.T) {
	lines := mustScan(t, "Label:OLD\nDisplayText(SHELL)=\"x\"\n")
	p, err := Load(lines, diag.NewSink(false))
	if err != nil {
		t.Fatal(err)
	}
	if p.Labels["OLD"] != 0 {
		t.Fatalf("legacy label not indexed: %v", p.Labels)
	}
	if !IsLegacyLabel(lines[0].Text) {
		t.Fatal("IsLegacyLabel should report true for Label:OLD")
	}
}

func TestLoadWarnsOnceForLegacyLabel(t *testing.T) {
	var buf strings.Builder
	sink := diag.NewSink(false)
	sink.Out = &buf

	lines := mustScan(t, "Label:OLD\nDisplayText(SHELL)=\"x\"\nGoto[OLD]\n")
	if _, err := Load(lines, sink); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if got := strings.Count(out, "[WARN]"); got != 1 {
		t.Fatalf("expected exactly one [WARN] line for the legacy Label:OLD line, got %d: %q", got, out)
	}
	if !strings.Contains(out, "Label:OLD") {
		t.Fatalf("expected warning to name the offending line, got %q", out)
	}
}
