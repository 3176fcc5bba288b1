package lexer

import (
	"strings"
	"testing"
)

func TestStripComment(t *testing.T) {
	cases := []struct{ in, want string }{
		{`DisplayText(SHELL)="hi" // trailing`, `DisplayText(SHELL)="hi" `},
		{`Set[X]="a // b"`, `Set[X]="a // b"`},
		{`# full line comment`, ``},
		{`Set[Y]="#not a comment"`, `Set[Y]="#not a comment"`},
	}
	for _, c := range cases {
		got, err := StripComment(c.in)
		if err != nil {
			t.Fatalf("StripComment(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("StripComment(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStripCommentUnterminatedQuote(t *testing.T) {
	if _, err := StripComment(`Set[X]="unterminated`); err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}

func TestScanDropsNoOpsAndComments(t *testing.T) {
	src := "startprogram\n// a comment\nSet[X]=\"1\"\n[16BIT]\n\nDisplayText(SHELL)=\"<X>\"\nendprogram\n"
	lines, err := Scan(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %+v", len(lines), lines)
	}
	if lines[0].Text != `Set[X]="1"` {
		t.Errorf("line 0 = %q", lines[0].Text)
	}
}

func TestMatchPrefix(t *testing.T) {
	if got := MatchPrefix(`DisplayTextRaw(SHELL)="x"`); got != "DisplayTextRaw(" {
		t.Errorf("got %q", got)
	}
	if got := MatchPrefix(`DisplayText(SHELL)="x"`); got != "DisplayText(" {
		t.Errorf("got %q", got)
	}
	if got := MatchPrefix("nonsense"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
