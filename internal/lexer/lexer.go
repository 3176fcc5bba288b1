// Package lexer splits a Long source file into logical lines, stripping
// quote-aware inline comments and dropping structural no-op tokens.
//
// Grounded on xyproto-flapc/lexer.go's character-by-character scanning loop
// (quote-state tracking while hunting for a token boundary), restructured
// around Long's per-line statement grammar rather than Flap's token stream.
package lexer

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Line is one logical source line after comment stripping, with its
// original 1-based line number preserved for diagnostics.
type Line struct {
	Number int
	Text   string
}

// structuralNoOps are bare tokens that produce no statement once comments
// and surrounding space are removed.
var structuralNoOps = map[string]bool{
	"[16BIT]":      true,
	"startprogram": true,
	"endprogram":   true,
	"startsection": true,
	"endsection":   true,
}

// Scan reads every line of r, strips trailing whitespace and quote-aware
// inline comments, drops blank lines, lines beginning with "//", and
// structural no-op tokens, and returns the remaining logical lines in
// order.
func Scan(r io.Reader) ([]Line, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var out []Line
	n := 0
	for scanner.Scan() {
		n++
		raw := scanner.Text()
		stripped, err := StripComment(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		stripped = strings.TrimRight(stripped, " \t\r")
		trimmed := strings.TrimSpace(stripped)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "//") {
			continue
		}
		if structuralNoOps[strings.ReplaceAll(trimmed, " ", "")] {
			continue
		}
		out = append(out, Line{Number: n, Text: stripped})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning source")
	}
	return out, nil
}

// StripComment removes a "//" or "#" comment that starts outside any
// quoted span. Quoted text (single or double) is scanned verbatim; an
// unterminated quote is a LexError-worthy condition reported to the caller.
func StripComment(line string) (string, error) {
	inSingle, inDouble := false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case !inSingle && !inDouble:
			if c == '#' {
				return line[:i], nil
			}
			if c == '/' && i+1 < len(line) && line[i+1] == '/' {
				return line[:i], nil
			}
		}
	}
	if inSingle || inDouble {
		return "", errors.Errorf("unterminated quote in line %q", line)
	}
	return line, nil
}

// StatementPrefixes enumerates every recognized statement prefix, in the
// order checked — longer/more specific prefixes before their shorter
// siblings where ambiguity is possible (e.g. DisplayTextRaw before
// DisplayText).
var StatementPrefixes = []string{
	"Set[",
	"DisplayTextRaw(",
	"DisplayText(",
	"WriteFile",
	"AppendFile",
	"TrackInput[KEYBOARD]",
	"Every[MS]",
	"If[",
	"Else",
	"EndIf",
	"Loop[FOREVER]",
	"EndLoop",
	"Goto[",
	"CallFunction[",
	"Return[",
	"SetColor[",
	"ResetColor",
	"DrawBox[",
	"ClearScreen",
	"FillLines[",
	"FillLine",
	"SetCursor[",
	"TickTimer[",
	"Time[",
	"StartFunction[",
	"EndFunction",
	"Label[",
	"Label:",
	"FS[",
	"Block[",
	"HALT",
}

// MatchPrefix returns the first recognized statement prefix that text
// begins with, or "" if none match.
func MatchPrefix(text string) string {
	trimmed := strings.TrimSpace(text)
	for _, p := range StatementPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return p
		}
	}
	return ""
}
