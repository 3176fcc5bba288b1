package interp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/BlackMegaLogan/LONG/internal/diag"
)

// handleSet dispatches every "Set[V]=..." shape: literals, variables,
// Math(...), DisplayText(...) (emit-and-store), ReadFile[...], Block[Read].
func (it *Interp) handleSet(line string) error {
	rest := strings.TrimPrefix(line, "Set[")
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return diag.New(diag.KindParse, "BadSet", "malformed Set statement %q", line)
	}
	dst := rest[:end]
	tail := rest[end+1:]
	if !strings.HasPrefix(tail, "=") {
		return diag.New(diag.KindParse, "BadSet", "Set[%s] missing '='", dst)
	}
	rhs := strings.TrimSpace(tail[1:])

	switch {
	case strings.HasPrefix(rhs, "Math("):
		expr := rhs[len("Math(") : len(rhs)-1]
		v, err := it.Env.EvalMath(expr)
		if err != nil {
			return diag.Wrap(diag.KindParse, "BadMath", err)
		}
		it.Env.Set(dst, formatNumber(v))
		return nil

	case strings.HasPrefix(rhs, "DisplayText(") || strings.HasPrefix(rhs, "DisplayTextRaw("):
		raw := strings.HasPrefix(rhs, "DisplayTextRaw(")
		prefix := "DisplayText("
		if raw {
			prefix = "DisplayTextRaw("
		}
		tag, text, err := parseDisplay(rhs, prefix)
		if err != nil {
			return err
		}
		it.Env.Set(dst, text)
		return it.emitDisplay(tag, text, !raw)

	case strings.HasPrefix(rhs, "ReadFile["):
		path := it.Env.ParsePath(bracketArg(rhs, "ReadFile["))
		data, err := os.ReadFile(path)
		if err != nil {
			return diag.Wrap(diag.KindIO, "ReadFile", err)
		}
		it.Env.Set(dst, string(data))
		return nil

	case strings.HasPrefix(rhs, "Block[Read]["):
		_, rawID, _, serr := splitBracketed(rhs, "Block[")
		if serr != nil {
			return serr
		}
		id := it.Env.ParseValue(rawID)
		content, err := it.Store.ReadBlock(id)
		if err != nil {
			return err
		}
		it.Env.Set(dst, content)
		it.Env.Set(varLastBlock, id)
		return nil

	default:
		it.Env.Set(dst, it.Env.ParseValue(rhs))
		return nil
	}
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseDisplay splits "DisplayText(TAG)=\"text\"" into its tag and raw
// quoted text (still quoted; the caller substitutes).
func parseDisplay(stmt, prefix string) (tag, text string, err error) {
	rest := strings.TrimPrefix(stmt, prefix)
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return "", "", diag.New(diag.KindParse, "BadDisplay", "malformed display statement %q", stmt)
	}
	tag = rest[:end]
	tail := strings.TrimSpace(rest[end+1:])
	if !strings.HasPrefix(tail, "=") {
		return "", "", diag.New(diag.KindParse, "BadDisplay", "display statement %q missing '='", stmt)
	}
	quoted := strings.TrimSpace(tail[1:])
	unquoted, ok := unquoteStrict(quoted)
	if !ok {
		return "", "", diag.New(diag.KindParse, "UnquotedDisplay", "display RHS %q must be quoted", quoted)
	}
	return tag, unquoted, nil
}

func unquoteStrict(token string) (string, bool) {
	if len(token) >= 2 {
		first, last := token[0], token[len(token)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return token[1 : len(token)-1], true
		}
	}
	return "", false
}

// handleDisplay handles the bare statement form (no Set[] capture).
func (it *Interp) handleDisplay(line, prefix string, newline bool) error {
	tag, text, err := parseDisplay(line, prefix)
	if err != nil {
		return err
	}
	return it.emitDisplay(tag, text, newline)
}

// emitDisplay substitutes variables into text and routes it to SHELL
// (stdout, ANSI color-wrapped) or DIRECT (the hardware log).
func (it *Interp) emitDisplay(tag, text string, newline bool) error {
	resolved := it.Env.Substitute(text)
	switch tag {
	case "SHELL":
		fmt.Fprint(it.Out, ansiPrefix(it.fg, it.bg))
		fmt.Fprint(it.Out, resolved)
		fmt.Fprint(it.Out, ansiReset)
		if newline {
			fmt.Fprintln(it.Out)
		}
		return nil
	case "DIRECT":
		line := resolved
		if newline {
			line += "\n"
		}
		if _, err := fmt.Fprint(it.HWLog, line); err != nil {
			return diag.Wrap(diag.KindIO, "HWLogWrite", err)
		}
		return nil
	default:
		it.Sink.Warnf("unknown display tag %q", tag)
		return nil
	}
}

// handleHostFile implements WriteFile[path]=content / AppendFile[path]=content
// against the host filesystem.
func (it *Interp) handleHostFile(line string, append bool) error {
	prefix := "WriteFile["
	if append {
		prefix = "AppendFile["
	}
	rest := strings.TrimPrefix(line, prefix)
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return diag.New(diag.KindParse, "BadFileOp", "malformed file statement %q", line)
	}
	path := it.Env.ParsePath(rest[:end])
	tail := strings.TrimSpace(rest[end+1:])
	if !strings.HasPrefix(tail, "=") {
		return diag.New(diag.KindParse, "BadFileOp", "file statement %q missing '='", line)
	}
	content := it.Env.ParseValue(strings.TrimSpace(tail[1:]))

	flags := os.O_CREATE | os.O_WRONLY
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return diag.Wrap(diag.KindIO, "HostFileOpen", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return diag.Wrap(diag.KindIO, "HostFileWrite", errors.WithStack(err))
	}
	return nil
}
