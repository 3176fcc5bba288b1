package interp

import (
	"strings"

	"github.com/BlackMegaLogan/LONG/internal/diag"
)

// handleCall implements "CallFunction[NAME]" and "CallFunction[NAME]->V":
// it executes the named function body in its own Frame so internal If-
// skips and Loop bodies do not perturb the caller's pc, then optionally
// captures __RETVAL into V.
func (it *Interp) handleCall(line string) error {
	rest := strings.TrimPrefix(line, "CallFunction[")
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return diag.New(diag.KindParse, "BadCall", "malformed CallFunction statement %q", line)
	}
	name := rest[:end]
	tail := strings.TrimSpace(rest[end+1:])
	capture := ""
	if strings.HasPrefix(tail, "->") {
		capture = strings.TrimSpace(tail[2:])
	}

	body, ok := it.prog.Functions[name]
	if !ok {
		return diag.New(diag.KindRuntime, "MissingFunction", "CallFunction[%s]: no such function", name)
	}

	callee := &Frame{lines: body, labels: it.prog.Labels}
	if err := it.runFrame(callee); err != nil {
		return err
	}

	if capture != "" {
		it.Env.Set(capture, it.Env.Get(varRetval))
	}
	return nil
}
