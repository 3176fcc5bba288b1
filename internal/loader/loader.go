// Package loader partitions a lexed Long source into the main statement
// stream and named function bodies, and indexes label positions against the
// filtered main stream.
//
// Grounded on original_source/longi.py's load_program (single forward pass,
// "inside function" flag, label-position bookkeeping), following the
// single-pass statement consumption shape of xyproto-flapc/parser.go.
package loader

import (
	"strings"

	"github.com/samber/lo"

	"github.com/BlackMegaLogan/LONG/internal/diag"
	"github.com/BlackMegaLogan/LONG/internal/lexer"
)

// Program is the loader's output: the filtered main stream, the label
// index against that stream, and the map of extracted function bodies.
type Program struct {
	Main      []string
	Labels    map[string]int
	Functions map[string][]string
}

// Load runs the single forward pass described in spec §4.2 over already
// comment-stripped, no-op-filtered lines, warning once per line that uses
// the deprecated "Label:NAME" form.
func Load(lines []lexer.Line, sink *diag.Sink) (*Program, error) {
	p := &Program{
		Labels:    make(map[string]int),
		Functions: make(map[string][]string),
	}

	insideFunction := false
	currentFunc := ""

	for _, ln := range lines {
		text := strings.TrimSpace(ln.Text)

		if IsLegacyLabel(text) {
			sink.Warnf("line %d: %q uses the deprecated Label:NAME form, prefer Label[NAME]", ln.Number, text)
		}

		if name, ok := startFunctionName(text); ok {
			if insideFunction {
				return nil, diag.New(diag.KindLoad, "NestedFunction",
					"line %d: StartFunction[%s] while already inside %s", ln.Number, name, currentFunc)
			}
			insideFunction = true
			currentFunc = name
			if _, exists := p.Functions[name]; !exists {
				p.Functions[name] = nil
			}
			continue
		}

		if text == "EndFunction" {
			if !insideFunction {
				return nil, diag.New(diag.KindLoad, "UnexpectedEndFunction",
					"line %d: EndFunction outside any StartFunction", ln.Number)
			}
			insideFunction = false
			currentFunc = ""
			continue
		}

		if insideFunction {
			p.Functions[currentFunc] = append(p.Functions[currentFunc], text)
			continue
		}

		if name, ok := labelName(text); ok {
			p.Labels[name] = len(p.Main)
		}
		p.Main = append(p.Main, text)
	}

	if insideFunction {
		return nil, diag.New(diag.KindLoad, "UnclosedFunction",
			"StartFunction[%s] was never closed with EndFunction", currentFunc)
	}

	return p, nil
}

func startFunctionName(text string) (string, bool) {
	const prefix = "StartFunction["
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	end := strings.IndexByte(text, ']')
	if end < 0 {
		return "", false
	}
	return text[len(prefix):end], true
}

// labelName recognizes both Label[NAME] and the legacy Label:NAME form. It
// only extracts the name; Load emits the legacy form's deprecation warning
// separately via IsLegacyLabel.
func labelName(text string) (string, bool) {
	if strings.HasPrefix(text, "Label[") {
		end := strings.IndexByte(text, ']')
		if end < 0 {
			return "", false
		}
		return text[len("Label["):end], true
	}
	if strings.HasPrefix(text, "Label:") {
		return strings.TrimSpace(text[len("Label:"):]), true
	}
	return "", false
}

// IsLegacyLabel reports whether text uses the deprecated "Label:NAME" form,
// for diagnostics callers that want to emit the [WARN].
func IsLegacyLabel(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "Label:")
}

// Rewrite serializes the filtered main stream back to text, one statement
// per line — used by the loader-idempotence test to confirm that loading,
// writing, and reloading yields the same stream, labels, and functions.
func (p *Program) Rewrite() []string {
	return lo.Map(p.Main, func(s string, _ int) string { return s })
}
