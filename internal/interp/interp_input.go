package interp

import (
	"strconv"
	"strings"
	"time"

	"github.com/BlackMegaLogan/LONG/internal/diag"
)

// handleInput implements TrackInput[KEYBOARD], TrackInput[KEYBOARD]=INSTANT,
// and TrackInput[KEYBOARD]=NOBLOCK.
func (it *Interp) handleInput(line string) error {
	tail := strings.TrimPrefix(line, "TrackInput[KEYBOARD]")
	mode := strings.TrimSpace(strings.TrimPrefix(tail, "="))

	switch mode {
	case "", "BLOCK":
		raw, err := it.Stdin.ReadString('\n')
		if err != nil && raw == "" {
			raw = ""
		}
		it.setInputVars(raw)
		return nil

	case "INSTANT":
		b, err := it.Stdin.ReadByte()
		if err != nil {
			it.setInputVars("")
			return nil
		}
		it.setInputVars(string(b))
		return nil

	case "NOBLOCK":
		if it.Stdin.Buffered() > 0 {
			b, err := it.Stdin.ReadByte()
			if err == nil {
				it.setInputVars(string(b))
				return nil
			}
		}
		it.Env.Set(varRawInput, "")
		it.Env.Set(varInput, "")
		return nil

	default:
		return diag.New(diag.KindParse, "BadInputMode", "unknown TrackInput mode %q", mode)
	}
}

// setInputVars normalizes raw input (lowercased, whitespace-collapsed) and
// populates RAWINPUT, INPUT, and WORDn/WORDCOUNT.
func (it *Interp) setInputVars(raw string) {
	raw = strings.TrimRight(raw, "\r\n")
	it.Env.Set(varRawInput, raw)
	normalized := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	it.Env.Set(varInput, normalized)
	if normalized != "" {
		it.lastInput = normalized
	}
	words := strings.Fields(normalized)
	it.Env.Set(varWordCount, strconv.Itoa(len(words)))
	for i, name := range []string{varWord1, varWord2, varWord3} {
		if i < len(words) {
			it.Env.Set(name, words[i])
		} else {
			it.Env.Set(name, "")
		}
	}
}

// handleEvery implements "Every[MS]=n": sleep n ms, and if the incoming
// INPUT was empty, reinject the last non-empty normalized input.
func (it *Interp) handleEvery(line string) error {
	tail := strings.TrimPrefix(line, "Every[MS]")
	tail = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tail), "="))
	ms := it.Env.ParseValue(tail)
	n, err := strconv.Atoi(strings.TrimSpace(ms))
	if err != nil {
		return diag.Wrap(diag.KindParse, "BadEvery", err)
	}
	time.Sleep(time.Duration(n) * time.Millisecond)
	if it.Env.Get(varInput) == "" && it.lastInput != "" {
		it.setInputVars(it.lastInput)
	}
	return nil
}

// handleTickTimer implements "TickTimer[ms]" — bare millisecond sleep.
func (it *Interp) handleTickTimer(line string) error {
	ms := it.Env.ParseValue(bracketArg(line, "TickTimer["))
	n, err := strconv.Atoi(strings.TrimSpace(ms))
	if err != nil {
		return diag.Wrap(diag.KindParse, "BadTickTimer", err)
	}
	time.Sleep(time.Duration(n) * time.Millisecond)
	return nil
}

// handleTime implements "Time[MS|SEC|MIN]=value", scaling the sleep
// duration by the named unit (supplemented from original_source/longc.py's
// runtime fallback; see SPEC_FULL.md §4 supplements).
func (it *Interp) handleTime(line string) error {
	rest := strings.TrimPrefix(line, "Time[")
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return diag.New(diag.KindParse, "BadTime", "malformed Time statement %q", line)
	}
	unit := rest[:end]
	tail := strings.TrimSpace(rest[end+1:])
	if !strings.HasPrefix(tail, "=") {
		return diag.New(diag.KindParse, "BadTime", "Time[%s] missing '='", unit)
	}
	raw := it.Env.ParseValue(strings.TrimSpace(tail[1:]))
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return diag.Wrap(diag.KindParse, "BadTime", err)
	}
	var d time.Duration
	switch unit {
	case "MS":
		d = time.Duration(n) * time.Millisecond
	case "SEC":
		d = time.Duration(n) * time.Second
	case "MIN":
		d = time.Duration(n) * time.Minute
	default:
		return diag.New(diag.KindParse, "BadTimeUnit", "unknown Time unit %q", unit)
	}
	time.Sleep(d)
	return nil
}
