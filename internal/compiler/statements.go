package compiler

import (
	"strconv"
	"strings"

	"github.com/BlackMegaLogan/LONG/internal/bytecode"
	"github.com/BlackMegaLogan/LONG/internal/diag"
)

// compileSet lowers every "Set[V]=..." shape the compiler supports:
// Math(<`A`> OP <`B`>|N), a quoted literal, or a bare variable reference.
func (c *Compiler) compileSet(line string) error {
	dst := bracket(line, "Set[")
	rest := strings.TrimPrefix(line, "Set["+dst+"]")
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "=") {
		return diag.New(diag.KindCompile, "BadSet", "Set[%s] missing '='", dst)
	}
	rhs := strings.TrimSpace(rest[1:])
	dstSlot := byte(c.slotOf(dst))

	switch {
	case strings.HasPrefix(rhs, "Math("):
		return c.compileMathSet(dstSlot, rhs)

	case isQuoted(rhs):
		text, _ := unquote(rhs)
		if strings.Contains(text, "<`") && !c.warnedSetTemplate {
			c.warnedSetTemplate = true
			c.sink.Warnf("Set[%s]: template expansion inside Set strings is not supported, %q kept verbatim", dst, text)
		}
		pix := c.internString(text)
		c.emit(bytecode.Instr{Op: bytecode.SET_STR, Operands: append(bytecode.U8(dstSlot), bytecode.U16(uint16(pix))...)})
		return nil

	case strings.HasPrefix(rhs, "ReadFile["), strings.HasPrefix(rhs, "Block["), strings.HasPrefix(rhs, "Random["):
		return diag.New(diag.KindCompile, "UnsupportedStatement", "statement not supported in compile mode: %q", line)

	default:
		srcSlot := byte(c.slotOf(rhs))
		c.emit(bytecode.Instr{Op: bytecode.SET_VAR, Operands: append(bytecode.U8(dstSlot), bytecode.U8(srcSlot)...)})
		return nil
	}
}

// compileMathSet enforces the restricted shape Math(<`V`> OP <`V`>|NUMBER),
// OP in {+,-}, and emits MATH_VI or MATH_VV.
func (c *Compiler) compileMathSet(dstSlot byte, rhs string) error {
	inner := strings.TrimSuffix(strings.TrimPrefix(rhs, "Math("), ")")
	inner = strings.TrimSpace(inner)

	lhsName, op, rhsTok, err := splitRestrictedMath(inner)
	if err != nil {
		return err
	}
	srcSlot := byte(c.slotOf(lhsName))

	if rhsVar, ok := stripAngle(rhsTok); ok {
		bSlot := byte(c.slotOf(rhsVar))
		c.emit(bytecode.Instr{Op: bytecode.MATH_VV, Operands: []byte{dstSlot, srcSlot, op, bSlot}})
		return nil
	}

	imm, err := u16Literal(rhsTok)
	if err != nil {
		return diag.New(diag.KindCompile, "BadMathImmediate", "Math immediate %q out of range", rhsTok)
	}
	c.emit(bytecode.Instr{Op: bytecode.MATH_VI, Operands: append([]byte{dstSlot, srcSlot, op}, bytecode.U16(imm)...)})
	return nil
}

// splitRestrictedMath parses "<V> OP RHS" where OP is a single '+' or '-'.
func splitRestrictedMath(inner string) (lhsVar string, op byte, rhs string, err error) {
	lhsVar, ok := stripAngle(firstToken(inner))
	if !ok {
		return "", 0, "", diag.New(diag.KindCompile, "BadMathShape",
			"Math(%s): compiled Math requires the shape Math(<`V`> OP <`V`>|NUMBER)", inner)
	}
	rest := strings.TrimSpace(inner[len(firstToken(inner)):])
	if rest == "" {
		return "", 0, "", diag.New(diag.KindCompile, "BadMathShape", "Math(%s): missing operator", inner)
	}
	switch rest[0] {
	case '+', '-':
		op = rest[0]
	default:
		return "", 0, "", diag.New(diag.KindCompile, "BadMathShape",
			"Math(%s): compiled Math only supports + and -", inner)
	}
	rhs = strings.TrimSpace(rest[1:])
	if rhs == "" {
		return "", 0, "", diag.New(diag.KindCompile, "BadMathShape", "Math(%s): missing right-hand operand", inner)
	}
	return lhsVar, op, rhs, nil
}

// firstToken returns the leading "<`NAME`>" token of s (the backtick-
// delimited form is mandatory for the left operand per the restricted
// grammar).
func firstToken(s string) string {
	if !strings.HasPrefix(s, "<`") {
		return ""
	}
	end := strings.Index(s, "`>")
	if end < 0 {
		return ""
	}
	return s[:end+2]
}

func stripAngle(s string) (string, bool) {
	if len(s) >= 4 && strings.HasPrefix(s, "<`") && strings.HasSuffix(s, "`>") {
		return s[2 : len(s)-2], true
	}
	return "", false
}

func isQuoted(s string) bool {
	return len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\''))
}

func unquote(s string) (string, bool) {
	if isQuoted(s) {
		return s[1 : len(s)-1], true
	}
	return s, false
}

// compileDisplay decomposes "DisplayText[Raw](TAG)=\"text\"" into
// alternating literal/variable segments and emits PRINT_STR/PRINT_VAR for
// each, followed by NL unless raw.
func (c *Compiler) compileDisplay(line, prefix string, newline bool) error {
	rest := strings.TrimPrefix(line, prefix)
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return diag.New(diag.KindCompile, "BadDisplay", "malformed display statement %q", line)
	}
	tail := strings.TrimSpace(rest[end+1:])
	if !strings.HasPrefix(tail, "=") {
		return diag.New(diag.KindCompile, "BadDisplay", "display statement %q missing '='", line)
	}
	quoted := strings.TrimSpace(tail[1:])
	text, ok := unquote(quoted)
	if !ok {
		return diag.New(diag.KindCompile, "UnquotedDisplay", "display RHS %q must be quoted in compile mode", quoted)
	}

	for _, seg := range splitTemplate(text) {
		if seg.isVar {
			slot := byte(c.slotOf(seg.text))
			c.emit(bytecode.Instr{Op: bytecode.PRINT_VAR, Operands: bytecode.U8(slot)})
		} else if seg.text != "" {
			pix := c.internString(seg.text)
			c.emit(bytecode.Instr{Op: bytecode.PRINT_STR, Operands: bytecode.U16(uint16(pix))})
		}
	}
	if newline {
		c.emit(bytecode.Instr{Op: bytecode.NL})
	}
	return nil
}

type templateSegment struct {
	text  string
	isVar bool
}

// splitTemplate decomposes text into alternating literal and "<`VAR`>"
// segments, in source order.
func splitTemplate(text string) []templateSegment {
	var segs []templateSegment
	i := 0
	for i < len(text) {
		open := strings.Index(text[i:], "<`")
		if open < 0 {
			segs = append(segs, templateSegment{text: text[i:]})
			break
		}
		if open > 0 {
			segs = append(segs, templateSegment{text: text[i : i+open]})
		}
		start := i + open
		close := strings.Index(text[start+2:], "`>")
		if close < 0 {
			segs = append(segs, templateSegment{text: text[start:]})
			break
		}
		name := text[start+2 : start+2+close]
		segs = append(segs, templateSegment{text: name, isVar: true})
		i = start + 2 + close + 2
	}
	return segs
}

// compileSetColor lowers "SetColor[FG|BG]=NAME".
func (c *Compiler) compileSetColor(line string) error {
	which := bracket(line, "SetColor[")
	rest := line[strings.IndexByte(line, ']')+1:]
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "=") {
		return diag.New(diag.KindCompile, "BadSetColor", "SetColor[%s] missing '='", which)
	}
	name := strings.ToUpper(strings.TrimSpace(rest[1:]))
	idx, ok := paletteIndex[name]
	if !ok {
		return diag.New(diag.KindCompile, "UnknownColor", "unknown color %q", name)
	}
	var whichByte byte
	switch which {
	case "FG":
		whichByte = 0
	case "BG":
		whichByte = 1
	default:
		return diag.New(diag.KindCompile, "BadSetColor", "SetColor[%s]: expected FG or BG", which)
	}
	c.emit(bytecode.Instr{Op: bytecode.SET_COLOR, Operands: []byte{whichByte, byte(idx)}})
	return nil
}

// compileSetCursor lowers "SetCursor[r,c]": SET_CURSOR_II when both
// operands are numeric literals <=255, else SET_CURSOR_VV over variable
// slots.
func (c *Compiler) compileSetCursor(line string) error {
	inner := bracket(line, "SetCursor[")
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return diag.New(diag.KindCompile, "BadSetCursor", "SetCursor needs row,col: %q", line)
	}
	a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if n1, err1 := strconv.Atoi(a); err1 == nil {
		if n2, err2 := strconv.Atoi(b); err2 == nil && n1 >= 0 && n1 <= 255 && n2 >= 0 && n2 <= 255 {
			c.emit(bytecode.Instr{Op: bytecode.SET_CURSOR_II, Operands: []byte{byte(n1), byte(n2)}})
			return nil
		}
	}
	rowSlot := byte(c.slotOf(a))
	colSlot := byte(c.slotOf(b))
	c.emit(bytecode.Instr{Op: bytecode.SET_CURSOR_VV, Operands: []byte{rowSlot, colSlot}})
	return nil
}

// compileDrawBox lowers "DrawBox[w,h]=ch".
func (c *Compiler) compileDrawBox(line string) error {
	inner := bracket(line, "DrawBox[")
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return diag.New(diag.KindCompile, "BadDrawBox", "DrawBox needs w,h: %q", line)
	}
	w, werr := u8Literal(parts[0])
	h, herr := u8Literal(parts[1])
	if werr != nil || herr != nil {
		return diag.New(diag.KindCompile, "BadDrawBox", "DrawBox dimensions must fit in 8 bits: %q", line)
	}
	rest := line[strings.IndexByte(line, ']')+1:]
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "=") {
		return diag.New(diag.KindCompile, "BadDrawBox", "DrawBox missing '=': %q", line)
	}
	chTok := strings.TrimSpace(rest[1:])
	chText, _ := unquote(chTok)
	if chText == "" {
		chText = "*"
	}
	c.emit(bytecode.Instr{Op: bytecode.DRAW_BOX, Operands: []byte{w, h, chText[0]}})
	return nil
}

var paletteIndex = map[string]int{
	"BLACK": 0, "BLUE": 1, "GREEN": 2, "CYAN": 3, "RED": 4, "MAGENTA": 5,
	"BROWN": 6, "LIGHTGRAY": 7, "DARKGRAY": 8, "LIGHTBLUE": 9, "LIGHTGREEN": 10,
	"LIGHTCYAN": 11, "LIGHTRED": 12, "LIGHTMAGENTA": 13, "YELLOW": 14, "WHITE": 15,
	"BRIGHTBLACK": 8, "BRIGHTBLUE": 9, "BRIGHTGREEN": 10, "BRIGHTCYAN": 11,
	"BRIGHTRED": 12, "BRIGHTMAGENTA": 13, "BRIGHTYELLOW": 14, "BRIGHTWHITE": 15,
}
