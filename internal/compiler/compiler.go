// Package compiler lowers a loaded Long program to Long's bytecode: a flat
// opcode stream with an interned string pool and a dense variable-slot
// table, resolving forward labels to opcode indices by two-pass patching.
//
// Grounded on original_source/longc.py's compile_long_to_vm/compile_lines
// (if_stack/loop_stack state machines, string/variable interning), with
// the table-driven opcode shape of KTStephano-GVM/main.go and the
// insertion-order table walks of github.com/samber/lo.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/BlackMegaLogan/LONG/internal/bytecode"
	"github.com/BlackMegaLogan/LONG/internal/diag"
	"github.com/BlackMegaLogan/LONG/internal/loader"
)

// Program is the compiler's output.
type Program struct {
	Instrs   []bytecode.Instr
	Pool     []string
	VarSlots []string
	// Labels maps every resolved label name (LBL_*, FUNC_*, IF_FALSE_k,
	// IF_END_k, LOOP_k) to the opcode index it was bound to, so the
	// assembly emitter can attach the right symbolic labels to each
	// emitted instruction record.
	Labels map[string]int
}

type ifFrame struct {
	falseLabel string
	endLabel   string
	hasElse    bool
}

type pendingPatch struct {
	instrIndex int
	label      string
}

// Compiler accumulates compilation state across the main stream and every
// function body.
type Compiler struct {
	instrs    []bytecode.Instr
	pool      []string
	poolIndex map[string]int
	varSlots  []string
	varIndex  map[string]int
	labels    map[string]int
	pending   []pendingPatch

	ifCounter   int
	loopCounter int
	ifStack     []ifFrame
	loopStack   []string

	sink              *diag.Sink
	warnedSetTemplate bool
}

func newCompiler(sink *diag.Sink) *Compiler {
	return &Compiler{
		poolIndex: make(map[string]int),
		varIndex:  make(map[string]int),
		labels:    make(map[string]int),
		sink:      sink,
	}
}

// Compile lowers prog's main stream and every function body to a bytecode
// Program, reporting diagnostics (the Set-template-literal warning) through
// sink the same way the interpreter does.
func Compile(prog *loader.Program, sink *diag.Sink) (*Program, error) {
	c := newCompiler(sink)

	if err := c.compileLines(prog.Main); err != nil {
		return nil, err
	}
	if len(c.ifStack) > 0 {
		return nil, diag.New(diag.KindCompile, "UnclosedIf", "unclosed If at end of stream")
	}
	if len(c.loopStack) > 0 {
		return nil, diag.New(diag.KindCompile, "UnclosedLoop", "unclosed Loop[FOREVER] at end of stream")
	}

	c.emit(bytecode.Instr{Op: bytecode.PROGRAM_END})

	for _, name := range sortedFunctionNames(prog.Functions) {
		c.defineLabel("FUNC_" + name)
		if err := c.compileLines(prog.Functions[name]); err != nil {
			return nil, err
		}
		if len(c.ifStack) > 0 {
			return nil, diag.New(diag.KindCompile, "UnclosedIf", "unclosed If inside function %s", name)
		}
		if len(c.loopStack) > 0 {
			return nil, diag.New(diag.KindCompile, "UnclosedLoop", "unclosed Loop[FOREVER] inside function %s", name)
		}
		c.emit(bytecode.Instr{Op: bytecode.RET})
	}

	if err := c.resolvePatches(); err != nil {
		return nil, err
	}

	if len(c.pool) > 1<<16 {
		return nil, diag.New(diag.KindCompile, "ProgramTooLarge", "string pool exceeds 16-bit range")
	}
	if len(c.varSlots) > 1<<8 {
		return nil, diag.New(diag.KindCompile, "TooManyVariables", "more than 256 variable slots")
	}
	if len(c.instrs) > 1<<16 {
		return nil, diag.New(diag.KindCompile, "ProgramTooLarge", "opcode stream exceeds 16-bit index range")
	}

	return &Program{Instrs: c.instrs, Pool: c.pool, VarSlots: c.varSlots, Labels: c.labels}, nil
}

// sortedFunctionNames returns function names in a stable order (insertion
// order isn't preserved by a Go map, so compilation output would otherwise
// be nondeterministic across runs — fixed here to satisfy the bytecode-
// determinism property by sorting, which is itself deterministic).
func sortedFunctionNames(fns map[string][]string) []string {
	names := lo.Keys(fns)
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}

func (c *Compiler) emit(i bytecode.Instr) int {
	c.instrs = append(c.instrs, i)
	return len(c.instrs) - 1
}

func (c *Compiler) internString(s string) int {
	if ix, ok := c.poolIndex[s]; ok {
		return ix
	}
	ix := len(c.pool)
	c.pool = append(c.pool, s)
	c.poolIndex[s] = ix
	return ix
}

func (c *Compiler) slotOf(name string) int {
	if ix, ok := c.varIndex[name]; ok {
		return ix
	}
	ix := len(c.varSlots)
	c.varSlots = append(c.varSlots, name)
	c.varIndex[name] = ix
	return ix
}

// defineLabel binds name to the index of the next instruction to be
// emitted.
func (c *Compiler) defineLabel(name string) {
	c.labels[name] = len(c.instrs)
}

// emitWithLabelTarget emits an instruction whose operand bytes end with a
// 16-bit label-relative target, patched in resolvePatches once every label
// has been defined.
func (c *Compiler) emitWithLabelTarget(op bytecode.Op, prefix []byte, label string) {
	operands := append(append([]byte{}, prefix...), 0xFF, 0xFF)
	ix := c.emit(bytecode.Instr{Op: op, Operands: operands})
	c.pending = append(c.pending, pendingPatch{instrIndex: ix, label: label})
}

func (c *Compiler) resolvePatches() error {
	for _, p := range c.pending {
		target, ok := c.labels[p.label]
		if !ok {
			return diag.New(diag.KindCompile, "UnresolvedLabel", "label %q was never defined", p.label)
		}
		operands := c.instrs[p.instrIndex].Operands
		n := len(operands)
		copy(operands[n-2:], bytecode.U16(uint16(target)))
	}
	return nil
}

func (c *Compiler) newIfLabels() (falseLbl, endLbl string) {
	c.ifCounter++
	return fmt.Sprintf("IF_FALSE_%d", c.ifCounter), fmt.Sprintf("IF_END_%d", c.ifCounter)
}

func (c *Compiler) newLoopLabel() string {
	c.loopCounter++
	return fmt.Sprintf("LOOP_%d", c.loopCounter)
}

// compileLines lowers one ordered statement list (the main stream or a
// function body).
func (c *Compiler) compileLines(lines []string) error {
	for _, line := range lines {
		if err := c.compileStatement(line); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStatement(line string) error {
	switch {
	case line == "HALT":
		c.emit(bytecode.Instr{Op: bytecode.HALT})
		return nil

	case strings.HasPrefix(line, "Label["), strings.HasPrefix(line, "Label:"):
		name := labelLiteral(line)
		c.defineLabel("LBL_" + name)
		return nil

	case strings.HasPrefix(line, "Goto["):
		target := bracket(line, "Goto[")
		c.emitWithLabelTarget(bytecode.GOTO, nil, "LBL_"+target)
		return nil

	case strings.HasPrefix(line, "CallFunction["):
		return c.compileCall(line)

	case strings.HasPrefix(line, "Return["):
		return c.compileReturn(line)

	case strings.HasPrefix(line, "Set["):
		return c.compileSet(line)

	case strings.HasPrefix(line, "DisplayTextRaw("):
		return c.compileDisplay(line, "DisplayTextRaw(", false)

	case strings.HasPrefix(line, "DisplayText("):
		return c.compileDisplay(line, "DisplayText(", true)

	case strings.HasPrefix(line, "SetColor["):
		return c.compileSetColor(line)

	case line == "ResetColor":
		c.emit(bytecode.Instr{Op: bytecode.RESET_COLOR})
		return nil

	case line == "ClearScreen":
		c.emit(bytecode.Instr{Op: bytecode.CLEAR})
		return nil

	case line == "FillLine":
		c.emit(bytecode.Instr{Op: bytecode.FILL_LINE})
		return nil

	case strings.HasPrefix(line, "FillLines["):
		n, err := u8Literal(bracket(line, "FillLines["))
		if err != nil {
			return diag.Wrap(diag.KindCompile, "BadFillLines", err)
		}
		c.emit(bytecode.Instr{Op: bytecode.FILL_LINES, Operands: bytecode.U8(n)})
		return nil

	case strings.HasPrefix(line, "SetCursor["):
		return c.compileSetCursor(line)

	case strings.HasPrefix(line, "DrawBox["):
		return c.compileDrawBox(line)

	case line == "TrackInput[KEYBOARD]":
		slots := []byte{
			byte(c.slotOf("INPUT")), byte(c.slotOf("WORD1")), byte(c.slotOf("WORD2")),
			byte(c.slotOf("WORD3")), byte(c.slotOf("WORDCOUNT")), byte(c.slotOf("WORDREST")),
		}
		c.emit(bytecode.Instr{Op: bytecode.INPUT_WORDS, Operands: slots})
		return nil

	case strings.HasPrefix(line, "If["):
		return c.compileIf(line)

	case line == "Else":
		return c.compileElse()

	case line == "EndIf":
		return c.compileEndIf()

	case line == "Loop[FOREVER]":
		c.loopStack = append(c.loopStack, c.newLoopLabel())
		c.defineLabel(c.loopStack[len(c.loopStack)-1])
		return nil

	case line == "EndLoop":
		if len(c.loopStack) == 0 {
			return diag.New(diag.KindCompile, "UnexpectedEndLoop", "EndLoop without a matching Loop[FOREVER]")
		}
		lbl := c.loopStack[len(c.loopStack)-1]
		c.loopStack = c.loopStack[:len(c.loopStack)-1]
		c.emitWithLabelTarget(bytecode.GOTO, nil, lbl)
		return nil

	case strings.HasPrefix(line, "StartFunction["), line == "EndFunction":
		// Already consumed by the loader; nothing to lower here.
		return nil

	default:
		return diag.New(diag.KindCompile, "UnsupportedStatement", "statement not supported in compile mode: %q", line)
	}
}

func labelLiteral(line string) string {
	if strings.HasPrefix(line, "Label[") {
		return bracket(line, "Label[")
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "Label:"))
}

func bracket(line, prefix string) string {
	rest := strings.TrimPrefix(line, prefix)
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func u8Literal(s string) (byte, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("value %q does not fit in 8 bits", s)
	}
	return byte(n), nil
}

func u16Literal(s string) (uint16, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 65535 {
		return 0, fmt.Errorf("value %q does not fit in 16 bits", s)
	}
	return uint16(n), nil
}
