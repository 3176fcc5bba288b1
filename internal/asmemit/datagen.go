package asmemit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/BlackMegaLogan/LONG/internal/bytecode"
	"github.com/BlackMegaLogan/LONG/internal/compiler"
)

// generateProgramBlock renders the opcode stream as one NASM record per
// instruction: every label bound to that index, a synthetic "L<index>:"
// local label, then one db line holding the opcode byte followed by its
// operand bytes, split per §6.2's operand widths.
func generateProgramBlock(prog *compiler.Program) string {
	labelsAt := make(map[int][]string)
	for name, ix := range prog.Labels {
		labelsAt[ix] = append(labelsAt[ix], name)
	}
	for _, names := range labelsAt {
		sort.Strings(names)
	}

	var b strings.Builder
	b.WriteString("program_start:\n")
	for i, instr := range prog.Instrs {
		for _, name := range labelsAt[i] {
			fmt.Fprintf(&b, "%s:\n", name)
		}
		fmt.Fprintf(&b, "L%d:\n", i)
		fmt.Fprintf(&b, "    db 0x%02X", byte(instr.Op))
		for _, word := range splitOperands(instr) {
			b.WriteString(", ")
			b.WriteString(word)
		}
		b.WriteByte('\n')
	}
	b.WriteString("program_end:\n")
	return b.String()
}

// splitOperands re-groups an instruction's raw little-endian operand bytes
// into "0xNN" db tokens per the opcode's field widths: one token for a u8,
// two tokens (low byte, then high byte) for a u16, so the assembled bytes
// stay little-endian on the wire.
func splitOperands(instr bytecode.Instr) []string {
	widths := bytecode.OperandWidths(instr.Op)
	var out []string
	off := 0
	for _, w := range widths {
		if off+w > len(instr.Operands) {
			break
		}
		switch w {
		case 1:
			out = append(out, fmt.Sprintf("0x%02X", instr.Operands[off]))
		case 2:
			lo, hi := instr.Operands[off], instr.Operands[off+1]
			out = append(out, fmt.Sprintf("0x%02X", lo), fmt.Sprintf("0x%02X", hi))
		}
		off += w
	}
	return out
}

// generateVarsBlock renders the var_<i> scratch areas (64 bytes each) and
// the var_table of pointers to them, one entry per compiled variable slot.
func generateVarsBlock(varSlots []string) string {
	var b strings.Builder
	for i := range varSlots {
		fmt.Fprintf(&b, "var_%d: times 64 db 0\n", i)
	}
	b.WriteString("var_table:\n")
	if len(varSlots) == 0 {
		b.WriteString("    dw 0\n")
	}
	for i := range varSlots {
		fmt.Fprintf(&b, "    dw var_%d\n", i)
	}
	return b.String()
}

// generateStringsBlock renders the interned string pool as one "strN db
// ..., 0" record per entry, with embedded newlines split into literal
// CR/LF bytes so NASM accepts them.
func generateStringsBlock(pool []string) string {
	var b strings.Builder
	b.WriteString("string_pool:\n")
	for i, s := range pool {
		fmt.Fprintf(&b, "str%d:\n    db %s, 0\n", i, nasmStringLiteral(s))
	}
	return b.String()
}

// nasmStringLiteral renders s as a comma-separated run of NASM db operands,
// splitting on '\n' so each line becomes a quoted chunk interleaved with
// literal 13, 10 byte values.
func nasmStringLiteral(s string) string {
	if s == "" {
		return "0"
	}
	lines := strings.Split(s, "\n")
	var parts []string
	for i, line := range lines {
		if line != "" {
			parts = append(parts, strconv.Quote(line))
		}
		if i < len(lines)-1 {
			parts = append(parts, "13, 10")
		}
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, ", ")
}
