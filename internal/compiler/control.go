package compiler

import (
	"strings"

	"github.com/BlackMegaLogan/LONG/internal/bytecode"
	"github.com/BlackMegaLogan/LONG/internal/diag"
)

// compileIf lowers "If[V] OP RHS", synthesizing IF_FALSE_k/IF_END_k and
// emitting the matching conditional-jump-on-false opcode.
func (c *Compiler) compileIf(line string) error {
	varName, op, rhs, err := parseIfHeader(line)
	if err != nil {
		return err
	}
	falseLbl, endLbl := c.newIfLabels()
	c.ifStack = append(c.ifStack, ifFrame{falseLabel: falseLbl, endLabel: endLbl})

	slot := byte(c.slotOf(varName))

	if op == "=" {
		text, ok := unquote(rhs)
		if !ok {
			text = rhs // bare identifier RHS: compared as a variable's pooled current text is not resolvable at compile time; treat literally
		}
		pix := c.internString(text)
		c.emitWithLabelTarget(bytecode.IF_NE_STR, append(bytecode.U8(slot), bytecode.U16(uint16(pix))...), falseLbl)
		return nil
	}

	opCode, ok := bytecode.CmpOpCode(op)
	if !ok {
		return diag.New(diag.KindCompile, "BadIfOp", "unsupported If operator %q", op)
	}
	if rhsVar, isVar := stripAngle(rhs); isVar {
		rhsSlot := byte(c.slotOf(rhsVar))
		c.emitWithLabelTarget(bytecode.IF_NUM_VV, []byte{slot, opCode, rhsSlot}, falseLbl)
		return nil
	}
	text, wasQuoted := unquote(rhs)
	if !wasQuoted {
		text = rhs
	}
	imm, err := u16Literal(text)
	if err != nil {
		return diag.New(diag.KindCompile, "BadIfImmediate", "If[%s] %s %q: not a valid 16-bit literal", varName, op, rhs)
	}
	c.emitWithLabelTarget(bytecode.IF_NUM_VI, append(bytecode.U8(slot), append(bytecode.U8(opCode), bytecode.U16(imm)...)...), falseLbl)
	return nil
}

func parseIfHeader(line string) (varName, op, rhs string, err error) {
	rest := strings.TrimPrefix(line, "If[")
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", "", "", diag.New(diag.KindCompile, "BadIf", "malformed If statement %q", line)
	}
	varName = rest[:end]
	tail := strings.TrimSpace(rest[end+1:])
	for _, candidate := range []string{"<=", ">=", "=", "<", ">"} {
		if strings.HasPrefix(tail, candidate) {
			return varName, candidate, strings.TrimSpace(tail[len(candidate):]), nil
		}
	}
	return "", "", "", diag.New(diag.KindCompile, "BadIf", "malformed If operator in %q", line)
}

// compileElse emits GOTO IF_END_k, defines IF_FALSE_k at the current
// offset, and marks the frame as having an Else clause.
func (c *Compiler) compileElse() error {
	if len(c.ifStack) == 0 {
		return diag.New(diag.KindCompile, "UnexpectedElse", "Else without a matching If")
	}
	top := &c.ifStack[len(c.ifStack)-1]
	c.emitWithLabelTarget(bytecode.GOTO, nil, top.endLabel)
	c.defineLabel(top.falseLabel)
	top.hasElse = true
	return nil
}

// compileEndIf defines IF_END_k if an Else was seen, else IF_FALSE_k, and
// pops the if frame.
func (c *Compiler) compileEndIf() error {
	if len(c.ifStack) == 0 {
		return diag.New(diag.KindCompile, "UnexpectedEndIf", "EndIf without a matching If")
	}
	top := c.ifStack[len(c.ifStack)-1]
	c.ifStack = c.ifStack[:len(c.ifStack)-1]
	if top.hasElse {
		c.defineLabel(top.endLabel)
	} else {
		c.defineLabel(top.falseLabel)
	}
	return nil
}

// compileCall lowers "CallFunction[F][->V]": clears __RETVAL, emits CALL
// FUNC_F, and if a capture variable is present, emits SET_VAR V __RETVAL.
func (c *Compiler) compileCall(line string) error {
	rest := strings.TrimPrefix(line, "CallFunction[")
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return diag.New(diag.KindCompile, "BadCall", "malformed CallFunction statement %q", line)
	}
	name := rest[:end]
	tail := strings.TrimSpace(rest[end+1:])

	retvalSlot := byte(c.slotOf("__RETVAL"))
	emptyPix := c.internString("")
	c.emit(bytecode.Instr{Op: bytecode.SET_STR, Operands: append(bytecode.U8(retvalSlot), bytecode.U16(uint16(emptyPix))...)})
	c.emitWithLabelTarget(bytecode.CALL, nil, "FUNC_"+name)

	if strings.HasPrefix(tail, "->") {
		capture := strings.TrimSpace(tail[2:])
		dstSlot := byte(c.slotOf(capture))
		c.emit(bytecode.Instr{Op: bytecode.SET_VAR, Operands: []byte{dstSlot, retvalSlot}})
	}
	return nil
}

// compileReturn lowers "Return[x]": sets __RETVAL to x (literal or
// variable), emits RET.
func (c *Compiler) compileReturn(line string) error {
	arg := bracket(line, "Return[")
	retvalSlot := byte(c.slotOf("__RETVAL"))

	if text, ok := unquote(arg); ok {
		pix := c.internString(text)
		c.emit(bytecode.Instr{Op: bytecode.SET_STR, Operands: append(bytecode.U8(retvalSlot), bytecode.U16(uint16(pix))...)})
	} else {
		srcSlot := byte(c.slotOf(arg))
		c.emit(bytecode.Instr{Op: bytecode.SET_VAR, Operands: []byte{retvalSlot, srcSlot}})
	}
	c.emit(bytecode.Instr{Op: bytecode.RET})
	return nil
}
