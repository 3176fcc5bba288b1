package interp

import (
	"strings"

	"github.com/BlackMegaLogan/LONG/internal/diag"
	"github.com/BlackMegaLogan/LONG/internal/values"
)

// handleIf evaluates "If[VAR] OP RHS" and either falls through (advance)
// or repositions pc to the matching Else/EndIf by depth-counting nested
// Ifs, per spec §4.4.
func (it *Interp) handleIf(f *Frame, line string) (advance, fatal bool, err error) {
	varName, op, rhs, perr := parseIf(line)
	if perr != nil {
		return true, false, perr
	}

	cond, cerr := it.evalCondition(varName, op, rhs)
	if cerr != nil {
		return true, false, cerr
	}
	if cond {
		return true, false, nil
	}

	idx, serr := skipIfBlock(f.lines, f.pc)
	if serr != nil {
		return true, false, serr
	}
	// Land just past the Else/EndIf line itself without executing it as a
	// statement: per spec §4.4, "landing on Else/EndIf skips that line" —
	// reaching Else this way means it was false and must fall into the
	// Else block, not be treated as the true-branch-fell-through case that
	// skips the whole block (that distinct case is handled in step()).
	f.pc = idx + 1
	return false, false, nil
}

// parseIf splits "If[VAR] OP RHS" into its variable name, operator, and
// raw RHS token.
func parseIf(line string) (varName, op, rhs string, err error) {
	rest := strings.TrimPrefix(line, "If[")
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", "", "", diag.New(diag.KindParse, "BadIf", "malformed If statement %q", line)
	}
	varName = rest[:end]
	tail := strings.TrimSpace(rest[end+1:])
	for _, candidate := range []string{"<=", ">=", "=", "<", ">"} {
		if strings.HasPrefix(tail, candidate) {
			op = candidate
			rhs = strings.TrimSpace(tail[len(candidate):])
			return varName, op, rhs, nil
		}
	}
	return "", "", "", diag.New(diag.KindParse, "BadIf", "malformed If operator in %q", line)
}

// evalCondition implements the comparison rule from spec §4.4: "=" compares
// raw strings; the ordering operators compare unsigned-decimal prefixes.
func (it *Interp) evalCondition(varName, op, rhsToken string) (bool, error) {
	lhs := it.Env.Get(varName)
	rhs := it.Env.ParseValue(rhsToken)
	switch op {
	case "=":
		return lhs == rhs, nil
	case "<", "<=", ">", ">=":
		l := values.ParseUintPrefix(lhs)
		r := values.ParseUintPrefix(rhs)
		switch op {
		case "<":
			return l < r, nil
		case "<=":
			return l <= r, nil
		case ">":
			return l > r, nil
		default:
			return l >= r, nil
		}
	default:
		return false, diag.New(diag.KindParse, "BadOp", "unknown If operator %q", op)
	}
}

// skipIfBlock returns the index of the matching Else (if one exists at the
// same nesting depth) or EndIf for the If statement at ifIdx, depth-
// counting nested Ifs.
func skipIfBlock(lines []string, ifIdx int) (int, error) {
	depth := 0
	for i := ifIdx + 1; i < len(lines); i++ {
		switch {
		case strings.HasPrefix(lines[i], "If["):
			depth++
		case lines[i] == "Else" && depth == 0:
			return i, nil
		case lines[i] == "EndIf":
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, diag.New(diag.KindParse, "UnbalancedIf", "If at line %d has no matching Else/EndIf", ifIdx)
}

// skipToEndIf returns the index of the matching EndIf for the Else (or If)
// statement at idx, depth-counting nested Ifs and ignoring any Else seen
// along the way (an If reached while searching owns its own Else/EndIf
// pair, neither of which terminates this search at depth 0 except EndIf).
func skipToEndIf(lines []string, idx int) (int, error) {
	depth := 0
	for i := idx + 1; i < len(lines); i++ {
		switch {
		case strings.HasPrefix(lines[i], "If["):
			depth++
		case lines[i] == "EndIf":
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, diag.New(diag.KindParse, "UnbalancedIf", "Else/If at line %d has no matching EndIf", idx)
}
