package interp

import (
	"strconv"
	"strings"

	"github.com/BlackMegaLogan/LONG/internal/diag"
)

// handleFS dispatches FS[Create]/FS[Read]/FS[Write]/FS[List]/FS[SetRole]/
// FS[Tran].
func (it *Interp) handleFS(line string) error {
	sub, arg, tail, err := splitBracketed(line, "FS[")
	if err != nil {
		return err
	}
	switch sub {
	case "Create":
		path := it.Env.ParsePath(arg)
		meta := map[string]string{}
		if eq := strings.Index(tail, "="); eq >= 0 {
			meta = parseMeta(it.Env.ParseValue(strings.TrimSpace(tail[eq+1:])))
		}
		if err := it.Store.Create(path, meta); err != nil {
			return err
		}
		it.Env.Set(varLastCreatePath, path)
		return nil

	case "Read":
		path := it.Env.ParsePath(arg)
		content, err := it.Store.ReadFile(path)
		if err != nil {
			return err
		}
		it.Env.Set(varLastRead, content)
		it.Env.Set(varLastReadPath, path)
		it.Env.Set(varLastReadSize, strconv.Itoa(len(content)))
		return nil

	case "Write":
		path := it.Env.ParsePath(arg)
		eq := strings.Index(tail, "=")
		if eq < 0 {
			return diag.New(diag.KindParse, "BadFSWrite", "FS[Write][%s] missing '='", arg)
		}
		content := it.Env.ParseValue(strings.TrimSpace(tail[eq+1:]))
		if err := it.Store.WriteFile(path, content); err != nil {
			return err
		}
		it.Env.Set(varLastWritePath, path)
		it.Env.Set(varLastWriteSize, strconv.Itoa(len(content)))
		return nil

	case "List":
		path := it.Env.ParsePath(arg)
		children, err := it.Store.ListDir(path)
		if err != nil {
			return err
		}
		it.Env.Set(varLastList, strings.Join(children, ","))
		it.Env.Set(varLastListPath, path)
		it.Env.Set(varLastListCount, strconv.Itoa(len(children)))
		return nil

	case "SetRole":
		path := it.Env.ParsePath(arg)
		eq := strings.Index(tail, "=")
		if eq < 0 {
			return diag.New(diag.KindParse, "BadFSSetRole", "FS[SetRole][%s] missing '='", arg)
		}
		role := it.Env.ParseValue(strings.TrimSpace(tail[eq+1:]))
		if err := it.Store.SetRole(path, role); err != nil {
			return err
		}
		it.Env.Set(varLastRole, role)
		it.Env.Set(varLastRolePath, path)
		return nil

	case "Tran":
		path := it.Env.ParsePath(arg)
		return it.Store.Tran(path)

	default:
		return diag.New(diag.KindParse, "BadFSOp", "unknown FS subcommand %q", sub)
	}
}

// handleBlockStmt dispatches the bare statement forms Block[Alloc] and
// Block[Write][id]=content (Block[Read][id] only appears as a Set[] RHS,
// handled in handleSet).
func (it *Interp) handleBlockStmt(line string) error {
	sub, arg, tail, err := splitBracketed(line, "Block[")
	if err != nil {
		return err
	}
	switch sub {
	case "Alloc":
		id, err := it.Store.AllocBlock()
		if err != nil {
			return err
		}
		it.Env.Set(varLastBlock, id)
		return nil

	case "Write":
		id := it.Env.ParseValue(arg)
		eq := strings.Index(tail, "=")
		if eq < 0 {
			return diag.New(diag.KindParse, "BadBlockWrite", "Block[Write][%s] missing '='", arg)
		}
		content := it.Env.ParseValue(strings.TrimSpace(tail[eq+1:]))
		if err := it.Store.WriteBlock(id, content); err != nil {
			return err
		}
		it.Env.Set(varLastBlock, id)
		it.Env.Set(varLastBlockData, content)
		return nil

	case "Read":
		id := it.Env.ParseValue(arg)
		content, err := it.Store.ReadBlock(id)
		if err != nil {
			return err
		}
		it.Env.Set(varLastBlock, id)
		it.Env.Set(varLastBlockData, content)
		return nil

	default:
		return diag.New(diag.KindParse, "BadBlockOp", "unknown Block subcommand %q", sub)
	}
}

// splitBracketed parses "Prefix[Sub][arg]tail" (tail may carry a trailing
// "=value") into its subcommand, bracketed argument, and trailing text.
func splitBracketed(line, prefix string) (sub, arg, tail string, err error) {
	rest := strings.TrimPrefix(line, prefix)
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", "", "", diag.New(diag.KindParse, "BadBracket", "malformed statement %q", line)
	}
	sub = rest[:end]
	rest = rest[end+1:]
	if strings.HasPrefix(rest, "[") {
		end2 := strings.IndexByte(rest, ']')
		if end2 < 0 {
			return "", "", "", diag.New(diag.KindParse, "BadBracket", "malformed statement %q", line)
		}
		arg = rest[1:end2]
		tail = rest[end2+1:]
	} else {
		tail = rest
	}
	return sub, arg, strings.TrimSpace(tail), nil
}

// parseMeta parses a "role=doc,ui=none,run=fg,backup=versioned" style
// metadata string into a map, tolerating either comma or space separators.
func parseMeta(s string) map[string]string {
	out := map[string]string{}
	s = strings.ReplaceAll(s, ",", " ")
	for _, field := range strings.Fields(s) {
		if eq := strings.IndexByte(field, '='); eq > 0 {
			out[field[:eq]] = field[eq+1:]
		}
	}
	return out
}
