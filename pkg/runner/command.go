package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
)

// Op names a REPL command.
type Op string

const (
	OpList    Op = "ls"
	OpOpen    Op = "open"
	OpCat     Op = "cat"
	OpNew     Op = "new"
	OpRename  Op = "mv"
	OpRemove  Op = "rm"
	OpWrite   Op = "write"
	OpEdit    Op = "edit"
	OpSave    Op = "save"
	OpCompile Op = "compile"
	OpToggle  Op = "toggle"
	OpClose   Op = "close"
	OpRun     Op = "run"
	OpClear   Op = "clear"
	OpHelp    Op = "help"
	OpExit    Op = "exit"
)

// ErrUnknownCommand is returned by ParseCommand for unrecognised input.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one instruction for the workspace.
//
// Target addresses a node by path ("CODE_PROJECTS/App.js") or by id when prefixed
// with '#' ("#2"). An empty Target means the open file where that makes sense.
type Command struct {
	Op      Op              `json:"op"`
	Target  string          `json:"target,omitempty"`
	Kind    domain.NodeKind `json:"type,omitempty"`
	Name    string          `json:"name,omitempty"`
	Content string          `json:"content,omitempty"`
}

// Help lists the text syntax of every command.
const Help = `ls                       list the tree
open <target>            open a file or toggle a folder
cat [target]             print a file, or the buffer of the open file
new file|folder [parent] create a node (top level without parent)
mv <target> <name>       rename a node
rm <target>              delete a node and its subtree
write <target> <text>    overwrite a file (\n and \t are unescaped)
edit <text>              replace the buffer of the open file
save                     store the buffer into the open file
compile                  print the compiled buffer
toggle                   toggle the compiled view
close                    close the open file
run [target]             run the open file, or open and run target
clear                    clear the console
help                     show this help
exit                     leave the shell

Targets are paths such as CODE_PROJECTS/App.js or ids such as #2.`

// ParseCommand parses one line of the text syntax.
// A blank line yields a zero Command and no error.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, nil
	}

	word, rest := cut(line)
	cmd := Command{Op: Op(strings.ToLower(word))}

	switch cmd.Op {
	case OpList, OpSave, OpCompile, OpToggle, OpClose, OpClear, OpHelp:
	case "quit":
		cmd.Op = OpExit
	case OpExit:
	case OpOpen, OpRemove:
		if rest == "" {
			return Command{}, fmt.Errorf("%s: missing target", cmd.Op)
		}
		cmd.Target = rest
	case OpCat, OpRun:
		cmd.Target = rest
	case OpNew:
		kind, parent := cut(rest)
		cmd.Kind = domain.NodeKind(strings.ToLower(kind))
		if !cmd.Kind.Valid() {
			return Command{}, fmt.Errorf("new: expected file or folder, got %q", kind)
		}
		cmd.Target = parent
	case OpRename:
		target, name := cut(rest)
		if target == "" || name == "" {
			return Command{}, fmt.Errorf("mv: usage mv <target> <name>")
		}
		cmd.Target, cmd.Name = target, name
	case OpWrite:
		target, text := cut(rest)
		if target == "" {
			return Command{}, fmt.Errorf("write: missing target")
		}
		cmd.Target, cmd.Content = target, Unescape(text)
	case OpEdit:
		cmd.Content = Unescape(rest)
	default:
		return Command{}, fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, word)
	}
	return cmd, nil
}

// Unescape turns the two-character sequences \n, \t and \\ into their characters.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func cut(s string) (head, tail string) {
	s = strings.TrimSpace(s)
	head, tail, _ = strings.Cut(s, " ")
	return head, strings.TrimSpace(tail)
}
