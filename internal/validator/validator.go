package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/aretw0/codeshell/pkg/tree"
)

// ValidateWorkspace checks a tree beyond its structural invariants:
// sibling names must be unique so every path resolves to one node, and every
// runnable file must transpile. All problems are reported together.
// t may be nil to skip the compile check.
func ValidateWorkspace(tr domain.Tree, t ports.Transpiler) error {
	var problems []string

	if err := tree.Validate(tr); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			problems = append(problems, line)
		}
	}

	problems = append(problems, duplicateNames("", tr)...)

	if t != nil {
		for _, f := range tree.Files(tr) {
			if !domain.IsRunnable(f.Name) {
				continue
			}
			if _, err := t.Transpile(f.Content, f.Name); err != nil {
				var ce *domain.CompileError
				if errors.As(err, &ce) {
					ce.FileName = tree.Path(tr, f.ID)
					err = ce
				}
				problems = append(problems, fmt.Sprintf("Compile error: %v", err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

func duplicateNames(prefix string, nodes []*domain.FileNode) []string {
	var out []string
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		p := prefix + n.Name
		if seen[n.Name] {
			out = append(out, fmt.Sprintf("Ambiguous path: '%s' names more than one node", p))
		}
		seen[n.Name] = true
		if n.IsFolder() {
			out = append(out, duplicateNames(p+"/", n.Children)...)
		}
	}
	return out
}
