package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
)

// Validate checks the structural invariants of a forest:
// unique non-empty ids, known kinds, non-empty names and no children under files.
// All violations are reported together.
func Validate(t domain.Tree) error {
	seen := make(map[string]bool)
	var errs []error

	Walk(t, func(n *domain.FileNode, _ []*domain.FileNode) bool {
		switch {
		case n.ID == "":
			errs = append(errs, fmt.Errorf("node %q has an empty id", n.Name))
		case seen[n.ID]:
			errs = append(errs, fmt.Errorf("node %s: %w", n.ID, domain.ErrDuplicateID))
		}
		seen[n.ID] = true

		if !n.Kind.Valid() {
			errs = append(errs, fmt.Errorf("node %s has unknown kind %q", n.ID, n.Kind))
		}
		if strings.TrimSpace(n.Name) == "" {
			errs = append(errs, fmt.Errorf("node %s has an empty name", n.ID))
		}
		if n.IsFile() && len(n.Children) > 0 {
			errs = append(errs, fmt.Errorf("file %s has children", n.ID))
		}
		return true
	})

	return errors.Join(errs...)
}
