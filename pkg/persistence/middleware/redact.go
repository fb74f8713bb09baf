package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/ports"
)

// Mask replaces redacted text.
const Mask = "***"

// DefaultRedactPatterns catch common credential assignments printed by programs.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|token|secret|password)\s*[:=]\s*\S+`,
	`\bsk-[A-Za-z0-9]{16,}\b`,
}

type redactionMiddleware struct {
	next     ports.WorkspaceStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks console text matching any pattern
// before it is persisted. The in-memory workspace is not modified.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.WorkspaceStore) ports.WorkspaceStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, ws *domain.Workspace) error {
	cloned := ws.Snapshot()
	for i, rec := range cloned.Console {
		cloned.Console[i].Text = m.mask(rec.Text)
	}
	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, id string) (*domain.Workspace, error) {
	return m.next.Load(ctx, id)
}

func (m *redactionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) mask(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, Mask)
	}
	return text
}
