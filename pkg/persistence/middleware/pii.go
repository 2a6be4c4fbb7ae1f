package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// DefaultRedactPatterns match credentials that collaborator diagnostics tend to echo back.
// The first capture group is kept, the rest of the match is masked.
var DefaultRedactPatterns = []string{
	`(?i)((?:api[_-]?key|key|token|secret|password)=)[^&\s"']+`,
	`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`,
	`(?i)((?:ocp-apim-subscription-key|x-goog-api-key|api-key):\s*)\S+`,
}

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks secrets in the free-text fields of
// run records before they are persisted.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %d: %w", i, err)
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, r domain.RunRecord) error {
	r.Concept = m.mask(r.Concept)
	r.Message = m.mask(r.Message)
	return m.next.Save(ctx, r)
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	return m.next.List(ctx, limit)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		if p.NumSubexp() > 0 {
			s = p.ReplaceAllString(s, "${1}***")
		} else {
			s = p.ReplaceAllString(s, "***")
		}
	}
	return s
}
