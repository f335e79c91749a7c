package corpus

import (
	"fmt"
	"strings"

	"github.com/docusmart/blacklab/internal/domain"
)

// Wildcard matches any single token in a pattern.
const Wildcard = "_"

// MaxPatternTerms bounds the length of a phrase pattern.
const MaxPatternTerms = 16

type term struct {
	text    string
	any     bool
	capture string
}

// parsePattern parses a phrase of space-separated terms. A term may be
// prefixed with "name:" to capture its position as a named group; "_"
// matches any token.
func parsePattern(pattern string) ([]term, error) {
	fields := strings.Fields(pattern)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty pattern: %w", domain.ErrInvalidQuery)
	}
	if len(fields) > MaxPatternTerms {
		return nil, fmt.Errorf("pattern has %d terms (max %d): %w", len(fields), MaxPatternTerms, domain.ErrInvalidQuery)
	}

	terms := make([]term, 0, len(fields))
	seen := map[string]bool{}
	for _, f := range fields {
		var t term
		if name, text, ok := strings.Cut(f, ":"); ok {
			if name == "" || text == "" {
				return nil, fmt.Errorf("malformed term %q: %w", f, domain.ErrInvalidQuery)
			}
			if seen[name] {
				return nil, fmt.Errorf("duplicate group name %q: %w", name, domain.ErrInvalidQuery)
			}
			seen[name] = true
			t.capture, f = name, text
		}
		if f == Wildcard {
			t.any = true
		} else {
			toks := Tokenize(f)
			if len(toks) != 1 {
				return nil, fmt.Errorf("term %q is not a single token: %w", f, domain.ErrInvalidQuery)
			}
			t.text = toks[0]
		}
		terms = append(terms, t)
	}
	return terms, nil
}
