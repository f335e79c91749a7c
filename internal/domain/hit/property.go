package hit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/results"
)

// Property names.
const (
	PropDoc   = "doc"
	PropHit   = "hit"
	PropLeft  = "left"
	PropRight = "right"
)

// MaxContextSize bounds how many tokens left/right properties may look at.
const MaxContextSize = 10

// Property is a hit property usable by filters and grouping.
type Property = results.Property[Hit]

// Doc is the document id.
type Doc struct{}

func (Doc) Name() string     { return PropDoc }
func (Doc) ContextSize() int { return 0 }

func (Doc) Value(h Hit, _ *results.Context) results.PropertyValue {
	return results.PropertyValue(strconv.Itoa(h.Doc))
}

// Text is the matched text.
type Text struct{}

func (Text) Name() string     { return PropHit }
func (Text) ContextSize() int { return 1 }

func (Text) Value(_ Hit, c *results.Context) results.PropertyValue {
	if c == nil {
		return ""
	}
	return join(c.Match)
}

// Left is the n tokens before the hit, nearest last.
type Left struct{ N int }

func (p Left) Name() string     { return named(PropLeft, p.N) }
func (p Left) ContextSize() int { return p.N }

func (p Left) Value(_ Hit, c *results.Context) results.PropertyValue {
	if c == nil {
		return ""
	}
	return join(c.Left[max(len(c.Left)-p.N, 0):])
}

// Right is the n tokens after the hit.
type Right struct{ N int }

func (p Right) Name() string     { return named(PropRight, p.N) }
func (p Right) ContextSize() int { return p.N }

func (p Right) Value(_ Hit, c *results.Context) results.PropertyValue {
	if c == nil {
		return ""
	}
	return join(c.Right[:min(p.N, len(c.Right))])
}

func join(tokens []string) results.PropertyValue {
	return results.PropertyValue(strings.Join(tokens, " "))
}

func named(name string, n int) string {
	if n == 1 {
		return name
	}
	return name + ":" + strconv.Itoa(n)
}

// ParseProperty parses "doc", "hit", "left", "right", "left:N" or "right:N".
func ParseProperty(s string) (Property, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), ":")
	n := 1
	if hasArg {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 || v > MaxContextSize {
			return nil, fmt.Errorf("property %q: context size must be 1..%d: %w", s, MaxContextSize, domain.ErrInvalidQuery)
		}
		n = v
	}

	switch name {
	case PropDoc, PropHit:
		if hasArg {
			return nil, fmt.Errorf("property %q takes no argument: %w", name, domain.ErrInvalidQuery)
		}
		if name == PropDoc {
			return Doc{}, nil
		}
		return Text{}, nil
	case PropLeft:
		return Left{N: n}, nil
	case PropRight:
		return Right{N: n}, nil
	default:
		return nil, fmt.Errorf("unknown property %q: %w", name, domain.ErrInvalidQuery)
	}
}
