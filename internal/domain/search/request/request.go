package request

import (
	"fmt"

	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/domain/search/filter"
	"github.com/docusmart/blacklab/internal/domain/search/mode"
	"github.com/docusmart/blacklab/internal/results"
)

// Search parameter limits.
const (
	// MaxPatternLength is the maximum allowed pattern length.
	MaxPatternLength = 1024
	DefaultPageSize  = 20
	MaxPageSize      = 1000
	DefaultGroupHits = 10
	MaxGroupHits     = 100
)

// Request is a validated hits query.
type Request struct {
	pattern   string
	view      mode.Mode
	filters   filter.Expression
	first     int
	number    int
	sample    *results.SampleParameters
	groupBy   hit.Property
	groupHits int
}

// New validates and normalizes search parameters.
// Defaults: mode=hits, number=20, groupHits=10. Number is clamped to MaxPageSize.
// A grouping property is required for, and only allowed with, mode=group.
func New(
	pattern string,
	m mode.Mode,
	filters filter.Expression,
	first, number int,
	sample *results.SampleParameters,
	groupBy hit.Property,
	groupHits int,
) (Request, error) {
	if pattern == "" {
		return Request{}, invalid("pattern is required")
	}
	if len(pattern) > MaxPatternLength {
		return Request{}, invalid("pattern too long (max %d chars)", MaxPatternLength)
	}
	if m == "" {
		m = mode.Hits
	}
	if !m.IsValid() {
		return Request{}, invalid("invalid view mode: %q", m)
	}
	if first < 0 {
		return Request{}, invalid("first must not be negative")
	}
	if number <= 0 {
		number = DefaultPageSize
	}
	if number > MaxPageSize {
		number = MaxPageSize
	}
	if sample != nil {
		if err := validateSample(*sample); err != nil {
			return Request{}, err
		}
	}
	if m == mode.Group && groupBy == nil {
		return Request{}, invalid("group_by is required for mode=group")
	}
	if m != mode.Group && groupBy != nil {
		return Request{}, invalid("group_by is only allowed with mode=group")
	}
	if groupHits < 0 {
		return Request{}, invalid("group_hits must not be negative")
	}
	if groupHits == 0 {
		groupHits = DefaultGroupHits
	}
	if groupHits > MaxGroupHits {
		groupHits = MaxGroupHits
	}

	return Request{
		pattern:   pattern,
		view:      m,
		filters:   filters,
		first:     first,
		number:    number,
		sample:    sample,
		groupBy:   groupBy,
		groupHits: groupHits,
	}, nil
}

func validateSample(p results.SampleParameters) error {
	switch {
	case p.Percentage != 0 && p.Number != 0:
		return invalid("sample takes either a percentage or a number, not both")
	case p.Percentage < 0 || p.Percentage > 1:
		return invalid("sample percentage must be between 0 and 100")
	case p.Number < 0:
		return invalid("sample number must not be negative")
	case p.Percentage == 0 && p.Number == 0:
		return invalid("sample needs a percentage or a number")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrInvalidQuery)
}

// Pattern returns the hit pattern.
func (r *Request) Pattern() string { return r.pattern }

// Mode returns what the request returns.
func (r *Request) Mode() mode.Mode { return r.view }

// Filters returns the hit filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// First returns the index of the first hit on the page.
func (r *Request) First() int { return r.first }

// Number returns the page size.
func (r *Request) Number() int { return r.number }

// Sample returns the sampling parameters, or nil to use every hit.
func (r *Request) Sample() *results.SampleParameters { return r.sample }

// GroupBy returns the grouping property (nil unless mode=group).
func (r *Request) GroupBy() hit.Property { return r.groupBy }

// GroupHits returns how many hits are kept per group.
func (r *Request) GroupHits() int { return r.groupHits }
