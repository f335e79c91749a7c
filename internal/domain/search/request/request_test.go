package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/domain/search/filter"
	"github.com/docusmart/blacklab/internal/domain/search/mode"
	"github.com/docusmart/blacklab/internal/results"
)

func emptyFilters() filter.Expression {
	e, _ := filter.NewExpression()
	return e
}

func TestNew_Defaults(t *testing.T) {
	r, err := New("the fox", "", emptyFilters(), 0, 0, nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Pattern() != "the fox" {
		t.Errorf("Pattern() = %q", r.Pattern())
	}
	if r.Mode() != mode.Hits {
		t.Errorf("Mode() = %q, want hits (default)", r.Mode())
	}
	if r.First() != 0 {
		t.Errorf("First() = %d", r.First())
	}
	if r.Number() != DefaultPageSize {
		t.Errorf("Number() = %d, want %d", r.Number(), DefaultPageSize)
	}
	if r.GroupHits() != DefaultGroupHits {
		t.Errorf("GroupHits() = %d, want %d", r.GroupHits(), DefaultGroupHits)
	}
	if r.Sample() != nil {
		t.Error("Sample() != nil")
	}
	if r.GroupBy() != nil {
		t.Error("GroupBy() != nil")
	}
}

func TestNew_EmptyPattern(t *testing.T) {
	_, err := New("", mode.Hits, emptyFilters(), 0, 10, nil, nil, 0)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("error = %v, want ErrInvalidQuery", err)
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q", err)
	}
}

func TestNew_PatternLength(t *testing.T) {
	if _, err := New(strings.Repeat("x", MaxPatternLength), mode.Hits, emptyFilters(), 0, 10, nil, nil, 0); err != nil {
		t.Fatalf("unexpected error at max length: %v", err)
	}
	_, err := New(strings.Repeat("x", MaxPatternLength+1), mode.Hits, emptyFilters(), 0, 10, nil, nil, 0)
	if err == nil || !strings.Contains(err.Error(), "too long") {
		t.Errorf("error = %v, want too long", err)
	}
}

func TestNew_InvalidMode(t *testing.T) {
	_, err := New("fox", "docs", emptyFilters(), 0, 10, nil, nil, 0)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestNew_NegativeFirst(t *testing.T) {
	_, err := New("fox", mode.Hits, emptyFilters(), -1, 10, nil, nil, 0)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestNew_NumberClamping(t *testing.T) {
	tests := []struct {
		name   string
		number int
		want   int
	}{
		{"negative", -1, DefaultPageSize},
		{"zero", 0, DefaultPageSize},
		{"normal", 50, 50},
		{"over max", 5000, MaxPageSize},
		{"exactly max", MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New("fox", mode.Hits, emptyFilters(), 0, tt.number, nil, nil, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Number() != tt.want {
				t.Errorf("Number() = %d, want %d", r.Number(), tt.want)
			}
		})
	}
}

func TestNew_Sample(t *testing.T) {
	valid := []results.SampleParameters{
		{Percentage: 0.5},
		{Percentage: 1, Seed: 7},
		{Number: 10},
	}
	for _, p := range valid {
		if _, err := New("fox", mode.Hits, emptyFilters(), 0, 10, &p, nil, 0); err != nil {
			t.Errorf("unexpected error for %v: %v", p, err)
		}
	}

	invalid := []results.SampleParameters{
		{},
		{Percentage: 0.5, Number: 3},
		{Percentage: 1.5},
		{Percentage: -0.1},
		{Number: -1},
	}
	for _, p := range invalid {
		_, err := New("fox", mode.Hits, emptyFilters(), 0, 10, &p, nil, 0)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("sample %+v: error = %v, want ErrInvalidQuery", p, err)
		}
	}
}

func TestNew_Grouping(t *testing.T) {
	r, err := New("fox", mode.Group, emptyFilters(), 0, 10, nil, hit.Left{N: 2}, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.GroupBy().Name() != "left:2" {
		t.Errorf("GroupBy() = %q", r.GroupBy().Name())
	}
	if r.GroupHits() != MaxGroupHits {
		t.Errorf("GroupHits() = %d, want %d", r.GroupHits(), MaxGroupHits)
	}

	if _, err := New("fox", mode.Group, emptyFilters(), 0, 10, nil, nil, 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("missing group_by: error = %v", err)
	}
	if _, err := New("fox", mode.Hits, emptyFilters(), 0, 10, nil, hit.Doc{}, 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("group_by with mode=hits: error = %v", err)
	}
	if _, err := New("fox", mode.Group, emptyFilters(), 0, 10, nil, hit.Doc{}, -1); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("negative group_hits: error = %v", err)
	}
}

func TestNew_WithFilters(t *testing.T) {
	c, _ := filter.Parse("right=dog")
	expr, _ := filter.NewExpression(c)

	r, err := New("brown", mode.Count, expr, 0, 10, nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Filters().IsEmpty() {
		t.Error("Filters().IsEmpty() = true, want false")
	}
}
