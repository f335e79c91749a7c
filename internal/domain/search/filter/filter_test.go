package filter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/domain/hit"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		property string
		value    string
	}{
		{"doc=3", "doc", "3"},
		{"hit=Fox", "hit", "fox"},
		{"left:2=the  old", "left:2", "the old"},
		{" right = dog", "right", "dog"},
		{"right=a=b", "right", "a=b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Property().Name() != tt.property {
				t.Errorf("Property() = %q, want %q", c.Property().Name(), tt.property)
			}
			if string(c.Value()) != tt.value {
				t.Errorf("Value() = %q, want %q", c.Value(), tt.value)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "hit", "hit=", "hit=   ", "color=red", "left:0=the", "left:x=the"} {
		_, err := Parse(in)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidQuery", in, err)
		}
	}
}

func TestNewMatch_NilProperty(t *testing.T) {
	_, err := NewMatch(nil, "x")
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestNewExpression(t *testing.T) {
	e, err := NewExpression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsEmpty() {
		t.Error("IsEmpty() = false for no conditions")
	}

	c, _ := NewMatch(hit.Doc{}, "1")
	e, err = NewExpression(c, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Conditions()) != 2 {
		t.Errorf("Conditions() len = %d, want 2", len(e.Conditions()))
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditions+1)
	for i := range conds {
		conds[i], _ = NewMatch(hit.Doc{}, fmt.Sprint(i))
	}
	_, err := NewExpression(conds...)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestCondition_String(t *testing.T) {
	c, err := Parse("left:2=The Old")
	if err != nil {
		t.Fatal(err)
	}
	if c.String() != "left:2=the old" {
		t.Errorf("String() = %q", c.String())
	}
}
