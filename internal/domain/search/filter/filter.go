package filter

import (
	"fmt"
	"strings"

	"github.com/docusmart/blacklab/internal/domain"
	"github.com/docusmart/blacklab/internal/domain/hit"
	"github.com/docusmart/blacklab/internal/results"
)

// MaxConditions is the maximum number of conditions per request.
const MaxConditions = 8

// Expression is a conjunction of conditions, applied in order.
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(conditions ...Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d): %w", MaxConditions, domain.ErrInvalidQuery)
	}
	return Expression{conditions: conditions}, nil
}

// Conditions returns the conditions in application order.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Condition keeps hits whose property has exactly one value.
type Condition struct {
	property hit.Property
	value    results.PropertyValue
}

// NewMatch creates an exact property match condition.
func NewMatch(property hit.Property, value string) (Condition, error) {
	if property == nil {
		return Condition{}, fmt.Errorf("filter property is required: %w", domain.ErrInvalidQuery)
	}
	value = strings.Join(strings.Fields(strings.ToLower(value)), " ")
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for %q: %w", property.Name(), domain.ErrInvalidQuery)
	}
	return Condition{property: property, value: results.PropertyValue(value)}, nil
}

// Parse reads a condition written as "property=value", e.g. "left:2=the old".
func Parse(s string) (Condition, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return Condition{}, fmt.Errorf("filter %q: expected property=value: %w", s, domain.ErrInvalidQuery)
	}
	prop, err := hit.ParseProperty(name)
	if err != nil {
		return Condition{}, err
	}
	return NewMatch(prop, value)
}

// Property returns the hit property compared.
func (c Condition) Property() hit.Property { return c.property }

// Value returns the normalized value hits must have.
func (c Condition) Value() results.PropertyValue { return c.value }

func (c Condition) String() string {
	return c.property.Name() + "=" + string(c.value)
}
