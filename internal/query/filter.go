package query

import (
	"strings"

	"github.com/starford/laguz/internal/property"
)

// Operator names a filter predicate.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpGreaterThan    Operator = "greater_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessThan       Operator = "less_than"
	OpLessOrEqual    Operator = "less_or_equal"
	OpStartsWith     Operator = "starts_with"
	OpEndsWith       Operator = "ends_with"
	OpIsEmpty        Operator = "is_empty"
	OpIsNotEmpty     Operator = "is_not_empty"
)

// Valid reports whether op is a recognized operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpNotContains,
		OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
		OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// Filter is one predicate over a named property.
type Filter struct {
	Property string   `yaml:"property" json:"property"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    string   `yaml:"value" json:"value"`
}

// FilterGroup combines filters. Logic is "and" (default) or "or".
type FilterGroup struct {
	Filters []Filter `yaml:"filters" json:"filters"`
	Logic   string   `yaml:"logic,omitempty" json:"logic,omitempty"`
}

// Matches evaluates the group against one note. An empty group matches
// everything.
func (g FilterGroup) Matches(n *NoteWithProperties) bool {
	if len(g.Filters) == 0 {
		return true
	}
	or := strings.EqualFold(g.Logic, "or")
	for _, f := range g.Filters {
		ok := f.Matches(n)
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	return !or
}

// Matches evaluates one filter. Predicates never error: a comparison that
// cannot be made is simply false.
func (f Filter) Matches(n *NoteWithProperties) bool {
	v := n.Get(f.Property)

	switch f.Operator {
	case OpIsEmpty:
		return v.IsEmpty()
	case OpIsNotEmpty:
		return !v.IsEmpty()
	}

	// A missing or empty value can only satisfy the emptiness operators.
	if v.IsEmpty() {
		return false
	}

	switch f.Operator {
	case OpEquals:
		return strings.EqualFold(v.String(), f.Value)
	case OpNotEquals:
		return !strings.EqualFold(v.String(), f.Value)
	case OpContains:
		return contains(v, f.Value)
	case OpNotContains:
		return !contains(v, f.Value)
	case OpGreaterThan:
		return compare(v, f.Value, func(c int) bool { return c > 0 })
	case OpGreaterOrEqual:
		return compare(v, f.Value, func(c int) bool { return c >= 0 })
	case OpLessThan:
		return compare(v, f.Value, func(c int) bool { return c < 0 })
	case OpLessOrEqual:
		return compare(v, f.Value, func(c int) bool { return c <= 0 })
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(v.String()), strings.ToLower(f.Value))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(v.String()), strings.ToLower(f.Value))
	}
	return false
}

// contains is set membership for list kinds and case-insensitive substring
// for scalars.
func contains(v property.Value, want string) bool {
	switch v.Kind {
	case property.KindList, property.KindTags, property.KindLinks:
		for _, item := range v.Items {
			if strings.EqualFold(item, want) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(strings.ToLower(v.String()), strings.ToLower(want))
	}
}

// compare orders v against the filter literal. Numbers compare numerically,
// dates lexicographically; anything else cannot be ordered.
func compare(v property.Value, want string, ok func(int) bool) bool {
	if a, aok := v.AsNumber(); aok {
		b, bok := property.Infer(want).AsNumber()
		if !bok {
			return false
		}
		switch {
		case a < b:
			return ok(-1)
		case a > b:
			return ok(1)
		default:
			return ok(0)
		}
	}
	if v.Kind == property.KindDate || v.Kind == property.KindDateTime {
		w := property.Infer(want)
		if w.Kind != property.KindDate && w.Kind != property.KindDateTime {
			return false
		}
		return ok(strings.Compare(v.Text, w.Text))
	}
	return false
}
