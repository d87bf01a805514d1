package routes

import (
	"strings"
	"time"

	"github.com/prasenjit/route-explorer/internal/models"
)

// Clock returns the current time
type Clock func() time.Time

// ExampleGenerator produces representative parameter values
type ExampleGenerator struct {
	now Clock
}

// NewExampleGenerator creates a generator. A nil clock uses time.Now.
func NewExampleGenerator(now Clock) *ExampleGenerator {
	if now == nil {
		now = time.Now
	}
	return &ExampleGenerator{now: now}
}

type nameRule struct {
	substr string
	value  func(g *ExampleGenerator) any
}

// Checked in order; the first matching substring wins.
var nameRules = []nameRule{
	{"id", func(*ExampleGenerator) any { return 123 }},
	{"slug", func(*ExampleGenerator) any { return "example-slug" }},
	{"email", func(*ExampleGenerator) any { return "user@example.com" }},
	{"url", func(*ExampleGenerator) any { return "https://example.com" }},
	{"date", func(g *ExampleGenerator) any { return g.now().Format("2006-01-02") }},
	{"time", func(g *ExampleGenerator) any { return g.now().Format("15:04:05") }},
	{"status", func(*ExampleGenerator) any { return "publish" }},
	{"type", func(*ExampleGenerator) any { return "post" }},
	{"password", func(*ExampleGenerator) any { return "password123" }},
	{"token", func(*ExampleGenerator) any { return "token123" }},
}

// Value returns an example value for a parameter. Name heuristics take
// priority over the declared type.
func (g *ExampleGenerator) Value(name, typ string) any {
	lower := strings.ToLower(name)
	for _, r := range nameRules {
		if strings.Contains(lower, r.substr) {
			return r.value(g)
		}
	}

	switch models.NormalizeType(typ) {
	case models.TypeInteger:
		return 123
	case models.TypeNumber:
		return 123.45
	case models.TypeBoolean:
		return true
	case models.TypeArray:
		return []any{"item1", "item2"}
	case models.TypeObject:
		return map[string]any{"key": "value"}
	default:
		return "example_value"
	}
}

// ParameterValue is Value applied to a RouteParameter
func (g *ExampleGenerator) ParameterValue(p models.RouteParameter) any {
	return g.Value(p.Name, p.Type)
}
