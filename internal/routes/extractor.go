package routes

import (
	"strings"

	"github.com/prasenjit/route-explorer/internal/models"
)

// PlaceholderNames returns the distinct placeholder names embedded in a route
// pattern, in first-seen order. Both {name} and (?P<name>...) are recognised
// in a single pass; malformed placeholders are skipped.
func PlaceholderNames(pattern string) []string {
	var names []string
	seen := make(map[string]bool)
	RewritePlaceholders(pattern, func(name string) string {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return ""
	})
	return names
}

// RewritePlaceholders replaces every placeholder in pattern with the output
// of fn, leaving the rest of the pattern untouched.
func RewritePlaceholders(pattern string, fn func(name string) string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); {
		switch {
		case pattern[i] == '{':
			if name, end, ok := scanBrace(pattern, i); ok {
				b.WriteString(fn(name))
				i = end
				continue
			}
		case pattern[i] == '(' && strings.HasPrefix(pattern[i:], "(?P<"):
			if name, end, ok := scanCapture(pattern, i); ok {
				b.WriteString(fn(name))
				i = end
				continue
			}
		}
		b.WriteByte(pattern[i])
		i++
	}
	return b.String()
}

// ExtractParameters merges the placeholders of pattern with a declared
// argument schema. Schema entries override the string/required default of a
// placeholder; schema-only names are appended in schema order.
func ExtractParameters(pattern string, args models.ArgList) []models.RouteParameter {
	params := make([]models.RouteParameter, 0)
	inPattern := make(map[string]bool)

	for _, name := range PlaceholderNames(pattern) {
		inPattern[name] = true
		if arg, ok := args.Lookup(name); ok {
			params = append(params, fromSchema(arg))
			continue
		}
		params = append(params, pathParameter(name))
	}

	seen := make(map[string]bool)
	for _, arg := range args {
		if arg.Name == "" || inPattern[arg.Name] || seen[arg.Name] {
			continue
		}
		seen[arg.Name] = true
		params = append(params, fromSchema(arg))
	}
	return params
}

// PathParameters returns the pattern's placeholders as required strings
func PathParameters(pattern string) []models.RouteParameter {
	params := make([]models.RouteParameter, 0)
	for _, name := range PlaceholderNames(pattern) {
		params = append(params, pathParameter(name))
	}
	return params
}

func pathParameter(name string) models.RouteParameter {
	return models.RouteParameter{
		Name:     name,
		Type:     models.TypeString,
		Required: true,
	}
}

func fromSchema(arg models.ArgSchema) models.RouteParameter {
	return models.RouteParameter{
		Name:        arg.Name,
		Type:        models.NormalizeType(arg.Type),
		Required:    arg.Required,
		Default:     arg.Default,
		Description: arg.Description,
		Enum:        arg.Enum,
		Minimum:     arg.Minimum,
		Maximum:     arg.Maximum,
		MinLength:   arg.MinLength,
		MaxLength:   arg.MaxLength,
	}
}

// scanBrace matches {ident} starting at i. Regex quantifiers such as {2,3}
// are not identifiers and do not match.
func scanBrace(s string, i int) (string, int, bool) {
	j := i + 1
	for j < len(s) && isIdentByte(s[j], j == i+1) {
		j++
	}
	if j == i+1 || j >= len(s) || s[j] != '}' {
		return "", 0, false
	}
	return s[i+1 : j], j + 1, true
}

// scanCapture matches (?P<ident>...) starting at i, honouring nested
// parentheses and escapes inside the group body.
func scanCapture(s string, i int) (string, int, bool) {
	start := i + len("(?P<")
	j := start
	for j < len(s) && isIdentByte(s[j], j == start) {
		j++
	}
	if j == start || j >= len(s) || s[j] != '>' {
		return "", 0, false
	}
	name := s[start:j]

	depth := 1
	inClass := false
	for k := j + 1; k < len(s); k++ {
		switch c := s[k]; {
		case c == '\\':
			k++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return name, k + 1, true
			}
		}
	}
	return "", 0, false
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9', c == '-':
		return !first
	}
	return false
}
