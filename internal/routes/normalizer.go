package routes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prasenjit/route-explorer/internal/models"
)

// Normalizer converts raw registry entries into Route values
type Normalizer struct {
	baseURL  string
	examples *ExampleGenerator
}

// NewNormalizer creates a normalizer that builds example URLs under baseURL
func NewNormalizer(baseURL string, examples *ExampleGenerator) *Normalizer {
	if examples == nil {
		examples = NewExampleGenerator(nil)
	}
	return &Normalizer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		examples: examples,
	}
}

// Examples returns the generator used for example values
func (n *Normalizer) Examples() *ExampleGenerator {
	return n.examples
}

// Namespace returns the first two non-empty segments of a pattern joined by
// "/", or "unknown" when there are fewer than two.
func Namespace(pattern string) string {
	parts := make([]string, 0, 2)
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
		if len(parts) == 2 {
			return parts[0] + "/" + parts[1]
		}
	}
	return models.UnknownNamespace
}

// Normalize builds the Route for one raw entry. Unknown verbs are dropped and
// a missing methods mapping yields a route with no methods.
func (n *Normalizer) Normalize(raw models.RawRoute) models.Route {
	route := models.Route{
		Pattern:        raw.Pattern,
		Namespace:      Namespace(raw.Pattern),
		Description:    raw.Description,
		Methods:        make(map[string]models.MethodDescriptor, len(raw.Methods)),
		PathParameters: PathParameters(raw.Pattern),
	}

	pathNames := make(map[string]bool, len(route.PathParameters))
	for _, p := range route.PathParameters {
		pathNames[p.Name] = true
	}

	// keys are visited in sorted order so that "GET" beats "get" every time
	keys := make([]string, 0, len(raw.Methods))
	for k := range raw.Methods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		def := raw.Methods[key]
		verb := strings.ToUpper(strings.TrimSpace(key))
		if !models.IsHTTPMethod(verb) {
			continue
		}
		if _, dup := route.Methods[verb]; dup {
			continue
		}

		params := make([]models.RouteParameter, 0)
		for _, p := range ExtractParameters(raw.Pattern, def.Args) {
			if !pathNames[p.Name] {
				params = append(params, p)
			}
		}

		md := models.MethodDescriptor{
			HTTPMethod: verb,
			IsPublic:   def.Permission.IsPublic(),
			Callback:   def.Callback,
			Permission: def.Permission,
			Parameters: params,
		}
		if md.Permission.Kind == "" {
			md.Permission.Kind = models.PermissionAbsent
		}
		route.Methods[verb] = md
		route.IsPublic = route.IsPublic || md.IsPublic
	}

	route.ExampleURL = n.ExampleURL(raw.Pattern, route.Namespace)
	return route
}

// ExampleURL joins the base URL, namespace and pattern, substituting each
// placeholder with its example value. The namespace is not repeated when the
// pattern already starts with it.
func (n *Normalizer) ExampleURL(pattern, namespace string) string {
	path := strings.TrimLeft(pattern, "/")
	if namespace != models.UnknownNamespace && path != namespace && !strings.HasPrefix(path, namespace+"/") {
		path = namespace + "/" + path
	}
	path = RewritePlaceholders(path, func(name string) string {
		return fmt.Sprint(n.examples.Value(name, models.TypeString))
	})
	return n.baseURL + "/" + path
}
