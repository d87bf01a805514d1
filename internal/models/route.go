package models

import (
	"sort"
	"strings"
)

// Parameter types accepted in argument schemas
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// HTTP verbs known to the explorer, in canonical display order
var HTTPMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}

// UnknownNamespace is used when a pattern has fewer than two segments
const UnknownNamespace = "unknown"

// IsHTTPMethod reports whether method is one of the known verbs (case-sensitive, uppercase)
func IsHTTPMethod(method string) bool {
	for _, m := range HTTPMethods {
		if m == method {
			return true
		}
	}
	return false
}

// HasBody reports whether requests with this method carry a body
func HasBody(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

// NormalizeType maps an argument schema type onto one of the supported types.
// Unknown or empty types become string.
func NormalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case TypeInteger:
		return TypeInteger
	case TypeNumber:
		return TypeNumber
	case TypeBoolean:
		return TypeBoolean
	case TypeArray:
		return TypeArray
	case TypeObject:
		return TypeObject
	default:
		return TypeString
	}
}

// RouteParameter describes a single path, query or body parameter
type RouteParameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Description string   `json:"description"`
	Enum        []any    `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
}

// IsScalar reports whether the parameter can be sent as a plain query value
func (p RouteParameter) IsScalar() bool {
	switch p.Type {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// MethodDescriptor describes one HTTP method registered on a route
type MethodDescriptor struct {
	HTTPMethod string           `json:"method"`
	IsPublic   bool             `json:"isPublic"`
	Callback   string           `json:"callback,omitempty"`
	Permission Permission       `json:"permission"`
	Parameters []RouteParameter `json:"parameters"`
}

// RequiredParameters returns the required query/body parameters
func (m MethodDescriptor) RequiredParameters() []RouteParameter {
	out := make([]RouteParameter, 0)
	for _, p := range m.Parameters {
		if p.Required {
			out = append(out, p)
		}
	}
	return out
}

// OptionalParameters returns the optional query/body parameters
func (m MethodDescriptor) OptionalParameters() []RouteParameter {
	out := make([]RouteParameter, 0)
	for _, p := range m.Parameters {
		if !p.Required {
			out = append(out, p)
		}
	}
	return out
}

// Route is the normalized form of one registered route
type Route struct {
	Pattern        string                      `json:"pattern"`
	Namespace      string                      `json:"namespace"`
	Description    string                      `json:"description"`
	Methods        map[string]MethodDescriptor `json:"methods"`
	PathParameters []RouteParameter            `json:"pathParameters"`
	ExampleURL     string                      `json:"exampleUrl"`
	IsPublic       bool                        `json:"isPublic"`
}

// HasMethod reports whether the route accepts the given verb
func (r Route) HasMethod(method string) bool {
	_, ok := r.Methods[strings.ToUpper(method)]
	return ok
}

// MethodNames returns the route's verbs in canonical order. Verbs outside the
// known set are appended in the order they sort.
func (r Route) MethodNames() []string {
	names := make([]string, 0, len(r.Methods))
	for _, m := range HTTPMethods {
		if _, ok := r.Methods[m]; ok {
			names = append(names, m)
		}
	}
	if len(names) == len(r.Methods) {
		return names
	}
	var extra []string
	for m := range r.Methods {
		if !IsHTTPMethod(m) {
			extra = append(extra, m)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// NamespaceGroup is a set of routes sharing a namespace
type NamespaceGroup struct {
	Namespace string  `json:"namespace"`
	Routes    []Route `json:"routes"`
}

// RouteStats summarizes a route catalog
type RouteStats struct {
	TotalRoutes     int            `json:"totalRoutes"`
	PublicRoutes    int            `json:"publicRoutes"`
	PrivateRoutes   int            `json:"privateRoutes"`
	MethodsCount    map[string]int `json:"methodsCount"`
	NamespacesCount map[string]int `json:"namespacesCount"`
	TotalEndpoints  int            `json:"totalEndpoints"`
}

// SiteInfo holds host metadata used for example URLs and documentation
type SiteInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HomeURL     string `json:"homeUrl"`
	RESTBaseURL string `json:"restBaseUrl"`
}

// TestTemplate is a prefilled test request for a route
type TestTemplate struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	QueryParameters map[string]any    `json:"queryParameters"`
}
