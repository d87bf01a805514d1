package routes

import (
	"encoding/json"
	"strings"

	"github.com/prasenjit/route-explorer/internal/models"
)

// PlaceholderToken is sent as the bearer token in templates for private methods
const PlaceholderToken = "YOUR_TOKEN_HERE"

// DefaultHeaders returns the JSON headers every test request starts from
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

// BuildTestTemplate prepares a test request for one method of a route. An
// empty method selects the first declared verb in canonical order.
func BuildTestTemplate(route models.Route, method string, gen *ExampleGenerator) (*models.TestTemplate, error) {
	if gen == nil {
		gen = NewExampleGenerator(nil)
	}

	method = strings.ToUpper(method)
	if method == "" {
		names := route.MethodNames()
		if len(names) == 0 {
			return nil, models.NewNotFoundError("Route %s has no methods", route.Pattern)
		}
		method = names[0]
	}
	md, ok := route.Methods[method]
	if !ok {
		return nil, models.NewNotFoundError("Method %s is not registered for %s", method, route.Pattern)
	}

	tpl := &models.TestTemplate{
		URL:             route.ExampleURL,
		Method:          method,
		Headers:         DefaultHeaders(),
		QueryParameters: make(map[string]any),
	}
	if !md.IsPublic {
		tpl.Headers["Authorization"] = "Bearer " + PlaceholderToken
	}

	if models.HasBody(method) {
		body := make(map[string]any)
		for _, p := range md.RequiredParameters() {
			body[p.Name] = gen.ParameterValue(p)
		}
		data, err := json.MarshalIndent(body, "", "    ")
		if err != nil {
			return nil, err
		}
		tpl.Body = string(data)
	}

	for _, p := range md.OptionalParameters() {
		if p.IsScalar() {
			tpl.QueryParameters[p.Name] = gen.ParameterValue(p)
		}
	}
	return tpl, nil
}
