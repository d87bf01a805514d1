package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/routes"
)

const (
	// Version is the info.version of every projected document
	Version = "1.0.0"

	// BearerScheme names the security scheme applied to private operations
	BearerScheme = "bearerAuth"
)

// Project builds an OpenAPI 3.0 document describing the catalog. Two
// patterns that map to the same path share one path item; the first route in
// pattern order keeps any method both declare.
func Project(catalog *routes.Catalog, site models.SiteInfo) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       strings.TrimSpace(site.Name + " API"),
			Description: site.Description,
			Version:     Version,
			Contact: &openapi3.Contact{
				Name: site.Name,
				URL:  site.HomeURL,
			},
		},
		Servers: openapi3.Servers{
			&openapi3.Server{URL: site.RESTBaseURL, Description: serverDescription(site)},
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				BearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}

	for _, route := range catalog.Sorted() {
		path := Path(route.Pattern)
		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		for _, method := range route.MethodNames() {
			if item.GetOperation(method) != nil {
				continue
			}
			item.SetOperation(method, Operation(route, route.Methods[method]))
		}
	}
	return doc
}

// Path converts a route pattern to an OpenAPI path template. Capture groups
// become {name}; brace placeholders are kept.
func Path(pattern string) string {
	return routes.RewritePlaceholders(pattern, func(name string) string {
		return "{" + name + "}"
	})
}

// Operation describes one method of a route
func Operation(route models.Route, md models.MethodDescriptor) *openapi3.Operation {
	method := md.HTTPMethod
	op := &openapi3.Operation{
		OperationID: OperationID(route.Pattern, method),
		Summary:     summary(route.Pattern, method),
		Description: fmt.Sprintf("Execute %s request to %s endpoint", method, route.Pattern),
		Parameters:  openapi3.NewParameters(),
		Responses:   responses(method),
		Tags:        []string{route.Namespace},
	}

	for _, p := range route.PathParameters {
		param := openapi3.NewPathParameter(p.Name).WithSchema(openapi3.NewStringSchema())
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}
	for _, p := range md.Parameters {
		param := openapi3.NewQueryParameter(p.Name).
			WithDescription(p.Description).
			WithSchema(Schema(p))
		param.Required = p.Required
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}

	if models.HasBody(method) {
		op.RequestBody = &openapi3.RequestBodyRef{Value: requestBody(md.Parameters)}
	}

	if !md.IsPublic {
		op.Security = &openapi3.SecurityRequirements{
			openapi3.NewSecurityRequirement().Authenticate(BearerScheme),
		}
	}
	return op
}

// Schema maps a parameter onto a JSON schema carrying its constraints
func Schema(p models.RouteParameter) *openapi3.Schema {
	var s *openapi3.Schema
	switch p.Type {
	case models.TypeInteger:
		s = openapi3.NewIntegerSchema()
	case models.TypeNumber:
		s = openapi3.NewFloat64Schema()
	case models.TypeBoolean:
		s = openapi3.NewBoolSchema()
	case models.TypeArray:
		s = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	case models.TypeObject:
		s = openapi3.NewObjectSchema()
	default:
		s = openapi3.NewStringSchema()
	}
	// Format is set by NewFloat64Schema; registry numbers carry no format
	s.Format = ""

	if p.Description != "" {
		s.Description = p.Description
	}
	s.Default = p.Default
	if len(p.Enum) > 0 {
		s.Enum = p.Enum
	}
	s.Min = p.Minimum
	s.Max = p.Maximum
	if p.MinLength != nil && *p.MinLength > 0 {
		s.MinLength = uint64(*p.MinLength)
	}
	if p.MaxLength != nil && *p.MaxLength >= 0 {
		n := uint64(*p.MaxLength)
		s.MaxLength = &n
	}
	return s
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// OperationID derives a stable identifier from the method and pattern
func OperationID(pattern, method string) string {
	return strings.ToLower(method) + "_" + strings.Trim(nonAlnum.ReplaceAllString(pattern, "_"), "_")
}

func serverDescription(site models.SiteInfo) string {
	if site.Name == "" {
		return ""
	}
	return site.Name + " REST API"
}

func summary(pattern, method string) string {
	parts := strings.Split(strings.Trim(Path(pattern), "/"), "/")
	last := parts[len(parts)-1]
	lower := strings.ToLower(method)
	if lower == "" {
		return last
	}
	return strings.ToUpper(lower[:1]) + lower[1:] + " " + last
}

func requestBody(params []models.RouteParameter) *openapi3.RequestBody {
	body := openapi3.NewObjectSchema()
	body.Properties = make(openapi3.Schemas, len(params))
	for _, p := range params {
		prop := &openapi3.Schema{Type: &openapi3.Types{p.Type}}
		if p.Description != "" {
			prop.Description = p.Description
		}
		body.Properties[p.Name] = openapi3.NewSchemaRef("", prop)
		if p.Required {
			body.Required = append(body.Required, p.Name)
		}
	}
	return openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(body)
}

var standardResponses = []struct {
	code        int
	description string
}{
	{http.StatusOK, "Successful response"},
	{http.StatusBadRequest, "Bad Request"},
	{http.StatusUnauthorized, "Unauthorized"},
	{http.StatusForbidden, "Forbidden"},
	{http.StatusNotFound, "Not Found"},
	{http.StatusInternalServerError, "Internal Server Error"},
}

func responses(method string) *openapi3.Responses {
	descriptions := make(map[int]string, len(standardResponses)+1)
	for _, r := range standardResponses {
		descriptions[r.code] = r.description
	}
	switch method {
	case http.MethodPost:
		descriptions[http.StatusCreated] = "Created"
	case http.MethodPut, http.MethodPatch:
		descriptions[http.StatusOK] = "Updated successfully"
	case http.MethodDelete:
		descriptions[http.StatusNoContent] = "Deleted successfully"
	}

	codes := make([]int, 0, len(descriptions))
	for code := range descriptions {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	opts := make([]openapi3.NewResponsesOption, 0, len(codes))
	for _, code := range codes {
		desc := descriptions[code]
		opts = append(opts, openapi3.WithStatus(code, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(desc),
		}))
	}
	return openapi3.NewResponses(opts...)
}

// JSON renders the document as indented JSON
func JSON(doc *openapi3.T) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// YAML renders the document as YAML, keeping the JSON key order
func YAML(doc *openapi3.T) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	// JSON input leaves flow and quoted styles on every node
	clearStyle(&node)
	return yaml.Marshal(&node)
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// Validate checks the document with kin-openapi. Host route patterns have no
// leading slash in some registries, so paths are validated with one added.
func Validate(ctx context.Context, doc *openapi3.T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	clone, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return fmt.Errorf("failed to reload document: %w", err)
	}

	paths := openapi3.NewPaths()
	for path, item := range clone.Paths.Map() {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		paths.Set(path, item)
	}
	clone.Paths = paths

	if err := clone.Validate(ctx); err != nil {
		return fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return nil
}
