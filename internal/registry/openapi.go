package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/prasenjit/route-explorer/internal/models"
)

// OpenAPIProvider imports routes from an OpenAPI 3 document on disk or
// behind a URL
type OpenAPIProvider struct {
	source string
	client *http.Client
}

// NewOpenAPIProvider creates a provider for the document at source
func NewOpenAPIProvider(source string, client *http.Client) *OpenAPIProvider {
	return &OpenAPIProvider{source: source, client: client}
}

func (p *OpenAPIProvider) load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.Context = ctx
	if p.client != nil {
		loader.ReadFromURIFunc = openapi3.URIMapCache(openapi3.ReadFromURIs(openapi3.ReadFromHTTP(p.client), openapi3.ReadFromFile))
	}

	var (
		doc *openapi3.T
		err error
	)
	if u, perr := url.Parse(p.source); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		doc, err = loader.LoadFromURI(u)
	} else {
		doc, err = loader.LoadFromFile(p.source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return doc, nil
}

// ParseOpenAPI converts an already-loaded document into raw routes
func ParseOpenAPI(doc *openapi3.T) map[string]models.RawRoute {
	routes := make(map[string]models.RawRoute)
	if doc.Paths == nil {
		return routes
	}

	for pattern, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		raw := models.RawRoute{
			Pattern:     pattern,
			Description: item.Description,
			Methods:     make(map[string]models.RawMethod),
		}
		if raw.Description == "" {
			raw.Description = item.Summary
		}

		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			verb := strings.ToUpper(method)
			raw.Methods[verb] = models.RawMethod{
				Callback:   op.OperationID,
				Permission: operationPermission(doc, op),
				Args:       operationArgs(item, op),
			}
			if raw.Description == "" {
				raw.Description = op.Summary
			}
		}
		routes[pattern] = raw
	}
	return routes
}

// GetRoutes returns one raw route per path
func (p *OpenAPIProvider) GetRoutes(ctx context.Context) (map[string]models.RawRoute, error) {
	doc, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return ParseOpenAPI(doc), nil
}

// Site returns metadata from info and the first server entry
func (p *OpenAPIProvider) Site(ctx context.Context) (models.SiteInfo, error) {
	doc, err := p.load(ctx)
	if err != nil {
		return models.SiteInfo{}, err
	}

	info := models.SiteInfo{}
	if doc.Info != nil {
		info.Name = doc.Info.Title
		info.Description = doc.Info.Description
		if doc.Info.Contact != nil {
			info.HomeURL = doc.Info.Contact.URL
		}
	}
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		info.RESTBaseURL = doc.Servers[0].URL
		if info.HomeURL == "" {
			info.HomeURL = doc.Servers[0].URL
		}
	}
	return info, nil
}

// operationPermission maps security requirements onto a permission. An
// explicit empty list opts the operation out of security.
func operationPermission(doc *openapi3.T, op *openapi3.Operation) models.Permission {
	reqs := op.Security
	if reqs == nil {
		if len(doc.Security) == 0 {
			return models.Permission{Kind: models.PermissionAbsent}
		}
		reqs = &doc.Security
	}
	if len(*reqs) == 0 {
		return models.AllowAll()
	}

	var names []string
	for _, req := range *reqs {
		for name := range req {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		// security: [{}] means anonymous access is accepted
		return models.AllowAll()
	}
	sort.Strings(names)
	return models.CustomPermission(strings.Join(names, ","))
}

// operationArgs collects path and query parameters followed by the
// properties of a JSON request body
func operationArgs(item *openapi3.PathItem, op *openapi3.Operation) models.ArgList {
	var args models.ArgList
	seen := make(map[string]bool)

	params := append(openapi3.Parameters{}, item.Parameters...)
	params = append(params, op.Parameters...)
	for _, ref := range params {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		if p.In != openapi3.ParameterInPath && p.In != openapi3.ParameterInQuery {
			continue
		}
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		arg := models.ArgSchema{Name: p.Name, Required: p.Required, Description: p.Description}
		if p.Schema != nil && p.Schema.Value != nil {
			applySchema(&arg, p.Schema.Value)
		}
		args = append(args, arg)
	}

	body := jsonBodySchema(op)
	if body == nil {
		return args
	}
	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}
	names := make([]string, 0, len(body.Properties))
	for name := range body.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if seen[name] {
			continue
		}
		ref := body.Properties[name]
		arg := models.ArgSchema{Name: name, Required: required[name]}
		if ref != nil && ref.Value != nil {
			arg.Description = ref.Value.Description
			applySchema(&arg, ref.Value)
		}
		args = append(args, arg)
	}
	return args
}

func jsonBodySchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	for mediaType, content := range op.RequestBody.Value.Content {
		if strings.Contains(mediaType, "json") && content.Schema != nil && content.Schema.Value != nil {
			return content.Schema.Value
		}
	}
	return nil
}

func applySchema(arg *models.ArgSchema, s *openapi3.Schema) {
	if s.Type != nil {
		for _, t := range s.Type.Slice() {
			if t != openapi3.TypeNull {
				arg.Type = t
				break
			}
		}
	}
	if arg.Description == "" {
		arg.Description = s.Description
	}
	arg.Default = s.Default
	arg.Enum = s.Enum
	arg.Minimum = s.Min
	arg.Maximum = s.Max
	if s.MinLength > 0 {
		n := int(s.MinLength)
		arg.MinLength = &n
	}
	if s.MaxLength != nil {
		n := int(*s.MaxLength)
		arg.MaxLength = &n
	}
}
