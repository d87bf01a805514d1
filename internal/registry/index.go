package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/prasenjit/route-explorer/internal/models"
)

// unresolvedPermission marks methods whose predicate the index does not expose
const unresolvedPermission = "unresolved"

// IndexProvider reads a WordPress-style REST index document over HTTP
type IndexProvider struct {
	url    string
	client *http.Client
}

// NewIndexProvider creates a provider for the index served at url
func NewIndexProvider(url string, client *http.Client) *IndexProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &IndexProvider{url: url, client: client}
}

func (p *IndexProvider) fetch(ctx context.Context) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("invalid index URL: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to fetch REST index: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read REST index: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("REST index returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("REST index is not valid JSON")
	}
	return gjson.ParseBytes(body), nil
}

// GetRoutes returns the routes listed by the index. Every method gets a
// custom permission because the index does not publish predicates.
func (p *IndexProvider) GetRoutes(ctx context.Context) (map[string]models.RawRoute, error) {
	doc, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return parseIndexRoutes(doc), nil
}

// Site returns the site metadata advertised by the index
func (p *IndexProvider) Site(ctx context.Context) (models.SiteInfo, error) {
	doc, err := p.fetch(ctx)
	if err != nil {
		return models.SiteInfo{}, err
	}
	return models.SiteInfo{
		Name:        doc.Get("name").String(),
		Description: doc.Get("description").String(),
		HomeURL:     doc.Get("home").String(),
		RESTBaseURL: p.url,
	}, nil
}

func parseIndexRoutes(doc gjson.Result) map[string]models.RawRoute {
	routes := make(map[string]models.RawRoute)

	doc.Get("routes").ForEach(func(key, route gjson.Result) bool {
		pattern := key.String()
		raw := models.RawRoute{Pattern: pattern}

		endpoints := route.Get("endpoints")
		if endpoints.Exists() {
			raw.Methods = make(map[string]models.RawMethod)
		}
		endpoints.ForEach(func(_, ep gjson.Result) bool {
			args := parseIndexArgs(ep.Get("args"))
			ep.Get("methods").ForEach(func(_, m gjson.Result) bool {
				verb := strings.ToUpper(m.String())
				if _, seen := raw.Methods[verb]; !seen {
					raw.Methods[verb] = models.RawMethod{
						Permission: models.CustomPermission(unresolvedPermission),
						Args:       args,
					}
				}
				return true
			})
			return true
		})

		routes[pattern] = raw
		return true
	})
	return routes
}

func parseIndexArgs(args gjson.Result) models.ArgList {
	if !args.IsObject() {
		return nil
	}
	var out models.ArgList
	args.ForEach(func(name, arg gjson.Result) bool {
		schema := models.ArgSchema{
			Name:        name.String(),
			Type:        schemaType(arg.Get("type")),
			Required:    arg.Get("required").Bool(),
			Description: arg.Get("description").String(),
		}
		if v := arg.Get("default"); v.Exists() {
			schema.Default = v.Value()
		}
		if v := arg.Get("enum"); v.IsArray() {
			schema.Enum, _ = v.Value().([]any)
		}
		schema.Minimum = floatPtr(arg.Get("minimum"))
		schema.Maximum = floatPtr(arg.Get("maximum"))
		schema.MinLength = intPtr(arg.Get("minLength"))
		schema.MaxLength = intPtr(arg.Get("maxLength"))
		out = append(out, schema)
		return true
	})
	return out
}

// schemaType picks the first non-null entry of a union type
func schemaType(t gjson.Result) string {
	if !t.IsArray() {
		return t.String()
	}
	for _, v := range t.Array() {
		if s := v.String(); s != "null" {
			return s
		}
	}
	return ""
}

func floatPtr(v gjson.Result) *float64 {
	if !v.Exists() || v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

func intPtr(v gjson.Result) *int {
	if !v.Exists() || v.Type != gjson.Number {
		return nil
	}
	i := int(v.Int())
	return &i
}
