package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/route-explorer/internal/models"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer("https://example.com/wp-json/", NewExampleGenerator(fixedClock))
}

func TestNamespace(t *testing.T) {
	tests := map[string]string{
		"/wp/v2/posts":        "wp/v2",
		"wp/v2":               "wp/v2",
		"/oembed/1.0/embed/":  "oembed/1.0",
		"/":                   "unknown",
		"":                    "unknown",
		"/batch":              "unknown",
		"//double//slash":     "double/slash",
		"/shop/v1/{order_id}": "shop/v1",
	}
	for pattern, want := range tests {
		assert.Equal(t, want, Namespace(pattern), pattern)
	}
}

func TestNormalizeRoute(t *testing.T) {
	raw := models.RawRoute{
		Pattern:     `/wp/v2/posts/(?P<id>[\d]+)`,
		Description: "A single post",
		Methods: map[string]models.RawMethod{
			"get": {
				Callback:   "get_item",
				Permission: models.AllowAll(),
				Args: models.ArgList{
					{Name: "id", Type: "integer", Description: "Unique identifier"},
					{Name: "context", Type: "string", Default: "view"},
				},
			},
			"DELETE": {
				Permission: models.CustomPermission("delete_item_permissions_check"),
				Args:       models.ArgList{{Name: "force", Type: "boolean"}},
			},
		},
	}

	route := newTestNormalizer().Normalize(raw)

	assert.Equal(t, raw.Pattern, route.Pattern)
	assert.Equal(t, "wp/v2", route.Namespace)
	assert.Equal(t, "A single post", route.Description)
	assert.True(t, route.IsPublic)
	assert.Equal(t, "https://example.com/wp-json/wp/v2/posts/123", route.ExampleURL)

	require.Len(t, route.PathParameters, 1)
	assert.Equal(t, models.RouteParameter{Name: "id", Type: "string", Required: true}, route.PathParameters[0])

	require.Contains(t, route.Methods, "GET")
	get := route.Methods["GET"]
	assert.True(t, get.IsPublic)
	assert.Equal(t, "GET", get.HTTPMethod)
	require.Len(t, get.Parameters, 1, "path parameters are not repeated on methods")
	assert.Equal(t, "context", get.Parameters[0].Name)

	del := route.Methods["DELETE"]
	assert.False(t, del.IsPublic)
	assert.Equal(t, models.PermissionCustom, del.Permission.Kind)
	require.Len(t, del.Parameters, 1)
	assert.Equal(t, "boolean", del.Parameters[0].Type)
}

func TestNormalizePublicRules(t *testing.T) {
	tests := []struct {
		name    string
		methods map[string]models.RawMethod
		public  bool
	}{
		{"absent permission", map[string]models.RawMethod{"GET": {}}, true},
		{"always allow", map[string]models.RawMethod{"GET": {Permission: models.AllowAll()}}, true},
		{"always deny", map[string]models.RawMethod{"GET": {Permission: models.DenyAll()}}, false},
		{"custom only", map[string]models.RawMethod{"POST": {Permission: models.CustomPermission("x")}}, false},
		{"one public method is enough", map[string]models.RawMethod{
			"POST": {Permission: models.CustomPermission("x")},
			"GET":  {Permission: models.AllowAll()},
		}, true},
		{"no methods", nil, false},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := n.Normalize(models.RawRoute{Pattern: "/a/b", Methods: tt.methods})
			assert.Equal(t, tt.public, route.IsPublic)
		})
	}
}

func TestNormalizeWithoutMethods(t *testing.T) {
	route := newTestNormalizer().Normalize(models.RawRoute{Pattern: "/wp/v2"})

	assert.Empty(t, route.Methods)
	assert.False(t, route.IsPublic)
	assert.Equal(t, "wp/v2", route.Namespace)
}

func TestNormalizeDropsUnknownVerbs(t *testing.T) {
	route := newTestNormalizer().Normalize(models.RawRoute{
		Pattern: "/a/b",
		Methods: map[string]models.RawMethod{"GET": {}, "PURGE": {}},
	})
	assert.Equal(t, []string{"GET"}, route.MethodNames())
}

func TestNormalizeMergesVerbSpellings(t *testing.T) {
	raw := models.RawRoute{
		Pattern: "/a/b",
		Methods: map[string]models.RawMethod{
			"get": {Permission: models.AllowAll()},
			"GET": {Permission: models.CustomPermission("read_check")},
		},
	}
	n := newTestNormalizer()
	for i := 0; i < 20; i++ {
		route := n.Normalize(raw)
		require.Equal(t, []string{"GET"}, route.MethodNames())
		assert.False(t, route.Methods["GET"].IsPublic)
		assert.Equal(t, models.CustomPermission("read_check"), route.Methods["GET"].Permission)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := models.RawRoute{
		Pattern: "/wp/v2/posts/{id}/revisions/{date}",
		Methods: map[string]models.RawMethod{
			"GET":  {Args: models.ArgList{{Name: "per_page", Type: "integer"}, {Name: "page", Type: "integer"}}},
			"POST": {Permission: models.CustomPermission("cb")},
		},
	}
	n := newTestNormalizer()
	assert.Equal(t, n.Normalize(raw), n.Normalize(raw))
}

func TestExampleURL(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name      string
		pattern   string
		namespace string
		want      string
	}{
		{"namespace prefix not duplicated", "/wp/v2/posts", "wp/v2", "https://example.com/wp-json/wp/v2/posts"},
		{"namespace root", "/wp/v2", "wp/v2", "https://example.com/wp-json/wp/v2"},
		{"relative pattern gets namespace", "posts/{slug}", "wp/v2", "https://example.com/wp-json/wp/v2/posts/example-slug"},
		{"unknown namespace", "/", "unknown", "https://example.com/wp-json/"},
		{"capture groups substituted", `/wc/v3/orders/(?P<order_id>[\d]+)/notes/(?P<type>\w+)`, "wc/v3", "https://example.com/wp-json/wc/v3/orders/123/notes/post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.ExampleURL(tt.pattern, tt.namespace))
		})
	}
}
