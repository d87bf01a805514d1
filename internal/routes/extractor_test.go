package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/route-explorer/internal/models"
)

func TestPlaceholderNames(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"empty", "", nil},
		{"no placeholders", "/wp/v2/posts", nil},
		{"brace", "/shop/v1/orders/{order_id}/items/{item}", []string{"order_id", "item"}},
		{"capture", `/wp/v2/posts/(?P<id>[\d]+)`, []string{"id"}},
		{"mixed syntax", `/a/{parent}/(?P<id>[^/]+)/{slug}`, []string{"parent", "id", "slug"}},
		{"duplicates keep first", `/a/{id}/(?P<id>\d+)/{other}/{id}`, []string{"id", "other"}},
		{"nested groups", `/wp/v2/(?P<path>(?:[a-z]+/)*[a-z]+)/(?P<rev>\d+)`, []string{"path", "rev"}},
		{"class with paren", `/x/(?P<tok>[)(]+)/y`, []string{"tok"}},
		{"unmatched brace ignored", "/a/{broken/b/{ok}", []string{"ok"}},
		{"unterminated capture ignored", "/a/(?P<id>[0-9]+", nil},
		{"regex quantifier is not a placeholder", `/a/(?P<code>[A-Z]{2,3})`, []string{"code"}},
		{"empty braces", "/a/{}/b", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlaceholderNames(tt.pattern))
		})
	}
}

func TestRewritePlaceholders(t *testing.T) {
	got := RewritePlaceholders(`wp/v2/posts/(?P<id>[\d]+)/revisions/{rev}`, func(name string) string {
		return "<" + name + ">"
	})
	assert.Equal(t, "wp/v2/posts/<id>/revisions/<rev>", got)
}

func TestExtractParametersPathDefaults(t *testing.T) {
	params := ExtractParameters(`/wp/v2/posts/(?P<id>[\d]+)`, nil)

	require.Len(t, params, 1)
	assert.Equal(t, models.RouteParameter{Name: "id", Type: "string", Required: true}, params[0])
}

func TestExtractParametersSchemaWins(t *testing.T) {
	min := 1.0
	args := models.ArgList{
		{Name: "context", Type: "string", Default: "view", Enum: []any{"view", "edit"}},
		{Name: "id", Type: "integer", Required: false, Description: "Post ID", Minimum: &min},
		{Name: "per_page", Type: "integer"},
	}

	params := ExtractParameters(`/wp/v2/posts/(?P<id>[\d]+)`, args)

	require.Len(t, params, 3)
	assert.Equal(t, "id", params[0].Name)
	assert.Equal(t, "integer", params[0].Type)
	assert.False(t, params[0].Required)
	assert.Equal(t, "Post ID", params[0].Description)
	assert.Equal(t, &min, params[0].Minimum)

	assert.Equal(t, "context", params[1].Name)
	assert.Equal(t, "view", params[1].Default)
	assert.Len(t, params[1].Enum, 2)
	assert.Equal(t, "per_page", params[2].Name)
}

func TestExtractParametersUnknownTypeFallsBackToString(t *testing.T) {
	params := ExtractParameters("/a/b", models.ArgList{{Name: "x", Type: "uuid"}, {Name: "y"}})

	require.Len(t, params, 2)
	assert.Equal(t, "string", params[0].Type)
	assert.Equal(t, "string", params[1].Type)
}

func TestExtractParametersUniqueNames(t *testing.T) {
	args := models.ArgList{{Name: "q"}, {Name: "q", Type: "integer"}, {Name: ""}}
	params := ExtractParameters("/a/{q}/{q}", args)

	require.Len(t, params, 1)
	assert.Equal(t, "q", params[0].Name)
}

func TestExtractParametersEmptyPattern(t *testing.T) {
	assert.Empty(t, ExtractParameters("", nil))
	assert.Empty(t, PathParameters(""))
}
