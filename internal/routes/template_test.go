package routes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/route-explorer/internal/models"
)

func postsRoute() models.Route {
	return newTestNormalizer().Normalize(models.RawRoute{
		Pattern: "/wp/v2/posts",
		Methods: map[string]models.RawMethod{
			"GET": {
				Permission: models.AllowAll(),
				Args: models.ArgList{
					{Name: "per_page", Type: "integer"},
					{Name: "tags", Type: "array"},
				},
			},
			"POST": {
				Permission: models.CustomPermission("create_item_permissions_check"),
				Args: models.ArgList{
					{Name: "title", Type: "string", Required: true},
					{Name: "author_id", Type: "integer", Required: true},
					{Name: "sticky", Type: "boolean"},
				},
			},
		},
	})
}

func TestBuildTestTemplateDefaultsToFirstCanonicalMethod(t *testing.T) {
	tpl, err := BuildTestTemplate(postsRoute(), "", NewExampleGenerator(fixedClock))
	require.NoError(t, err)

	assert.Equal(t, "GET", tpl.Method)
	assert.Equal(t, "https://example.com/wp-json/wp/v2/posts", tpl.URL)
	assert.Equal(t, DefaultHeaders(), tpl.Headers)
	assert.Empty(t, tpl.Body)
	assert.Equal(t, map[string]any{"per_page": 123}, tpl.QueryParameters)
}

func TestBuildTestTemplatePrivatePost(t *testing.T) {
	tpl, err := BuildTestTemplate(postsRoute(), "post", NewExampleGenerator(fixedClock))
	require.NoError(t, err)

	assert.Equal(t, "POST", tpl.Method)
	assert.Equal(t, "Bearer YOUR_TOKEN_HERE", tpl.Headers["Authorization"])

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(tpl.Body), &body))
	assert.Equal(t, map[string]any{"title": "example_value", "author_id": float64(123)}, body)
	assert.Contains(t, tpl.Body, "\n    ")
	assert.Equal(t, map[string]any{"sticky": true}, tpl.QueryParameters)
}

func TestBuildTestTemplateUnknownMethod(t *testing.T) {
	_, err := BuildTestTemplate(postsRoute(), "DELETE", nil)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestBuildTestTemplateNoMethods(t *testing.T) {
	_, err := BuildTestTemplate(models.Route{Pattern: "/a/b"}, "", nil)
	assert.True(t, models.IsNotFound(err))
}
