package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prasenjit/route-explorer/internal/config"
	"github.com/prasenjit/route-explorer/internal/feed"
	"github.com/prasenjit/route-explorer/internal/history"
	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/registry"
	"github.com/prasenjit/route-explorer/internal/routes"
	"github.com/prasenjit/route-explorer/internal/storage"
	"github.com/prasenjit/route-explorer/internal/tester"
)

func testRegistry() *registry.Static {
	return &registry.Static{
		Info: models.SiteInfo{Name: "Demo", RESTBaseURL: "https://example.com/wp-json"},
		Routes: map[string]models.RawRoute{
			"/wp/v2/posts": {Methods: map[string]models.RawMethod{
				"GET": {Permission: models.AllowAll()},
				"POST": {Permission: models.CustomPermission("can_edit"), Args: models.ArgList{
					{Name: "title", Type: "string", Required: true},
				}},
			}},
			"/wp/v2/posts/(?P<id>[\\d]+)": {Methods: map[string]models.RawMethod{
				"GET":    {Permission: models.AllowAll()},
				"DELETE": {Permission: models.CustomPermission("can_delete")},
			}},
			"/wp/v2/settings": {Methods: map[string]models.RawMethod{
				"GET": {Permission: models.CustomPermission("manage_options")},
			}},
		},
	}
}

// failingStore rejects every append
type failingStore struct {
	storage.HistoryStore
}

func (failingStore) Append(context.Context, *models.TestLogEntry) error {
	return errors.New("disk full")
}

type testEnv struct {
	router *gin.Engine
	store  storage.HistoryStore
	target *httptest.Server
}

func setupTestHandler(t *testing.T, mutate func(*config.Settings), store storage.HistoryStore) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/fail") {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(target.Close)

	settings := config.Default().Settings
	if mutate != nil {
		mutate(&settings)
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	reg := testRegistry()
	loader := routes.NewLoader(reg, routes.NewNormalizer(reg.Info.RESTBaseURL, nil), nil, "", 0, nil)
	exec := tester.NewExecutor()
	hub := feed.NewHub(10)
	t.Cleanup(hub.Close)

	h := NewHandler(Deps{
		Settings: settings,
		Site:     reg.Info,
		Loader:   loader,
		Executor: exec,
		Runner:   tester.NewRunner(exec, tester.WithPacing(0)),
		Recorder: history.NewRecorder(store, history.WithEnabled(settings.EnableLogging), history.WithFeed(hub)),
	})
	r := NewRouter(h, hub, nil)
	return &testEnv{router: r.engine, store: store, target: target}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(UserIDHeader, "42")
	req.Header.Set("User-Agent", "explorer-test")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Invalid JSON response %q: %v", w.Body.String(), err)
	}
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	var e errorResponse
	decode(t, w, &e)
	if e.StatusCode != status {
		t.Errorf("Expected statusCode %d in body, got %d", status, e.StatusCode)
	}
	if message != "" && e.Message != message {
		t.Errorf("Expected message %q, got %q", message, e.Message)
	}
}

func TestHealthCheck(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	w := env.do(t, "GET", "/_api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var result map[string]any
	decode(t, w, &result)
	if result["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", result["status"])
	}
}

func TestGetSettings(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	var s config.Settings
	decode(t, env.do(t, "GET", "/_api/settings", nil), &s)
	if s.DefaultTimeoutSeconds != 30 || !s.EnableAPITesting {
		t.Errorf("Unexpected settings: %+v", s)
	}
}

func TestListRoutes(t *testing.T) {
	tests := []struct {
		name        string
		showPrivate bool
		query       string
		expected    int
	}{
		{"private hidden by default", false, "", 2},
		{"private shown", true, "", 3},
		{"public only", true, "?publicOnly=true", 2},
		{"method filter", true, "?method=delete", 1},
		{"search filter", true, "?search=settings", 1},
		{"namespace filter", true, "?namespace=wp/v2", 3},
		{"unknown namespace", true, "?namespace=shop/v1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestHandler(t, func(s *config.Settings) { s.ShowPrivateRoutes = tt.showPrivate }, nil)

			w := env.do(t, "GET", "/_api/routes"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var result struct {
				Routes []models.Route `json:"routes"`
				Count  int           `json:"count"`
			}
			decode(t, w, &result)
			if result.Count != tt.expected || len(result.Routes) != tt.expected {
				t.Errorf("Expected %d routes, got %d (%d listed)", tt.expected, result.Count, len(result.Routes))
			}
		})
	}
}

func TestListRoutes_InvalidFlag(t *testing.T) {
	env := setupTestHandler(t, nil, nil)
	assertError(t, env.do(t, "GET", "/_api/routes?publicOnly=maybe", nil), http.StatusBadRequest, "Invalid publicOnly value: maybe")
}

func TestGroupedRoutesAndStats(t *testing.T) {
	env := setupTestHandler(t, func(s *config.Settings) { s.ShowPrivateRoutes = true }, nil)

	var groups []models.NamespaceGroup
	decode(t, env.do(t, "GET", "/_api/routes/grouped", nil), &groups)
	if len(groups) != 1 || groups[0].Namespace != "wp/v2" || len(groups[0].Routes) != 3 {
		t.Errorf("Unexpected groups: %+v", groups)
	}

	var stats models.RouteStats
	decode(t, env.do(t, "GET", "/_api/routes/stats", nil), &stats)
	if stats.TotalRoutes != 3 || stats.PublicRoutes != 2 || stats.PrivateRoutes != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TotalEndpoints != 5 {
		t.Errorf("Expected 5 endpoints, got %d", stats.TotalEndpoints)
	}
}

func TestRouteDetail(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	w := env.do(t, "GET", "/_api/routes/detail?pattern=/wp/v2/posts&method=post", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var result struct {
		Route    models.Route        `json:"route"`
		Template models.TestTemplate `json:"template"`
	}
	decode(t, w, &result)
	if result.Template.Method != "POST" {
		t.Errorf("Expected POST template, got %s", result.Template.Method)
	}
	if result.Template.Headers["Authorization"] != "Bearer "+routes.PlaceholderToken {
		t.Errorf("Expected bearer placeholder, got %q", result.Template.Headers["Authorization"])
	}
	if !strings.Contains(result.Template.Body, `"title"`) {
		t.Errorf("Expected title in body, got %s", result.Template.Body)
	}
	if result.Template.URL != "https://example.com/wp-json/wp/v2/posts" {
		t.Errorf("Unexpected URL %s", result.Template.URL)
	}
}

func TestRouteDetail_Errors(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	assertError(t, env.do(t, "GET", "/_api/routes/detail", nil), http.StatusBadRequest, "Route pattern is required")
	assertError(t, env.do(t, "GET", "/_api/routes/detail?pattern=/nope", nil), http.StatusNotFound, "Route not found: /nope")
	// private routes are hidden unless showPrivateRoutes is on
	assertError(t, env.do(t, "GET", "/_api/routes/detail?pattern=/wp/v2/settings", nil), http.StatusNotFound, "")
	assertError(t, env.do(t, "GET", "/_api/routes/detail?pattern=/wp/v2/posts&method=PATCH", nil), http.StatusNotFound, "")
}

func TestRefreshRoutes(t *testing.T) {
	env := setupTestHandler(t, nil, nil)
	if w := env.do(t, "POST", "/_api/routes/refresh", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestOpenAPIExport(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	w := env.do(t, "GET", "/_api/openapi.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var doc map[string]any
	decode(t, w, &doc)
	if doc["openapi"] != "3.0.0" {
		t.Errorf("Expected openapi 3.0.0, got %v", doc["openapi"])
	}
	paths := doc["paths"].(map[string]any)
	if _, ok := paths["/wp/v2/posts/{id}"]; !ok {
		t.Errorf("Expected rewritten path, got %v", paths)
	}

	w = env.do(t, "GET", "/_api/openapi.yaml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "openapi: 3.0.0") {
		t.Errorf("Expected YAML document, got %s", w.Body.String())
	}
}

func TestRunTest(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	w := env.do(t, "POST", "/_api/tests", models.TestRequest{URL: env.target.URL + "/ok", Method: "get"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp testResponse
	decode(t, w, &resp)
	if !resp.Result.Success || resp.Result.StatusCode != 200 {
		t.Errorf("Unexpected result: %+v", resp.Result)
	}
	if !resp.Logged || resp.LogError != "" {
		t.Errorf("Expected entry to be logged, got %+v", resp)
	}

	entries, _ := env.store.List(context.Background(), 0, 0)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	if entries[0].UserID != "42" || entries[0].UserAgent != "explorer-test" || entries[0].Method != "GET" {
		t.Errorf("Unexpected caller data: %+v", entries[0])
	}
}

func TestRunTest_Validation(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	tests := []struct {
		name    string
		req     models.TestRequest
		message string
	}{
		{"missing url", models.TestRequest{Method: "GET"}, "URL is required"},
		{"bad url", models.TestRequest{URL: "ftp://example.com", Method: "GET"}, "Invalid URL format"},
		{"bad method", models.TestRequest{URL: "http://example.com", Method: "TRACE"}, "Invalid HTTP method"},
		{"bad timeout", models.TestRequest{URL: "http://example.com", Method: "GET", TimeoutSeconds: 301}, "Timeout must be between 1 and 300 seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.do(t, "POST", "/_api/tests", tt.req), http.StatusBadRequest, tt.message)
		})
	}

	entries, _ := env.store.List(context.Background(), 0, 0)
	if len(entries) != 0 {
		t.Errorf("Expected nothing logged, got %d entries", len(entries))
	}
}

func TestRunTest_Disabled(t *testing.T) {
	env := setupTestHandler(t, func(s *config.Settings) { s.EnableAPITesting = false }, nil)

	req := models.TestRequest{URL: env.target.URL, Method: "GET"}
	assertError(t, env.do(t, "POST", "/_api/tests", req), http.StatusForbidden, "API testing is disabled")
	assertError(t, env.do(t, "POST", "/_api/tests/bulk", bulkRequest{Endpoints: []models.TestRequest{req}}), http.StatusForbidden, "")
}

func TestRunTest_LogFailure(t *testing.T) {
	env := setupTestHandler(t, nil, failingStore{})

	w := env.do(t, "POST", "/_api/tests", models.TestRequest{URL: env.target.URL + "/ok", Method: "GET"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp testResponse
	decode(t, w, &resp)
	if !resp.Result.Success {
		t.Error("Expected the test itself to succeed")
	}
	if resp.Logged || resp.LogError != "Failed to log test result" {
		t.Errorf("Expected log failure to be reported, got %+v", resp)
	}
}

func TestRunTest_LoggingDisabled(t *testing.T) {
	env := setupTestHandler(t, func(s *config.Settings) { s.EnableLogging = false }, nil)

	var resp testResponse
	decode(t, env.do(t, "POST", "/_api/tests", models.TestRequest{URL: env.target.URL, Method: "GET"}), &resp)
	if resp.Logged || resp.LogError != "" {
		t.Errorf("Expected nothing logged, got %+v", resp)
	}
}

func TestRunBulkTest(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	body := bulkRequest{Endpoints: []models.TestRequest{
		{URL: env.target.URL + "/ok", Method: "GET"},
		{URL: env.target.URL + "/fail", Method: "POST", Body: `{"a":1}`},
		{URL: "http://127.0.0.1:1/", Method: "GET", TimeoutSeconds: 2},
	}}
	w := env.do(t, "POST", "/_api/tests/bulk", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID   string             `json:"runId"`
		Results []bulkItem         `json:"results"`
		Summary models.BulkSummary `json:"summary"`
	}
	decode(t, w, &resp)
	if resp.RunID == "" {
		t.Error("Expected a run ID")
	}
	if len(resp.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(resp.Results))
	}
	if resp.Results[0].URL != env.target.URL+"/ok" || !resp.Results[0].Result.Success {
		t.Errorf("Unexpected first result: %+v", resp.Results[0])
	}
	if resp.Results[1].Result.StatusCode != 500 || resp.Results[1].Result.ResponseBody != "boom" {
		t.Errorf("Unexpected second result: %+v", resp.Results[1].Result)
	}
	if resp.Results[2].Result.StatusCode != 0 || resp.Results[2].Result.ErrorMessage == "" {
		t.Errorf("Expected transport failure, got %+v", resp.Results[2].Result)
	}
	if resp.Summary != (models.BulkSummary{Total: 3, Successful: 1, Failed: 2, SuccessRate: 33.33}) {
		t.Errorf("Unexpected summary: %+v", resp.Summary)
	}

	entries, _ := env.store.List(context.Background(), 0, 0)
	if len(entries) != 3 {
		t.Errorf("Expected 3 history entries, got %d", len(entries))
	}
}

func TestRunBulkTest_Validation(t *testing.T) {
	env := setupTestHandler(t, nil, nil)

	assertError(t, env.do(t, "POST", "/_api/tests/bulk", bulkRequest{}), http.StatusBadRequest, "No endpoints provided")

	body := bulkRequest{Endpoints: []models.TestRequest{
		{URL: env.target.URL, Method: "GET"},
		{URL: "not a url", Method: "GET"},
	}}
	assertError(t, env.do(t, "POST", "/_api/tests/bulk", body), http.StatusBadRequest, "Endpoint 2: Invalid URL format")

	entries, _ := env.store.List(context.Background(), 0, 0)
	if len(entries) != 0 {
		t.Errorf("Expected no request to run, got %d entries", len(entries))
	}
}

func TestHistoryEndpoints(t *testing.T) {
	env := setupTestHandler(t, nil, nil)
	ctx := context.Background()

	old := &models.TestLogEntry{Endpoint: "/old", Method: "GET", StatusCode: 200, CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}
	recent := &models.TestLogEntry{Endpoint: "/recent", Method: "GET", StatusCode: 404, CreatedAt: time.Now()}
	_ = env.store.Append(ctx, old)
	_ = env.store.Append(ctx, recent)

	var list struct {
		Entries []models.TestLogEntry `json:"entries"`
		Count   int                   `json:"count"`
	}
	decode(t, env.do(t, "GET", "/_api/history?limit=1", nil), &list)
	if list.Count != 1 || list.Entries[0].Endpoint != "/recent" {
		t.Errorf("Expected most recent entry first, got %+v", list)
	}
	assertError(t, env.do(t, "GET", "/_api/history?limit=abc", nil), http.StatusBadRequest, "")

	var entry models.TestLogEntry
	decode(t, env.do(t, "GET", "/_api/history/1", nil), &entry)
	if entry.Endpoint != "/old" {
		t.Errorf("Expected /old, got %s", entry.Endpoint)
	}
	assertError(t, env.do(t, "GET", "/_api/history/99", nil), http.StatusNotFound, "Log entry not found: 99")
	assertError(t, env.do(t, "GET", "/_api/history/abc", nil), http.StatusBadRequest, "")

	var stats models.HistoryStats
	decode(t, env.do(t, "GET", "/_api/history/stats", nil), &stats)
	if stats.TotalTests != 2 || stats.FailedTests != 1 || len(stats.HourlyStats) != 24 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	var cleanup struct {
		DeletedCount int64  `json:"deletedCount"`
		Message      string `json:"message"`
	}
	decode(t, env.do(t, "POST", "/_api/history/cleanup", nil), &cleanup)
	if cleanup.DeletedCount != 1 {
		t.Errorf("Expected 1 deleted entry, got %d", cleanup.DeletedCount)
	}
	if cleanup.Message != "Deleted 1 log entries older than 30 days" {
		t.Errorf("Unexpected message %q", cleanup.Message)
	}
	assertError(t, env.do(t, "POST", "/_api/history/cleanup?days=0", nil), http.StatusBadRequest, "")

	if w := env.do(t, "DELETE", "/_api/history", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	remaining, _ := env.store.List(ctx, 0, 0)
	if len(remaining) != 0 {
		t.Errorf("Expected empty history, got %d", len(remaining))
	}
}

func TestNoRoute(t *testing.T) {
	env := setupTestHandler(t, nil, nil)
	assertError(t, env.do(t, "GET", "/_api/unknown", nil), http.StatusNotFound, "Not found")
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestHandler(t, nil, nil)
	w := env.do(t, "OPTIONS", "/_api/tests", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}
