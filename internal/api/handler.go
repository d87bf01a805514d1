package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prasenjit/route-explorer/internal/config"
	"github.com/prasenjit/route-explorer/internal/history"
	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/openapi"
	"github.com/prasenjit/route-explorer/internal/routes"
	"github.com/prasenjit/route-explorer/internal/tester"
)

// UserIDHeader carries the host's authenticated user ID
const UserIDHeader = "X-User-ID"

// Deps are the components the admin API serves
type Deps struct {
	Settings config.Settings
	Site     models.SiteInfo
	Loader   *routes.Loader
	Executor tester.Doer
	Runner   *tester.Runner
	Recorder *history.Recorder
	Logger   *slog.Logger
}

// Handler handles API requests
type Handler struct {
	settings config.Settings
	site     models.SiteInfo
	loader   *routes.Loader
	executor tester.Doer
	runner   *tester.Runner
	recorder *history.Recorder
	logger   *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	runner := d.Runner
	if runner == nil {
		runner = tester.NewRunner(d.Executor)
	}
	return &Handler{
		settings: d.Settings,
		site:     d.Site,
		loader:   d.Loader,
		executor: d.Executor,
		runner:   runner,
		recorder: d.Recorder,
		logger:   logger,
	}
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// fail renders err. Only *models.Error messages reach the caller.
func (h *Handler) fail(c *gin.Context, err error) {
	var e *models.Error
	if !errors.As(err, &e) {
		h.logger.Error("unhandled error", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error", StatusCode: http.StatusInternalServerError})
		return
	}
	if e.Err != nil {
		h.logger.Warn("request failed", "path", c.Request.URL.Path, "kind", e.Kind, "error", e.Err)
	}
	c.JSON(e.StatusCode(), errorResponse{Message: e.Message, StatusCode: e.StatusCode()})
}

func (h *Handler) catalog(c *gin.Context) (*routes.Catalog, bool) {
	cat, err := h.loader.Load(c.Request.Context())
	if err != nil {
		h.fail(c, models.NewTransportError("Failed to load routes", err))
		return nil, false
	}
	return cat, true
}

func (h *Handler) visible(r models.Route) bool {
	return h.settings.ShowPrivateRoutes || r.IsPublic
}

func (h *Handler) filterFromQuery(c *gin.Context) (routes.Filter, error) {
	f := routes.Filter{
		Namespace: c.Query("namespace"),
		Method:    c.Query("method"),
		Search:    c.Query("search"),
	}
	if v := c.Query("publicOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, models.NewValidationError("Invalid publicOnly value: %s", v)
		}
		f.PublicOnly = b
	}
	if !h.settings.ShowPrivateRoutes {
		f.PublicOnly = true
	}
	return f, nil
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetSettings returns the active settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings)
}

// ListRoutes returns the filtered route list and its count
func (h *Handler) ListRoutes(c *gin.Context) {
	f, err := h.filterFromQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	cat, ok := h.catalog(c)
	if !ok {
		return
	}
	list := cat.Filter(f)
	c.JSON(http.StatusOK, gin.H{"routes": list, "count": len(list)})
}

// GroupedRoutes returns the filtered routes grouped by namespace
func (h *Handler) GroupedRoutes(c *gin.Context) {
	f, err := h.filterFromQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	cat, ok := h.catalog(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, routes.GroupRoutes(cat.Filter(f)))
}

// RouteStats returns catalog statistics
func (h *Handler) RouteStats(c *gin.Context) {
	cat, ok := h.catalog(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cat.Stats())
}

// RouteDetail returns one route and a ready-to-send test template
func (h *Handler) RouteDetail(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		h.fail(c, models.NewValidationError("Route pattern is required"))
		return
	}
	cat, ok := h.catalog(c)
	if !ok {
		return
	}
	route, err := cat.Get(pattern)
	if err == nil && !h.visible(route) {
		err = models.NewNotFoundError("Route not found: %s", pattern)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	tpl, err := routes.BuildTestTemplate(route, c.Query("method"), h.loader.Normalizer().Examples())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route, "template": tpl})
}

// RefreshRoutes drops the cached catalog
func (h *Handler) RefreshRoutes(c *gin.Context) {
	if err := h.loader.Invalidate(c.Request.Context()); err != nil {
		h.fail(c, models.NewPersistenceError("Failed to clear route cache", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Route cache cleared"})
}

// OpenAPIJSON returns the projected document as JSON
func (h *Handler) OpenAPIJSON(c *gin.Context) {
	cat, ok := h.catalog(c)
	if !ok {
		return
	}
	data, err := openapi.JSON(openapi.Project(cat, h.site))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// OpenAPIYAML returns the projected document as YAML
func (h *Handler) OpenAPIYAML(c *gin.Context) {
	cat, ok := h.catalog(c)
	if !ok {
		return
	}
	data, err := openapi.YAML(openapi.Project(cat, h.site))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", data)
}

// testResponse reports a test result and, separately, whether it was logged
type testResponse struct {
	Result   *models.TestResult `json:"result"`
	Logged   bool               `json:"logged"`
	LogError string             `json:"logError,omitempty"`
}

type bulkItem struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	testResponse
}

type bulkRequest struct {
	Endpoints []models.TestRequest `json:"endpoints"`
}

func caller(c *gin.Context) models.Caller {
	return models.Caller{
		UserID:    c.GetHeader(UserIDHeader),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (h *Handler) requireTesting() error {
	if !h.settings.EnableAPITesting {
		return models.NewPermissionError("API testing is disabled")
	}
	return nil
}

// record logs one result. Persistence failures are reported, not returned.
func (h *Handler) record(c *gin.Context, who models.Caller, req models.TestRequest, res *models.TestResult) testResponse {
	out := testResponse{Result: res}
	entry, err := h.recorder.Record(c.Request.Context(), who, req, res)
	if err != nil {
		var e *models.Error
		if errors.As(err, &e) {
			out.LogError = e.Message
		} else {
			out.LogError = err.Error()
		}
		return out
	}
	out.Logged = entry != nil
	return out
}

// RunTest executes one test request
func (h *Handler) RunTest(c *gin.Context) {
	if err := h.requireTesting(); err != nil {
		h.fail(c, err)
		return
	}

	var input models.TestRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, models.NewValidationError("Invalid request body"))
		return
	}
	req, err := tester.Prepare(input, h.settings.DefaultTimeoutSeconds)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.executor.Execute(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.record(c, caller(c), req, res))
}

// RunBulkTest executes every endpoint in order. All endpoints are validated
// before the first request is sent.
func (h *Handler) RunBulkTest(c *gin.Context) {
	if err := h.requireTesting(); err != nil {
		h.fail(c, err)
		return
	}

	var input bulkRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, models.NewValidationError("Invalid request body"))
		return
	}
	if len(input.Endpoints) == 0 {
		h.fail(c, models.NewValidationError("No endpoints provided"))
		return
	}

	reqs := make([]models.TestRequest, len(input.Endpoints))
	for i, ep := range input.Endpoints {
		req, err := tester.Prepare(ep, h.settings.DefaultTimeoutSeconds)
		if err != nil {
			var e *models.Error
			if errors.As(err, &e) {
				err = models.NewValidationError("Endpoint %d: %s", i+1, e.Message)
			}
			h.fail(c, err)
			return
		}
		reqs[i] = req
	}

	who := caller(c)
	items := make([]bulkItem, len(reqs))
	_, summary := h.runner.ExecuteAll(c.Request.Context(), reqs, func(i int, req models.TestRequest, res *models.TestResult) {
		items[i] = bulkItem{URL: req.URL, Method: req.Method, testResponse: h.record(c, who, req, res)}
	})

	runID := uuid.New().String()
	h.logger.Info("bulk test finished", "runId", runID, "total", summary.Total, "failed", summary.Failed)
	c.JSON(http.StatusOK, gin.H{
		"runId":   runID,
		"results": items,
		"summary": summary,
	})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, models.NewValidationError("Invalid %s value: %s", name, v)
	}
	return n, nil
}

// ListHistory returns logged tests, newest first
func (h *Handler) ListHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit", history.DefaultListLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.recorder.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// GetHistoryEntry returns one logged test
func (h *Handler) GetHistoryEntry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, models.NewValidationError("Invalid log ID: %s", c.Param("id")))
		return
	}
	entry, err := h.recorder.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// HistoryStats returns aggregate history statistics
func (h *Handler) HistoryStats(c *gin.Context) {
	stats, err := h.recorder.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClearHistory removes every logged test
func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.recorder.Truncate(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test history cleared"})
}

// CleanupHistory removes logged tests older than ?days= (default
// logRetentionDays)
func (h *Handler) CleanupHistory(c *gin.Context) {
	days, err := queryInt(c, "days", h.settings.LogRetentionDays)
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.recorder.Cleanup(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deletedCount": n,
		"message":      fmt.Sprintf("Deleted %d log entries older than %d days", n, days),
	})
}
