package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/storage"
)

// DefaultListLimit is the page size used when a caller asks for none
const DefaultListLimit = 20

// Publisher receives every entry after it is stored
type Publisher interface {
	Publish(e *models.TestLogEntry)
}

// Recorder turns executed tests into history entries
type Recorder struct {
	store   storage.HistoryStore
	feed    Publisher
	enabled bool
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Recorder
type Option func(*Recorder)

// WithFeed publishes stored entries to p
func WithFeed(p Publisher) Option {
	return func(r *Recorder) { r.feed = p }
}

// WithEnabled switches recording on or off. Reads keep working when off.
func WithEnabled(enabled bool) Option {
	return func(r *Recorder) { r.enabled = enabled }
}

// WithClock overrides the clock used for timestamps and cutoffs
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates an enabled recorder over store
func NewRecorder(store storage.HistoryStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		enabled: true,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether Record stores anything
func (r *Recorder) Enabled() bool {
	return r.enabled
}

type requestData struct {
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// NewEntry builds the log entry for one executed test
func NewEntry(caller models.Caller, req models.TestRequest, result *models.TestResult, at time.Time) (*models.TestLogEntry, error) {
	headers := req.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	reqData, err := json.Marshal(requestData{Headers: headers, Body: req.Body})
	if err != nil {
		return nil, err
	}
	respData, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &models.TestLogEntry{
		Endpoint:       req.URL,
		Method:         req.Method,
		StatusCode:     result.StatusCode,
		ResponseTimeMs: result.ResponseTimeMs,
		UserID:         caller.UserID,
		IPAddress:      caller.IPAddress,
		UserAgent:      caller.UserAgent,
		RequestData:    string(reqData),
		ResponseData:   string(respData),
		CreatedAt:      at,
	}, nil
}

// Record appends one executed test. It returns a nil entry and no error
// when recording is disabled. A failed append is a PersistenceError and
// never alters result.
func (r *Recorder) Record(ctx context.Context, caller models.Caller, req models.TestRequest, result *models.TestResult) (*models.TestLogEntry, error) {
	if !r.enabled || result == nil {
		return nil, nil
	}

	entry, err := NewEntry(caller, req, result, r.now())
	if err != nil {
		return nil, models.NewPersistenceError("Failed to encode test log entry", err)
	}
	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error("failed to record test", "endpoint", req.URL, "method", req.Method, "error", err)
		return nil, models.NewPersistenceError("Failed to log test result", err)
	}

	if r.feed != nil {
		r.feed.Publish(entry)
	}
	return entry, nil
}

// List returns entries newest first. limit <= 0 uses DefaultListLimit.
func (r *Recorder) List(ctx context.Context, limit, offset int) ([]*models.TestLogEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := r.store.List(ctx, limit, offset)
	if err != nil {
		return nil, models.NewPersistenceError("Failed to read test history", err)
	}
	return entries, nil
}

// Get returns one entry
func (r *Recorder) Get(ctx context.Context, id int64) (*models.TestLogEntry, error) {
	e, err := r.store.Get(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, models.NewPersistenceError("Failed to read test history", err)
	}
	return e, nil
}

// Stats aggregates the stored history
func (r *Recorder) Stats(ctx context.Context) (*models.HistoryStats, error) {
	s, err := r.store.Stats(ctx, r.now())
	if err != nil {
		return nil, models.NewPersistenceError("Failed to compute history statistics", err)
	}
	return s, nil
}

// Truncate removes the whole history
func (r *Recorder) Truncate(ctx context.Context) error {
	if err := r.store.Truncate(ctx); err != nil {
		return models.NewPersistenceError("Failed to clear test history", err)
	}
	r.logger.Info("test history cleared")
	return nil
}

// Cleanup removes entries older than days and returns how many went
func (r *Recorder) Cleanup(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, models.NewValidationError("Retention days must be a positive number")
	}
	cutoff := r.now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, models.NewPersistenceError("Failed to clean up test history", err)
	}
	r.logger.Info("test history cleaned up", "days", days, "deleted", n)
	return n, nil
}
