package tester

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/routes"
)

// DefaultMaxBodyBytes caps how much of a response body is kept
const DefaultMaxBodyBytes = 10 << 20

// Executor issues single test requests
type Executor struct {
	client       *http.Client
	maxBodyBytes int64
	logger       *slog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithTransport replaces the HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(e *Executor) { e.client.Transport = rt }
}

// WithInsecureSkipVerify disables TLS certificate verification on the
// default transport
func WithInsecureSkipVerify(skip bool) Option {
	return func(e *Executor) {
		if !skip {
			return
		}
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		e.client.Transport = t
	}
}

// WithMaxBodyBytes limits the stored response body size
func WithMaxBodyBytes(n int64) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		client:       &http.Client{},
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one test. The returned error is always a validation error;
// network and timeout failures are reported through the result.
func (e *Executor) Execute(ctx context.Context, req models.TestRequest) (*models.TestResult, error) {
	req.Method = strings.ToUpper(req.Method)
	if err := Validate(req); err != nil {
		return nil, err
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if models.HasBody(req.Method) && req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, strings.TrimSpace(req.URL), body)
	if err != nil {
		return nil, models.NewValidationError("Invalid URL format")
	}
	for k, v := range routes.DefaultHeaders() {
		httpReq.Header.Set(k, v)
	}
	// caller headers keep their spelling and replace defaults case-insensitively
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Host") {
			httpReq.Host = v
			continue
		}
		httpReq.Header.Del(k)
		httpReq.Header[k] = []string{v}
	}

	start := time.Now()
	rt := e.do(ctx, httpReq)
	if rt.err != nil {
		result := &models.TestResult{
			ResponseTimeMs: elapsedMs(start),
			ErrorMessage:   describeError(rt.err, req.TimeoutSeconds),
		}
		e.logger.Warn("test request failed", "method", req.Method, "url", req.URL, "error", result.ErrorMessage)
		return result, nil
	}
	if rt.readErr != nil {
		result := &models.TestResult{
			ResponseTimeMs: elapsedMs(start),
			ErrorMessage:   "Failed to read response body: " + describeError(rt.readErr, req.TimeoutSeconds),
		}
		e.logger.Warn("test response unreadable", "method", req.Method, "url", req.URL, "error", rt.readErr)
		return result, nil
	}
	resp, data := rt.resp, rt.body

	result := &models.TestResult{
		Success:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:      resp.StatusCode,
		ResponseTimeMs:  elapsedMs(start),
		ResponseBody:    decodeBody(data),
		ResponseHeaders: flattenHeaders(resp.Header),
	}
	e.logger.Debug("test executed",
		"method", req.Method,
		"url", req.URL,
		"status", result.StatusCode,
		"responseTimeMs", result.ResponseTimeMs,
	)
	return result, nil
}

type roundTrip struct {
	resp    *http.Response
	body    []byte
	err     error
	readErr error
}

// do sends the request and reads the body, giving up when ctx expires even
// if the transport or the body ignores the request context. A late response
// is drained and closed in the background.
func (e *Executor) do(ctx context.Context, req *http.Request) roundTrip {
	done := make(chan roundTrip, 1)
	go func() {
		resp, err := e.client.Do(req)
		if err != nil {
			done <- roundTrip{err: err}
			return
		}
		defer resp.Body.Close()
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, e.maxBodyBytes))
		done <- roundTrip{resp: resp, body: data, readErr: readErr}
	}()

	select {
	case rt := <-done:
		return rt
	case <-ctx.Done():
		return roundTrip{err: ctx.Err()}
	}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Round(time.Millisecond).Milliseconds()
}

// decodeBody returns the parsed JSON value, or the raw text when the body
// is not JSON
func decodeBody(data []byte) any {
	if !gjson.ValidBytes(data) {
		return string(data)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(data)
	}
	return v
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func describeError(err error, timeoutSeconds int) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Request timed out after %d seconds", timeoutSeconds)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Request timed out after %d seconds", timeoutSeconds)
	}
	if errors.Is(err, context.Canceled) {
		return "Request was cancelled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("Could not resolve host %s", dnsErr.Name)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Sprintf("Connection failed: %v", opErr.Err)
	}
	return fmt.Sprintf("Request failed: %v", err)
}
