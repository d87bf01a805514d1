package tester

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/prasenjit/route-explorer/internal/models"
)

// DefaultPacing is the pause between consecutive bulk requests
const DefaultPacing = 100 * time.Millisecond

// Doer executes a single test request
type Doer interface {
	Execute(ctx context.Context, req models.TestRequest) (*models.TestResult, error)
}

// ResultFunc is called once per finished request with its input index. In
// concurrent mode it is called from worker goroutines.
type ResultFunc func(index int, req models.TestRequest, result *models.TestResult)

// Runner executes many requests with pacing
type Runner struct {
	doer        Doer
	pacing      time.Duration
	concurrency int
	sleep       func(ctx context.Context, d time.Duration)
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithPacing sets the delay between request starts
func WithPacing(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.pacing = d
		}
	}
}

// WithConcurrency allows up to n requests in flight. 1 keeps the run
// sequential.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithSleep replaces the pacing sleep
func WithSleep(fn func(ctx context.Context, d time.Duration)) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// NewRunner creates a sequential runner with the default pacing
func NewRunner(doer Doer, opts ...RunnerOption) *Runner {
	r := &Runner{
		doer:        doer,
		pacing:      DefaultPacing,
		concurrency: 1,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExecuteAll runs every request and returns results in input order. A
// request that fails validation yields a failed result; no request stops the
// run.
func (r *Runner) ExecuteAll(ctx context.Context, reqs []models.TestRequest, onResult ResultFunc) ([]*models.TestResult, models.BulkSummary) {
	results := make([]*models.TestResult, len(reqs))

	run := func(i int) {
		res, err := r.doer.Execute(ctx, reqs[i])
		if err != nil {
			res = &models.TestResult{ErrorMessage: errorMessage(err)}
		}
		results[i] = res
		if onResult != nil {
			onResult(i, reqs[i], res)
		}
	}

	if r.concurrency <= 1 {
		for i := range reqs {
			if i > 0 && r.pacing > 0 {
				r.sleep(ctx, r.pacing)
			}
			run(i)
		}
		return results, Summarize(results)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency)
	for i := range reqs {
		if i > 0 && r.pacing > 0 {
			r.sleep(ctx, r.pacing)
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			run(i)
		}(i)
	}
	wg.Wait()
	return results, Summarize(results)
}

// Summarize counts successes and failures. The success rate is a percentage
// rounded to two decimals and is 0 for an empty run.
func Summarize(results []*models.TestResult) models.BulkSummary {
	s := models.BulkSummary{Total: len(results)}
	for _, res := range results {
		if res != nil && res.Success {
			s.Successful++
		}
	}
	s.Failed = s.Total - s.Successful
	if s.Total > 0 {
		s.SuccessRate = math.Round(float64(s.Successful)/float64(s.Total)*100*100) / 100
	}
	return s
}

func errorMessage(err error) string {
	var e *models.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
