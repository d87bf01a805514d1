package stats

import (
	"math"
	"sort"
	"time"

	"github.com/prasenjit/route-explorer/internal/models"
)

const (
	hourKeyLayout   = "2006-01-02-15"
	hourLabelLayout = "15:00"

	// TopEndpointsLimit caps the most-tested endpoint list
	TopEndpointsLimit = 10
	// HourlySlots is the length of the hourly histogram
	HourlySlots = 24
)

// Collector aggregates history entries into HistoryStats
type Collector struct {
	total       int64
	success     int64
	failure     int64
	totalTimeMs int64
	endpoints   map[string]int64
	statusCodes map[int]int64
	hourly      map[string]*hourlyCounter // "YYYY-MM-DD-HH" -> counter
}

type hourlyCounter struct {
	Requests int64
	Errors   int64
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		endpoints:   make(map[string]int64),
		statusCodes: make(map[int]int64),
		hourly:      make(map[string]*hourlyCounter),
	}
}

// Add folds one entry into the totals
func (c *Collector) Add(e *models.TestLogEntry) {
	c.total++
	c.totalTimeMs += e.ResponseTimeMs
	if IsSuccess(e.StatusCode) {
		c.success++
	}
	if IsFailure(e.StatusCode) {
		c.failure++
	}
	c.endpoints[e.Endpoint]++
	c.statusCodes[e.StatusCode]++
	c.AddHourly(e.CreatedAt, e.StatusCode)
}

// AddHourly counts one entry in the hourly histogram only. Buckets are keyed
// in UTC so entries from any location land in the same hour.
func (c *Collector) AddHourly(at time.Time, statusCode int) {
	key := at.UTC().Format(hourKeyLayout)
	h, ok := c.hourly[key]
	if !ok {
		h = &hourlyCounter{}
		c.hourly[key] = h
	}
	h.Requests++
	if IsFailure(statusCode) {
		h.Errors++
	}
}

// Stats builds the snapshot, with hourly buckets ending at now's hour
func (c *Collector) Stats(now time.Time) *models.HistoryStats {
	stats := &models.HistoryStats{
		TotalTests:      c.total,
		SuccessfulTests: c.success,
		FailedTests:     c.failure,
		TopEndpoints:    make([]models.EndpointCount, 0, len(c.endpoints)),
		StatusCodes:     make([]models.StatusCodeCount, 0, len(c.statusCodes)),
		HourlyStats:     c.buildHourlyStats(now),
	}
	if c.total > 0 {
		stats.AvgResponseTimeMs = Round2(float64(c.totalTimeMs) / float64(c.total))
	}

	for ep, n := range c.endpoints {
		stats.TopEndpoints = append(stats.TopEndpoints, models.EndpointCount{Endpoint: ep, Count: n})
	}
	SortEndpoints(stats.TopEndpoints)
	if len(stats.TopEndpoints) > TopEndpointsLimit {
		stats.TopEndpoints = stats.TopEndpoints[:TopEndpointsLimit]
	}

	for code, n := range c.statusCodes {
		stats.StatusCodes = append(stats.StatusCodes, models.StatusCodeCount{StatusCode: code, Count: n})
	}
	sort.Slice(stats.StatusCodes, func(i, j int) bool {
		return stats.StatusCodes[i].StatusCode < stats.StatusCodes[j].StatusCode
	})
	return stats
}

// HourlyStats returns only the hourly histogram
func (c *Collector) HourlyStats(now time.Time) []models.HourlyStat {
	return c.buildHourlyStats(now)
}

// buildHourlyStats lists the last 24 hours, oldest first
func (c *Collector) buildHourlyStats(now time.Time) []models.HourlyStat {
	stats := make([]models.HourlyStat, 0, HourlySlots)
	for i := HourlySlots - 1; i >= 0; i-- {
		hour := now.Add(-time.Duration(i) * time.Hour)
		stat := models.HourlyStat{Hour: hour.Format(hourLabelLayout)}
		if h, ok := c.hourly[hour.UTC().Format(hourKeyLayout)]; ok {
			stat.Requests = h.Requests
			stat.Errors = h.Errors
		}
		stats = append(stats, stat)
	}
	return stats
}

// Compute aggregates a full entry list
func Compute(entries []*models.TestLogEntry, now time.Time) *models.HistoryStats {
	c := NewCollector()
	for _, e := range entries {
		c.Add(e)
	}
	return c.Stats(now)
}

// HourlyWindowStart is the start of the oldest bucket reported for now
func HourlyWindowStart(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(-(HourlySlots - 1) * time.Hour)
}

// SortEndpoints orders by count descending, then endpoint ascending
func SortEndpoints(eps []models.EndpointCount) {
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].Count != eps[j].Count {
			return eps[i].Count > eps[j].Count
		}
		return eps[i].Endpoint < eps[j].Endpoint
	})
}

// IsSuccess reports a 2xx status
func IsSuccess(code int) bool { return code >= 200 && code < 300 }

// IsFailure reports a status of 400 or above
func IsFailure(code int) bool { return code >= 400 }

// Round2 rounds to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
