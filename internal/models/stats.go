package models

// HistoryStats represents aggregate statistics over the test history
type HistoryStats struct {
	TotalTests        int64             `json:"totalTests"`
	SuccessfulTests   int64             `json:"successfulTests"`
	FailedTests       int64             `json:"failedTests"`
	AvgResponseTimeMs float64           `json:"avgResponseTimeMs"`
	TopEndpoints      []EndpointCount   `json:"topEndpoints"`
	StatusCodes       []StatusCodeCount `json:"statusCodes"`
	HourlyStats       []HourlyStat      `json:"hourlyStats"`
}

// EndpointCount is the number of tests recorded for one endpoint
type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    int64  `json:"count"`
}

// StatusCodeCount is the number of tests that returned a status code
type StatusCodeCount struct {
	StatusCode int   `json:"statusCode"`
	Count      int64 `json:"count"`
}

// HourlyStat represents hourly test statistics
type HourlyStat struct {
	Hour     string `json:"hour"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}
