package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // postgres driver

	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/stats"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS test_logs (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	endpoint VARCHAR(2048) NOT NULL,
	method VARCHAR(10) NOT NULL,
	status_code INT NOT NULL DEFAULT 0,
	response_time BIGINT NOT NULL DEFAULT 0,
	user_id VARCHAR(191) NOT NULL DEFAULT '',
	ip_address VARCHAR(45) NOT NULL DEFAULT '',
	user_agent TEXT,
	request_data LONGTEXT,
	response_data LONGTEXT,
	created_at DATETIME(3) NOT NULL,
	INDEX idx_test_logs_created_at (created_at)
)`

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS test_logs (
	id BIGSERIAL PRIMARY KEY,
	endpoint TEXT NOT NULL,
	method VARCHAR(10) NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	response_time BIGINT NOT NULL DEFAULT 0,
	user_id TEXT NOT NULL DEFAULT '',
	ip_address VARCHAR(45) NOT NULL DEFAULT '',
	user_agent TEXT,
	request_data TEXT,
	response_data TEXT,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_test_logs_created_at ON test_logs (created_at)`,
}

const selectColumns = `id, endpoint, method, status_code, response_time, user_id, ip_address,
	COALESCE(user_agent, ''), COALESCE(request_data, ''), COALESCE(response_data, ''), created_at`

// SQLStore implements HistoryStore on MySQL or PostgreSQL
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore connects, pings and creates the test_logs table if missing
func NewSQLStore(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage.dsn is required for %s", dialect)
	}
	if dialect == TypeMySQL {
		normalized, err := MySQLDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = normalized
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// MySQLDSN forces parseTime and UTC on a MySQL DSN
func MySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{mysqlSchema}
	if s.dialect == TypePostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create test_logs table: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for the store's dialect
func (s *SQLStore) rebind(query string) string {
	if s.dialect != TypePostgres {
		return query
	}
	return Rebind(query)
}

// Rebind rewrites ? placeholders into $1, $2, ...
func Rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append inserts e and assigns its ID
func (s *SQLStore) Append(ctx context.Context, e *models.TestLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `INSERT INTO test_logs (endpoint, method, status_code, response_time, user_id, ip_address,
	user_agent, request_data, response_data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{e.Endpoint, e.Method, e.StatusCode, e.ResponseTimeMs, e.UserID, e.IPAddress,
		e.UserAgent, e.RequestData, e.ResponseData, e.CreatedAt.UTC()}

	if s.dialect == TypePostgres {
		return s.db.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&e.ID)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// Get retrieves an entry by ID
func (s *SQLStore) Get(ctx context.Context, id int64) (*models.TestLogEntry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+selectColumns+" FROM test_logs WHERE id = ?"), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return e, err
}

// List returns entries newest first
func (s *SQLStore) List(ctx context.Context, limit, offset int) ([]*models.TestLogEntry, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		// both dialects accept a very large LIMIT
		limit = 1<<31 - 1
	}
	query := "SELECT " + selectColumns + " FROM test_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, s.rebind(query), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.TestLogEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.TestLogEntry, error) {
	var e models.TestLogEntry
	err := row.Scan(&e.ID, &e.Endpoint, &e.Method, &e.StatusCode, &e.ResponseTimeMs, &e.UserID,
		&e.IPAddress, &e.UserAgent, &e.RequestData, &e.ResponseData, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Truncate removes every entry
func (s *SQLStore) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE TABLE test_logs")
	return err
}

// DeleteOlderThan removes entries created before cutoff
func (s *SQLStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM test_logs WHERE created_at < ?"), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats aggregates in SQL and buckets the last 24 hours in Go
func (s *SQLStore) Stats(ctx context.Context, now time.Time) (*models.HistoryStats, error) {
	out := &models.HistoryStats{
		TopEndpoints: make([]models.EndpointCount, 0),
		StatusCodes:  make([]models.StatusCodeCount, 0),
	}

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
	COALESCE(SUM(CASE WHEN status_code >= 200 AND status_code < 300 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0),
	COALESCE(AVG(response_time), 0)
	FROM test_logs`).Scan(&out.TotalTests, &out.SuccessfulTests, &out.FailedTests, &out.AvgResponseTimeMs)
	if err != nil {
		return nil, err
	}
	out.AvgResponseTimeMs = stats.Round2(out.AvgResponseTimeMs)

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT endpoint, COUNT(*) AS c FROM test_logs
	GROUP BY endpoint ORDER BY c DESC, endpoint ASC LIMIT ?`), stats.TopEndpointsLimit)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var ec models.EndpointCount
		if err := rows.Scan(&ec.Endpoint, &ec.Count); err != nil {
			rows.Close()
			return nil, err
		}
		out.TopEndpoints = append(out.TopEndpoints, ec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT status_code, COUNT(*) FROM test_logs GROUP BY status_code ORDER BY status_code")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sc models.StatusCodeCount
		if err := rows.Scan(&sc.StatusCode, &sc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		out.StatusCodes = append(out.StatusCodes, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, s.rebind("SELECT created_at, status_code FROM test_logs WHERE created_at >= ?"),
		stats.HourlyWindowStart(now).UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	c := stats.NewCollector()
	for rows.Next() {
		var at time.Time
		var code int
		if err := rows.Scan(&at, &code); err != nil {
			return nil, err
		}
		c.AddHourly(at, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out.HourlyStats = c.HourlyStats(now)
	return out, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
