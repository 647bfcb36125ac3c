// Package cve implements the local SQLite cache of vulnerability records.
package cve

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tarkai/trustlens/internal/core/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteCache implements ports.CVECache using SQLite.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the cache at dbPath. Use ":memory:" for
// an ephemeral cache.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL for better concurrency between pipeline writers and API readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Upsert inserts or refreshes one CVE record.
func (c *SQLiteCache) Upsert(ctx context.Context, cve domain.CVE) error {
	refsJSON, err := json.Marshal(cve.References)
	if err != nil {
		return fmt.Errorf("failed to marshal references: %w", err)
	}
	productsJSON, err := json.Marshal(cve.AffectedProducts)
	if err != nil {
		return fmt.Errorf("failed to marshal affected products: %w", err)
	}
	cwesJSON, err := json.Marshal(cve.CWEIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal cwe ids: %w", err)
	}

	query := `
		INSERT INTO cve_records (
			cve_id, description, severity, score, cvss_vector,
			published_date, last_modified, refs, affected_products, cwe_ids
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cve_id) DO UPDATE SET
			description = excluded.description,
			severity = excluded.severity,
			score = excluded.score,
			cvss_vector = excluded.cvss_vector,
			published_date = excluded.published_date,
			last_modified = excluded.last_modified,
			refs = excluded.refs,
			affected_products = excluded.affected_products,
			cwe_ids = excluded.cwe_ids,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = c.db.ExecContext(ctx, query,
		cve.ID, cve.Description, string(cve.Severity), cve.Score, cve.VectorString,
		formatTime(cve.Published), formatTime(cve.LastModified),
		string(refsJSON), string(productsJSON), string(cwesJSON),
	)
	return err
}

// GetByID returns the cached record for a CVE id, or nil when absent.
func (c *SQLiteCache) GetByID(ctx context.Context, id string) (*domain.CVE, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+" WHERE cve_id = ?", id)

	cve, err := scanCVE(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get CVE: %w", err)
	}
	return &cve, nil
}

// List returns cached records, optionally filtered by severity, newest first.
func (c *SQLiteCache) List(ctx context.Context, severity domain.CVESeverity, limit int) ([]domain.CVE, error) {
	if limit <= 0 {
		limit = 50
	}

	query := selectColumns
	args := []any{}
	if severity != "" {
		query += " WHERE severity = ?"
		args = append(args, string(severity))
	}
	query += " ORDER BY published_date DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}
	defer rows.Close()

	var cves []domain.CVE
	for rows.Next() {
		cve, err := scanCVE(rows.Scan)
		if err != nil {
			return nil, err
		}
		cves = append(cves, cve)
	}
	return cves, rows.Err()
}

// CountBySeverity returns the number of cached records per severity bucket.
func (c *SQLiteCache) CountBySeverity(ctx context.Context) (map[domain.CVESeverity]int, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT severity, COUNT(*) FROM cve_records GROUP BY severity")
	if err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.CVESeverity]int)
	for rows.Next() {
		var severity string
		var n int
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, err
		}
		counts[domain.CVESeverity(severity)] = n
	}
	return counts, rows.Err()
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

const selectColumns = `
	SELECT cve_id, description, severity, score, cvss_vector,
	       published_date, last_modified, refs, affected_products, cwe_ids
	FROM cve_records
`

func scanCVE(scan func(dest ...any) error) (domain.CVE, error) {
	var cve domain.CVE
	var severity string
	var vector, published, modified, refsJSON, productsJSON, cwesJSON sql.NullString

	err := scan(
		&cve.ID, &cve.Description, &severity, &cve.Score, &vector,
		&published, &modified, &refsJSON, &productsJSON, &cwesJSON,
	)
	if err != nil {
		return cve, err
	}

	cve.Severity = domain.CVESeverity(severity)
	cve.VectorString = vector.String
	cve.Published = parseTime(published.String)
	cve.LastModified = parseTime(modified.String)

	if refsJSON.String != "" {
		json.Unmarshal([]byte(refsJSON.String), &cve.References)
	}
	if productsJSON.String != "" {
		json.Unmarshal([]byte(productsJSON.String), &cve.AffectedProducts)
	}
	if cwesJSON.String != "" {
		json.Unmarshal([]byte(cwesJSON.String), &cve.CWEIDs)
	}

	return cve, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
