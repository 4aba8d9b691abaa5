package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/spider-crawler/siteaudit/internal/report"
)

// ErrNotFound is returned when no report has the requested ID.
var ErrNotFound = errors.New("report not found")

// Database handles all database operations.
type Database struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewDatabase opens (creating if needed) the database at path.
func NewDatabase(path string) (*Database, error) {
	// SQLite connection with optimizations
	dsn := fmt.Sprintf("%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return &Database{db: db}, nil
}

// Open opens the database at path and creates the schema.
func Open(path string) (*Database, error) {
	d, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := d.Initialize(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Initialize creates tables and views.
func (d *Database) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := d.db.Exec(ViewsSchema); err != nil {
		return fmt.Errorf("failed to create views: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// --- Report Operations ---

// SaveReport stores r with its category scores and action plan. Saving the
// same report ID twice replaces the earlier copy.
func (d *Database) SaveReport(ctx context.Context, r *report.Report) error {
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, r.ID); err != nil {
		return fmt.Errorf("replace report %s: %w", r.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, url, final_url, host, overall_score, status, http_status, fallback, issue_count, duration_ms, generated_at, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.URL, r.FinalURL, hostOf(r), r.OverallScore, string(r.Status), r.Fetch.StatusCode, r.Fetch.Fallback,
		len(r.ActionPlan), r.Duration.Milliseconds(), r.GeneratedAt.UTC(), buf.String())
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.ID, err)
	}

	scoreStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO category_scores (report_id, category, score, status, confidence, issue_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer scoreStmt.Close()

	for _, res := range r.Categories {
		if _, err := scoreStmt.ExecContext(ctx, r.ID, string(res.Category), res.Score, string(res.Status),
			string(res.Confidence), len(res.Issues)); err != nil {
			return fmt.Errorf("insert score %s: %w", res.Category, err)
		}
	}

	issueStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (report_id, rank, category, issue_code, issue_type, severity, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer issueStmt.Close()

	for _, item := range r.ActionPlan {
		if _, err := issueStmt.ExecContext(ctx, r.ID, item.Rank, string(item.Category), item.Code,
			string(item.Kind), string(item.Severity), item.Message); err != nil {
			return fmt.Errorf("insert issue %s: %w", item.Code, err)
		}
	}

	return tx.Commit()
}

// GetReport loads the full report with the given ID.
func (d *Database) GetReport(ctx context.Context, id string) (*report.Report, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var data string
	err := d.db.QueryRowContext(ctx, `SELECT report_json FROM reports WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return report.ReadJSON(bytes.NewBufferString(data))
}

// ListOptions filters ListReports.
type ListOptions struct {
	URL   string
	Limit int
	// Latest keeps only the newest report of each URL.
	Latest bool
}

// ListReports returns report summaries, newest first.
func (d *Database) ListReports(ctx context.Context, opts ListOptions) ([]*ReportRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	table := "reports"
	if opts.Latest {
		table = "v_latest_reports"
	}
	query := `
		SELECT id, url, final_url, host, overall_score, status, http_status, fallback, issue_count, duration_ms, generated_at
		FROM ` + table
	var args []interface{}
	if opts.URL != "" {
		query += ` WHERE url = ?`
		args = append(args, opts.URL)
	}
	query += ` ORDER BY generated_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*ReportRecord, 0)
	for rows.Next() {
		var rec ReportRecord
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.FinalURL, &rec.Host, &rec.OverallScore, &rec.Status,
			&rec.HTTPStatus, &rec.Fallback, &rec.IssueCount, &durationMS, &rec.GeneratedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// CategoryScores returns the category scores of a stored report in the order
// they were saved.
func (d *Database) CategoryScores(ctx context.Context, reportID string) ([]*CategoryScore, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT report_id, category, score, status, confidence, issue_count
		FROM category_scores WHERE report_id = ? ORDER BY id
	`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []*CategoryScore
	for rows.Next() {
		var s CategoryScore
		if err := rows.Scan(&s.ReportID, &s.Category, &s.Score, &s.Status, &s.Confidence, &s.IssueCount); err != nil {
			return nil, err
		}
		scores = append(scores, &s)
	}
	return scores, rows.Err()
}

// IssueSummary returns the most frequent issue codes across all reports.
func (d *Database) IssueSummary(ctx context.Context, limit int) ([]*IssueCount, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT category, issue_code, severity, occurrences, reports
		FROM v_issue_summary LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []*IssueCount
	for rows.Next() {
		var c IssueCount
		if err := rows.Scan(&c.Category, &c.IssueCode, &c.Severity, &c.Occurrences, &c.Reports); err != nil {
			return nil, err
		}
		counts = append(counts, &c)
	}
	return counts, rows.Err()
}

// DeleteReport removes a report and its rows.
func (d *Database) DeleteReport(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetStats retrieves database statistics.
func (d *Database) GetStats(ctx context.Context) (*Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := &Stats{ByStatus: make(map[string]int)}

	var avg sql.NullFloat64
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT url), AVG(overall_score) FROM reports`).
		Scan(&stats.TotalReports, &stats.DistinctURLs, &avg)
	if err != nil {
		return nil, err
	}
	stats.AverageScore = avg.Float64

	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&stats.TotalIssues); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	return stats, rows.Err()
}

func hostOf(r *report.Report) string {
	for _, raw := range []string{r.FinalURL, r.URL} {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return u.Hostname()
		}
	}
	return ""
}
