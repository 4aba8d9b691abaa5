// Package storage keeps a SQLite history of analysis reports.
package storage

import "time"

// ReportRecord is the summary row of a stored report.
type ReportRecord struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	FinalURL     string        `json:"final_url"`
	Host         string        `json:"host"`
	OverallScore int           `json:"overall_score"`
	Status       string        `json:"status"`
	HTTPStatus   int           `json:"http_status"`
	Fallback     bool          `json:"fallback"`
	IssueCount   int           `json:"issue_count"`
	Duration     time.Duration `json:"duration"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// CategoryScore is one analyzer score of a stored report.
type CategoryScore struct {
	ReportID   string `json:"report_id"`
	Category   string `json:"category"`
	Score      int    `json:"score"`
	Status     string `json:"status"`
	Confidence string `json:"confidence"`
	IssueCount int    `json:"issue_count"`
}

// IssueCount aggregates one issue code across stored reports.
type IssueCount struct {
	Category    string `json:"category"`
	IssueCode   string `json:"issue_code"`
	Severity    string `json:"severity"`
	Occurrences int    `json:"occurrences"`
	Reports     int    `json:"reports"`
}

// Stats holds database statistics.
type Stats struct {
	TotalReports int            `json:"total_reports"`
	DistinctURLs int            `json:"distinct_urls"`
	TotalIssues  int            `json:"total_issues"`
	AverageScore float64        `json:"average_score"`
	ByStatus     map[string]int `json:"by_status"`
}
