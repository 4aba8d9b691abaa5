package storage

// Schema contains SQL statements to create database tables.
const Schema = `
-- Reports table: one row per analysis run, full report kept as JSON
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    final_url TEXT,
    host TEXT NOT NULL,
    overall_score INTEGER NOT NULL,
    status TEXT NOT NULL,
    http_status INTEGER,
    fallback BOOLEAN DEFAULT 0,
    issue_count INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    generated_at DATETIME NOT NULL,
    report_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_url ON reports(url);
CREATE INDEX IF NOT EXISTS idx_reports_host ON reports(host);
CREATE INDEX IF NOT EXISTS idx_reports_generated_at ON reports(generated_at);

-- Category scores: one row per analyzer result
CREATE TABLE IF NOT EXISTS category_scores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    score INTEGER NOT NULL,
    status TEXT NOT NULL,
    confidence TEXT NOT NULL,
    issue_count INTEGER DEFAULT 0,
    UNIQUE(report_id, category)
);

CREATE INDEX IF NOT EXISTS idx_category_scores_report ON category_scores(report_id);
CREATE INDEX IF NOT EXISTS idx_category_scores_category ON category_scores(category);

-- Issues: the action plan of each report
CREATE TABLE IF NOT EXISTS issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    rank INTEGER NOT NULL,
    category TEXT NOT NULL,
    issue_code TEXT NOT NULL,
    issue_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT
);

CREATE INDEX IF NOT EXISTS idx_issues_report ON issues(report_id);
CREATE INDEX IF NOT EXISTS idx_issues_code ON issues(issue_code);
`

// ViewsSchema contains SQL for useful views
const ViewsSchema = `
-- View: latest report per URL
CREATE VIEW IF NOT EXISTS v_latest_reports AS
SELECT r.*
FROM reports r
WHERE r.generated_at = (
    SELECT MAX(r2.generated_at) FROM reports r2 WHERE r2.url = r.url
);

-- View: how often each issue code appears
CREATE VIEW IF NOT EXISTS v_issue_summary AS
SELECT
    category,
    issue_code,
    severity,
    COUNT(*) as occurrences,
    COUNT(DISTINCT report_id) as reports
FROM issues
GROUP BY category, issue_code, severity
ORDER BY occurrences DESC;
`
