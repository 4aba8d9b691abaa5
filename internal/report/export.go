package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportFormat defines the export file format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatJSON ExportFormat = "json"
)

// ParseFormat returns the format for a name or file extension.
func ParseFormat(name string) (ExportFormat, error) {
	switch ExportFormat(strings.TrimPrefix(strings.ToLower(name), ".")) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format: %s", name)
}

// ExportOptions defines export configuration.
type ExportOptions struct {
	Format    ExportFormat
	FilePath  string
	Delimiter rune // For CSV, default is comma
}

// Exporter writes reports to files.
type Exporter struct {
	options *ExportOptions
}

// NewExporter creates a new exporter.
func NewExporter(options *ExportOptions) *Exporter {
	if options == nil {
		options = &ExportOptions{Format: FormatJSON}
	}
	return &Exporter{options: options}
}

// Export writes report in the configured format.
func (e *Exporter) Export(report *Report) error {
	switch e.options.Format {
	case FormatCSV:
		return e.exportCSV(report)
	case FormatXLSX:
		return e.exportXLSX(report)
	case FormatJSON:
		return e.exportJSON(report)
	default:
		return fmt.Errorf("unsupported export format: %s", e.options.Format)
	}
}

// WriteJSON encodes report as indented JSON.
func WriteJSON(w io.Writer, report *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(report)
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

func (e *Exporter) exportJSON(report *Report) error {
	file, err := os.Create(e.options.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteJSON(file, report); err != nil {
		return err
	}
	return file.Close()
}

var issueColumns = []string{"Rank", "Category", "Severity", "Type", "Code", "Message"}

func issueRow(item ActionItem) []interface{} {
	return []interface{}{item.Rank, string(item.Category), string(item.Severity), string(item.Kind), item.Code, item.Message}
}

// exportCSV writes the action plan, one issue per row.
func (e *Exporter) exportCSV(report *Report) error {
	file, err := os.Create(e.options.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// UTF-8 BOM for Excel
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	writer := csv.NewWriter(file)
	if e.options.Delimiter != 0 {
		writer.Comma = e.options.Delimiter
	}

	if err := writer.Write(issueColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, item := range report.ActionPlan {
		row := issueRow(item)
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = formatValue(v)
		}
		if err := writer.Write(values); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// exportXLSX writes a workbook with an overview, a score per category, the
// action plan and the recommendations.
func (e *Exporter) exportXLSX(report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"00C853"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	overview := [][]interface{}{
		{"URL", report.URL},
		{"Final URL", report.FinalURL},
		{"Overall Score", report.OverallScore},
		{"Status", string(report.Status)},
		{"HTTP Status", report.Fetch.StatusCode},
		{"Fallback", report.Fetch.Fallback},
		{"Generated", report.GeneratedAt},
		{"Duration", report.Duration.Round(time.Millisecond).String()},
		{"Report ID", report.ID},
	}
	if err := f.SetSheetName("Sheet1", "Overview"); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSheet(f, "Overview", []string{"Field", "Value"}, overview, headerStyle); err != nil {
		return err
	}

	scores := make([][]interface{}, 0, len(report.Categories))
	for _, r := range report.Categories {
		scores = append(scores, []interface{}{string(r.Category), r.Score, string(r.Status), string(r.Confidence), len(r.Issues)})
	}
	if err := writeSheet(f, "Scores", []string{"Category", "Score", "Status", "Confidence", "Issues"}, scores, headerStyle); err != nil {
		return err
	}

	issues := make([][]interface{}, 0, len(report.ActionPlan))
	for _, item := range report.ActionPlan {
		issues = append(issues, issueRow(item))
	}
	if err := writeSheet(f, "Action Plan", issueColumns, issues, headerStyle); err != nil {
		return err
	}

	var recs [][]interface{}
	for _, r := range report.Categories {
		for _, rec := range r.Recommendations {
			recs = append(recs, []interface{}{string(r.Category), rec})
		}
	}
	if err := writeSheet(f, "Recommendations", []string{"Category", "Recommendation"}, recs, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.SaveAs(e.options.FilePath)
}

// writeSheet creates (or reuses) a sheet and fills it with a styled header,
// rows, an auto filter and a frozen header row.
func writeSheet(f *excelize.File, name string, columns []string, rows [][]interface{}, headerStyle int) error {
	name = sanitizeSheetName(name)
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(name, cell, col)
		f.SetCellStyle(name, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(col) + 5)
		for _, row := range rows {
			if i < len(row) {
				width = max(width, float64(len(formatValue(row[i]))+2))
			}
		}
		f.SetColWidth(name, colName, colName, min(max(width, 12), 80))
	}

	for r, row := range rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(name, cell, val); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if len(rows) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(columns))
		f.AutoFilter(name, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil)
	}

	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// formatValue converts a value to string for export.
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// sanitizeSheetName ensures sheet name is valid for Excel.
func sanitizeSheetName(name string) string {
	invalid := []string{"\\", "/", "?", "*", "[", "]", ":"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Max 31 characters
	if len(result) > 31 {
		result = result[:31]
	}

	return result
}
