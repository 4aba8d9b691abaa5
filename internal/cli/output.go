package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spider-crawler/siteaudit/internal/report"
	"github.com/spider-crawler/siteaudit/internal/storage"
)

// maxPrintedActions bounds the action plan printed by analyze.
const maxPrintedActions = 10

func printReport(w io.Writer, rep *report.Report) {
	fmt.Fprintf(w, "URL:           %s\n", rep.URL)
	if rep.FinalURL != "" && rep.FinalURL != rep.URL {
		fmt.Fprintf(w, "Final URL:     %s\n", rep.FinalURL)
	}
	fmt.Fprintf(w, "Overall score: %d (%s)\n", rep.OverallScore, rep.Status)
	if rep.Fetch.Fallback {
		fmt.Fprintf(w, "Fetch:         fallback document (%s: %s)\n", rep.Fetch.FallbackReason, rep.Fetch.FallbackDetail)
	} else {
		fmt.Fprintf(w, "Fetch:         HTTP %d, %d bytes, %s\n",
			rep.Fetch.StatusCode, rep.Fetch.Bytes, rep.Fetch.ResponseTime.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Report ID:     %s\n\n", rep.ID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSCORE\tSTATUS\tCONFIDENCE\tISSUES")
	for _, r := range rep.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\n", r.Category, r.Score, r.Status, r.Confidence, len(r.Issues))
	}
	tw.Flush()

	if len(rep.ActionPlan) == 0 {
		return
	}
	fmt.Fprintln(w, "\nAction plan:")
	for i, item := range rep.ActionPlan {
		if i == maxPrintedActions {
			fmt.Fprintf(w, "  ... and %d more\n", len(rep.ActionPlan)-maxPrintedActions)
			break
		}
		fmt.Fprintf(w, "  %2d. [%s] %s: %s\n", item.Rank, item.Severity, item.Category, item.Message)
	}
}

func printHistory(w io.Writer, records []*storage.ReportRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No reports stored.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGENERATED\tSCORE\tSTATUS\tISSUES\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
			r.ID, r.GeneratedAt.Local().Format("2006-01-02 15:04"), r.OverallScore, r.Status, r.IssueCount, r.URL)
	}
	tw.Flush()
}
