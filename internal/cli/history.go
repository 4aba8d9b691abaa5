package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spider-crawler/siteaudit/internal/report"
	"github.com/spider-crawler/siteaudit/internal/storage"
)

func newHistoryCmd(a *app) *cobra.Command {
	opts := storage.ListOptions{}
	var id string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored reports, or print one with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(a.cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if id != "" {
				rep, err := db.GetReport(cmd.Context(), id)
				if err != nil {
					return err
				}
				return report.WriteJSON(out, rep)
			}

			records, err := db.ListReports(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printHistory(out, records)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of reports")
	flags.StringVar(&opts.URL, "url", "", "only reports for this exact URL")
	flags.BoolVar(&opts.Latest, "latest", false, "only the newest report of each URL")
	flags.StringVar(&id, "id", "", "print the stored report with this ID as JSON")
	return cmd
}
