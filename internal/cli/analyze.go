package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spider-crawler/siteaudit/internal/analyzer"
	"github.com/spider-crawler/siteaudit/internal/engine"
	"github.com/spider-crawler/siteaudit/internal/report"
	"github.com/spider-crawler/siteaudit/internal/storage"
)

type analyzeOptions struct {
	keywords   []string
	categories []string
	timeout    time.Duration
	output     string
	xlsx       string
	save       bool
	jsonOut    bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Audit a single page and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.keywords, "keywords", "k", nil, "comma separated keywords for density and market seeds")
	flags.StringSliceVar(&opts.categories, "category", nil, "categories to run (repeatable); default all")
	flags.DurationVar(&opts.timeout, "timeout", 0, "deadline for the whole analysis (default analysis.deadline)")
	flags.StringVarP(&opts.output, "output", "o", "", "write the report to a file; format from extension (.json, .csv, .xlsx)")
	flags.StringVar(&opts.xlsx, "xlsx", "", "also write an XLSX workbook to this path")
	flags.BoolVar(&opts.save, "save", false, "store the report in the history database")
	flags.BoolVar(&opts.jsonOut, "json", false, "print the full report as JSON instead of a summary")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, target string, opts *analyzeOptions) error {
	categories, err := analyzer.ParseCategories(opts.categories)
	if err != nil {
		return err
	}

	eng, err := engine.New(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	rep, err := eng.Analyze(cmd.Context(), engine.Request{
		URL:        target,
		Keywords:   opts.keywords,
		Categories: categories,
		Timeout:    opts.timeout,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		if err := report.WriteJSON(out, rep); err != nil {
			return err
		}
	} else {
		printReport(out, rep)
	}

	if opts.output != "" {
		if err := exportTo(rep, opts.output, ""); err != nil {
			return err
		}
		a.logger.Info("Report written", zap.String("path", opts.output))
	}
	if opts.xlsx != "" {
		if err := exportTo(rep, opts.xlsx, report.FormatXLSX); err != nil {
			return err
		}
		a.logger.Info("Workbook written", zap.String("path", opts.xlsx))
	}

	if opts.save {
		db, err := storage.Open(a.cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer db.Close()
		if err := db.SaveReport(cmd.Context(), rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Fprintf(out, "\nSaved report %s to %s\n", rep.ID, a.cfg.Storage.Path)
	}
	return nil
}

// exportTo writes rep to path. An empty format is taken from the file
// extension, falling back to JSON.
func exportTo(rep *report.Report, path string, format report.ExportFormat) error {
	if format == "" {
		format = report.FormatJSON
		if ext := filepath.Ext(path); ext != "" {
			f, err := report.ParseFormat(ext)
			if err != nil {
				return err
			}
			format = f
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return report.NewExporter(&report.ExportOptions{Format: format, FilePath: path}).Export(rep)
}
