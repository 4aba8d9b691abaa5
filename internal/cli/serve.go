package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spider-crawler/siteaudit/internal/engine"
	"github.com/spider-crawler/siteaudit/internal/server"
	"github.com/spider-crawler/siteaudit/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer eng.Close()

			var history server.History
			if !noHistory {
				db, err := storage.Open(a.cfg.Storage.Path)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer db.Close()
				history = db
			}

			a.logger.Info("Starting API server",
				zap.String("addr", a.cfg.Server.Addr),
				zap.Bool("history", history != nil),
			)
			return server.New(a.cfg.Server, eng, history, a.logger).Run(cmd.Context())
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not store reports")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
