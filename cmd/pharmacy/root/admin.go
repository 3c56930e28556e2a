package root

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/agentic-pharmacy/agent/refill"
	storex "github.com/tanpawarit/agentic-pharmacy/agent/store"
	configx "github.com/tanpawarit/agentic-pharmacy/pkg/config"
	qstashx "github.com/tanpawarit/agentic-pharmacy/pkg/qstash"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]bool{"ok": true})
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create tables and load demo customers, medicines and prescriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			if err := store.Seed(cmd.Context(), storex.DefaultSeedData(), time.Now()); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]bool{"ok": true})
		},
	}
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one refill scan over all customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			policyCfg, err := a.policyConfig()
			if err != nil {
				return err
			}
			qCfg, err := configx.New[qstashx.Config]("QSTASH", a.configOptions()...)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var notifier *refill.QStashNotifier
			if qCfg.Enabled() {
				client, err := qstashx.NewClient(*qCfg)
				if err != nil {
					return err
				}
				if notifier, err = refill.NewQStashNotifier(client, qCfg.Destination); err != nil {
					return err
				}
			}

			var scanner *refill.Scanner
			if notifier != nil {
				scanner, err = refill.NewScanner(store, notifier, policyCfg)
			} else {
				scanner, err = refill.NewScanner(store, nil, policyCfg)
			}
			if err != nil {
				return err
			}

			res, err := scanner.Scan(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newLowStockCmd(a *app) *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List medicines at or below a stock threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.LowStock(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 10, "stock threshold")
	return cmd
}

func newTracesCmd(a *app) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "traces",
		Short: "Show recent decision trace rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if runID != "" {
				rows, err := store.AuditRowsForRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			rows, err := store.RecentAuditRows(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of rows")
	cmd.Flags().StringVar(&runID, "run", "", "only rows of this run id")
	return cmd
}
