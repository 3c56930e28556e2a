package root

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
	storex "github.com/tanpawarit/agentic-pharmacy/agent/store"
	configx "github.com/tanpawarit/agentic-pharmacy/pkg/config"
	logx "github.com/tanpawarit/agentic-pharmacy/pkg/logger"
)

type app struct {
	envFile string
}

// NewRootCmd creates the root command for pharmacy.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "pharmacy",
		Short: "Agentic pharmacy order pipeline",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logCfg, err := configx.New[logx.Config]("LOG", a.configOptions()...)
			if err != nil {
				return fmt.Errorf("load log config: %w", err)
			}
			logx.Init(*logCfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&a.envFile, "env", "", "path to .env file")

	cmd.AddCommand(
		newOrderCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newScanCmd(a),
		newLowStockCmd(a),
		newTracesCmd(a),
	)
	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func (a *app) configOptions() []configx.Option {
	if a.envFile == "" {
		return nil
	}
	return []configx.Option{configx.WithEnvFile(a.envFile)}
}

func (a *app) policyConfig() (policy.Config, error) {
	cfg, err := configx.New[policy.Config]("APP", a.configOptions()...)
	if err != nil {
		return policy.Config{}, fmt.Errorf("load app config: %w", err)
	}
	return cfg.Normalize(), nil
}

func (a *app) openStore(ctx context.Context) (*storex.Store, error) {
	cfg, err := configx.New[storex.Config]("DB", a.configOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load db config: %w", err)
	}
	return storex.Open(ctx, *cfg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
