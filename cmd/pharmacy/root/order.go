package root

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/agentic-pharmacy/agent/agents/extractor"
	"github.com/tanpawarit/agentic-pharmacy/agent/agents/orchestrator"
	llmx "github.com/tanpawarit/agentic-pharmacy/agent/llm"
	configx "github.com/tanpawarit/agentic-pharmacy/pkg/config"
)

func newOrderCmd(a *app) *cobra.Command {
	var (
		customerID int64
		message    string
	)

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Run one message through the order pipeline and print the record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if customerID <= 0 {
				return errors.New("missing required flag: --customer")
			}
			if message == "" {
				return errors.New("missing required flag: --message")
			}
			ctx := cmd.Context()

			policyCfg, err := a.policyConfig()
			if err != nil {
				return err
			}
			llmCfg, err := configx.New[llmx.Config]("LLM", a.configOptions()...)
			if err != nil {
				return fmt.Errorf("load llm config: %w", err)
			}
			ext, err := extractor.New(ctx, *llmCfg)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			o, err := orchestrator.New(store, ext, orchestrator.Config{Policy: policyCfg})
			if err != nil {
				return err
			}
			record, err := o.RunPipeline(ctx, customerID, message)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}
	cmd.Flags().Int64VarP(&customerID, "customer", "c", 0, "customer id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "order message")
	return cmd
}
