package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/intentrouter-go/dag"
	"github.com/dshills/intentrouter-go/dag/emit"
	"github.com/dshills/intentrouter-go/nodes"
	"github.com/dshills/intentrouter-go/routerconfig"
)

func newRunCmd(logger *zerolog.Logger) *cobra.Command {
	var (
		graphPath   string
		llmPath     string
		pricingPath string
		input       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a graph once against a single input",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := routerconfig.LoadGraph(graphPath)
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}

			pricing, err := routerconfig.LoadPricing(pricingPath)
			if err != nil {
				return fmt.Errorf("load pricing: %w", err)
			}

			llmCfg, err := routerconfig.ParseLLMConfig(llmPath)
			if err != nil {
				return fmt.Errorf("load llm config: %w", err)
			}
			llmClient, err := routerconfig.BuildClient(llmCfg, pricing)
			if err != nil {
				return fmt.Errorf("build llm client: %w", err)
			}

			resolver := nodes.NewResolver(&nodes.LLMConfig{Model: llmCfg.Model})
			resolver.LoadGraphDefaults(g)
			rc := dag.NewContext(*logger)
			costTracker := dag.NewCostTracker("cli-run", "USD")

			result, aggregated, err := dag.RunDAG(context.Background(), g, rc, input,
				dag.WithResolver(resolver.Resolve),
				dag.WithLLMService(llmClient),
				dag.WithCostTracker(costTracker),
				dag.WithEmitter(emit.NewLogEmitter(cmd.OutOrStdout(), false)),
			)
			if err != nil {
				return fmt.Errorf("run dag: %w", err)
			}

			fmt.Printf("result: %+v\n", result)
			fmt.Printf("aggregated metrics: %+v\n", aggregated)
			fmt.Printf("total cost: $%.6f\n", costTracker.GetTotalCost())
			return nil
		},
	}

	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "path to graph JSON/YAML document")
	cmd.Flags().StringVarP(&llmPath, "llm-config", "l", "", "path to LLM config document")
	cmd.Flags().StringVarP(&pricingPath, "pricing", "p", "", "path to pricing file")
	cmd.Flags().StringVarP(&input, "input", "i", "", "input string to route")
	_ = cmd.MarkFlagRequired("graph")
	_ = cmd.MarkFlagRequired("llm-config")
	_ = cmd.MarkFlagRequired("pricing")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
