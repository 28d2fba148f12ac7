package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/intentrouter-go/routerconfig"
)

func newValidateCmd(logger *zerolog.Logger) *cobra.Command {
	var graphPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a graph document",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := routerconfig.LoadGraph(graphPath)
			if err != nil {
				return err
			}
			logger.Info().
				Int("node_count", len(g.NodeIDs())).
				Strs("entrypoints", g.Entrypoints()).
				Msg("graph is valid")
			fmt.Printf("OK: %d nodes, %d entrypoints\n", len(g.NodeIDs()), len(g.Entrypoints()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "path to graph JSON/YAML document")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}
