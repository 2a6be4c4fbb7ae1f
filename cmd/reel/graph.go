package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/reel/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the video pipeline: steps, static edges and router-selected edges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd, map[string]string{})
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(app.Generator.Graph(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
