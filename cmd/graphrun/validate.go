package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphrun/graphrun/graph"
	"github.com/graphrun/graphrun/graph/capability"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition.json>",
	Short: "Validate a graph definition file without storing it",
	Long: `Compiles a graph definition against the built-in capability
registry and reports the first validation problem, if any. Exits non-zero
when the definition is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var def graph.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		g, err := graph.Compile(def, capability.Default())
		if err != nil {
			return err
		}

		fmt.Printf("%s: valid (%d nodes, %d edges, start %s)\n",
			args[0], g.NodeCount(), g.EdgeCount(), g.StartNode())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
