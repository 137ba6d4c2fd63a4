package cmd

import (
	"fmt"

	"github.com/encodeous/ara/state"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validates the simulation config and prints the resulting links",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadSimConfig(configPath)
		if err != nil {
			return err
		}
		edges, err := cfg.Edges()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config is valid: %d nodes, %d links\n", len(cfg.Nodes), len(edges))
		for _, e := range edges {
			fmt.Fprintf(out, "%s <-> %s\n", e.V1, e.V2)
		}
		return nil
	},
	GroupID: "cfg",
}

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Prints the default routing config",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := state.MarshalRoutingConfig(state.DefaultRoutingCfg())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(defaultsCmd)
}
