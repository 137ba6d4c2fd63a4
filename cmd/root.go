package cmd

import (
	"os"

	"github.com/encodeous/ara/state"
	"github.com/spf13/cobra"
)

var (
	configPath  = state.SimConfigPath
	verbose     = false
	logPath     = ""
	metricsAddr = ""
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ara",
	Short: "ARA Ant Routing Simulator",
	Long: `ara runs the Ant Routing Algorithm over a simulated wireless mesh.
Routes are discovered on demand with forward and backward ants, and reinforced or evaporated as traffic flows.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cfg",
		Title: "Configuration",
	})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "simulation config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "also write logs to this file, overrides log_path in the config")
}
