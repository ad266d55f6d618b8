// trader runs the warframe.market market-making engine.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
)

func main() {
	// .env is best-effort; real env vars still apply.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "trader",
		Short:         "Autonomous warframe.market market maker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "yml/config.yaml", "config file (yaml or json)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trader version %s\n", version)
		},
	}
}
