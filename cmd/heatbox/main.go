package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "heatbox",
		Short: "Heat-planning map backend",
		Long: `heatbox serves the feature layers of the heat-planning map and
evaluates drawn polygons against them.`,
		SilenceUsage: true,
	}
	rootCmd.Version = Version

	addServeCmd(rootCmd)
	addEvaluateCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
