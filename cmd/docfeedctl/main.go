// docfeedctl is the operator companion for the docfeed worker: it publishes
// documents to the ingestion queue, manages the queue itself and probes every
// dependency the worker needs.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docfeed/internal/config"
	"github.com/kailas-cloud/docfeed/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "docfeedctl",
	Short: "Operator tooling for the docfeed ingestion pipeline",
	Long: `docfeedctl reads the same YAML configuration as the docfeed worker
(selected via the ENV variable) and talks to the same broker, vector
index and embedding provider.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("docfeedctl %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// loadConfig is a seam so command tests can inject a fixed configuration.
var loadConfig = func() (config.Config, error) {
	return config.Load(config.GetEnv())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
