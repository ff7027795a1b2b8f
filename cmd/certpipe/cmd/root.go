package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/certpipe/resource"
)

var rootCmd = &cobra.Command{
	Use:   "certpipe",
	Short: "certpipe manages a root/intermediate/leaf PKI hierarchy as versioned pipeline resources",
	Long: `certpipe exposes each level of a three-level certificate hierarchy as a
pull resource: check reports the current bundle version, in fetches the
artifacts matching a requested version, and out creates or renews a
bundle and publishes the new version. Requests arrive as one JSON
object on stdin; the response is one JSON object on stdout. All
diagnostics go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("operation failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	// stdout carries the JSON response, so everything else goes to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	rootCmd.AddCommand(
		newLevelCommand(resource.RootCA),
		newLevelCommand(resource.IntermediateCA),
		newLevelCommand(resource.Leaf),
	)
}
