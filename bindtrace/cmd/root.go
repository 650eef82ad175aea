// Package cmd provides the command-line interface for bindtrace.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bindtrace",
	Short: "bindtrace traces how components are bound and loaded.",
	Long: `bindtrace traces how components are bound and loaded. ` +
		`It can load components from a catalog with tracing on (run), ` +
		`print a recorded trace (show) and serve a recorded trace over HTTP (serve).`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
