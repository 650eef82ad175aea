package cmd

import (
	"log"

	"github.com/sarchlab/bindtrace/monitoring"
	"github.com/sarchlab/bindtrace/tracing"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	port        int
	openBrowser bool
}

var serveCmd = &cobra.Command{
	Use:   "serve [trace.sqlite3]",
	Short: "Serve the binds recorded in a trace file over HTTP",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true

		records, err := readTrace(cmd.Context(), args[0], tracing.BindQuery{})
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		m := monitoring.NewMonitor().
			WithPortNumber(serveFlags.port).
			WithBrowser(serveFlags.openBrowser)
		m.RegisterBindSource(monitoring.StaticSource(records))

		url, err := m.StartServer()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		waitForInterrupt(url)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0,
		"port of the server, random if not set")
	serveCmd.Flags().BoolVar(&serveFlags.openBrowser, "open", false,
		"open the server in a browser")

	rootCmd.AddCommand(serveCmd)
}
