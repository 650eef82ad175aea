package cmd

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/sarchlab/bindtrace/datarecording"
	"github.com/sarchlab/bindtrace/tracing"
	"github.com/spf13/cobra"
)

var showFlags struct {
	query  tracing.BindQuery
	asJSON bool
}

var showCmd = &cobra.Command{
	Use:   "show [trace.sqlite3]",
	Short: "Print the binds recorded in a trace file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true

		records, err := readTrace(cmd.Context(), args[0], showFlags.query)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		forest := tracing.BuildForest(records)

		if showFlags.asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			err = enc.Encode(forest)
		} else {
			err = tracing.PrintForest(os.Stdout, forest)
		}

		if err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func readTrace(
	ctx context.Context,
	path string,
	query tracing.BindQuery,
) ([]tracing.BindRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return tracing.NewBindTraceReader(reader).ListBinds(ctx, query)
}

func init() {
	showCmd.Flags().StringVar(&showFlags.query.Session, "session", "",
		"only show the binds of a session")
	showCmd.Flags().StringVar(&showFlags.query.Name, "name", "",
		"only show the binds of a component")
	showCmd.Flags().BoolVar(&showFlags.query.OnlyFailed, "failed", false,
		"only show failed binds")
	showCmd.Flags().BoolVar(&showFlags.asJSON, "json", false,
		"print the forest as JSON")

	rootCmd.AddCommand(showCmd)
}
