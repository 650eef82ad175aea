package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/sarchlab/bindtrace/config"
	"github.com/sarchlab/bindtrace/loader"
	"github.com/sarchlab/bindtrace/monitoring"
	"github.com/sarchlab/bindtrace/session"
	"github.com/sarchlab/bindtrace/tracing"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var runFlags struct {
	catalog     string
	entry       string
	searchPaths []string
	context     string
	envFiles    []string
	keepServing bool
}

var runCmd = &cobra.Command{
	Use:   "run [component...]",
	Short: "Load components from a catalog with bind tracing on",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true

		entry, err := tracing.ParseEntryPoint(runFlags.entry)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		catalog, err := loader.ReadCatalog(runFlags.catalog)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		cfg, err := config.Load(runFlags.envFiles...)
		if err != nil {
			log.Fatalf("Error reading configuration: %v", err)
		}

		s, err := session.MakeBuilder().WithConfig(cfg).Build()
		if err != nil {
			log.Fatalf("Error starting tracing session: %v", err)
		}

		failed := loadAll(s, catalog, entry, args)

		if s.Recorder() != nil {
			err = tracing.PrintForest(os.Stdout,
				tracing.BuildForest(s.Recorder().Records()))
			if err != nil {
				log.Fatalf("Error printing binds: %v", err)
			}
		}

		if runFlags.keepServing && s.Monitor() != nil {
			waitForInterrupt(s.MonitorURL())
		}

		err = s.Terminate()
		if err != nil {
			log.Fatalf("Error closing tracing session: %v", err)
		}

		if s.DBFile() != "" {
			fmt.Fprintf(os.Stderr, "Binds recorded in %s\n", s.DBFile())
		}

		if failed > 0 {
			atexit.Exit(1)
		}
	},
}

func loadAll(
	s *session.Session,
	catalog *loader.Catalog,
	entry tracing.EntryPoint,
	names []string,
) (failed int) {
	l := loader.MakeBuilder().
		WithCatalog(catalog).
		WithTracer(s.Tracer()).
		WithSearchPaths(runFlags.searchPaths...).
		Build()

	ctx := l.DefaultContext()
	if runFlags.context != "" {
		ctx = l.NewContext(runFlags.context)
	}

	thread := s.NewThread()

	var bar *monitoring.ProgressBar

	if s.Monitor() != nil {
		bar = s.Monitor().CreateProgressBar("load", uint64(len(names)))
		defer s.Monitor().CompleteProgressBar(bar)
	}

	for _, name := range names {
		if bar != nil {
			bar.IncrementInProgress(1)
		}

		path, err := l.Load(thread, ctx, name, entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)

			failed++

			if bar != nil {
				bar.MoveInProgressToFailed(1)
			}

			continue
		}

		fmt.Printf("%s: %s\n", name, path)

		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}
	}

	return failed
}

func waitForInterrupt(url string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Serving binds at %s, press Ctrl-C to exit\n", url)
	<-ctx.Done()
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.catalog, "catalog", "c", "",
		"JSON file listing the components")
	runCmd.Flags().StringVarP(&runFlags.entry, "entry", "e", "Load",
		"entry point of the loads (Load, LoadFromPath, LoadFromStream, JIT, Reflection)")
	runCmd.Flags().StringSliceVarP(&runFlags.searchPaths, "search-path", "s",
		[]string{"."}, "directories probed for component files")
	runCmd.Flags().StringVar(&runFlags.context, "context", "",
		"load into a new named context instead of the default one")
	runCmd.Flags().StringSliceVar(&runFlags.envFiles, "env", []string{".env"},
		"dotenv files to read the configuration from")
	runCmd.Flags().BoolVar(&runFlags.keepServing, "serve", false,
		"keep the monitor running after loading")

	err := runCmd.MarkFlagRequired("catalog")
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd)
}
