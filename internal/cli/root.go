package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riskibarqy/chefscore/internal/app"
	"github.com/riskibarqy/chefscore/internal/config"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

type options struct {
	source   string
	manifest string
	workers  int
	logLevel string

	out    io.Writer
	errOut io.Writer

	svc     *app.Services
	cleanup func()
}

// NewRootCommand builds the chefscore command tree writing tables to out and logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &options{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "chefscore",
		Short: "Chest analytics for weekly player exports",
		Long: `chefscore reads the week manifest and per-week player files from a local
directory or an HTTP base URL and prints weekly and historical chest statistics.

Environment variables used by the API (DATA_SOURCE, DATA_MANIFEST_PATH,
HISTORY_MAX_WORKERS, SOURCE_*) are honoured; flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.cleanup != nil {
				opts.cleanup()
			}
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.source, "source", "", "Data directory or http(s) base URL (default $DATA_SOURCE or ./data)")
	flags.StringVar(&opts.manifest, "manifest", "", "Manifest path relative to the source (default weeks.json)")
	flags.IntVar(&opts.workers, "workers", 0, "Concurrent week loads for history commands")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(
		newWeeksCommand(opts),
		newLatestCommand(opts),
		newWeekCommand(opts),
		newStatsCommand(opts),
		newHistoryCommand(opts),
		newPlayerCommand(opts),
		newTopCommand(opts),
	)

	return root
}

// Execute runs the CLI against the process stdio and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// services wires the usecases on first use so help and flag errors never touch the source.
func (o *options) services(cmd *cobra.Command) (*app.Services, error) {
	if o.svc != nil {
		return o.svc, nil
	}

	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}

	logger := logging.NewConsole(o.errOut, logging.ParseLevel(o.logLevel))
	logging.SetDefault(logger)

	svc, cleanup, err := app.NewServices(cfg, logger)
	if err != nil {
		return nil, err
	}
	o.svc = svc
	o.cleanup = cleanup
	return svc, nil
}

func (o *options) config(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	if source := strings.TrimSpace(o.source); source != "" {
		cfg.DataSource = source
	}
	if manifest := strings.TrimSpace(o.manifest); manifest != "" {
		cfg.ManifestPath = manifest
	}
	if cmd.Flags().Changed("workers") {
		if o.workers < 1 || o.workers > config.MaxHistoryWorkers {
			return config.Config{}, fmt.Errorf("--workers must be between 1 and %d", config.MaxHistoryWorkers)
		}
		cfg.HistoryMaxWorkers = o.workers
	}

	// One-shot runs never reuse payloads or persist snapshots.
	cfg.CacheEnabled = false
	cfg.StoreDriver = config.StoreMemory

	return cfg, nil
}
