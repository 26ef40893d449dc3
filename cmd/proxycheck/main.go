package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/corbinu/harmony-reflect/pkg/config"
	"github.com/corbinu/harmony-reflect/pkg/scenario"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// run and watch flags
	runFilter string
	failFast  bool
	parallel  int

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "proxycheck",
	Short: "Run proxy invariant scenarios",
	Long: `proxycheck executes YAML scenarios against validated proxies.

Each scenario builds a target record and a handler with canned trap
answers, then runs a list of operations and compares every result,
descriptor, name list or error against its expectation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = cfg.Logger(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Run scenario files or directories",
	RunE:  runScenarios,
}

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Run scenarios, then run them again whenever a scenario file changes",
	RunE:  watchScenarios,
}

var listCmd = &cobra.Command{
	Use:   "list [paths...]",
	Short: "List scenario names",
	RunE:  listScenarios,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "proxycheck.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	for _, c := range []*cobra.Command{runCmd, watchCmd} {
		c.Flags().StringVar(&runFilter, "run", "", "Only run scenarios whose name matches this regular expression")
		c.Flags().BoolVar(&failFast, "fail-fast", false, "Stop after the first failing scenario")
		c.Flags().IntVarP(&parallel, "parallel", "p", 0, "Scenarios to run at once (default from config)")
	}

	rootCmd.AddCommand(runCmd, watchCmd, listCmd)
}

// paths prefers command-line paths over the configured ones.
func paths(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Run.Paths
}

func runScenarios(cmd *cobra.Command, args []string) error {
	files, err := scenario.Load(paths(args))
	if err != nil {
		return err
	}

	pattern := cfg.Run.Filter
	if cmd.Flags().Changed("run") {
		pattern = runFilter
	}
	filter, err := scenario.CompileFilter(pattern)
	if err != nil {
		return err
	}

	n := cfg.Run.Parallel
	if parallel > 0 {
		n = parallel
	}
	runner := scenario.NewRunner(
		scenario.WithLogger(logger),
		scenario.WithFilter(filter),
		scenario.WithFailFast(failFast || cfg.Run.FailFast),
		scenario.WithParallel(n),
	)
	sum := runner.Run(files)

	out := cmd.OutOrStdout()
	for _, res := range sum.Results {
		switch {
		case res.Skipped:
			if verbose {
				fmt.Fprintf(out, "SKIP %s\n", res.Name)
			}
		case res.Err != nil:
			fmt.Fprintf(out, "FAIL %s (%s)\n%v\n", res.Name, res.File, res.Err)
		default:
			if verbose {
				fmt.Fprintf(out, "PASS %s\n", res.Name)
			}
		}
	}
	printSummary(out, sum)

	if sum.Failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", sum.Failed)
	}
	return nil
}

func printSummary(w io.Writer, sum *scenario.Summary) {
	p := message.NewPrinter(language.English)
	percent := func(n int) float64 {
		if sum.Total() == 0 {
			return 0
		}
		return float64(n) / float64(sum.Total()) * 100
	}
	p.Fprintf(w, "\n=== Scenario Summary ===\n")
	p.Fprintf(w, "Total:    %d\n", sum.Total())
	p.Fprintf(w, "Passed:   %d (%.1f%%)\n", sum.Passed, percent(sum.Passed))
	p.Fprintf(w, "Failed:   %d (%.1f%%)\n", sum.Failed, percent(sum.Failed))
	p.Fprintf(w, "Skipped:  %d (%.1f%%)\n", sum.Skipped, percent(sum.Skipped))
	p.Fprintf(w, "Duration: %v\n", sum.Duration)
	p.Fprintf(w, "========================\n")
}

// watchScenarios runs once, then again after every change, until
// interrupted. Failures are reported but do not stop the watch.
func watchScenarios(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w, err := scenario.NewWatcher(paths(args), scenario.WithWatchLogger(logger))
	if err != nil {
		return err
	}
	rerun := func() {
		if err := runScenarios(cmd, args); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}
	rerun()
	return w.Run(ctx, rerun)
}

func listScenarios(cmd *cobra.Command, args []string) error {
	files, err := scenario.Load(paths(args))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, f := range files {
		for _, s := range f.Scenarios {
			fmt.Fprintf(out, "%s\t%s\n", f.Path, s.Name)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
