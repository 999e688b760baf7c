package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kerneltune/kerneltune/tune"
	"github.com/kerneltune/kerneltune/tune/trace"
	"github.com/kerneltune/kerneltune/tune/workload"
)

var (
	// CLI flags for the bench subcommand
	benchConfigPath  string  // Path to the workload spec YAML
	benchLogLevel    string  // Log verbosity level
	benchStrategy    string  // Strategy override
	benchCalls       int     // Call count override
	benchWorkers     int     // Worker count override
	benchSeed        int64   // Base seed override
	benchTimeScale   float64 // Simulated-time scale override
	benchDBPath      string  // SQLite observation sink path
	benchMetricsAddr string  // Prometheus listen address
)

// benchCmd replays a workload spec against a fresh dispatcher and reports
// what the bandits learned.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a selection benchmark from a workload spec",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging(benchLogLevel)

		spec, err := workload.LoadSpec(benchConfigPath)
		if err != nil {
			logrus.Fatalf("Failed to load workload spec %s: %v", benchConfigPath, err)
		}

		// Flag overrides beat the spec file where explicitly set.
		flags := cmd.Flags()
		if flags.Changed("strategy") {
			spec.Strategy = benchStrategy
		}
		if flags.Changed("calls") {
			spec.Calls = benchCalls
		}
		if flags.Changed("workers") {
			spec.Workers = benchWorkers
		}
		if flags.Changed("seed") {
			spec.Seed = benchSeed
		}
		if flags.Changed("time-scale") {
			spec.TimeScale = benchTimeScale
		}

		runner, err := workload.NewRunner(spec)
		if err != nil {
			logrus.Fatalf("Failed to build workload: %v", err)
		}

		var sinks []trace.Sink
		if benchDBPath != "" {
			sink, err := trace.NewSQLiteSink(benchDBPath)
			if err != nil {
				logrus.Fatalf("Failed to open observations db: %v", err)
			}
			defer func() { _ = sink.Close() }()
			sinks = append(sinks, sink)
		}
		obsLog := trace.NewLog(sinks...)

		d := tune.NewDispatcher(tune.Config{Seed: spec.Seed, Log: obsLog})
		if spec.Strategy != "" {
			d.SetActiveStrategy(tune.Strategy(spec.Strategy))
		}

		if benchMetricsAddr != "" {
			serveMetrics(benchMetricsAddr)
		}

		logrus.Infof("Starting benchmark run %s: strategy=%q calls=%d workers=%d",
			obsLog.RunID(), spec.Strategy, spec.Calls, spec.Workers)

		res := runner.Run(d)
		printBenchReport(os.Stdout, res, d, obsLog)

		logrus.Info("Benchmark complete.")
	},
}

// serveMetrics exposes the Prometheus registry in the background. Benchmark
// runs are short-lived, so the server stops with the process.
func serveMetrics(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logrus.Infof("Serving Prometheus metrics on http://%s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.Errorf("Metrics server stopped: %v", err)
		}
	}()
}

// printBenchReport writes the human-readable run report.
func printBenchReport(w io.Writer, res *workload.Results, d *tune.Dispatcher, obsLog *trace.Log) {
	fmt.Fprintln(w, "=== Benchmark Results ===")
	fmt.Fprintf(w, "Run ID        : %s\n", obsLog.RunID())
	fmt.Fprintf(w, "Calls         : %d\n", res.Calls)
	fmt.Fprintf(w, "Measured      : %d\n", res.ByState[tune.SelectionFinished])
	fmt.Fprintf(w, "Fallback      : %d\n", res.ByState[tune.SelectionFallback])
	fmt.Fprintf(w, "Disabled      : %d\n", res.ByState[tune.SelectionDisabled])
	fmt.Fprintf(w, "Wall time     : %s\n", res.Wall)
	fmt.Fprintf(w, "Simulated time: %.2f ms\n", res.SimulatedNanos/1e6)

	printChoiceCounts(w, d)
	printBeliefState(w, d)
	printObservedCosts(w, trace.Summarize(obsLog))
}

// printChoiceCounts lists how often each implementation won a selection.
// Prints nothing when no selection ever ran (disabled or all-fallback runs).
func printChoiceCounts(w io.Writer, d *tune.Dispatcher) {
	var total int64
	for impl := tune.Implementation(0); impl < tune.NumImplementations; impl++ {
		if impl.Selectable() {
			total += d.TimesChosen(impl)
		}
	}
	if total == 0 {
		return
	}
	fmt.Fprintln(w, "=== Selections by Implementation ===")
	for impl := tune.Implementation(0); impl < tune.NumImplementations; impl++ {
		if !impl.Selectable() {
			continue
		}
		if n := d.TimesChosen(impl); n > 0 {
			fmt.Fprintf(w, "%-16s : %d\n", impl, n)
		}
	}
}

// printBeliefState dumps the active registry's per-site bandit summaries.
func printBeliefState(w io.Writer, d *tune.Dispatcher) {
	lines := d.Summarize()
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(w, "=== Belief State ===")
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// printObservedCosts reports per-site measured costs, best arm starred.
func printObservedCosts(w io.Writer, summary *trace.Summary) {
	if summary.TotalRecords == 0 {
		return
	}
	fmt.Fprintln(w, "=== Observed Costs by Call Site ===")
	for _, ks := range summary.Keys {
		fmt.Fprintf(w, "%s (%s)\n", ks.Key, ks.Repr)
		for _, arm := range ks.Arms {
			marker := " "
			if arm.Implementation == ks.Best {
				marker = "*"
			}
			fmt.Fprintf(w, " %s %-16s n=%-6d mean=%.0fns min=%dns max=%dns\n",
				marker, arm.Implementation, arm.Count, arm.MeanNanos, arm.MinNanos, arm.MaxNanos)
		}
	}
}

// init sets up CLI flags and attaches bench to the root command
func init() {
	benchCmd.Flags().StringVar(&benchConfigPath, "config", "", "Path to workload spec YAML")
	_ = benchCmd.MarkFlagRequired("config")
	benchCmd.Flags().StringVar(&benchLogLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	benchCmd.Flags().StringVar(&benchStrategy, "strategy", "", "Override the spec's strategy (random, gaussian, or empty to disable selection)")
	benchCmd.Flags().IntVar(&benchCalls, "calls", 0, "Override the spec's call count")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 0, "Override the spec's worker count")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 0, "Override the spec's base seed")
	benchCmd.Flags().Float64Var(&benchTimeScale, "time-scale", 0, "Override the spec's simulated-time scale")
	benchCmd.Flags().StringVar(&benchDBPath, "observations-db", "", "SQLite file to persist per-call observations")
	benchCmd.Flags().StringVar(&benchMetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090)")

	rootCmd.AddCommand(benchCmd)
}
