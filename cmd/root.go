package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/overlay-engine/morsr"
	"github.com/inference-sim/overlay-engine/morsr/cache"
)

var (
	// CLI flags shared by every subcommand
	logLevel    string // Log verbosity level
	configPath  string // Optional engine YAML config
	metricsPath string // Prometheus text dump written when the command finishes

	// metricsRegistry collects cache metrics for --metrics; nil leaves them unregistered
	metricsRegistry *prometheus.Registry

	// CLI flags for commands that take a feature vector
	features []float64 // 8-dimensional feature vector
	domain   string    // Domain tag recorded in the pose

	// CLI flags overriding the config file (applied only when set)
	maxIterations int      // Pulse sweep iteration cap
	operatorNames []string // Per-iteration operator order
	stopOnPlateau bool     // Stop after an iteration without strict decrease
	cacheSize     int      // In-memory cache capacity
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:          "overlay-engine",
	Short:        "Content-addressed overlay engine with a monotone pulse-sweep optimizer",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		if metricsPath != "" {
			metricsRegistry = prometheus.NewRegistry()
		}
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsRegistry == nil {
			return nil
		}
		return writeMetrics(metricsPath, metricsRegistry)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config (or the built-in defaults) and applies flag
// overrides the user explicitly set.
func loadConfig(cmd *cobra.Command) (*morsr.Config, error) {
	cfg := morsr.DefaultConfig()
	if configPath != "" {
		loaded, err := morsr.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Lookup("max-iterations") != nil && flags.Changed("max-iterations") {
		cfg.Protocol.MaxIterations = maxIterations
	}
	if flags.Lookup("operators") != nil && flags.Changed("operators") {
		cfg.Protocol.Operators = operatorNames
	}
	if flags.Lookup("stop-on-plateau") != nil && flags.Changed("stop-on-plateau") {
		cfg.Protocol.StopOnPlateau = stopOnPlateau
	}
	if flags.Lookup("cache-size") != nil && flags.Changed("cache-size") {
		cfg.Cache.MaxSize = cacheSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerer returns the --metrics registry, or nil so collectors stay unregistered.
func registerer() prometheus.Registerer {
	if metricsRegistry == nil {
		return nil
	}
	return metricsRegistry
}

// writeMetrics dumps every gathered family in the Prometheus text format.
// "-" writes to stderr.
func writeMetrics(path string, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	var w io.Writer = os.Stderr
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating metrics file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// openEngine builds the engine with a cache store wired to the configured backend.
func openEngine(ctx context.Context, cfg *morsr.Config) (*morsr.Engine, *cache.OverlayCache, error) {
	store, err := cache.NewFromConfig(ctx, cfg.Cache, registerer())
	if err != nil {
		return nil, nil, err
	}
	engine, err := morsr.NewEngine(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return engine, store, nil
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func addFeatureFlags(c *cobra.Command) {
	c.Flags().Float64SliceVar(&features, "features", nil, "Comma-separated 8-dimensional feature vector")
	c.Flags().StringVar(&domain, "domain", "", "Domain tag recorded in the overlay pose (e.g. text, code)")
	_ = c.MarkFlagRequired("features")
}

func addProtocolFlags(c *cobra.Command) {
	c.Flags().IntVar(&maxIterations, "max-iterations", morsr.DefaultMaxIterations, "Pulse sweep iteration cap")
	c.Flags().StringSliceVar(&operatorNames, "operators", append([]string(nil), morsr.DefaultOperatorSequence...), "Operator order per iteration")
	c.Flags().BoolVar(&stopOnPlateau, "stop-on-plateau", false, "Stop after an iteration without a strict decrease")
	c.Flags().IntVar(&cacheSize, "cache-size", morsr.DefaultCacheSize, "In-memory overlay cache capacity")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an engine YAML config")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics", "", "Write cache metrics in Prometheus text format to this file on exit (- for stderr)")

	addFeatureFlags(embedCmd)

	addFeatureFlags(sweepCmd)
	addProtocolFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&tracePath, "trace", "", "Write every handshake record as JSON to this file")

	applyCmd.Flags().StringVar(&applyOp, "op", "", "Operator name ("+fmt.Sprint(morsr.OperatorNames())+")")
	applyCmd.Flags().Float64Var(&applyTheta, "theta", morsr.RotationQuantum, "Rotation angle in radians (snapped to π/12)")
	applyCmd.Flags().IntVar(&applyRoot, "root", 0, "Reflection simple-root index [0, 8)")
	applyCmd.Flags().IntVar(&applyTarget, "target", morsr.AutoInsertTarget, "single_insert slot (-1 picks the first free lane)")
	applyCmd.Flags().Float64Var(&applyWeight, "weight", morsr.DefaultInsertWeight, "single_insert weight")
	_ = applyCmd.MarkFlagRequired("op")

	addProtocolFlags(batchCmd)
	batchCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Maximum concurrent sweeps (0 = one per input)")

	cacheCmd.AddCommand(cacheGetCmd)

	rootCmd.AddCommand(embedCmd, sweepCmd, applyCmd, batchCmd, cacheCmd)
}
