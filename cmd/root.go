package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/controller"
	"github.com/halo-sim/halo-sim/sim/geometry"

	// Plug-in implementations register themselves on import.
	_ "github.com/halo-sim/halo-sim/sim/backend"
	_ "github.com/halo-sim/halo-sim/sim/model"
	_ "github.com/halo-sim/halo-sim/sim/output"
	_ "github.com/halo-sim/halo-sim/sim/vis"
)

var (
	// Runtime mode
	mode           string // batch, visualization or benchmark
	output         string // Output path prefix; empty disables output
	outputFormat   string // Output sink name
	gpus           []int  // Accelerator ids, assigned round-robin
	backends       []string
	visualize      string // Visualization engine name
	visAddr        string // Visualization engine listen address
	rendezvousPort int    // Port of the benchmark rendezvous socket
	transport      string // Connector transport
	benchmarkDB    string // sqlite prefix for benchmark results
	every          int    // Output cadence in iterations
	maxIters       int    // Iteration limit; 0 runs until interrupted

	// Logging
	logPath  string
	logLevel string
	quiet    bool
	verbose  bool

	// Simulation
	modelName  string
	precision  string
	size       []int
	blocks     []int
	periodic   []bool
	layoutPath string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "halo-sim",
	Short: "Block-decomposed lattice simulation orchestrator",
}

// runCmd decomposes the domain and runs one worker per block
var runCmd = &cobra.Command{
	Use:          "run",
	Short:        "Run a simulation",
	SilenceUsage: true,
	RunE:         runSimulation,
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	if err := applyRCDefaults(cmd.Flags(), rcFiles()); err != nil {
		return err
	}

	logger := logrus.StandardLogger()
	closeLog, err := setupLogging(logger, logLevel, logPath, quiet, verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := buildConfig()
	if err := geometry.ApplyLayout(cfg); err != nil {
		logger.Errorf("Invalid layout: %v", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		return err
	}
	log := logger.WithField("run", cfg.RunID)
	log.WithFields(logrus.Fields{
		"mode":   cfg.Mode,
		"model":  cfg.Model,
		"size":   cfg.Size,
		"blocks": cfg.Blocks,
	}).Info("Starting simulation")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := controller.New(cfg, log).Run(ctx); err != nil {
		log.WithError(err).Error("Simulation failed")
		return err
	}
	log.Info("Simulation complete.")
	return nil
}

// buildConfig assembles the run configuration from the flag variables.
func buildConfig() *sim.Config {
	return &sim.Config{
		RunID:          xid.New().String(),
		Mode:           sim.Mode(mode),
		Every:          every,
		MaxIters:       maxIters,
		Output:         output,
		OutputFormat:   outputFormat,
		Backends:       backends,
		Visualize:      visualize,
		VisAddr:        visAddr,
		GPUs:           gpus,
		RendezvousPort: rendezvousPort,
		Transport:      transport,
		BenchmarkDB:    benchmarkDB,
		LogPath:        logPath,
		LogLevel:       logLevel,
		Quiet:          quiet,
		Verbose:        verbose,
		Model:          modelName,
		Precision:      sim.Precision(precision),
		Size:           size,
		Blocks:         blocks,
		Periodic:       periodic,
		LayoutPath:     layoutPath,
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up CLI flags and subcommands
func init() {
	d := sim.DefaultConfig()

	runCmd.Flags().StringVar(&mode, "mode", string(d.Mode), "Run mode (batch, visualization, benchmark)")
	runCmd.Flags().StringVar(&output, "output", "", "Output path prefix; empty disables output")
	runCmd.Flags().StringVar(&outputFormat, "output-format", d.OutputFormat, "Output format used with --output")
	runCmd.Flags().IntSliceVar(&gpus, "gpus", nil, "Comma-separated accelerator ids assigned round-robin to blocks")
	runCmd.Flags().StringSliceVar(&backends, "backends", d.Backends, "Compute backends in order of preference")
	runCmd.Flags().StringVar(&visualize, "visualize", d.Visualize, "Visualization engine")
	runCmd.Flags().StringVar(&visAddr, "vis-addr", d.VisAddr, "Listen address of the visualization engine")
	runCmd.Flags().IntVar(&rendezvousPort, "rendezvous-port", d.RendezvousPort, "Port of the benchmark rendezvous socket (0 picks a free one)")
	runCmd.Flags().StringVar(&transport, "transport", d.Transport, "Connector transport (chan, tcp)")
	runCmd.Flags().StringVar(&benchmarkDB, "benchmark-db", "", "sqlite file prefix for benchmark results")
	runCmd.Flags().IntVar(&every, "every", d.Every, "Save or visualize results every N iterations")
	runCmd.Flags().IntVar(&maxIters, "max-iters", d.MaxIters, "Number of iterations to run; 0 runs until interrupted")

	runCmd.Flags().StringVar(&logPath, "log", "", "Also write log messages to this file")
	runCmd.Flags().StringVar(&logLevel, "log-level", d.LogLevel, "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors, and do not print the benchmark report")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")

	runCmd.Flags().StringVar(&modelName, "model", d.Model, fmt.Sprintf("Lattice model %v", sim.Models.Names()))
	runCmd.Flags().StringVar(&precision, "precision", string(d.Precision), "Numeric precision (single, double)")
	runCmd.Flags().IntSliceVar(&size, "size", d.Size, "Global lattice size per axis")
	runCmd.Flags().IntSliceVar(&blocks, "blocks", d.Blocks, "Number of blocks per axis")
	runCmd.Flags().BoolSliceVar(&periodic, "periodic", d.Periodic, "Periodicity per axis")
	runCmd.Flags().StringVar(&layoutPath, "layout", "", "YAML block layout; overrides --size and --blocks")

	rootCmd.AddCommand(runCmd)
}
