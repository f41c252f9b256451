package sim

import (
	"fmt"
)

// Mode selects what a run does once the workers are up.
type Mode string

const (
	ModeBatch         Mode = "batch"
	ModeVisualization Mode = "visualization"
	ModeBenchmark     Mode = "benchmark"
)

// validModes maps accepted mode strings.
var validModes = map[Mode]bool{
	ModeBatch:         true,
	ModeVisualization: true,
	ModeBenchmark:     true,
}

// IsValidMode returns true if the given string is a recognized run mode.
func IsValidMode(mode string) bool {
	return validModes[Mode(mode)]
}

// Precision is the numeric precision of lattice data and halo buffers.
type Precision string

const (
	PrecisionSingle Precision = "single"
	PrecisionDouble Precision = "double"
)

// Width returns the element width in bytes (4 for single, 8 for double).
func (p Precision) Width() int {
	if p == PrecisionDouble {
		return 8
	}
	return 4
}

// IsValidPrecision returns true if the given string is "single" or "double".
func IsValidPrecision(p string) bool {
	return p == string(PrecisionSingle) || p == string(PrecisionDouble)
}

// Config carries all settings of a run. It is populated once at process
// entry (see cmd/root.go) and treated as read-only by every component
// except for RendezvousPort, which the controller rewrites after binding.
type Config struct {
	RunID string // unique id of this run (xid), used to name recordings

	// Runtime mode settings
	Mode           Mode     // batch, visualization or benchmark
	Every          int      // save/visualize results every N iterations
	MaxIters       int      // number of iterations; 0 runs until shutdown
	Output         string   // output path prefix; empty disables output
	OutputFormat   string   // name of a registered output sink, used when Output is set
	Backends       []string // backend preference list, first available wins
	Visualize      string   // name of a registered visualization engine
	VisAddr        string   // listen address of the visualization engine
	GPUs           []int    // accelerator ids; empty maps every block to 0
	RendezvousPort int      // TCP port of the benchmark rendezvous socket
	Transport      string   // connector transport ("chan" or "tcp")
	BenchmarkDB    string   // optional sqlite path for benchmark summaries

	// Logging
	LogPath  string // additional log file destination
	LogLevel string // logrus level name
	Quiet    bool
	Verbose  bool

	// Simulation-specific settings
	Model     string // name of a registered lattice model
	Precision Precision

	// Geometry settings
	Size       []int  // global lattice size per axis (dim 2 or 3)
	Blocks     []int  // blocks per axis for the regular decomposition
	Periodic   []bool // global periodicity per axis
	LayoutPath string // optional YAML block layout; overrides Blocks
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeBatch,
		Every:          100,
		MaxIters:       0,
		OutputFormat:   "sqlite",
		Backends:       []string{"cuda", "opencl", "host"},
		Visualize:      "web",
		VisAddr:        "127.0.0.1:8088",
		RendezvousPort: 1371,
		Transport:      "chan",
		LogLevel:       "info",
		Model:          "d2q9",
		Precision:      PrecisionSingle,
		Size:           []int{128, 128},
		Blocks:         []int{1, 1},
		Periodic:       []bool{false, false},
	}
}

// Dim returns the dimensionality of the simulation domain.
func (c *Config) Dim() int {
	return len(c.Size)
}

// PeriodicAlong reports whether the global domain wraps around on axis.
func (c *Config) PeriodicAlong(axis int) bool {
	return axis < len(c.Periodic) && c.Periodic[axis]
}

// OutputRequired reports whether workers need a real output sink.
func (c *Config) OutputRequired() bool {
	return c.Output != "" || c.Mode == ModeVisualization
}

// Validate checks structural consistency and plug-in names.
// Plug-in names are checked against the registries, so the implementing
// sub-packages must be imported before calling Validate.
func (c *Config) Validate() error {
	if !validModes[c.Mode] {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if !IsValidPrecision(string(c.Precision)) {
		return fmt.Errorf("unknown precision %q", c.Precision)
	}
	if c.Every < 1 {
		return fmt.Errorf("every must be >= 1, got %d", c.Every)
	}
	if c.MaxIters < 0 {
		return fmt.Errorf("max-iters must be >= 0, got %d", c.MaxIters)
	}
	if c.Mode == ModeBenchmark && c.MaxIters == 0 {
		return fmt.Errorf("benchmark mode requires max-iters > 0")
	}
	if c.RendezvousPort < 0 || c.RendezvousPort > 65535 {
		return fmt.Errorf("rendezvous port out of range: %d", c.RendezvousPort)
	}
	if dim := c.Dim(); dim != 2 && dim != 3 {
		return fmt.Errorf("domain size must have 2 or 3 components, got %d", dim)
	}
	for axis, n := range c.Size {
		if n < 1 {
			return fmt.Errorf("domain size along axis %d must be positive, got %d", axis, n)
		}
	}
	if len(c.Periodic) > c.Dim() {
		return fmt.Errorf("periodic flags given for %d axes in a %d-D domain", len(c.Periodic), c.Dim())
	}
	if c.LayoutPath == "" {
		if len(c.Blocks) != c.Dim() {
			return fmt.Errorf("blocks must have %d components, got %d", c.Dim(), len(c.Blocks))
		}
		for axis, n := range c.Blocks {
			if n < 1 || n > c.Size[axis] {
				return fmt.Errorf("blocks along axis %d must be in [1, %d], got %d", axis, c.Size[axis], n)
			}
		}
	}
	for _, gpu := range c.GPUs {
		if gpu < 0 {
			return fmt.Errorf("accelerator ids must be non-negative, got %d", gpu)
		}
	}
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be listed")
	}
	if _, ok := Models.Lookup(c.Model); !ok {
		return fmt.Errorf("unknown model %q; valid: %v", c.Model, Models.Names())
	}
	if c.Output != "" {
		if _, ok := Outputs.Lookup(c.OutputFormat); !ok {
			return fmt.Errorf("unknown output format %q; valid: %v", c.OutputFormat, Outputs.Names())
		}
	}
	if c.Mode == ModeVisualization {
		if _, ok := VisEngines.Lookup(c.Visualize); !ok {
			return fmt.Errorf("unknown visualization engine %q; valid: %v", c.Visualize, VisEngines.Names())
		}
	}
	return nil
}
