package sim

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Model describes a lattice model. It is instantiated once per run so that
// its constants (grid, non-locality, fields) can be inspected before any
// worker starts.
type Model interface {
	Name() string
	Dim() int
	Grid() *Grid
	// Nonlocality is the interaction radius of the model beyond the grid
	// basis (e.g. for gradient terms); 0 for purely local models.
	Nonlocality() int
	// Fields lists the macroscopic fields a worker exposes to output sinks.
	Fields() []string
}

// ModelFactory creates a Model from the run configuration.
type ModelFactory func(cfg *Config) (Model, error)

// Kernel is one unit of work launched on a backend.
type Kernel func() error

// Backend is a compute device context owned by a single worker.
type Backend interface {
	Name() string
	Device() int
	Launch(k Kernel) error
	Close() error
}

// BackendFactory creates a backend bound to the given accelerator id. It is
// called inside the worker task so that the device context belongs to it.
type BackendFactory func(cfg *Config, device int) (Backend, error)

// OutputSink receives the macroscopic fields of one block.
type OutputSink interface {
	Save(iteration int, fields map[string][]float64) error
	Close() error
}

// GeometrySink is implemented by sinks that also accept per-node geometry
// tags (e.g. the visualization wrapper).
type GeometrySink interface {
	SaveGeometry(tags []uint8) error
}

// OutputFactory creates the output sink for one block.
type OutputFactory func(cfg *Config, blockID int) (OutputSink, error)

// VisEngine renders the shared visualization regions of all blocks.
// Run returns when visQuit is set or ctx is done. The engine may set
// simQuit to ask the simulation to stop.
type VisEngine interface {
	Name() string
	Run(ctx context.Context, cfg *Config, blocks []*Block, visQuit, simQuit *Signal, shared *VisConfig) error
}

// VisEngineFactory creates a visualization engine.
type VisEngineFactory func(log logrus.FieldLogger) VisEngine

// DomainGeometry is the global simulation domain and its decomposition.
type DomainGeometry interface {
	Dim() int
	// Extent returns the global size per axis.
	Extent() []int
	// Periodic reports whether the domain wraps around on axis.
	Periodic(axis int) bool
	// Blocks returns a fresh, unconnected block list covering the domain.
	Blocks() []*Block
}

// Connector is one endpoint of a halo-exchange connector pair.
type Connector interface {
	// SendElements and RecvElements are the fixed buffer sizes of the two
	// directions, in elements.
	SendElements() int
	RecvElements() int
	Send(buf []byte) error
	Recv() ([]byte, error)
	SendFloats(values []float64) error
	RecvFloats() ([]float64, error)
	Close() error
}

// WorkerParams is everything a block worker is handed by the machine
// master.
type WorkerParams struct {
	Block          *Block
	Config         *Config
	Model          Model
	BackendName    string
	NewBackend     BackendFactory
	Device         int
	Output         OutputSink
	Quit           *Signal
	RendezvousAddr string
	Log            logrus.FieldLogger
}

// WorkerFunc runs one block worker to completion.
type WorkerFunc func(ctx context.Context, p WorkerParams) error
