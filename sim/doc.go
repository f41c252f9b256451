// Package sim provides the core types of the halo-sim block orchestrator.
//
// # Reading Guide
//
// Start with these files to understand the data model:
//   - block.go: Block (subdomain) geometry, faces, and adjacency via Connect
//   - config.go: run configuration shared by every component
//   - plugins.go: plug-in interfaces (Model, Backend, OutputSink, VisEngine)
//   - registry.go: the generic Registry and the package registries
//
// # Architecture
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/geometry/: domain geometries and the topology Processor
//   - sim/connector/: paired halo-exchange endpoints and their transports
//   - sim/machine/: single-host Master, accelerator assignment, task supervision
//   - sim/controller/: run entry point and benchmark summary collection
//   - sim/rendezvous/: request/reply socket used for timing summaries
//   - sim/runner/: reference block worker
//   - sim/model/, sim/backend/, sim/output/, sim/vis/: plug-in implementations
//   - sim/recording/: sqlite recorder shared by the sqlite sink and benchmark db
//
// Plug-in sub-packages register their implementations via init() functions
// into the registries declared in registry.go (Models, Backends, Outputs,
// VisEngines). Importing a sub-package is what makes its names selectable.
package sim
