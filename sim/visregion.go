package sim

import "sync"

// VisRegion is the pair of buffers a worker shares with the visualization
// engine: sampled field values and per-node geometry tags. One lock guards
// both buffers so that a reader never sees values and tags from different
// iterations.
type VisRegion struct {
	mu        sync.RWMutex
	values    []float32
	tags      []uint8
	iteration int
}

// NewVisRegion allocates a region for a block with n nodes.
func NewVisRegion(n int) *VisRegion {
	return &VisRegion{
		values:    make([]float32, n),
		tags:      make([]uint8, n),
		iteration: -1,
	}
}

// Len returns the number of nodes covered by the region.
func (r *VisRegion) Len() int { return len(r.values) }

// Write runs fn with exclusive access to both buffers and records the
// iteration the data belongs to.
func (r *VisRegion) Write(iteration int, fn func(values []float32, tags []uint8)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.values, r.tags)
	r.iteration = iteration
}

// Read runs fn with shared access to both buffers. fn must not retain the
// slices.
func (r *VisRegion) Read(fn func(iteration int, values []float32, tags []uint8)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.iteration, r.values, r.tags)
}

// Snapshot returns copies of both buffers.
func (r *VisRegion) Snapshot() (iteration int, values []float32, tags []uint8) {
	r.Read(func(it int, v []float32, t []uint8) {
		iteration = it
		values = append([]float32(nil), v...)
		tags = append([]uint8(nil), t...)
	})
	return iteration, values, tags
}

// VisConfig is the configuration region shared between the visualization
// engine and all visualization wrappers: the last published iteration, the
// field to show and whether every block (or only the first) is published.
type VisConfig struct {
	mu        sync.RWMutex
	iteration int
	fieldName string
	allBlocks bool
}

// VisSettings is a point-in-time copy of a VisConfig.
type VisSettings struct {
	Iteration int    `json:"iteration"`
	FieldName string `json:"field_name"`
	AllBlocks bool   `json:"all_blocks"`
}

// NewVisConfig creates a config region with no published iteration.
func NewVisConfig() *VisConfig {
	return &VisConfig{iteration: -1}
}

// Settings returns a copy of the current settings.
func (c *VisConfig) Settings() VisSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return VisSettings{Iteration: c.iteration, FieldName: c.fieldName, AllBlocks: c.allBlocks}
}

// SetField selects the field to publish.
func (c *VisConfig) SetField(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldName = name
}

// SetAllBlocks selects whether every block publishes its data.
func (c *VisConfig) SetAllBlocks(all bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allBlocks = all
}

// Publish records that data for iteration is available. Older iterations
// never overwrite newer ones.
func (c *VisConfig) Publish(iteration int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if iteration > c.iteration {
		c.iteration = iteration
	}
}
