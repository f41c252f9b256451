package output

import (
	"github.com/halo-sim/halo-sim/sim"
)

// VisualizationWrapper forwards output to an inner sink and, when the
// shared configuration selects this block, copies the selected field into
// the block's visualization region.
type VisualizationWrapper struct {
	inner   sim.OutputSink
	blockID int
	region  *sim.VisRegion
	shared  *sim.VisConfig
}

// NewVisualizationWrapper wraps inner for blockID.
func NewVisualizationWrapper(inner sim.OutputSink, blockID int, region *sim.VisRegion, shared *sim.VisConfig) *VisualizationWrapper {
	return &VisualizationWrapper{inner: inner, blockID: blockID, region: region, shared: shared}
}

// Save forwards to the inner sink, then publishes the selected field. With
// no field selected the alphabetically first one is shown.
func (w *VisualizationWrapper) Save(iteration int, fields map[string][]float64) error {
	if err := w.inner.Save(iteration, fields); err != nil {
		return err
	}
	settings := w.shared.Settings()
	if !settings.AllBlocks && w.blockID != 0 {
		return nil
	}
	values, ok := fields[settings.FieldName]
	if !ok {
		values = firstField(fields)
	}
	w.region.Write(iteration, func(dst []float32, _ []uint8) {
		for i := range dst {
			if i < len(values) {
				dst[i] = float32(values[i])
			} else {
				dst[i] = 0
			}
		}
	})
	w.shared.Publish(iteration)
	return nil
}

// SaveGeometry stores the node type tags of the block.
func (w *VisualizationWrapper) SaveGeometry(tags []uint8) error {
	w.region.Write(-1, func(_ []float32, dst []uint8) {
		copy(dst, tags)
	})
	if gs, ok := w.inner.(sim.GeometrySink); ok {
		return gs.SaveGeometry(tags)
	}
	return nil
}

func (w *VisualizationWrapper) Close() error { return w.inner.Close() }

func firstField(fields map[string][]float64) []float64 {
	first := ""
	for name := range fields {
		if first == "" || name < first {
			first = name
		}
	}
	return fields[first]
}
