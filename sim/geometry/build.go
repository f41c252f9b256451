package geometry

import "github.com/halo-sim/halo-sim/sim"

// FromConfig builds the domain geometry selected by cfg: the YAML layout
// when LayoutPath is set, the regular decomposition otherwise.
func FromConfig(cfg *sim.Config) (sim.DomainGeometry, error) {
	if cfg.LayoutPath != "" {
		return LoadLayout(cfg.LayoutPath)
	}
	return NewRegularGeometry(cfg.Size, cfg.Blocks, cfg.Periodic)
}

// ApplyLayout copies the domain size and periodicity of the layout file
// named by cfg.LayoutPath into cfg, so that models and validation see the
// real domain. It is a no-op without a layout.
func ApplyLayout(cfg *sim.Config) error {
	if cfg.LayoutPath == "" {
		return nil
	}
	geo, err := LoadLayout(cfg.LayoutPath)
	if err != nil {
		return err
	}
	cfg.Size = append([]int(nil), geo.Extent()...)
	cfg.Periodic = append([]bool(nil), geo.periodic...)
	return nil
}
