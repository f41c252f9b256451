package controller

import (
	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/recording"
)

// blockTiming is one row of the block_timing table.
type blockTiming struct {
	RunID      string
	BlockID    int
	NodeCount  int64
	Iterations int
	Total      float64
	Comp       float64
}

// runTotals is the single row of the run_totals table.
type runTotals struct {
	RunID          string
	Blocks         int
	EffectiveMLUPS float64
	ComputeMLUPS   float64
}

// saveBenchmark writes the summaries and totals of a benchmark run to
// cfg.BenchmarkDB + ".sqlite3".
func saveBenchmark(cfg *sim.Config, result *BenchmarkResult, log logrus.FieldLogger) error {
	rec, err := recording.New(cfg.BenchmarkDB, log)
	if err != nil {
		return err
	}
	defer rec.Close()

	if err := rec.CreateTable("block_timing", blockTiming{}); err != nil {
		return err
	}
	if err := rec.CreateTable("run_totals", runTotals{}); err != nil {
		return err
	}
	for _, s := range result.Summaries {
		row := blockTiming{
			RunID:      cfg.RunID,
			BlockID:    s.BlockID,
			NodeCount:  s.NodeCount,
			Iterations: s.Iterations,
			Total:      s.Total,
			Comp:       s.Comp,
		}
		if err := rec.InsertData("block_timing", row); err != nil {
			return err
		}
	}
	if err := rec.InsertData("run_totals", runTotals{
		RunID:          cfg.RunID,
		Blocks:         len(result.Blocks),
		EffectiveMLUPS: result.EffectiveMLUPS,
		ComputeMLUPS:   result.ComputeMLUPS,
	}); err != nil {
		return err
	}
	if err := rec.Close(); err != nil {
		return err
	}
	log.WithField("path", rec.Path()).Info("Benchmark results saved")
	return nil
}
