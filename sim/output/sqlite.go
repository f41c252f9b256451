package output

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/recording"
)

const fieldStatsTable = "field_stats"

// FieldStats is one row of the sqlite sink: summary statistics of one field
// of one block at one iteration.
type FieldStats struct {
	RunID     string
	Block     int
	Iteration int
	Field     string
	Nodes     int
	Min       float64
	Max       float64
	Mean      float64
}

// SQLite records per-field statistics of one block into
// <output>_blk<id>.sqlite3.
type SQLite struct {
	runID   string
	blockID int
	rec     recording.Recorder
}

// NewSQLite opens the database of blockID under cfg.Output.
func NewSQLite(cfg *sim.Config, blockID int) (sim.OutputSink, error) {
	log := logrus.StandardLogger().WithField("block", blockID)
	rec, err := recording.New(fmt.Sprintf("%s_blk%d", cfg.Output, blockID), log)
	if err != nil {
		return nil, err
	}
	if err := rec.CreateTable(fieldStatsTable, FieldStats{}); err != nil {
		rec.Close()
		return nil, err
	}
	return &SQLite{runID: cfg.RunID, blockID: blockID, rec: rec}, nil
}

// Save records one row per field, in field name order.
func (s *SQLite) Save(iteration int, fields map[string][]float64) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row := Stats(fields[name])
		row.RunID, row.Block, row.Iteration, row.Field = s.runID, s.blockID, iteration, name
		if err := s.rec.InsertData(fieldStatsTable, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error { return s.rec.Close() }

// Path returns the database file name.
func (s *SQLite) Path() string { return s.rec.Path() }

// Stats computes min, max and mean of values. Empty input yields zeros.
func Stats(values []float64) FieldStats {
	st := FieldStats{Nodes: len(values)}
	if len(values) == 0 {
		return st
	}
	st.Min, st.Max = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, v := range values {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
		sum += v
	}
	st.Mean = sum / float64(len(values))
	return st
}
