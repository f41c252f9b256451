package runner

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/backend"
	"github.com/halo-sim/halo-sim/sim/connector"
	"github.com/halo-sim/halo-sim/sim/internal/testutil"
	_ "github.com/halo-sim/halo-sim/sim/model"
	"github.com/halo-sim/halo-sim/sim/rendezvous"
)

// memorySink records saved iterations and the last primary field.
type memorySink struct {
	mu       sync.Mutex
	saved    []int
	last     []float64
	geometry int
}

func (m *memorySink) Save(it int, fields map[string][]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, it)
	m.last = append([]float64(nil), fields["rho"]...)
	return nil
}
func (m *memorySink) SaveGeometry(tags []uint8) error { m.geometry = len(tags); return nil }
func (m *memorySink) Close() error                    { return nil }

// pairOfBlocks returns two side-by-side 4x4 blocks wired with a connector
// pair over tr.
func pairOfBlocks(t *testing.T, tr connector.Transport) []*sim.Block {
	t.Helper()
	a := sim.NewBlock([]int{0, 0}, []int{4, 4})
	b := sim.NewBlock([]int{4, 0}, []int{4, 4})
	a.ID, b.ID = 0, 1
	require.True(t, a.Connect(b, nil, 0, nil))
	ea, eb, err := connector.MakePair(tr, sim.PrecisionDouble, [2]int{4, 4}, [2]int{0, 1})
	require.NoError(t, err)
	a.AddConnector(1, ea)
	b.AddConnector(0, eb)
	return []*sim.Block{a, b}
}

func params(t *testing.T, cfg *sim.Config, b *sim.Block, out sim.OutputSink, quit *sim.Signal) sim.WorkerParams {
	t.Helper()
	factory, ok := sim.Models.Lookup(cfg.Model)
	require.True(t, ok)
	m, err := factory(cfg)
	require.NoError(t, err)
	return sim.WorkerParams{
		Block:       b,
		Config:      cfg,
		Model:       m,
		BackendName: "host",
		NewBackend:  backend.NewHost,
		Output:      out,
		Quit:        quit,
		Log:         testutil.QuietLogger(),
	}
}

func runAll(ctx context.Context, ps []sim.WorkerParams) error {
	var g errgroup.Group
	for _, p := range ps {
		g.Go(func() error { return Run(ctx, p) })
	}
	return g.Wait()
}

func TestRun_ExchangesAndSaves(t *testing.T) {
	for _, tr := range []connector.Transport{connector.ChanTransport{Depth: 1}, connector.TCPTransport{}} {
		t.Run(tr.Name(), func(t *testing.T) {
			// GIVEN two connected blocks starting from different values
			cfg := sim.DefaultConfig()
			cfg.MaxIters = 20
			cfg.Every = 5
			blocks := pairOfBlocks(t, tr)
			sinks := []*memorySink{{}, {}}
			quit := sim.NewSignal()

			// WHEN both workers run to completion
			err := runAll(context.Background(), []sim.WorkerParams{
				params(t, cfg, blocks[0], sinks[0], quit),
				params(t, cfg, blocks[1], sinks[1], quit),
			})

			// THEN output was saved every 5 iterations and the blocks moved
			// toward each other
			require.NoError(t, err)
			for _, s := range sinks {
				assert.Equal(t, []int{5, 10, 15, 20}, s.saved)
				assert.Equal(t, 16, s.geometry)
			}
			a, b := mean(sinks[0].last), mean(sinks[1].last)
			assert.Less(t, b-a, 0.01)
			assert.Greater(t, b, a)
		})
	}
}

func TestRun_IsolatedBlock(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.MaxIters = 3
	cfg.Every = 1
	b := sim.NewBlock([]int{0, 0}, []int{2, 2})
	b.ID = 0
	sink := &memorySink{}

	require.NoError(t, Run(context.Background(), params(t, cfg, b, sink, sim.NewSignal())))
	assert.Equal(t, []int{1, 2, 3}, sink.saved)
	assert.Equal(t, []float64{1, 1, 1, 1}, sink.last)
}

func TestRun_StopsOnQuit(t *testing.T) {
	// GIVEN workers with no iteration limit
	cfg := sim.DefaultConfig()
	cfg.MaxIters = 0
	blocks := pairOfBlocks(t, connector.ChanTransport{Depth: 1})
	quit := sim.NewSignal()

	done := make(chan error, 1)
	go func() {
		done <- runAll(context.Background(), []sim.WorkerParams{
			params(t, cfg, blocks[0], nil, quit),
			params(t, cfg, blocks[1], nil, quit),
		})
	}()

	// WHEN the shutdown signal is set
	time.Sleep(20 * time.Millisecond)
	quit.Set()

	// THEN both workers exit cleanly
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestRun_NeighborGoneWithoutShutdown(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.MaxIters = 10
	blocks := pairOfBlocks(t, connector.ChanTransport{Depth: 1})
	require.NoError(t, blocks[1].Connector(0).Close())

	err := Run(context.Background(), params(t, cfg, blocks[0], nil, sim.NewSignal()))
	assert.ErrorIs(t, err, ErrNeighborGone)
}

func TestRun_ReportsTimingInBenchmarkMode(t *testing.T) {
	srv, err := rendezvous.Listen(0, testutil.QuietLogger())
	require.NoError(t, err)
	defer srv.Close()

	cfg := sim.DefaultConfig()
	cfg.Mode = sim.ModeBenchmark
	cfg.MaxIters = 4
	blocks := pairOfBlocks(t, connector.ChanTransport{Depth: 1})
	quit := sim.NewSignal()
	ps := []sim.WorkerParams{
		params(t, cfg, blocks[0], nil, quit),
		params(t, cfg, blocks[1], nil, quit),
	}
	for i := range ps {
		ps[i].RendezvousAddr = srv.Addr()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- runAll(ctx, ps) }()

	summaries, err := srv.Collect(ctx, []int{0, 1})
	require.NoError(t, err)
	require.NoError(t, <-errc)
	for _, s := range summaries {
		assert.Equal(t, 4, s.Iterations)
		assert.Equal(t, int64(16), s.NodeCount)
		assert.GreaterOrEqual(t, s.Total, s.Comp)
	}
}

func TestRun_BackendFailure(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.MaxIters = 1
	b := sim.NewBlock([]int{0, 0}, []int{2, 2})
	b.ID = 0
	p := params(t, cfg, b, nil, sim.NewSignal())
	p.NewBackend = func(*sim.Config, int) (sim.Backend, error) { return nil, io.ErrClosedPipe }

	assert.ErrorIs(t, Run(context.Background(), p), io.ErrClosedPipe)
}
