package machine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/internal/testutil"
)

func TestTaskGroup_PanicBecomesTaskError(t *testing.T) {
	// GIVEN a group with one well-behaved task waiting for shutdown
	quit := sim.NewSignal()
	tg := NewTaskGroup(context.Background(), quit, testutil.QuietLogger())
	tg.Go("patient", func(ctx context.Context) error { return quit.Wait(ctx) })

	// WHEN another task panics
	tg.Go("crasher", func(context.Context) error { panic("kernel fault") })
	err := tg.Wait()

	// THEN the panic surfaces as a TaskError, shutdown is signalled and the
	// patient task exits cleanly
	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "crasher", te.Name)
	assert.ErrorIs(t, err, ErrTaskPanic)
	assert.Contains(t, err.Error(), "kernel fault")
	assert.True(t, quit.IsSet())
	assert.Equal(t, map[string]TaskStatus{"patient": TaskExited, "crasher": TaskFailed}, tg.Status())
	assert.Equal(t, []string{"crasher"}, tg.Failed())
}

func TestTaskGroup_ErrorCancelsContext(t *testing.T) {
	tg := NewTaskGroup(context.Background(), sim.NewSignal(), testutil.QuietLogger())
	cancelled := make(chan struct{})
	tg.Go("watcher", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return nil
	})
	boom := errors.New("boom")
	tg.Go("failer", func(context.Context) error { return boom })

	assert.ErrorIs(t, tg.Wait(), boom)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}

func TestTaskGroup_AllSucceed(t *testing.T) {
	quit := sim.NewSignal()
	tg := NewTaskGroup(context.Background(), quit, testutil.QuietLogger())
	for _, name := range []string{"a", "b", "c"} {
		tg.Go(name, func(context.Context) error { return nil })
	}
	assert.NoError(t, tg.Wait())
	assert.False(t, quit.IsSet())
	assert.Empty(t, tg.Failed())
	assert.Panics(t, func() { tg.Go("a", func(context.Context) error { return nil }) })
}
