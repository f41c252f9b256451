package connector

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-sim/halo-sim/sim"
)

func forEachTransport(t *testing.T, fn func(t *testing.T, tr Transport)) {
	for _, name := range TransportNames() {
		tr, err := TransportByName(name)
		require.NoError(t, err)
		t.Run(name, func(t *testing.T) { fn(t, tr) })
	}
}

func ramp(n int, offset float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = offset + float64(i)*0.5
	}
	return v
}

func TestMakePair_IsSymmetric(t *testing.T) {
	sizes := [][2]int{{1, 1}, {3, 7}, {128, 64}, {4096, 4096}}
	forEachTransport(t, func(t *testing.T, tr Transport) {
		for _, precision := range []sim.Precision{sim.PrecisionSingle, sim.PrecisionDouble} {
			for _, sz := range sizes {
				a, b, err := MakePair(tr, precision, sz, [2]int{0, 1})
				require.NoError(t, err)

				// GIVEN data written on both sides
				fromA, fromB := ramp(sz[0], 1), ramp(sz[1], -3)
				require.NoError(t, a.SendFloats(fromA))
				require.NoError(t, b.SendFloats(fromB))

				// THEN each side receives exactly what the other sent
				gotB, err := b.RecvFloats()
				require.NoError(t, err)
				gotA, err := a.RecvFloats()
				require.NoError(t, err)
				assert.Equal(t, fromA, gotB, "%s %v a->b", precision, sz)
				assert.Equal(t, fromB, gotA, "%s %v b->a", precision, sz)

				assert.Equal(t, sz[0], a.SendElements())
				assert.Equal(t, sz[1], a.RecvElements())
				assert.Equal(t, sz[1], b.SendElements())
				assert.Equal(t, sz[0], b.RecvElements())
				require.NoError(t, a.Close())
				require.NoError(t, b.Close())
			}
		}
	})
}

func TestEndpoint_SizeIsFixed(t *testing.T) {
	forEachTransport(t, func(t *testing.T, tr Transport) {
		a, b, err := MakePair(tr, sim.PrecisionDouble, [2]int{4, 2}, [2]int{3, 5})
		require.NoError(t, err)
		defer a.Close()
		defer b.Close()

		assert.ErrorIs(t, a.SendFloats(ramp(3, 0)), ErrSizeMismatch)
		assert.ErrorIs(t, a.Send(make([]byte, 4*4)), ErrSizeMismatch)
		assert.NoError(t, a.Send(make([]byte, 4*8)))
	})
}

func TestEndpoint_CloseSignalsEOF(t *testing.T) {
	forEachTransport(t, func(t *testing.T, tr Transport) {
		a, b, err := MakePair(tr, sim.PrecisionSingle, [2]int{2, 2}, [2]int{0, 1})
		require.NoError(t, err)
		require.NoError(t, a.Close())
		_, err = b.Recv()
		assert.True(t, errors.Is(err, io.EOF), "got %v", err)
		require.NoError(t, b.Close())
	})
}

func TestEndpoint_Attach(t *testing.T) {
	a, b, err := MakePair(ChanTransport{}, sim.PrecisionSingle, [2]int{1, 1}, [2]int{0, 1})
	require.NoError(t, err)

	assert.ErrorIs(t, a.Attach(1), ErrForeignOwner)
	assert.NoError(t, a.Attach(0))
	assert.ErrorIs(t, a.Attach(0), ErrAlreadyAttached)
	assert.NoError(t, b.Attach(1))
	assert.Equal(t, 1, a.Peer())
	assert.Equal(t, 0, a.Self())
}

func TestMakePair_Errors(t *testing.T) {
	_, _, err := MakePair(ChanTransport{}, sim.PrecisionSingle, [2]int{0, 1}, [2]int{0, 1})
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, _, err = MakePair(ChanTransport{}, sim.PrecisionSingle, [2]int{1, 1}, [2]int{2, 2})
	assert.Error(t, err)
}

func TestLink_SendAfterCloseFails(t *testing.T) {
	forEachTransport(t, func(t *testing.T, tr Transport) {
		a, b, err := MakePair(tr, sim.PrecisionSingle, [2]int{1, 1}, [2]int{0, 1})
		require.NoError(t, err)
		defer b.Close()

		// GIVEN an endpoint closed by its owner
		require.NoError(t, a.Close())

		// THEN sending and receiving on it report ErrClosed
		assert.ErrorIs(t, a.SendFloats([]float64{1}), ErrClosed)
		_, err = a.Recv()
		assert.ErrorIs(t, err, ErrClosed)
		assert.NoError(t, a.Close(), "double close is harmless")
	})
}

func TestLink_SendToClosedPeerReportsEOF(t *testing.T) {
	forEachTransport(t, func(t *testing.T, tr Transport) {
		a, b, err := MakePair(tr, sim.PrecisionSingle, [2]int{16, 16}, [2]int{0, 1})
		require.NoError(t, err)
		defer a.Close()

		// GIVEN the peer has closed its side
		require.NoError(t, b.Close())

		// WHEN the other side keeps sending
		// THEN a send eventually fails with io.EOF, never with a raw
		// socket error. Buffered transports may accept a few frames first.
		deadline := time.Now().Add(5 * time.Second)
		for {
			err = a.SendFloats(ramp(16, 0))
			if err != nil || time.Now().After(deadline) {
				break
			}
			time.Sleep(time.Millisecond)
		}
		require.Error(t, err, "send kept succeeding after the peer closed")
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestTransportByName_Unknown(t *testing.T) {
	_, err := TransportByName("shm")
	assert.Error(t, err)
	assert.Equal(t, []string{"chan", "tcp"}, TransportNames())
}

func TestChanLink_BlockedSendFailsWhenPeerCloses(t *testing.T) {
	a, b, err := ChanTransport{Depth: 1}.Pipe(1, 1)
	require.NoError(t, err)
	require.NoError(t, a.Send([]byte{1}), "fills the buffer")

	errc := make(chan error, 1)
	go func() { errc <- a.Send([]byte{2}) }()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, <-errc, io.EOF)
}
