package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignal_SetIsIdempotent(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.IsSet())
	s.Set()
	s.Set()
	assert.True(t, s.IsSet())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel not closed after Set")
	}
}

func TestSignal_WaitHonorsContext(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	go s.Set()
	assert.NoError(t, s.Wait(context.Background()))
}
