package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoop_PostKeepsOrder(t *testing.T) {
	lp := NewLoop(64)
	lp.Start()
	defer lp.Stop()

	var got []int
	for i := 0; i < 50; i++ {
		i := i
		lp.Post(func() { got = append(got, i) })
	}
	v, err := lp.PostAndWait(context.Background(), func() any { return len(got) })
	require.NoError(t, err)
	require.Equal(t, 50, v)
	for i, n := range got {
		require.Equal(t, i, n)
	}
}

func TestLoop_PanicDoesNotKillLoop(t *testing.T) {
	lp := NewLoop(4)
	lp.Start()
	defer lp.Stop()

	lp.Post(func() { panic("boom") })
	v, err := lp.PostAndWait(context.Background(), func() any { return "alive" })
	require.NoError(t, err)
	require.Equal(t, "alive", v)
}

func TestLoop_PostAndWaitPanic(t *testing.T) {
	lp := NewLoop(4)
	lp.Start()
	defer lp.Stop()

	v, err := lp.PostAndWait(context.Background(), func() any { panic("bad job") })
	require.ErrorIs(t, err, ErrJobPanic)
	require.Contains(t, err.Error(), "bad job")
	require.Nil(t, v)

	v, err = lp.PostAndWait(context.Background(), func() any { return "alive" })
	require.NoError(t, err)
	require.Equal(t, "alive", v)
}

func TestLoop_PostAndWaitAfterStop(t *testing.T) {
	lp := NewLoop(1)
	lp.Start()
	lp.Stop()
	lp.Stop()

	_, err := lp.PostAndWait(context.Background(), func() any { return 1 })
	require.ErrorIs(t, err, ErrLoopStopped)
}

func TestLoop_PostAndWaitContext(t *testing.T) {
	lp := NewLoop(1)
	lp.Start()
	defer lp.Stop()

	block := make(chan struct{})
	lp.Post(func() { <-block })
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := lp.PostAndWait(ctx, func() any { return 1 })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
