package work

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLogger(log.NewStdLogger(os.Stdout))
}

// mockExecutor 直接在 goroutine 中执行任务
type mockExecutor struct{}

func (m *mockExecutor) Post(job func()) {
	go job()
}

// serialExecutor 记录执行顺序, 同一时刻只运行一个任务
type serialExecutor struct {
	mu    sync.Mutex
	order []int
}

func (s *serialExecutor) Post(job func()) {
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		job()
	}()
}

func TestAntsLoop(t *testing.T) {
	l := NewAntsLoop(2)
	require.NoError(t, l.Start())
	defer l.Stop()

	t.Run("start more times", func(t *testing.T) {
		require.NoError(t, l.Start())
	})

	t.Run("Post simple task", func(t *testing.T) {
		done := make(chan struct{})
		l.Post(func() { close(done) })
		waitForChannel(t, done, time.Second, "task not finished")
	})

	t.Run("Post panic inside job is recovered", func(t *testing.T) {
		done := make(chan struct{})
		l.Post(func() {
			defer close(done)
			panic("oops")
		})
		waitForChannel(t, done, time.Second, "panic job did not finish")
	})

	t.Run("status reports capacity", func(t *testing.T) {
		st := l.Status()
		require.Equal(t, 2, st.Capacity)
		require.GreaterOrEqual(t, st.Free, 0)
	})

	t.Run("cancelled context drops the job", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var ran atomic.Bool
		l.PostCtx(ctx, func() { ran.Store(true) })
		time.Sleep(50 * time.Millisecond)
		require.False(t, ran.Load())
	})

	t.Run("stop waits for submitted jobs", func(t *testing.T) {
		var ran atomic.Int32
		for i := 0; i < 4; i++ {
			l.Post(func() {
				time.Sleep(20 * time.Millisecond)
				ran.Add(1)
			})
		}
		l.Stop()
		require.Equal(t, int32(4), ran.Load())
		require.NoError(t, l.Start())
	})

	t.Run("fallback when stopped", func(t *testing.T) {
		l.Stop()
		executed := make(chan struct{})
		l.PostCtx(context.Background(), func() { close(executed) })
		waitForChannel(t, executed, time.Second, "fallback job did not run")
		require.NoError(t, l.Start())
	})
}

func TestWheelScheduler_Once(t *testing.T) {
	s := NewWheelScheduler(WithExecutor(&mockExecutor{}))
	defer s.Stop()

	done := make(chan struct{})
	id := s.Once(20*time.Millisecond, func() { close(done) })
	require.Greater(t, id, int64(0))
	waitForChannel(t, done, time.Second, "Once task did not execute")
}

func TestWheelScheduler_ChainedOnceKeepsOrder(t *testing.T) {
	exec := &serialExecutor{}
	s := NewWheelScheduler(WithExecutor(exec))
	defer s.Stop()

	done := make(chan struct{})
	var step func(i int)
	step = func(i int) {
		exec.order = append(exec.order, i)
		if i == 4 {
			close(done)
			return
		}
		s.Once(10*time.Millisecond, func() { step(i + 1) })
	}
	s.Once(10*time.Millisecond, func() { step(0) })

	waitForChannel(t, done, 2*time.Second, "chain did not finish")
	exec.mu.Lock()
	defer exec.mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, exec.order)
}

func TestWheelScheduler_Cancellation(t *testing.T) {
	s := NewWheelScheduler(WithExecutor(&mockExecutor{}))
	defer s.Stop()

	t.Run("Cancel single task", func(t *testing.T) {
		var executed atomic.Bool
		id := s.Once(50*time.Millisecond, func() { executed.Store(true) })
		s.Cancel(id)
		time.Sleep(100 * time.Millisecond)
		require.False(t, executed.Load(), "Cancelled task was executed")
	})

	t.Run("CancelAll stops all tasks", func(t *testing.T) {
		var executed atomic.Int32
		for i := 0; i < 5; i++ {
			s.Once(50*time.Millisecond, func() { executed.Add(1) })
		}
		s.CancelAll()
		time.Sleep(100 * time.Millisecond)
		require.Zero(t, executed.Load())
		require.Zero(t, s.Len())
	})
}

func TestWheelScheduler_Stop(t *testing.T) {
	s := NewWheelScheduler(WithExecutor(&mockExecutor{}))
	s.Once(100*time.Millisecond, func() { t.Error("Once task executed after shutdown") })
	s.Stop()

	id := s.Once(10*time.Millisecond, func() { t.Error("New task executed after Stop") })
	require.Equal(t, int64(-1), id, "Expected -1 when scheduling after shutdown")
	time.Sleep(150 * time.Millisecond)
}

func TestWorkStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorkStore(ctx, nil, 4)
	require.NoError(t, w.Start())
	defer w.Stop()

	done := make(chan struct{})
	w.Once(10*time.Millisecond, func() {
		w.Post(func() { close(done) })
	})
	waitForChannel(t, done, time.Second, "timer job did not reach the pool")
}

func waitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, failMsg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal(failMsg)
	}
}
