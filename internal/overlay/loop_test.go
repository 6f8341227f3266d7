package overlay

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(cancel)
	return loop, cancel
}

func TestLoop_DoRunsInOrder(t *testing.T) {
	loop, _ := startLoop(t)

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, loop.Post(func() { order = append(order, i) }))
	}
	var got []int
	require.NoError(t, loop.Do(context.Background(), func() { got = append(got, order...) }))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestLoop_ClosedRejectsWork(t *testing.T) {
	loop, cancel := startLoop(t)
	cancel()
	<-loop.Done()

	assert.ErrorIs(t, loop.Post(func() {}), ErrLoopClosed)
	assert.ErrorIs(t, loop.Do(context.Background(), func() {}), ErrLoopClosed)
}

func TestLoop_DoHonoursContext(t *testing.T) {
	loop := NewLoop(nil) // never run
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, loop.Do(ctx, func() {}), context.DeadlineExceeded)
}

func TestLoop_AfterFuncFiresOnLoop(t *testing.T) {
	loop, _ := startLoop(t)
	var fired atomic.Bool
	loop.AfterFunc(time.Millisecond, func() { fired.Store(true) })
	require.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)

	var canceled atomic.Bool
	stop := loop.AfterFunc(50*time.Millisecond, func() { canceled.Store(true) })
	stop()
	time.Sleep(80 * time.Millisecond)
	assert.False(t, canceled.Load())
}

// TestController_OnLoop drives a controller the way the CLI does: the tracker
// emits from its own goroutine and timers fire through the loop.
func TestController_OnLoop(t *testing.T) {
	loop, _ := startLoop(t)
	tr := &fakeTracker{}
	ctrl, err := NewController(tr, Config{Policy: logicalPolicy(), Dispatcher: loop})
	require.NoError(t, err)
	win := headless.New()

	ctx := context.Background()
	require.NoError(t, loop.Do(ctx, func() {
		_, err = ctrl.Attach(win, model.SingleTitle("Target"), AttachOptions{})
	}))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.emit(model.Record{Type: model.EventAttach}.WithBounds(targetRect))
		for i := 1; i <= 10; i++ {
			tr.emit(model.Record{Type: model.EventMoveResize, X: i, Y: i, Width: 100, Height: 100})
		}
	}()
	<-done

	want := model.Rect{X: 10, Y: 10, Width: 100, Height: 100}
	require.Eventually(t, func() bool {
		var b model.Rect
		_ = loop.Do(ctx, func() { b = ctrl.Snapshot().Overlay })
		return b == want
	}, time.Second, 10*time.Millisecond)

	var snap Snapshot
	require.NoError(t, loop.Do(ctx, func() { snap = ctrl.Snapshot() }))
	assert.Equal(t, "attached", snap.Phase)
	assert.Equal(t, 11, snap.Events)
	assert.Equal(t, want, win.State().Bounds)
}

func TestNewController_Validation(t *testing.T) {
	_, err := NewController(nil, Config{Scheduler: NewManualScheduler()})
	assert.Error(t, err)

	_, err = NewController(&fakeTracker{}, Config{})
	assert.Error(t, err, "inline dispatch needs an explicit scheduler")

	c, err := NewController(&fakeTracker{}, Config{Dispatcher: NewLoop(nil)})
	require.NoError(t, err)
	assert.Equal(t, DefaultCoalesceInterval, c.cfg.CoalesceInterval)
}
