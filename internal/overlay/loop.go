package overlay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher marshals a function onto the controller's owning goroutine.
type Dispatcher interface {
	Post(fn func()) error
}

// Inline runs posted functions immediately on the caller's goroutine. It is
// only correct when the caller already is the owning goroutine, as in tests
// and replays.
type Inline struct{}

func (Inline) Post(fn func()) error {
	fn()
	return nil
}

// Loop is a single goroutine that runs posted functions in order. Tracker
// callbacks, host notifications and timer fires are all funnelled through it.
type Loop struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

// NewLoop creates a loop with a buffered queue. Run must be called to drain it.
func NewLoop(log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		queue: make(chan func(), 256),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Post enqueues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run drains the queue until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Debug("overlay loop started")
	defer l.log.Debug("overlay loop stopped")
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Close stops the loop. Pending functions are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// AfterFunc implements Scheduler: fn is posted to the loop once d elapses.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, func() {
		if err := l.Post(fn); err != nil {
			l.log.Debug("dropping timer fire", zap.Error(err))
		}
	})
	return func() { t.Stop() }
}
