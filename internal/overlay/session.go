package overlay

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
)

// Session binds one overlay window to one tracker subscription.
type Session struct {
	ID        uuid.UUID
	Selector  model.TargetSelector
	Options   AttachOptions
	StartedAt time.Time

	ctrl       *Controller
	win        platform.HostWindow
	reconciler *Reconciler
	coalescer  *Coalescer[model.Rect]
	closed     bool
}

func newSession(c *Controller, win platform.HostWindow, sel model.TargetSelector, opts AttachOptions) *Session {
	id := c.cfg.SessionID
	if id == uuid.Nil {
		id = uuid.New()
	}
	s := &Session{
		ID:        id,
		Selector:  sel,
		Options:   opts,
		StartedAt: time.Now(),
		ctrl:      c,
		win:       win,
	}
	s.reconciler = NewReconciler(win, c.cfg.Policy, opts, c.cfg.Logger)
	s.coalescer = NewCoalescer(c.cfg.Scheduler, c.cfg.CoalesceInterval, c.applyCoalesced)
	return s
}

// Window returns the overlay window bound to the session.
func (s *Session) Window() platform.HostWindow {
	return s.win
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed
}

// Close drops any pending placement and stops the tracker. Records delivered
// afterwards are ignored. It must run on the owning goroutine.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.coalescer.Stop()
	if err := s.ctrl.tracker.Stop(); err != nil {
		return fmt.Errorf("stopping tracker: %w", err)
	}
	return nil
}
