package overlay

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/tracker"
	"go.uber.org/zap"
)

// Config configures a Controller.
type Config struct {
	Policy           platform.Policy
	CoalesceInterval time.Duration
	// Dispatcher marshals tracker and host callbacks onto the owning
	// goroutine. Defaults to Inline.
	Dispatcher Dispatcher
	// Scheduler drives coalesced placements. Required unless Dispatcher is a
	// *Loop, which doubles as the scheduler.
	Scheduler Scheduler
	Logger    *zap.Logger
	// SessionID names the next attached session. A random id is used when
	// unset.
	SessionID uuid.UUID
}

// Controller is the overlay state machine. It binds to at most one session.
type Controller struct {
	cfg     Config
	tracker platform.Tracker
	log     *zap.Logger

	phase       Phase
	focus       FocusState
	arbiter     arbiter
	target      TargetState
	visible     bool
	passthrough bool
	// targetFocused follows the tracker's focus and blur reports, independent
	// of the focus sub-state.
	targetFocused bool
	// workspaceFullscreen is set while the overlay covers the primary display
	// under the workspace fullscreen strategy.
	workspaceFullscreen bool

	win     platform.HostWindow
	session *Session
	subs    []subscriber
	nextSub int

	events  int
	dropped int
}

type subscriber struct {
	id int
	fn func(tracker.Event)
}

// NewController creates a controller that drives tr.
func NewController(tr platform.Tracker, cfg Config) (*Controller, error) {
	if tr == nil {
		return nil, errors.New("overlay controller needs a tracker")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = Inline{}
	}
	if cfg.Scheduler == nil {
		loop, ok := cfg.Dispatcher.(*Loop)
		if !ok {
			return nil, errors.New("overlay controller needs a scheduler")
		}
		cfg.Scheduler = loop
	}
	if cfg.CoalesceInterval <= 0 {
		cfg.CoalesceInterval = DefaultCoalesceInterval
	}
	return &Controller{
		cfg:     cfg,
		tracker: tr,
		log:     cfg.Logger,
	}, nil
}

// Attach binds the controller to an overlay window and starts the tracker.
// A second call fails with ErrAlreadyAttached without touching any state.
func (c *Controller) Attach(win platform.HostWindow, sel model.TargetSelector, opts AttachOptions) (*Session, error) {
	if c.session != nil {
		return nil, ErrAlreadyAttached
	}
	if win == nil {
		return nil, errors.New("attach: overlay window is nil")
	}
	if err := sel.Validate(); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}

	s := newSession(c, win, sel, opts)
	c.session = s
	c.win = win
	c.log = c.cfg.Logger.With(zap.String("session", s.ID.String()))
	c.log.Info("attaching overlay", zap.Stringer("target", sel), zap.Bool("has_title_bar", opts.HasTitleBar))

	win.OnFocusChange(func(focused bool) {
		c.post(func() { c.handleHostFocus(s, focused) })
	})
	emit := func(rec model.Record) {
		c.post(func() { c.handleRecord(s, rec) })
	}
	if err := c.tracker.Start(win.Handle(), sel, emit); err != nil {
		s.closed = true
		s.coalescer.Stop()
		return nil, fmt.Errorf("starting tracker: %w", err)
	}
	return s, nil
}

func (c *Controller) post(fn func()) {
	if err := c.cfg.Dispatcher.Post(fn); err != nil {
		c.log.Debug("dropping callback", zap.Error(err))
	}
}

// HandleRecord feeds a raw tracker record to the live session. It must run on
// the owning goroutine.
func (c *Controller) HandleRecord(rec model.Record) {
	if c.session == nil {
		c.dropped++
		return
	}
	c.handleRecord(c.session, rec)
}

// HandleEvent feeds a decoded event to the live session. It must run on the
// owning goroutine.
func (c *Controller) HandleEvent(e tracker.Event) {
	if c.session == nil || c.session.closed {
		c.dropped++
		return
	}
	c.handle(e)
}

func (c *Controller) handleRecord(s *Session, rec model.Record) {
	if s.closed {
		c.dropped++
		return
	}
	e, ok := tracker.Translate(rec)
	if !ok {
		c.dropped++
		c.log.Debug("ignoring unknown tracker record", zap.Int("type", int(rec.Type)))
		return
	}
	c.handle(e)
}

func (c *Controller) handle(e tracker.Event) {
	if !c.accepts(e) {
		c.dropped++
		c.log.Debug("ignoring event", zap.String("event", tracker.Name(e)), zap.Stringer("phase", c.phase))
		return
	}
	c.events++

	switch ev := e.(type) {
	case tracker.Attach:
		c.onAttach(ev)
	case tracker.Focus:
		c.onFocus()
	case tracker.Blur:
		c.onBlur(ev)
	case tracker.Detach:
		c.onDetach()
	case tracker.Fullscreen:
		c.onFullscreen(ev.IsFullscreen)
	case tracker.MoveResize:
		c.onMoveResize(ev.Bounds)
	}
	c.notify(e)
}

// accepts enforces the lifecycle: attach only from idle, everything else only
// while attached.
func (c *Controller) accepts(e tracker.Event) bool {
	if _, ok := e.(tracker.Attach); ok {
		return c.phase == PhaseIdle
	}
	return c.phase == PhaseAttached
}

func (c *Controller) onAttach(ev tracker.Attach) {
	c.target = TargetState{
		Bounds:       ev.Bounds,
		Fullscreen:   ev.Fullscreen,
		HasAccess:    ev.HasAccess,
		MatchedTitle: ev.MatchedTitle,
	}
	c.phase = PhaseAttached
	c.focus = TargetFocused
	c.targetFocused = true
	c.log.Debug("target attached",
		zap.Stringer("bounds", ev.Bounds),
		zap.Stringer("fullscreen", ev.Fullscreen),
		zap.String("matched_title", ev.MatchedTitle))
	if ev.HasAccess == model.False {
		c.log.Warn("limited access to target window, tracking is degraded")
	}

	c.setPassthrough(true)
	c.show()
	c.session.reconciler.Apply(ev.Bounds)
	if ev.Fullscreen.Known() {
		c.setFullscreen(ev.Fullscreen.Bool())
	}
}

func (c *Controller) onFocus() {
	c.arbiter.clear()
	c.focus = TargetFocused
	c.targetFocused = true
	c.setPassthrough(true)
	if !c.visible {
		c.show()
	}
	c.log.Debug("target focused")
}

func (c *Controller) onBlur(ev tracker.Blur) {
	c.targetFocused = false
	if !c.blurHides(ev) {
		if c.visible && (c.arbiter.intent == IntentOverlay || ev.ToOverlay) {
			c.focus = OverlayFocused
		}
		c.log.Debug("target blurred, overlay kept",
			zap.Stringer("intent", c.arbiter.intent), zap.Bool("to_overlay", ev.ToOverlay))
		return
	}
	c.hide()
	c.focus = Unfocused
	c.log.Debug("target blurred, overlay hidden")
}

func (c *Controller) onDetach() {
	c.hide()
	c.focus = FocusNone
	c.targetFocused = false
	c.arbiter.clear()
	c.session.coalescer.Stop()
	c.phase = PhaseDetached
	c.log.Info("target detached")
}

func (c *Controller) onFullscreen(on bool) {
	c.target.Fullscreen = model.TristateOf(&on)
	c.setFullscreen(on)
	if on {
		return
	}
	if c.session.coalescer.Pending() {
		c.session.coalescer.Flush()
		return
	}
	c.session.reconciler.Apply(c.target.Bounds)
}

func (c *Controller) setFullscreen(on bool) {
	c.log.Debug("fullscreen", zap.Bool("on", on), zap.Stringer("strategy", c.cfg.Policy.Fullscreen))
	if c.cfg.Policy.Fullscreen == platform.FullscreenToggle {
		c.win.SetFullScreen(on)
		return
	}
	c.win.SetVisibleOnAllWorkspaces(on)
	c.workspaceFullscreen = on
	if on {
		c.session.reconciler.PlaceExact(c.win.PrimaryDisplay().Bounds)
	}
}

func (c *Controller) onMoveResize(bounds model.Rect) {
	if bounds.IsZero() {
		return
	}
	c.target.Bounds = bounds
	c.session.coalescer.Push(bounds)
}

// applyCoalesced is the coalescer's sink.
func (c *Controller) applyCoalesced(bounds model.Rect) {
	if c.phase != PhaseAttached || c.workspaceFullscreen {
		return
	}
	c.session.reconciler.Apply(bounds)
}

func (c *Controller) show() {
	c.win.ShowInactive()
	c.win.SetAlwaysOnTop(true, platform.LevelScreenSaver)
	c.visible = true
}

func (c *Controller) hide() {
	c.win.Hide()
	c.visible = false
}

func (c *Controller) setPassthrough(on bool) {
	c.win.SetIgnoreMouseEvents(on)
	c.passthrough = on
}

// Subscribe registers fn for every handled event. fn runs on the owning
// goroutine after the controller has applied the event.
func (c *Controller) Subscribe(fn func(tracker.Event)) (unsubscribe func()) {
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) notify(e tracker.Event) {
	for _, s := range append([]subscriber(nil), c.subs...) {
		s.fn(e)
	}
}

// Bounds returns the last tracked target rectangle.
func (c *Controller) Bounds() model.Rect {
	return c.target.Bounds
}

// Phase returns the lifecycle phase.
func (c *Controller) Phase() Phase { return c.phase }

// Focus returns the focus sub-state.
func (c *Controller) Focus() FocusState { return c.focus }

// Intent returns the pending focus intent.
func (c *Controller) Intent() FocusIntent { return c.arbiter.intent }

// Visible reports whether the overlay is currently shown.
func (c *Controller) Visible() bool { return c.visible }

// Flush applies a pending coalesced placement now instead of at the end of
// its window. It must run on the owning goroutine.
func (c *Controller) Flush() {
	if c.session != nil && !c.session.closed {
		c.session.coalescer.Flush()
	}
}

// Session returns the bound session, or nil before Attach.
func (c *Controller) Session() *Session { return c.session }

// Snapshot returns the controller state for status reporting.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:       c.phase.String(),
		Focus:       c.focus.String(),
		Intent:      c.arbiter.intent.String(),
		Visible:     c.visible,
		Passthrough: c.passthrough,
		Target:      c.target,
		Events:      c.events,
		Dropped:     c.dropped,
	}
	if s := c.session; s != nil {
		snap.SessionID = s.ID.String()
		snap.Selector = s.Selector.Titles
		snap.Overlay = s.reconciler.Last()
		snap.Placements = s.reconciler.Placements()
	}
	return snap
}
