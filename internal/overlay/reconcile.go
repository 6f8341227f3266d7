package overlay

import (
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
	"go.uber.org/zap"
)

// Reconciler turns a tracked target rectangle into overlay placement calls.
// One Reconciler lives for one session, so the title bar is measured at most
// once per session.
type Reconciler struct {
	win    platform.HostWindow
	policy platform.Policy
	opts   AttachOptions
	log    *zap.Logger

	titleBar   int
	measured   bool
	last       model.Rect
	placements int
}

// NewReconciler creates a reconciler for one session.
func NewReconciler(win platform.HostWindow, policy platform.Policy, opts AttachOptions, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{win: win, policy: policy, opts: opts, log: log}
}

// Target applies the title bar inset to bounds, still in tracker coordinates.
// ok is false for the zero sentinel and for a target no taller than its
// title bar.
func (r *Reconciler) Target(bounds model.Rect) (rect model.Rect, ok bool) {
	if bounds.IsZero() {
		return model.Rect{}, false
	}
	if r.policy.InsetTitleBar && r.opts.HasTitleBar {
		h := r.titleBarHeight()
		if bounds.Height-h <= 0 {
			r.log.Debug("target shorter than its title bar", zap.Stringer("bounds", bounds), zap.Int("title_bar", h))
			return model.Rect{}, false
		}
		// Screen y grows downward: the overlay starts below the title bar.
		bounds.Y += h
		bounds.Height -= h
	}
	return bounds, true
}

// Apply places the overlay over bounds. It reports whether a placement was made.
func (r *Reconciler) Apply(bounds model.Rect) bool {
	rect, ok := r.Target(bounds)
	if !ok {
		return false
	}
	r.placements++

	if r.policy.Coords != platform.CoordPhysical {
		r.place(rect)
		return true
	}

	// Placing can move the window to a monitor with a different scale, so
	// convert again against the display it landed on.
	first := r.win.Display().ToDIP(rect)
	r.place(first)
	second := r.win.Display().ToDIP(rect)
	if second != first {
		r.log.Debug("display changed during placement",
			zap.Stringer("first", first), zap.Stringer("second", second))
		r.place(second)
	}
	return true
}

// PlaceExact sets the overlay to rect without any correction.
func (r *Reconciler) PlaceExact(rect model.Rect) {
	r.place(rect)
}

func (r *Reconciler) place(rect model.Rect) {
	r.last = rect
	r.win.SetBounds(rect)
}

// Last returns the most recent rectangle handed to the host window.
func (r *Reconciler) Last() model.Rect {
	return r.last
}

// Placements returns the number of reconciled placements.
func (r *Reconciler) Placements() int {
	return r.placements
}

func (r *Reconciler) titleBarHeight() int {
	if r.measured {
		return r.titleBar
	}
	r.measured = true
	r.titleBar = r.policy.TitleBarHeight
	if m, ok := r.win.(platform.TitleBarMeasurer); ok {
		h, err := m.MeasureTitleBarHeight()
		if err != nil {
			r.log.Debug("title bar measurement failed, using configured height",
				zap.Int("height", r.titleBar), zap.Error(err))
		} else {
			r.titleBar = h
		}
	}
	r.log.Debug("title bar height", zap.Int("height", r.titleBar))
	return r.titleBar
}
