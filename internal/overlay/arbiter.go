package overlay

import (
	"fmt"

	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/tracker"
	"go.uber.org/zap"
)

// FocusIntent is the anticipated next focus owner.
type FocusIntent int

const (
	IntentNone FocusIntent = iota
	IntentOverlay
	IntentTarget
)

func (i FocusIntent) String() string {
	switch i {
	case IntentOverlay:
		return "overlay"
	case IntentTarget:
		return "target"
	default:
		return "none"
	}
}

// arbiter holds the focus intent. It exists so that a blur caused by a
// deliberate focus move does not hide the overlay.
type arbiter struct {
	intent FocusIntent
}

func (a *arbiter) expect(i FocusIntent) { a.intent = i }

func (a *arbiter) clear() { a.intent = IntentNone }

// blurExplained reports whether a target blur is accounted for by a pending
// focus move or by the overlay itself holding focus.
func (a *arbiter) blurExplained(ev tracker.Blur, focus FocusState) bool {
	return a.intent != IntentNone || ev.ToOverlay || focus == OverlayFocused
}

// ActivateOverlay lets the overlay take pointer and keyboard input.
// The intent is recorded before any native focus request is made.
func (c *Controller) ActivateOverlay() error {
	if c.phase != PhaseAttached {
		return ErrNotAttached
	}
	c.arbiter.expect(IntentOverlay)
	c.log.Debug("activate overlay")
	c.setPassthrough(false)
	if !c.visible {
		c.show()
		c.focus = OverlayFocused
	}
	c.win.Focus()
	if err := c.tracker.ActivateOverlay(); err != nil {
		return fmt.Errorf("tracker activate overlay: %w", err)
	}
	return nil
}

// FocusTarget hands input back to the target: the overlay becomes
// click-through and the tracker restores native focus to the target.
func (c *Controller) FocusTarget() error {
	if c.phase != PhaseAttached {
		return ErrNotAttached
	}
	c.arbiter.expect(IntentTarget)
	c.log.Debug("focus target")
	c.setPassthrough(true)
	if err := c.tracker.FocusTarget(); err != nil {
		return fmt.Errorf("tracker focus target: %w", err)
	}
	return nil
}

// handleHostFocus processes the overlay window's own focus notifications.
func (c *Controller) handleHostFocus(s *Session, focused bool) {
	if s.closed || c.phase != PhaseAttached {
		return
	}
	if focused {
		c.arbiter.clear()
		if c.visible {
			c.focus = OverlayFocused
		}
		c.log.Debug("overlay focused", zap.Stringer("focus", c.focus))
		return
	}
	if c.focus != OverlayFocused {
		return
	}
	switch {
	case c.targetFocused && c.arbiter.intent == IntentNone:
		// Focus went back to the target: click-through shadowing again.
		c.setPassthrough(true)
		c.focus = TargetFocused
	case !c.targetFocused && c.arbiter.intent != IntentTarget:
		// Neither window has focus. The next target focus re-shows the overlay.
		c.setPassthrough(true)
		c.hide()
		c.focus = Unfocused
	default:
		return
	}
	c.log.Debug("overlay blurred", zap.Stringer("focus", c.focus))
}

func (c *Controller) blurHides(ev tracker.Blur) bool {
	if c.cfg.Policy.Blur == platform.BlurAlwaysHide {
		return true
	}
	return !c.arbiter.blurExplained(ev, c.focus)
}
