// Package tracker decodes records from an OS window tracker into typed events
// and implements the line-delimited JSON protocol spoken by external trackers.
package tracker

import "github.com/mj1618/overlaywin/internal/model"

// Event is one of Attach, Focus, Blur, Detach, Fullscreen or MoveResize.
// The set is closed: only this package can add variants.
type Event interface {
	Type() model.EventType
	isEvent()
}

// Attach reports that the target window was found.
type Attach struct {
	Bounds     model.Rect     `yaml:"bounds"                  json:"bounds"`
	Fullscreen model.Tristate `yaml:"fullscreen"              json:"fullscreen"`
	// HasAccess is False when the overlay process cannot fully inspect the
	// target (e.g. an elevated process); tracking continues degraded.
	HasAccess    model.Tristate `yaml:"has_access"              json:"has_access"`
	MatchedTitle string         `yaml:"matched_title,omitempty" json:"matched_title,omitempty"`
}

// Focus reports that the target became the foreground window.
type Focus struct{}

// Blur reports that the target lost foreground status.
type Blur struct {
	// ToOverlay is set by trackers that know focus went to the overlay itself.
	ToOverlay bool `yaml:"to_overlay,omitempty" json:"to_overlay,omitempty"`
}

// Detach reports that the target window is gone.
type Detach struct{}

// Fullscreen reports a target fullscreen transition.
type Fullscreen struct {
	IsFullscreen bool `yaml:"is_fullscreen" json:"is_fullscreen"`
}

// MoveResize reports new target geometry.
type MoveResize struct {
	Bounds model.Rect `yaml:"bounds" json:"bounds"`
}

func (Attach) Type() model.EventType     { return model.EventAttach }
func (Focus) Type() model.EventType      { return model.EventFocus }
func (Blur) Type() model.EventType       { return model.EventBlur }
func (Detach) Type() model.EventType     { return model.EventDetach }
func (Fullscreen) Type() model.EventType { return model.EventFullscreen }
func (MoveResize) Type() model.EventType { return model.EventMoveResize }

func (Attach) isEvent()     {}
func (Focus) isEvent()      {}
func (Blur) isEvent()       {}
func (Detach) isEvent()     {}
func (Fullscreen) isEvent() {}
func (MoveResize) isEvent() {}

// Name returns the notification name for e ("attach", "focus", ...).
func Name(e Event) string {
	return e.Type().String()
}
