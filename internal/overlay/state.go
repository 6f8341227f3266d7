// Package overlay keeps an overlay window in step with a tracked target window.
//
// A Controller consumes tracker events and drives the overlay's visibility,
// geometry, input passthrough and z-order. Every Controller method, tracker
// record and host notification runs on one owning goroutine (see Loop); the
// controller holds no locks.
package overlay

import (
	"errors"

	"github.com/mj1618/overlaywin/internal/model"
)

var (
	// ErrAlreadyAttached is returned by a second Attach on the same controller.
	// It is a programming error: callers should treat it as fatal.
	ErrAlreadyAttached = errors.New("overlay controller can be attached only once")

	// ErrNotAttached is returned by focus commands before attach or after detach.
	ErrNotAttached = errors.New("overlay is not attached to a target")

	// ErrLoopClosed is returned when posting to a loop that has stopped.
	ErrLoopClosed = errors.New("overlay loop closed")
)

// Phase is the attachment lifecycle of a controller.
type Phase int

const (
	// PhaseIdle is the initial phase: no target yet.
	PhaseIdle Phase = iota
	PhaseAttached
	// PhaseDetached is terminal.
	PhaseDetached
)

func (p Phase) String() string {
	switch p {
	case PhaseAttached:
		return "attached"
	case PhaseDetached:
		return "detached"
	default:
		return "idle"
	}
}

// FocusState is the focus sub-state while attached.
type FocusState int

const (
	FocusNone FocusState = iota
	TargetFocused
	OverlayFocused
	// Unfocused means the overlay is hidden and not receiving input.
	Unfocused
)

func (f FocusState) String() string {
	switch f {
	case TargetFocused:
		return "target-focused"
	case OverlayFocused:
		return "overlay-focused"
	case Unfocused:
		return "unfocused"
	default:
		return "none"
	}
}

// AttachOptions are captured once per attach.
type AttachOptions struct {
	// HasTitleBar is set when the target draws its own title bar that the
	// overlay must not cover (only honoured where the policy insets).
	HasTitleBar bool `yaml:"has_title_bar" json:"has_title_bar"`
}

// TargetState is the last-known state of the target window.
type TargetState struct {
	Bounds       model.Rect     `yaml:"bounds"                  json:"bounds"`
	Fullscreen   model.Tristate `yaml:"fullscreen"              json:"fullscreen"`
	HasAccess    model.Tristate `yaml:"has_access"              json:"has_access"`
	MatchedTitle string         `yaml:"matched_title,omitempty" json:"matched_title,omitempty"`
}

// Snapshot is a read-only view of the controller for status reporting.
type Snapshot struct {
	SessionID   string      `yaml:"session_id,omitempty" json:"session_id,omitempty"`
	Selector    []string    `yaml:"selector,omitempty"   json:"selector,omitempty"`
	Phase       string      `yaml:"phase"                json:"phase"`
	Focus       string      `yaml:"focus"                json:"focus"`
	Intent      string      `yaml:"intent"               json:"intent"`
	Visible     bool        `yaml:"visible"              json:"visible"`
	Passthrough bool        `yaml:"passthrough"          json:"passthrough"`
	Target      TargetState `yaml:"target"               json:"target"`
	Overlay     model.Rect  `yaml:"overlay"              json:"overlay"`
	Events      int         `yaml:"events"               json:"events"`
	Dropped     int         `yaml:"dropped"              json:"dropped"`
	Placements  int         `yaml:"placements"           json:"placements"`
}
