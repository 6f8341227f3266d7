package platform

import (
	"fmt"
	"strings"
)

// Level is the z-order band used with SetAlwaysOnTop.
type Level int

const (
	LevelNormal Level = iota
	LevelFloating
	// LevelScreenSaver sits above fullscreen applications.
	LevelScreenSaver
)

func (l Level) String() string {
	switch l {
	case LevelFloating:
		return "floating"
	case LevelScreenSaver:
		return "screen-saver"
	default:
		return "normal"
	}
}

// CoordSpace is the unit system a tracker reports rectangles in.
type CoordSpace int

const (
	// CoordLogical rectangles can be applied to the host window unchanged.
	CoordLogical CoordSpace = iota
	// CoordPhysical rectangles are raw device pixels and need DIP conversion.
	CoordPhysical
)

// ParseCoordSpace converts a config value to CoordSpace.
func ParseCoordSpace(s string) (CoordSpace, error) {
	switch strings.ToLower(s) {
	case "logical", "dip":
		return CoordLogical, nil
	case "physical", "pixels":
		return CoordPhysical, nil
	default:
		return CoordLogical, fmt.Errorf("unknown coordinate space: %q (expected logical or physical)", s)
	}
}

func (c CoordSpace) String() string {
	if c == CoordPhysical {
		return "physical"
	}
	return "logical"
}

// FullscreenStrategy selects how a target fullscreen transition is mirrored.
type FullscreenStrategy int

const (
	// FullscreenToggle sets the overlay's own fullscreen flag.
	FullscreenToggle FullscreenStrategy = iota
	// FullscreenWorkspace is used where fullscreen is exclusive per application:
	// the overlay joins all workspaces and covers the primary display instead.
	FullscreenWorkspace
)

// ParseFullscreenStrategy converts a config value to FullscreenStrategy.
func ParseFullscreenStrategy(s string) (FullscreenStrategy, error) {
	switch strings.ToLower(s) {
	case "toggle":
		return FullscreenToggle, nil
	case "workspace":
		return FullscreenWorkspace, nil
	default:
		return FullscreenToggle, fmt.Errorf("unknown fullscreen strategy: %q (expected toggle or workspace)", s)
	}
}

func (f FullscreenStrategy) String() string {
	if f == FullscreenWorkspace {
		return "workspace"
	}
	return "toggle"
}

// BlurPolicy decides whether a target blur respects the focus intent.
type BlurPolicy int

const (
	// BlurRespectIntent keeps the overlay when focus is moving to it on purpose.
	BlurRespectIntent BlurPolicy = iota
	// BlurAlwaysHide hides on every target blur, for hosts that cannot tell the
	// two causes apart.
	BlurAlwaysHide
)

// ParseBlurPolicy converts a config value to BlurPolicy.
func ParseBlurPolicy(s string) (BlurPolicy, error) {
	switch strings.ToLower(s) {
	case "respect-intent":
		return BlurRespectIntent, nil
	case "always-hide":
		return BlurAlwaysHide, nil
	default:
		return BlurRespectIntent, fmt.Errorf("unknown blur policy: %q (expected respect-intent or always-hide)", s)
	}
}

func (b BlurPolicy) String() string {
	if b == BlurAlwaysHide {
		return "always-hide"
	}
	return "respect-intent"
}

// WindowOptions are the creation options an overlay window needs from its toolkit.
type WindowOptions struct {
	Title       string
	Width       int
	Height      int
	Transparent bool
	Frameless   bool
	SkipTaskbar bool
	// Unfocused creates the window without stealing focus from the target.
	Unfocused bool
}

// OverlayWindowOptions returns the creation options every overlay window should use.
func OverlayWindowOptions(title string) WindowOptions {
	return WindowOptions{
		Title:       title,
		Width:       400,
		Height:      300,
		Transparent: true,
		Frameless:   true,
		SkipTaskbar: true,
		Unfocused:   true,
	}
}
