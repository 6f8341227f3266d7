package platform

import (
	"context"

	"github.com/mj1618/overlaywin/internal/model"
)

// HostWindow is the overlay window as seen through the hosting GUI toolkit.
// Implementations must tolerate calls from any goroutine.
type HostWindow interface {
	// Handle returns the native handle the tracker needs to parent/exclude the overlay.
	Handle() model.WindowHandle

	SetBounds(r model.Rect)
	// ShowInactive makes the window visible without taking focus.
	ShowInactive()
	Hide()
	// Focus requests native keyboard focus for the overlay.
	Focus()
	SetAlwaysOnTop(on bool, level Level)
	// SetIgnoreMouseEvents toggles input passthrough (click-through).
	SetIgnoreMouseEvents(ignore bool)
	SetFullScreen(on bool)
	SetVisibleOnAllWorkspaces(on bool)

	// Display returns the monitor the window currently sits on.
	Display() model.Display
	PrimaryDisplay() model.Display

	// OnFocusChange registers the callback for native focus gained/lost on the overlay.
	OnFocusChange(fn func(focused bool))
}

// TitleBarMeasurer is implemented by hosts that can measure the native title bar
// height by momentarily creating a framed reference window.
type TitleBarMeasurer interface {
	MeasureTitleBarHeight() (int, error)
}

// Tracker is the OS-level window tracker that discovers the target window and
// reports its transitions.
type Tracker interface {
	// Start begins tracking. emit may be called from any goroutine.
	Start(overlay model.WindowHandle, target model.TargetSelector, emit func(model.Record)) error

	// ActivateOverlay performs any native work needed for the overlay to take focus.
	ActivateOverlay() error

	// FocusTarget restores native focus to the target window.
	FocusTarget() error

	// Stop ends the subscription. No records are emitted after Stop returns.
	Stop() error
}

// Runner is implemented by hosts whose toolkit must own the calling goroutine,
// usually main. Run blocks until ctx is done or the window is closed.
type Runner interface {
	Run(ctx context.Context) error
}
