package platform

import "runtime"

// Policy captures the per-platform differences the overlay controller must honour.
type Policy struct {
	Coords     CoordSpace
	Fullscreen FullscreenStrategy
	Blur       BlurPolicy
	// InsetTitleBar moves the overlay below the target's own title bar when the
	// target has one.
	InsetTitleBar bool
	// TitleBarHeight is used when the host cannot measure the title bar itself.
	TitleBarHeight int
}

// PolicyFor returns the default policy for a GOOS value.
func PolicyFor(goos string) Policy {
	switch goos {
	case "windows":
		return Policy{
			Coords:     CoordPhysical,
			Fullscreen: FullscreenToggle,
			Blur:       BlurRespectIntent,
		}
	case "darwin":
		return Policy{
			Coords:         CoordLogical,
			Fullscreen:     FullscreenWorkspace,
			Blur:           BlurRespectIntent,
			InsetTitleBar:  true,
			TitleBarHeight: 28,
		}
	default:
		return Policy{
			Coords:     CoordLogical,
			Fullscreen: FullscreenToggle,
			Blur:       BlurAlwaysHide,
		}
	}
}

// CurrentPolicy returns the default policy for the running OS.
func CurrentPolicy() Policy {
	return PolicyFor(runtime.GOOS)
}
