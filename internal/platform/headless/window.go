// Package headless provides a HostWindow that records every command instead of
// driving a real toolkit. It backs replays, the `attach --window headless` mode
// and the controller tests.
package headless

import (
	"fmt"
	"sync"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
	"go.uber.org/zap"
)

// Command is one recorded host-window call.
type Command struct {
	Name  string      `yaml:"cmd"             json:"cmd"`
	Rect  *model.Rect `yaml:"rect,omitempty"  json:"rect,omitempty"`
	On    *bool       `yaml:"on,omitempty"    json:"on,omitempty"`
	Level string      `yaml:"level,omitempty" json:"level,omitempty"`
}

func (c Command) String() string {
	switch {
	case c.Rect != nil:
		return fmt.Sprintf("%s(%s)", c.Name, c.Rect)
	case c.On != nil && c.Level != "":
		return fmt.Sprintf("%s(%v, %s)", c.Name, *c.On, c.Level)
	case c.On != nil:
		return fmt.Sprintf("%s(%v)", c.Name, *c.On)
	default:
		return c.Name + "()"
	}
}

// Window is a recording HostWindow with simulated displays.
type Window struct {
	mu       sync.Mutex
	handle   model.WindowHandle
	displays []model.Display
	titleBar int
	log      *zap.Logger

	commands    []Command
	bounds      model.Rect
	visible     bool
	passthrough bool
	fullscreen  bool
	allSpaces   bool
	onTop       bool
	focused     bool
	onFocus     func(bool)
}

// Option configures a Window.
type Option func(*Window)

// WithDisplays replaces the default single 1920x1080 display. The first display is primary.
func WithDisplays(displays ...model.Display) Option {
	return func(w *Window) { w.displays = append([]model.Display(nil), displays...) }
}

// WithTitleBarHeight makes the window measure a native title bar of h pixels.
func WithTitleBarHeight(h int) Option {
	return func(w *Window) { w.titleBar = h }
}

// WithLogger logs every command at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(w *Window) { w.log = log }
}

// New creates a headless window.
func New(opts ...Option) *Window {
	w := &Window{
		handle:   model.WindowHandle{0x0d, 0xe1, 0x10, 0x00},
		displays: []model.Display{model.UniformDisplay(1, model.Rect{Width: 1920, Height: 1080}, 1)},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func init() {
	platform.RegisterHost("headless", func(opts platform.WindowOptions) (platform.HostWindow, error) {
		w := New()
		w.bounds = model.Rect{Width: opts.Width, Height: opts.Height}
		return w, nil
	})
}

func (w *Window) record(c Command) {
	w.commands = append(w.commands, c)
	w.log.Debug("host window", zap.Stringer("command", c))
}

func (w *Window) Handle() model.WindowHandle { return w.handle }

func (w *Window) SetBounds(r model.Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bounds = r
	w.record(Command{Name: "setBounds", Rect: &r})
}

func (w *Window) ShowInactive() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = true
	w.record(Command{Name: "showInactive"})
}

func (w *Window) Hide() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = false
	w.record(Command{Name: "hide"})
}

func (w *Window) Focus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(Command{Name: "focus"})
}

func (w *Window) SetAlwaysOnTop(on bool, level platform.Level) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTop = on
	w.record(Command{Name: "setAlwaysOnTop", On: &on, Level: level.String()})
}

func (w *Window) SetIgnoreMouseEvents(ignore bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.passthrough = ignore
	w.record(Command{Name: "setIgnoreMouseEvents", On: &ignore})
}

func (w *Window) SetFullScreen(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fullscreen = on
	w.record(Command{Name: "setFullScreen", On: &on})
}

func (w *Window) SetVisibleOnAllWorkspaces(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.allSpaces = on
	w.record(Command{Name: "setVisibleOnAllWorkspaces", On: &on})
}

// Display returns the display containing the centre of the window's current bounds.
func (w *Window) Display() model.Display {
	w.mu.Lock()
	defer w.mu.Unlock()
	cx := w.bounds.X + w.bounds.Width/2
	cy := w.bounds.Y + w.bounds.Height/2
	for _, d := range w.displays {
		b := d.Bounds
		if cx >= b.X && cx < b.X+b.Width && cy >= b.Y && cy < b.Y+b.Height {
			return d
		}
	}
	return w.displays[0]
}

func (w *Window) PrimaryDisplay() model.Display {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.displays[0]
}

func (w *Window) OnFocusChange(fn func(focused bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onFocus = fn
}

// MeasureTitleBarHeight implements platform.TitleBarMeasurer.
func (w *Window) MeasureTitleBarHeight() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.titleBar <= 0 {
		return 0, fmt.Errorf("headless window has no title bar configured")
	}
	return w.titleBar, nil
}

// SimulateFocus delivers a native focus notification as the toolkit would.
func (w *Window) SimulateFocus(focused bool) {
	w.mu.Lock()
	w.focused = focused
	fn := w.onFocus
	w.mu.Unlock()
	if fn != nil {
		fn(focused)
	}
}

// State is a point-in-time view of the simulated window.
type State struct {
	Bounds      model.Rect `yaml:"bounds"      json:"bounds"`
	Visible     bool       `yaml:"visible"     json:"visible"`
	Passthrough bool       `yaml:"passthrough" json:"passthrough"`
	Fullscreen  bool       `yaml:"fullscreen"  json:"fullscreen"`
	AllSpaces   bool       `yaml:"all_spaces"  json:"all_spaces"`
	OnTop       bool       `yaml:"on_top"      json:"on_top"`
	Focused     bool       `yaml:"focused"     json:"focused"`
}

// State returns the simulated window state.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Bounds:      w.bounds,
		Visible:     w.visible,
		Passthrough: w.passthrough,
		Fullscreen:  w.fullscreen,
		AllSpaces:   w.allSpaces,
		OnTop:       w.onTop,
		Focused:     w.focused,
	}
}

// Commands returns a copy of every recorded command.
func (w *Window) Commands() []Command {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Command(nil), w.commands...)
}

// CommandsNamed returns recorded commands with the given name.
func (w *Window) CommandsNamed(name string) []Command {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Command
	for _, c := range w.commands {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the command log but keeps the simulated state.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commands = nil
}
