//go:build !headless

// Package ebitenhost hosts the overlay in a transparent, frameless ebiten
// window. Ebiten owns the main goroutine, so callers start the window with Run
// and drive it from elsewhere.
package ebitenhost

import (
	"context"
	"errors"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
	"go.uber.org/zap"
)

// Window is a platform.HostWindow backed by ebiten.
type Window struct {
	opts platform.WindowOptions
	log  *zap.Logger

	mu          sync.Mutex
	bounds      model.Rect
	visible     bool
	passthrough bool
	focused     bool
	onFocus     func(bool)
	draw        func(screen *ebiten.Image)
	ctx         context.Context
}

// Option configures a Window.
type Option func(*Window)

// WithLogger sets the window's logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *Window) { w.log = log }
}

// WithDraw sets the overlay content. Nothing is drawn by default, leaving the
// window fully transparent.
func WithDraw(fn func(screen *ebiten.Image)) Option {
	return func(w *Window) { w.draw = fn }
}

// New creates the window. It is not shown until Run is called.
func New(opts platform.WindowOptions, options ...Option) *Window {
	w := &Window{
		opts:   opts,
		log:    zap.NewNop(),
		bounds: model.Rect{Width: opts.Width, Height: opts.Height},
		ctx:    context.Background(),
	}
	for _, o := range options {
		o(w)
	}
	return w
}

func init() {
	platform.RegisterHost("ebiten", func(opts platform.WindowOptions) (platform.HostWindow, error) {
		return New(opts), nil
	})
}

// Run starts the ebiten game loop on the calling goroutine and blocks until ctx
// is done or the window is closed.
func (w *Window) Run(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	ebiten.SetWindowTitle(w.opts.Title)
	if w.opts.Width > 0 && w.opts.Height > 0 {
		ebiten.SetWindowSize(w.opts.Width, w.opts.Height)
	}
	ebiten.SetWindowDecorated(!w.opts.Frameless)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetScreenClearedEveryFrame(true)

	err := ebiten.RunGameWithOptions(&game{w: w}, &ebiten.RunGameOptions{
		ScreenTransparent: w.opts.Transparent,
		InitUnfocused:     w.opts.Unfocused,
		SkipTaskbar:       w.opts.SkipTaskbar,
	})
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Handle returns nil: ebiten does not expose the native window handle.
func (w *Window) Handle() model.WindowHandle { return nil }

func (w *Window) SetBounds(r model.Rect) {
	w.mu.Lock()
	w.bounds = r
	w.mu.Unlock()
	ebiten.SetWindowPosition(r.X, r.Y)
	ebiten.SetWindowSize(r.Width, r.Height)
}

// ShowInactive starts drawing the overlay content. The native window stays
// mapped for the whole session; hidden means transparent and click-through.
func (w *Window) ShowInactive() {
	w.mu.Lock()
	w.visible = true
	passthrough := w.passthrough
	w.mu.Unlock()
	ebiten.SetWindowMousePassthrough(passthrough)
}

func (w *Window) Hide() {
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
	ebiten.SetWindowMousePassthrough(true)
}

// Focus restores the window. Ebiten has no explicit focus request.
func (w *Window) Focus() {
	ebiten.RestoreWindow()
}

func (w *Window) SetAlwaysOnTop(on bool, level platform.Level) {
	ebiten.SetWindowFloating(on && level != platform.LevelNormal)
}

func (w *Window) SetIgnoreMouseEvents(ignore bool) {
	w.mu.Lock()
	w.passthrough = ignore
	visible := w.visible
	w.mu.Unlock()
	ebiten.SetWindowMousePassthrough(ignore || !visible)
}

func (w *Window) SetFullScreen(on bool) {
	ebiten.SetFullscreen(on)
}

// SetVisibleOnAllWorkspaces is not supported by ebiten. The workspace
// fullscreen strategy still covers the primary display through SetBounds.
func (w *Window) SetVisibleOnAllWorkspaces(on bool) {
	w.log.Debug("visible on all workspaces not supported by ebiten", zap.Bool("on", on))
}

// Display returns the monitor the window is on. Ebiten reports monitor sizes
// but not their desktop origin, so the display is placed at the origin.
func (w *Window) Display() model.Display {
	return display(ebiten.Monitor(), 0)
}

func (w *Window) PrimaryDisplay() model.Display {
	monitors := ebiten.AppendMonitors(nil)
	if len(monitors) == 0 {
		return w.Display()
	}
	return display(monitors[0], 1)
}

func display(m *ebiten.MonitorType, id int) model.Display {
	if m == nil {
		return model.UniformDisplay(id, model.Rect{Width: 1920, Height: 1080}, 1)
	}
	width, height := m.Size()
	return model.UniformDisplay(id, model.Rect{Width: width, Height: height}, m.DeviceScaleFactor())
}

func (w *Window) OnFocusChange(fn func(focused bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onFocus = fn
}

// game adapts the window to ebiten.Game.
type game struct {
	w *Window
}

func (g *game) Update() error {
	w := g.w
	focused := ebiten.IsFocused()

	w.mu.Lock()
	ctx := w.ctx
	changed := focused != w.focused
	w.focused = focused
	fn := w.onFocus
	w.mu.Unlock()

	if changed && fn != nil {
		fn(focused)
	}
	if ctx.Err() != nil {
		return ebiten.Termination
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	w := g.w
	w.mu.Lock()
	visible, draw := w.visible, w.draw
	w.mu.Unlock()
	if visible && draw != nil {
		draw(screen)
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
