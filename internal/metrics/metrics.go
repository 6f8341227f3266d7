// Package metrics exposes controller and host-window activity to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the overlay collectors.
type Metrics struct {
	// Tracker metrics
	Events *prometheus.CounterVec

	// Host window metrics
	HostCommands *prometheus.CounterVec

	// Controller state
	Attached    prometheus.Gauge
	Visible     prometheus.Gauge
	Passthrough prometheus.Gauge
	Dropped     prometheus.Gauge
	Placements  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors with reg. A nil reg uses a fresh
// registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overlaywin_events_total",
				Help: "Tracker events handled by the controller",
			},
			[]string{"event"},
		),
		HostCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overlaywin_host_commands_total",
				Help: "Commands issued to the overlay window",
			},
			[]string{"command"},
		),
		Attached: factory.NewGauge(prometheus.GaugeOpts{
			Name: "overlaywin_attached",
			Help: "1 while the overlay is attached to its target",
		}),
		Visible: factory.NewGauge(prometheus.GaugeOpts{
			Name: "overlaywin_visible",
			Help: "1 while the overlay is shown",
		}),
		Passthrough: factory.NewGauge(prometheus.GaugeOpts{
			Name: "overlaywin_passthrough",
			Help: "1 while the overlay ignores mouse input",
		}),
		Dropped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "overlaywin_dropped_events",
			Help: "Events ignored for arriving out of lifecycle or with an unknown tag",
		}),
		Placements: factory.NewGauge(prometheus.GaugeOpts{
			Name: "overlaywin_placements",
			Help: "Bounds placements made for the current session",
		}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Sync copies a controller snapshot into the state gauges.
func (m *Metrics) Sync(snap overlay.Snapshot) {
	m.Attached.Set(flag(snap.Phase == overlay.PhaseAttached.String()))
	m.Visible.Set(flag(snap.Visible))
	m.Passthrough.Set(flag(snap.Passthrough))
	m.Dropped.Set(float64(snap.Dropped))
	m.Placements.Set(float64(snap.Placements))
}

// Observe counts every event ctrl handles and keeps the state gauges current.
// The returned func stops observing. Like all controller calls it must run on
// the owning goroutine.
func (m *Metrics) Observe(ctrl *overlay.Controller) (stop func()) {
	m.Sync(ctrl.Snapshot())
	return ctrl.Subscribe(func(e tracker.Event) {
		m.Events.WithLabelValues(tracker.Name(e)).Inc()
		m.Sync(ctrl.Snapshot())
	})
}

func flag(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// Window counts the commands issued to a host window.
type Window struct {
	platform.HostWindow
	commands *prometheus.CounterVec
}

// InstrumentWindow wraps win so its commands are counted.
func (m *Metrics) InstrumentWindow(win platform.HostWindow) *Window {
	return &Window{HostWindow: win, commands: m.HostCommands}
}

func (w *Window) count(name string) {
	w.commands.WithLabelValues(name).Inc()
}

func (w *Window) SetBounds(r model.Rect) {
	w.count("setBounds")
	w.HostWindow.SetBounds(r)
}

func (w *Window) ShowInactive() {
	w.count("showInactive")
	w.HostWindow.ShowInactive()
}

func (w *Window) Hide() {
	w.count("hide")
	w.HostWindow.Hide()
}

func (w *Window) Focus() {
	w.count("focus")
	w.HostWindow.Focus()
}

func (w *Window) SetAlwaysOnTop(on bool, level platform.Level) {
	w.count("setAlwaysOnTop")
	w.HostWindow.SetAlwaysOnTop(on, level)
}

func (w *Window) SetIgnoreMouseEvents(ignore bool) {
	w.count("setIgnoreMouseEvents")
	w.HostWindow.SetIgnoreMouseEvents(ignore)
}

func (w *Window) SetFullScreen(on bool) {
	w.count("setFullScreen")
	w.HostWindow.SetFullScreen(on)
}

func (w *Window) SetVisibleOnAllWorkspaces(on bool) {
	w.count("setVisibleOnAllWorkspaces")
	w.HostWindow.SetVisibleOnAllWorkspaces(on)
}

// MeasureTitleBarHeight forwards to the wrapped window when it can measure.
func (w *Window) MeasureTitleBarHeight() (int, error) {
	if m, ok := w.HostWindow.(platform.TitleBarMeasurer); ok {
		return m.MeasureTitleBarHeight()
	}
	return 0, errNoTitleBar
}

var errNoTitleBar = errors.New("window cannot measure its title bar")
