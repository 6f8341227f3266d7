package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/platform/headless"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	emit func(model.Record)
}

func (f *fakeTracker) Start(_ model.WindowHandle, _ model.TargetSelector, emit func(model.Record)) error {
	f.emit = emit
	return nil
}
func (f *fakeTracker) ActivateOverlay() error { return nil }
func (f *fakeTracker) FocusTarget() error     { return nil }
func (f *fakeTracker) Stop() error            { return nil }

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserve_CountsEventsAndCommands(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	tr := &fakeTracker{}
	ctrl, err := overlay.NewController(tr, overlay.Config{
		Policy:    platform.Policy{Coords: platform.CoordLogical, Fullscreen: platform.FullscreenToggle, Blur: platform.BlurAlwaysHide},
		Scheduler: overlay.NewManualScheduler(),
	})
	require.NoError(t, err)

	win := m.InstrumentWindow(headless.New())
	_, err = ctrl.Attach(win, model.SingleTitle("Game"), overlay.AttachOptions{})
	require.NoError(t, err)
	stop := m.Observe(ctrl)

	tr.emit(model.Record{Type: model.EventAttach, Width: 800, Height: 600})
	tr.emit(model.Record{Type: model.EventBlur})
	tr.emit(model.Record{Type: 42})

	body := scrape(t, m)
	assert.Contains(t, body, `overlaywin_events_total{event="attach"} 1`)
	assert.Contains(t, body, `overlaywin_events_total{event="blur"} 1`)
	assert.Contains(t, body, `overlaywin_host_commands_total{command="setBounds"} 1`)
	assert.Contains(t, body, `overlaywin_host_commands_total{command="hide"} 1`)
	assert.Contains(t, body, "overlaywin_attached 1")
	assert.Contains(t, body, "overlaywin_visible 0")
	assert.Contains(t, body, "overlaywin_placements 1")

	stop()
	tr.emit(model.Record{Type: model.EventFocus})
	body = scrape(t, m)
	assert.NotContains(t, body, `overlaywin_events_total{event="focus"}`)
	assert.Contains(t, body, `overlaywin_host_commands_total{command="showInactive"} 2`)
}

func TestSync_SetsGauges(t *testing.T) {
	m := NewMetrics(nil)
	m.Sync(overlay.Snapshot{Phase: "detached", Passthrough: true, Dropped: 3, Placements: 7})

	body := scrape(t, m)
	assert.Contains(t, body, "overlaywin_attached 0")
	assert.Contains(t, body, "overlaywin_passthrough 1")
	assert.Contains(t, body, "overlaywin_dropped_events 3")
	assert.Contains(t, body, "overlaywin_placements 7")
}

func TestInstrumentWindow_MeasureTitleBar(t *testing.T) {
	m := NewMetrics(nil)

	h, err := m.InstrumentWindow(headless.New(headless.WithTitleBarHeight(22))).MeasureTitleBarHeight()
	require.NoError(t, err)
	assert.Equal(t, 22, h)

	_, err = m.InstrumentWindow(headless.New()).MeasureTitleBarHeight()
	assert.Error(t, err)
}
