package journal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
	"go.uber.org/zap"
)

// Recorder appends the inputs of one live session to the store. Write errors
// are logged, not returned.
type Recorder struct {
	store *Store
	id    string
	start time.Time
	now   func() time.Time
	log   *zap.Logger

	mu  sync.Mutex
	seq int64
}

// NewRecorder begins a journaled session.
func NewRecorder(ctx context.Context, store *Store, info SessionInfo, log *zap.Logger) (*Recorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	if err := store.BeginSession(ctx, info); err != nil {
		return nil, err
	}
	return &Recorder{
		store: store,
		id:    info.ID,
		start: info.StartedAt,
		now:   time.Now,
		log:   log.With(zap.String("journal_session", info.ID)),
	}, nil
}

// ID returns the journaled session id.
func (r *Recorder) ID() string {
	return r.id
}

// Record journals a raw tracker record.
func (r *Recorder) Record(rec model.Record) {
	r.append(KindRecord, rec)
}

// Command journals a caller focus command.
func (r *Recorder) Command(name string) {
	r.append(KindCommand, commandPayload{Cmd: name})
}

// HostFocus journals an overlay window focus notification.
func (r *Recorder) HostFocus(focused bool) {
	r.append(KindHostFocus, hostFocusPayload{Focused: focused})
}

type commandPayload struct {
	Cmd string `json:"cmd"`
}

type hostFocusPayload struct {
	Focused bool `json:"focused"`
}

func (r *Recorder) append(kind Kind, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("journal encode failed", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e := Entry{Seq: r.seq, Offset: r.now().Sub(r.start), Kind: kind, Payload: payload}
	if err := r.store.Append(context.Background(), r.id, e); err != nil {
		r.log.Warn("journal append failed", zap.Error(err))
	}
}

// Close marks the session ended.
func (r *Recorder) Close() error {
	return r.store.EndSession(context.Background(), r.id, r.now())
}

// TapTracker journals every record and command passing through a tracker.
type TapTracker struct {
	inner platform.Tracker
	rec   *Recorder
}

// Tap wraps tr so its traffic is journaled by rec.
func Tap(tr platform.Tracker, rec *Recorder) *TapTracker {
	return &TapTracker{inner: tr, rec: rec}
}

func (t *TapTracker) Start(overlay model.WindowHandle, target model.TargetSelector, emit func(model.Record)) error {
	return t.inner.Start(overlay, target, func(rec model.Record) {
		t.rec.Record(rec)
		emit(rec)
	})
}

func (t *TapTracker) ActivateOverlay() error {
	t.rec.Command(CommandActivateOverlay)
	return t.inner.ActivateOverlay()
}

func (t *TapTracker) FocusTarget() error {
	t.rec.Command(CommandFocusTarget)
	return t.inner.FocusTarget()
}

func (t *TapTracker) Stop() error {
	return t.inner.Stop()
}

// Journaled command names.
const (
	CommandActivateOverlay = "activateOverlay"
	CommandFocusTarget     = "focusTarget"
)

var errNoTitleBar = errors.New("window cannot measure its title bar")

// TapWindow journals the overlay window's focus notifications.
type TapWindow struct {
	platform.HostWindow
	rec *Recorder
}

// TapHost wraps win so its focus notifications are journaled by rec.
func TapHost(win platform.HostWindow, rec *Recorder) *TapWindow {
	return &TapWindow{HostWindow: win, rec: rec}
}

func (w *TapWindow) OnFocusChange(fn func(focused bool)) {
	w.HostWindow.OnFocusChange(func(focused bool) {
		w.rec.HostFocus(focused)
		fn(focused)
	})
}

// MeasureTitleBarHeight forwards to the wrapped window when it can measure.
func (w *TapWindow) MeasureTitleBarHeight() (int, error) {
	if m, ok := w.HostWindow.(platform.TitleBarMeasurer); ok {
		return m.MeasureTitleBarHeight()
	}
	return 0, errNoTitleBar
}
