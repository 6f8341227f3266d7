package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/platform/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testPolicy() platform.Policy {
	return platform.Policy{Coords: platform.CoordLogical, Fullscreen: platform.FullscreenToggle, Blur: platform.BlurRespectIntent}
}

func sessionInfo(id string, started time.Time) SessionInfo {
	return SessionInfo{
		ID:        id,
		Selector:  model.SingleTitle("Game"),
		Policy:    RecordPolicy(testPolicy()),
		Window:    "headless",
		StartedAt: started,
	}
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func recordEntry(t *testing.T, seq int64, offset time.Duration, rec model.Record) Entry {
	return Entry{Seq: seq, Offset: offset, Kind: KindRecord, Payload: payload(t, rec)}
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, st.DB()))

	var n int
	require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, len(migrations), n)

	require.NoError(t, RollbackAll(ctx, st.DB()))
	require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 0, n)
	require.NoError(t, ApplyMigrations(ctx, st.DB()))
}

func TestStore_SessionLifecycle(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.BeginSession(ctx, sessionInfo("a", start)))
	require.NoError(t, st.BeginSession(ctx, sessionInfo("b", start.Add(time.Minute))))
	require.Error(t, st.BeginSession(ctx, sessionInfo("", start)))

	require.NoError(t, st.Append(ctx, "a", recordEntry(t, 1, 0, model.Record{Type: model.EventFocus})))
	require.NoError(t, st.Append(ctx, "a", Entry{Seq: 2, Offset: 5 * time.Millisecond, Kind: KindCommand, Payload: payload(t, commandPayload{Cmd: CommandFocusTarget})}))
	assert.Error(t, st.Append(ctx, "a", Entry{Seq: 3, Kind: "bogus", Payload: json.RawMessage(`{}`)}))

	sessions, err := st.Sessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "b", sessions[0].ID)
	assert.Equal(t, "a", sessions[1].ID)
	assert.Equal(t, 2, sessions[1].Entries)
	assert.Equal(t, []string{"Game"}, sessions[1].Selector.Titles)
	assert.Equal(t, "headless", sessions[1].Window)
	assert.True(t, sessions[1].StartedAt.Equal(start))
	assert.Nil(t, sessions[1].EndedAt)

	latest, err := st.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)

	limited, err := st.Sessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	end := start.Add(2 * time.Minute)
	require.NoError(t, st.EndSession(ctx, "a", end))
	got, err := st.Session(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.True(t, got.EndedAt.Equal(end))

	policy, err := got.Policy.Policy()
	require.NoError(t, err)
	assert.Equal(t, testPolicy(), policy)

	entries, err := st.Entries(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, KindRecord, entries[0].Kind)
	assert.Equal(t, KindCommand, entries[1].Kind)
	assert.Equal(t, 5*time.Millisecond, entries[1].Offset)

	require.NoError(t, st.DeleteSession(ctx, "a"))
	entries, err = st.Entries(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_NotFound(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	_, err := st.Session(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.EndSession(ctx, "missing", time.Now()), ErrNotFound)
	assert.ErrorIs(t, st.DeleteSession(ctx, "missing"), ErrNotFound)
}

type fakeTracker struct {
	emit        func(model.Record)
	activations int
	focuses     int
	stops       int
}

func (f *fakeTracker) Start(_ model.WindowHandle, _ model.TargetSelector, emit func(model.Record)) error {
	f.emit = emit
	return nil
}
func (f *fakeTracker) ActivateOverlay() error { f.activations++; return nil }
func (f *fakeTracker) FocusTarget() error     { f.focuses++; return nil }
func (f *fakeTracker) Stop() error            { f.stops++; return nil }

func TestRecorder_TapsTrackerAndWindow(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	rec, err := NewRecorder(ctx, st, sessionInfo("live", time.Time{}), nil)
	require.NoError(t, err)
	assert.Equal(t, "live", rec.ID())

	inner := &fakeTracker{}
	tap := Tap(inner, rec)
	var seen []model.Record
	require.NoError(t, tap.Start(nil, model.SingleTitle("Game"), func(r model.Record) { seen = append(seen, r) }))
	inner.emit(model.Record{Type: model.EventAttach, Width: 800, Height: 600})
	require.NoError(t, tap.ActivateOverlay())
	require.NoError(t, tap.FocusTarget())
	require.NoError(t, tap.Stop())

	win := TapHost(headless.New(headless.WithTitleBarHeight(28)), rec)
	var focused []bool
	win.OnFocusChange(func(f bool) { focused = append(focused, f) })
	win.HostWindow.(*headless.Window).SimulateFocus(true)

	h, err := win.MeasureTitleBarHeight()
	require.NoError(t, err)
	assert.Equal(t, 28, h)

	require.NoError(t, rec.Close())

	assert.Len(t, seen, 1)
	assert.Equal(t, []bool{true}, focused)
	assert.Equal(t, 1, inner.activations)
	assert.Equal(t, 1, inner.focuses)
	assert.Equal(t, 1, inner.stops)

	entries, err := st.Entries(ctx, "live")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	kinds := []Kind{entries[0].Kind, entries[1].Kind, entries[2].Kind, entries[3].Kind}
	assert.Equal(t, []Kind{KindRecord, KindCommand, KindCommand, KindHostFocus}, kinds)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.JSONEq(t, `{"cmd":"activateOverlay"}`, string(entries[1].Payload))
	assert.JSONEq(t, `{"focused":true}`, string(entries[3].Payload))

	info, err := st.Session(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, info.EndedAt)
}

func TestTapWindow_MeasureUnsupported(t *testing.T) {
	st := openStore(t)
	rec, err := NewRecorder(context.Background(), st, sessionInfo("m", time.Time{}), nil)
	require.NoError(t, err)

	win := TapHost(headless.New(), rec)
	_, err = win.MeasureTitleBarHeight()
	assert.Error(t, err)
}

func TestReplayEntries_CoalescesMoves(t *testing.T) {
	info := sessionInfo("r", time.Now())
	ms := time.Millisecond
	entries := []Entry{
		recordEntry(t, 1, 0, model.Record{Type: model.EventAttach, Width: 800, Height: 600, HasAccess: model.Bool(true)}),
		recordEntry(t, 2, 10*ms, model.Record{Type: model.EventMoveResize, X: 10, Y: 10, Width: 800, Height: 600}),
		recordEntry(t, 3, 20*ms, model.Record{Type: model.EventMoveResize, X: 20, Y: 20, Width: 800, Height: 600}),
		recordEntry(t, 4, 30*ms, model.Record{Type: model.EventMoveResize, X: 30, Y: 30, Width: 900, Height: 700}),
	}

	res, err := ReplayEntries(context.Background(), info, entries, ReplayOptions{})
	require.NoError(t, err)

	var bounds []model.Rect
	for _, c := range res.Commands {
		if c.Name == "setBounds" {
			bounds = append(bounds, *c.Rect)
		}
	}
	assert.Equal(t, []model.Rect{{Width: 800, Height: 600}, {X: 30, Y: 30, Width: 900, Height: 700}}, bounds)
	assert.Equal(t, model.Rect{X: 30, Y: 30, Width: 900, Height: 700}, res.Window.Bounds)
	assert.Equal(t, "attached", res.Final.Phase)
	assert.Equal(t, []string{"attach", "moveresize", "moveresize", "moveresize"}, res.Notifications)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Displays, 1)
}

func TestReplayEntries_CommandsAndHostFocus(t *testing.T) {
	info := sessionInfo("r", time.Now())
	ms := time.Millisecond
	entries := []Entry{
		recordEntry(t, 1, 0, model.Record{Type: model.EventAttach, Width: 800, Height: 600}),
		{Seq: 2, Offset: 5 * ms, Kind: KindCommand, Payload: payload(t, commandPayload{Cmd: CommandActivateOverlay})},
		recordEntry(t, 3, 6*ms, model.Record{Type: model.EventBlur}),
		{Seq: 4, Offset: 7 * ms, Kind: KindHostFocus, Payload: payload(t, hostFocusPayload{Focused: true})},
		{Seq: 5, Offset: 8 * ms, Kind: KindCommand, Payload: payload(t, commandPayload{Cmd: "bogus"})},
		{Seq: 6, Offset: 9 * ms, Kind: "bogus", Payload: json.RawMessage(`{}`)},
	}

	res, err := ReplayEntries(context.Background(), info, entries, ReplayOptions{})
	require.NoError(t, err)

	assert.True(t, res.Window.Visible)
	assert.False(t, res.Window.Passthrough)
	assert.Equal(t, "overlay-focused", res.Final.Focus)
	assert.Equal(t, "none", res.Final.Intent)
	assert.Equal(t, 2, res.Skipped)
}

func TestReplayEntries_PolicyOverride(t *testing.T) {
	info := sessionInfo("r", time.Now())
	entries := []Entry{
		recordEntry(t, 1, 0, model.Record{Type: model.EventAttach, Width: 800, Height: 600}),
		recordEntry(t, 2, time.Millisecond, model.Record{Type: model.EventBlur, ToOverlay: model.Bool(true)}),
	}

	res, err := ReplayEntries(context.Background(), info, entries, ReplayOptions{})
	require.NoError(t, err)
	assert.True(t, res.Window.Visible)

	alwaysHide := testPolicy()
	alwaysHide.Blur = platform.BlurAlwaysHide
	res, err = ReplayEntries(context.Background(), info, entries, ReplayOptions{Policy: &alwaysHide})
	require.NoError(t, err)
	assert.False(t, res.Window.Visible)
}

func TestReplay_FromStore(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.BeginSession(ctx, sessionInfo("s", time.Now())))
	require.NoError(t, st.Append(ctx, "s", recordEntry(t, 1, 0, model.Record{Type: model.EventAttach, X: 5, Y: 5, Width: 640, Height: 480})))
	require.NoError(t, st.Append(ctx, "s", recordEntry(t, 2, time.Millisecond, model.Record{Type: model.EventDetach})))

	res, err := Replay(ctx, st, "s", ReplayOptions{})
	require.NoError(t, err)
	assert.Equal(t, "detached", res.Final.Phase)
	assert.False(t, res.Window.Visible)
	assert.Equal(t, "s", res.Session.ID)

	_, err = Replay(ctx, st, "missing", ReplayOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}
