package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/platform/headless"
	"github.com/mj1618/overlaywin/internal/tracker"
	"go.uber.org/zap"
)

// ReplayOptions tunes a replay.
type ReplayOptions struct {
	// Displays of the simulated desktop. Defaults to one 1920x1080 display.
	Displays []model.Display
	// TitleBarHeight is what the simulated window measures; 0 means it cannot.
	TitleBarHeight   int
	CoalesceInterval time.Duration
	// Policy replaces the journaled policy when set.
	Policy *platform.Policy
	Logger *zap.Logger
}

// ReplayResult is the outcome of replaying one session.
type ReplayResult struct {
	Session       SessionInfo        `yaml:"session"       json:"session"`
	Commands      []headless.Command `yaml:"commands"      json:"commands"`
	Notifications []string           `yaml:"notifications" json:"notifications"`
	Final         overlay.Snapshot   `yaml:"final"         json:"final"`
	Window        headless.State     `yaml:"window"        json:"window"`
	Displays      []model.Display    `yaml:"displays"      json:"displays"`
	Skipped       int                `yaml:"skipped"       json:"skipped"`
}

// Replay loads a session from the store and replays it.
func Replay(ctx context.Context, store *Store, sessionID string, opts ReplayOptions) (*ReplayResult, error) {
	info, err := store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := store.Entries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ReplayEntries(ctx, info, entries, opts)
}

// ReplayEntries drives a fresh controller and headless window through the
// journaled inputs, advancing a manual clock to each entry's offset so
// coalescing behaves as it did live.
func ReplayEntries(ctx context.Context, info SessionInfo, entries []Entry, opts ReplayOptions) (*ReplayResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	policy, err := info.Policy.Policy()
	if opts.Policy != nil {
		policy, err = *opts.Policy, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journaled policy: %w", err)
	}

	winOpts := []headless.Option{headless.WithLogger(log)}
	if len(opts.Displays) > 0 {
		winOpts = append(winOpts, headless.WithDisplays(opts.Displays...))
	}
	if opts.TitleBarHeight > 0 {
		winOpts = append(winOpts, headless.WithTitleBarHeight(opts.TitleBarHeight))
	}
	win := headless.New(winOpts...)

	sched := overlay.NewManualScheduler()
	tr := &replayTracker{}
	ctrl, err := overlay.NewController(tr, overlay.Config{
		Policy:           policy,
		CoalesceInterval: opts.CoalesceInterval,
		Scheduler:        sched,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}

	res := &ReplayResult{Session: info}
	ctrl.Subscribe(func(e tracker.Event) {
		res.Notifications = append(res.Notifications, tracker.Name(e))
	})
	if _, err := ctrl.Attach(win, info.Selector, overlay.AttachOptions{HasTitleBar: info.HasTitleBar}); err != nil {
		return nil, fmt.Errorf("replay attach: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d := e.Offset - sched.Now(); d > 0 {
			sched.Advance(d)
		}
		if err := apply(ctrl, win, tr, e); err != nil {
			res.Skipped++
			log.Debug("replay skipped entry", zap.Int64("seq", e.Seq), zap.Error(err))
		}
	}
	interval := opts.CoalesceInterval
	if interval <= 0 {
		interval = overlay.DefaultCoalesceInterval
	}
	sched.Advance(interval)

	res.Commands = win.Commands()
	res.Final = ctrl.Snapshot()
	res.Window = win.State()
	res.Displays = opts.Displays
	if len(res.Displays) == 0 {
		res.Displays = []model.Display{win.PrimaryDisplay()}
	}
	return res, nil
}

func apply(ctrl *overlay.Controller, win *headless.Window, tr *replayTracker, e Entry) error {
	switch e.Kind {
	case KindRecord:
		var rec model.Record
		if err := json.Unmarshal(e.Payload, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		tr.emit(rec)
		return nil
	case KindCommand:
		var c commandPayload
		if err := json.Unmarshal(e.Payload, &c); err != nil {
			return fmt.Errorf("decode command: %w", err)
		}
		switch c.Cmd {
		case CommandActivateOverlay:
			return ctrl.ActivateOverlay()
		case CommandFocusTarget:
			return ctrl.FocusTarget()
		default:
			return fmt.Errorf("unknown command %q", c.Cmd)
		}
	case KindHostFocus:
		var f hostFocusPayload
		if err := json.Unmarshal(e.Payload, &f); err != nil {
			return fmt.Errorf("decode host focus: %w", err)
		}
		win.SimulateFocus(f.Focused)
		return nil
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
}

var errReplayNotStarted = errors.New("replay tracker not started")

// replayTracker hands the controller's emit func back to the replay loop.
type replayTracker struct {
	emitFn func(model.Record)
}

func (t *replayTracker) Start(_ model.WindowHandle, _ model.TargetSelector, emit func(model.Record)) error {
	t.emitFn = emit
	return nil
}

func (t *replayTracker) emit(rec model.Record) {
	if t.emitFn != nil {
		t.emitFn(rec)
	}
}

func (t *replayTracker) ActivateOverlay() error {
	if t.emitFn == nil {
		return errReplayNotStarted
	}
	return nil
}

func (t *replayTracker) FocusTarget() error {
	if t.emitFn == nil {
		return errReplayNotStarted
	}
	return nil
}

func (t *replayTracker) Stop() error {
	return nil
}
