package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/overlaywin/internal/journal"
	"github.com/mj1618/overlaywin/internal/metrics"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runtimeOptions are the settings shared by attach and serve.
type runtimeOptions struct {
	Backend     string
	Selector    model.TargetSelector
	Attach      overlay.AttachOptions
	Policy      platform.Policy
	Interval    time.Duration
	TrackerIn   io.Reader
	TrackerOut  io.Writer
	Journal     bool
	JournalPath string
	MetricsAddr string
}

// overlayRuntime wires a controller to its loop, tracker stream, host window
// and the optional journal and metrics.
type overlayRuntime struct {
	opts runtimeOptions
	log  *zap.Logger
	id   uuid.UUID

	loop     *overlay.Loop
	ctrl     *overlay.Controller
	stream   *tracker.Stream
	host     platform.HostWindow
	win      platform.HostWindow
	metrics  *metrics.Metrics
	store    *journal.Store
	recorder *journal.Recorder
	session  *overlay.Session
}

func newRuntime(ctx context.Context, opts runtimeOptions, log *zap.Logger) (*overlayRuntime, error) {
	if err := opts.Selector.Validate(); err != nil {
		return nil, fmt.Errorf("%w (use --title or target.title in the config)", err)
	}
	r := &overlayRuntime{
		opts: opts,
		log:  log,
		id:   uuid.New(),
		loop: overlay.NewLoop(log),
	}

	host, err := platform.NewHostWindow(opts.Backend, platform.OverlayWindowOptions("overlaywin"))
	if err != nil {
		return nil, err
	}
	r.host, r.win = host, host

	r.stream = tracker.NewStream(opts.TrackerIn, opts.TrackerOut, log.Named("tracker"))
	var tr platform.Tracker = r.stream

	if opts.MetricsAddr != "" {
		r.metrics = metrics.NewMetrics(prometheus.NewRegistry())
		r.win = r.metrics.InstrumentWindow(r.win)
	}
	if opts.Journal {
		store, err := journal.Open(ctx, opts.JournalPath)
		if err != nil {
			return nil, err
		}
		rec, err := journal.NewRecorder(ctx, store, journal.SessionInfo{
			ID:          r.id.String(),
			Selector:    opts.Selector,
			HasTitleBar: opts.Attach.HasTitleBar,
			Policy:      journal.RecordPolicy(opts.Policy),
			Window:      opts.Backend,
		}, log)
		if err != nil {
			store.Close() //nolint:errcheck
			return nil, err
		}
		r.store, r.recorder = store, rec
		tr = journal.Tap(tr, rec)
		r.win = journal.TapHost(r.win, rec)
	}

	ctrl, err := overlay.NewController(tr, overlay.Config{
		Policy:           opts.Policy,
		CoalesceInterval: opts.Interval,
		Dispatcher:       r.loop,
		Logger:           log,
		SessionID:        r.id,
	})
	if err != nil {
		r.closeJournal()
		return nil, err
	}
	r.ctrl = ctrl
	return r, nil
}

// run drives the runtime until fn returns or ctx is done. A host window that
// must own the calling goroutine runs here while fn runs in the background.
func (r *overlayRuntime) run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = r.loop.Run(loopCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	if r.metrics != nil {
		g.Go(func() error {
			return serveMetrics(gctx, r.opts.MetricsAddr, r.metrics.Handler(), r.log)
		})
	}
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})

	var hostErr error
	if runner, ok := r.host.(platform.Runner); ok {
		hostErr = runner.Run(gctx)
		cancel()
	}
	err := g.Wait()

	r.shutdown()
	stopLoop()
	<-loopDone
	r.closeJournal()

	if err == nil || errors.Is(err, context.Canceled) {
		err = hostErr
	}
	return err
}

// attach binds the controller to the overlay window and starts the tracker.
func (r *overlayRuntime) attach(ctx context.Context, subscribe func(tracker.Event)) error {
	var attachErr error
	err := r.loop.Do(ctx, func() {
		if r.metrics != nil {
			r.metrics.Observe(r.ctrl)
		}
		if subscribe != nil {
			r.ctrl.Subscribe(subscribe)
		}
		r.session, attachErr = r.ctrl.Attach(r.win, r.opts.Selector, r.opts.Attach)
	})
	if err != nil {
		return err
	}
	return attachErr
}

// do runs fn on the controller's goroutine.
func (r *overlayRuntime) do(ctx context.Context, fn func(ctrl *overlay.Controller)) error {
	return r.loop.Do(ctx, func() { fn(r.ctrl) })
}

func (r *overlayRuntime) snapshot(ctx context.Context) (overlay.Snapshot, error) {
	var snap overlay.Snapshot
	err := r.do(ctx, func(ctrl *overlay.Controller) { snap = ctrl.Snapshot() })
	return snap, err
}

// inject feeds a record to the controller as if the tracker had sent it.
func (r *overlayRuntime) inject(ctx context.Context, rec model.Record) error {
	return r.do(ctx, func(ctrl *overlay.Controller) {
		if r.recorder != nil {
			r.recorder.Record(rec)
		}
		ctrl.HandleRecord(rec)
	})
}

// flush waits for every record already read from the tracker to be handled,
// then applies any pending placement.
func (r *overlayRuntime) flush(ctx context.Context) error {
	return r.do(ctx, func(ctrl *overlay.Controller) { ctrl.Flush() })
}

func (r *overlayRuntime) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.loop.Do(ctx, func() {
		if r.session == nil {
			return
		}
		if err := r.session.Close(); err != nil {
			r.log.Warn("closing session", zap.Error(err))
		}
	})
	if err != nil {
		r.log.Debug("session not closed on loop", zap.Error(err))
	}
}

func (r *overlayRuntime) closeJournal() {
	if r.recorder != nil {
		if err := r.recorder.Close(); err != nil {
			r.log.Warn("closing journal session", zap.Error(err))
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.Warn("closing journal", zap.Error(err))
		}
	}
}

// serveMetrics exposes h on addr at /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
