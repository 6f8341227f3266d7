package cmd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mj1618/overlaywin/internal/output"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach an overlay window to a target window",
	Long: `Create the overlay window and keep it glued to the target reported by a tracker.

Tracker records are JSON lines such as {"type":1,"x":0,"y":0,"width":800,"height":600}.
They come from a spawned tracker process (--tracker) or from a file or stdin (--events).
Every event the controller handles is written to stdout as a JSONL notification.
The command exits when the target detaches, the record stream ends, or on Ctrl+C.

With --control (requires --tracker), stdin accepts the lines activate-overlay,
focus-target and status.

Examples:
  overlaywin attach --title "Untitled - Notepad" --tracker ./wintracker
  overlaywin attach --title Game --window headless --events recorded.jsonl
  overlaywin attach --title Game --journal --metrics-addr :9090 --tracker ./wintracker`,
	RunE: runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().String("window", "", "Overlay window backend: ebiten, headless (default from config)")
	addTargetFlags(attachCmd)
	addTrackerFlags(attachCmd, "-")
	attachCmd.Flags().Bool("journal", false, "Record the session in the journal for later replay")
	attachCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	attachCmd.Flags().Bool("control", false, "Read control commands from stdin (requires --tracker)")
}

func runAttach(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	if err := applyTargetFlags(cmd, &cfg); err != nil {
		return err
	}
	opts, err := runtimeOptionsFrom(&cfg)
	if err != nil {
		return err
	}
	control, _ := cmd.Flags().GetBool("control")
	if command, _ := cmd.Flags().GetString("tracker"); control && command == "" {
		return errors.New("--control needs --tracker: stdin is the record stream otherwise")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, out, cleanup, err := trackerIO(ctx, cmd, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	opts.TrackerIn, opts.TrackerOut = in, out

	rt, err := newRuntime(ctx, opts, logger)
	if err != nil {
		return err
	}
	lw := output.NewLineWriter(output.Stdout)

	detached := make(chan struct{})
	var once sync.Once
	notify := func(e tracker.Event) {
		if err := lw.Notify(tracker.Name(e), notificationData(e)); err != nil {
			logger.Warn("writing notification", zap.Error(err))
		}
		if _, ok := e.(tracker.Detach); ok {
			once.Do(func() { close(detached) })
		}
	}

	return rt.run(ctx, func(ctx context.Context) error {
		if err := rt.attach(ctx, notify); err != nil {
			return err
		}
		if control {
			go readControl(ctx, os.Stdin, rt, lw)
		}

		var err error
		select {
		case <-ctx.Done():
		case <-detached:
		case <-rt.stream.Done():
			err = rt.stream.Err()
		}
		if flushErr := rt.flush(context.Background()); flushErr != nil && err == nil {
			err = flushErr
		}
		if snap, snapErr := rt.snapshot(context.Background()); snapErr == nil {
			lw.Notify("done", snap) //nolint:errcheck
		}
		return err
	})
}

// readControl applies control commands read line by line from r.
func readControl(ctx context.Context, r io.Reader, rt *overlayRuntime, lw *output.LineWriter) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := applyControl(ctx, rt, lw, line); err != nil {
			lw.Notify("error", map[string]string{"command": line, "error": err.Error()}) //nolint:errcheck
		}
	}
}

func applyControl(ctx context.Context, rt *overlayRuntime, lw *output.LineWriter, line string) error {
	var cmdErr error
	switch line {
	case "activate-overlay":
		if err := rt.do(ctx, func(ctrl *overlay.Controller) { cmdErr = ctrl.ActivateOverlay() }); err != nil {
			return err
		}
	case "focus-target":
		if err := rt.do(ctx, func(ctrl *overlay.Controller) { cmdErr = ctrl.FocusTarget() }); err != nil {
			return err
		}
	case "status":
	default:
		return errors.New("unknown control command (use activate-overlay, focus-target or status)")
	}
	if cmdErr != nil {
		return cmdErr
	}
	snap, err := rt.snapshot(ctx)
	if err != nil {
		return err
	}
	return lw.Notify("status", snap)
}
