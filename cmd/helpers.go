package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mj1618/overlaywin/internal/config"
	"github.com/mj1618/overlaywin/internal/journal"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// addTargetFlags registers the flags that select and describe the target.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("title", nil, "Target window title (repeat for multi-title mode; the first match wins)")
	cmd.Flags().Bool("has-title-bar", false, "The target draws a title bar the overlay must not cover")
	cmd.Flags().String("blur-policy", "", "Override blur policy: respect-intent, always-hide")
	cmd.Flags().String("fullscreen", "", "Override fullscreen strategy: toggle, workspace")
	cmd.Flags().String("coords", "", "Override tracker coordinate space: logical, physical")
	cmd.Flags().Duration("coalesce", 0, "Move/resize coalescing window (default from config)")
}

// addTrackerFlags registers the flags that choose where tracker records come from.
func addTrackerFlags(cmd *cobra.Command, defaultEvents string) {
	cmd.Flags().String("tracker", "", "Tracker command to spawn; it reads commands on stdin and writes records on stdout")
	cmd.Flags().String("events", defaultEvents, "Read tracker records from this JSONL file (- for stdin) when --tracker is not set")
	cmd.Flags().String("commands", "", "Write tracker commands to this file when --tracker is not set")
}

// applyTargetFlags merges command-line overrides into the loaded config.
func applyTargetFlags(cmd *cobra.Command, cfg *config.Config) error {
	if titles, _ := cmd.Flags().GetStringArray("title"); len(titles) > 0 {
		cfg.Target.Title = ""
		cfg.Target.Titles = titles
	}
	if cmd.Flags().Changed("has-title-bar") {
		cfg.Target.HasTitleBar, _ = cmd.Flags().GetBool("has-title-bar")
	}
	if v, _ := cmd.Flags().GetString("blur-policy"); v != "" {
		cfg.Overlay.BlurPolicy = v
	}
	if v, _ := cmd.Flags().GetString("fullscreen"); v != "" {
		cfg.Overlay.Fullscreen = v
	}
	if v, _ := cmd.Flags().GetString("coords"); v != "" {
		cfg.Overlay.Coords = v
	}
	if v, _ := cmd.Flags().GetDuration("coalesce"); v > 0 {
		cfg.Overlay.CoalesceInterval = v
	}
	if f := cmd.Flags().Lookup("window"); f != nil && f.Changed {
		cfg.Overlay.Window = f.Value.String()
	}
	if f := cmd.Flags().Lookup("journal"); f != nil && f.Changed {
		cfg.Journal.Enabled, _ = cmd.Flags().GetBool("journal")
	}
	if f := cmd.Flags().Lookup("metrics-addr"); f != nil && f.Changed {
		cfg.Metrics.Addr = f.Value.String()
	}
	return cfg.Validate()
}

// runtimeOptionsFrom builds the runtime settings from the merged config.
func runtimeOptionsFrom(cfg *config.Config) (runtimeOptions, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return runtimeOptions{}, err
	}
	return runtimeOptions{
		Backend:     cfg.Overlay.Window,
		Selector:    cfg.Target.Selector(),
		Attach:      cfg.Target.AttachOptions(),
		Policy:      policy,
		Interval:    cfg.Overlay.CoalesceInterval,
		Journal:     cfg.Journal.Enabled,
		JournalPath: cfg.Journal.Path,
		MetricsAddr: cfg.Metrics.Addr,
	}, nil
}

// trackerIO wires the tracker stream to a spawned process or to files.
// The returned cleanup func releases whatever was opened.
func trackerIO(ctx context.Context, cmd *cobra.Command, log *zap.Logger) (in io.Reader, out io.Writer, cleanup func(), err error) {
	command, _ := cmd.Flags().GetString("tracker")
	events, _ := cmd.Flags().GetString("events")
	commands, _ := cmd.Flags().GetString("commands")

	if command != "" {
		return spawnTracker(ctx, command, log)
	}

	var closers []io.Closer
	cleanup = func() {
		for _, c := range closers {
			c.Close() //nolint:errcheck
		}
	}

	switch events {
	case "":
		in = strings.NewReader("")
	case "-":
		in = os.Stdin
	default:
		f, err := os.Open(events)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening events: %w", err)
		}
		closers = append(closers, f)
		in = f
	}

	out = io.Discard
	if commands != "" {
		f, err := os.Create(commands)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("creating commands file: %w", err)
		}
		closers = append(closers, f)
		out = f
	}
	return in, out, cleanup, nil
}

// spawnTracker starts an external tracker process speaking the stream protocol.
func spawnTracker(ctx context.Context, command string, log *zap.Logger) (io.Reader, io.Writer, func(), error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, nil, nil, errors.New("--tracker is empty")
	}
	proc := exec.CommandContext(ctx, fields[0], fields[1:]...)
	proc.Stderr = os.Stderr
	stdin, err := proc.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("tracker stdin: %w", err)
	}
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("tracker stdout: %w", err)
	}
	if err := proc.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("starting tracker: %w", err)
	}
	log.Info("tracker started", zap.String("command", command), zap.Int("pid", proc.Process.Pid))
	cleanup := func() {
		stdin.Close() //nolint:errcheck
		if err := proc.Wait(); err != nil {
			log.Debug("tracker exited", zap.Error(err))
		}
	}
	return stdout, stdin, cleanup, nil
}

// notificationData is the payload written with each notification.
func notificationData(e tracker.Event) interface{} {
	switch ev := e.(type) {
	case tracker.Attach:
		return struct {
			tracker.Attach
			Degraded bool `json:"degraded,omitempty"`
		}{ev, ev.HasAccess == model.False}
	case tracker.Focus, tracker.Detach:
		return nil
	default:
		return e
	}
}

// openJournal opens the journal configured in cfg.
func openJournal(ctx context.Context, cfg *config.Config) (*journal.Store, error) {
	if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no journal at %s (run attach with --journal first)", cfg.Journal.Path)
	}
	return journal.Open(ctx, cfg.Journal.Path)
}

// resolveSession returns the session named by id, or the latest for "" and "latest".
func resolveSession(ctx context.Context, store *journal.Store, id string) (journal.SessionInfo, error) {
	if id == "" || id == "latest" {
		return store.Latest(ctx)
	}
	return store.Session(ctx, id)
}

// Parameter extraction helpers for MCP argument maps

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func intParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

// optBoolParam returns nil when key is absent, for optional record fields.
func optBoolParam(params map[string]interface{}, key string) *bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return &b
		}
	}
	return nil
}
