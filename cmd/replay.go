package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mj1618/overlaywin/internal/journal"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/output"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/platform"
	"github.com/mj1618/overlaywin/internal/platform/headless"
	"github.com/mj1618/overlaywin/internal/render"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [id|latest]",
	Short: "Replay a journaled session through a headless overlay",
	Long: `Feed a journaled session's records, focus commands and host focus notifications
through a fresh controller driving a headless window, and print every command the
window received. Timing is reproduced on a simulated clock, so move/resize
coalescing behaves as it did live.

Policy flags replay the same inputs under a different platform policy.

Examples:
  overlaywin replay latest
  overlaywin replay 6f1c... --blur-policy always-hide
  overlaywin replay latest --display 0,0,1920,1080@1 --display 1920,0,2560,1440@1.5 --snapshot geometry.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("blur-policy", "", "Override blur policy: respect-intent, always-hide")
	replayCmd.Flags().String("fullscreen", "", "Override fullscreen strategy: toggle, workspace")
	replayCmd.Flags().String("coords", "", "Override tracker coordinate space: logical, physical")
	replayCmd.Flags().StringArray("display", nil, "Simulated display as x,y,w,h[@scale]; the first is primary")
	replayCmd.Flags().Int("title-bar-height", 0, "Title bar height the simulated window measures (0 = cannot measure)")
	replayCmd.Flags().Duration("coalesce", 0, "Move/resize coalescing window (default from config)")
	replayCmd.Flags().String("snapshot", "", "Write a PNG of the final geometry to this path")
	replayCmd.Flags().Int("snapshot-width", render.DefaultWidth, "Snapshot width in pixels")
	replayCmd.Flags().Bool("pretty", false, "Pretty-print output (no-op for YAML)")
}

// replayOutput is the printed result of a replay.
type replayOutput struct {
	Session       journal.SessionInfo `yaml:"session"       json:"session"`
	Commands      []string            `yaml:"commands"      json:"commands"`
	Notifications []string            `yaml:"notifications" json:"notifications"`
	Final         overlay.Snapshot    `yaml:"final"         json:"final"`
	Window        headless.State      `yaml:"window"        json:"window"`
	Skipped       int                 `yaml:"skipped"       json:"skipped"`
	Snapshot      string              `yaml:"snapshot,omitempty" json:"snapshot,omitempty"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	displaySpecs, _ := cmd.Flags().GetStringArray("display")
	titleBar, _ := cmd.Flags().GetInt("title-bar-height")
	coalesce, _ := cmd.Flags().GetDuration("coalesce")
	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	snapshotWidth, _ := cmd.Flags().GetInt("snapshot-width")

	displays, err := parseDisplays(displaySpecs)
	if err != nil {
		return err
	}
	if coalesce <= 0 {
		coalesce = appConfig.Overlay.CoalesceInterval
	}

	ctx := cmd.Context()
	store, err := openJournal(ctx, appConfig)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	info, err := resolveSession(ctx, store, id)
	if err != nil {
		return err
	}

	opts := journal.ReplayOptions{
		Displays:         displays,
		TitleBarHeight:   titleBar,
		CoalesceInterval: coalesce,
		Logger:           logger,
	}
	policy, overridden, err := replayPolicy(cmd, info)
	if err != nil {
		return err
	}
	if overridden {
		opts.Policy = &policy
	}

	res, err := journal.Replay(ctx, store, info.ID, opts)
	if err != nil {
		return err
	}

	out := replayOutput{
		Session:       res.Session,
		Commands:      make([]string, 0, len(res.Commands)),
		Notifications: res.Notifications,
		Final:         res.Final,
		Window:        res.Window,
		Skipped:       res.Skipped,
	}
	for _, c := range res.Commands {
		out.Commands = append(out.Commands, c.String())
	}

	if snapshotPath != "" {
		if err := writeSnapshot(snapshotPath, snapshotWidth, res); err != nil {
			return err
		}
		out.Snapshot = snapshotPath
	}
	return output.Print(out)
}

// replayPolicy applies the policy flags to the journaled policy.
func replayPolicy(cmd *cobra.Command, info journal.SessionInfo) (policy platform.Policy, overridden bool, err error) {
	rec := info.Policy
	for flag, field := range map[string]*string{
		"blur-policy": &rec.Blur,
		"fullscreen":  &rec.Fullscreen,
		"coords":      &rec.Coords,
	} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*field = v
			overridden = true
		}
	}
	if !overridden {
		return platform.Policy{}, false, nil
	}
	policy, err = rec.Policy()
	if err != nil {
		return platform.Policy{}, false, err
	}
	return policy, true, nil
}

func writeSnapshot(path string, width int, res *journal.ReplayResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	scene := render.Scene{
		Displays: res.Displays,
		Target:   res.Final.Target.Bounds,
		Overlay:  res.Window.Bounds,
		Visible:  res.Window.Visible,
		Width:    width,
	}
	if err := render.WritePNG(f, scene); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return f.Close()
}

// parseDisplays parses --display values of the form x,y,w,h[@scale].
func parseDisplays(specs []string) ([]model.Display, error) {
	var out []model.Display
	for i, spec := range specs {
		rectPart, scalePart, hasScale := strings.Cut(spec, "@")
		r, err := model.ParseRect(rectPart)
		if err != nil {
			return nil, fmt.Errorf("--display %q: %w", spec, err)
		}
		scale := 1.0
		if hasScale {
			scale, err = strconv.ParseFloat(scalePart, 64)
			if err != nil || scale <= 0 {
				return nil, fmt.Errorf("--display %q: invalid scale", spec)
			}
		}
		out = append(out, model.UniformDisplay(i+1, r, scale))
	}
	return out, nil
}
