package cmd

import (
	"testing"
	"time"

	"github.com/mj1618/overlaywin/internal/config"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/tracker"
	"github.com/spf13/cobra"
)

func newTargetCmd() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().String("window", "", "")
	addTargetFlags(c)
	addTrackerFlags(c, "-")
	c.Flags().Bool("journal", false, "")
	c.Flags().String("metrics-addr", "", "")
	return c
}

func TestApplyTargetFlags_Overrides(t *testing.T) {
	c := newTargetCmd()
	for flag, value := range map[string]string{
		"title":         "Notepad",
		"has-title-bar": "true",
		"blur-policy":   "always-hide",
		"fullscreen":    "workspace",
		"coords":        "physical",
		"coalesce":      "40ms",
		"window":        "headless",
		"journal":       "true",
		"metrics-addr":  ":9090",
	} {
		if err := c.Flags().Set(flag, value); err != nil {
			t.Fatalf("set %s: %v", flag, err)
		}
	}

	cfg := config.Default()
	cfg.Target.Title = "Old"
	if err := applyTargetFlags(c, cfg); err != nil {
		t.Fatalf("applyTargetFlags: %v", err)
	}

	if cfg.Target.Title != "" || len(cfg.Target.Titles) != 1 || cfg.Target.Titles[0] != "Notepad" {
		t.Errorf("titles = %q/%v, want Notepad only", cfg.Target.Title, cfg.Target.Titles)
	}
	if !cfg.Target.HasTitleBar {
		t.Error("expected has_title_bar")
	}
	if cfg.Overlay.BlurPolicy != "always-hide" || cfg.Overlay.Fullscreen != "workspace" || cfg.Overlay.Coords != "physical" {
		t.Errorf("policy overrides not applied: %+v", cfg.Overlay)
	}
	if cfg.Overlay.CoalesceInterval != 40*time.Millisecond {
		t.Errorf("coalesce = %s, want 40ms", cfg.Overlay.CoalesceInterval)
	}
	if cfg.Overlay.Window != "headless" {
		t.Errorf("window = %q, want headless", cfg.Overlay.Window)
	}
	if !cfg.Journal.Enabled {
		t.Error("expected journal enabled")
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("metrics addr = %q", cfg.Metrics.Addr)
	}
}

func TestApplyTargetFlags_KeepsConfigWhenUnset(t *testing.T) {
	c := newTargetCmd()
	cfg := config.Default()
	cfg.Target.Title = "Game"
	cfg.Target.HasTitleBar = true

	if err := applyTargetFlags(c, cfg); err != nil {
		t.Fatalf("applyTargetFlags: %v", err)
	}
	if cfg.Target.Title != "Game" || !cfg.Target.HasTitleBar {
		t.Errorf("config target changed: %+v", cfg.Target)
	}
	if cfg.Overlay.Window != "ebiten" {
		t.Errorf("window = %q, want ebiten", cfg.Overlay.Window)
	}
}

func TestApplyTargetFlags_RejectsUnknownPolicy(t *testing.T) {
	c := newTargetCmd()
	if err := c.Flags().Set("blur-policy", "sometimes"); err != nil {
		t.Fatal(err)
	}
	if err := applyTargetFlags(c, config.Default()); err == nil {
		t.Error("expected error for unknown blur policy")
	}
}

func TestApplyTargetFlags_MultiTitle(t *testing.T) {
	c := newTargetCmd()
	c.Flags().Set("title", "Game")     //nolint:errcheck
	c.Flags().Set("title", "Launcher") //nolint:errcheck

	cfg := config.Default()
	if err := applyTargetFlags(c, cfg); err != nil {
		t.Fatalf("applyTargetFlags: %v", err)
	}
	sel := cfg.Target.Selector()
	if !sel.IsMulti() || sel.Titles[0] != "Game" || sel.Titles[1] != "Launcher" {
		t.Errorf("selector = %v, want Game then Launcher", sel.Titles)
	}
}

func TestRuntimeOptionsFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Target.Title = "Game"
	cfg.Overlay.Window = "headless"
	cfg.Overlay.BlurPolicy = "always-hide"

	opts, err := runtimeOptionsFrom(cfg)
	if err != nil {
		t.Fatalf("runtimeOptionsFrom: %v", err)
	}
	if opts.Backend != "headless" {
		t.Errorf("backend = %q", opts.Backend)
	}
	if len(opts.Selector.Titles) != 1 || opts.Selector.Titles[0] != "Game" {
		t.Errorf("selector = %v", opts.Selector.Titles)
	}
	if opts.Policy.Blur.String() != "always-hide" {
		t.Errorf("blur = %s, want always-hide", opts.Policy.Blur)
	}
	if opts.Interval != cfg.Overlay.CoalesceInterval {
		t.Errorf("interval = %s", opts.Interval)
	}
}

func TestNotificationData(t *testing.T) {
	attach := tracker.Attach{Bounds: model.Rect{Width: 800, Height: 600}, HasAccess: model.False}
	data, ok := notificationData(attach).(struct {
		tracker.Attach
		Degraded bool `json:"degraded,omitempty"`
	})
	if !ok {
		t.Fatalf("attach payload has type %T", notificationData(attach))
	}
	if !data.Degraded {
		t.Error("attach without access should be degraded")
	}

	if got := notificationData(tracker.Focus{}); got != nil {
		t.Errorf("focus payload = %v, want nil", got)
	}
	if got := notificationData(tracker.Detach{}); got != nil {
		t.Errorf("detach payload = %v, want nil", got)
	}
	mr := tracker.MoveResize{Bounds: model.Rect{X: 1, Y: 2, Width: 3, Height: 4}}
	if got := notificationData(mr); got != mr {
		t.Errorf("moveresize payload = %v, want %v", got, mr)
	}
}

func TestStringParam(t *testing.T) {
	params := map[string]interface{}{"a": "x", "n": 3.0}
	if got := stringParam(params, "a", ""); got != "x" {
		t.Errorf("got %q, want x", got)
	}
	if got := stringParam(params, "n", ""); got != "3" {
		t.Errorf("got %q, want 3", got)
	}
	if got := stringParam(params, "missing", "def"); got != "def" {
		t.Errorf("got %q, want def", got)
	}
}

func TestIntParam(t *testing.T) {
	params := map[string]interface{}{"f": 12.0, "i": 7, "s": "9"}
	tests := []struct {
		key  string
		want int
	}{
		{"f", 12},
		{"i", 7},
		{"s", -1},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := intParam(params, tt.key, -1); got != tt.want {
			t.Errorf("intParam(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestOptBoolParam(t *testing.T) {
	params := map[string]interface{}{"yes": true, "no": false, "bad": "true"}
	if got := optBoolParam(params, "yes"); got == nil || !*got {
		t.Errorf("yes = %v", got)
	}
	if got := optBoolParam(params, "no"); got == nil || *got {
		t.Errorf("no = %v", got)
	}
	if got := optBoolParam(params, "bad"); got != nil {
		t.Errorf("bad = %v, want nil", *got)
	}
	if got := optBoolParam(params, "missing"); got != nil {
		t.Errorf("missing = %v, want nil", *got)
	}
}
