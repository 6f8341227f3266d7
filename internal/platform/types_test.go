package platform

import "testing"

func TestParseCoordSpace(t *testing.T) {
	tests := []struct {
		input string
		want  CoordSpace
	}{
		{"logical", CoordLogical},
		{"DIP", CoordLogical},
		{"physical", CoordPhysical},
		{"Pixels", CoordPhysical},
	}
	for _, tt := range tests {
		got, err := ParseCoordSpace(tt.input)
		if err != nil {
			t.Errorf("ParseCoordSpace(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseCoordSpace(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := ParseCoordSpace("retina"); err == nil {
		t.Error("ParseCoordSpace(\"retina\") should fail")
	}
}

func TestParseFullscreenStrategy(t *testing.T) {
	if got, err := ParseFullscreenStrategy("workspace"); err != nil || got != FullscreenWorkspace {
		t.Errorf("workspace: got %v, %v", got, err)
	}
	if got, err := ParseFullscreenStrategy("Toggle"); err != nil || got != FullscreenToggle {
		t.Errorf("toggle: got %v, %v", got, err)
	}
	if _, err := ParseFullscreenStrategy("exclusive"); err == nil {
		t.Error("unknown strategy should fail")
	}
}

func TestParseBlurPolicy(t *testing.T) {
	if got, err := ParseBlurPolicy("always-hide"); err != nil || got != BlurAlwaysHide {
		t.Errorf("always-hide: got %v, %v", got, err)
	}
	if got, err := ParseBlurPolicy("respect-intent"); err != nil || got != BlurRespectIntent {
		t.Errorf("respect-intent: got %v, %v", got, err)
	}
	if _, err := ParseBlurPolicy("sometimes"); err == nil {
		t.Error("unknown policy should fail")
	}
}

func TestPolicyFor(t *testing.T) {
	win := PolicyFor("windows")
	if win.Coords != CoordPhysical || win.Fullscreen != FullscreenToggle || win.InsetTitleBar {
		t.Errorf("windows policy = %+v", win)
	}

	mac := PolicyFor("darwin")
	if mac.Fullscreen != FullscreenWorkspace || !mac.InsetTitleBar || mac.TitleBarHeight <= 0 {
		t.Errorf("darwin policy = %+v", mac)
	}

	linux := PolicyFor("linux")
	if linux.Blur != BlurAlwaysHide || linux.Coords != CoordLogical {
		t.Errorf("linux policy = %+v", linux)
	}
}

func TestLevel_String(t *testing.T) {
	if LevelScreenSaver.String() != "screen-saver" {
		t.Errorf("got %q", LevelScreenSaver.String())
	}
}
