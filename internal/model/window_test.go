package model

import "testing"

func TestParseRect_Valid(t *testing.T) {
	r, err := ParseRect("10,20,300,400")
	if err != nil {
		t.Fatal(err)
	}
	if r != (Rect{X: 10, Y: 20, Width: 300, Height: 400}) {
		t.Errorf("got %+v, want {10 20 300 400}", r)
	}
}

func TestParseRect_WithSpaces(t *testing.T) {
	r, err := ParseRect("10, 20, 300, 400")
	if err != nil {
		t.Fatal(err)
	}
	if r != (Rect{X: 10, Y: 20, Width: 300, Height: 400}) {
		t.Errorf("got %+v, want {10 20 300 400}", r)
	}
}

func TestParseRect_Invalid(t *testing.T) {
	tests := []string{
		"",
		"10,20,300",
		"10,20,300,400,500",
		"a,b,c,d",
		"10,20,abc,400",
	}
	for _, s := range tests {
		if _, err := ParseRect(s); err == nil {
			t.Errorf("ParseRect(%q) should fail", s)
		}
	}
}

func TestRect_IsZero(t *testing.T) {
	tests := []struct {
		r    Rect
		want bool
	}{
		{Rect{}, true},
		{Rect{X: 5, Y: 5, Width: 0, Height: 100}, true},
		{Rect{X: 5, Y: 5, Width: 100, Height: 0}, true},
		{Rect{Width: 1, Height: 1}, false},
	}
	for _, tt := range tests {
		if got := tt.r.IsZero(); got != tt.want {
			t.Errorf("%+v.IsZero() = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestDisplay_ToDIP(t *testing.T) {
	primary := UniformDisplay(1, Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, 1.5)
	got := primary.ToDIP(Rect{X: 300, Y: 150, Width: 1200, Height: 900})
	want := Rect{X: 200, Y: 100, Width: 800, Height: 600}
	if got != want {
		t.Errorf("ToDIP = %+v, want %+v", got, want)
	}
}

func TestDisplay_ToDIP_SecondaryMonitor(t *testing.T) {
	// Secondary display to the right of a 1920px primary, at 2x.
	secondary := Display{
		ID:          2,
		Bounds:      Rect{X: 1920, Y: 0, Width: 1280, Height: 720},
		Physical:    Rect{X: 1920, Y: 0, Width: 2560, Height: 1440},
		ScaleFactor: 2,
	}
	got := secondary.ToDIP(Rect{X: 2120, Y: 100, Width: 800, Height: 400})
	want := Rect{X: 2020, Y: 50, Width: 400, Height: 200}
	if got != want {
		t.Errorf("ToDIP = %+v, want %+v", got, want)
	}
}

func TestDisplay_ToDIP_ZeroScaleIsIdentity(t *testing.T) {
	d := Display{Bounds: Rect{Width: 800, Height: 600}, Physical: Rect{Width: 800, Height: 600}}
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	if got := d.ToDIP(r); got != r {
		t.Errorf("ToDIP = %+v, want %+v", got, r)
	}
}
