package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rect is a window rectangle in the tracker's native coordinate space.
// A zero width or height means "no geometry yet" and is never a valid target size.
type Rect struct {
	X      int `yaml:"x"      json:"x"`
	Y      int `yaml:"y"      json:"y"`
	Width  int `yaml:"width"  json:"width"`
	Height int `yaml:"height" json:"height"`
}

// IsZero reports whether r is the "unknown geometry" sentinel.
func (r Rect) IsZero() bool {
	return r.Width == 0 || r.Height == 0
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// ParseRect parses a "x,y,w,h" string into a Rect.
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("invalid rect %q: expected x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("invalid rect %q: %w", s, err)
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Display describes one monitor. Bounds are in DIP (logical) units; Physical is
// the same area in raw device pixels.
type Display struct {
	ID          int     `yaml:"id"           json:"id"`
	Bounds      Rect    `yaml:"bounds"       json:"bounds"`
	Physical    Rect    `yaml:"physical"     json:"physical"`
	ScaleFactor float64 `yaml:"scale_factor" json:"scale_factor"`
}

// ToDIP converts a rect in physical pixels to DIP units relative to this display.
func (d Display) ToDIP(r Rect) Rect {
	scale := d.ScaleFactor
	if scale <= 0 {
		scale = 1
	}
	return Rect{
		X:      d.Bounds.X + round(float64(r.X-d.Physical.X)/scale),
		Y:      d.Bounds.Y + round(float64(r.Y-d.Physical.Y)/scale),
		Width:  round(float64(r.Width) / scale),
		Height: round(float64(r.Height) / scale),
	}
}

// UniformDisplay returns a display at the origin whose physical extent is
// bounds scaled by scale.
func UniformDisplay(id int, bounds Rect, scale float64) Display {
	if scale <= 0 {
		scale = 1
	}
	return Display{
		ID:     id,
		Bounds: bounds,
		Physical: Rect{
			X:      round(float64(bounds.X) * scale),
			Y:      round(float64(bounds.Y) * scale),
			Width:  round(float64(bounds.Width) * scale),
			Height: round(float64(bounds.Height) * scale),
		},
		ScaleFactor: scale,
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
