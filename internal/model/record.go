package model

import (
	"fmt"
	"strings"
)

// EventType is the numeric tag a tracker puts on every record.
type EventType int

const (
	EventAttach     EventType = 1
	EventFocus      EventType = 2
	EventBlur       EventType = 3
	EventDetach     EventType = 4
	EventFullscreen EventType = 5
	EventMoveResize EventType = 6
)

var eventTypeNames = map[EventType]string{
	EventAttach:     "attach",
	EventFocus:      "focus",
	EventBlur:       "blur",
	EventDetach:     "detach",
	EventFullscreen: "fullscreen",
	EventMoveResize: "moveresize",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// ParseEventType accepts either an event name or its numeric tag.
func ParseEventType(s string) (EventType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range eventTypeNames {
		if name == s || fmt.Sprint(int(t)) == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type: %q (expected attach, focus, blur, detach, fullscreen, or moveresize)", s)
}

// Record is one raw message from the tracker: a type tag plus a flat payload.
// Optional booleans are nil when the tracker did not report them.
type Record struct {
	Type         EventType `yaml:"type"                    json:"type"`
	X            int       `yaml:"x,omitempty"             json:"x,omitempty"`
	Y            int       `yaml:"y,omitempty"             json:"y,omitempty"`
	Width        int       `yaml:"width,omitempty"         json:"width,omitempty"`
	Height       int       `yaml:"height,omitempty"        json:"height,omitempty"`
	IsFullscreen *bool     `yaml:"isFullscreen,omitempty"  json:"isFullscreen,omitempty"`
	HasAccess    *bool     `yaml:"hasAccess,omitempty"     json:"hasAccess,omitempty"`
	ToOverlay    *bool     `yaml:"toOverlay,omitempty"     json:"toOverlay,omitempty"`
	MatchedTitle string    `yaml:"matchedTitle,omitempty"  json:"matchedTitle,omitempty"`
}

// Bounds returns the record's rectangle payload.
func (r Record) Bounds() Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// WithBounds returns a copy of r carrying b as its rectangle payload.
func (r Record) WithBounds(b Rect) Record {
	r.X, r.Y, r.Width, r.Height = b.X, b.Y, b.Width, b.Height
	return r
}

// Bool returns a pointer to v, for filling optional record fields.
func Bool(v bool) *bool {
	return &v
}

// Tristate is a boolean that may be unknown.
type Tristate int

const (
	Unknown Tristate = iota
	True
	False
)

// TristateOf converts an optional bool into a Tristate.
func TristateOf(p *bool) Tristate {
	switch {
	case p == nil:
		return Unknown
	case *p:
		return True
	default:
		return False
	}
}

// Known reports whether the value was reported.
func (t Tristate) Known() bool { return t != Unknown }

// Bool returns the value; Unknown reads as false.
func (t Tristate) Bool() bool { return t == True }

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalYAML renders the tristate as true/false/unknown.
func (t Tristate) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// MarshalJSON renders the tristate as true, false or null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}
