package model

import (
	"fmt"
	"strings"
)

// TargetSelector names the window(s) a tracker should attach to: either a single
// fixed title or an ordered set of candidate titles.
type TargetSelector struct {
	Titles []string `yaml:"titles" json:"titles"`
}

// SingleTitle selects exactly one window title.
func SingleTitle(title string) TargetSelector {
	return TargetSelector{Titles: []string{title}}
}

// AnyTitle selects whichever candidate title appears first, in order of preference.
func AnyTitle(titles ...string) TargetSelector {
	return TargetSelector{Titles: append([]string(nil), titles...)}
}

// IsMulti reports whether the selector tracks a set of candidates.
func (s TargetSelector) IsMulti() bool {
	return len(s.Titles) > 1
}

// Validate rejects empty selectors and blank titles.
func (s TargetSelector) Validate() error {
	if len(s.Titles) == 0 {
		return fmt.Errorf("target selector needs at least one title")
	}
	for i, t := range s.Titles {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("target title %d is empty", i)
		}
	}
	return nil
}

func (s TargetSelector) String() string {
	if len(s.Titles) == 1 {
		return fmt.Sprintf("%q", s.Titles[0])
	}
	quoted := make([]string, len(s.Titles))
	for i, t := range s.Titles {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// WindowHandle is the platform-specific native handle of the overlay window
// (HWND, NSView*, or XID bytes).
type WindowHandle []byte
