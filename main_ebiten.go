//go:build !headless

package main

// Built with -tags headless, the binary carries no window toolkit.
import _ "github.com/mj1618/overlaywin/internal/platform/ebitenhost"
