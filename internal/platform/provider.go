package platform

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// HostFactory creates an overlay window on a particular GUI toolkit.
type HostFactory func(opts WindowOptions) (HostWindow, error)

// ErrUnsupported is returned when no host backend is registered under a name.
var ErrUnsupported = fmt.Errorf("overlaywin has no window backend for %s/%s", runtime.GOOS, runtime.GOARCH)

var (
	hostsMu sync.RWMutex
	hosts   = map[string]HostFactory{}
)

// RegisterHost makes a window backend available by name. Backends call this from init().
func RegisterHost(name string, factory HostFactory) {
	hostsMu.Lock()
	defer hostsMu.Unlock()
	hosts[name] = factory
}

// NewHostWindow creates an overlay window using the named backend.
func NewHostWindow(name string, opts WindowOptions) (HostWindow, error) {
	hostsMu.RLock()
	factory, ok := hosts[name]
	hostsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnsupported, name, HostNames())
	}
	return factory(opts)
}

// HostNames lists registered backends in sorted order.
func HostNames() []string {
	hostsMu.RLock()
	defer hostsMu.RUnlock()
	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
