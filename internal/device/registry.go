package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Auto selects the highest priority backend that opens successfully.
const Auto = "auto"

// Opener creates and activates a device context.
type Opener func() (Device, error)

type backend struct {
	name     string
	priority int
	open     Opener
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]backend)
)

// Register makes a backend available under name. Backends with a higher
// priority are preferred by Choose(Auto). Registering a name twice panics.
func Register(name string, priority int, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if open == nil {
		panic("device: Register opener is nil")
	}
	if _, dup := registry[name]; dup {
		panic("device: Register called twice for backend " + name)
	}
	registry[name] = backend{name: name, priority: priority, open: open}
}

// Backends returns the registered backend names, most preferred first.
func Backends() []string {
	list := sorted()
	names := make([]string, len(list))
	for i, b := range list {
		names[i] = b.name
	}
	return names
}

// Open activates the named backend.
func Open(name string) (Device, error) {
	registryMu.RLock()
	b, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	dev, err := b.open()
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", name, err)
	}
	return dev, nil
}

// Requirements describe the launches a chosen device must accept.
type Requirements struct {
	GroupSize int
	N         int
}

// Choose opens the preferred backend and checks it against req. With Auto it
// walks the registered backends by priority and returns the first one that
// opens and fits.
func Choose(preferred string, req Requirements) (Device, error) {
	if preferred != "" && preferred != Auto {
		dev, err := Open(preferred)
		if err != nil {
			return nil, err
		}
		if err := fits(dev, req); err != nil {
			dev.Release()
			return nil, fmt.Errorf("device: %s: %w", preferred, err)
		}
		return dev, nil
	}

	var errs []error
	for _, b := range sorted() {
		dev, err := b.open()
		if err == nil {
			if err = fits(dev, req); err != nil {
				dev.Release()
			}
		}
		if err != nil {
			slog.Debug("device backend unavailable", "backend", b.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
			continue
		}
		return dev, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backends registered", ErrUnavailable)
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func fits(dev Device, req Requirements) error {
	return dev.Limits().Check(req.GroupSize, req.N)
}

func sorted() []backend {
	registryMu.RLock()
	list := make([]backend, 0, len(registry))
	for _, b := range registry {
		list = append(list, b)
	}
	registryMu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].name < list[j].name
	})
	return list
}
