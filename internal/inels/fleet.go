package inels

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrDuplicateDevice is returned by Fleet.Add for an address already present.
var ErrDuplicateDevice = errors.New("inels: duplicate device")

// Fleet owns the lifecycle of a set of devices sharing one bus.
type Fleet struct {
	mu      sync.RWMutex
	devices map[string]*Device
	byName  map[string]*Device
	logger  Logger
}

// NewFleet creates an empty fleet.
func NewFleet(logger Logger) *Fleet {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Fleet{
		devices: make(map[string]*Device),
		byName:  make(map[string]*Device),
		logger:  logger,
	}
}

// Add registers d. Keys and names must be unique within the fleet.
func (f *Fleet) Add(d *Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.devices[d.Key()]; ok {
		return fmt.Errorf("%w: address %s", ErrDuplicateDevice, d.Key())
	}
	if _, ok := f.byName[d.Name()]; ok {
		return fmt.Errorf("%w: name %q", ErrDuplicateDevice, d.Name())
	}
	f.devices[d.Key()] = d
	f.byName[d.Name()] = d
	return nil
}

// Get looks a device up by address key or by name.
func (f *Fleet) Get(ref string) (*Device, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if d, ok := f.devices[strings.ToUpper(ref)]; ok {
		return d, true
	}
	d, ok := f.byName[ref]
	return d, ok
}

// List returns every device ordered by address key.
func (f *Fleet) List() []*Device {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *Device) int { return strings.Compare(a.Key(), b.Key()) })
	return out
}

// Len returns the number of devices.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.devices)
}

// StartAll starts every device that is not already running. On failure the
// devices started by this call are stopped again.
func (f *Fleet) StartAll(ctx context.Context) error {
	var started []*Device
	for _, d := range f.List() {
		err := d.Start(ctx)
		if errors.Is(err, ErrAlreadyStarted) {
			continue
		}
		if err != nil {
			for _, s := range started {
				_ = s.Stop(ctx) //nolint:errcheck // rollback, original error wins
			}
			return fmt.Errorf("starting %s: %w", d.Name(), err)
		}
		started = append(started, d)
	}

	f.logger.Info("fleet started", "devices", len(started))
	return nil
}

// StopAll stops every running device and returns the joined errors.
func (f *Fleet) StopAll(ctx context.Context) error {
	var errs []error
	stopped := 0
	for _, d := range f.List() {
		err := d.Stop(ctx)
		if errors.Is(err, ErrNotStarted) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", d.Name(), err))
		}
		stopped++
	}

	f.logger.Info("fleet stopped", "devices", stopped)
	return errors.Join(errs...)
}

// Stats sums the protocol counters of every device.
func (f *Fleet) Stats() Stats {
	var total Stats
	for _, d := range f.List() {
		total.add(d.Stats())
	}
	return total
}
