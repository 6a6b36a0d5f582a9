package inels

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDevice_StatusUnknownBeforeFirstMessage(t *testing.T) {
	d, _ := newStartedDevice(t, TypeDimmer, Options{})

	if _, err := d.Status(); !errors.Is(err, ErrStatusUnknown) {
		t.Errorf("Status() error = %v, want ErrStatusUnknown", err)
	}
}

func TestDevice_StatusNotSupported(t *testing.T) {
	d, _ := newStartedDevice(t, TypeBlinds, Options{})

	if _, err := d.Status(); !errors.Is(err, ErrStatusNotSupported) {
		t.Errorf("Status() error = %v, want ErrStatusNotSupported", err)
	}
	if d.AwaitStatusChange(context.Background(), 10*time.Millisecond) {
		t.Error("AwaitStatusChange() = true for a type without status")
	}
}

func TestDimmer_StatusScenario(t *testing.T) {
	d, bus := newStartedDevice(t, TypeDimmer, Options{})

	if d.Topics().Status != "inels/status/AA:BB:CC:DD:EE:FF/05/001122" {
		t.Fatalf("status topic = %q", d.Topics().Status)
	}

	deliverStatus(t, d, bus, []byte{0xC1, 0x7F})

	st, err := d.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(st) != 1 || st[StatusBrightness] != 30 {
		t.Errorf("Status() = %v, want {%s: 30}", st, StatusBrightness)
	}

	dim := &Dimmer{Device: d}
	if pct, err := dim.Brightness(); err != nil || pct != 30 {
		t.Errorf("Brightness() = %d, %v; want 30, nil", pct, err)
	}
}

func TestDevice_StatusIsCopy(t *testing.T) {
	d, bus := newStartedDevice(t, TypeSwitch, Options{})
	deliverStatus(t, d, bus, []byte{0x01, 0x01})

	st, _ := d.Status()
	st[StatusSwitchedOn] = false

	again, _ := d.Status()
	if again[StatusSwitchedOn] != true {
		t.Error("mutating a returned status changed tracked state")
	}
}

func TestDevice_StatusOrdering(t *testing.T) {
	d, bus := newStartedDevice(t, TypeDimmer, Options{BufferSize: 2})

	const n = 100
	for i := range n {
		raw, err := EncodeBrightness((i % 11) * 10)
		if err != nil {
			t.Fatalf("EncodeBrightness() error = %v", err)
		}
		bus.deliver(d.Topics().Status, raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.AwaitStatusVersion(ctx, n-1); err != nil {
		t.Fatalf("AwaitStatusVersion() error = %v", err)
	}

	st, _ := d.Status()
	if want := ((n - 1) % 11) * 10; st[StatusBrightness] != want {
		t.Errorf("final brightness = %v, want %d", st[StatusBrightness], want)
	}
	if got := d.Stats().StatusUpdates; got != n {
		t.Errorf("StatusUpdates = %d, want %d", got, n)
	}
}

func TestDevice_DecodeErrorKeepsPreviousStatus(t *testing.T) {
	tel := &mockTelemetry{}
	d, bus := newStartedDevice(t, TypeDimmer, Options{Telemetry: tel})

	deliverStatus(t, d, bus, []byte{0xC1, 0x7F})
	bus.deliver(d.Topics().Status, []byte{0x01, 0x02, 0x03})

	eventually(t, func() bool { return d.Stats().DecodeErrors == 1 })

	st, err := d.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st[StatusBrightness] != 30 {
		t.Errorf("brightness = %v, want previous value 30", st[StatusBrightness])
	}
	if d.StatusVersion() != 1 {
		t.Errorf("StatusVersion() = %d, want 1", d.StatusVersion())
	}
	if tel.count(eventDecodeError) != 1 {
		t.Errorf("decode_error events = %d, want 1", tel.count(eventDecodeError))
	}

	// The listener keeps running after a bad payload.
	deliverStatus(t, d, bus, []byte{0x8A, 0xCF})
	st, _ = d.Status()
	if st[StatusBrightness] != 100 {
		t.Errorf("brightness = %v, want 100", st[StatusBrightness])
	}
}

func TestDevice_AwaitStatusChange(t *testing.T) {
	d, bus := newStartedDevice(t, TypeSwitch, Options{})

	result := make(chan bool, 1)
	go func() {
		result <- d.AwaitStatusChange(context.Background(), time.Second)
	}()

	// Give the waiter time to capture the current version.
	time.Sleep(20 * time.Millisecond)
	bus.deliver(d.Topics().Status, []byte{0x01, 0x01})

	select {
	case got := <-result:
		if !got {
			t.Fatal("AwaitStatusChange() = false, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitStatusChange() did not return")
	}

	// No new message: an immediate second wait times out.
	start := time.Now()
	if d.AwaitStatusChange(context.Background(), 30*time.Millisecond) {
		t.Error("second AwaitStatusChange() = true without a new message")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("second AwaitStatusChange() returned after %v, before the timeout", elapsed)
	}
}

func TestDevice_AwaitStatusChange_ContextCancelled(t *testing.T) {
	d, _ := newStartedDevice(t, TypeSwitch, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if d.AwaitStatusChange(ctx, time.Second) {
		t.Error("AwaitStatusChange() = true with a cancelled context")
	}
}

func TestDevice_AwaitStatusVersion_ManyWaiters(t *testing.T) {
	d, bus := newStartedDevice(t, TypeSwitch, Options{})

	const waiters = 8
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := d.AwaitStatusVersion(ctx, 0)
			if err == nil && v < 1 {
				err = errors.New("version did not advance")
			}
			errs <- err
		}()
	}

	bus.deliver(d.Topics().Status, []byte{0x02, 0x00})
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("waiter error = %v", err)
		}
	}
}
