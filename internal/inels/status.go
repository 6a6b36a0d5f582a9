package inels

import (
	"context"
	"time"
)

// Status returns a copy of the most recently decoded status.
func (d *Device) Status() (Status, error) {
	if !d.codec.Capabilities().HasStatus {
		return nil, ErrStatusNotSupported
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.status == nil {
		return nil, ErrStatusUnknown
	}
	return d.status.Clone(), nil
}

// StatusVersion returns the number of status updates applied so far.
func (d *Device) StatusVersion() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// AwaitStatusVersion blocks until the status version exceeds after, or ctx
// ends. Any number of goroutines may wait at once.
//
// Returns the version observed and ctx.Err() if the wait was cut short.
func (d *Device) AwaitStatusVersion(ctx context.Context, after uint64) (uint64, error) {
	for {
		d.mu.RLock()
		v, changed := d.version, d.changed
		d.mu.RUnlock()

		if v > after {
			return v, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return v, ctx.Err()
		}
	}
}

// AwaitStatusChange reports whether a status update arrives after the call
// begins and before timeout elapses or ctx ends.
func (d *Device) AwaitStatusChange(ctx context.Context, timeout time.Duration) bool {
	if !d.codec.Capabilities().HasStatus {
		return false
	}

	since := d.StatusVersion()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := d.AwaitStatusVersion(ctx, since)
	return err == nil
}

// trackStatus decodes status messages in arrival order. A payload that
// fails to decode is logged and skipped; the previous status is kept.
func (d *Device) trackStatus(ctx context.Context, inbox <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-inbox:
			d.applyStatus(payload)
		}
	}
}

func (d *Device) applyStatus(payload []byte) {
	st, err := d.codec.DecodeStatus(payload)
	if err != nil {
		d.mu.Lock()
		d.stats.DecodeErrors++
		d.mu.Unlock()

		d.logger.Warn("dropping undecodable status",
			"device", d.name,
			"key", d.addr.Key(),
			"payload_len", len(payload),
			"error", err,
		)
		d.record(eventDecodeError)
		return
	}

	d.mu.Lock()
	d.status = st
	d.version++
	d.stats.StatusUpdates++
	close(d.changed)
	d.changed = make(chan struct{})
	d.mu.Unlock()

	d.logger.Debug("status updated", "device", d.name, "key", d.addr.Key())
}
