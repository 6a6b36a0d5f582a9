package bridge

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a running bridge.
	ErrAlreadyStarted = errors.New("bridge: already started")

	// ErrNotStarted is returned by Stop on a bridge that is not running.
	ErrNotStarted = errors.New("bridge: not started")
)
