package loop

import "errors"

// Sentinel kinds for runner errors.
var (
	ErrAlreadyRunning = errors.New("runner already running")
	ErrBadInterval    = errors.New("runner interval must be positive")
)
