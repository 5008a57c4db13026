package model

import "errors"

// Sentinel kinds shared by the simulators.
var (
	// ErrUnknownEntity reports a reference to an id outside the fixed set.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrInvalidArgument reports a constructor or option misuse.
	ErrInvalidArgument = errors.New("invalid argument")
)
