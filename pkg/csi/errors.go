package csi

import "errors"

// ErrInvalidConfig indicates a configuration value outside the allowed
// bounds. It is returned before any state is mutated.
var ErrInvalidConfig = errors.New("csi: invalid config")

// ErrClosed indicates an operation on a driver backend that has been closed.
var ErrClosed = errors.New("csi: driver closed")
