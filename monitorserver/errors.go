package monitorserver

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package matches one of them
// with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
)

var (
	ErrInvalidPort    = fmt.Errorf("%w: port must be between 1 and 65535", ErrConfiguration)
	ErrInvalidAddress = fmt.Errorf("%w: address is neither an IP nor a host name", ErrConfiguration)
	ErrInvalidMonitor = fmt.Errorf("%w: monitor cannot be used as a cache key", ErrConfiguration)
	ErrInvalidNode    = fmt.Errorf("%w: node does not implement its declared kind", ErrConfiguration)
	ErrNotInitialized = fmt.Errorf("%w: instance cache not initialized", ErrConfiguration)
)

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
