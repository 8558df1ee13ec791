package remote

import (
	"errors"
	"fmt"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
)

var (
	ErrInvalidPort          = errors.New("port must be between 1 and 65535")
	ErrIncompatibleListener = errors.New("port already bound by an incompatible listener")
	ErrListen               = errors.New("could not listen")
	ErrAlreadyExported      = errors.New("object already exported")
	ErrNotExported          = errors.New("object not exported")
	ErrNoIdentity           = errors.New("object type has no identity")
	ErrAlreadyBound         = errors.New("name already bound")
	ErrNotBound             = errors.New("name not bound")
	ErrNoSuchObject         = errors.New("no such object")
	ErrClosed               = errors.New("runtime closed")
)

// Wire error codes.
const (
	codeRemote           = "remote_error"
	codeUnknownMethod    = "unknown_method"
	codeInvalidArguments = "invalid_arguments"
	codeNoSuchObject     = "no_such_object"
	codeNotExported      = "not_exported"
	codeLoginFailed      = "login_failed"
)

// RemoteError is an error returned by the far side of an invocation.
type RemoteError struct {
	Method  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call %s failed (%s): %s", e.Method, e.Code, e.Message)
}

// Unwrap maps well-known codes back to their sentinels so callers can use
// errors.Is on either side of the wire.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case codeUnknownMethod:
		return interfaces.ErrUnknownMethod
	case codeInvalidArguments:
		return interfaces.ErrInvalidArguments
	case codeNoSuchObject:
		return ErrNoSuchObject
	case codeNotExported:
		return ErrNotExported
	case codeLoginFailed:
		return interfaces.ErrLoginFailed
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrUnknownMethod):
		return codeUnknownMethod
	case errors.Is(err, interfaces.ErrInvalidArguments):
		return codeInvalidArguments
	case errors.Is(err, ErrNoSuchObject):
		return codeNoSuchObject
	case errors.Is(err, ErrNotExported):
		return codeNotExported
	case errors.Is(err, interfaces.ErrLoginFailed):
		return codeLoginFailed
	}
	return codeRemote
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return nil
}
