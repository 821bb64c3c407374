package types

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by drivers when no session is held
var ErrNotConnected = errors.New("not connected to controller")

// TransportError reports that the controller could not be reached
// (DNS, TCP, TLS, timeouts). The request never produced a controller answer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports that the controller answered but rejected the
// request, including authentication failures.
type ProtocolError struct {
	Op          string
	Code        string
	Description string
}

func (e *ProtocolError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Description)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Op, e.Code, e.Description)
}

// IsTransportError returns true if err wraps a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocolError returns true if err wraps a ProtocolError
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
