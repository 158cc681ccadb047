package gotify

import (
	"errors"
	"net"
)

// StatusError is returned when the server answered with anything but 200.
type StatusError struct {
	Response *Response
}

func (e *StatusError) Error() string {
	return e.Response.String()
}

// TransportError wraps failures that happened before a response was read:
// DNS, refused connections, TLS handshakes and timeouts.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline being exceeded.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
