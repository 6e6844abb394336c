package wa

import "errors"

// Sentinel errors for client operations.
var (
	// ErrNotConnected indicates the bridge connection is not established.
	ErrNotConnected = errors.New("wa: not connected")

	// ErrNotFound indicates the requested contact, group, or message is
	// unknown to the client.
	ErrNotFound = errors.New("wa: not found")

	// ErrRequestTimeout indicates the bridge did not answer a request in
	// time.
	ErrRequestTimeout = errors.New("wa: request timed out")

	// ErrNoHandlers indicates Start was called before SetHandlers.
	ErrNoHandlers = errors.New("wa: handlers not set")
)
