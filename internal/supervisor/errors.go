package supervisor

import "errors"

// Sentinel errors for supervisor operations.
var (
	// ErrSessionNotFound indicates no session with that name is running.
	ErrSessionNotFound = errors.New("supervisor: session not found")

	// ErrSessionNotReady indicates the session exists but is not in the
	// ready state, so it cannot send messages.
	ErrSessionNotReady = errors.New("supervisor: session not ready")

	// ErrAlreadyRunning indicates a session with that name is already
	// supervised.
	ErrAlreadyRunning = errors.New("supervisor: session already running")

	// ErrAgentNameRequired indicates provisioning was attempted without an
	// agent name.
	ErrAgentNameRequired = errors.New("supervisor: agent name required")
)
