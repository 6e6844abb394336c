// Package core runs the application lifecycle: components start in
// registration order and stop in reverse on shutdown.
package core

import "context"

// Starter is implemented by components that need to start background work
// (goroutines, listeners, connections).
type Starter interface {
	Start() error
}

// Stopper is implemented by components that need to clean up resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}
