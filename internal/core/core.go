package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of named components.
type App struct {
	components []component
	logger     *slog.Logger
}

type component struct {
	name    string
	value   any
	started bool
}

// NewApp creates an empty App.
func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{logger: logger.With("component", "core")}
}

// Add registers a component. Components implementing Starter are started
// in registration order; Stoppers stop in reverse.
func (a *App) Add(name string, c any) {
	a.components = append(a.components, component{name: name, value: c})
}

// Start starts all components that implement Starter, in order. If any
// Start fails, already-started components are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.components {
		c := &a.components[i]
		s, ok := c.value.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting component", "name", c.name)
		if err := s.Start(); err != nil {
			a.logger.Error("component start failed", "name", c.name, "error", err)
			a.stopComponents(i - 1)
			return fmt.Errorf("starting %s: %w", c.name, err)
		}
		c.started = true
	}
	a.logger.Info("all components started")
	return nil
}

// Stop stops all started components in reverse order with a timeout.
func (a *App) Stop() {
	a.stopComponents(len(a.components) - 1)
}

func (a *App) stopComponents(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		c := &a.components[i]
		if !c.started {
			continue
		}
		if s, ok := c.value.(Stopper); ok {
			a.logger.Info("stopping component", "name", c.name)
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("component stop error", "name", c.name, "error", err)
			}
		}
		c.started = false
	}
}

// Run starts all components and blocks until a shutdown signal is received.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	a.logger.Info("shutdown signal received", "signal", sig.String())

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
