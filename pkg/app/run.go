// Package app wires the tracker together: configuration, storage, the
// session supervisor, the reconciliation scheduler, and the HTTP gateway.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tventura/watrack/internal/config"
	"github.com/tventura/watrack/internal/core"
	"github.com/tventura/watrack/internal/cron"
	"github.com/tventura/watrack/internal/gateway"
	"github.com/tventura/watrack/internal/media"
	"github.com/tventura/watrack/internal/metrics"
	"github.com/tventura/watrack/internal/notify"
	"github.com/tventura/watrack/internal/store"
	"github.com/tventura/watrack/internal/supervisor"
	"github.com/tventura/watrack/internal/wa"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string
}

// Run loads configuration, starts all components, and blocks until a
// shutdown signal is received.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	logger.Info("starting watrack", "version", params.Version)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ms, err := media.NewStore(cfg.Media.Dir, logger)
	if err != nil {
		return err
	}

	m := metrics.New()

	hub := notify.NewHub(cfg.Fanout.Buffer, logger)
	hub.OnDrop(m.FanoutDrops.Inc)
	defer hub.Close()

	factory := func(name string) (wa.Client, error) {
		return wa.NewBridgeClient(cfg.Bridge.URL, name, logger), nil
	}
	sup := supervisor.New(st, ms, hub, factory, m, cfg.Fanout.Buffer, logger)

	application := core.NewApp(logger)
	application.Add("supervisor", supervisorComponent{sup})

	if cfg.Reconcile.Enabled {
		scheduler := cron.NewScheduler(logger)
		if err := scheduler.RegisterJob(&cron.ChatReconcileJob{
			Ledger:       st,
			Logger:       logger,
			ScheduleExpr: cfg.Reconcile.Schedule,
		}); err != nil {
			return err
		}
		application.Add("scheduler", scheduler)
	}

	application.Add("gateway", gateway.New(cfg.Gateway, sup, st, ms, hub, m, logger))

	return application.Run()
}

// supervisorComponent adapts the Supervisor to the core lifecycle.
type supervisorComponent struct {
	sup *supervisor.Supervisor
}

func (c supervisorComponent) Start() error {
	return c.sup.StartAll(context.Background())
}

func (c supervisorComponent) Stop(ctx context.Context) error {
	return c.sup.Stop(ctx)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/watrack/watrack.yaml →
// ~/.config/watrack/watrack.yaml → ./watrack.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "watrack", "watrack.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "watrack", "watrack.yaml"))
	}

	candidates = append(candidates, "watrack.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
