package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var logLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks the structural validity of a Config. All problems are
// reported at once as a joined error.
func Validate(cfg *Config) error {
	var errs []error

	if _, ok := logLevels[cfg.Log.Level]; !ok {
		errs = append(errs, fmt.Errorf("config: invalid log level %q (debug, info, warn, error)", cfg.Log.Level))
	}

	if cfg.Database.Path == "" {
		errs = append(errs, errors.New("config: database.path is required"))
	}
	if cfg.Media.Dir == "" {
		errs = append(errs, errors.New("config: media.dir is required"))
	}

	if !strings.HasPrefix(cfg.Bridge.URL, "ws://") && !strings.HasPrefix(cfg.Bridge.URL, "wss://") {
		errs = append(errs, fmt.Errorf("config: bridge.url %q must use the ws:// or wss:// scheme", cfg.Bridge.URL))
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Gateway.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid gateway.bind address %q", cfg.Gateway.Bind))
	}

	for _, tc := range []struct {
		field string
		value string
	}{
		{"gateway.read_timeout", cfg.Gateway.ReadTimeout},
		{"gateway.write_timeout", cfg.Gateway.WriteTimeout},
		{"gateway.shutdown_timeout", cfg.Gateway.ShutdownTimeout},
	} {
		if _, err := time.ParseDuration(tc.value); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid %s %q", tc.field, tc.value))
		}
	}

	if cfg.Reconcile.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cfg.Reconcile.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid reconcile.schedule %q: %v", cfg.Reconcile.Schedule, err))
		}
	}

	return errors.Join(errs...)
}
