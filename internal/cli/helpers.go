package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/stride-app/stride/internal/daemon"
	"github.com/stride-app/stride/internal/domain"
)

// openDaemon wires the daemon for a one-shot command. Info logs are
// suppressed so command output stays readable.
func openDaemon(ctx context.Context) (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logCfg := cfg.Logging
	if logCfg.Level == "" || logCfg.Level == "info" || logCfg.Level == "debug" {
		logCfg.Level = "warn"
	}
	return daemon.NewWithConfig(ctx, cfg, daemon.NewLogger(logCfg, os.Stderr))
}

// resolveUser maps --user to a user id, accepting either an id or a name.
func resolveUser(ctx context.Context, store domain.UserStore) (string, error) {
	if userFlag == "" {
		return "", fmt.Errorf("no user given: pass --user or set STRIDE_USER")
	}
	u, err := store.GetUser(ctx, userFlag)
	if errors.Is(err, domain.ErrUserNotFound) {
		u, err = store.GetUserByName(ctx, userFlag)
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", fmt.Errorf("unknown user %q", userFlag)
		}
		return "", err
	}
	return u.ID, nil
}

func formatDate(d *domain.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
