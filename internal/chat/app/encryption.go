package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/envelope"
)

const defaultPollInterval = 5 * time.Second

// newKeyProvider maps the configured key source to a provider. An empty
// source yields a nil provider and encryption stays unavailable.
func newKeyProvider(cfg EncryptionConfig) (envelope.KeyProvider, error) {
	switch cfg.KeyFrom {
	case KeyFromNone:
		return nil, nil
	case KeyFromEnv:
		return envelope.EnvProvider{Key: cfg.Key}, nil
	case KeyFromDevice:
		baud := cfg.DeviceBaud
		if baud <= 0 {
			baud = envelope.DefaultBaud
		}
		return &envelope.DeviceProvider{Port: cfg.DevicePort, Baud: baud}, nil
	}
	return nil, fmt.Errorf("unknown key source %q", cfg.KeyFrom)
}

// InitEnvelope builds the envelope and attempts the first key load. A
// missing device is not fatal since the watcher retries; a malformed key
// from the environment is.
func InitEnvelope(ctx context.Context, cfg EncryptionConfig, logger *slog.Logger) (*envelope.Envelope, error) {
	provider, err := newKeyProvider(cfg)
	if err != nil {
		return nil, err
	}

	keys, err := envelope.NewFileKeyStore(cfg.KeyDir)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}

	env := envelope.New(provider, keys, logger)
	if err := env.Load(ctx); err != nil {
		switch {
		case errors.Is(err, envelope.ErrNotConfigured):
			logger.Warn("encryption disabled, signups and updates carrying an email will be refused")
		case cfg.KeyFrom == KeyFromEnv:
			return nil, fmt.Errorf("load master key: %w", err)
		default:
			logger.Warn("master key unavailable, waiting for key device",
				"port", cfg.DevicePort, "error", err)
		}
	}
	return env, nil
}

// watchEnvelope runs the key watcher until ctx is cancelled and closes done
// when it returns.
func watchEnvelope(ctx context.Context, env *envelope.Envelope, cfg EncryptionConfig, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)

	events := env.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				logger.Info("encryption state changed", "event", ev.String())
			}
		}
	}()

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if err := env.Watch(ctx, clock.Real(), interval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("key watcher stopped", "error", err)
	}
}
