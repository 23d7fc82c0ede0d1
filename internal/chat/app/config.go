package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/gateway"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
	"github.com/joeshaw/envdecode"
)

// Key sources accepted by ENCRYPTION_KEY_FROM.
const (
	KeyFromNone   = ""
	KeyFromEnv    = "env"
	KeyFromDevice = "device"
)

type Config struct {
	Env                  string        `env:"ENV,default=dev"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	LogFormat            string        `env:"LOG_FORMAT,default=json"`
	Port                 int           `env:"PORT,default=8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD,default=10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL,default=1h"`

	DatabaseFile string `env:"CHAT_DATABASE_FILE,default=chat.db"`
	PepperFile   string `env:"CHAT_PEPPER_FILE,default=pepper"`

	Encryption EncryptionConfig
	Redis      ratelimit.RedisConfig
	Gateway    gateway.Config

	// DisabledCommands and AllowedOrigins are ';' separated.
	DisabledCommands []string `env:"GATEWAY_DISABLED_COMMANDS,default=gmsg;gvar"`
	AllowedOrigins   []string `env:"GATEWAY_ALLOWED_ORIGINS"`
}

type EncryptionConfig struct {
	// KeyFrom selects the master key provider: "env", "device" or empty
	// to run without encryption.
	KeyFrom string `env:"ENCRYPTION_KEY_FROM"`
	Key     string `env:"ENCRYPTION_KEY"`
	KeyDir  string `env:"ENCRYPTION_KEY_DIR,default=keys"`

	DevicePort   string        `env:"KEY_DEVICE_PORT,default=/dev/ttyACM0"`
	DeviceBaud   int           `env:"KEY_DEVICE_BAUD,default=9600"`
	PollInterval time.Duration `env:"KEY_DEVICE_POLL_INTERVAL,default=5s"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Gateway.Disabled = trimAll(cfg.DisabledCommands)
	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Encryption.KeyFrom {
	case KeyFromNone, KeyFromDevice:
	case KeyFromEnv:
		if c.Encryption.Key == "" {
			return errors.New("ENCRYPTION_KEY_FROM=env requires ENCRYPTION_KEY")
		}
	default:
		return fmt.Errorf("unknown ENCRYPTION_KEY_FROM %q", c.Encryption.KeyFrom)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// trimAll drops blank entries so "gmsg; ;gvar" and "" behave.
func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
