package envelope

import (
	"context"
	"encoding/base64"
	"strings"
)

// KeyProvider supplies raw master key material.
type KeyProvider interface {
	Name() string
	LoadKey(ctx context.Context) ([]byte, error)
}

// Monitor is implemented by providers whose connectivity can be lost at
// runtime. Check returns an error once the provider is gone.
type Monitor interface {
	Check(ctx context.Context) error
}

// PathWatcher is implemented by providers backed by a filesystem node whose
// removal should be noticed without waiting for the next check.
type PathWatcher interface {
	WatchPath() string
}

// EnvProvider reads a base64url encoded 32-byte key (Fernet key format)
// from configuration.
type EnvProvider struct {
	Key string
}

func (p EnvProvider) Name() string { return "env" }

func (p EnvProvider) LoadKey(context.Context) ([]byte, error) {
	if strings.TrimSpace(p.Key) == "" {
		return nil, ErrNotConfigured
	}
	return parseKey(p.Key)
}

// parseKey accepts a padded or unpadded base64url 32-byte key.
func parseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	key, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(s)
	}
	if err != nil || len(key) != 32 {
		return nil, ErrMalformedKey
	}
	return key, nil
}
