// Package config loads process configuration from the environment:
// documented defaults, fail-fast on malformed values, with an optional
// Vault KV-v2 overlay layered on top of plain env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/platform/errs"
)

// Source resolves a named configuration value, checking an optional Vault
// overlay before falling back to the process environment. It is the single
// choke point every Source accessor method goes through.
type Source struct {
	vault *SecretManager
	// vaultData caches the KV-v2 payload fetched once at startup.
	vaultData map[string]interface{}
}

// NewSource builds a Source backed by plain environment variables only.
func NewSource() *Source {
	return &Source{}
}

// NewSourceWithVault builds a Source that prefers secrets fetched from
// vault's KV-v2 path over environment variables with exactly the same key
// name.
func NewSourceWithVault(vault *SecretManager, secretPath string) (*Source, error) {
	data, err := vault.GetKV2(secretPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading vault secrets at %q: %v", errs.ErrConfig, secretPath, err)
	}
	return &Source{vault: vault, vaultData: data}, nil
}

// Bootstrap is the config entry point every cmd/main.go calls: when
// VAULT_ADDR is set it builds a Vault-backed Source (VAULT_TOKEN and
// VAULT_SECRET_PATH, the latter defaulting to "secret/data/supplyrisk",
// configure the overlay), so REDIS_URL and gateway bearer tokens can be
// read from a KV-v2 path instead of plain env vars; otherwise, or if Vault
// setup fails, it falls back to plain environment variables so a failed
// secret fetch never blocks startup outright.
func Bootstrap(log *zap.Logger) *Source {
	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return NewSource()
	}

	secretPath := os.Getenv("VAULT_SECRET_PATH")
	if secretPath == "" {
		secretPath = "secret/data/supplyrisk"
	}

	vault, err := NewSecretManager(addr, os.Getenv("VAULT_TOKEN"))
	if err != nil {
		log.Error("failed to initialize vault secret manager, falling back to environment variables", zap.Error(err))
		return NewSource()
	}

	src, err := NewSourceWithVault(vault, secretPath)
	if err != nil {
		log.Error("failed to load vault secrets, falling back to environment variables", zap.Error(err))
		return NewSource()
	}

	log.Info("configuration loaded via vault KV-v2 overlay", zap.String("secret_path", secretPath))
	return src
}

func (s *Source) lookup(key string) (string, bool) {
	if s.vaultData != nil {
		if v, ok := s.vaultData[key]; ok {
			if str, ok := v.(string); ok && str != "" {
				return str, true
			}
		}
	}
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, true
	}
	return "", false
}

// String returns key's value or def if unset.
func (s *Source) String(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

// Required returns key's value, failing with ErrConfig if unset.
func (s *Source) Required(key string) (string, error) {
	if v, ok := s.lookup(key); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: required environment variable %s is not set", errs.ErrConfig, key)
}

// Int returns key's value parsed as an int, or def if unset. A present but
// unparseable value fails fast at startup, so this returns an error rather
// than silently using def.
func (s *Source) Int(key string, def int) (int, error) {
	v, ok := s.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a valid integer", errs.ErrConfig, key, v)
	}
	return n, nil
}

// Int64 is Int for int64-valued settings (stream max-length, TTL seconds).
func (s *Source) Int64(key string, def int64) (int64, error) {
	v, ok := s.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a valid integer", errs.ErrConfig, key, v)
	}
	return n, nil
}

// Bool returns key's value parsed as a bool, or def if unset.
func (s *Source) Bool(key string, def bool) (bool, error) {
	v, ok := s.lookup(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a valid boolean", errs.ErrConfig, key, v)
	}
	return b, nil
}
