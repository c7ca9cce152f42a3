// Package config loads the service configuration from defaults, YAML files and
// APIDOC_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override configuration keys.
// APIDOC_DOCS_OAUTH_TOKENURL sets docs.oauth.tokenurl.
const EnvPrefix = "APIDOC_"

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.<app.env>.yaml
// 3. config.yaml
// 4. Default values (lowest priority)
//
// Missing YAML files are skipped.
func Load() (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := loadOptionalFile(k, "config.yaml"); err != nil {
			return err
		}
		if env := k.String("app.env"); env != "" {
			return loadOptionalFile(k, fmt.Sprintf("config.%s.yaml", env))
		}
		return nil
	})
}

// LoadFile loads defaults, the given YAML file and environment overrides. The file must exist.
func LoadFile(path string) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	})
}

// LoadFromBytes loads defaults and a YAML document without consulting the environment.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}
	return finish(k)
}

func load(files func(*koanf.Koanf) error) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := files(k); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey converts APIDOC_DOCS_INFO_TITLE to docs.info.title.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	err := k.Load(file.Provider(path), yaml.Parser())
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "apidoc-service",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,
		"app.debug":   false,

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.timeout.read":     "15s",
		"server.timeout.write":    "30s",
		"server.timeout.idle":     "60s",
		"server.timeout.shutdown": "10s",
		"server.path.base":        "",
		"server.path.health":      "/health",
		"server.path.ready":       "/ready",

		"log.level":  "info",
		"log.pretty": false,

		"docs.enabled":            true,
		"docs.path":               "/v3/api-docs",
		"docs.indexredirect":      false,
		"docs.referername":        "Referer",
		"docs.info.title":         "API documentation",
		"docs.info.version":       "v1.0.0",
		"docs.oauth.granttype":    GrantPassword,
		"docs.oauth.scopes":       []string{"all"},
		"docs.expansion.maxdepth": 32,

		"gateway.enabled":         false,
		"gateway.timeout":         "10s",
		"gateway.retries":         2,
		"gateway.ratelimit.rate":  0,
		"gateway.ratelimit.burst": 0,

		"observability.enabled":          false,
		"observability.trace.enabled":    false,
		"observability.trace.protocol":   ProtocolHTTP,
		"observability.trace.samplerate": 1.0,
		"observability.metrics.enabled":  false,
		"observability.metrics.interval": "60s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Custom unmarshals a module specific section, e.g. "users", into out.
func (c *Config) Custom(path string, out any) error {
	if c.k == nil {
		return ErrNotConfigured
	}
	if !c.k.Exists(path) {
		return NewNotConfiguredError(path, envName(path), path)
	}
	if err := c.k.Unmarshal(path, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

func envName(path string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}
