package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/okian/kolarena/internal/domain/blip"
)

// Environment keys read before the koanf layers are applied.
const (
	envPrefix     = "ARENA_"
	envConfigFile = "ARENA_CONFIG"
	envDotFile    = "ARENA_ENV_FILE"
	defaultDotEnv = ".env"
)

var validate = validator.New()

// listKeys hold comma separated values when set from the environment.
var listKeys = map[string]bool{
	"allowed_origins": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Lists are replaced as a whole by a higher layer, never merged per item.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file values exported into the process env (never overriding)
//  3. file (YAML) if ARENA_CONFIG is set
//  4. env (prefix ARENA_, "__" separates nested sections)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrLoadConfig, err)
	}

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ARENA_FEED__MAX_LOG_ENTRIES -> feed.max_log_entries
	envProvider := env.ProviderWithValue(envPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue maps an ARENA_ variable to its koanf key, splitting list keys.
func envValue(name, value string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, envPrefix)), "__", ".")
	if !listKeys[key] {
		return key, value
	}
	var items []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return key, items
}

// Validate checks field constraints and cross-section consistency.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, f.Namespace(), f.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Movers.K > len(c.Followers.Agents) {
		return fmt.Errorf("%w: movers.k (%d) exceeds agent count (%d)", ErrInvalidConfig, c.Movers.K, len(c.Followers.Agents))
	}
	if _, err := blip.Select(c.Blip.Choreography, c.Blip.EventDisplay()); err != nil {
		return fmt.Errorf("%w: blip: %w", ErrInvalidConfig, err)
	}
	return nil
}

// loadDotEnv exports a .env file into the process environment when present.
// Values already set in the environment win.
func loadDotEnv() error {
	path := os.Getenv(envDotFile)
	if path == "" {
		path = defaultDotEnv
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
