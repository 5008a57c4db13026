// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Durations are expressed in milliseconds with an _ms suffix.
// - Nested sections map to env keys with a double underscore,
//   e.g. ARENA_FOLLOWERS__GAIN_PROBABILITY.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// AllowedOrigins feeds the CORS middleware. Empty means "*".
	AllowedOrigins []string `koanf:"allowed_origins"`

	// Seed makes every simulator deterministic when non-zero.
	Seed int64 `koanf:"seed"`

	Followers   FollowersConfig   `koanf:"followers"`
	Chart       ChartConfig       `koanf:"chart"`
	Leaderboard LeaderboardConfig `koanf:"leaderboard"`
	Feed        FeedConfig        `koanf:"feed"`
	Blip        BlipConfig        `koanf:"blip"`
	Stream      StreamConfig      `koanf:"stream"`
	Movers      MoversConfig      `koanf:"movers"`
}

// AgentConfig seeds one tracked entity.
type AgentConfig struct {
	ID        string `koanf:"id" validate:"required"`
	Name      string `koanf:"name" validate:"required"`
	Label     string `koanf:"label"`
	Followers int    `koanf:"followers"`
}

// FollowersConfig drives the follower metrics feed.
type FollowersConfig struct {
	TickIntervalMS  int           `koanf:"tick_interval_ms" validate:"gt=0"`
	GainProbability float64       `koanf:"gain_probability" validate:"gte=0,lte=1"`
	Agents          []AgentConfig `koanf:"agents" validate:"required,min=1,unique=ID,dive"`
}

// SeriesConfig seeds one chart series.
type SeriesConfig struct {
	Name   string `koanf:"name" validate:"required"`
	Base   int    `koanf:"base"`
	Jitter int    `koanf:"jitter" validate:"gte=0"`
}

// ChartConfig drives the time-series window.
type ChartConfig struct {
	TickIntervalMS int            `koanf:"tick_interval_ms" validate:"gt=0"`
	WindowSize     int            `koanf:"window_size" validate:"gt=0"`
	SpacingMS      int            `koanf:"spacing_ms" validate:"gt=0"`
	Series         []SeriesConfig `koanf:"series" validate:"required,min=1,unique=Name,dive"`
}

// RankConfig seeds one leaderboard row.
type RankConfig struct {
	Name      string `koanf:"name" validate:"required"`
	Primary   int    `koanf:"primary"`
	Secondary int    `koanf:"secondary"`
}

// LeaderboardConfig drives the ranked list.
type LeaderboardConfig struct {
	TickIntervalMS int          `koanf:"tick_interval_ms" validate:"gt=0"`
	MaxLimit       int          `koanf:"max_limit" validate:"gt=0"`
	Entries        []RankConfig `koanf:"entries" validate:"required,min=1,unique=Name,dive"`
}

// FeedConfig drives the append-only log.
type FeedConfig struct {
	TickIntervalMS int `koanf:"tick_interval_ms" validate:"gt=0"`
	MaxLogEntries  int `koanf:"max_log_entries" validate:"gt=0"`
	SeedSpacingMS  int `koanf:"seed_spacing_ms" validate:"gt=0"`
	// PoolFile optionally replaces the built-in post templates with a YAML file.
	PoolFile string `koanf:"pool_file"`
}

// BlipConfig controls transient event display.
type BlipConfig struct {
	EventDisplayMS int    `koanf:"event_display_ms" validate:"gt=0"`
	Choreography   string `koanf:"choreography" validate:"required"`
}

// StreamConfig controls change notification delivery.
type StreamConfig struct {
	BufferSize  int `koanf:"buffer_size" validate:"gt=0"`
	HeartbeatMS int `koanf:"heartbeat_ms" validate:"gt=0"`
}

// MoversConfig controls the trending movers sketch.
type MoversConfig struct {
	K           int `koanf:"k" validate:"gt=0"`
	WindowTicks int `koanf:"window_ticks" validate:"gt=0"`
}

// New creates a Config populated with the dashboard defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Followers: FollowersConfig{
			TickIntervalMS:  2000,
			GainProbability: 0.4,
			Agents: []AgentConfig{
				{ID: "1", Name: "CryptoGPT", Label: "GPT-4o", Followers: 1234},
				{ID: "2", Name: "GeminiCrypto", Label: "Gemini 2.5 Pro", Followers: 987},
				{ID: "3", Name: "QwenCoin", Label: "Qwen 2.5", Followers: 1567},
				{ID: "4", Name: "GrokCrypto", Label: "Grok 4", Followers: 845},
			},
		},
		Chart: ChartConfig{
			TickIntervalMS: 5000,
			WindowSize:     21,
			SpacingMS:      60_000,
			Series: []SeriesConfig{
				{Name: "CryptoGPT", Base: 1200, Jitter: 50},
				{Name: "GeminiCrypto", Base: 950, Jitter: 50},
				{Name: "QwenCoin", Base: 1500, Jitter: 80},
				{Name: "GrokCrypto", Base: 820, Jitter: 40},
			},
		},
		Leaderboard: LeaderboardConfig{
			TickIntervalMS: 3000,
			MaxLimit:       100,
			Entries: []RankConfig{
				{Name: "QwenCoin", Primary: 1567, Secondary: 127},
				{Name: "CryptoGPT", Primary: 1234, Secondary: 89},
				{Name: "GeminiCrypto", Primary: 987, Secondary: 56},
				{Name: "GrokCrypto", Primary: 845, Secondary: 34},
			},
		},
		Feed: FeedConfig{
			TickIntervalMS: 8000,
			MaxLogEntries:  10,
			SeedSpacingMS:  300_000,
		},
		Blip: BlipConfig{
			EventDisplayMS: 1500,
			Choreography:   "graceful",
		},
		Stream: StreamConfig{
			BufferSize:  64,
			HeartbeatMS: 15_000,
		},
		Movers: MoversConfig{
			K:           4,
			WindowTicks: 30,
		},
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// TickInterval returns the configured period as a duration.
func (c FollowersConfig) TickInterval() time.Duration { return ms(c.TickIntervalMS) }

// TickInterval returns the configured period as a duration.
func (c ChartConfig) TickInterval() time.Duration { return ms(c.TickIntervalMS) }

// Spacing returns the distance between seeded samples.
func (c ChartConfig) Spacing() time.Duration { return ms(c.SpacingMS) }

// TickInterval returns the configured period as a duration.
func (c LeaderboardConfig) TickInterval() time.Duration { return ms(c.TickIntervalMS) }

// TickInterval returns the configured period as a duration.
func (c FeedConfig) TickInterval() time.Duration { return ms(c.TickIntervalMS) }

// SeedSpacing returns the distance between seeded entries.
func (c FeedConfig) SeedSpacing() time.Duration { return ms(c.SeedSpacingMS) }

// EventDisplay returns how long a transient event stays active.
func (c BlipConfig) EventDisplay() time.Duration { return ms(c.EventDisplayMS) }

// Heartbeat returns the keep-alive period for push streams.
func (c StreamConfig) Heartbeat() time.Duration { return ms(c.HeartbeatMS) }
