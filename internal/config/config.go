package config

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Matching  MatchingConfig  `toml:"matching"`
	Targeting TargetingConfig `toml:"targeting"`
	Logging   LoggingConfig   `toml:"logging"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// MatchingConfig contains scheduling knobs for the matching pipeline
type MatchingConfig struct {
	HorizonDays   int `toml:"horizon_days"`   // how far ahead the planner spreads matches
	LeadDays      int `toml:"lead_days"`      // buffer kept before an award's due date
	MaxCandidates int `toml:"max_candidates"` // cap on candidates handed to the planner
}

// TargetingConfig contains targeting cadence settings
type TargetingConfig struct {
	SettleMinutes int `toml:"settle_minutes"` // wait after renewal before the scheduled job targets
	LeadDays      int `toml:"lead_days"`      // minimum days before due date to still target
	SubmitByDays  int `toml:"submit_by_days"` // submission deadline granted to a new target
}

// Settle returns the post-renewal settle window as a duration
func (t TargetingConfig) Settle() time.Duration {
	return time.Duration(t.SettleMinutes) * time.Minute
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "~/.local/share/bap/bap.db",
		},
		Matching: MatchingConfig{
			HorizonDays:   30,
			LeadDays:      1,
			MaxCandidates: 500,
		},
		Targeting: TargetingConfig{
			SettleMinutes: 33,
			LeadDays:      11,
			SubmitByDays:  9,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
