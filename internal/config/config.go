// Package config loads and hot-reloads the coordination core's tunables:
// router queue limits, bus/resolver timing, per-coordinator defaults, and
// the corpse-tracker expiry bound. A plain YAML-backed struct, a Load that
// falls back to documented defaults with a warning on any error rather
// than failing startup, and a separate fsnotify-based Watcher for live
// reloads.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// RouterConfig bounds internal/router's shared event queue.
type RouterConfig struct {
	MaxQueueSize        int  `yaml:"max_queue_size"`
	DropOldestOnOverflow bool `yaml:"drop_oldest_on_overflow"`
}

// BusConfig bounds internal/swarmbus's per-group queue behavior.
type BusConfig struct {
	MaxQueuePerGroup            int `yaml:"max_queue_per_group"`
	InactiveGroupThresholdSeconds int `yaml:"inactive_group_threshold_seconds"`
}

// ResolverConfig configures internal/claims's resolution window.
type ResolverConfig struct {
	ClaimWindowMs int `yaml:"claim_window_ms"`
}

// ArenaConfig configures internal/arena's sub-managers.
type ArenaConfig struct {
	SwitchThreshold              float64 `yaml:"switch_threshold"`
	MinTimeOnTargetMs            int     `yaml:"min_time_on_target_ms"`
	BurstMinBursters             int     `yaml:"burst_min_bursters"`
	BurstMaxDurationMs           int     `yaml:"burst_max_duration_ms"`
	CCOverlapWindowMs            int     `yaml:"cc_overlap_window_ms"`
	PeelDurationMs               int     `yaml:"peel_duration_ms"`
	DefensiveHealthThresholdHigh  float64 `yaml:"defensive_health_threshold_high"`
	DefensiveHealthThresholdMid   float64 `yaml:"defensive_health_threshold_mid"`
	DefensiveHealthThresholdLow   float64 `yaml:"defensive_health_threshold_low"`
}

// DungeonConfig configures internal/dungeon's trash-pull gating.
type DungeonConfig struct {
	MinManaForPull      float64 `yaml:"min_mana_for_pull"`
	MinHealthForPull    float64 `yaml:"min_health_for_pull"`
	UpdateIntervalMs    int     `yaml:"update_interval_ms"`
	ReadyCheckTimeoutMs int     `yaml:"ready_check_timeout_ms"`
}

// MythicPlusConfig holds the keystone timer settings of the m+ section.
// internal/dungeon does not read them: its MythicPlusManager uses fixed
// constants with the same default values.
type MythicPlusConfig struct {
	DeathPenaltyMs   int     `yaml:"death_penalty_ms"`
	TwoChestTimeMod   float64 `yaml:"two_chest_time_mod"`
	ThreeChestTimeMod float64 `yaml:"three_chest_time_mod"`
}

// CorpseConfig holds the corpse reap bound of the corpse section.
// internal/deathsafety does not read it: its Tracker uses a fixed
// 30-minute bound.
type CorpseConfig struct {
	ExpiryMinutes int `yaml:"expiry_minutes"`
}

// TelemetryConfig configures internal/telemetry's OTel provider.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Config is the coordination core's full set of tunables.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Router    RouterConfig    `yaml:"router"`
	Bus       BusConfig       `yaml:"bus"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Arena     ArenaConfig     `yaml:"arena"`
	Dungeon   DungeonConfig   `yaml:"dungeon"`
	MythicPlus MythicPlusConfig `yaml:"m+"`
	Corpse    CorpseConfig    `yaml:"corpse"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Router: RouterConfig{
			MaxQueueSize:         10000,
			DropOldestOnOverflow: true,
		},
		Bus: BusConfig{
			MaxQueuePerGroup:              1000,
			InactiveGroupThresholdSeconds: 300,
		},
		Resolver: ResolverConfig{
			ClaimWindowMs: 200,
		},
		Arena: ArenaConfig{
			SwitchThreshold:             1.5,
			MinTimeOnTargetMs:           3000,
			BurstMinBursters:            2,
			BurstMaxDurationMs:          10000,
			CCOverlapWindowMs:           300,
			PeelDurationMs:              5000,
			DefensiveHealthThresholdHigh: 80,
			DefensiveHealthThresholdMid:  50,
			DefensiveHealthThresholdLow:  30,
		},
		Dungeon: DungeonConfig{
			MinManaForPull:      50,
			MinHealthForPull:    70,
			UpdateIntervalMs:    500,
			ReadyCheckTimeoutMs: 30000,
		},
		MythicPlus: MythicPlusConfig{
			DeathPenaltyMs:    5000,
			TwoChestTimeMod:   0.8,
			ThreeChestTimeMod: 0.6,
		},
		Corpse: CorpseConfig{
			ExpiryMinutes: 30,
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Exporter: "stdout",
		},
	}
}

// Load reads configPath and merges it over Default(). A missing file is not
// an error — it simply means "use defaults." A present-but-unparsable file
// falls back to defaults with a warning logged through logger, mirroring
// the core's rule that configuration errors at startup never halt startup.
func Load(configPath string, logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("config read failed, using defaults", "path", configPath, "error", err)
		}
		return cfg
	}
	if len(data) == 0 {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Warn("config parse failed, using defaults", "path", configPath, "error", err)
		return Default()
	}
	normalize(&cfg)
	return cfg
}

// normalize resets the fields checked below to their defaults when a
// partial or malformed YAML document left them zero or negative; other
// fields keep their decoded values.
func normalize(cfg *Config) {
	d := Default()
	if cfg.Router.MaxQueueSize <= 0 {
		cfg.Router.MaxQueueSize = d.Router.MaxQueueSize
	}
	if cfg.Bus.MaxQueuePerGroup <= 0 {
		cfg.Bus.MaxQueuePerGroup = d.Bus.MaxQueuePerGroup
	}
	if cfg.Bus.InactiveGroupThresholdSeconds <= 0 {
		cfg.Bus.InactiveGroupThresholdSeconds = d.Bus.InactiveGroupThresholdSeconds
	}
	if cfg.Resolver.ClaimWindowMs <= 0 {
		cfg.Resolver.ClaimWindowMs = d.Resolver.ClaimWindowMs
	}
	if cfg.Arena.SwitchThreshold <= 0 {
		cfg.Arena.SwitchThreshold = d.Arena.SwitchThreshold
	}
	if cfg.Arena.MinTimeOnTargetMs <= 0 {
		cfg.Arena.MinTimeOnTargetMs = d.Arena.MinTimeOnTargetMs
	}
	if cfg.Dungeon.MinManaForPull <= 0 {
		cfg.Dungeon.MinManaForPull = d.Dungeon.MinManaForPull
	}
	if cfg.MythicPlus.DeathPenaltyMs <= 0 {
		cfg.MythicPlus.DeathPenaltyMs = d.MythicPlus.DeathPenaltyMs
	}
	if cfg.Corpse.ExpiryMinutes <= 0 {
		cfg.Corpse.ExpiryMinutes = d.Corpse.ExpiryMinutes
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.LogLevel
	}
}

// Save writes cfg to configPath as YAML, creating parent directories as
// needed.
func Save(configPath string, cfg Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(configPath, out, 0o644)
}
