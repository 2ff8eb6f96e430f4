package main

import (
	"time"

	"github.com/ashgrove/legion/internal/arena"
	"github.com/ashgrove/legion/internal/config"
	"github.com/ashgrove/legion/internal/dungeon"
	"github.com/ashgrove/legion/internal/router"
)

// routerOptionsFrom translates the loaded RouterConfig into router.Options,
// the same "config struct holds data, Option closures apply it" split the
// router package itself uses for everything beyond the two tunables a
// config file can override.
func routerOptionsFrom(cfg config.RouterConfig) []router.Option {
	opts := []router.Option{router.WithMaxQueueSize(cfg.MaxQueueSize)}
	if cfg.DropOldestOnOverflow {
		opts = append(opts, router.WithOverflowPolicy(router.DropOldest))
	} else {
		opts = append(opts, router.WithOverflowPolicy(router.DropNewest))
	}
	return opts
}

// arenaConfigFrom maps the millisecond/percent fields a YAML file carries
// onto arena.Config's time.Duration/float64 fields.
func arenaConfigFrom(cfg config.ArenaConfig) arena.Config {
	return arena.Config{
		SwitchThreshold:     cfg.SwitchThreshold,
		MinTimeOnTarget:     time.Duration(cfg.MinTimeOnTargetMs) * time.Millisecond,
		BurstMinBursters:    cfg.BurstMinBursters,
		BurstMaxDuration:    time.Duration(cfg.BurstMaxDurationMs) * time.Millisecond,
		CCOverlapWindow:     time.Duration(cfg.CCOverlapWindowMs) * time.Millisecond,
		PeelDuration:        time.Duration(cfg.PeelDurationMs) * time.Millisecond,
		DefensiveHealthHigh: cfg.DefensiveHealthThresholdHigh,
		DefensiveHealthMid:  cfg.DefensiveHealthThresholdMid,
		DefensiveHealthLow:  cfg.DefensiveHealthThresholdLow,
	}
}

func dungeonConfigFrom(cfg config.DungeonConfig) dungeon.Config {
	return dungeon.Config{
		MinManaForPull:      cfg.MinManaForPull,
		MinHealthForPull:    cfg.MinHealthForPull,
		UpdateIntervalMs:    cfg.UpdateIntervalMs,
		ReadyCheckTimeoutMs: cfg.ReadyCheckTimeoutMs,
	}
}

// seasonalAffix applies for the whole demo run. There is no config field
// for it (seasons rotate far less often than keys), so it is a fixed
// constant rather than one more tunable nobody would actually change.
const seasonalAffix = dungeon.AffixThundering
