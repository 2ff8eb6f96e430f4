package arena

import (
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// DefensiveState is a teammate's escalating danger tier.
type DefensiveState int

const (
	Healthy DefensiveState = iota
	Pressured
	Danger
	Critical
)

func (s DefensiveState) String() string {
	switch s {
	case Pressured:
		return "pressured"
	case Danger:
		return "danger"
	case Critical:
		return "critical"
	default:
		return "healthy"
	}
}

// damageRateWindow is the rolling window over which damage-rate is
// estimated.
const damageRateWindow = 5 * time.Second

type damageSample struct {
	at     time.Time
	amount float64
}

type teammateDefense struct {
	samples []damageSample
	state   DefensiveState
	peeledBy ids.EntityId
	peelUntil time.Time
}

// Peel is an active assignment pairing a peeler with a threatened teammate
// against a specific threat enemy.
type Peel struct {
	Peeler    ids.EntityId
	Target    ids.EntityId
	Threat    ids.EntityId
	ExpiresAt time.Time
}

// DefensiveCoordinator tracks each teammate's rolling damage rate, escalates
// their defensive state through thresholds, and assigns peels.
type DefensiveCoordinator struct {
	cfg Config

	teammates map[ids.EntityId]*teammateDefense
	peels     []Peel
}

func newDefensiveCoordinator(cfg Config) *DefensiveCoordinator {
	return &DefensiveCoordinator{cfg: cfg, teammates: make(map[ids.EntityId]*teammateDefense)}
}

// RecordDamage records an instance of incoming damage against teammate for
// rolling-rate estimation.
func (d *DefensiveCoordinator) RecordDamage(teammate ids.EntityId, now time.Time, amount float64) {
	td := d.entryFor(teammate)
	td.samples = append(td.samples, damageSample{at: now, amount: amount})
	td.samples = trimOlderThan(td.samples, now, damageRateWindow)
}

func trimOlderThan(samples []damageSample, now time.Time, window time.Duration) []damageSample {
	cutoff := now.Add(-window)
	i := 0
	for i < len(samples) && samples[i].at.Before(cutoff) {
		i++
	}
	return samples[i:]
}

func (d *DefensiveCoordinator) entryFor(teammate ids.EntityId) *teammateDefense {
	td, ok := d.teammates[teammate]
	if !ok {
		td = &teammateDefense{}
		d.teammates[teammate] = td
	}
	return td
}

// DamageRate returns teammate's current rolling damage-per-second estimate.
func (d *DefensiveCoordinator) DamageRate(teammate ids.EntityId) float64 {
	td, ok := d.teammates[teammate]
	if !ok || len(td.samples) == 0 {
		return 0
	}
	var total float64
	for _, s := range td.samples {
		total += s.amount
	}
	return total / damageRateWindow.Seconds()
}

// State returns teammate's current defensive tier.
func (d *DefensiveCoordinator) State(teammate ids.EntityId) DefensiveState {
	return d.entryFor(teammate).state
}

// update re-evaluates every known teammate's state from its current health
// fraction alone, and expires stale peels. The damage-rate estimate is
// trimmed to its window here but does not affect the state.
func (d *DefensiveCoordinator) update(now time.Time, teammates []Teammate) {
	for _, t := range teammates {
		td := d.entryFor(t.ID)
		td.samples = trimOlderThan(td.samples, now, damageRateWindow)
		td.state = d.classify(t.HealthFrac * 100)
	}

	kept := d.peels[:0]
	for _, p := range d.peels {
		if now.Before(p.ExpiresAt) {
			kept = append(kept, p)
		}
	}
	d.peels = kept
}

func (d *DefensiveCoordinator) classify(healthPct float64) DefensiveState {
	switch {
	case healthPct < d.cfg.DefensiveHealthLow:
		return Critical
	case healthPct < d.cfg.DefensiveHealthMid:
		return Danger
	case healthPct < d.cfg.DefensiveHealthHigh:
		return Pressured
	default:
		return Healthy
	}
}

// AssignPeel pairs an available peeler with a threatened teammate against
// threat, valid for PeelDuration. Returns false if peeler is already
// committed to another active peel.
func (d *DefensiveCoordinator) AssignPeel(now time.Time, peeler, teammate, threat ids.EntityId) bool {
	for _, p := range d.peels {
		if p.Peeler == peeler && now.Before(p.ExpiresAt) {
			return false
		}
	}
	d.peels = append(d.peels, Peel{Peeler: peeler, Target: teammate, Threat: threat, ExpiresAt: now.Add(d.cfg.PeelDuration)})
	return true
}

// ActivePeels returns the currently active peel assignments.
func (d *DefensiveCoordinator) ActivePeels() []Peel {
	return append([]Peel(nil), d.peels...)
}

// RecommendExternalCooldown reports whether teammate's state (Danger or
// worse) warrants requesting an external defensive cooldown from the team.
func (d *DefensiveCoordinator) RecommendExternalCooldown(teammate ids.EntityId) bool {
	return d.State(teammate) >= Danger
}

// RecommendTrinket reports whether teammate should use its CC-breaking
// trinket: state is Critical and it is currently CCed.
func (d *DefensiveCoordinator) RecommendTrinket(teammate ids.EntityId, isCCed bool) bool {
	return d.State(teammate) == Critical && isCCed
}
