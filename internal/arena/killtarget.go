package arena

import (
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// scoring weights. Kept as package constants rather than Config fields:
// the gating constants (switch threshold, min time on target) are the ones
// operators actually need to adjust per format; the weights only encode
// the relative shape of the score.
const (
	lowHealthWeight = 3.0
	cooldownWeight  = 2.0
	roleWeight      = 2.5
	positionWeight  = 1.5
	momentumWeight  = 1.0
	ccPenalty       = -10.0
)

// KillTargetManager re-evaluates the team's focus target every 500ms,
// scoring every visible enemy and gating switches behind a score-margin and
// a minimum-time-on-target requirement.
type KillTargetManager struct {
	cfg Config

	current    ids.EntityId
	lastSwitch time.Time
	lastEval   time.Time
}

func newKillTargetManager(cfg Config) *KillTargetManager {
	return &KillTargetManager{cfg: cfg}
}

// evalInterval is the fixed kill-target re-evaluation cadence.
const evalInterval = 500 * time.Millisecond

func score(e Enemy) float64 {
	s := lowHealthWeight*(1-e.HealthFrac) +
		cooldownWeight*cooldownFactor(e) +
		roleWeight*boolToFloat(e.IsHealer) +
		positionWeight*boolToFloat(e.InRangeAndLOS) +
		momentumWeight*e.RecentDamageToFocus
	if e.IsCCed {
		s += ccPenalty
	}
	return s
}

func cooldownFactor(e Enemy) float64 {
	f := 0.0
	if e.TrinketDown {
		f += 0.5
	}
	if e.DefensivesDown {
		f += 0.5
	}
	return f
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Current returns the currently-focused enemy, or ids.Empty if none chosen.
func (m *KillTargetManager) Current() ids.EntityId { return m.current }

// update re-scores every enemy and switches focus if ShouldSwitch allows it.
// Called once per tick; internally throttles real work to evalInterval.
func (m *KillTargetManager) update(now time.Time, enemies []Enemy) {
	if !m.lastEval.IsZero() && now.Sub(m.lastEval) < evalInterval {
		return
	}
	m.lastEval = now

	if len(enemies) == 0 {
		return
	}

	var best Enemy
	bestScore := -1e18
	for _, e := range enemies {
		if sc := score(e); sc > bestScore {
			bestScore = sc
			best = e
		}
	}

	if m.current.IsEmpty() {
		m.current = best.ID
		m.lastSwitch = now
		return
	}
	if best.ID == m.current {
		return
	}

	var currentScore float64
	for _, e := range enemies {
		if e.ID == m.current {
			currentScore = score(e)
			break
		}
	}

	if m.ShouldSwitch(now, currentScore, bestScore) {
		m.current = best.ID
		m.lastSwitch = now
	}
}

// ShouldSwitch reports whether a switch from the current target to a
// candidate scoring candidateScore is permitted: the candidate must exceed
// the current score by the configured multiplier, and the current target
// must have been focused for at least MinTimeOnTarget.
func (m *KillTargetManager) ShouldSwitch(now time.Time, currentScore, candidateScore float64) bool {
	if now.Sub(m.lastSwitch) < m.cfg.MinTimeOnTarget {
		return false
	}
	return candidateScore >= currentScore*m.cfg.SwitchThreshold
}

// CallSwitch is the public override command: it forces an immediate switch
// to target regardless of the score-margin or min-time-on-target gates.
func (m *KillTargetManager) CallSwitch(now time.Time, target ids.EntityId) {
	m.current = target
	m.lastSwitch = now
}
