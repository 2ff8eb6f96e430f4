package arena

import (
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// BurstPhase is the burst-window state machine's current phase.
type BurstPhase int

const (
	BurstNone BurstPhase = iota
	BurstPreparing
	BurstExecuting
	BurstSustaining
	BurstRetreating
)

func (p BurstPhase) String() string {
	switch p {
	case BurstPreparing:
		return "preparing"
	case BurstExecuting:
		return "executing"
	case BurstSustaining:
		return "sustaining"
	case BurstRetreating:
		return "retreating"
	default:
		return "none"
	}
}

// phaseDurations: Preparing 2s, Executing 6s, Sustaining 4s, Retreating 2s.
var phaseDurations = map[BurstPhase]time.Duration{
	BurstPreparing:  2 * time.Second,
	BurstExecuting:  6 * time.Second,
	BurstSustaining: 4 * time.Second,
	BurstRetreating: 2 * time.Second,
}

// successHealthFraction is the target-health threshold that, if crossed
// during Executing, marks the burst window a success.
const successHealthFraction = 0.30

// AnnounceBurstWindow is the outbound signal published at Preparing→Executing.
type AnnounceBurstWindow struct {
	Target ids.EntityId
	At     time.Time
}

// BurstCoordinator runs the burst-window phase machine for the team's
// current kill target.
type BurstCoordinator struct {
	cfg Config

	phase        BurstPhase
	phaseStart   time.Time
	target       ids.EntityId
	wasSuccessful bool
	defensivesWereDown bool

	totalWindows   int
	successfulOnes int

	onAnnounce func(AnnounceBurstWindow)
}

func newBurstCoordinator(cfg Config) *BurstCoordinator {
	return &BurstCoordinator{cfg: cfg, phase: BurstNone}
}

// OnAnnounce registers the callback invoked when the coordinator publishes
// an AnnounceBurstWindow message (typically wired to bus.Publish).
func (b *BurstCoordinator) OnAnnounce(fn func(AnnounceBurstWindow)) { b.onAnnounce = fn }

// Phase returns the current burst phase.
func (b *BurstCoordinator) Phase() BurstPhase { return b.phase }

// IsViable reports whether a burst window may begin against target: its
// trinket must be down, at least BurstMinBursters teammates report
// burst-ready cooldowns, and the target must be low-health, CCed, or have
// its defensives down.
func (b *BurstCoordinator) IsViable(target Enemy, teammates []Teammate) bool {
	if !target.TrinketDown {
		return false
	}
	ready := 0
	for _, t := range teammates {
		if t.Alive && t.BurstReady {
			ready++
		}
	}
	if ready < b.cfg.BurstMinBursters {
		return false
	}
	return target.HealthFrac < 0.5 || target.IsCCed || target.DefensivesDown
}

func (b *BurstCoordinator) update(now time.Time, enemies []Enemy, teammates []Teammate, killTarget ids.EntityId) {
	targetEnemy, found := findEnemy(enemies, killTarget)

	switch b.phase {
	case BurstNone:
		if !found {
			return
		}
		if b.IsViable(targetEnemy, teammates) {
			b.enterPhase(BurstPreparing, now, killTarget)
		}
	case BurstPreparing:
		if !found || isDead(targetEnemy) {
			b.enterPhase(BurstNone, now, ids.Empty)
			return
		}
		if now.Sub(b.phaseStart) >= phaseDurations[BurstPreparing] {
			b.defensivesWereDown = targetEnemy.DefensivesDown
			b.enterPhase(BurstExecuting, now, b.target)
			if b.onAnnounce != nil {
				b.onAnnounce(AnnounceBurstWindow{Target: b.target, At: now})
			}
		}
	case BurstExecuting:
		if !found || isDead(targetEnemy) {
			if found && isDead(targetEnemy) {
				b.wasSuccessful = true
			}
			b.enterPhase(BurstRetreating, now, ids.Empty)
			return
		}
		if targetEnemy.HealthFrac < successHealthFraction {
			b.wasSuccessful = true
		}
		if !targetEnemy.DefensivesDown && b.defensivesWereDown {
			// defensives came back up mid-Executing: abort.
			b.enterPhase(BurstRetreating, now, ids.Empty)
			return
		}
		if b.anyCriticalTeammate(teammates) {
			b.enterPhase(BurstRetreating, now, ids.Empty)
			return
		}
		if now.Sub(b.phaseStart) >= phaseDurations[BurstExecuting] {
			b.enterPhase(BurstSustaining, now, b.target)
		}
	case BurstSustaining:
		if now.Sub(b.phaseStart) >= phaseDurations[BurstSustaining] {
			b.enterPhase(BurstRetreating, now, ids.Empty)
		}
	case BurstRetreating:
		if now.Sub(b.phaseStart) >= phaseDurations[BurstRetreating] {
			b.finishWindow()
			b.enterPhase(BurstNone, now, ids.Empty)
		}
	}
}

func (b *BurstCoordinator) anyCriticalTeammate(teammates []Teammate) bool {
	for _, t := range teammates {
		if t.Alive && t.HealthFrac < b.cfg.DefensiveHealthLow/100 {
			return true
		}
	}
	return false
}

func (b *BurstCoordinator) enterPhase(p BurstPhase, now time.Time, target ids.EntityId) {
	if p == BurstPreparing {
		b.totalWindows++
		b.wasSuccessful = false
	}
	b.phase = p
	b.phaseStart = now
	if p != BurstNone {
		b.target = target
	}
}

func (b *BurstCoordinator) finishWindow() {
	if b.wasSuccessful {
		b.successfulOnes++
	}
}

// SuccessRate returns the fraction of started burst windows (counted on
// entering Preparing) that reached the target-health success threshold.
func (b *BurstCoordinator) SuccessRate() float64 {
	if b.totalWindows == 0 {
		return 0
	}
	return float64(b.successfulOnes) / float64(b.totalWindows)
}

func findEnemy(enemies []Enemy, id ids.EntityId) (Enemy, bool) {
	for _, e := range enemies {
		if e.ID == id {
			return e, true
		}
	}
	return Enemy{}, false
}

func isDead(e Enemy) bool { return e.HealthFrac <= 0 }
