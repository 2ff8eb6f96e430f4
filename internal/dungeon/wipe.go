package dungeon

import (
	"sort"
	"sync"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// WipePhase is one step of the group's post-wipe recovery sequence.
type WipePhase int

const (
	PhaseWaiting WipePhase = iota
	PhaseReleasing
	PhaseRunningBack
	PhaseRezzing
	PhaseRebuffing
	PhaseManaRegen
	PhaseReady
)

func (p WipePhase) String() string {
	switch p {
	case PhaseReleasing:
		return "releasing"
	case PhaseRunningBack:
		return "running_back"
	case PhaseRezzing:
		return "rezzing"
	case PhaseRebuffing:
		return "rebuffing"
	case PhaseManaRegen:
		return "mana_regen"
	case PhaseReady:
		return "ready"
	default:
		return "waiting"
	}
}

const (
	releaseAfter    = 10 * time.Second
	runBackAfter    = 25 * time.Second
	manaReadyFrac   = 0.80
	readyTimeout    = 1 * time.Minute
)

// WipeRecoveryManager drives the group through the recovery sequence after
// a full wipe: release, run back, priority-ordered resurrection, rebuff,
// mana regen. The rez queue is spelled out explicitly rather than left to
// ad hoc bot judgment, so every recovery rezzes in the same order.
type WipeRecoveryManager struct {
	mu          sync.Mutex
	phase       WipePhase
	wipedAt     time.Time
	rezQueue    []ids.EntityId
	rezzed      map[ids.EntityId]bool
	arrivedAtCorpse map[ids.EntityId]bool
}

func newWipeRecoveryManager() *WipeRecoveryManager {
	return &WipeRecoveryManager{
		phase:           PhaseWaiting,
		rezzed:          make(map[ids.EntityId]bool),
		arrivedAtCorpse: make(map[ids.EntityId]bool),
	}
}

func (m *WipeRecoveryManager) Phase() WipePhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// BeginWipe resets the manager to Waiting and records the wipe timestamp.
// Call this once, when the last living group member dies.
func (m *WipeRecoveryManager) BeginWipe(now time.Time, members []Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseWaiting
	m.wipedAt = now
	m.rezzed = make(map[ids.EntityId]bool)
	m.arrivedAtCorpse = make(map[ids.EntityId]bool)
	m.rezQueue = rezPriorityOrder(members)
}

// rezPriorityOrder sorts members into the rez queue: healers with
// battle-rez first, then other healers, then the tank, then battle-rez
// capable DPS, then remaining DPS.
func rezPriorityOrder(members []Member) []ids.EntityId {
	rank := func(m Member) int {
		switch {
		case m.Role == ids.RoleHealer && m.HasBattleRez:
			return 0
		case m.Role == ids.RoleHealer:
			return 1
		case m.Role == ids.RoleTank:
			return 2
		case m.HasBattleRez:
			return 3
		default:
			return 4
		}
	}
	ordered := make([]Member, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool { return rank(ordered[i]) < rank(ordered[j]) })

	queue := make([]ids.EntityId, len(ordered))
	for i, m := range ordered {
		queue[i] = m.ID
	}
	return queue
}

// Update advances the FSM based on elapsed time and observed events. It
// returns the phase after advancing (monotonic: never regresses).
func (m *WipeRecoveryManager) Update(now time.Time, members []Member) WipePhase {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := now.Sub(m.wipedAt)
	switch m.phase {
	case PhaseWaiting:
		if elapsed >= releaseAfter {
			m.phase = PhaseReleasing
		}
	case PhaseReleasing:
		if elapsed >= runBackAfter {
			m.phase = PhaseRunningBack
		}
	case PhaseRunningBack:
		// advanced externally by ArriveAtCorpse once the first member
		// reaches their corpse
	case PhaseRezzing:
		if m.allRezzed() {
			m.phase = PhaseRebuffing
		}
	case PhaseRebuffing:
		m.phase = PhaseManaRegen
	case PhaseManaRegen:
		if elapsed >= readyTimeout || averageMana(members) >= manaReadyFrac {
			m.phase = PhaseReady
		}
	}
	return m.phase
}

// ArriveAtCorpse records that agent has reached their corpse during
// RunningBack, transitioning to Rezzing once the first arrival occurs.
func (m *WipeRecoveryManager) ArriveAtCorpse(agent ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arrivedAtCorpse[agent] = true
	if m.phase == PhaseRunningBack {
		m.phase = PhaseRezzing
	}
}

// NextRezTarget returns the highest-priority not-yet-rezzed group member,
// or ids.Empty if the queue is exhausted.
func (m *WipeRecoveryManager) NextRezTarget() ids.EntityId {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.rezQueue {
		if !m.rezzed[id] {
			return id
		}
	}
	return ids.Empty
}

// MarkRezzed records agent as resurrected.
func (m *WipeRecoveryManager) MarkRezzed(agent ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rezzed[agent] = true
}

func (m *WipeRecoveryManager) allRezzed() bool {
	for _, id := range m.rezQueue {
		if !m.rezzed[id] {
			return false
		}
	}
	return true
}

func averageMana(members []Member) float64 {
	if len(members) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range members {
		total += m.ManaFrac
	}
	return total / float64(len(members))
}
