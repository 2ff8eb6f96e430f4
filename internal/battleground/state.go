package battleground

// MatchState is the battleground coordinator's top-level phase.
type MatchState int

const (
	StateIdle MatchState = iota
	StateGates
	StateActive
	StateOvertime
	StateFinished
)

func (s MatchState) String() string {
	switch s {
	case StateGates:
		return "gates"
	case StateActive:
		return "active"
	case StateOvertime:
		return "overtime"
	case StateFinished:
		return "finished"
	default:
		return "idle"
	}
}
