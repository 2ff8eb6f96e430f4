package spectator

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type model struct {
	provider Provider
	snap     Snapshot
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.snap = m.provider()
		return m, tickCmd()
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m model) View() string {
	s := m.snap
	out := headerStyle.Render("legiond spectator") + "\n\n"

	out += fmt.Sprintf("router: dispatched=%d queued=%d dropped=%d depth=%d\n",
		s.RouterStats.TotalDispatched, s.RouterStats.TotalQueued, s.RouterStats.TotalDropped, s.RouterQueueDepth)
	out += fmt.Sprintf("claims: granted=%d denied=%d expired=%d\n",
		s.ClaimStats.TotalGranted, s.ClaimStats.TotalDenied, s.ClaimStats.TotalExpired)
	out += fmt.Sprintf("corpses tracked: %d\n\n", s.CorpsesTracked)

	if s.ArenaActive {
		out += fmt.Sprintf("arena: state=%v target=%v burst_phase=%v cc_success_rate=%.2f\n",
			s.ArenaState, s.ArenaTarget, s.ArenaBurst, s.ArenaCCRate)
	}
	if s.BattlegroundActive {
		out += fmt.Sprintf("battleground: state=%v decision=%+v\n", s.BattlegroundState, s.BattlegroundDecision)
	}
	if s.DungeonActive {
		out += fmt.Sprintf("dungeon: state=%v", s.DungeonState)
		if s.DungeonKeystone {
			out += fmt.Sprintf(" keystone_remaining=%s deaths=%d", time.Duration(s.DungeonRemainingMs*int64(time.Millisecond)), s.DungeonDeaths)
		}
		out += "\n"
	}

	if s.LastError != "" {
		out += "\n" + errStyle.Render("last error: "+s.LastError) + "\n"
	}

	out += "\n" + dimStyle.Render(fmt.Sprintf("as of %s — press q to quit", s.Now.Format(time.RFC3339))) + "\n"
	return out
}

// Run starts the terminal dashboard, blocking until ctx is cancelled or the
// user quits.
func Run(ctx context.Context, provider Provider) error {
	m := model{provider: provider, snap: provider()}
	p := tea.NewProgram(m)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	select {
	case <-ctx.Done():
		p.Quit()
		return ctx.Err()
	case err := <-done:
		return err
	}
}
