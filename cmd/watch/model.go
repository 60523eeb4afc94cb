package main

import (
	"fmt"
	"strings"

	"github.com/brensch/lightcycle/spectate"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxResults = 10

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	wonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lostStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))

	palette = []lipgloss.Color{"9", "10", "11", "12", "13", "14", "208", "141", "39", "118"}
)

type model struct {
	url     string
	updates <-chan tea.Msg

	connected bool
	lastErr   error

	start   *spectate.GameStart
	frame   *spectate.FrameView
	results []spectate.GameEnd
	wins    int
	losses  int
}

func initialModel(url string, updates <-chan tea.Msg) model {
	return model{url: url, updates: updates}
}

func (m model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case helloMsg:
		m.connected = true
		m.lastErr = nil
	case disconnectedMsg:
		m.connected = false
		m.lastErr = msg.err
	case startMsg:
		s := spectate.GameStart(msg)
		m.start = &s
		m.frame = nil
	case frameMsg:
		f := spectate.FrameView(msg)
		m.frame = &f
	case endMsg:
		e := spectate.GameEnd(msg)
		if e.Won {
			m.wins++
		} else {
			m.losses++
		}
		m.results = append([]spectate.GameEnd{e}, m.results...)
		if len(m.results) > maxResults {
			m.results = m.results[:maxResults]
		}
	default:
		return m, nil
	}
	return m, waitForUpdate(m.updates)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("lightcycle spectator"))
	b.WriteString("  ")
	switch {
	case m.connected:
		b.WriteString(wonStyle.Render("● " + m.url))
	case m.lastErr != nil:
		b.WriteString(lostStyle.Render("○ " + m.lastErr.Error()))
	default:
		b.WriteString(dimStyle.Render("○ connecting to " + m.url))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Session: %d won, %d lost\n\n", m.wins, m.losses)

	switch {
	case m.frame != nil:
		b.WriteString(boxStyle.Render(renderBoard(*m.frame)))
		b.WriteString("\n")
		b.WriteString(renderDecision(*m.frame))
	case m.start != nil:
		fmt.Fprintf(&b, "Game %s starting on %dx%d\n", m.start.GameID, m.start.Width, m.start.Height)
	default:
		b.WriteString(dimStyle.Render("Waiting for a game..."))
		b.WriteString("\n")
	}

	if len(m.results) > 0 {
		b.WriteString("\nRecent games:\n")
		for _, r := range m.results {
			line := fmt.Sprintf("  %s  %4d ticks  %d-%d", r.GameID, r.Ticks, r.Wins, r.Losses)
			if r.Won {
				b.WriteString(wonStyle.Render(line + "  won"))
			} else {
				b.WriteString(lostStyle.Render(line + "  lost"))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(dimStyle.Render("\nPress q to quit."))
	b.WriteString("\n")
	return b.String()
}

func playerStyle(id int64, me uint32) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(palette[int(id)%len(palette)])
	if uint32(id) == me {
		s = s.Bold(true)
	}
	return s
}

// renderBoard draws one rune per cell: heads as █, trails as ▒ and free
// cells as a dim dot.
func renderBoard(f spectate.FrameView) string {
	heads := make(map[int]bool, len(f.Heads))
	for _, h := range f.Heads {
		heads[int(h.Y)*int(f.Width)+int(h.X)] = true
	}
	free := dimStyle.Render("·")

	var b strings.Builder
	for y := 0; y < int(f.Height); y++ {
		if y > 0 {
			b.WriteString("\n")
		}
		for x := 0; x < int(f.Width); x++ {
			i := y*int(f.Width) + x
			owner := f.Owners[i]
			switch {
			case owner < 0:
				b.WriteString(free)
			case heads[i]:
				b.WriteString(playerStyle(owner, f.Me).Render("█"))
			default:
				b.WriteString(playerStyle(owner, f.Me).Render("▒"))
			}
		}
	}
	return b.String()
}

func renderDecision(f spectate.FrameView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tick %d", f.Tick)
	if f.Move == "" {
		b.WriteString(lostStyle.Render("  no legal move"))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "  move %s (%s)\n", f.Move, f.Reason)
	}
	for _, c := range f.Candidates {
		fmt.Fprintf(&b, "  %-5s region=%-4d follow_up=%-10.2f direct=%-8.3f", c.Move, c.Region, c.FollowUp, c.Direct)
		if c.HeadAdjacent {
			b.WriteString(" head")
		}
		if c.HugsWall {
			b.WriteString(" wall")
		}
		b.WriteString("\n")
	}

	var players []string
	for _, h := range f.Heads {
		name := h.Name
		if name == "" {
			name = fmt.Sprintf("player %d", h.ID)
		}
		if h.ID == f.Me {
			name += " (us)"
		}
		players = append(players, playerStyle(int64(h.ID), f.Me).Render(name))
	}
	if len(players) > 0 {
		b.WriteString("Alive: " + strings.Join(players, ", ") + "\n")
	}
	return b.String()
}
