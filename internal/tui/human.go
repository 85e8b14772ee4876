// Package tui lets a person play a match from the terminal and renders
// Connect4 boards and poker tables.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/agent"
	"github.com/saolsen/gameplay/poker"
)

// ErrQuit is returned when the player leaves instead of acting.
var ErrQuit = errors.New("player quit")

// Human is an agent.Agent that asks a person at the terminal for every
// action. It should be seated untimed.
type Human struct {
	name    string
	players []string
	opts    []tea.ProgramOption
}

var _ agent.Agent = (*Human)(nil)

// NewHuman returns a terminal player called name. players labels every seat
// in poker tables. opts configure each bubbletea program, such as its input
// and output.
func NewHuman(name string, players []string, opts ...tea.ProgramOption) *Human {
	return &Human{name: name, players: players, opts: opts}
}

// Decide runs a prompt until the player enters a legal action or quits.
func (h *Human) Decide(ctx context.Context, req agent.Request) (agent.Response, error) {
	m, err := newModel(h.name, h.players, req)
	if err != nil {
		return agent.Response{}, err
	}
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, h.opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if ctx.Err() != nil {
		return agent.Response{}, ctx.Err()
	}
	if err != nil {
		return agent.Response{}, fmt.Errorf("run prompt: %w", err)
	}
	fm := final.(*model)
	if fm.action == nil {
		return agent.Response{}, ErrQuit
	}
	return agent.Respond(fm.action, nil)
}

// model is the bubbletea model for one decision.
type model struct {
	name    string
	players []string
	kind    game.Kind
	c4      *connect4.State
	pk      *poker.View

	input    textinput.Model
	err      error
	action   any
	quitting bool
}

func newModel(name string, players []string, req agent.Request) (*model, error) {
	m := &model{name: name, players: players, kind: req.Game}

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 32
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	switch req.Game {
	case game.Connect4:
		m.c4 = new(connect4.State)
		if err := json.Unmarshal(req.State, m.c4); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		ti.Placeholder = fmt.Sprintf("column 1-%d", connect4.Columns)
	case game.Poker:
		m.pk = new(poker.View)
		if err := json.Unmarshal(req.State, m.pk); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		ti.Placeholder = "fold, check, call, bet 10, raise 5, allin"
	default:
		return nil, fmt.Errorf("cannot play %q", req.Game)
	}
	m.input = ti
	return m, nil
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			action, err := m.parse(m.input.Value())
			m.input.SetValue("")
			if err != nil {
				m.err = err
				return m, nil
			}
			m.action = action
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) parse(input string) (any, error) {
	if m.c4 != nil {
		return ParseConnect4(input, m.c4)
	}
	return ParsePoker(input, m.pk)
}

func (m *model) View() string {
	if m.quitting || m.action != nil {
		return ""
	}

	var b strings.Builder
	if m.c4 != nil {
		b.WriteString(HeaderStyle.Render(fmt.Sprintf("Connect4 - %s to play %s", m.name, Disc(m.c4.ActivePlayer))))
		b.WriteString("\n")
		b.WriteString(RenderConnect4(m.c4))
	} else {
		b.WriteString(HeaderStyle.Render(fmt.Sprintf("Poker - %s to act", m.name)))
		b.WriteString("\n")
		b.WriteString(RenderPoker(m.pk, m.players))
		b.WriteString("\n")
		b.WriteString(renderOptions(m.pk.ValidActions()))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(InfoStyle.Render("Enter to submit • Esc to quit"))
	b.WriteString("\n")
	return b.String()
}
