package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/poker"
)

// RenderConnect4 draws the board with column numbers, top row first. The
// winning line, if any, is highlighted.
func RenderConnect4(s *connect4.State) string {
	var win map[connect4.Cell]bool
	if line, ok := s.WinningLine(); ok {
		win = make(map[connect4.Cell]bool, len(line.Cells))
		for _, c := range line.Cells {
			win[c] = true
		}
	}

	var b strings.Builder
	for c := range connect4.Columns {
		fmt.Fprintf(&b, " %d", c+1)
	}
	b.WriteString("\n")
	for r := connect4.Rows - 1; r >= 0; r-- {
		for c := range connect4.Columns {
			b.WriteString(" ")
			disc := renderSlot(s.Board[c][r])
			if win[connect4.Cell{Column: c, Row: r}] {
				disc = WinningStyle.Render(disc)
			}
			b.WriteString(disc)
		}
		if r > 0 {
			b.WriteString("\n")
		}
	}
	return BoardStyle.Render(b.String())
}

func renderSlot(s connect4.Slot) string {
	switch s {
	case connect4.Player0:
		return Player0Style.Render("X")
	case connect4.Player1:
		return Player1Style.Render("O")
	default:
		return InfoStyle.Render(".")
	}
}

// Disc returns the marker used for player on the board.
func Disc(player int) string {
	return renderSlot(connect4.SlotFor(player))
}

// formatCards formats cards with colors
func formatCards(cards []poker.Card) string {
	if len(cards) == 0 {
		return "[]"
	}
	formatted := make([]string, len(cards))
	for i, card := range cards {
		if card.Suit.IsRed() {
			formatted[i] = RedCardStyle.Render(card.Pretty())
		} else {
			formatted[i] = BlackCardStyle.Render(card.Pretty())
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

func playerName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return fmt.Sprintf("player %d", i)
}

// RenderPoker draws the current round of a poker view. names label the
// seats and may be nil.
func RenderPoker(v *poker.View, names []string) string {
	r := v.Current()

	var b strings.Builder
	b.WriteString(HandInfoStyle.Render(fmt.Sprintf("Round %d  %s", v.Round+1, r.Stage)))
	b.WriteString("  ")
	b.WriteString(WarningStyle.Render(fmt.Sprintf("Pot: %d", r.Pot)))
	if r.Bet > 0 {
		b.WriteString(" | ")
		b.WriteString(WarningStyle.Render(fmt.Sprintf("Bet: %d", r.Bet)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Board: %s\n", formatCards(r.TableCards))
	if v.Player >= 0 {
		fmt.Fprintf(&b, "You:   %s\n", formatCards(r.MyCards))
	}

	rows := make([]string, len(v.PlayerChips))
	for i, chips := range v.PlayerChips {
		marker := "  "
		if r.Stage != poker.Showdown && i == r.CurrentPlayer {
			marker = "> "
		}
		dealer := " "
		if i == r.Dealer {
			dealer = "D"
		}
		row := fmt.Sprintf("%s%s %-12s %5d chips  bet %-4d %s",
			marker, dealer, playerName(names, i), chips, r.PlayerBets[i], r.PlayerStatus[i])
		if i < len(r.Payouts) && r.Payouts[i] > 0 {
			row += SuccessStyle.Render(fmt.Sprintf("  won %d", r.Payouts[i]))
		}
		if i == v.Player {
			row = lipgloss.NewStyle().Bold(true).Render(row)
		}
		rows[i] = row
	}
	b.WriteString(strings.Join(rows, "\n"))
	return BoardStyle.Render(b.String())
}

// renderOptions lists the legal poker actions.
func renderOptions(opts []poker.ActionOption) string {
	if len(opts) == 0 {
		return ErrorStyle.Render("[no actions available]")
	}
	var actions []string
	for _, o := range opts {
		switch o.Kind {
		case poker.Fold:
			actions = append(actions, ErrorStyle.Render("[fold]"))
		case poker.Check:
			actions = append(actions, SuccessStyle.Render("[check]"))
		case poker.Call:
			actions = append(actions, SuccessStyle.Render(fmt.Sprintf("[call %d]", o.Min)))
		case poker.Bet, poker.Raise:
			actions = append(actions, WarningStyle.Render(fmt.Sprintf("[%s %d-%d]", o.Kind, o.Min, o.Max)))
		}
	}
	return ActionsStyle.Render("Actions: " + strings.Join(actions, " "))
}
