package tui

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/poker"
)

var errEmptyInput = errors.New("enter an action")

// ParseConnect4 reads a column number as shown above the board, 1 to 7.
func ParseConnect4(input string, s *connect4.State) (connect4.Action, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return connect4.Action{}, errEmptyInput
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > connect4.Columns {
		return connect4.Action{}, fmt.Errorf("pick a column from 1 to %d", connect4.Columns)
	}
	a := connect4.Action{Column: n - 1}
	if !slices.Contains(s.ValidActions(), a) {
		return connect4.Action{}, fmt.Errorf("column %d is full", n)
	}
	return a, nil
}

var pokerAliases = map[string]poker.ActionKind{
	"f": poker.Fold, "fold": poker.Fold,
	"k": poker.Check, "x": poker.Check, "check": poker.Check,
	"c": poker.Call, "call": poker.Call,
	"b": poker.Bet, "bet": poker.Bet,
	"r": poker.Raise, "raise": poker.Raise,
}

// ParsePoker reads commands like "call", "bet 10", "raise 4" or "allin"
// against the options open to the viewer. A bet or raise without an amount
// uses the minimum.
func ParsePoker(input string, v *poker.View) (poker.Action, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return poker.Action{}, errEmptyInput
	}
	opts := v.ValidActions()
	if len(opts) == 0 {
		return poker.Action{}, errors.New("it is not your turn")
	}
	find := func(k poker.ActionKind) (poker.ActionOption, bool) {
		i := slices.IndexFunc(opts, func(o poker.ActionOption) bool { return o.Kind == k })
		if i < 0 {
			return poker.ActionOption{}, false
		}
		return opts[i], true
	}

	switch fields[0] {
	case "allin", "all-in", "shove":
		for _, k := range []poker.ActionKind{poker.Bet, poker.Raise, poker.Call} {
			if o, ok := find(k); ok {
				return sized(o, o.Max), nil
			}
		}
		return poker.Action{}, errors.New("cannot go all in")
	}

	kind, ok := pokerAliases[fields[0]]
	if !ok {
		return poker.Action{}, fmt.Errorf("unknown action %q", fields[0])
	}
	o, ok := find(kind)
	if !ok {
		return poker.Action{}, fmt.Errorf("cannot %s now", kind)
	}
	if kind != poker.Bet && kind != poker.Raise {
		if len(fields) > 1 {
			return poker.Action{}, fmt.Errorf("%s takes no amount", kind)
		}
		return poker.Action{Kind: kind}, nil
	}

	amount := o.Min
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return poker.Action{}, fmt.Errorf("invalid amount %q", fields[1])
		}
		amount = n
	}
	if amount < o.Min || amount > o.Max {
		return poker.Action{}, fmt.Errorf("%s must be between %d and %d", kind, o.Min, o.Max)
	}
	return sized(o, amount), nil
}

func sized(o poker.ActionOption, amount int) poker.Action {
	if o.Kind == poker.Bet || o.Kind == poker.Raise {
		return poker.Action{Kind: o.Kind, Amount: amount}
	}
	return poker.Action{Kind: o.Kind}
}
