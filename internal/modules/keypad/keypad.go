// Package keypad implements the vanilla Keypad module: four symbols drawn
// from one precedence column, to be pressed in that column's order.
package keypad

import (
	"context"
	"fmt"
	"strings"

	"ktane-bot/internal/bomb"
)

// columns are the six symbol precedence columns; every keypad's four symbols
// come from a single column and must be pressed in column order.
var columns = [6][7]string{
	{"balloon", "at", "lambda", "lightning", "cat", "hookn", "leftc"},
	{"euro", "balloon", "leftc", "cursive", "hollowstar", "hookn", "questionmark"},
	{"copyright", "pumpkin", "cursive", "doublek", "meltedthree", "lambda", "hollowstar"},
	{"six", "paragraph", "bt", "cat", "doublek", "questionmark", "smiley"},
	{"pitchfork", "smiley", "bt", "rightc", "paragraph", "dragon", "filledstar"},
	{"six", "euro", "tracks", "ae", "pitchfork", "nwithhat", "omega"},
}

// Info describes the module to the registry.
var Info = bomb.ModuleInfo{
	Identifiers: []string{"keypad", "keypads"},
	Name:        "Keypad",
	New:         New,
}

// Keypad is one Keypad module instance.
type Keypad struct {
	bomb.ModuleBase
	display []string // the four symbols in display order
	order   []string // the same symbols in press order
	next    int      // index into order of the next expected press
	pressed map[string]bool
}

// New constructs a Keypad with four symbols from a random column.
func New(b *bomb.Bomb, ident int) bomb.Module {
	rng := b.Rand()
	column := columns[rng.Intn(len(columns))]

	order := make([]string, 0, 4)
	for _, idx := range rng.Perm(len(column))[:4] {
		order = append(order, column[idx])
	}
	// Press order follows the column, not the draw.
	sortByColumn(order, column)

	display := make([]string, len(order))
	copy(display, order)
	rng.Shuffle(len(display), func(i, j int) {
		display[i], display[j] = display[j], display[i]
	})

	k := &Keypad{
		ModuleBase: bomb.NewModuleBase(b, ident, "Keypad"),
		display:    display,
		order:      order,
		pressed:    make(map[string]bool),
	}
	k.Logf("symbols: %s", strings.Join(display, ", "))
	k.Logf("press order: %s", strings.Join(order, ", "))
	return k
}

// HandleCommand processes a Keypad command.
func (k *Keypad) HandleCommand(ctx context.Context, user bomb.User, cmd string, args []string) (string, error) {
	if reply, handled, err := k.HandleBaseCommand(ctx, user, cmd, args, k.render); handled {
		return reply, err
	}

	if cmd != "press" {
		return "", bomb.Usagef("%s Commands for Keypad: `press <symbol>`, `view`, `claim`, `unclaim`, `claimview`.", user.Mention)
	}
	if len(args) != 1 {
		return "", bomb.Usagef("%s Which symbol? Usage: `press <symbol>`.", user.Mention)
	}
	if k.Solved() {
		return "", bomb.Conflictf("%s Module #%d (Keypad) has already been solved.", user.Mention, k.Ident())
	}

	symbol := strings.ToLower(args[0])
	if !contains(k.display, symbol) {
		return "", bomb.Usagef("%s There is no `%s` on this keypad. The symbols are: %s.",
			user.Mention, symbol, strings.Join(k.display, ", "))
	}
	if k.pressed[symbol] {
		return "", bomb.Conflictf("%s `%s` has already been pressed.", user.Mention, symbol)
	}

	if symbol != k.order[k.next] {
		k.Strike(ctx, user)
		k.Logf("%s pressed %s out of order", user.Name, symbol)
		return fmt.Sprintf("%s Strike! `%s` was not next. The lit symbols stay lit. %d strikes on the bomb.",
			user.Mention, symbol, k.Bomb().Strikes()), nil
	}

	k.pressed[symbol] = true
	k.next++
	k.Logf("%s pressed %s (%d/%d)", user.Name, symbol, k.next, len(k.order))

	if k.next == len(k.order) {
		k.Solve(ctx, user)
		return fmt.Sprintf("%s The last symbol lights up and module #%d (Keypad) is solved!", user.Mention, k.Ident()), nil
	}
	return fmt.Sprintf("%s `%s` lights up. %d to go.", user.Mention, symbol, len(k.order)-k.next), nil
}

func (k *Keypad) render() string {
	lines := make([]string, len(k.display))
	for i, s := range k.display {
		line := s
		if k.pressed[s] {
			line += " (lit)"
		}
		lines[i] = line
	}
	return fmt.Sprintf("Module #%d (Keypad), symbols:\n%s", k.Ident(), strings.Join(lines, "\n"))
}

// sortByColumn reorders symbols in place to match their column precedence.
func sortByColumn(symbols []string, column [7]string) {
	rank := make(map[string]int, len(column))
	for i, s := range column {
		rank[s] = i
	}
	for i := 1; i < len(symbols); i++ {
		for j := i; j > 0 && rank[symbols[j]] < rank[symbols[j-1]]; j-- {
			symbols[j], symbols[j-1] = symbols[j-1], symbols[j]
		}
	}
}

func contains(symbols []string, s string) bool {
	for _, candidate := range symbols {
		if candidate == s {
			return true
		}
	}
	return false
}
