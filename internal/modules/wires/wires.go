// Package wires implements the vanilla Wires module: cut the one correct
// wire out of 3-6 colored wires, determined by the colors and the serial
// number.
package wires

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ktane-bot/internal/bomb"
)

// Color is a wire color.
type Color string

// Wire colors appearing on the module.
const (
	Red    Color = "red"
	Yellow Color = "yellow"
	Blue   Color = "blue"
	White  Color = "white"
	Black  Color = "black"
)

var colors = []Color{Red, Yellow, Blue, White, Black}

const (
	minWires = 3
	maxWires = 6
)

// Info describes the module to the registry.
var Info = bomb.ModuleInfo{
	Identifiers: []string{"wires", "simpleWires"},
	Name:        "Wires",
	New:         New,
}

// Wires is one Wires module instance.
type Wires struct {
	bomb.ModuleBase
	wires   []Color
	cut     []bool
	correct int // 1-based index of the wire to cut
}

// New constructs a Wires module with a random wire layout.
func New(b *bomb.Bomb, ident int) bomb.Module {
	rng := b.Rand()
	count := minWires + rng.Intn(maxWires-minWires+1)
	layout := make([]Color, count)
	for i := range layout {
		layout[i] = colors[rng.Intn(len(colors))]
	}

	w := &Wires{
		ModuleBase: bomb.NewModuleBase(b, ident, "Wires"),
		wires:      layout,
		cut:        make([]bool, count),
		correct:    CorrectWire(layout, b.SerialLastDigitOdd()),
	}
	w.Logf("wires: %s", joinColors(layout))
	w.Logf("correct wire: %d", w.correct)
	return w
}

// HandleCommand processes a Wires command.
func (w *Wires) HandleCommand(ctx context.Context, user bomb.User, cmd string, args []string) (string, error) {
	if reply, handled, err := w.HandleBaseCommand(ctx, user, cmd, args, w.render); handled {
		return reply, err
	}

	if cmd != "cut" {
		return "", bomb.Usagef("%s Commands for Wires: `cut <wire number>`, `view`, `claim`, `unclaim`, `claimview`.", user.Mention)
	}
	if len(args) != 1 {
		return "", bomb.Usagef("%s Which wire? Usage: `cut <wire number>`.", user.Mention)
	}
	if w.Solved() {
		return "", bomb.Conflictf("%s Module #%d (Wires) has already been solved.", user.Mention, w.Ident())
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(w.wires) {
		return "", bomb.Usagef("%s There are %d wires on this module, numbered from the top.", user.Mention, len(w.wires))
	}
	if w.cut[n-1] {
		return "", bomb.Conflictf("%s Wire %d has already been cut.", user.Mention, n)
	}

	w.cut[n-1] = true
	w.Logf("%s cut wire %d (%s)", user.Name, n, w.wires[n-1])

	if n == w.correct {
		w.Solve(ctx, user)
		return fmt.Sprintf("%s The %s wire is cut and module #%d (Wires) is solved!", user.Mention, w.wires[n-1], w.Ident()), nil
	}

	w.Strike(ctx, user)
	return fmt.Sprintf("%s Strike! The %s wire was not the one. Module #%d (Wires), %d strikes on the bomb.",
		user.Mention, w.wires[n-1], w.Ident(), w.Bomb().Strikes()), nil
}

func (w *Wires) render() string {
	lines := make([]string, len(w.wires))
	for i, c := range w.wires {
		line := fmt.Sprintf("%d: %s", i+1, c)
		if w.cut[i] {
			line += " (cut)"
		}
		lines[i] = line
	}
	return fmt.Sprintf("Module #%d (Wires), wires from top to bottom:\n%s", w.Ident(), strings.Join(lines, "\n"))
}

// CorrectWire returns the 1-based index of the wire to cut, per the vanilla
// rule table for the given wire count.
func CorrectWire(wires []Color, serialOdd bool) int {
	last := wires[len(wires)-1]
	switch len(wires) {
	case 3:
		switch {
		case count(wires, Red) == 0:
			return 2
		case last == White:
			return len(wires)
		case count(wires, Blue) > 1:
			return lastIndex(wires, Blue)
		default:
			return len(wires)
		}
	case 4:
		switch {
		case count(wires, Red) > 1 && serialOdd:
			return lastIndex(wires, Red)
		case last == Yellow && count(wires, Red) == 0:
			return 1
		case count(wires, Blue) == 1:
			return 1
		case count(wires, Yellow) > 1:
			return len(wires)
		default:
			return 2
		}
	case 5:
		switch {
		case last == Black && serialOdd:
			return 4
		case count(wires, Red) == 1 && count(wires, Yellow) > 1:
			return 1
		case count(wires, Black) == 0:
			return 2
		default:
			return 1
		}
	default: // 6 wires
		switch {
		case count(wires, Yellow) == 0 && serialOdd:
			return 3
		case count(wires, Yellow) == 1 && count(wires, White) > 1:
			return 4
		case count(wires, Red) == 0:
			return len(wires)
		default:
			return 4
		}
	}
}

func count(wires []Color, c Color) int {
	n := 0
	for _, w := range wires {
		if w == c {
			n++
		}
	}
	return n
}

func lastIndex(wires []Color, c Color) int {
	for i := len(wires) - 1; i >= 0; i-- {
		if wires[i] == c {
			return i + 1
		}
	}
	return 0
}

func joinColors(wires []Color) string {
	parts := make([]string, len(wires))
	for i, c := range wires {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
