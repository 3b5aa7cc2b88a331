// Package button implements the vanilla Button module: tap it, or hold it
// and release on the digit the colored strip calls for, depending on the
// button's color, its label and the bomb's edgework.
package button

import (
	"context"
	"fmt"

	"ktane-bot/internal/bomb"
)

// Action is the correct way to handle the button.
type Action int

// Button actions.
const (
	ActionTap Action = iota
	ActionHold
)

var (
	buttonColors = []string{"red", "blue", "yellow", "white"}
	buttonLabels = []string{"ABORT", "DETONATE", "HOLD", "PRESS"}
	stripColors  = []string{"blue", "white", "yellow", "red"}
)

// Info describes the module to the registry.
var Info = bomb.ModuleInfo{
	Identifiers: []string{"button", "theButton"},
	Name:        "The Button",
	New:         New,
}

// Button is one Button module instance.
type Button struct {
	bomb.ModuleBase
	color string
	label string
	held  bool
	strip string
}

// New constructs a Button module with a random color and label.
func New(b *bomb.Bomb, ident int) bomb.Module {
	rng := b.Rand()
	m := &Button{
		ModuleBase: bomb.NewModuleBase(b, ident, "The Button"),
		color:      buttonColors[rng.Intn(len(buttonColors))],
		label:      buttonLabels[rng.Intn(len(buttonLabels))],
	}
	m.Logf("button: %s, labeled %s", m.color, m.label)
	return m
}

// HandleCommand processes a Button command.
func (m *Button) HandleCommand(ctx context.Context, user bomb.User, cmd string, args []string) (string, error) {
	if reply, handled, err := m.HandleBaseCommand(ctx, user, cmd, args, m.render); handled {
		return reply, err
	}

	if m.Solved() {
		return "", bomb.Conflictf("%s Module #%d (The Button) has already been solved.", user.Mention, m.Ident())
	}

	switch cmd {
	case "tap":
		return m.tap(ctx, user, args)
	case "hold":
		return m.hold(ctx, user, args)
	case "release":
		return m.release(ctx, user, args)
	}
	return "", bomb.Usagef("%s Commands for The Button: `tap`, `hold`, `release <digit>`, `view`, `claim`, `unclaim`, `claimview`.", user.Mention)
}

func (m *Button) tap(ctx context.Context, user bomb.User, args []string) (string, error) {
	if len(args) > 0 {
		return "", bomb.Usagef("%s Trailing arguments.", user.Mention)
	}
	if m.held {
		return "", bomb.Conflictf("%s The button is being held; `release <digit>` it instead.", user.Mention)
	}

	m.Logf("%s tapped the button", user.Name)
	if m.correctAction() == ActionTap {
		m.Solve(ctx, user)
		return fmt.Sprintf("%s The button flashes and module #%d (The Button) is solved!", user.Mention, m.Ident()), nil
	}
	m.Strike(ctx, user)
	return fmt.Sprintf("%s Strike! Tapping was wrong - this button wanted to be held. %d strikes on the bomb.",
		user.Mention, m.Bomb().Strikes()), nil
}

func (m *Button) hold(ctx context.Context, user bomb.User, args []string) (string, error) {
	if len(args) > 0 {
		return "", bomb.Usagef("%s Trailing arguments.", user.Mention)
	}
	if m.held {
		return "", bomb.Conflictf("%s The button is already being held.", user.Mention)
	}

	m.held = true
	m.strip = stripColors[m.Bomb().Rand().Intn(len(stripColors))]
	m.Logf("%s held the button, strip lit %s", user.Name, m.strip)
	return fmt.Sprintf("%s You hold the button. A colored strip lights up: %s.", user.Mention, m.strip), nil
}

func (m *Button) release(ctx context.Context, user bomb.User, args []string) (string, error) {
	if !m.held {
		return "", bomb.Conflictf("%s Nobody is holding the button.", user.Mention)
	}
	if len(args) != 1 || len(args[0]) != 1 || args[0][0] < '0' || args[0][0] > '9' {
		return "", bomb.Usagef("%s Release when the countdown timer shows which digit? Usage: `release <digit>`.", user.Mention)
	}

	digit := int(args[0][0] - '0')
	m.held = false
	m.Logf("%s released the button on %d", user.Name, digit)

	if m.correctAction() == ActionHold && digit == ReleaseDigit(m.strip) {
		m.Solve(ctx, user)
		return fmt.Sprintf("%s The button clicks back up and module #%d (The Button) is solved!", user.Mention, m.Ident()), nil
	}

	m.Strike(ctx, user)
	if m.correctAction() == ActionTap {
		return fmt.Sprintf("%s Strike! This button wanted a quick tap, not a hold. %d strikes on the bomb.",
			user.Mention, m.Bomb().Strikes()), nil
	}
	return fmt.Sprintf("%s Strike! That was not the right moment to let go. %d strikes on the bomb.",
		user.Mention, m.Bomb().Strikes()), nil
}

func (m *Button) render() string {
	desc := fmt.Sprintf("Module #%d (The Button): a %s button labeled %s.", m.Ident(), m.color, m.label)
	if m.held {
		desc += fmt.Sprintf(" It is being held and the strip lights up %s.", m.strip)
	}
	return desc
}

func (m *Button) correctAction() Action {
	b := m.Bomb()
	return CorrectAction(m.color, m.label, b.BatteryCount(), b.HasLitIndicator("CAR"), b.HasLitIndicator("FRK"))
}

// CorrectAction applies the vanilla rule table, first matching rule wins.
func CorrectAction(color, label string, batteries int, litCAR, litFRK bool) Action {
	switch {
	case color == "blue" && label == "ABORT":
		return ActionHold
	case batteries > 1 && label == "DETONATE":
		return ActionTap
	case color == "white" && litCAR:
		return ActionHold
	case batteries > 2 && litFRK:
		return ActionTap
	case color == "yellow":
		return ActionHold
	case color == "red" && label == "HOLD":
		return ActionTap
	default:
		return ActionHold
	}
}

// ReleaseDigit returns the countdown digit to release on for a strip color.
func ReleaseDigit(strip string) int {
	switch strip {
	case "blue":
		return 4
	case "yellow":
		return 5
	default:
		return 1
	}
}
