package bomb

import (
	"context"
	"fmt"
	"strings"
)

// ModuleBase carries the state every module shares: ordinal, display name,
// claim, solved flag and the transcript log. Concrete modules embed it and
// delegate the claim-related commands to HandleBaseCommand.
type ModuleBase struct {
	bomb     *Bomb
	ident    int
	name     string
	claimant *User
	solved   bool
	entries  []string
}

// NewModuleBase binds a base to its owning bomb and ordinal.
func NewModuleBase(b *Bomb, ident int, name string) ModuleBase {
	return ModuleBase{bomb: b, ident: ident, name: name}
}

// Bomb returns the owning session, for edgework queries.
func (m *ModuleBase) Bomb() *Bomb { return m.bomb }

// Ident returns the 1-based module number.
func (m *ModuleBase) Ident() int { return m.ident }

// DisplayName returns the module's display name.
func (m *ModuleBase) DisplayName() string { return m.name }

// Solved reports whether the module is solved.
func (m *ModuleBase) Solved() bool { return m.solved }

// Claimant returns the claiming user, or nil.
func (m *ModuleBase) Claimant() *User { return m.claimant }

// Status returns the one-line claim/solve status used by find listings.
func (m *ModuleBase) Status() string {
	switch {
	case m.solved:
		return "solved"
	case m.claimant != nil:
		return "claimed by " + m.claimant.Name
	default:
		return "unclaimed"
	}
}

// Logf appends a line to the module's transcript section.
func (m *ModuleBase) Logf(format string, args ...any) {
	m.entries = append(m.entries, fmt.Sprintf(format, args...))
}

// LogText renders the module's transcript section.
func (m *ModuleBase) LogText() string {
	header := fmt.Sprintf("#%d %s", m.ident, m.name)
	if len(m.entries) == 0 {
		return header
	}
	return header + "\n" + strings.Join(m.entries, "\n")
}

// Strike reports a strike on this module to the session.
func (m *ModuleBase) Strike(ctx context.Context, user User) {
	m.Logf("strike by %s", user.Name)
	m.bomb.RecordStrike(ctx, m.bombModule(), user)
}

// Solve marks the module solved, releases the claim and reports the solve.
// It returns true when the whole bomb is now defused; the caller's reply is
// still delivered before teardown runs.
func (m *ModuleBase) Solve(ctx context.Context, user User) bool {
	m.solved = true
	m.claimant = nil
	m.Logf("solved by %s", user.Name)
	return m.bomb.RecordSolve(ctx, m.bombModule(), user)
}

// bombModule finds the full Module this base belongs to. The base cannot hold
// the embedding struct directly without knowing its type.
func (m *ModuleBase) bombModule() Module {
	return m.bomb.modules[m.ident-1]
}

// HandleBaseCommand processes the commands common to all modules: claim,
// unclaim, view and claimview. It reports whether the command was handled;
// unhandled commands fall through to the module's own handler. The view
// callback renders the module's puzzle display.
func (m *ModuleBase) HandleBaseCommand(ctx context.Context, user User, cmd string, args []string, view func() string) (string, bool, error) {
	switch cmd {
	case "claim":
		reply, err := m.claim(user, args)
		return reply, true, err
	case "unclaim":
		reply, err := m.unclaim(user, args)
		return reply, true, err
	case "view":
		if len(args) > 0 {
			return "", true, Usagef("%s Trailing arguments.", user.Mention)
		}
		return view(), true, nil
	case "claimview", "cv":
		reply, err := m.claim(user, args)
		if err != nil {
			return "", true, err
		}
		return reply + "\n" + view(), true, nil
	}
	return "", false, nil
}

func (m *ModuleBase) claim(user User, args []string) (string, error) {
	if len(args) > 0 {
		return "", Usagef("%s Trailing arguments.", user.Mention)
	}
	if m.solved {
		return "", Conflictf("%s Module #%d (%s) has already been solved.", user.Mention, m.ident, m.name)
	}
	if m.claimant != nil {
		if m.claimant.ID == user.ID {
			return "", Conflictf("%s You have already claimed module #%d (%s).", user.Mention, m.ident, m.name)
		}
		return "", Conflictf("%s Module #%d (%s) is already claimed by %s.", user.Mention, m.ident, m.name, m.claimant.Name)
	}

	claimant := user
	m.claimant = &claimant
	m.Logf("claimed by %s", user.Name)
	return fmt.Sprintf("%s Module #%d (%s) is yours now.", user.Mention, m.ident, m.name), nil
}

func (m *ModuleBase) unclaim(user User, args []string) (string, error) {
	if len(args) > 0 {
		return "", Usagef("%s Trailing arguments.", user.Mention)
	}
	if m.claimant == nil || m.claimant.ID != user.ID {
		return "", Conflictf("%s You have not claimed module #%d (%s).", user.Mention, m.ident, m.name)
	}
	m.claimant = nil
	m.Logf("unclaimed by %s", user.Name)
	return fmt.Sprintf("%s Module #%d (%s) is no longer claimed.", user.Mention, m.ident, m.name), nil
}
