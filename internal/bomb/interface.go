// Package bomb implements the defusal session engine: edgework generation,
// the module plugin protocol, module distribution at arm time, command routing
// and the detonation vote. Concrete puzzle modules live in internal/modules
// and plug in through the Module interface.
package bomb

import "context"

// User identifies the author of an incoming command.
type User struct {
	ID      int64
	Name    string
	Mention string
}

// Chat identifies the channel a session is bound to. Private chats relax the
// detonation vote requirement.
type Chat struct {
	ID      int64
	Private bool
}

// Module defines the interface every puzzle module must implement.
// A module owns its puzzle state; the session owns the module. Modules report
// strikes and solves back to their Bomb and read its edgework.
type Module interface {
	// Ident returns the 1-based module number, stable for the session's lifetime.
	Ident() int

	// DisplayName returns the human-readable module name (e.g. "Wires").
	DisplayName() string

	// Solved reports whether the module has been solved. Monotonic.
	Solved() bool

	// Claimant returns the user currently claiming the module, or nil.
	Claimant() *User

	// HandleCommand processes one module-level command and returns the reply
	// text. Malformed input yields a UsageError, claim conflicts a
	// ConflictError; both are rendered inline by the router.
	HandleCommand(ctx context.Context, user User, cmd string, args []string) (string, error)

	// Status returns a one-line claim/solve status for listings.
	Status() string

	// LogText returns the module's transcript section for the archive upload.
	LogText() string
}

// NewModuleFunc constructs a module bound to its owning bomb and ordinal.
type NewModuleFunc func(b *Bomb, ident int) Module

// ModuleInfo describes a module implementation to the registry.
type ModuleInfo struct {
	// Identifiers lists every name the module answers to in arm commands.
	// The first entry is canonical.
	Identifiers []string

	// Name is the display name shown to players.
	Name string

	// Modded partitions the module into the modded catalogue instead of vanilla.
	Modded bool

	// New is the module constructor.
	New NewModuleFunc
}

// Messenger is the outbound transport boundary. The engine only needs to send
// text and to prompt for approval reactions; the concrete chat platform lives
// in internal/bot.
type Messenger interface {
	// SendText delivers a message to a channel.
	SendText(ctx context.Context, channelID int64, text string) error

	// PromptApproval posts a prompt with a single reaction affordance and
	// returns a poll tracking who has approved so far.
	PromptApproval(ctx context.Context, channelID int64, text, emoji string) (ApprovalPoll, error)
}

// ApprovalPoll tracks approvals on a detonation prompt.
type ApprovalPoll interface {
	// Wake is signalled every time the approval set changes.
	Wake() <-chan struct{}

	// Approvals returns the IDs of all users that have approved so far.
	Approvals() []int64

	// Close detaches the poll from the transport.
	Close() error
}

// Archiver publishes a transcript and returns its URL. Failures degrade to an
// inline diagnostic; they never block session teardown.
type Archiver interface {
	Publish(ctx context.Context, text string) (string, error)
}

// SolveRecorder receives best-effort defuser statistics. A nil recorder
// disables recording.
type SolveRecorder interface {
	RecordSolve(ctx context.Context, user User) error
	RecordStrike(ctx context.Context, user User) error
	RecordBombEnd(ctx context.Context, detonated bool) error
}
