package bomb

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// session pairs a bomb with the mutex that serializes its channel's command
// processing. Commands on one channel run to completion before the next one;
// different channels proceed independently.
type session struct {
	mu     sync.Mutex
	bomb   *Bomb
	ended  bool
	voting bool
}

// Manager owns the active-session registry (one session per channel), routes
// incoming commands and performs session teardown. It is the only component
// that inserts into or removes from the registry, guarded so that concurrent
// arm/end events on the same channel cannot corrupt it.
type Manager struct {
	registry *Registry
	deps     Deps

	mu       sync.Mutex
	sessions map[int64]*session
	shutdown bool

	done     chan struct{}
	doneOnce sync.Once
}

// NewManager creates a manager around a sealed module registry.
func NewManager(registry *Registry, deps Deps) *Manager {
	return &Manager{
		registry: registry,
		deps:     deps,
		sessions: make(map[int64]*session),
		done:     make(chan struct{}),
	}
}

// Done is closed when the process should exit: shutdown mode was requested
// and the last active session has ended.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// ActiveCount returns the number of active sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Dispatch routes one incoming command. The first token is the verb; global
// verbs are handled here, anything else goes to the channel's session.
func (m *Manager) Dispatch(ctx context.Context, chat Chat, user User, parts []string) {
	if len(parts) == 0 {
		return
	}
	command := strings.ToLower(parts[0])
	rest := parts[1:]

	switch command {
	case "run":
		m.cmdRun(ctx, chat, user, rest)
		return
	case "bombs":
		m.cmdBombs(ctx, chat, user, rest)
		return
	case "modules":
		m.send(ctx, chat.ID, m.registry.Describe())
		return
	case "shutdown":
		m.cmdShutdown(ctx, chat, user, rest)
		return
	}

	s := m.lookup(chat.ID)
	if s == nil {
		m.send(ctx, chat.ID, fmt.Sprintf("%s No bomb is currently running in this channel. Start one with `%srun`.", user.Mention, m.deps.Settings.Prefix))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		m.send(ctx, chat.ID, fmt.Sprintf("%s No bomb is currently running in this channel. Start one with `%srun`.", user.Mention, m.deps.Settings.Prefix))
		return
	}

	if command == "detonate" {
		m.cmdDetonate(ctx, s, user, rest)
		return
	}

	reply, err := s.bomb.HandleCommand(ctx, user, command, rest)
	if err != nil {
		m.replyError(ctx, chat.ID, user, err)
		return
	}
	if reply != "" {
		m.send(ctx, chat.ID, reply)
	}

	// A solve report may have completed the bomb.
	if s.bomb.SolvedCount() == len(s.bomb.Modules()) {
		m.finishLocked(ctx, s, false)
	}
}

// lookup returns the channel's session, or nil.
func (m *Manager) lookup(channelID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[channelID]
}

// cmdRun arms a new bomb in the channel. The existence check, shutdown check
// and registry insert are atomic with respect to concurrent arms and ends on
// the same channel.
func (m *Manager) cmdRun(ctx context.Context, chat Chat, user User, parts []string) {
	hummus := len(parts) > 0 && strings.EqualFold(parts[0], "hummus")
	if hummus {
		parts = parts[1:]
	}

	rng := rand.New(rand.NewSource(rand.Int63()))

	m.mu.Lock()
	if _, exists := m.sessions[chat.ID]; exists {
		m.mu.Unlock()
		m.send(ctx, chat.ID, fmt.Sprintf("%s A bomb is already ticking in this channel!", user.Mention))
		return
	}
	if m.shutdown {
		m.mu.Unlock()
		m.send(ctx, chat.ID, fmt.Sprintf("%s The bot is in shutdown mode. No new bombs can be started.", user.Mention))
		return
	}

	ctors, err := ResolveDistribution(m.registry, parts, m.deps.Settings.MaxModules, rng)
	if err != nil {
		m.mu.Unlock()
		if errors.Is(err, ErrRunUsage) {
			m.send(ctx, chat.ID, m.runUsage(user))
			return
		}
		m.replyError(ctx, chat.ID, user, err)
		return
	}

	b := New(chat, hummus, ctors, m.deps, rng)
	m.sessions[chat.ID] = &session{bomb: b}
	m.mu.Unlock()

	log.Info().
		Int64("channel_id", chat.ID).
		Int("modules", len(b.Modules())).
		Bool("hummus", hummus).
		Str("serial", b.Serial()).
		Msg("Bomb armed")

	plural := "modules"
	if len(b.Modules()) == 1 {
		plural = "module"
	}
	m.send(ctx, chat.ID, fmt.Sprintf("A bomb with %d %s has been armed!\nEdgework: `%s`", len(b.Modules()), plural, b.Edgework()))
}

// cmdBombs lists every running bomb across channels.
func (m *Manager) cmdBombs(ctx context.Context, chat Chat, user User, parts []string) {
	if len(parts) > 0 {
		m.send(ctx, chat.ID, fmt.Sprintf("%s Trailing arguments.", user.Mention))
		return
	}

	m.mu.Lock()
	channels := make([]int64, 0, len(m.sessions))
	snapshot := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		channels = append(channels, id)
		snapshot = append(snapshot, s)
	}
	m.mu.Unlock()

	if len(snapshot) == 0 {
		m.send(ctx, chat.ID, fmt.Sprintf("%s No bombs are running.", user.Mention))
		return
	}

	order := make([]int, len(channels))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return channels[order[i]] < channels[order[j]] })

	response := fmt.Sprintf("%s Currently running bombs:", user.Mention)
	for _, i := range order {
		s := snapshot[i]
		s.mu.Lock()
		if !s.ended {
			b := s.bomb
			response += fmt.Sprintf("\n- %d out of %d modules solved after %s and %s in channel %d",
				b.SolvedCount(), len(b.Modules()), b.TimeFormatted(), strikeCount(b.Strikes()), channels[i])
		}
		s.mu.Unlock()
	}
	m.send(ctx, chat.ID, response)
}

// cmdShutdown puts the bot into shutdown mode: no new bombs, process exit
// once the last active session ends. Owner only.
func (m *Manager) cmdShutdown(ctx context.Context, chat Chat, user User, parts []string) {
	if len(parts) > 0 {
		m.send(ctx, chat.ID, fmt.Sprintf("%s Trailing arguments.", user.Mention))
		return
	}
	if !m.isOwner(user) {
		m.send(ctx, chat.ID, fmt.Sprintf("%s You don't have permission to use this command.", user.Mention))
		return
	}

	m.mu.Lock()
	m.shutdown = true
	channels := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		channels = append(channels, id)
	}
	m.mu.Unlock()

	log.Info().Int("active_bombs", len(channels)).Msg("Shutdown mode activated")

	for _, id := range channels {
		m.send(ctx, id, "The bot is going into shutdown mode. No new bombs can be started.")
	}

	if len(channels) == 0 {
		m.send(ctx, chat.ID, "***oof***")
		m.doneOnce.Do(func() { close(m.done) })
		return
	}
	m.send(ctx, chat.ID, fmt.Sprintf("%s Shutdown mode activated", user.Mention))
}

// finishLocked tears the session down: final summary, best-effort transcript
// upload and removal from the registry. The caller holds s.mu; the removal
// happens exactly once even if the upload fails.
func (m *Manager) finishLocked(ctx context.Context, s *session, detonated bool) {
	if s.ended {
		return
	}
	s.ended = true
	b := s.bomb

	m.mu.Lock()
	delete(m.sessions, b.Chat().ID)
	remaining := len(m.sessions)
	shuttingDown := m.shutdown
	m.mu.Unlock()

	logurl := m.uploadTranscript(ctx, b)

	var summary string
	if detonated {
		summary = fmt.Sprintf(":boom: The bomb has been **detonated** after %s and %s. %s",
			b.TimeFormatted(), strikeCount(b.Strikes()), logurl)
	} else {
		summary = fmt.Sprintf("The bomb has been defused after %s and %s. %s",
			b.TimeFormatted(), strikeCount(b.Strikes()), logurl)
	}
	m.send(ctx, b.Chat().ID, summary)

	log.Info().
		Int64("channel_id", b.Chat().ID).
		Bool("detonated", detonated).
		Int("strikes", b.Strikes()).
		Str("duration", b.TimeFormatted()).
		Msg("Bomb ended")

	b.record(func(ctx context.Context, r SolveRecorder) error {
		return r.RecordBombEnd(ctx, detonated)
	})

	if shuttingDown && remaining == 0 {
		m.doneOnce.Do(func() { close(m.done) })
	}
}

// uploadTranscript publishes the transcript and renders the result line.
// Upload failures degrade to an inline diagnostic.
func (m *Manager) uploadTranscript(ctx context.Context, b *Bomb) string {
	if m.deps.Archiver == nil {
		return ""
	}
	url, err := m.deps.Archiver.Publish(ctx, b.Transcript())
	if err != nil {
		log.Warn().Err(err).Int64("channel_id", b.Chat().ID).Msg("Transcript upload failed")
		return fmt.Sprintf("Log upload failed: `%v`", err)
	}
	return "Log: " + url
}

func (m *Manager) isOwner(user User) bool {
	return m.deps.Settings.OwnerID != 0 && m.deps.Settings.OwnerID == user.ID
}

// send delivers a message, logging delivery failures. Outbound sends are the
// transport's concern; a failed send never affects session state.
func (m *Manager) send(ctx context.Context, channelID int64, text string) {
	if err := m.deps.Messenger.SendText(ctx, channelID, text); err != nil {
		log.Warn().Err(err).Int64("channel_id", channelID).Msg("Failed to send message")
	}
}

// replyError renders a user-facing error inline and logs anything else.
func (m *Manager) replyError(ctx context.Context, channelID int64, user User, err error) {
	if IsUserError(err) {
		m.send(ctx, channelID, err.Error())
		return
	}
	log.Error().Err(err).Int64("channel_id", channelID).Msg("Command failed")
	m.send(ctx, channelID, fmt.Sprintf("%s Something went wrong: `%v`", user.Mention, err))
}

// runUsage renders the arm command's usage text, including the distribution
// table.
func (m *Manager) runUsage(user User) string {
	prefix := m.deps.Settings.Prefix
	usage := fmt.Sprintf(
		"%s Usage: `%srun [hummus] <module count> <module distribution> [-<module 1> [-<module 2> [...]]]` or "+
			"`%srun [hummus] <module 1>[*<count>] [<module 2>[*<count>] [...]]`.\n"+
			"For example:\n - `%srun hummus 7 vanilla` - 7 vanilla modules that use the modified manual by LtHummus\n"+
			" - `%srun 12 mixed -wires` - 12 modules, half of which being vanilla. Wires modules will not be generated\n"+
			" - `%srun keypad*3` - three Keypad modules and nothing else\n"+
			"Use `%smodules` to see the implemented modules.\nAvailable distributions:",
		user.Mention, prefix, prefix, prefix, prefix, prefix, prefix)

	shown := []string{"vanilla", "mods", "mixed", "mixedlight", "mixedheavy", "light", "heavy", "extralight", "extraheavy"}
	for _, name := range shown {
		vanilla := int(Distributions[name] * 100)
		usage += fmt.Sprintf("\n`%s`: %d%% vanilla, %d%% modded", name, vanilla, 100-vanilla)
	}
	return usage
}

func strikeCount(n int) string {
	if n == 1 {
		return "1 strike"
	}
	return fmt.Sprintf("%d strikes", n)
}
