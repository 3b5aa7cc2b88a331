package bomb

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Settings carries the engine knobs resolved from configuration.
type Settings struct {
	OwnerID          int64
	Prefix           string
	DetonateTimeout  time.Duration
	DetonateApproval int
	DetonateEmoji    string
	MaxModules       int
	MaxUnclaimedList int
	MaxFoundList     int
}

// Deps groups the external collaborators a session needs.
type Deps struct {
	Messenger Messenger
	Archiver  Archiver
	Recorder  SolveRecorder
	Settings  Settings
}

// Bomb is one defusal session, bound to a single chat channel. The manager
// serializes all command processing per channel, so module state needs no
// locking of its own.
type Bomb struct {
	chat      Chat
	hummus    bool
	deps      Deps
	strikes   int
	startTime time.Time
	serial    string
	edgework  []Widget
	modules   []Module
	rng       *rand.Rand
}

// New creates a session from an ordered constructor list. The list is
// shuffled once so that arm-command order does not leak into the public
// module numbering.
func New(chat Chat, hummus bool, ctors []NewModuleFunc, deps Deps, rng *rand.Rand) *Bomb {
	b := &Bomb{
		chat:      chat,
		hummus:    hummus,
		deps:      deps,
		startTime: time.Now(),
		serial:    newSerial(rng),
		edgework:  newEdgework(rng),
		rng:       rng,
	}

	shuffled := make([]NewModuleFunc, len(ctors))
	copy(shuffled, ctors)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	b.modules = make([]Module, len(shuffled))
	for i, ctor := range shuffled {
		b.modules[i] = ctor(b, i+1)
	}
	return b
}

// Chat returns the channel the session is bound to.
func (b *Bomb) Chat() Chat { return b.chat }

// Hummus reports whether the alternative manual variant applies to vanilla
// modules on this bomb.
func (b *Bomb) Hummus() bool { return b.hummus }

// Serial returns the 6-character serial number.
func (b *Bomb) Serial() string { return b.serial }

// Strikes returns the accumulated strike count.
func (b *Bomb) Strikes() int { return b.strikes }

// Modules returns the session's module list in ordinal order.
func (b *Bomb) Modules() []Module { return b.modules }

// Rand returns the session RNG. Safe under the per-channel serialization the
// manager enforces.
func (b *Bomb) Rand() *rand.Rand { return b.rng }

// BatteryCount returns the total number of battery cells on the bomb.
func (b *Bomb) BatteryCount() int {
	count := 0
	for _, w := range b.edgework {
		if bat, ok := w.(Battery); ok {
			count += bat.Count
		}
	}
	return count
}

// HolderCount returns the number of battery holders.
func (b *Bomb) HolderCount() int {
	count := 0
	for _, w := range b.edgework {
		if _, ok := w.(Battery); ok {
			count++
		}
	}
	return count
}

// HasLitIndicator reports whether a lit indicator with the given code exists.
func (b *Bomb) HasLitIndicator(code string) bool {
	for _, w := range b.edgework {
		if ind, ok := w.(Indicator); ok && ind.Lit && ind.Code == code {
			return true
		}
	}
	return false
}

// SerialHasVowel reports whether the serial number contains a vowel.
func (b *Bomb) SerialHasVowel() bool {
	return strings.ContainsAny(b.serial, "AEIOU")
}

// SerialLastDigitOdd reports whether the serial's final digit is odd.
func (b *Bomb) SerialLastDigitOdd() bool {
	last := b.serial[len(b.serial)-1]
	return (last-'0')%2 == 1
}

// Edgework returns the edgework summary line.
func (b *Bomb) Edgework() string {
	return formatEdgework(b.edgework, b.serial)
}

// SolvedCount returns the number of solved modules.
func (b *Bomb) SolvedCount() int {
	count := 0
	for _, m := range b.modules {
		if m.Solved() {
			count++
		}
	}
	return count
}

// Elapsed returns the time since arming.
func (b *Bomb) Elapsed() time.Duration {
	return time.Since(b.startTime)
}

// TimeFormatted renders the elapsed time as h:mm:ss.
func (b *Bomb) TimeFormatted() string {
	seconds := int(b.Elapsed().Seconds())
	minutes := seconds / 60
	seconds %= 60
	hours := minutes / 60
	minutes %= 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// Transcript builds the full log for the archive upload: the edgework line
// followed by every module's own log text, double-newline joined.
func (b *Bomb) Transcript() string {
	sections := make([]string, 0, len(b.modules)+1)
	sections = append(sections, "Edgework: "+b.Edgework())
	for _, m := range b.modules {
		sections = append(sections, m.LogText())
	}
	return strings.Join(sections, "\n\n")
}

// RecordStrike registers a strike caused by user on module m.
func (b *Bomb) RecordStrike(ctx context.Context, m Module, user User) {
	b.strikes++
	log.Info().
		Int64("channel_id", b.chat.ID).
		Int("module", m.Ident()).
		Int64("user_id", user.ID).
		Int("strikes", b.strikes).
		Msg("Strike")
	b.record(func(ctx context.Context, r SolveRecorder) error {
		return r.RecordStrike(ctx, user)
	})
}

// RecordSolve registers a solve by user on module m and reports whether the
// bomb is now fully defused.
func (b *Bomb) RecordSolve(ctx context.Context, m Module, user User) bool {
	log.Info().
		Int64("channel_id", b.chat.ID).
		Int("module", m.Ident()).
		Int64("user_id", user.ID).
		Msg("Module solved")
	b.record(func(ctx context.Context, r SolveRecorder) error {
		return r.RecordSolve(ctx, user)
	})
	return b.SolvedCount() == len(b.modules)
}

// record runs a best-effort recorder call without blocking command handling.
func (b *Bomb) record(fn func(context.Context, SolveRecorder) error) {
	recorder := b.deps.Recorder
	if recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := fn(ctx, recorder); err != nil {
			log.Warn().Err(err).Int64("channel_id", b.chat.ID).Msg("Failed to record defuser stats")
		}
	}()
}

// HandleCommand routes one session-scoped command: either a session verb or
// a numbered module dispatch. The detonate verb is handled by the manager,
// which owns teardown.
func (b *Bomb) HandleCommand(ctx context.Context, user User, command string, parts []string) (string, error) {
	switch command {
	case "edgework":
		return fmt.Sprintf("%s Edgework: `%s`", user.Mention, b.Edgework()), nil
	case "status":
		return b.cmdStatus(), nil
	case "unclaimed":
		return b.cmdUnclaimed(), nil
	case "claims":
		return b.cmdClaims(user), nil
	case "find":
		return b.cmdFind(user, parts)
	case "claimany":
		return b.cmdClaimAny(ctx, user, parts, "claim")
	case "claimanyview", "cvany":
		return b.cmdClaimAny(ctx, user, parts, "claimview")
	}

	if ident, err := strconv.Atoi(command); err == nil {
		return b.dispatchModule(ctx, user, ident, parts)
	}

	return "", Usagef("%s No such command: `%s`. Address a module by its number, e.g. `3 view`.", user.Mention, command)
}

func (b *Bomb) dispatchModule(ctx context.Context, user User, ident int, parts []string) (string, error) {
	if ident < 1 || ident > len(b.modules) {
		return "", Usagef("%s Double check the module number - there are only %d modules on this bomb!", user.Mention, len(b.modules))
	}
	if len(parts) == 0 {
		return "", Usagef("%s What should I do with module %d? You need to give me a command!", user.Mention, ident)
	}
	cmd := strings.ToLower(parts[0])
	return b.modules[ident-1].HandleCommand(ctx, user, cmd, parts[1:])
}

func (b *Bomb) cmdStatus() string {
	var sb strings.Builder
	if b.hummus {
		sb.WriteString("Hummus mode on, ")
	}
	fmt.Fprintf(&sb, "Zen mode on, time: %s, %d strikes, %d out of %d modules solved.",
		b.TimeFormatted(), b.strikes, b.SolvedCount(), len(b.modules))
	return sb.String()
}

// unclaimedModules returns the unsolved modules nobody has claimed.
func (b *Bomb) unclaimedModules() []Module {
	var unclaimed []Module
	for _, m := range b.modules {
		if !m.Solved() && m.Claimant() == nil {
			unclaimed = append(unclaimed, m)
		}
	}
	return unclaimed
}

func (b *Bomb) cmdUnclaimed() string {
	unclaimed := b.unclaimedModules()
	if len(unclaimed) == 0 {
		return "There are no unclaimed modules."
	}

	limit := b.deps.Settings.MaxUnclaimedList
	var reply string
	if limit > 0 && len(unclaimed) > limit {
		reply = fmt.Sprintf("%d randomly chosen unclaimed modules:", limit)
		sample := make([]Module, 0, limit)
		for _, idx := range b.rng.Perm(len(unclaimed))[:limit] {
			sample = append(sample, unclaimed[idx])
		}
		sort.Slice(sample, func(i, j int) bool { return sample[i].Ident() < sample[j].Ident() })
		unclaimed = sample
	} else {
		reply = "Unclaimed modules:"
	}

	for _, m := range unclaimed {
		reply += fmt.Sprintf("\n#%d: %s", m.Ident(), m.DisplayName())
	}
	return reply
}

func (b *Bomb) cmdClaims(user User) string {
	var claims []string
	for _, m := range b.modules {
		if !m.Solved() && m.Claimant() != nil && m.Claimant().ID == user.ID {
			claims = append(claims, fmt.Sprintf("#%d (%s)", m.Ident(), m.DisplayName()))
		}
	}

	switch len(claims) {
	case 0:
		return fmt.Sprintf("%s You have not claimed any modules.", user.Mention)
	case 1:
		return fmt.Sprintf("%s You have only claimed %s.", user.Mention, claims[0])
	default:
		return fmt.Sprintf("%s You have claimed %s and %s.",
			user.Mention, strings.Join(claims[:len(claims)-1], ", "), claims[len(claims)-1])
	}
}

func (b *Bomb) cmdFind(user User, parts []string) (string, error) {
	if len(parts) == 0 {
		return "", Usagef("%s What should I look for?", user.Mention)
	}

	needle := strings.ToLower(strings.Join(parts, " "))
	var found []string
	for _, m := range b.modules {
		if strings.Contains(strings.ToLower(m.DisplayName()), needle) {
			found = append(found, fmt.Sprintf("#%d (%s) - %s", m.Ident(), m.DisplayName(), m.Status()))
		}
	}

	limit := b.deps.Settings.MaxFoundList
	switch {
	case len(found) == 0:
		return fmt.Sprintf("%s Sorry, I couldn't find anything.", user.Mention), nil
	case len(found) == 1:
		return fmt.Sprintf("%s I could only find %s", user.Mention, found[0]), nil
	case limit > 0 && len(found) >= limit:
		return fmt.Sprintf("%s I've found a lot, but here are the first %d modules:\n%s",
			user.Mention, limit, strings.Join(found[:limit], "\n")), nil
	default:
		return fmt.Sprintf("%s Here's what I could find:\n%s", user.Mention, strings.Join(found, "\n")), nil
	}
}

// cmdClaimAny delegates a claim (or claim-and-view) to a uniformly random
// unclaimed, unsolved module.
func (b *Bomb) cmdClaimAny(ctx context.Context, user User, parts []string, claimCmd string) (string, error) {
	unclaimed := b.unclaimedModules()
	if len(unclaimed) == 0 {
		return "", Conflictf("%s There are no unclaimed modules.", user.Mention)
	}
	m := unclaimed[b.rng.Intn(len(unclaimed))]
	return m.HandleCommand(ctx, user, claimCmd, parts)
}
