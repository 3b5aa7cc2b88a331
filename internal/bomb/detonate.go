package bomb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// cmdDetonate handles the detonate verb. The bot owner and private chats
// detonate immediately; everyone else has to win an approval vote. Called
// with s.mu held.
func (m *Manager) cmdDetonate(ctx context.Context, s *session, user User, parts []string) {
	if len(parts) > 0 {
		m.send(ctx, s.bomb.Chat().ID, fmt.Sprintf("%s Trailing arguments.", user.Mention))
		return
	}

	if m.isOwner(user) || s.bomb.Chat().Private {
		m.finishLocked(ctx, s, true)
		return
	}

	if s.voting {
		m.send(ctx, s.bomb.Chat().ID, fmt.Sprintf("%s A detonation vote is already in progress.", user.Mention))
		return
	}
	s.voting = true

	// The vote waits on transport events; it runs as its own task so command
	// processing on this and other channels continues meanwhile.
	go m.runDetonateVote(s, user)
}

// runDetonateVote runs the bounded approval poll: wait for the next approval
// event or the deadline, recount, and either detonate, keep waiting, or give
// up. The loop always terminates at its deadline no matter how many
// intermediate events arrive, and it becomes a no-op once the session has
// ended by other means.
func (m *Manager) runDetonateVote(s *session, requester User) {
	defer func() {
		s.mu.Lock()
		s.voting = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	settings := m.deps.Settings
	channelID := s.bomb.Chat().ID

	prompt := fmt.Sprintf("%s wants to detonate this bomb in an explosion-proof container instead of defusing it and selling the parts for :dollar:. If you agree, react with %s",
		requester.Mention, settings.DetonateEmoji)

	poll, err := m.deps.Messenger.PromptApproval(ctx, channelID, prompt, settings.DetonateEmoji)
	if err != nil {
		log.Warn().Err(err).Int64("channel_id", channelID).Msg("Failed to start detonation vote")
		return
	}
	defer poll.Close()

	timer := time.NewTimer(settings.DetonateTimeout)
	defer timer.Stop()

	for {
		select {
		case <-poll.Wake():
			if m.sessionEnded(s) {
				return
			}
			if m.countApprovals(poll, requester) >= settings.DetonateApproval {
				m.detonateFromVote(ctx, s)
				return
			}
			// Below threshold; re-arm the wait.

		case <-timer.C:
			if m.sessionEnded(s) {
				return
			}
			count := m.countApprovals(poll, requester)
			if count >= settings.DetonateApproval {
				m.detonateFromVote(ctx, s)
				return
			}
			m.send(ctx, channelID, fmt.Sprintf("Only %d out of %d needed people agreed. Not detonating.",
				count, settings.DetonateApproval))
			return
		}
	}
}

// countApprovals counts distinct approving users, excluding the requester.
func (m *Manager) countApprovals(poll ApprovalPoll, requester User) int {
	count := 0
	for _, id := range poll.Approvals() {
		if id != requester.ID {
			count++
		}
	}
	return count
}

func (m *Manager) sessionEnded(s *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// detonateFromVote ends the session from the vote task. Nothing happens if
// the session already ended while the vote was in flight.
func (m *Manager) detonateFromVote(ctx context.Context, s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.finishLocked(ctx, s, true)
}
