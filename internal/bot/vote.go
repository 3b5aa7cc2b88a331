package bot

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const (
	voteUnique = "detvote"
	votePrefix = voteUnique + "|"
)

// pollRegistry tracks the open detonation polls so callback presses can be
// routed to the right one.
type pollRegistry struct {
	mu    sync.Mutex
	next  int64
	polls map[string]*votePoll
}

func newPollRegistry() *pollRegistry {
	return &pollRegistry{polls: make(map[string]*votePoll)}
}

// create registers a fresh poll under a unique id.
func (r *pollRegistry) create() *votePoll {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	p := &votePoll{
		id:        strconv.FormatInt(r.next, 10),
		registry:  r,
		approvals: make(map[int64]bool),
		wake:      make(chan struct{}, 1),
	}
	r.polls[p.id] = p
	return p
}

func (r *pollRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.polls, id)
}

// handleVote toggles the sender's approval on the poll named by the callback
// data. Presses on a closed poll are answered but otherwise ignored.
func (r *pollRegistry) handleVote(c tele.Context, id string) error {
	r.mu.Lock()
	p := r.polls[id]
	r.mu.Unlock()

	if p == nil {
		return c.Respond(&tele.CallbackResponse{Text: "This vote has ended."})
	}

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	added := p.toggle(sender.ID)
	if added {
		return c.Respond(&tele.CallbackResponse{Text: "Vote recorded."})
	}
	return c.Respond(&tele.CallbackResponse{Text: "Vote withdrawn."})
}

// votePoll implements bomb.ApprovalPoll over an inline keyboard message.
type votePoll struct {
	id       string
	registry *pollRegistry

	mu        sync.Mutex
	approvals map[int64]bool
	closed    bool

	wake chan struct{}

	bot *tele.Bot
	msg *tele.Message
}

// attach binds the poll to the prompt message so Close can drop the keyboard.
func (p *votePoll) attach(bot *tele.Bot, msg *tele.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bot = bot
	p.msg = msg
}

// toggle flips the user's approval and reports whether it is now set.
func (p *votePoll) toggle(userID int64) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	added := !p.approvals[userID]
	if added {
		p.approvals[userID] = true
	} else {
		delete(p.approvals, userID)
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return added
}

// Wake is signalled whenever the approval set changes.
func (p *votePoll) Wake() <-chan struct{} {
	return p.wake
}

// Approvals returns the IDs of all users that have approved so far.
func (p *votePoll) Approvals() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, 0, len(p.approvals))
	for id := range p.approvals {
		ids = append(ids, id)
	}
	return ids
}

// Close detaches the poll and removes the vote button. Best effort: a failed
// edit only loses the keyboard, not the session.
func (p *votePoll) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	bot, msg := p.bot, p.msg
	p.mu.Unlock()

	p.registry.remove(p.id)

	if bot != nil && msg != nil {
		if _, err := bot.EditReplyMarkup(msg, nil); err != nil {
			log.Debug().Err(err).Msg("Failed to remove vote keyboard")
		}
	}
	return nil
}
