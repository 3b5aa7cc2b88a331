package bomb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// stubModule is a minimal module for engine tests: `solve` solves it,
// `strike` records a strike.
type stubModule struct {
	ModuleBase
}

func newStubInfo(name string, modded bool, ids ...string) ModuleInfo {
	return ModuleInfo{
		Identifiers: ids,
		Name:        name,
		Modded:      modded,
		New: func(b *Bomb, ident int) Module {
			return &stubModule{ModuleBase: NewModuleBase(b, ident, name)}
		},
	}
}

func (m *stubModule) HandleCommand(ctx context.Context, user User, cmd string, args []string) (string, error) {
	if reply, handled, err := m.HandleBaseCommand(ctx, user, cmd, args, func() string {
		return fmt.Sprintf("Module #%d (%s), nothing to see.", m.Ident(), m.DisplayName())
	}); handled {
		return reply, err
	}

	switch cmd {
	case "solve":
		if m.Solved() {
			return "", Conflictf("already solved")
		}
		m.Solve(ctx, user)
		return fmt.Sprintf("%s Module #%d solved!", user.Mention, m.Ident()), nil
	case "strike":
		m.Strike(ctx, user)
		return fmt.Sprintf("%s Strike on module #%d.", user.Mention, m.Ident()), nil
	}
	return "", Usagef("unknown stub command: %s", cmd)
}

// fakeMessenger records outbound messages and hands out fake approval polls.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []string
	prompts []string
	poll    *fakePoll
	pollErr error
}

func (f *fakeMessenger) SendText(ctx context.Context, channelID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) PromptApproval(ctx context.Context, channelID int64, text, emoji string) (ApprovalPoll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	f.prompts = append(f.prompts, text)
	if f.poll == nil {
		f.poll = newFakePoll()
	}
	return f.poll, nil
}

func (f *fakeMessenger) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeMessenger) contains(substr string) bool {
	for _, msg := range f.messages() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func (f *fakeMessenger) activePoll() *fakePoll {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.poll
}

// fakePoll implements ApprovalPoll with test-controlled approvals.
type fakePoll struct {
	mu        sync.Mutex
	approvals map[int64]bool
	closed    bool
	wake      chan struct{}
}

func newFakePoll() *fakePoll {
	return &fakePoll{
		approvals: make(map[int64]bool),
		wake:      make(chan struct{}, 1),
	}
}

func (p *fakePoll) approve(userID int64) {
	p.mu.Lock()
	p.approvals[userID] = true
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *fakePoll) Wake() <-chan struct{} { return p.wake }

func (p *fakePoll) Approvals() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, 0, len(p.approvals))
	for id := range p.approvals {
		ids = append(ids, id)
	}
	return ids
}

func (p *fakePoll) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePoll) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeArchiver publishes to memory, or fails when err is set.
type fakeArchiver struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (a *fakeArchiver) Publish(ctx context.Context, text string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.published = append(a.published, text)
	return fmt.Sprintf("https://paste.example/%d.txt", len(a.published)), nil
}

var errArchiverDown = errors.New("paste service unreachable")
