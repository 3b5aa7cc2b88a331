package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func TestPollRegistryCreateAssignsUniqueIDs(t *testing.T) {
	r := newPollRegistry()
	a := r.create()
	b := r.create()
	assert.NotEqual(t, a.id, b.id)
}

func TestVotePollToggle(t *testing.T) {
	r := newPollRegistry()
	p := r.create()

	assert.Empty(t, p.Approvals())

	added := p.toggle(10)
	assert.True(t, added)
	assert.Equal(t, []int64{10}, p.Approvals())

	// Wake fires on every change.
	select {
	case <-p.Wake():
	default:
		t.Fatal("wake should be signalled after a toggle")
	}

	// Toggling again withdraws the vote.
	added = p.toggle(10)
	assert.False(t, added)
	assert.Empty(t, p.Approvals())
}

func TestVotePollToggleCoalescesWakes(t *testing.T) {
	r := newPollRegistry()
	p := r.create()

	// Multiple toggles without a drain never block.
	for i := int64(1); i <= 5; i++ {
		p.toggle(i)
	}
	assert.Len(t, p.Approvals(), 5)

	select {
	case <-p.Wake():
	default:
		t.Fatal("wake should be pending")
	}
	select {
	case <-p.Wake():
		t.Fatal("wake signals coalesce into one")
	default:
	}
}

func TestVotePollCloseDetaches(t *testing.T) {
	r := newPollRegistry()
	p := r.create()
	p.toggle(10)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "closing twice is fine")

	// A closed poll ignores further toggles.
	assert.False(t, p.toggle(11))
	assert.Equal(t, []int64{10}, p.Approvals())

	// And it is gone from the registry.
	r.mu.Lock()
	_, ok := r.polls[p.id]
	r.mu.Unlock()
	assert.False(t, ok)
}

func TestToEngineUser(t *testing.T) {
	tests := []struct {
		name    string
		sender  *tele.User
		user    string
		mention string
	}{
		{
			name:    "with username",
			sender:  &tele.User{ID: 1, Username: "alice", FirstName: "Alice"},
			user:    "alice",
			mention: "@alice",
		},
		{
			name:    "without username",
			sender:  &tele.User{ID: 2, FirstName: "Bob", LastName: "Jones"},
			user:    "Bob Jones",
			mention: "Bob Jones",
		},
		{
			name:    "first name only",
			sender:  &tele.User{ID: 3, FirstName: "Carol"},
			user:    "Carol",
			mention: "Carol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := toEngineUser(tt.sender)
			assert.Equal(t, tt.sender.ID, u.ID)
			assert.Equal(t, tt.user, u.Name)
			assert.Equal(t, tt.mention, u.Mention)
		})
	}
}
