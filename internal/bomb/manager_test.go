package bomb

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *fakeMessenger, *fakeArchiver) {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(newStubInfo("Stub", false, "stub")))
	require.NoError(t, reg.Register(newStubInfo("Turbo", true, "turbo")))
	reg.Seal()

	messenger := &fakeMessenger{}
	archiver := &fakeArchiver{}
	m := NewManager(reg, Deps{
		Messenger: messenger,
		Archiver:  archiver,
		Settings:  testSettings(),
	})
	return m, messenger, archiver
}

func TestManagerRunArmsBomb(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	ctx := context.Background()
	chat := Chat{ID: 1}

	m.Dispatch(ctx, chat, alice, []string{"run", "3", "vanilla"})
	assert.Equal(t, 1, m.ActiveCount())
	assert.True(t, messenger.contains("A bomb with 3 modules has been armed!"))
	assert.True(t, messenger.contains("Edgework:"))
}

func TestManagerRunSingleModuleGrammar(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"run", "stub"})
	assert.Equal(t, 1, m.ActiveCount())
	assert.True(t, messenger.contains("A bomb with 1 module has been armed!"))
}

func TestManagerRunHummus(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	m.Dispatch(ctx, Chat{ID: 1}, alice, []string{"run", "hummus", "2", "vanilla"})
	require.Equal(t, 1, m.ActiveCount())

	s := m.lookup(1)
	require.NotNil(t, s)
	assert.True(t, s.bomb.Hummus())
}

func TestManagerRunDuplicateChannel(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	ctx := context.Background()
	chat := Chat{ID: 1}

	m.Dispatch(ctx, chat, alice, []string{"run", "2", "vanilla"})
	m.Dispatch(ctx, chat, bob, []string{"run", "2", "vanilla"})

	assert.Equal(t, 1, m.ActiveCount())
	assert.True(t, messenger.contains("already ticking"))
}

func TestManagerRunUsage(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"run"})

	assert.Zero(t, m.ActiveCount())
	assert.True(t, messenger.contains("Usage:"))
	assert.True(t, messenger.contains("`vanilla`: 100% vanilla, 0% modded"))
	assert.True(t, messenger.contains("`extraheavy`: 10% vanilla, 90% modded"))
}

func TestManagerRunResolverError(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"run", "nonexistent"})

	assert.Zero(t, m.ActiveCount())
	assert.True(t, messenger.contains("No such module: `nonexistent`"))
}

func TestManagerNoSessionHint(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"status"})
	assert.True(t, messenger.contains("No bomb is currently running in this channel. Start one with `!run`."))
}

func TestManagerSolveCompletionTearsDown(t *testing.T) {
	m, messenger, archiver := newTestManager(t)
	ctx := context.Background()
	chat := Chat{ID: 1}

	m.Dispatch(ctx, chat, alice, []string{"run", "2", "vanilla"})
	m.Dispatch(ctx, chat, alice, []string{"1", "solve"})
	assert.Equal(t, 1, m.ActiveCount())

	m.Dispatch(ctx, chat, bob, []string{"2", "solve"})
	assert.Zero(t, m.ActiveCount())
	assert.True(t, messenger.contains("The bomb has been defused after"))
	assert.True(t, messenger.contains("Log: https://paste.example/1.txt"))

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	require.Len(t, archiver.published, 1)
	assert.Contains(t, archiver.published[0], "Edgework:")

	// The session is gone; further commands get the hint.
	m.Dispatch(ctx, chat, alice, []string{"status"})
	assert.True(t, messenger.contains("No bomb is currently running"))
}

func TestManagerTeardownSurvivesUploadFailure(t *testing.T) {
	m, messenger, archiver := newTestManager(t)
	archiver.err = errArchiverDown
	ctx := context.Background()
	chat := Chat{ID: 1}

	m.Dispatch(ctx, chat, alice, []string{"run", "1", "vanilla"})
	m.Dispatch(ctx, chat, alice, []string{"1", "solve"})

	assert.Zero(t, m.ActiveCount())
	assert.True(t, messenger.contains("Log upload failed: `paste service unreachable`"))
	assert.True(t, messenger.contains("The bomb has been defused after"))
}

func TestManagerUserErrorRenderedInline(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	ctx := context.Background()
	chat := Chat{ID: 1}

	m.Dispatch(ctx, chat, alice, []string{"run", "1", "vanilla"})
	m.Dispatch(ctx, chat, alice, []string{"9", "view"})
	assert.True(t, messenger.contains("only 1 modules"))
}

func TestManagerBombsListing(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	ctx := context.Background()

	m.Dispatch(ctx, Chat{ID: 5}, alice, []string{"bombs"})
	assert.True(t, messenger.contains("No bombs are running."))

	m.Dispatch(ctx, Chat{ID: 1}, alice, []string{"run", "2", "vanilla"})
	m.Dispatch(ctx, Chat{ID: 2}, bob, []string{"run", "3", "vanilla"})
	m.Dispatch(ctx, Chat{ID: 5}, alice, []string{"bombs"})

	var listing string
	for _, msg := range messenger.messages() {
		if strings.Contains(msg, "Currently running bombs:") {
			listing = msg
		}
	}
	require.NotEmpty(t, listing)
	assert.Contains(t, listing, "0 out of 2 modules solved")
	assert.Contains(t, listing, "0 out of 3 modules solved")
	assert.Contains(t, listing, "channel 1")
	assert.Contains(t, listing, "channel 2")
}

func TestManagerModulesVerb(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"modules"})
	assert.True(t, messenger.contains("`stub`"))
	assert.True(t, messenger.contains("`turbo`"))
}

func TestManagerShutdownOwnerOnly(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"shutdown"})
	assert.True(t, messenger.contains("don't have permission"))

	// Shutdown mode was not entered; arming still works.
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"run", "1", "vanilla"})
	assert.Equal(t, 1, m.ActiveCount())
}

func TestManagerShutdownNoActiveBombs(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	owner := User{ID: 99, Name: "owner", Mention: "@owner"}

	m.Dispatch(context.Background(), Chat{ID: 1}, owner, []string{"shutdown"})
	assert.True(t, messenger.contains("***oof***"))

	select {
	case <-m.Done():
	default:
		t.Fatal("Done channel should be closed with no active bombs")
	}

	// No new bombs in shutdown mode.
	m.Dispatch(context.Background(), Chat{ID: 1}, alice, []string{"run", "1", "vanilla"})
	assert.Zero(t, m.ActiveCount())
	assert.True(t, messenger.contains("shutdown mode"))
}

func TestManagerShutdownDrainsActiveBombs(t *testing.T) {
	m, messenger, _ := newTestManager(t)
	ctx := context.Background()
	owner := User{ID: 99, Name: "owner", Mention: "@owner"}

	m.Dispatch(ctx, Chat{ID: 1}, alice, []string{"run", "1", "vanilla"})
	m.Dispatch(ctx, Chat{ID: 2}, bob, []string{"run", "1", "vanilla"})

	m.Dispatch(ctx, Chat{ID: 3}, owner, []string{"shutdown"})
	assert.True(t, messenger.contains("going into shutdown mode"))

	select {
	case <-m.Done():
		t.Fatal("Done must not close while bombs are active")
	default:
	}

	m.Dispatch(ctx, Chat{ID: 1}, alice, []string{"1", "solve"})
	select {
	case <-m.Done():
		t.Fatal("Done must not close while one bomb remains")
	default:
	}

	m.Dispatch(ctx, Chat{ID: 2}, bob, []string{"1", "solve"})
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Done should close once the last bomb ends")
	}
}

func TestManagerConcurrentChannels(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for ch := int64(1); ch <= 8; ch++ {
		ch := ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Dispatch(ctx, Chat{ID: ch}, alice, []string{"run", "2", "vanilla"})
			m.Dispatch(ctx, Chat{ID: ch}, alice, []string{"1", "solve"})
			m.Dispatch(ctx, Chat{ID: ch}, alice, []string{"2", "solve"})
		}()
	}
	wg.Wait()
	assert.Zero(t, m.ActiveCount())
}
