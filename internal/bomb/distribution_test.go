package bomb

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func distributionRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(newStubInfo("Wires", false, "wires", "simpleWires")))
	require.NoError(t, r.Register(newStubInfo("The Button", false, "button")))
	require.NoError(t, r.Register(newStubInfo("Keypad", false, "keypad")))
	require.NoError(t, r.Register(newStubInfo("Turbo", true, "turbo")))
	require.NoError(t, r.Register(newStubInfo("Enigma", true, "enigma")))
	r.Seal()
	return r
}

func TestResolveDistributionRatio(t *testing.T) {
	reg := distributionRegistry(t)
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name  string
		parts []string
		count int
	}{
		{"all vanilla", []string{"6", "vanilla"}, 6},
		{"all modded", []string{"4", "mods"}, 4},
		{"mixed", []string{"10", "mixed"}, 10},
		{"single module bomb", []string{"1", "vanilla"}, 1},
		{"case insensitive ratio", []string{"3", "VANILLA"}, 3},
		{"with veto", []string{"5", "vanilla", "-wires"}, 5},
		{"veto by alias", []string{"5", "vanilla", "-simpleWires"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctors, err := ResolveDistribution(reg, tt.parts, 101, rng)
			require.NoError(t, err)
			assert.Len(t, ctors, tt.count)
		})
	}
}

func TestResolveDistributionRatioErrors(t *testing.T) {
	reg := distributionRegistry(t)
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name    string
		parts   []string
		isUsage bool // full usage text instead of an inline message
	}{
		{"empty", nil, true},
		{"missing ratio", []string{"5"}, true},
		{"unknown ratio", []string{"5", "spicy"}, true},
		{"zero modules", []string{"0", "vanilla"}, false},
		{"over the cap", []string{"102", "vanilla"}, false},
		{"veto without dash", []string{"5", "vanilla", "wires"}, true},
		{"veto unknown module", []string{"5", "vanilla", "-nonexistent"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDistribution(reg, tt.parts, 101, rng)
			require.Error(t, err)
			if tt.isUsage {
				assert.ErrorIs(t, err, ErrRunUsage)
			} else {
				assert.True(t, IsUserError(err), "expected an inline user error, got %v", err)
			}
		})
	}
}

// TestResolveDistributionBlacklistedAll tests that vetoing every module that
// the ratio would draw from is rejected.
func TestResolveDistributionBlacklistedAll(t *testing.T) {
	reg := distributionRegistry(t)
	rng := rand.New(rand.NewSource(7))

	_, err := ResolveDistribution(reg, []string{"5", "vanilla", "-wires", "-button", "-keypad"}, 101, rng)
	require.Error(t, err)
	assert.True(t, IsUserError(err))
	assert.Contains(t, err.Error(), "blacklisted")
}

// TestResolveDistributionEmptyPoolClamps tests that a ratio falls back to the
// populated pool when the other one has no modules left.
func TestResolveDistributionEmptyPoolClamps(t *testing.T) {
	reg := distributionRegistry(t)
	rng := rand.New(rand.NewSource(7))

	// All modded vetoed: a mixed bomb becomes all vanilla.
	ctors, err := ResolveDistribution(reg, []string{"6", "mixed", "-turbo", "-enigma"}, 101, rng)
	require.NoError(t, err)
	assert.Len(t, ctors, 6)
}

// TestResolveDistributionEmptyModdedCatalogue tests the clamp against a
// registry that ships no modded modules at all, including counts where the
// floored vanilla share would be zero.
func TestResolveDistributionEmptyModdedCatalogue(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newStubInfo("Wires", false, "wires")))
	require.NoError(t, reg.Register(newStubInfo("Keypad", false, "keypad")))
	reg.Seal()
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name  string
		parts []string
		count int
	}{
		{"single mixed", []string{"1", "mixed"}, 1},
		{"extraheavy below one vanilla", []string{"3", "extraheavy"}, 3},
		{"mixed", []string{"8", "mixed"}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctors, err := ResolveDistribution(reg, tt.parts, 101, rng)
			require.NoError(t, err)
			assert.Len(t, ctors, tt.count)
		})
	}

	// A pure modded request still has nothing to draw from.
	_, err := ResolveDistribution(reg, []string{"5", "mods"}, 101, rng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blacklisted")
}

func TestResolveDistributionExplicit(t *testing.T) {
	reg := distributionRegistry(t)
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name  string
		parts []string
		count int
	}{
		{"single module", []string{"wires"}, 1},
		{"alias", []string{"simpleWires"}, 1},
		{"repeated modules", []string{"wires", "button", "wires"}, 3},
		{"star count suffix", []string{"keypad*3"}, 3},
		{"star count prefix", []string{"3*keypad"}, 3},
		{"mixed tokens", []string{"wires*2", "turbo"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctors, err := ResolveDistribution(reg, tt.parts, 101, rng)
			require.NoError(t, err)
			assert.Len(t, ctors, tt.count)
		})
	}
}

func TestResolveDistributionExplicitErrors(t *testing.T) {
	reg := distributionRegistry(t)
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name  string
		parts []string
	}{
		{"unknown module", []string{"nonexistent"}},
		{"two stars", []string{"wires*2*3"}},
		{"both numeric", []string{"5*7"}},
		{"neither numeric", []string{"wires*button"}},
		{"over the cap", []string{"keypad*102"}},
		{"zero count", []string{"wires*0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDistribution(reg, tt.parts, 101, rng)
			require.Error(t, err)
			assert.True(t, IsUserError(err), "expected an inline user error, got %v", err)
		})
	}
}

// TestFillFromPoolCoverage tests that drawing from a pool cycles through every
// module before repeating any beyond its share.
func TestFillFromPoolCoverage(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		poolSize := rapid.IntRange(1, 10).Draw(t, "poolSize")
		count := rapid.IntRange(0, 50).Draw(t, "count")
		seed := rapid.Int64().Draw(t, "seed")
		rng := rand.New(rand.NewSource(seed))

		pool := make([]ModuleInfo, poolSize)
		occurrences := make([]int, poolSize)
		for i := range pool {
			i := i
			pool[i] = ModuleInfo{
				Identifiers: []string{string(rune('a' + i))},
				Name:        string(rune('a' + i)),
				New: func(b *Bomb, ident int) Module {
					occurrences[i]++
					return nil
				},
			}
		}

		ctors := fillFromPool(pool, count, rng)
		require.Len(t, ctors, count)
		for _, ctor := range ctors {
			ctor(nil, 0)
		}

		// Every module appears either floor(count/poolSize) or one more time.
		base := count / poolSize
		for i, n := range occurrences {
			assert.GreaterOrEqual(t, n, base, "module %d underrepresented", i)
			assert.LessOrEqual(t, n, base+1, "module %d overrepresented", i)
		}
	})
}

// TestResolveDistributionVanillaShare tests the floor semantics of the ratio:
// a mixed bomb of N modules has exactly floor(N/2) vanilla ones.
func TestResolveDistributionVanillaShare(t *testing.T) {
	reg := NewRegistry()
	vanillaBuilt := 0
	moddedBuilt := 0
	require.NoError(t, reg.Register(ModuleInfo{
		Identifiers: []string{"v"},
		Name:        "V",
		New:         func(b *Bomb, ident int) Module { vanillaBuilt++; return nil },
	}))
	require.NoError(t, reg.Register(ModuleInfo{
		Identifiers: []string{"m"},
		Name:        "M",
		Modded:      true,
		New:         func(b *Bomb, ident int) Module { moddedBuilt++; return nil },
	}))
	reg.Seal()

	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 101).Draw(t, "count")
		seed := rapid.Int64().Draw(t, "seed")
		rng := rand.New(rand.NewSource(seed))

		vanillaBuilt, moddedBuilt = 0, 0
		ctors, err := ResolveDistribution(reg, []string{strconv.Itoa(count), "mixed"}, 101, rng)
		require.NoError(t, err)
		for _, ctor := range ctors {
			ctor(nil, 0)
		}

		assert.Equal(t, count/2, vanillaBuilt)
		assert.Equal(t, count-count/2, moddedBuilt)
	})
}
