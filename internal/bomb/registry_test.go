package bomb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStubInfo("Wires", false, "wires", "simpleWires")))
	require.NoError(t, r.Register(newStubInfo("Turbo", true, "turbo")))
	r.Seal()

	info, ok := r.Lookup("wires")
	require.True(t, ok)
	assert.Equal(t, "Wires", info.Name)

	// Aliases resolve to the same module.
	alias, ok := r.Lookup("simpleWires")
	require.True(t, ok)
	assert.Equal(t, info.Name, alias.Name)

	// Modded partition is searched too.
	modded, ok := r.Lookup("turbo")
	require.True(t, ok)
	assert.True(t, modded.Modded)

	_, ok = r.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		info ModuleInfo
	}{
		{"no constructor", ModuleInfo{Identifiers: []string{"x"}, Name: "X"}},
		{"no name", newStubInfo("", false, "x")},
		{"no identifiers", newStubInfo("X", false)},
		{"empty identifier", newStubInfo("X", false, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			assert.Error(t, r.Register(tt.info))
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStubInfo("Wires", false, "wires")))

	// Same identifier in either partition is a duplicate.
	assert.Error(t, r.Register(newStubInfo("Other", false, "wires")))
	assert.Error(t, r.Register(newStubInfo("Other", true, "wires")))
}

func TestRegistrySealedRejectsRegister(t *testing.T) {
	r := NewRegistry()
	r.Seal()
	assert.Error(t, r.Register(newStubInfo("Wires", false, "wires")))
}

func TestRegistryPools(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStubInfo("Wires", false, "wires", "simpleWires")))
	require.NoError(t, r.Register(newStubInfo("Button", false, "button")))
	require.NoError(t, r.Register(newStubInfo("Turbo", true, "turbo")))
	r.Seal()

	// Aliases collapse; pools are sorted by canonical identifier.
	assert.Equal(t, []string{"button", "wires"}, r.VanillaIdents())
	assert.Equal(t, []string{"turbo"}, r.ModdedIdents())
	assert.Len(t, r.VanillaPool(), 2)
}

func TestRegistryDescribe(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStubInfo("Wires", false, "wires")))
	r.Seal()

	desc := r.Describe()
	assert.Contains(t, desc, "`wires`")
	assert.Contains(t, desc, "Modded: none")
}
