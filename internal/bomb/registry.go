package bomb

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the process-wide module catalogue, partitioned into vanilla and
// modded modules. It is populated once at startup from a static table and is
// read-only afterwards; there is no runtime registration.
type Registry struct {
	vanilla map[string]ModuleInfo // identifier (any alias) -> info
	modded  map[string]ModuleInfo
	sealed  bool
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{
		vanilla: make(map[string]ModuleInfo),
		modded:  make(map[string]ModuleInfo),
	}
}

// Register indexes a module under all of its identifiers. It fails if the
// info is incomplete or any identifier is already taken; callers treat such
// an error as a startup abort.
func (r *Registry) Register(info ModuleInfo) error {
	if r.sealed {
		return fmt.Errorf("registry is sealed, no runtime registration")
	}
	if info.New == nil {
		return fmt.Errorf("module %q has no constructor", info.Name)
	}
	if info.Name == "" {
		return fmt.Errorf("module with identifiers %v has no display name", info.Identifiers)
	}
	if len(info.Identifiers) == 0 {
		return fmt.Errorf("module %q declares no identifiers", info.Name)
	}

	for _, id := range info.Identifiers {
		if id == "" {
			return fmt.Errorf("module %q declares an empty identifier", info.Name)
		}
		if _, dup := r.vanilla[id]; dup {
			return fmt.Errorf("duplicate module identifier %q", id)
		}
		if _, dup := r.modded[id]; dup {
			return fmt.Errorf("duplicate module identifier %q", id)
		}
	}

	target := r.vanilla
	if info.Modded {
		target = r.modded
	}
	for _, id := range info.Identifiers {
		target[id] = info
	}
	return nil
}

// Seal marks the registry read-only. Further Register calls fail.
func (r *Registry) Seal() {
	r.sealed = true
}

// Lookup finds a module by any of its identifiers in either partition.
func (r *Registry) Lookup(id string) (ModuleInfo, bool) {
	if info, ok := r.vanilla[id]; ok {
		return info, true
	}
	info, ok := r.modded[id]
	return info, ok
}

// VanillaPool returns the distinct vanilla modules, ordered by canonical
// identifier. Aliases collapse to one entry.
func (r *Registry) VanillaPool() []ModuleInfo {
	return distinctPool(r.vanilla)
}

// ModdedPool returns the distinct modded modules, ordered by canonical
// identifier.
func (r *Registry) ModdedPool() []ModuleInfo {
	return distinctPool(r.modded)
}

// VanillaIdents returns the sorted canonical vanilla identifiers.
func (r *Registry) VanillaIdents() []string {
	return poolIdents(r.VanillaPool())
}

// ModdedIdents returns the sorted canonical modded identifiers.
func (r *Registry) ModdedIdents() []string {
	return poolIdents(r.ModdedPool())
}

// Describe renders the catalogue listing for the modules command.
func (r *Registry) Describe() string {
	quote := func(ids []string) string {
		if len(ids) == 0 {
			return "none"
		}
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = "`" + id + "`"
		}
		return strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("Available modules:\nVanilla: %s\nModded: %s",
		quote(r.VanillaIdents()), quote(r.ModdedIdents()))
}

func distinctPool(m map[string]ModuleInfo) []ModuleInfo {
	seen := make(map[string]bool)
	pool := make([]ModuleInfo, 0, len(m))
	for _, info := range m {
		canonical := info.Identifiers[0]
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		pool = append(pool, info)
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Identifiers[0] < pool[j].Identifiers[0]
	})
	return pool
}

func poolIdents(pool []ModuleInfo) []string {
	ids := make([]string, len(pool))
	for i, info := range pool {
		ids[i] = info.Identifiers[0]
	}
	return ids
}
