package bomb

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
)

// ErrRunUsage signals that an arm command did not match either grammar; the
// caller replies with the full usage text.
var ErrRunUsage = errors.New("run command usage")

// Distributions maps ratio names to the vanilla fraction of the bomb.
var Distributions = map[string]float64{
	"vanilla":    1,
	"mods":       0,
	"modded":     0,
	"mixed":      0.5,
	"lightmixed": 0.67,
	"mixedlight": 0.67,
	"heavymixed": 0.33,
	"mixedheavy": 0.33,
	"light":      0.8,
	"heavy":      0.2,
	"extralight": 0.9,
	"extraheavy": 0.1,
}

// ResolveDistribution turns the arm command arguments into an ordered list of
// module constructors. Two mutually exclusive grammars are accepted:
//
//	<count> <distribution> [-<veto> ...]
//	<module>[*<count>] [<module>[*<count>] ...]
//
// The first token decides the grammar: a number selects the ratio form.
func ResolveDistribution(reg *Registry, parts []string, maxModules int, rng *rand.Rand) ([]NewModuleFunc, error) {
	if len(parts) == 0 {
		return nil, ErrRunUsage
	}
	if isNumeric(parts[0]) {
		return resolveRatio(reg, parts, maxModules, rng)
	}
	return resolveExplicit(reg, parts, maxModules)
}

func resolveRatio(reg *Registry, parts []string, maxModules int, rng *rand.Rand) ([]NewModuleFunc, error) {
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, ErrRunUsage
	}
	if count == 0 {
		return nil, Usagef("What would it even mean for a bomb to have no modules? :thinking:")
	}
	if count > maxModules {
		return nil, Usagef("I like your enthusiasm, but don't you think that's a bit too many modules? Could you limit yourself to %d for now?", maxModules)
	}

	if len(parts) < 2 {
		return nil, ErrRunUsage
	}
	ratio, ok := Distributions[strings.ToLower(parts[1])]
	if !ok {
		return nil, ErrRunUsage
	}

	vanilla := reg.VanillaPool()
	modded := reg.ModdedPool()

	for _, veto := range parts[2:] {
		if !strings.HasPrefix(veto, "-") {
			return nil, ErrRunUsage
		}
		veto = veto[1:]

		var removed bool
		vanilla, removed = removeModule(vanilla, reg, veto)
		if !removed {
			modded, removed = removeModule(modded, reg, veto)
		}
		if !removed {
			return nil, Usagef("No such module: `%s`", veto)
		}
	}

	// The emptiness check uses the unfloored share: a bomb like `1 mixed` wants
	// modules from both pools even though the floored vanilla count is zero.
	vanillaShare := ratio * float64(count)

	if (len(vanilla) == 0 || vanillaShare == 0) && (len(modded) == 0 || vanillaShare == float64(count)) {
		return nil, Usagef("You've blacklisted all the modules! If you don't want to play, just say so!")
	}

	vanillaCount := int(vanillaShare)
	if len(vanilla) == 0 {
		vanillaCount = 0
	} else if len(modded) == 0 {
		vanillaCount = count
	}

	chosen := make([]NewModuleFunc, 0, count)
	chosen = append(chosen, fillFromPool(vanilla, vanillaCount, rng)...)
	chosen = append(chosen, fillFromPool(modded, count-vanillaCount, rng)...)
	return chosen, nil
}

// fillFromPool selects count constructors from the pool: full repeated cycles
// of the whole pool first, then a uniform sample without replacement of the
// remainder. Every pool member therefore appears at least count/len(pool)
// times before any module repeats beyond that.
func fillFromPool(pool []ModuleInfo, count int, rng *rand.Rand) []NewModuleFunc {
	if len(pool) == 0 || count == 0 {
		return nil
	}

	chosen := make([]NewModuleFunc, 0, count)
	for cycle := 0; cycle < count/len(pool); cycle++ {
		for _, info := range pool {
			chosen = append(chosen, info.New)
		}
	}
	for _, idx := range rng.Perm(len(pool))[:count%len(pool)] {
		chosen = append(chosen, pool[idx].New)
	}
	return chosen
}

func resolveExplicit(reg *Registry, parts []string, maxModules int) ([]NewModuleFunc, error) {
	var chosen []NewModuleFunc
	for _, token := range parts {
		name := token
		count := 1

		if strings.Contains(token, "*") {
			if strings.Count(token, "*") > 1 {
				return nil, Usagef("Don't you think there's too many stars in `%s`?", token)
			}
			left, right, _ := strings.Cut(token, "*")
			switch {
			case isNumeric(left) && !isNumeric(right):
				count, _ = strconv.Atoi(left)
				name = right
			case !isNumeric(left) && isNumeric(right):
				count, _ = strconv.Atoi(right)
				name = left
			default:
				return nil, Usagef("`%s`: which one is the module and which one is the count?", token)
			}
		}

		info, ok := reg.Lookup(name)
		if !ok {
			return nil, Usagef("No such module: `%s`", name)
		}
		for i := 0; i < count; i++ {
			chosen = append(chosen, info.New)
		}
		if len(chosen) > maxModules {
			return nil, Usagef("I like your enthusiasm, but don't you think that's a bit too many modules? Could you limit yourself to %d for now?", maxModules)
		}
	}

	if len(chosen) == 0 {
		return nil, Usagef("What would it even mean for a bomb to have no modules? :thinking:")
	}
	return chosen, nil
}

// removeModule removes the module the identifier names (any alias) from the
// pool and reports whether anything was removed.
func removeModule(pool []ModuleInfo, reg *Registry, id string) ([]ModuleInfo, bool) {
	info, ok := reg.Lookup(id)
	if !ok {
		return pool, false
	}
	canonical := info.Identifiers[0]
	for i, candidate := range pool {
		if candidate.Identifiers[0] == canonical {
			return append(pool[:i:i], pool[i+1:]...), true
		}
	}
	return pool, false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
