// Package modules holds the static module catalogue. Adding a module means
// implementing bomb.Module in a subpackage and listing its ModuleInfo here;
// the registry validates the table once at startup and rejects duplicate
// identifiers.
package modules

import (
	"fmt"

	"ktane-bot/internal/bomb"
	"ktane-bot/internal/modules/button"
	"ktane-bot/internal/modules/keypad"
	"ktane-bot/internal/modules/wires"
)

// Catalogue lists every available module implementation. The modded
// partition is currently empty.
var Catalogue = []bomb.ModuleInfo{
	wires.Info,
	button.Info,
	keypad.Info,
}

// BuildRegistry populates and seals the process-wide module registry from
// the static catalogue. An error here is a startup abort.
func BuildRegistry() (*bomb.Registry, error) {
	reg := bomb.NewRegistry()
	for _, info := range Catalogue {
		if err := reg.Register(info); err != nil {
			return nil, fmt.Errorf("invalid module catalogue: %w", err)
		}
	}
	reg.Seal()
	return reg, nil
}
