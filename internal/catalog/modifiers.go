package catalog

// Default values used when no upgrade overrides them.
const (
	DefaultSellPrice = 5.0
)

// ModifierSet is the registry of soft effects granted by a set of purchased upgrades.
// Use sites ask it questions instead of checking individual upgrade ids.
type ModifierSet struct {
	sellPrice      float64
	rainMultiplier float64
	passiveCleanup float64
	suppressed     map[EventID]bool
}

// ModifiersFor builds the registry for the purchased upgrade ids.
// Unknown ids are ignored.
func ModifiersFor(purchased []UpgradeID) ModifierSet {
	ms := ModifierSet{
		sellPrice:      DefaultSellPrice,
		rainMultiplier: 1,
		suppressed:     make(map[EventID]bool),
	}
	for _, id := range purchased {
		u, ok := LookupUpgrade(id)
		if !ok {
			continue
		}
		for _, m := range u.Modifiers {
			switch m.Kind {
			case SellPrice:
				if m.Value > ms.sellPrice {
					ms.sellPrice = m.Value
				}
			case RainMultiplier:
				ms.rainMultiplier *= m.Value
			case PassiveCleanup:
				ms.passiveCleanup += m.Value
			case SuppressEvent:
				ms.suppressed[m.Event] = true
			}
		}
	}
	return ms
}

// SellPrice is the money earned per unit of clean water sold by hand.
func (ms ModifierSet) SellPrice() float64 { return ms.sellPrice }

// RainMultiplier scales the aquifer restoration of rain events.
func (ms ModifierSet) RainMultiplier() float64 { return ms.rainMultiplier }

// PassiveCleanup is the pollution removed every tick, zero when inactive.
func (ms ModifierSet) PassiveCleanup() float64 { return ms.passiveCleanup }

// Suppresses reports whether event id is blocked from firing.
func (ms ModifierSet) Suppresses(id EventID) bool { return ms.suppressed[id] }
