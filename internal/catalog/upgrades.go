package catalog

import "slices"

// UpgradeID identifies a research upgrade.
type UpgradeID string

const (
	EfficientPumps  UpgradeID = "efficientPumps"
	DeepDrilling    UpgradeID = "deepDrilling"
	Marketing       UpgradeID = "marketing"
	SmartMetering   UpgradeID = "smartMetering"
	CloudSeeding    UpgradeID = "cloudSeeding"
	BioAlgae        UpgradeID = "bioAlgae"
	AILeakDetection UpgradeID = "aiLeakDetection"
	BulkContracts   UpgradeID = "bulkContracts"
)

// View is the read-only slice of session state that triggers are evaluated against.
type View interface {
	BuildingCount(id BuildingID) int
	Money() float64
	CleanWater() float64
	AquiferLevel() float64
	PollutionLevel() float64
}

// ConditionKind enumerates trigger predicates.
type ConditionKind string

const (
	BuildingCountAtLeast ConditionKind = "building_count_at_least"
	MoneyAtLeast         ConditionKind = "money_at_least"
	CleanWaterAbove      ConditionKind = "clean_water_above"
	PollutionAtLeast     ConditionKind = "pollution_at_least"
)

// Condition is a tagged-variant trigger predicate.
type Condition struct {
	Kind      ConditionKind `json:"kind"`
	Building  BuildingID    `json:"building,omitempty"`
	Threshold float64       `json:"threshold"`
}

// Met reports whether the condition holds for v. It never mutates v.
func (c Condition) Met(v View) bool {
	switch c.Kind {
	case BuildingCountAtLeast:
		return float64(v.BuildingCount(c.Building)) >= c.Threshold
	case MoneyAtLeast:
		return v.Money() >= c.Threshold
	case CleanWaterAbove:
		return v.CleanWater() > c.Threshold
	case PollutionAtLeast:
		return v.PollutionLevel() >= c.Threshold
	default:
		return false
	}
}

// EffectKind enumerates permanent one-shot upgrade effects.
type EffectKind string

const (
	ScaleProduction EffectKind = "scale_production" // multiply a building's effective and base production
	ScalePollution  EffectKind = "scale_pollution"  // multiply a building's effective and base pollution
	RestoreAquifer  EffectKind = "restore_aquifer"  // add to aquifer level, capped at 100
	ScaleAllCosts   EffectKind = "scale_all_costs"  // multiply every building's base and current cost
)

// Effect is applied exactly once, when the upgrade is purchased.
type Effect struct {
	Kind     EffectKind `json:"kind"`
	Building BuildingID `json:"building,omitempty"`
	Factor   float64    `json:"factor,omitempty"`
	Amount   float64    `json:"amount,omitempty"`
}

// ModifierKind enumerates soft effects consulted at use sites.
type ModifierKind string

const (
	SellPrice      ModifierKind = "sell_price"      // Value replaces the clean water sale price
	RainMultiplier ModifierKind = "rain_multiplier" // Value multiplies rain event restoration
	PassiveCleanup ModifierKind = "passive_cleanup" // Value is subtracted from pollution every tick
	SuppressEvent  ModifierKind = "suppress_event"  // Event never fires
)

// Modifier is a soft effect that stays active for as long as the upgrade is owned.
type Modifier struct {
	Kind  ModifierKind `json:"kind"`
	Value float64      `json:"value,omitempty"`
	Event EventID      `json:"event,omitempty"`
}

// Upgrade is the static definition of a research upgrade.
type Upgrade struct {
	ID          UpgradeID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cost        float64    `json:"cost"`
	Trigger     Condition  `json:"trigger"`
	Effects     []Effect   `json:"effects,omitempty"`
	Modifiers   []Modifier `json:"modifiers,omitempty"`
}

// upgrades is ordered; the engine's unlock scan walks it front to back.
var upgrades = []Upgrade{
	{
		ID:          EfficientPumps,
		Name:        "Efficient Pumps",
		Description: "Reduces pollution from pumps by 50%.",
		Cost:        500,
		Trigger:     Condition{Kind: BuildingCountAtLeast, Building: Pump, Threshold: 5},
		Effects:     []Effect{{Kind: ScalePollution, Building: Pump, Factor: 0.5}},
	},
	{
		ID:          DeepDrilling,
		Name:        "Deep Aquifer Drilling",
		Description: "Access deeper water reserves. +20% Aquifer Level.",
		Cost:        1000,
		Trigger:     Condition{Kind: MoneyAtLeast, Threshold: 800},
		Effects:     []Effect{{Kind: RestoreAquifer, Amount: 20}},
	},
	{
		ID:          Marketing,
		Name:        "Green Marketing",
		Description: "Bottling plants produce 50% more.",
		Cost:        2000,
		Trigger:     Condition{Kind: BuildingCountAtLeast, Building: Bottler, Threshold: 3},
		Effects:     []Effect{{Kind: ScaleProduction, Building: Bottler, Factor: 1.5}},
	},
	{
		ID:          SmartMetering,
		Name:        "Smart Metering",
		Description: "Clean water sells for $7 instead of $5.",
		Cost:        1200,
		Trigger:     Condition{Kind: CleanWaterAbove, Threshold: 20},
		Modifiers:   []Modifier{{Kind: SellPrice, Value: 7}},
	},
	{
		ID:          CloudSeeding,
		Name:        "Cloud Seeding",
		Description: "Rainstorms restore twice as much aquifer.",
		Cost:        1500,
		Trigger:     Condition{Kind: BuildingCountAtLeast, Building: RainwaterHarvester, Threshold: 3},
		Modifiers:   []Modifier{{Kind: RainMultiplier, Value: 2}},
	},
	{
		ID:          BioAlgae,
		Name:        "Bio-Algae Remediation",
		Description: "Engineered algae remove 0.5% pollution every tick.",
		Cost:        2500,
		Trigger:     Condition{Kind: PollutionAtLeast, Threshold: 40},
		Modifiers:   []Modifier{{Kind: PassiveCleanup, Value: 0.5}},
	},
	{
		ID:          AILeakDetection,
		Name:        "AI Leak Detection",
		Description: "Pipeline leaks are caught before they happen.",
		Cost:        3000,
		Trigger:     Condition{Kind: BuildingCountAtLeast, Building: TreatmentPlant, Threshold: 1},
		Modifiers:   []Modifier{{Kind: SuppressEvent, Event: EventLeak}},
	},
	{
		ID:          BulkContracts,
		Name:        "Bulk Supply Contracts",
		Description: "All buildings cost 10% less.",
		Cost:        4000,
		Trigger:     Condition{Kind: MoneyAtLeast, Threshold: 3000},
		Effects:     []Effect{{Kind: ScaleAllCosts, Factor: 0.9}},
	},
}

// Upgrades returns every upgrade definition in catalog order.
func Upgrades() []Upgrade {
	out := make([]Upgrade, len(upgrades))
	for i, u := range upgrades {
		out[i] = u.clone()
	}
	return out
}

// LookupUpgrade returns the definition for id.
func LookupUpgrade(id UpgradeID) (Upgrade, bool) {
	for _, u := range upgrades {
		if u.ID == id {
			return u.clone(), true
		}
	}
	return Upgrade{}, false
}

func (u Upgrade) clone() Upgrade {
	u.Effects = slices.Clone(u.Effects)
	u.Modifiers = slices.Clone(u.Modifiers)
	return u
}

// UpgradeIDs returns all upgrade ids in catalog order.
func UpgradeIDs() []string {
	ids := make([]string, 0, len(upgrades))
	for _, u := range upgrades {
		ids = append(ids, string(u.ID))
	}
	return ids
}
