package engine

import (
	"slices"

	"github.com/talgya/wellspring/internal/catalog"
)

// Starting values for a fresh session.
const (
	StartingMoney     = 100
	StartingAquifer   = 100
	StartingPollution = 20
	StartingEcoScore  = 50
)

// Resources are the player's stockpiles. All values are non-negative.
type Resources struct {
	Money         float64 `json:"money"`
	PollutedWater float64 `json:"pollutedWater"`
	CleanWater    float64 `json:"cleanWater"`
	BottledWater  float64 `json:"bottledWater"` // carried in saves, not used by the engine
}

// Stats are the global gauges and the calendar.
type Stats struct {
	AquiferLevel   float64 `json:"aquiferLevel"`   // 0–100
	PollutionLevel float64 `json:"pollutionLevel"` // 0–100
	EcoScore       float64 `json:"ecoScore"`       // 0–100, derived each tick
	Day            int     `json:"day"`
	TickCount      uint64  `json:"tickCount"`
	Forecast       string  `json:"forecast"`
}

// Building is an owned building line: the catalog definition plus live counters.
type Building struct {
	ID             catalog.BuildingID   `json:"id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Count          int                  `json:"count"`
	Cost           float64              `json:"cost"` // price of the next unit
	ProductionRate float64              `json:"productionRate"`
	PollutionRate  float64              `json:"pollutionRate"`
	BaseCost       float64              `json:"baseCost"`
	BaseProduction float64              `json:"baseProduction"`
	BasePollution  float64              `json:"basePollution"`
	Type           catalog.BuildingType `json:"type"`
	Input          string               `json:"input,omitempty"`
	Output         string               `json:"output,omitempty"`
}

// Upgrades tracks research progress. An id is never in both lists.
type Upgrades struct {
	Available []catalog.UpgradeID `json:"available"`
	Purchased []catalog.UpgradeID `json:"purchased"`
}

// ActiveEvent is the event currently shown to the player.
type ActiveEvent struct {
	ID          catalog.EventID `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
}

// State is the complete simulation state of one session.
type State struct {
	Resources   Resources                        `json:"resources"`
	Stats       Stats                            `json:"stats"`
	Buildings   map[catalog.BuildingID]*Building `json:"buildings"`
	Upgrades    Upgrades                         `json:"upgrades"`
	ActiveEvent *ActiveEvent                     `json:"activeEvent"`
}

// NewState returns the state of a fresh game.
func NewState() State {
	s := State{
		Resources: Resources{Money: StartingMoney},
		Stats: Stats{
			AquiferLevel:   StartingAquifer,
			PollutionLevel: StartingPollution,
			EcoScore:       StartingEcoScore,
			Day:            1,
			Forecast:       ForecastLabel(1),
		},
		Buildings: make(map[catalog.BuildingID]*Building),
		Upgrades: Upgrades{
			Available: []catalog.UpgradeID{},
			Purchased: []catalog.UpgradeID{},
		},
	}
	for _, def := range catalog.Buildings() {
		s.Buildings[def.ID] = NewBuilding(def)
	}
	return s
}

// NewBuilding returns an unowned building line for def.
func NewBuilding(def catalog.Building) *Building {
	return &Building{
		ID:             def.ID,
		Name:           def.Name,
		Description:    def.Description,
		Cost:           def.BaseCost,
		BaseCost:       def.BaseCost,
		BaseProduction: def.BaseProduction,
		BasePollution:  def.BasePollution,
		Type:           def.Type,
		Input:          def.Input,
		Output:         def.Output,
	}
}

// Clone returns a deep copy. Transitions work on clones so a failed or
// in-progress transition is never visible through the original.
func (s State) Clone() State {
	out := s
	out.Buildings = make(map[catalog.BuildingID]*Building, len(s.Buildings))
	for id, b := range s.Buildings {
		cp := *b
		out.Buildings[id] = &cp
	}
	out.Upgrades.Available = slices.Clone(s.Upgrades.Available)
	out.Upgrades.Purchased = slices.Clone(s.Upgrades.Purchased)
	if out.Upgrades.Available == nil {
		out.Upgrades.Available = []catalog.UpgradeID{}
	}
	if out.Upgrades.Purchased == nil {
		out.Upgrades.Purchased = []catalog.UpgradeID{}
	}
	if s.ActiveEvent != nil {
		ev := *s.ActiveEvent
		out.ActiveEvent = &ev
	}
	return out
}

// building returns the line for id, or an empty line when the state has none.
func (s State) building(id catalog.BuildingID) Building {
	if b, ok := s.Buildings[id]; ok && b != nil {
		return *b
	}
	return Building{ID: id}
}

// Modifiers returns the soft effects granted by purchased upgrades.
func (s State) Modifiers() catalog.ModifierSet {
	return catalog.ModifiersFor(s.Upgrades.Purchased)
}

// HasPurchased reports whether upgrade id has been bought.
func (s State) HasPurchased(id catalog.UpgradeID) bool {
	return slices.Contains(s.Upgrades.Purchased, id)
}

// IsAvailable reports whether upgrade id is unlocked and not yet bought.
func (s State) IsAvailable(id catalog.UpgradeID) bool {
	return slices.Contains(s.Upgrades.Available, id)
}

// GameOver reports the terminal condition and a reason for display.
func (s State) GameOver() (bool, string) {
	switch {
	case s.Stats.AquiferLevel <= 0:
		return true, "The Aquifer has run dry."
	case s.Stats.PollutionLevel >= 100:
		return true, "Pollution levels are irreversible."
	}
	return false, ""
}

// stateView adapts State to catalog.View for trigger evaluation.
type stateView struct{ s *State }

func (v stateView) BuildingCount(id catalog.BuildingID) int { return v.s.building(id).Count }
func (v stateView) Money() float64                          { return v.s.Resources.Money }
func (v stateView) CleanWater() float64                     { return v.s.Resources.CleanWater }
func (v stateView) AquiferLevel() float64                   { return v.s.Stats.AquiferLevel }
func (v stateView) PollutionLevel() float64                 { return v.s.Stats.PollutionLevel }

func clampPercent(v float64) float64 {
	return max(0, min(100, v))
}
