package engine

import (
	"fmt"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/entropy"
)

// Tick constants.
const (
	TicksPerDay = 5

	AquiferPerPumpedUnit = 0.01  // aquifer % drained per unit pumped
	PumpAquiferScale     = 10    // max pumped per tick = aquifer level × this
	BottleRevenue        = 5     // money per unit of clean water bottled
	AquiferRecharge      = 0.005 // natural recharge per tick
	EventChance          = 0.01
)

// forecastCycle is the weekly risk pattern, indexed by (day-1) mod 7.
var forecastCycle = [7]string{"Low", "Low", "Medium", "Medium", "High", "High", "None"}

// ForecastLabel returns the forecast shown for day.
func ForecastLabel(day int) string {
	idx := (day - 1) % len(forecastCycle)
	if idx < 0 {
		idx += len(forecastCycle)
	}
	return "Risk: " + forecastCycle[idx]
}

// TickResult describes what happened during one tick beyond the state change.
type TickResult struct {
	Unlocked   []catalog.UpgradeID
	Event      *ActiveEvent    // event fired this tick, if any
	Suppressed catalog.EventID // event rolled but blocked by a modifier
	DayPassed  bool
}

// Advance applies one tick to a copy of s and returns it. s is not modified.
// Stage order is fixed: each stage reads what the previous one wrote.
func Advance(s State, rng entropy.Source) (State, TickResult) {
	next := s.Clone()
	var res TickResult

	pump(&next)
	purify(&next)
	bottle(&next)
	harvestRain(&next)
	treat(&next)
	remediate(&next)
	res.DayPassed = advanceCalendar(&next)
	recharge(&next)
	next.Stats.EcoScore = EcoScore(next)
	res.Unlocked = scanUnlocks(&next)
	res.Event, res.Suppressed = rollEvent(&next, rng)

	return next, res
}

func pump(s *State) {
	p := s.building(catalog.Pump)
	if p.Count <= 0 || s.Stats.AquiferLevel <= 0 {
		return
	}
	actual := min(p.ProductionRate, s.Stats.AquiferLevel*PumpAquiferScale)
	s.Resources.PollutedWater += actual
	s.Stats.AquiferLevel = clampPercent(s.Stats.AquiferLevel - actual*AquiferPerPumpedUnit)
	s.Stats.PollutionLevel = clampPercent(s.Stats.PollutionLevel + p.PollutionRate)
}

func purify(s *State) {
	p := s.building(catalog.Purifier)
	if p.Count <= 0 || s.Resources.PollutedWater <= 0 {
		return
	}
	processed := min(p.ProductionRate, s.Resources.PollutedWater)
	s.Resources.PollutedWater -= processed
	s.Resources.CleanWater += processed
}

// bottle consumes one unit of clean water per owned bottler. Revenue is per
// unit processed, independent of the bottler's production coefficient.
func bottle(s *State) {
	b := s.building(catalog.Bottler)
	if b.Count <= 0 || s.Resources.CleanWater <= 0 {
		return
	}
	processed := min(float64(b.Count), s.Resources.CleanWater)
	s.Resources.CleanWater -= processed
	s.Resources.Money += processed * BottleRevenue
	s.Stats.PollutionLevel = clampPercent(s.Stats.PollutionLevel + b.PollutionRate)
}

func harvestRain(s *State) {
	h := s.building(catalog.RainwaterHarvester)
	if h.Count <= 0 {
		return
	}
	s.Resources.CleanWater += h.ProductionRate
}

func treat(s *State) {
	t := s.building(catalog.TreatmentPlant)
	if t.Count <= 0 {
		return
	}
	s.Stats.PollutionLevel = clampPercent(s.Stats.PollutionLevel + t.PollutionRate)
}

func remediate(s *State) {
	cleanup := s.Modifiers().PassiveCleanup()
	if cleanup <= 0 {
		return
	}
	s.Stats.PollutionLevel = clampPercent(s.Stats.PollutionLevel - cleanup)
}

func advanceCalendar(s *State) bool {
	s.Stats.TickCount++
	if s.Stats.TickCount%TicksPerDay != 0 {
		return false
	}
	s.Stats.Day++
	s.Stats.Forecast = ForecastLabel(s.Stats.Day)
	return true
}

func recharge(s *State) {
	if s.Stats.AquiferLevel < 100 {
		s.Stats.AquiferLevel = clampPercent(s.Stats.AquiferLevel + AquiferRecharge)
	}
}

// EcoScore blends aquifer health, pollution and the clean/polluted stock mix.
func EcoScore(s State) float64 {
	score := 50.0
	score += s.Stats.AquiferLevel / 4
	score -= s.Stats.PollutionLevel / 2
	if s.Resources.CleanWater > s.Resources.PollutedWater {
		score += 5
	}
	return clampPercent(score)
}

// scanUnlocks appends every upgrade whose trigger now holds. Triggers see the
// finished post-tick state, never a half-updated one.
func scanUnlocks(s *State) []catalog.UpgradeID {
	view := stateView{s: s}
	var unlocked []catalog.UpgradeID
	for _, u := range catalog.Upgrades() {
		if s.HasPurchased(u.ID) || s.IsAvailable(u.ID) {
			continue
		}
		if u.Trigger.Met(view) {
			s.Upgrades.Available = append(s.Upgrades.Available, u.ID)
			unlocked = append(unlocked, u.ID)
		}
	}
	return unlocked
}

// rollEvent fires at most one random event, and only into an empty slot.
func rollEvent(s *State, rng entropy.Source) (*ActiveEvent, catalog.EventID) {
	if s.ActiveEvent != nil || rng == nil {
		return nil, ""
	}
	if rng.Float64() >= EventChance {
		return nil, ""
	}
	table := catalog.Events()
	def := table[rng.IntN(len(table))]

	mods := s.Modifiers()
	if mods.Suppresses(def.ID) {
		return nil, def.ID
	}

	ev := applyEvent(s, def, mods)
	s.ActiveEvent = ev
	cp := *ev
	return &cp, ""
}

// applyEvent mutates s with def's effect and returns the display record.
func applyEvent(s *State, def catalog.Event, mods catalog.ModifierSet) *ActiveEvent {
	amount := def.Amount
	switch def.Effect {
	case catalog.RaiseAquifer:
		amount *= mods.RainMultiplier()
		s.Stats.AquiferLevel = clampPercent(s.Stats.AquiferLevel + amount)
	case catalog.RaisePollution:
		s.Stats.PollutionLevel = clampPercent(s.Stats.PollutionLevel + amount)
	case catalog.GrantMoney:
		s.Resources.Money += amount
	default:
		panic(fmt.Sprintf("engine: unhandled event effect %q", def.Effect))
	}
	return &ActiveEvent{
		ID:          def.ID,
		Title:       def.Title,
		Description: def.Describe(amount),
	}
}
