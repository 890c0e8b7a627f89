package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/economy"
)

// ErrInvalidIdentifier is returned for building, upgrade or action ids the catalog does not know.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ActionKind names a player action.
type ActionKind string

const (
	ManualCollect   ActionKind = "manual-collect"
	PurifyWater     ActionKind = "purify-water"
	SellCleanWater  ActionKind = "sell-clean-water"
	PlantTree       ActionKind = "plant-tree"
	OrganizeCleanup ActionKind = "organize-cleanup"
	BuyBuilding     ActionKind = "buy-building"
	BuyUpgrade      ActionKind = "buy-upgrade"
	DismissEvent    ActionKind = "dismiss-event"
)

// Action costs and yields.
const (
	ManualCollectDrain = 0.1
	TreeCost           = 50
	TreePollutionDrop  = 1
	CleanupCost        = 500
	CleanupDrop        = 10
)

// Action is one player request. Target names the building or upgrade for the buy actions.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target,omitempty"`
}

// ActionKinds returns every action kind, for suggestions and listings.
func ActionKinds() []string {
	return []string{
		string(ManualCollect), string(PurifyWater), string(SellCleanWater),
		string(PlantTree), string(OrganizeCleanup), string(BuyBuilding),
		string(BuyUpgrade), string(DismissEvent),
	}
}

// Apply runs a on a copy of s. When the precondition fails the original state
// is returned with applied=false; that is a normal outcome, not an error.
// The only error is ErrInvalidIdentifier.
func Apply(s State, a Action) (next State, applied bool, err error) {
	switch a.Kind {
	case ManualCollect:
		return transition(s, manualCollect)
	case PurifyWater:
		return transition(s, purifyWater)
	case SellCleanWater:
		return transition(s, sellCleanWater)
	case PlantTree:
		return transition(s, plantTree)
	case OrganizeCleanup:
		return transition(s, organizeCleanup)
	case DismissEvent:
		return transition(s, dismissEvent)
	case BuyBuilding:
		id := catalog.BuildingID(a.Target)
		if _, ok := catalog.LookupBuilding(id); !ok {
			return s, false, invalid("building", a.Target, catalog.BuildingIDs())
		}
		if _, ok := s.Buildings[id]; !ok {
			return s, false, invalid("building", a.Target, catalog.BuildingIDs())
		}
		return transition(s, func(st *State) bool { return buyBuilding(st, id) })
	case BuyUpgrade:
		id := catalog.UpgradeID(a.Target)
		def, ok := catalog.LookupUpgrade(id)
		if !ok {
			return s, false, invalid("upgrade", a.Target, catalog.UpgradeIDs())
		}
		return transition(s, func(st *State) bool { return buyUpgrade(st, def) })
	default:
		return s, false, invalid("action", string(a.Kind), ActionKinds())
	}
}

func invalid(kind, id string, known []string) error {
	if hint := catalog.Suggest(id, known); hint != "" {
		return fmt.Errorf("%w: unknown %s %q (did you mean %q?)", ErrInvalidIdentifier, kind, id, hint)
	}
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidIdentifier, kind, id)
}

// transition applies fn to a clone and keeps the clone only if fn succeeded.
func transition(s State, fn func(*State) bool) (State, bool, error) {
	next := s.Clone()
	if !fn(&next) {
		return s, false, nil
	}
	return next, true, nil
}

func manualCollect(s *State) bool {
	if s.Stats.AquiferLevel <= 0 {
		return false
	}
	s.Resources.PollutedWater++
	s.Stats.AquiferLevel = clampPercent(s.Stats.AquiferLevel - ManualCollectDrain)
	return true
}

func purifyWater(s *State) bool {
	if s.Resources.PollutedWater < 1 {
		return false
	}
	s.Resources.PollutedWater--
	s.Resources.CleanWater++
	return true
}

func sellCleanWater(s *State) bool {
	if s.Resources.CleanWater < 1 {
		return false
	}
	s.Resources.CleanWater--
	s.Resources.Money += s.Modifiers().SellPrice()
	return true
}

func plantTree(s *State) bool {
	if s.Resources.Money < TreeCost {
		return false
	}
	s.Resources.Money -= TreeCost
	s.Stats.PollutionLevel = clampPercent(s.Stats.PollutionLevel - TreePollutionDrop)
	return true
}

func organizeCleanup(s *State) bool {
	if s.Resources.Money < CleanupCost {
		return false
	}
	s.Resources.Money -= CleanupCost
	s.Stats.PollutionLevel = clampPercent(s.Stats.PollutionLevel - CleanupDrop)
	return true
}

func dismissEvent(s *State) bool {
	if s.ActiveEvent == nil {
		return false
	}
	s.ActiveEvent = nil
	return true
}

func buyBuilding(s *State, id catalog.BuildingID) bool {
	b := s.Buildings[id]
	if s.Resources.Money < b.Cost {
		return false
	}
	s.Resources.Money -= b.Cost
	b.Count++
	b.Cost = economy.NextCost(b.BaseCost, b.Count)
	b.ProductionRate, b.PollutionRate = economy.Rates(b.BaseProduction, b.BasePollution, b.Count)
	return true
}

func buyUpgrade(s *State, def catalog.Upgrade) bool {
	if s.Resources.Money < def.Cost || !s.IsAvailable(def.ID) {
		return false
	}
	s.Resources.Money -= def.Cost
	s.Upgrades.Available = slices.DeleteFunc(s.Upgrades.Available, func(id catalog.UpgradeID) bool {
		return id == def.ID
	})
	s.Upgrades.Purchased = append(s.Upgrades.Purchased, def.ID)
	for _, e := range def.Effects {
		applyEffect(s, e)
	}
	return true
}

// applyEffect bakes a permanent upgrade effect into the state.
func applyEffect(s *State, e catalog.Effect) {
	switch e.Kind {
	case catalog.ScaleProduction:
		if b, ok := s.Buildings[e.Building]; ok {
			b.ProductionRate *= e.Factor
			b.BaseProduction *= e.Factor
		}
	case catalog.ScalePollution:
		if b, ok := s.Buildings[e.Building]; ok {
			b.PollutionRate *= e.Factor
			b.BasePollution *= e.Factor
		}
	case catalog.RestoreAquifer:
		s.Stats.AquiferLevel = clampPercent(s.Stats.AquiferLevel + e.Amount)
	case catalog.ScaleAllCosts:
		for _, b := range s.Buildings {
			b.BaseCost = economy.Discount(b.BaseCost, e.Factor)
			b.Cost = economy.Discount(b.Cost, e.Factor)
		}
	}
}
