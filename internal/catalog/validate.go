package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

// Validate checks the static tables for internal consistency.
func Validate() error {
	var errs []error

	seenB := make(map[BuildingID]bool)
	for _, b := range buildings {
		if seenB[b.ID] {
			errs = append(errs, fmt.Errorf("building %q: duplicate id", b.ID))
		}
		seenB[b.ID] = true
		if b.BaseCost <= 0 {
			errs = append(errs, fmt.Errorf("building %q: base cost must be positive", b.ID))
		}
		switch b.Type {
		case Producer, Converter, Reducer:
		default:
			errs = append(errs, fmt.Errorf("building %q: unknown type %q", b.ID, b.Type))
		}
	}

	seenU := make(map[UpgradeID]bool)
	for _, u := range upgrades {
		if seenU[u.ID] {
			errs = append(errs, fmt.Errorf("upgrade %q: duplicate id", u.ID))
		}
		seenU[u.ID] = true
		if u.Cost <= 0 {
			errs = append(errs, fmt.Errorf("upgrade %q: cost must be positive", u.ID))
		}
		if err := validateCondition(u.Trigger, seenB); err != nil {
			errs = append(errs, fmt.Errorf("upgrade %q trigger: %w", u.ID, err))
		}
		if len(u.Effects) == 0 && len(u.Modifiers) == 0 {
			errs = append(errs, fmt.Errorf("upgrade %q: no effects or modifiers", u.ID))
		}
		for _, e := range u.Effects {
			if err := validateEffect(e, seenB); err != nil {
				errs = append(errs, fmt.Errorf("upgrade %q effect: %w", u.ID, err))
			}
		}
		for _, m := range u.Modifiers {
			if err := validateModifier(m); err != nil {
				errs = append(errs, fmt.Errorf("upgrade %q modifier: %w", u.ID, err))
			}
		}
	}

	seenE := make(map[EventID]bool)
	for _, e := range events {
		if seenE[e.ID] {
			errs = append(errs, fmt.Errorf("event %q: duplicate id", e.ID))
		}
		seenE[e.ID] = true
		switch e.Effect {
		case RaiseAquifer, RaisePollution, GrantMoney:
		default:
			errs = append(errs, fmt.Errorf("event %q: unknown effect %q", e.ID, e.Effect))
		}
	}

	return errors.Join(errs...)
}

func validateCondition(c Condition, known map[BuildingID]bool) error {
	switch c.Kind {
	case BuildingCountAtLeast:
		if !known[c.Building] {
			return fmt.Errorf("unknown building %q", c.Building)
		}
	case MoneyAtLeast, CleanWaterAbove, PollutionAtLeast:
	default:
		return fmt.Errorf("unknown condition %q", c.Kind)
	}
	return nil
}

func validateEffect(e Effect, known map[BuildingID]bool) error {
	switch e.Kind {
	case ScaleProduction, ScalePollution:
		if !known[e.Building] {
			return fmt.Errorf("unknown building %q", e.Building)
		}
		if e.Factor <= 0 {
			return fmt.Errorf("%s: factor must be positive", e.Kind)
		}
	case ScaleAllCosts:
		if e.Factor <= 0 || e.Factor >= 1 {
			return fmt.Errorf("%s: factor must be in (0,1)", e.Kind)
		}
	case RestoreAquifer:
		if e.Amount <= 0 {
			return fmt.Errorf("%s: amount must be positive", e.Kind)
		}
	default:
		return fmt.Errorf("unknown effect %q", e.Kind)
	}
	return nil
}

func validateModifier(m Modifier) error {
	switch m.Kind {
	case SellPrice, RainMultiplier, PassiveCleanup:
		if m.Value <= 0 {
			return fmt.Errorf("%s: value must be positive", m.Kind)
		}
	case SuppressEvent:
		for _, e := range events {
			if e.ID == m.Event {
				return nil
			}
		}
		return fmt.Errorf("%s: unknown event %q", m.Kind, m.Event)
	default:
		return fmt.Errorf("unknown modifier %q", m.Kind)
	}
	return nil
}

// Suggest returns the candidate closest to id by edit distance, or "" when
// nothing is close enough to be a plausible typo.
func Suggest(id string, candidates []string) string {
	best := ""
	bestDist := -1
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, cand := range sorted {
		d := levenshtein.ComputeDistance(id, cand)
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	if bestDist < 0 || bestDist > suggestLimit(len(best)) {
		return ""
	}
	return best
}

func suggestLimit(n int) int {
	switch {
	case n <= 5:
		return 2
	case n <= 10:
		return 3
	default:
		return 4
	}
}
