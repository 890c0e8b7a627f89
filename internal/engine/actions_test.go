package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wellspring/internal/catalog"
)

func TestResourceActions(t *testing.T) {
	tests := []struct {
		name    string
		kind    ActionKind
		setup   func(*State)
		applied bool
		check   func(t *testing.T, s State)
	}{
		{
			name:    "manual collect",
			kind:    ManualCollect,
			applied: true,
			check: func(t *testing.T, s State) {
				assert.Equal(t, 1.0, s.Resources.PollutedWater)
				assert.InDelta(t, 99.9, s.Stats.AquiferLevel, 1e-9)
			},
		},
		{
			name:  "manual collect on dry aquifer",
			kind:  ManualCollect,
			setup: func(s *State) { s.Stats.AquiferLevel = 0 },
		},
		{
			name:  "purify with nothing to purify",
			kind:  PurifyWater,
			setup: func(s *State) { s.Resources.PollutedWater = 0.5 },
		},
		{
			name:    "purify",
			kind:    PurifyWater,
			setup:   func(s *State) { s.Resources.PollutedWater = 2 },
			applied: true,
			check: func(t *testing.T, s State) {
				assert.Equal(t, 1.0, s.Resources.PollutedWater)
				assert.Equal(t, 1.0, s.Resources.CleanWater)
			},
		},
		{
			name: "sell without stock",
			kind: SellCleanWater,
		},
		{
			name:    "plant tree",
			kind:    PlantTree,
			applied: true,
			check: func(t *testing.T, s State) {
				assert.Equal(t, 50.0, s.Resources.Money)
				assert.Equal(t, 19.0, s.Stats.PollutionLevel)
			},
		},
		{
			name:  "plant tree when broke",
			kind:  PlantTree,
			setup: func(s *State) { s.Resources.Money = 49 },
		},
		{
			name:    "plant tree on clean ground",
			kind:    PlantTree,
			setup:   func(s *State) { s.Stats.PollutionLevel = 0.5 },
			applied: true,
			check: func(t *testing.T, s State) {
				assert.Equal(t, 0.0, s.Stats.PollutionLevel)
			},
		},
		{
			name:  "cleanup when broke",
			kind:  OrganizeCleanup,
			setup: func(s *State) { s.Resources.Money = 499 },
		},
		{
			name:    "cleanup",
			kind:    OrganizeCleanup,
			setup:   func(s *State) { s.Resources.Money = 500 },
			applied: true,
			check: func(t *testing.T, s State) {
				assert.Equal(t, 0.0, s.Resources.Money)
				assert.Equal(t, 10.0, s.Stats.PollutionLevel)
			},
		},
		{
			name: "dismiss without event",
			kind: DismissEvent,
		},
		{
			name:    "dismiss",
			kind:    DismissEvent,
			setup:   func(s *State) { s.ActiveEvent = &ActiveEvent{ID: catalog.EventRain} },
			applied: true,
			check: func(t *testing.T, s State) {
				assert.Nil(t, s.ActiveEvent)
				assert.Equal(t, 100.0, s.Stats.AquiferLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			if tt.setup != nil {
				tt.setup(&s)
			}
			before := s.Clone()

			next, applied, err := Apply(s, Action{Kind: tt.kind})
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)
			if !tt.applied {
				assert.Equal(t, before, next, "no-op must leave state unchanged")
				again, applied, err := Apply(next, Action{Kind: tt.kind})
				require.NoError(t, err)
				assert.False(t, applied)
				assert.Equal(t, before, again, "repeating a no-op must leave state unchanged")
				return
			}
			tt.check(t, next)
			assert.Equal(t, before, s, "input state must not change")
		})
	}
}

func TestSellCleanWaterRepeatedly(t *testing.T) {
	s := NewState()
	s.Resources.CleanWater = 3

	for range 3 {
		var applied bool
		var err error
		s, applied, err = Apply(s, Action{Kind: SellCleanWater})
		require.NoError(t, err)
		require.True(t, applied)
	}
	assert.Equal(t, 115.0, s.Resources.Money)
	assert.Equal(t, 0.0, s.Resources.CleanWater)

	_, applied, err := Apply(s, Action{Kind: SellCleanWater})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSmartMeteringSellsForSeven(t *testing.T) {
	s := NewState()
	s.Resources.CleanWater = 1
	s.Upgrades.Purchased = []catalog.UpgradeID{catalog.SmartMetering}

	next, applied, err := Apply(s, Action{Kind: SellCleanWater})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, 107.0, next.Resources.Money)
}

func TestBuyBuildingCostsGrow(t *testing.T) {
	s := NewState()
	s.Resources.Money = 10_000

	prev := s.Buildings[catalog.Purifier].Cost
	for i := 1; i <= 10; i++ {
		var applied bool
		var err error
		money := s.Resources.Money
		s, applied, err = Apply(s, Action{Kind: BuyBuilding, Target: "purifier"})
		require.NoError(t, err)
		require.True(t, applied)

		b := s.Buildings[catalog.Purifier]
		assert.Equal(t, i, b.Count)
		assert.Equal(t, money-prev, s.Resources.Money, "debit is exactly the quoted cost")
		assert.Greater(t, b.Cost, prev)
		assert.Equal(t, float64(i), b.ProductionRate)
		prev = b.Cost
	}
}

func TestBuyBuildingInsufficientFunds(t *testing.T) {
	s := NewState()
	next, applied, err := Apply(s, Action{Kind: BuyBuilding, Target: "bottler"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, s, next)
}

func TestUnknownIdentifiers(t *testing.T) {
	tests := []struct {
		action Action
		hint   string
	}{
		{Action{Kind: BuyBuilding, Target: "pmup"}, `"pump"`},
		{Action{Kind: BuyUpgrade, Target: "marketting"}, `"marketing"`},
		{Action{Kind: "sell-clean-watr"}, `"sell-clean-water"`},
		{Action{Kind: BuyBuilding, Target: "spaceship"}, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.action.Kind)+"/"+tt.action.Target, func(t *testing.T) {
			s := NewState()
			next, applied, err := Apply(s, tt.action)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidIdentifier))
			assert.False(t, applied)
			assert.Equal(t, s, next)
			if tt.hint != "" {
				assert.Contains(t, err.Error(), "did you mean "+tt.hint)
			} else {
				assert.NotContains(t, err.Error(), "did you mean")
			}
		})
	}
}

func TestBuyUpgradeRequiresUnlock(t *testing.T) {
	s := NewState()
	s.Resources.Money = 10_000

	next, applied, err := Apply(s, Action{Kind: BuyUpgrade, Target: string(catalog.DeepDrilling)})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, s, next)
}

func TestBuyUpgradeMovesToPurchased(t *testing.T) {
	s := NewState()
	s.Resources.Money = 1500
	s.Stats.AquiferLevel = 90
	s.Upgrades.Available = []catalog.UpgradeID{catalog.DeepDrilling, catalog.SmartMetering}

	next, applied, err := Apply(s, Action{Kind: BuyUpgrade, Target: string(catalog.DeepDrilling)})
	require.NoError(t, err)
	require.True(t, applied)

	assert.Equal(t, 500.0, next.Resources.Money)
	assert.Equal(t, 100.0, next.Stats.AquiferLevel, "restoration is capped")
	assert.Equal(t, []catalog.UpgradeID{catalog.SmartMetering}, next.Upgrades.Available)
	assert.Equal(t, []catalog.UpgradeID{catalog.DeepDrilling}, next.Upgrades.Purchased)

	// buying again is a no-op
	again, applied, err := Apply(next, Action{Kind: BuyUpgrade, Target: string(catalog.DeepDrilling)})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, next, again)
}

func TestEfficientPumpsHalvesPollution(t *testing.T) {
	s := NewState()
	s.Resources.Money = 1000
	setCount(&s, catalog.Pump, 5)
	s.Upgrades.Available = []catalog.UpgradeID{catalog.EfficientPumps}

	next, applied, err := Apply(s, Action{Kind: BuyUpgrade, Target: string(catalog.EfficientPumps)})
	require.NoError(t, err)
	require.True(t, applied)

	pump := next.Buildings[catalog.Pump]
	assert.InDelta(t, 0.125, pump.PollutionRate, 1e-9)
	assert.InDelta(t, 0.025, pump.BasePollution, 1e-9)

	// later purchases keep the halved base
	next.Resources.Money = 1000
	next, _, err = Apply(next, Action{Kind: BuyBuilding, Target: "pump"})
	require.NoError(t, err)
	assert.InDelta(t, 0.15, next.Buildings[catalog.Pump].PollutionRate, 1e-9)
}

func TestMarketingBoostsBottlers(t *testing.T) {
	s := NewState()
	s.Resources.Money = 2000
	setCount(&s, catalog.Bottler, 3)
	s.Upgrades.Available = []catalog.UpgradeID{catalog.Marketing}

	next, applied, err := Apply(s, Action{Kind: BuyUpgrade, Target: string(catalog.Marketing)})
	require.NoError(t, err)
	require.True(t, applied)
	assert.InDelta(t, 22.5, next.Buildings[catalog.Bottler].ProductionRate, 1e-9)
	assert.InDelta(t, 7.5, next.Buildings[catalog.Bottler].BaseProduction, 1e-9)
}

func TestBulkContractsDiscountsEverything(t *testing.T) {
	s := NewState()
	s.Resources.Money = 4100
	s.Upgrades.Available = []catalog.UpgradeID{catalog.BulkContracts}

	next, applied, err := Apply(s, Action{Kind: BuyUpgrade, Target: string(catalog.BulkContracts)})
	require.NoError(t, err)
	require.True(t, applied)
	assert.InDelta(t, 100.0, next.Resources.Money, 1e-9)
	assert.InDelta(t, 45.0, next.Buildings[catalog.Pump].Cost, 1e-9)
	assert.InDelta(t, 1800.0, next.Buildings[catalog.TreatmentPlant].BaseCost, 1e-9)

	next, applied, err = Apply(next, Action{Kind: BuyBuilding, Target: "pump"})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, 51.0, next.Buildings[catalog.Pump].Cost)
}
