package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	counts    map[BuildingID]int
	money     float64
	clean     float64
	aquifer   float64
	pollution float64
}

func (f fakeView) BuildingCount(id BuildingID) int { return f.counts[id] }
func (f fakeView) Money() float64                  { return f.money }
func (f fakeView) CleanWater() float64             { return f.clean }
func (f fakeView) AquiferLevel() float64           { return f.aquifer }
func (f fakeView) PollutionLevel() float64         { return f.pollution }

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

func TestBuildingsOrderAndValues(t *testing.T) {
	bs := Buildings()
	require.Len(t, bs, 5)
	assert.Equal(t, []string{"pump", "purifier", "bottler", "rainwaterHarvester", "treatmentPlant"}, BuildingIDs())

	pump, ok := LookupBuilding(Pump)
	require.True(t, ok)
	assert.Equal(t, 50.0, pump.BaseCost)
	assert.Equal(t, 1.0, pump.BaseProduction)
	assert.Equal(t, 0.05, pump.BasePollution)
	assert.Equal(t, Producer, pump.Type)

	plant, ok := LookupBuilding(TreatmentPlant)
	require.True(t, ok)
	assert.Less(t, plant.BasePollution, 0.0)

	_, ok = LookupBuilding("windmill")
	assert.False(t, ok)
}

func TestBuildingsReturnsCopy(t *testing.T) {
	bs := Buildings()
	bs[0].BaseCost = 1
	pump, _ := LookupBuilding(Pump)
	assert.Equal(t, 50.0, pump.BaseCost)
}

func TestUpgradesReturnsDeepCopy(t *testing.T) {
	us := Upgrades()
	us[0].Effects[0].Factor = 10
	us[3].Modifiers[0].Value = 1000
	us[0].Effects = append(us[0].Effects[:0], Effect{Kind: ScaleAllCosts, Factor: 0})

	u, ok := LookupUpgrade(EfficientPumps)
	require.True(t, ok)
	assert.Equal(t, 0.5, u.Effects[0].Factor)
	u.Effects[0].Factor = 3

	again, _ := LookupUpgrade(EfficientPumps)
	assert.Equal(t, 0.5, again.Effects[0].Factor)
	meter, _ := LookupUpgrade(SmartMetering)
	assert.Equal(t, 7.0, meter.Modifiers[0].Value)
	require.NoError(t, Validate())
}

func TestConditionMet(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		view fakeView
		want bool
	}{
		{"pump count below", Condition{Kind: BuildingCountAtLeast, Building: Pump, Threshold: 5}, fakeView{counts: map[BuildingID]int{Pump: 4}}, false},
		{"pump count reached", Condition{Kind: BuildingCountAtLeast, Building: Pump, Threshold: 5}, fakeView{counts: map[BuildingID]int{Pump: 5}}, true},
		{"money reached", Condition{Kind: MoneyAtLeast, Threshold: 800}, fakeView{money: 800}, true},
		{"clean water is strict", Condition{Kind: CleanWaterAbove, Threshold: 20}, fakeView{clean: 20}, false},
		{"clean water above", Condition{Kind: CleanWaterAbove, Threshold: 20}, fakeView{clean: 20.5}, true},
		{"pollution reached", Condition{Kind: PollutionAtLeast, Threshold: 40}, fakeView{pollution: 40}, true},
		{"unknown kind", Condition{Kind: "bogus"}, fakeView{money: 1e9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Met(tt.view))
		})
	}
}

func TestSmartMeteringTrigger(t *testing.T) {
	u, ok := LookupUpgrade(SmartMetering)
	require.True(t, ok)
	assert.Equal(t, 1200.0, u.Cost)
	assert.False(t, u.Trigger.Met(fakeView{clean: 20}))
	assert.True(t, u.Trigger.Met(fakeView{clean: 21}))
}

func TestModifiersFor(t *testing.T) {
	none := ModifiersFor(nil)
	assert.Equal(t, 5.0, none.SellPrice())
	assert.Equal(t, 1.0, none.RainMultiplier())
	assert.Zero(t, none.PassiveCleanup())
	assert.False(t, none.Suppresses(EventLeak))

	all := ModifiersFor([]UpgradeID{SmartMetering, CloudSeeding, BioAlgae, AILeakDetection, "retired"})
	assert.Equal(t, 7.0, all.SellPrice())
	assert.Equal(t, 2.0, all.RainMultiplier())
	assert.Equal(t, 0.5, all.PassiveCleanup())
	assert.True(t, all.Suppresses(EventLeak))
	assert.False(t, all.Suppresses(EventRain))
}

func TestEventDescribe(t *testing.T) {
	evs := Events()
	require.Len(t, evs, 3)
	assert.Equal(t, "A storm replenishes the aquifer! (+10% Water Level)", evs[0].Describe(10))
	assert.Equal(t, "A storm replenishes the aquifer! (+20% Water Level)", evs[0].Describe(20))
	assert.Equal(t, "You received a grant for sustainability! (+$200)", evs[2].Describe(200))
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "pump", Suggest("pmup", BuildingIDs()))
	assert.Equal(t, "purifier", Suggest("purifer", BuildingIDs()))
	assert.Equal(t, "smartMetering", Suggest("smartmetering", UpgradeIDs()))
	assert.Equal(t, "", Suggest("spaceship", BuildingIDs()))
	assert.Equal(t, "", Suggest("x", nil))
}
