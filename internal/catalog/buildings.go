// Package catalog holds the static game data: building kinds, research upgrades
// and the random event table. Everything here is immutable data; the engine
// interprets triggers, effects and modifiers at its own decision points.
package catalog

// BuildingID identifies a building kind.
type BuildingID string

const (
	Pump               BuildingID = "pump"
	Purifier           BuildingID = "purifier"
	Bottler            BuildingID = "bottler"
	RainwaterHarvester BuildingID = "rainwaterHarvester"
	TreatmentPlant     BuildingID = "treatmentPlant"
)

// BuildingType classifies how a building participates in the production chain.
type BuildingType string

const (
	Producer  BuildingType = "producer"
	Converter BuildingType = "converter"
	Reducer   BuildingType = "reducer"
)

// Resource names used for building inputs and outputs.
const (
	ResourceMoney         = "money"
	ResourcePollutedWater = "pollutedWater"
	ResourceCleanWater    = "cleanWater"
)

// Building is the static definition of a building kind.
type Building struct {
	ID             BuildingID   `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	BaseCost       float64      `json:"baseCost"`
	BaseProduction float64      `json:"baseProduction"` // Output units per owned building per tick
	BasePollution  float64      `json:"basePollution"`  // Pollution points per owned building per tick
	Type           BuildingType `json:"type"`
	Input          string       `json:"input,omitempty"`
	Output         string       `json:"output,omitempty"`
}

// buildings is ordered; iteration order is display and migration order.
var buildings = []Building{
	{
		ID:             Pump,
		Name:           "Groundwater Pump",
		Description:    "Automatically pumps polluted water from the aquifer.",
		BaseCost:       50,
		BaseProduction: 1,
		BasePollution:  0.05,
		Type:           Producer,
		Output:         ResourcePollutedWater,
	},
	{
		ID:             Purifier,
		Name:           "Water Purifier",
		Description:    "Purifies polluted water into clean water.",
		BaseCost:       150,
		BaseProduction: 1,
		BasePollution:  -0.02,
		Type:           Converter,
		Input:          ResourcePollutedWater,
		Output:         ResourceCleanWater,
	},
	{
		ID:             Bottler,
		Name:           "Bottling Plant",
		Description:    "Packages clean water for sale.",
		BaseCost:       500,
		BaseProduction: 5,
		BasePollution:  0.1, // plastic waste
		Type:           Converter,
		Input:          ResourceCleanWater,
		Output:         ResourceMoney,
	},
	{
		ID:             RainwaterHarvester,
		Name:           "Rainwater Harvester",
		Description:    "Collects rain. Sustainable and clean.",
		BaseCost:       300,
		BaseProduction: 1,
		BasePollution:  0,
		Type:           Producer,
		Output:         ResourceCleanWater,
	},
	{
		ID:             TreatmentPlant,
		Name:           "Treatment Plant",
		Description:    "Industrial scale pollution filtering.",
		BaseCost:       2000,
		BaseProduction: 0,
		BasePollution:  -0.2,
		Type:           Reducer,
	},
}

// Buildings returns every building definition in catalog order.
func Buildings() []Building {
	out := make([]Building, len(buildings))
	copy(out, buildings)
	return out
}

// LookupBuilding returns the definition for id.
func LookupBuilding(id BuildingID) (Building, bool) {
	for _, b := range buildings {
		if b.ID == id {
			return b, true
		}
	}
	return Building{}, false
}

// BuildingIDs returns all building ids in catalog order.
func BuildingIDs() []string {
	ids := make([]string, 0, len(buildings))
	for _, b := range buildings {
		ids = append(ids, string(b.ID))
	}
	return ids
}
