package catalog

import "fmt"

// EventID identifies a random event.
type EventID string

const (
	EventRain  EventID = "rain"
	EventLeak  EventID = "leak"
	EventGrant EventID = "grant"
)

// EventEffectKind enumerates what a random event does to the session.
type EventEffectKind string

const (
	RaiseAquifer   EventEffectKind = "raise_aquifer"
	RaisePollution EventEffectKind = "raise_pollution"
	GrantMoney     EventEffectKind = "grant_money"
)

// Event is the static definition of a random disruption or bonus.
type Event struct {
	ID     EventID         `json:"id"`
	Title  string          `json:"title"`
	Effect EventEffectKind `json:"effect"`
	Amount float64         `json:"amount"`

	// Format receives the effective amount, so boosted events describe themselves.
	Format string `json:"-"`
}

// Describe renders the event description for the given effective amount.
func (e Event) Describe(amount float64) string {
	return fmt.Sprintf(e.Format, amount)
}

var events = []Event{
	{
		ID:     EventRain,
		Title:  "Heavy Rainfall",
		Effect: RaiseAquifer,
		Amount: 10,
		Format: "A storm replenishes the aquifer! (+%g%% Water Level)",
	},
	{
		ID:     EventLeak,
		Title:  "Pipeline Leak",
		Effect: RaisePollution,
		Amount: 5,
		Format: "Polluted water leaks into the ground! (+%g%% Pollution)",
	},
	{
		ID:     EventGrant,
		Title:  "Government Grant",
		Effect: GrantMoney,
		Amount: 200,
		Format: "You received a grant for sustainability! (+$%g)",
	},
}

// Events returns the random event table.
func Events() []Event {
	out := make([]Event, len(events))
	copy(out, events)
	return out
}
