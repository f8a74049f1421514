package server

import "github.com/dremmer8/poker/internal/engine"

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type EventPayload struct {
	Player  string         `json:"player,omitempty"`
	Value   *int           `json:"value,omitempty"`
	Enabled *bool          `json:"enabled,omitempty"`
	Special string         `json:"special,omitempty"`
	Phase   string         `json:"phase,omitempty"`
	Round   int            `json:"round,omitempty"`
	Points  map[string]int `json:"points,omitempty"`
	Winner  string         `json:"winner,omitempty"`
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func buildEvents(prev, next *engine.GameSession, action engine.Action) []Event {
	events := []Event{}
	switch action.Type {
	case engine.ActionStart:
		events = append(events, Event{Type: "game_started"})
	case engine.ActionSetBid:
		events = append(events, Event{Type: "bid_set", Data: EventPayload{Player: action.Player, Value: intp(action.Value)}})
	case engine.ActionSetTricks:
		events = append(events, Event{Type: "tricks_set", Data: EventPayload{Player: action.Player, Value: intp(action.Value)}})
	case engine.ActionToggleBlind:
		events = append(events, Event{Type: "blind_toggled", Data: EventPayload{Player: action.Player, Enabled: boolp(next.BlindBidders[action.Player])}})
	case engine.ActionSetSpecialGame:
		events = append(events, Event{Type: "special_game_set", Data: EventPayload{Special: string(next.SpecialGame)}})
	case engine.ActionClearSpecialGame:
		events = append(events, Event{Type: "special_game_cleared"})
	case engine.ActionToggleDealerRotation:
		events = append(events, Event{Type: "dealer_rotation_toggled", Data: EventPayload{Enabled: boolp(next.DealerRotation)}})
	case engine.ActionAdjustScore:
		events = append(events, Event{Type: "score_adjusted", Data: EventPayload{Player: action.Player, Value: intp(action.Value)}})
	case engine.ActionAddPlayer:
		events = append(events, Event{Type: "player_added", Data: EventPayload{Player: action.Player}})
	case engine.ActionRemovePlayer:
		events = append(events, Event{Type: "player_removed", Data: EventPayload{Player: action.Player}})
	case engine.ActionSetDeckSize:
		events = append(events, Event{Type: "deck_size_set", Data: EventPayload{Value: intp(next.DeckSize)}})
	}

	if prev.Phase != next.Phase {
		events = append(events, Event{Type: "phase_changed", Data: EventPayload{Phase: next.Phase.String()}})
	}
	// Round scored
	if len(next.RoundHistory) > len(prev.RoundHistory) {
		rec := next.RoundHistory[len(next.RoundHistory)-1]
		points := make(map[string]int, len(rec.Results))
		for _, r := range rec.Results {
			points[r.Player] = r.Points
		}
		events = append(events, Event{Type: "round_closed", Data: EventPayload{Round: rec.RoundNumber, Points: points}})
	}
	if next.Phase == engine.PhaseFinished && prev.Phase != engine.PhaseFinished {
		events = append(events, Event{Type: "game_finished", Data: EventPayload{Winner: next.Winner}})
	}
	return events
}
