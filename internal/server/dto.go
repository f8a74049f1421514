package server

import (
	"errors"
	"fmt"

	"github.com/dremmer8/poker/internal/engine"
)

var errBadAction = errors.New("bad action")

type ActionDTO struct {
	Type    string `json:"type"`
	Player  string `json:"player,omitempty"`
	Value   int    `json:"value,omitempty"`
	Special string `json:"special,omitempty"`
}

func (a *ActionDTO) ToEngine() (engine.Action, error) {
	if a == nil {
		return engine.Action{}, fmt.Errorf("%w: action missing", errBadAction)
	}
	t, ok := engine.ParseActionType(a.Type)
	if !ok {
		return engine.Action{}, fmt.Errorf("%w: %q", engine.ErrUnknownAction, a.Type)
	}
	out := engine.Action{Type: t, Player: a.Player, Value: a.Value}
	switch t {
	case engine.ActionSetBid, engine.ActionSetTricks, engine.ActionToggleBlind,
		engine.ActionAdjustScore, engine.ActionAddPlayer, engine.ActionRemovePlayer:
		if a.Player == "" {
			return engine.Action{}, fmt.Errorf("%w: %s needs a player", errBadAction, a.Type)
		}
	case engine.ActionSetSpecialGame:
		special, err := engine.ParseSpecialGame(a.Special)
		if err != nil {
			return engine.Action{}, err
		}
		if special == engine.SpecialNone {
			return engine.Action{}, fmt.Errorf("%w: special game required", errBadAction)
		}
		out.Special = special
	}
	return out, nil
}

func ActionFromEngine(a engine.Action) ActionDTO {
	return ActionDTO{Type: a.Type.String(), Player: a.Player, Value: a.Value, Special: string(a.Special)}
}

type NewGameRequest struct {
	Players  []string `json:"players"`
	DeckSize int      `json:"deckSize"`
	Start    bool     `json:"start"`
}

type ActionRequest struct {
	ActionID string     `json:"actionId"`
	Action   *ActionDTO `json:"action"`
}

type StagesRequest struct {
	Stages []string `json:"stages"`
}

func parseStageTypes(in []string) ([]engine.StageType, error) {
	out := make([]engine.StageType, 0, len(in))
	for _, s := range in {
		t, err := engine.ParseStageType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
