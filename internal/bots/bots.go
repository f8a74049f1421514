package bots

import (
	"math/rand"

	"github.com/dremmer8/poker/internal/engine"
)

// Bot suggests a bid for one seat. Returned actions are always
// ActionSetBid and never push the round total onto the hand size.
type Bot interface {
	ChooseAction(state engine.GameSession, player string) engine.Action
}

type EasyBot struct {
	RNG *rand.Rand
}

func NewEasy(seed int64) *EasyBot {
	return &EasyBot{RNG: rand.New(rand.NewSource(seed))}
}

func (b *EasyBot) ChooseAction(state engine.GameSession, player string) engine.Action {
	bid := b.RNG.Intn(state.CardsPerHand + 1)
	return bidAction(&state, player, avoidForbidden(&state, player, bid))
}

type NormalBot struct {
	RNG *rand.Rand
}

func NewNormal(seed int64) *NormalBot {
	return &NormalBot{RNG: rand.New(rand.NewSource(seed))}
}

func (b *NormalBot) ChooseAction(state engine.GameSession, player string) engine.Action {
	return bidAction(&state, player, avoidForbidden(&state, player, bidByHeuristic(&state, b.RNG)))
}

// bidByHeuristic bids the fair share of tricks. On one-card edge stages a
// zero bid is worth 15, so it only bids 1 a third of the time.
func bidByHeuristic(state *engine.GameSession, rng *rand.Rand) int {
	cph := state.CardsPerHand
	n := len(state.Players)
	if n == 0 || cph == 0 {
		return 0
	}
	if info, ok := state.CurrentStage(); ok && engine.IsEdgeStage(info.Index) && cph == 1 {
		if rng.Intn(3) == 0 {
			return 1
		}
		return 0
	}
	share := (cph + n/2) / n
	switch rng.Intn(4) {
	case 0:
		share--
	case 1:
		share++
	}
	if share < 0 {
		share = 0
	}
	if share > cph {
		share = cph
	}
	return share
}

func avoidForbidden(state *engine.GameSession, player string, bid int) int {
	v, ok := engine.ForbiddenBid(state, player)
	if !ok || v != bid {
		return bid
	}
	if bid > 0 {
		return bid - 1
	}
	return bid + 1
}

func bidAction(state *engine.GameSession, player string, bid int) engine.Action {
	if bid > state.CardsPerHand {
		bid = state.CardsPerHand
	}
	return engine.Action{Type: engine.ActionSetBid, Player: player, Value: bid}
}

// Table seats a different bot at each player name. Unknown seats fall back
// to Default.
type Table struct {
	Seats   map[string]Bot
	Default Bot
}

func (t Table) ChooseAction(state engine.GameSession, player string) engine.Action {
	if b, ok := t.Seats[player]; ok {
		return b.ChooseAction(state, player)
	}
	return t.Default.ChooseAction(state, player)
}
