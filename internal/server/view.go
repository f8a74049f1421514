package server

import (
	"errors"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/gamesync"
)

type StageView struct {
	Number       int    `json:"number"`
	Type         string `json:"type"`
	Rounds       int    `json:"rounds"`
	Rule         string `json:"rule"`
	Cards        int    `json:"cards,omitempty"`
	RoundInStage int    `json:"roundInStage,omitempty"`
	Edge         bool   `json:"edge"`
	Blind        bool   `json:"blind"`
	Description  string `json:"description"`
}

type BidStatusView struct {
	Total        int    `json:"total"`
	Cap          int    `json:"cap"`
	CardsPerHand int    `json:"cardsPerHand"`
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
	Player       string `json:"player,omitempty"`
}

// SessionView is the console's picture of the active game: the shared
// snapshot plus everything derived from it.
type SessionView struct {
	gamesync.Snapshot
	TotalRounds   int            `json:"totalRounds"`
	Stage         *StageView     `json:"stage,omitempty"`
	Dealer        string         `json:"dealer"`
	FirstToAct    string         `json:"firstToAct"`
	PlayerOrder   []string       `json:"playerOrder"`
	Bids          BidStatusView  `json:"bids"`
	ForbiddenBids map[string]int `json:"forbiddenBids,omitempty"`
	LegalActions  []string       `json:"legalActions"`
	DefaultStages bool           `json:"defaultStages,omitempty"`
}

func stageView(number int, spec engine.StageSpec, maxCards int) StageView {
	return StageView{
		Number:      number,
		Type:        string(spec.Type),
		Rounds:      spec.Rounds,
		Rule:        spec.Rule.Kind.String(),
		Cards:       spec.Rule.Cards,
		Edge:        engine.IsEdgeStage(number - 1),
		Blind:       spec.Blind(),
		Description: engine.DescribeStage(spec, maxCards),
	}
}

func BuildSessionView(s *engine.GameSession) *SessionView {
	if s == nil {
		return nil
	}
	v := &SessionView{
		Snapshot:      gamesync.FromSession(s),
		TotalRounds:   s.TotalRounds(),
		Dealer:        engine.Dealer(s),
		FirstToAct:    engine.FirstToAct(s),
		PlayerOrder:   engine.PlayerOrder(s),
		LegalActions:  []string{},
		DefaultStages: s.UsesDefaultStages(),
	}
	if info, ok := s.CurrentStage(); ok && s.Phase != engine.PhaseFinished {
		sv := stageView(info.Number(), info.Spec, s.MaxCards)
		sv.RoundInStage = info.RoundInStage
		v.Stage = &sv
	}

	st := engine.BidSummary(s)
	v.Bids = BidStatusView{Total: st.Total, Cap: st.Cap, CardsPerHand: st.CardsPerHand, Valid: st.Valid()}
	var bidErr *engine.BidError
	if errors.As(st.Err, &bidErr) {
		v.Bids.Reason = bidErr.Reason.String()
		v.Bids.Player = bidErr.Player
	}
	if s.Phase == engine.PhaseBidding {
		v.ForbiddenBids = map[string]int{}
		for _, p := range s.Players {
			if bid, ok := engine.ForbiddenBid(s, p); ok {
				v.ForbiddenBids[p] = bid
			}
		}
	}
	for _, a := range engine.LegalActions(*s) {
		v.LegalActions = append(v.LegalActions, a.String())
	}
	return v
}

type StagesView struct {
	Preset       string      `json:"preset"`
	CustomStages []string    `json:"customStages"`
	Players      int         `json:"players"`
	DeckSize     int         `json:"deckSize"`
	MaxCards     int         `json:"maxCards"`
	Builtin      bool        `json:"builtin"`
	TotalRounds  int         `json:"totalRounds"`
	Stages       []StageView `json:"stages"`
}

func BuildStagesView(preset string, custom []engine.StageType, playerCount, deckSize int) StagesView {
	cfg, builtin := engine.ResolveStages(playerCount, deckSize, custom)
	maxCards := engine.MaxCards(playerCount, deckSize)
	v := StagesView{
		Preset:       preset,
		CustomStages: []string{},
		Players:      playerCount,
		DeckSize:     deckSize,
		MaxCards:     maxCards,
		Builtin:      builtin && len(custom) == 0,
		TotalRounds:  cfg.TotalRounds(),
		Stages:       make([]StageView, 0, len(cfg.Stages)),
	}
	for _, t := range custom {
		v.CustomStages = append(v.CustomStages, string(t))
	}
	for i, spec := range cfg.Stages {
		v.Stages = append(v.Stages, stageView(i+1, spec, maxCards))
	}
	return v
}
