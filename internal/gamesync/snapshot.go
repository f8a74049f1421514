package gamesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dremmer8/poker/internal/engine"
)

var ErrCorruptSnapshot = errors.New("corrupt session snapshot")

type StageDoc struct {
	Type   string `json:"type"`
	Rounds int    `json:"rounds"`
	Rule   string `json:"rule"`
	Cards  int    `json:"cards,omitempty"`
}

type ResultDoc struct {
	Player       string `json:"player"`
	Bid          int    `json:"bid"`
	Tricks       int    `json:"tricks"`
	Points       int    `json:"points"`
	BlindBidding bool   `json:"blindBidding,omitempty"`
}

type RoundDoc struct {
	Round        int         `json:"round"`
	CardsPerHand int         `json:"cardsPerHand"`
	Stage        int         `json:"stage"`
	SpecialGame  string      `json:"specialGame,omitempty"`
	Results      []ResultDoc `json:"results"`
}

type OpenRoundDoc struct {
	Results []ResultDoc `json:"results"`
}

// Snapshot is the wire and storage form of a session. Timestamps are
// RFC 3339 strings.
type Snapshot struct {
	ID             string         `json:"id"`
	Players        []string       `json:"players"`
	DeckSize       int            `json:"deckSize"`
	CustomStages   []string       `json:"customStages,omitempty"`
	Stages         []StageDoc     `json:"stages"`
	CurrentRound   int            `json:"currentRound"`
	CardsPerHand   int            `json:"cardsPerHand"`
	MaxCards       int            `json:"maxCards"`
	Scores         map[string]int `json:"scores"`
	Adjustments    map[string]int `json:"adjustments,omitempty"`
	RoundHistory   []RoundDoc     `json:"roundHistory"`
	OpenRound      *OpenRoundDoc  `json:"currentRoundData,omitempty"`
	DealerIndex    int            `json:"currentDealer"`
	DealerRotation *bool          `json:"dealerRotation,omitempty"`
	BlindBidders   []string       `json:"blindBiddingPlayers"`
	Phase          string         `json:"currentPhase"`
	SpecialGame    string         `json:"specialGameType,omitempty"`
	IsLocked       bool           `json:"gameStarted"`
	Winner         string         `json:"winner,omitempty"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	LastUpdated    string         `json:"lastUpdated,omitempty"`
	DeviceID       string         `json:"deviceId,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func resultDocs(in []engine.PlayerRoundResult) []ResultDoc {
	out := make([]ResultDoc, 0, len(in))
	for _, r := range in {
		out = append(out, ResultDoc{
			Player:       r.Player,
			Bid:          r.Bid,
			Tricks:       r.Tricks,
			Points:       r.Points,
			BlindBidding: r.BlindBidding,
		})
	}
	return out
}

func FromSession(s *engine.GameSession) Snapshot {
	rotation := s.DealerRotation
	snap := Snapshot{
		ID:             s.ID,
		Players:        append([]string{}, s.Players...),
		DeckSize:       s.DeckSize,
		CurrentRound:   s.CurrentRound,
		CardsPerHand:   s.CardsPerHand,
		MaxCards:       s.MaxCards,
		Scores:         map[string]int{},
		RoundHistory:   make([]RoundDoc, 0, len(s.RoundHistory)),
		DealerIndex:    s.DealerIndex,
		DealerRotation: &rotation,
		BlindBidders:   []string{},
		Phase:          s.Phase.String(),
		SpecialGame:    string(s.SpecialGame),
		IsLocked:       s.IsLocked,
		Winner:         s.Winner,
		StartTime:      formatTime(s.StartTime),
		EndTime:        formatTime(s.EndTime),
	}
	for _, t := range s.CustomStages {
		snap.CustomStages = append(snap.CustomStages, string(t))
	}
	for _, st := range s.Stages.Stages {
		snap.Stages = append(snap.Stages, StageDoc{
			Type:   string(st.Type),
			Rounds: st.Rounds,
			Rule:   st.Rule.Kind.String(),
			Cards:  st.Rule.Cards,
		})
	}
	for k, v := range s.Scores {
		snap.Scores[k] = v
	}
	if len(s.Adjustments) > 0 {
		snap.Adjustments = map[string]int{}
		for k, v := range s.Adjustments {
			snap.Adjustments[k] = v
		}
	}
	for _, r := range s.RoundHistory {
		snap.RoundHistory = append(snap.RoundHistory, RoundDoc{
			Round:        r.RoundNumber,
			CardsPerHand: r.CardsPerHand,
			Stage:        r.StageIndex,
			SpecialGame:  string(r.SpecialGame),
			Results:      resultDocs(r.Results),
		})
	}
	if s.OpenRound != nil {
		snap.OpenRound = &OpenRoundDoc{Results: resultDocs(s.OpenRound.Results)}
	}
	// Seat order keeps the encoding stable.
	for _, p := range s.Players {
		if s.BlindBidders[p] {
			snap.BlindBidders = append(snap.BlindBidders, p)
		}
	}
	return snap
}

func Encode(s *engine.GameSession) ([]byte, error) {
	return json.Marshal(FromSession(s))
}

// Decode parses a stored snapshot. Unparsable JSON is ErrCorruptSnapshot;
// missing or inconsistent fields are repaired with defaults.
func Decode(body []byte) (*engine.GameSession, error) {
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return snap.Session(), nil
}

func roundResults(players []string, docs []ResultDoc) []engine.PlayerRoundResult {
	byPlayer := make(map[string]ResultDoc, len(docs))
	for _, d := range docs {
		byPlayer[d.Player] = d
	}
	out := make([]engine.PlayerRoundResult, 0, len(players))
	for _, p := range players {
		d := byPlayer[p]
		out = append(out, engine.PlayerRoundResult{
			Player:       p,
			Bid:          nonNegative(d.Bid),
			Tricks:       nonNegative(d.Tricks),
			Points:       d.Points,
			BlindBidding: d.BlindBidding,
		})
	}
	return out
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Session rebuilds an engine session, filling defaults.
func (snap Snapshot) Session() *engine.GameSession {
	s := &engine.GameSession{
		ID:             snap.ID,
		Players:        dedupe(snap.Players),
		DeckSize:       snap.DeckSize,
		CurrentRound:   snap.CurrentRound,
		DealerIndex:    snap.DealerIndex,
		DealerRotation: true,
		Scores:         map[string]int{},
		Adjustments:    map[string]int{},
		RoundHistory:   []engine.RoundRecord{},
		BlindBidders:   map[string]bool{},
		IsLocked:       snap.IsLocked,
		Winner:         snap.Winner,
		StartTime:      parseTime(snap.StartTime),
		EndTime:        parseTime(snap.EndTime),
	}
	if !engine.ValidDeckSize(s.DeckSize) {
		s.DeckSize = engine.DefaultDeckSize
	}
	if snap.DealerRotation != nil {
		s.DealerRotation = *snap.DealerRotation
	}
	for _, name := range snap.CustomStages {
		if t, err := engine.ParseStageType(name); err == nil {
			s.CustomStages = append(s.CustomStages, t)
		}
	}

	s.MaxCards = engine.MaxCards(len(s.Players), s.DeckSize)
	s.Stages = stagesFromDocs(snap.Stages, s.MaxCards)
	if len(s.Stages.Stages) == 0 {
		s.Stages, _ = engine.ResolveStages(len(s.Players), s.DeckSize, s.CustomStages)
	}

	for _, p := range s.Players {
		s.Scores[p] = snap.Scores[p]
		if v := snap.Adjustments[p]; v != 0 {
			s.Adjustments[p] = v
		}
	}
	for _, r := range snap.RoundHistory {
		s.RoundHistory = append(s.RoundHistory, engine.RoundRecord{
			RoundNumber:  r.Round,
			CardsPerHand: r.CardsPerHand,
			StageIndex:   r.Stage,
			SpecialGame:  engine.SpecialGame(r.SpecialGame),
			Results:      roundResults(s.Players, r.Results),
		})
	}

	if s.CurrentRound < 1 {
		s.CurrentRound = len(s.RoundHistory) + 1
	}
	if len(s.Players) == 0 || s.DealerIndex < 0 || s.DealerIndex >= len(s.Players) {
		s.DealerIndex = 0
	}
	if g, err := engine.ParseSpecialGame(snap.SpecialGame); err == nil {
		s.SpecialGame = g
	}

	phase, ok := engine.ParsePhase(snap.Phase)
	if !ok {
		phase = engine.PhaseBidding
	}
	if phase != engine.PhaseSetup && s.CurrentRound > s.TotalRounds() {
		phase = engine.PhaseFinished
	}
	s.Phase = phase

	if phase == engine.PhaseBidding || phase == engine.PhaseTricks {
		var docs []ResultDoc
		if snap.OpenRound != nil {
			docs = snap.OpenRound.Results
		}
		s.OpenRound = &engine.OpenRound{Results: roundResults(s.Players, docs)}
		for _, p := range snap.BlindBidders {
			if s.HasPlayer(p) {
				s.BlindBidders[p] = true
			}
		}
	}
	if phase == engine.PhaseFinished {
		s.CardsPerHand = 0
		if s.Winner == "" {
			s.Winner = engine.Winner(s.Scores, s.Players)
		}
	} else {
		s.RecomputeCardsPerHand()
	}
	return s
}

func stagesFromDocs(docs []StageDoc, maxCards int) engine.StageConfig {
	cfg := engine.StageConfig{}
	for _, d := range docs {
		t, err := engine.ParseStageType(d.Type)
		if err != nil {
			return engine.StageConfig{}
		}
		kind, ok := engine.ParseRuleKind(d.Rule)
		if !ok {
			return engine.StageConfig{}
		}
		cfg.Stages = append(cfg.Stages, engine.StageSpec{
			Type:   t,
			Rounds: d.Rounds,
			Rule:   engine.CardRule{Kind: kind, Cards: d.Cards},
		})
	}
	if cfg.Validate(maxCards) != nil {
		return engine.StageConfig{}
	}
	return cfg
}

func dedupe(players []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range players {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
