package engine

import (
	"fmt"
	"strings"
	"time"
)

type Phase int

const (
	PhaseSetup Phase = iota
	PhaseBidding
	PhaseTricks
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseBidding:
		return "bidding"
	case PhaseTricks:
		return "tricks"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ParsePhase accepts the names produced by Phase.String.
func ParsePhase(s string) (Phase, bool) {
	switch s {
	case "setup":
		return PhaseSetup, true
	case "bidding":
		return PhaseBidding, true
	case "tricks":
		return PhaseTricks, true
	case "finished":
		return PhaseFinished, true
	default:
		return PhaseSetup, false
	}
}

type SpecialGame string

const (
	SpecialNone    SpecialGame = ""
	SpecialDark    SpecialGame = "dark"
	SpecialGolden  SpecialGame = "golden"
	SpecialMiser   SpecialGame = "miser"
	SpecialNoTrump SpecialGame = "noTrump"
	SpecialFrontal SpecialGame = "frontal"
)

var SpecialGames = []SpecialGame{SpecialDark, SpecialGolden, SpecialMiser, SpecialNoTrump, SpecialFrontal}

func ParseSpecialGame(s string) (SpecialGame, error) {
	if s == "" {
		return SpecialNone, nil
	}
	for _, g := range SpecialGames {
		if string(g) == s {
			return g, nil
		}
	}
	return SpecialNone, fmt.Errorf("%w: %q", ErrUnknownSpecialGame, s)
}

const (
	WinnerTie       = "Tie"
	DefaultDeckSize = 36
	MinPlayers      = 2
)

type PlayerBid struct {
	Player string
	Bid    int
	Tricks int
}

type PlayerPoints struct {
	Player string
	Points int
}

type PlayerRoundResult struct {
	Player       string
	Bid          int
	Tricks       int
	Points       int
	BlindBidding bool
}

// RoundRecord is appended to the history when a round closes and never
// changes afterwards.
type RoundRecord struct {
	RoundNumber  int
	CardsPerHand int
	StageIndex   int
	SpecialGame  SpecialGame
	Results      []PlayerRoundResult
}

type OpenRound struct {
	Results []PlayerRoundResult
}

func (r *OpenRound) result(player string) *PlayerRoundResult {
	for i := range r.Results {
		if r.Results[i].Player == player {
			return &r.Results[i]
		}
	}
	return nil
}

func (r *OpenRound) bids() []PlayerBid {
	out := make([]PlayerBid, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, PlayerBid{Player: res.Player, Bid: res.Bid, Tricks: res.Tricks})
	}
	return out
}

type GameSession struct {
	ID             string
	Players        []string
	DeckSize       int
	CustomStages   []StageType
	Stages         StageConfig
	MaxCards       int
	CurrentRound   int
	CardsPerHand   int
	Scores         map[string]int
	Adjustments    map[string]int
	RoundHistory   []RoundRecord
	OpenRound      *OpenRound
	DealerIndex    int
	DealerRotation bool
	BlindBidders   map[string]bool
	Phase          Phase
	SpecialGame    SpecialGame
	IsLocked       bool
	Winner         string
	StartTime      time.Time
	EndTime        time.Time
}

// NewSession builds a session in the setup phase. The stage config is
// resolved immediately; a missing built-in combination falls back to the
// default table, which UsesDefaultStages reports.
func NewSession(id string, players []string, deckSize int, custom []StageType, now time.Time) (*GameSession, error) {
	if err := checkRoster(players); err != nil {
		return nil, err
	}
	if deckSize == 0 {
		deckSize = DefaultDeckSize
	}
	if !ValidDeckSize(deckSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDeckSize, deckSize)
	}
	s := &GameSession{
		ID:             id,
		Players:        append([]string(nil), players...),
		DeckSize:       deckSize,
		CustomStages:   append([]StageType(nil), custom...),
		CurrentRound:   1,
		Scores:         make(map[string]int, len(players)),
		Adjustments:    map[string]int{},
		RoundHistory:   []RoundRecord{},
		DealerRotation: true,
		BlindBidders:   map[string]bool{},
		Phase:          PhaseSetup,
		StartTime:      now,
	}
	for _, p := range players {
		s.Scores[p] = 0
	}
	s.ResolveStages()
	return s, nil
}

// ResolveStages re-resolves the stage config for the current roster and deck
// size and refreshes the cached hand size. It reports false when the
// built-in table had no entry and the default config was used.
func (s *GameSession) ResolveStages() bool {
	cfg, ok := ResolveStages(len(s.Players), s.DeckSize, s.CustomStages)
	s.Stages = cfg
	s.MaxCards = MaxCards(len(s.Players), s.DeckSize)
	s.RecomputeCardsPerHand()
	return ok
}

// UsesDefaultStages reports whether the built-in table has no entry for the
// roster and deck size, so the 36-card 4-player stages are in play.
func (s *GameSession) UsesDefaultStages() bool {
	_, ok := ResolveStages(len(s.Players), s.DeckSize, s.CustomStages)
	return !ok
}

func (s *GameSession) HasPlayer(name string) bool {
	for _, p := range s.Players {
		if p == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Sessions handed to other goroutines are always
// clones.
func (s *GameSession) Clone() *GameSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = append([]string(nil), s.Players...)
	c.CustomStages = append([]StageType(nil), s.CustomStages...)
	c.Stages = StageConfig{Stages: append([]StageSpec(nil), s.Stages.Stages...)}
	c.Scores = make(map[string]int, len(s.Scores))
	for k, v := range s.Scores {
		c.Scores[k] = v
	}
	c.Adjustments = make(map[string]int, len(s.Adjustments))
	for k, v := range s.Adjustments {
		c.Adjustments[k] = v
	}
	c.RoundHistory = make([]RoundRecord, len(s.RoundHistory))
	for i, r := range s.RoundHistory {
		r.Results = append([]PlayerRoundResult(nil), r.Results...)
		c.RoundHistory[i] = r
	}
	if s.OpenRound != nil {
		c.OpenRound = &OpenRound{Results: append([]PlayerRoundResult(nil), s.OpenRound.Results...)}
	}
	c.BlindBidders = make(map[string]bool, len(s.BlindBidders))
	for k, v := range s.BlindBidders {
		c.BlindBidders[k] = v
	}
	return &c
}

func ValidDeckSize(n int) bool {
	return n == 36 || n == 54
}

func checkRoster(players []string) error {
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if strings.TrimSpace(p) == "" || p == WinnerTie {
			return fmt.Errorf("%w: %q", ErrInvalidPlayerName, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: %q", ErrDuplicatePlayer, p)
		}
		seen[p] = true
	}
	return nil
}

func newOpenRound(players []string) *OpenRound {
	r := &OpenRound{Results: make([]PlayerRoundResult, 0, len(players))}
	for _, p := range players {
		r.Results = append(r.Results, PlayerRoundResult{Player: p})
	}
	return r
}
