package engine

import (
	"fmt"
	"time"
)

type ActionType int

const (
	ActionStart ActionType = iota
	ActionSetBid
	ActionSetTricks
	ActionToggleBlind
	ActionCompleteBidding
	ActionBackToBidding
	ActionCloseRound
	ActionSetSpecialGame
	ActionClearSpecialGame
	ActionToggleDealerRotation
	ActionAdjustScore
	ActionAddPlayer
	ActionRemovePlayer
	ActionSetDeckSize
)

var actionNames = map[ActionType]string{
	ActionStart:                "start",
	ActionSetBid:               "set_bid",
	ActionSetTricks:            "set_tricks",
	ActionToggleBlind:          "toggle_blind",
	ActionCompleteBidding:      "complete_bidding",
	ActionBackToBidding:        "back_to_bidding",
	ActionCloseRound:           "close_round",
	ActionSetSpecialGame:       "set_special_game",
	ActionClearSpecialGame:     "clear_special_game",
	ActionToggleDealerRotation: "toggle_dealer_rotation",
	ActionAdjustScore:          "adjust_score",
	ActionAddPlayer:            "add_player",
	ActionRemovePlayer:         "remove_player",
	ActionSetDeckSize:          "set_deck_size",
}

func (t ActionType) String() string {
	if name, ok := actionNames[t]; ok {
		return name
	}
	return "unknown"
}

func ParseActionType(s string) (ActionType, bool) {
	for t, name := range actionNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// Action is one console command. Player names the target seat, Value carries
// bids, tricks, score deltas and deck sizes. At stamps the end time when the
// action finishes the game.
type Action struct {
	Type    ActionType
	Player  string
	Value   int
	Special SpecialGame
	At      time.Time
}

// LegalActions lists the action types the current phase accepts. Roster and
// deck changes are only listed while the game is unlocked.
func LegalActions(s GameSession) []ActionType {
	var out []ActionType
	switch s.Phase {
	case PhaseSetup:
		out = []ActionType{ActionStart, ActionToggleDealerRotation}
	case PhaseBidding:
		out = []ActionType{
			ActionSetBid, ActionToggleBlind, ActionCompleteBidding,
			ActionSetSpecialGame, ActionClearSpecialGame,
			ActionToggleDealerRotation, ActionAdjustScore,
		}
	case PhaseTricks:
		out = []ActionType{
			ActionSetTricks, ActionBackToBidding, ActionCloseRound,
			ActionSetSpecialGame, ActionClearSpecialGame,
			ActionToggleDealerRotation, ActionAdjustScore,
		}
	default:
		return nil
	}
	if !s.IsLocked {
		out = append(out, ActionAddPlayer, ActionRemovePlayer, ActionSetDeckSize)
	}
	return out
}

// ApplyAction validates and applies a console action. A rejected action
// leaves the session untouched.
func ApplyAction(s *GameSession, a Action) error {
	switch a.Type {
	case ActionStart:
		return applyStart(s, a)
	case ActionSetBid:
		return applySetBid(s, a)
	case ActionSetTricks:
		return applySetTricks(s, a)
	case ActionToggleBlind:
		return applyToggleBlind(s, a)
	case ActionCompleteBidding:
		return applyCompleteBidding(s)
	case ActionBackToBidding:
		if s.Phase != PhaseTricks {
			return ErrWrongPhase
		}
		s.Phase = PhaseBidding
		return nil
	case ActionCloseRound:
		return applyCloseRound(s, a)
	case ActionSetSpecialGame:
		return applySetSpecialGame(s, a)
	case ActionClearSpecialGame:
		if !inRound(s) {
			return ErrWrongPhase
		}
		s.SpecialGame = SpecialNone
		return nil
	case ActionToggleDealerRotation:
		if s.Phase == PhaseFinished {
			return ErrWrongPhase
		}
		s.DealerRotation = !s.DealerRotation
		return nil
	case ActionAdjustScore:
		return applyAdjustScore(s, a)
	case ActionAddPlayer:
		return applyAddPlayer(s, a)
	case ActionRemovePlayer:
		return applyRemovePlayer(s, a)
	case ActionSetDeckSize:
		return applySetDeckSize(s, a)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAction, a.Type)
	}
}

func inRound(s *GameSession) bool {
	return s.Phase == PhaseBidding || s.Phase == PhaseTricks
}

func stamp(a Action) time.Time {
	if a.At.IsZero() {
		return time.Now()
	}
	return a.At
}

func applyStart(s *GameSession, a Action) error {
	if s.Phase != PhaseSetup {
		return ErrWrongPhase
	}
	if len(s.Players) < MinPlayers {
		return ErrTooFewPlayers
	}
	s.Scores = make(map[string]int, len(s.Players))
	for _, p := range s.Players {
		s.Scores[p] = 0
	}
	s.Adjustments = map[string]int{}
	s.RoundHistory = []RoundRecord{}
	s.BlindBidders = map[string]bool{}
	s.SpecialGame = SpecialNone
	s.DealerIndex = 0
	s.CurrentRound = 1
	s.IsLocked = false
	s.Winner = ""
	s.EndTime = time.Time{}
	s.StartTime = stamp(a)
	s.ResolveStages()
	s.OpenRound = newOpenRound(s.Players)
	s.Phase = PhaseBidding
	return nil
}

func openResult(s *GameSession, player string) (*PlayerRoundResult, error) {
	if s.OpenRound == nil {
		return nil, ErrWrongPhase
	}
	res := s.OpenRound.result(player)
	if res == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, player)
	}
	return res, nil
}

func applySetBid(s *GameSession, a Action) error {
	if s.Phase != PhaseBidding {
		return ErrWrongPhase
	}
	if a.Value < 0 {
		return ErrNegativeValue
	}
	res, err := openResult(s, a.Player)
	if err != nil {
		return err
	}
	res.Bid = a.Value
	if a.Value == 0 {
		delete(s.BlindBidders, a.Player)
	}
	return nil
}

func applySetTricks(s *GameSession, a Action) error {
	if s.Phase != PhaseTricks {
		return ErrWrongPhase
	}
	if a.Value < 0 {
		return ErrNegativeValue
	}
	res, err := openResult(s, a.Player)
	if err != nil {
		return err
	}
	res.Tricks = a.Value
	return nil
}

func applyToggleBlind(s *GameSession, a Action) error {
	if s.Phase != PhaseBidding {
		return ErrWrongPhase
	}
	res, err := openResult(s, a.Player)
	if err != nil {
		return err
	}
	if s.BlindBidders[a.Player] {
		delete(s.BlindBidders, a.Player)
		return nil
	}
	if !CanBidBlind(s, a.Player) || res.Bid == 0 {
		return ErrBlindNotAllowed
	}
	s.BlindBidders[a.Player] = true
	return nil
}

func applyCompleteBidding(s *GameSession) error {
	if s.Phase != PhaseBidding {
		return ErrWrongPhase
	}
	if err := Validate(s.OpenRound.bids(), s.CardsPerHand, len(s.Players)); err != nil {
		return err
	}
	s.Phase = PhaseTricks
	return nil
}

func applyCloseRound(s *GameSession, a Action) error {
	if s.Phase != PhaseTricks {
		return ErrWrongPhase
	}
	bids := s.OpenRound.bids()
	if got := sumTricks(bids); got != s.CardsPerHand {
		return &TrickSumError{Got: got, Want: s.CardsPerHand}
	}
	if err := Validate(bids, s.CardsPerHand, len(s.Players)); err != nil {
		return err
	}
	info, ok := s.CurrentStage()
	if !ok {
		return fmt.Errorf("%w: round %d", ErrRoundOutOfRange, s.CurrentRound)
	}

	points := ScoreRound(bids, info.Index, s.SpecialGame, s.BlindBidders)
	rec := RoundRecord{
		RoundNumber:  s.CurrentRound,
		CardsPerHand: s.CardsPerHand,
		StageIndex:   info.Index,
		SpecialGame:  s.SpecialGame,
		Results:      make([]PlayerRoundResult, 0, len(points)),
	}
	for i, p := range points {
		res := s.OpenRound.Results[i]
		res.Points = p.Points
		res.BlindBidding = s.BlindBidders[res.Player]
		rec.Results = append(rec.Results, res)
		s.Scores[p.Player] += p.Points
	}
	s.RoundHistory = append(s.RoundHistory, rec)
	s.BlindBidders = map[string]bool{}
	s.SpecialGame = SpecialNone
	if s.CurrentRound == 1 {
		s.IsLocked = true
	}
	if s.DealerRotation {
		s.DealerIndex = NextDealer(s)
	}

	s.CurrentRound++
	if s.CurrentRound > s.TotalRounds() {
		s.Phase = PhaseFinished
		s.OpenRound = nil
		s.CardsPerHand = 0
		s.Winner = Winner(s.Scores, s.Players)
		s.EndTime = stamp(a)
		return nil
	}
	s.RecomputeCardsPerHand()
	s.OpenRound = newOpenRound(s.Players)
	s.Phase = PhaseBidding
	return nil
}

func applySetSpecialGame(s *GameSession, a Action) error {
	if !inRound(s) {
		return ErrWrongPhase
	}
	g, err := ParseSpecialGame(string(a.Special))
	if err != nil {
		return err
	}
	s.SpecialGame = g
	return nil
}

func applyAdjustScore(s *GameSession, a Action) error {
	if !inRound(s) {
		return ErrWrongPhase
	}
	if !s.HasPlayer(a.Player) {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, a.Player)
	}
	s.Scores[a.Player] += a.Value
	s.Adjustments[a.Player] += a.Value
	return nil
}

func checkUnlocked(s *GameSession) error {
	if s.Phase == PhaseFinished {
		return ErrWrongPhase
	}
	if s.IsLocked {
		return ErrLocked
	}
	return nil
}

func applyAddPlayer(s *GameSession, a Action) error {
	if err := checkUnlocked(s); err != nil {
		return err
	}
	if err := checkRoster(append(append([]string(nil), s.Players...), a.Player)); err != nil {
		return err
	}
	s.Players = append(s.Players, a.Player)
	s.Scores[a.Player] = 0
	if s.OpenRound != nil {
		s.OpenRound.Results = append(s.OpenRound.Results, PlayerRoundResult{Player: a.Player})
	}
	s.ResolveStages()
	return nil
}

func applyRemovePlayer(s *GameSession, a Action) error {
	if err := checkUnlocked(s); err != nil {
		return err
	}
	idx := -1
	for i, p := range s.Players {
		if p == a.Player {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, a.Player)
	}
	if s.Phase != PhaseSetup && len(s.Players)-1 < MinPlayers {
		return ErrTooFewPlayers
	}

	s.Players = append(s.Players[:idx:idx], s.Players[idx+1:]...)
	delete(s.Scores, a.Player)
	delete(s.Adjustments, a.Player)
	delete(s.BlindBidders, a.Player)
	if s.OpenRound != nil {
		kept := s.OpenRound.Results[:0:0]
		for _, r := range s.OpenRound.Results {
			if r.Player != a.Player {
				kept = append(kept, r)
			}
		}
		s.OpenRound.Results = kept
	}
	switch {
	case len(s.Players) == 0:
		s.DealerIndex = 0
	case idx < s.DealerIndex:
		s.DealerIndex--
	case s.DealerIndex >= len(s.Players):
		s.DealerIndex = 0
	}
	s.ResolveStages()
	return nil
}

func applySetDeckSize(s *GameSession, a Action) error {
	if err := checkUnlocked(s); err != nil {
		return err
	}
	if !ValidDeckSize(a.Value) {
		return fmt.Errorf("%w: %d", ErrInvalidDeckSize, a.Value)
	}
	s.DeckSize = a.Value
	s.ResolveStages()
	return nil
}

// Reset starts a fresh game with the same roster, deck size, custom stages
// and rotation setting. The returned session is unlocked and in setup.
func Reset(s *GameSession, id string, now time.Time) (*GameSession, error) {
	next, err := NewSession(id, s.Players, s.DeckSize, s.CustomStages, now)
	if err != nil {
		return nil, err
	}
	next.DealerRotation = s.DealerRotation
	return next, nil
}

// PlayerOrder lists the seats starting from the dealer.
func PlayerOrder(s *GameSession) []string {
	n := len(s.Players)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Players[(s.DealerIndex+i)%n])
	}
	return out
}

func Dealer(s *GameSession) string {
	if len(s.Players) == 0 {
		return ""
	}
	return s.Players[s.DealerIndex%len(s.Players)]
}

func NextDealer(s *GameSession) int {
	if len(s.Players) == 0 {
		return 0
	}
	return (s.DealerIndex + 1) % len(s.Players)
}

// FirstToAct is the seat after the dealer; it is also the only seat
// allowed to bid blind.
func FirstToAct(s *GameSession) string {
	if len(s.Players) == 0 {
		return ""
	}
	return s.Players[NextDealer(s)]
}

func CanBidBlind(s *GameSession, player string) bool {
	return player != "" && player == FirstToAct(s)
}
