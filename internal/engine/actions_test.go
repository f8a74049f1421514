package engine

import (
	"errors"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)

func startedSession(t *testing.T, players ...string) *GameSession {
	t.Helper()
	s, err := NewSession("game-1", players, 36, nil, fixedNow)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	mustApply(t, s, Action{Type: ActionStart, At: fixedNow})
	return s
}

func mustApply(t *testing.T, s *GameSession, a Action) {
	t.Helper()
	if err := ApplyAction(s, a); err != nil {
		t.Fatalf("%s: unexpected error: %v", a.Type, err)
	}
}

// playRound enters bids and tricks in seat order and closes the round.
func playRound(t *testing.T, s *GameSession, bids, tricks []int) {
	t.Helper()
	for i, p := range s.Players {
		mustApply(t, s, Action{Type: ActionSetBid, Player: p, Value: bids[i]})
	}
	mustApply(t, s, Action{Type: ActionCompleteBidding})
	for i, p := range s.Players {
		mustApply(t, s, Action{Type: ActionSetTricks, Player: p, Value: tricks[i]})
	}
	mustApply(t, s, Action{Type: ActionCloseRound, At: fixedNow.Add(time.Hour)})
}

func TestNewSessionRejectsBadRoster(t *testing.T) {
	if _, err := NewSession("g", []string{"A", "A"}, 36, nil, fixedNow); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}
	if _, err := NewSession("g", []string{"A", WinnerTie}, 36, nil, fixedNow); !errors.Is(err, ErrInvalidPlayerName) {
		t.Fatalf("expected ErrInvalidPlayerName, got %v", err)
	}
	if _, err := NewSession("g", []string{"A", " "}, 36, nil, fixedNow); !errors.Is(err, ErrInvalidPlayerName) {
		t.Fatalf("expected ErrInvalidPlayerName, got %v", err)
	}
	if _, err := NewSession("g", []string{"A", "B"}, 52, nil, fixedNow); !errors.Is(err, ErrInvalidDeckSize) {
		t.Fatalf("expected ErrInvalidDeckSize, got %v", err)
	}
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	s, _ := NewSession("g", []string{"A"}, 36, nil, fixedNow)
	if err := ApplyAction(s, Action{Type: ActionStart}); !errors.Is(err, ErrTooFewPlayers) {
		t.Fatalf("expected ErrTooFewPlayers, got %v", err)
	}
	if s.Phase != PhaseSetup {
		t.Fatalf("rejected start must not change phase")
	}
}

func TestFirstRoundEndToEnd(t *testing.T) {
	s := startedSession(t, "A", "B", "C", "D")
	if s.CardsPerHand != 1 || s.CurrentRound != 1 || s.DealerIndex != 0 {
		t.Fatalf("unexpected initial state %+v", s)
	}

	// {1,0,0,0} totals the hand size and can never be bid.
	if err := ApplyAction(s, Action{Type: ActionSetBid, Player: "A", Value: 1}); err != nil {
		t.Fatalf("set bid: %v", err)
	}
	if err := ApplyAction(s, Action{Type: ActionCompleteBidding}); !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("expected bids {1,0,0,0} to be rejected, got %v", err)
	}

	playRound(t, s, []int{1, 1, 0, 0}, []int{1, 0, 0, 0})

	want := map[string]int{"A": 30, "B": -30, "C": 15, "D": 15}
	for p, sc := range want {
		if s.Scores[p] != sc {
			t.Fatalf("%s: expected %d, got %d", p, sc, s.Scores[p])
		}
	}
	if s.DealerIndex != 1 {
		t.Fatalf("expected dealer to rotate to 1, got %d", s.DealerIndex)
	}
	if s.CurrentRound != 2 || s.Phase != PhaseBidding {
		t.Fatalf("expected round 2 bidding, got round %d %s", s.CurrentRound, s.Phase)
	}
	if want := CardsPerHand(2, s.Stages, s.MaxCards); s.CardsPerHand != want {
		t.Fatalf("expected %d cards in round 2, got %d", want, s.CardsPerHand)
	}
	if !s.IsLocked {
		t.Fatalf("expected session to lock after round 1")
	}
	if len(s.RoundHistory) != 1 || s.RoundHistory[0].RoundNumber != 1 {
		t.Fatalf("expected one history record, got %+v", s.RoundHistory)
	}
	if s.OpenRound == nil || s.OpenRound.Results[0].Bid != 0 {
		t.Fatalf("expected fresh open round")
	}
}

func TestCompleteBiddingRejectsTotalEqualHand(t *testing.T) {
	s := startedSession(t, "A", "B", "C", "D")
	mustApply(t, s, Action{Type: ActionSetBid, Player: "B", Value: 1})
	err := ApplyAction(s, Action{Type: ActionCompleteBidding})
	var be *BidError
	if !errors.As(err, &be) || be.Reason != EqualsPossibleTricks {
		t.Fatalf("expected EqualsPossibleTricks, got %v", err)
	}
	if s.Phase != PhaseBidding {
		t.Fatalf("rejected bids must keep bidding phase")
	}
}

func TestCloseRoundRejectsTrickSum(t *testing.T) {
	s := startedSession(t, "A", "B", "C", "D")
	mustApply(t, s, Action{Type: ActionSetBid, Player: "A", Value: 1})
	mustApply(t, s, Action{Type: ActionSetBid, Player: "B", Value: 1})
	mustApply(t, s, Action{Type: ActionCompleteBidding})
	mustApply(t, s, Action{Type: ActionSetTricks, Player: "A", Value: 1})
	mustApply(t, s, Action{Type: ActionSetTricks, Player: "B", Value: 1})

	before := s.Clone()
	err := ApplyAction(s, Action{Type: ActionCloseRound})
	var te *TrickSumError
	if !errors.As(err, &te) || te.Got != 2 || te.Want != 1 {
		t.Fatalf("expected TrickSumError 2/1, got %v", err)
	}
	if s.CurrentRound != before.CurrentRound || len(s.RoundHistory) != 0 || s.Scores["A"] != 0 || s.IsLocked {
		t.Fatalf("rejected close must not mutate the session")
	}
}

func TestSettersRejectNegativeAndWrongPhase(t *testing.T) {
	s := startedSession(t, "A", "B")
	if err := ApplyAction(s, Action{Type: ActionSetBid, Player: "A", Value: -1}); !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("expected ErrNegativeValue, got %v", err)
	}
	if err := ApplyAction(s, Action{Type: ActionSetTricks, Player: "A", Value: 1}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
	if err := ApplyAction(s, Action{Type: ActionSetBid, Player: "Z", Value: 1}); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
	if err := ApplyAction(s, Action{Type: ActionType(99)}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestBlindBidding(t *testing.T) {
	s := startedSession(t, "A", "B", "C", "D")

	if err := ApplyAction(s, Action{Type: ActionToggleBlind, Player: "B"}); !errors.Is(err, ErrBlindNotAllowed) {
		t.Fatalf("blind needs a positive bid, got %v", err)
	}
	mustApply(t, s, Action{Type: ActionSetBid, Player: "C", Value: 1})
	if err := ApplyAction(s, Action{Type: ActionToggleBlind, Player: "C"}); !errors.Is(err, ErrBlindNotAllowed) {
		t.Fatalf("only the seat after the dealer may bid blind, got %v", err)
	}

	mustApply(t, s, Action{Type: ActionSetBid, Player: "B", Value: 1})
	mustApply(t, s, Action{Type: ActionToggleBlind, Player: "B"})
	if !s.BlindBidders["B"] {
		t.Fatalf("expected B to bid blind")
	}
	mustApply(t, s, Action{Type: ActionSetBid, Player: "B", Value: 0})
	if s.BlindBidders["B"] {
		t.Fatalf("bid 0 must clear the blind flag")
	}

	mustApply(t, s, Action{Type: ActionSetBid, Player: "B", Value: 1})
	mustApply(t, s, Action{Type: ActionToggleBlind, Player: "B"})
	mustApply(t, s, Action{Type: ActionCompleteBidding})
	mustApply(t, s, Action{Type: ActionSetTricks, Player: "B", Value: 1})
	mustApply(t, s, Action{Type: ActionCloseRound})

	if s.Scores["B"] != 60 {
		t.Fatalf("blind success on edge stage: expected 60, got %d", s.Scores["B"])
	}
	if !s.RoundHistory[0].Results[1].BlindBidding {
		t.Fatalf("history must record the blind flag")
	}
	if len(s.BlindBidders) != 0 {
		t.Fatalf("blind set must be cleared after the round")
	}
}

func TestSpecialGameClearedAfterRound(t *testing.T) {
	s := startedSession(t, "A", "B", "C", "D")
	mustApply(t, s, Action{Type: ActionSetSpecialGame, Special: SpecialMiser})
	if err := ApplyAction(s, Action{Type: ActionSetSpecialGame, Special: "poker"}); !errors.Is(err, ErrUnknownSpecialGame) {
		t.Fatalf("expected ErrUnknownSpecialGame, got %v", err)
	}
	playRound(t, s, []int{0, 0, 0, 0}, []int{1, 0, 0, 0})
	if s.Scores["A"] != -10 {
		t.Fatalf("miser: expected -10, got %d", s.Scores["A"])
	}
	if s.RoundHistory[0].SpecialGame != SpecialMiser {
		t.Fatalf("history must record the special game")
	}
	if s.SpecialGame != SpecialNone {
		t.Fatalf("special game must reset after the round")
	}
}

func TestDealerRotationToggle(t *testing.T) {
	s := startedSession(t, "A", "B", "C")
	mustApply(t, s, Action{Type: ActionToggleDealerRotation})
	playRound(t, s, []int{0, 0, 0}, []int{1, 0, 0})
	if s.DealerIndex != 0 {
		t.Fatalf("dealer must stay put with rotation off, got %d", s.DealerIndex)
	}
	mustApply(t, s, Action{Type: ActionToggleDealerRotation})
	playRound(t, s, []int{0, 0, 0}, []int{1, 0, 0})
	if s.DealerIndex != 1 {
		t.Fatalf("expected dealer 1, got %d", s.DealerIndex)
	}
}

func TestDealerWrapsAround(t *testing.T) {
	s := startedSession(t, "A", "B")
	playRound(t, s, []int{0, 0}, []int{1, 0})
	playRound(t, s, []int{0, 0}, []int{0, 1})
	if s.DealerIndex != 0 {
		t.Fatalf("expected dealer to wrap to 0, got %d", s.DealerIndex)
	}
}

func TestRosterLockedAfterFirstRound(t *testing.T) {
	s := startedSession(t, "A", "B", "C")
	mustApply(t, s, Action{Type: ActionAddPlayer, Player: "D"})
	if len(s.OpenRound.Results) != 4 || s.Scores["D"] != 0 {
		t.Fatalf("added player must join the open round")
	}
	mustApply(t, s, Action{Type: ActionRemovePlayer, Player: "D"})
	if _, ok := s.Scores["D"]; ok {
		t.Fatalf("removed player must leave the scores")
	}
	mustApply(t, s, Action{Type: ActionSetDeckSize, Value: 54})
	if s.MaxCards != 17 || s.TotalRounds() != 42 {
		t.Fatalf("deck change must re-resolve stages, got max %d total %d", s.MaxCards, s.TotalRounds())
	}

	playRound(t, s, []int{0, 0, 0}, []int{1, 0, 0})
	if err := ApplyAction(s, Action{Type: ActionAddPlayer, Player: "E"}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := ApplyAction(s, Action{Type: ActionSetDeckSize, Value: 36}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRemovePlayerKeepsDealerSeat(t *testing.T) {
	s := startedSession(t, "A", "B", "C")
	mustApply(t, s, Action{Type: ActionToggleDealerRotation})
	s.DealerIndex = 2
	mustApply(t, s, Action{Type: ActionRemovePlayer, Player: "A"})
	if Dealer(s) != "C" {
		t.Fatalf("expected C to keep dealing, got %s", Dealer(s))
	}
	if err := ApplyAction(s, Action{Type: ActionRemovePlayer, Player: "B"}); !errors.Is(err, ErrTooFewPlayers) {
		t.Fatalf("expected ErrTooFewPlayers, got %v", err)
	}
}

func TestAdjustScore(t *testing.T) {
	s := startedSession(t, "A", "B")
	mustApply(t, s, Action{Type: ActionAdjustScore, Player: "A", Value: -25})
	if s.Scores["A"] != -25 || s.Adjustments["A"] != -25 {
		t.Fatalf("unexpected adjustment %+v", s.Scores)
	}
}

func TestBackToBiddingKeepsInputs(t *testing.T) {
	s := startedSession(t, "A", "B", "C")
	mustApply(t, s, Action{Type: ActionSetBid, Player: "A", Value: 1})
	mustApply(t, s, Action{Type: ActionSetBid, Player: "B", Value: 1})
	mustApply(t, s, Action{Type: ActionCompleteBidding})
	mustApply(t, s, Action{Type: ActionBackToBidding})
	if s.Phase != PhaseBidding || s.OpenRound.Results[0].Bid != 1 {
		t.Fatalf("expected bidding with bids kept")
	}
}

func TestGameFinishes(t *testing.T) {
	s, _ := NewSession("g", []string{"A", "B"}, 36, []StageType{StageGolden}, fixedNow)
	mustApply(t, s, Action{Type: ActionStart, At: fixedNow})
	if s.TotalRounds() != 2 {
		t.Fatalf("expected 2 rounds, got %d", s.TotalRounds())
	}
	playRound(t, s, []int{1, 1}, []int{1, 0})
	playRound(t, s, []int{0, 0}, []int{0, 1})

	if s.Phase != PhaseFinished {
		t.Fatalf("expected finished, got %s", s.Phase)
	}
	if s.Scores["A"] != 45 || s.Scores["B"] != -25 || s.Winner != "A" {
		t.Fatalf("expected A to win 45 to -25, got %s with %v", s.Winner, s.Scores)
	}
	if s.OpenRound != nil || s.CardsPerHand != 0 {
		t.Fatalf("finished session must not hold an open round")
	}
	if !s.EndTime.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("unexpected end time %v", s.EndTime)
	}
	if err := ApplyAction(s, Action{Type: ActionSetBid, Player: "A"}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase after finish, got %v", err)
	}
}

func TestResetKeepsRoster(t *testing.T) {
	s := startedSession(t, "A", "B", "C")
	playRound(t, s, []int{0, 0, 0}, []int{1, 0, 0})
	next, err := Reset(s, "game-2", fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.IsLocked || next.Phase != PhaseSetup || len(next.RoundHistory) != 0 {
		t.Fatalf("reset must produce a fresh unlocked game")
	}
	if len(next.Players) != 3 || next.Scores["A"] != 0 {
		t.Fatalf("reset must keep the roster with zero scores")
	}
}

func TestPlayerOrder(t *testing.T) {
	s := startedSession(t, "A", "B", "C", "D")
	s.DealerIndex = 2
	order := PlayerOrder(s)
	if order[0] != "C" || order[1] != "D" || order[3] != "B" {
		t.Fatalf("unexpected order %v", order)
	}
	if FirstToAct(s) != "D" || !CanBidBlind(s, "D") || CanBidBlind(s, "C") {
		t.Fatalf("first to act must be the seat after the dealer")
	}
}

func TestLegalActions(t *testing.T) {
	s := startedSession(t, "A", "B")
	has := func(types []ActionType, want ActionType) bool {
		for _, ty := range types {
			if ty == want {
				return true
			}
		}
		return false
	}
	if !has(LegalActions(*s), ActionAddPlayer) {
		t.Fatalf("roster edits allowed before lock")
	}
	playRound(t, s, []int{0, 0}, []int{1, 0})
	legal := LegalActions(*s)
	if has(legal, ActionAddPlayer) || !has(legal, ActionSetBid) || has(legal, ActionCloseRound) {
		t.Fatalf("unexpected legal actions %v", legal)
	}
}
