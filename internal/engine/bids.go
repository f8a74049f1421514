package engine

import (
	"errors"
	"fmt"
)

var ErrValidationRejected = errors.New("validation rejected")

type RejectReason int

const (
	AggregateCapExceeded RejectReason = iota + 1
	EqualsPossibleTricks
	IndividualCapExceeded
)

func (r RejectReason) String() string {
	switch r {
	case AggregateCapExceeded:
		return "aggregate_cap_exceeded"
	case EqualsPossibleTricks:
		return "equals_possible_tricks"
	case IndividualCapExceeded:
		return "individual_cap_exceeded"
	default:
		return "unknown"
	}
}

type BidError struct {
	Reason RejectReason
	Player string
	Total  int
	Limit  int
}

func (e *BidError) Error() string {
	switch e.Reason {
	case AggregateCapExceeded:
		return fmt.Sprintf("total bids %d exceed %d", e.Total, e.Limit)
	case EqualsPossibleTricks:
		return fmt.Sprintf("total bids %d must not equal %d tricks", e.Total, e.Limit)
	case IndividualCapExceeded:
		return fmt.Sprintf("bid of %s exceeds %d cards", e.Player, e.Limit)
	default:
		return "invalid bids"
	}
}

func (e *BidError) Is(target error) bool { return target == ErrValidationRejected }

type TrickSumError struct {
	Got  int
	Want int
}

func (e *TrickSumError) Error() string {
	return fmt.Sprintf("tricks sum to %d, expected %d", e.Got, e.Want)
}

func (e *TrickSumError) Is(target error) bool { return target == ErrValidationRejected }

// Validate checks a full set of bids for one round. The first failing check
// wins: aggregate cap, then total equal to the hand size, then any single
// bid above the hand size (reported for the first such player).
func Validate(bids []PlayerBid, cardsPerHand, playerCount int) error {
	total := 0
	for _, b := range bids {
		total += b.Bid
	}
	if limit := playerCount * cardsPerHand; total > limit {
		return &BidError{Reason: AggregateCapExceeded, Total: total, Limit: limit}
	}
	if total == cardsPerHand {
		return &BidError{Reason: EqualsPossibleTricks, Total: total, Limit: cardsPerHand}
	}
	for _, b := range bids {
		if b.Bid > cardsPerHand {
			return &BidError{Reason: IndividualCapExceeded, Player: b.Player, Total: total, Limit: cardsPerHand}
		}
	}
	return nil
}

func sumTricks(bids []PlayerBid) int {
	total := 0
	for _, b := range bids {
		total += b.Tricks
	}
	return total
}

// ForbiddenBid returns the bid that would make the round total equal the
// hand size given everyone else's current bid. It reports false when no
// bid in [0, CardsPerHand] has that effect.
func ForbiddenBid(s *GameSession, player string) (int, bool) {
	if s.OpenRound == nil {
		return 0, false
	}
	others := 0
	for _, r := range s.OpenRound.Results {
		if r.Player != player {
			others += r.Bid
		}
	}
	v := s.CardsPerHand - others
	if v < 0 || v > s.CardsPerHand {
		return 0, false
	}
	return v, true
}

type BidStatus struct {
	Total        int
	Cap          int
	CardsPerHand int
	Err          error
}

func (b BidStatus) Valid() bool { return b.Err == nil }

// BidSummary is the live counter shown while bids are entered.
func BidSummary(s *GameSession) BidStatus {
	st := BidStatus{Cap: len(s.Players) * s.CardsPerHand, CardsPerHand: s.CardsPerHand}
	if s.OpenRound == nil {
		return st
	}
	bids := s.OpenRound.bids()
	for _, b := range bids {
		st.Total += b.Bid
	}
	st.Err = Validate(bids, s.CardsPerHand, len(s.Players))
	return st
}
