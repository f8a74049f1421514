package visualizer

import (
	"sort"
	"time"

	"github.com/dremmer8/poker/internal/engine"
)

type Standing struct {
	Player   string `json:"player"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
	Bid      int    `json:"bid"`
	Tricks   int    `json:"tricks"`
	Blind    bool   `json:"blind,omitempty"`
	Dealer   bool   `json:"dealer,omitempty"`
	FirstBid bool   `json:"firstToAct,omitempty"`
}

type Delta struct {
	Player string `json:"player"`
	Bid    int    `json:"bid"`
	Tricks int    `json:"tricks"`
	Points int    `json:"points"`
	Blind  bool   `json:"blind,omitempty"`
}

type RoundSummary struct {
	Round        int     `json:"round"`
	Stage        int     `json:"stage"`
	StageRound   int     `json:"stageRound"`
	StageLength  int     `json:"stageLength"`
	CardsPerHand int     `json:"cardsPerHand"`
	SpecialGame  string  `json:"specialGame,omitempty"`
	Deltas       []Delta `json:"deltas"`
}

type Announcement struct {
	Kind  string    `json:"kind"`
	Round int       `json:"round"`
	Until time.Time `json:"until"`
}

const (
	AnnounceBiddingComplete = "bidding_complete"
	AnnounceRoundCompleted  = "round_completed"
	AnnounceGameFinished    = "game_finished"
)

const (
	BiddingEqual = "equal"
	BiddingUnder = "under"
	BiddingOver  = "over"
)

// Display is everything the read-only screen shows. Stage and hand-size
// fields are re-derived from the stage config rather than trusted from
// the snapshot.
type Display struct {
	Offline          bool          `json:"offline"`
	Active           bool          `json:"active"`
	GameID           string        `json:"gameId,omitempty"`
	Phase            string        `json:"phase,omitempty"`
	Round            int           `json:"round"`
	TotalRounds      int           `json:"totalRounds"`
	Stage            int           `json:"stage"`
	StageRound       int           `json:"stageRound"`
	StageLength      int           `json:"stageLength"`
	StageType        string        `json:"stageType,omitempty"`
	StageDescription string        `json:"stageDescription,omitempty"`
	EdgeStage        bool          `json:"edgeStage"`
	CardsPerHand     int           `json:"cardsPerHand"`
	Dealer           string        `json:"dealer,omitempty"`
	FirstToAct       string        `json:"firstToAct,omitempty"`
	SpecialGame      string        `json:"specialGame,omitempty"`
	TotalBids        int           `json:"totalBids"`
	BiddingMode      string        `json:"biddingMode,omitempty"`
	Leaderboard      []Standing    `json:"leaderboard"`
	LastRound        *RoundSummary `json:"lastRound,omitempty"`
	Finished         bool          `json:"finished"`
	Winner           string        `json:"winner,omitempty"`
	Elapsed          time.Duration `json:"elapsed"`
	Announcement     *Announcement `json:"announcement,omitempty"`
}

func biddingMode(total, cph int) string {
	switch {
	case total == cph:
		return BiddingEqual
	case total > cph:
		return BiddingUnder
	default:
		return BiddingOver
	}
}

// Derive builds a display from a session. A nil session is the idle
// "no active game" screen.
func Derive(s *engine.GameSession, now time.Time) Display {
	d := Display{Leaderboard: []Standing{}}
	if s == nil {
		return d
	}
	d.Active = true
	d.GameID = s.ID
	d.Phase = s.Phase.String()
	d.TotalRounds = s.Stages.TotalRounds()
	d.Finished = s.Phase == engine.PhaseFinished
	d.Winner = s.Winner
	d.SpecialGame = string(s.SpecialGame)
	d.Dealer = engine.Dealer(s)
	d.FirstToAct = engine.FirstToAct(s)
	if !s.StartTime.IsZero() {
		end := now
		if d.Finished && !s.EndTime.IsZero() {
			end = s.EndTime
		}
		d.Elapsed = end.Sub(s.StartTime).Truncate(time.Second)
	}

	maxCards := engine.MaxCards(len(s.Players), s.DeckSize)
	if !d.Finished {
		d.Round = s.CurrentRound
		if info, ok := engine.StageAt(s.CurrentRound, s.Stages); ok {
			d.Stage = info.Number()
			d.StageRound = info.RoundInStage
			d.StageLength = info.StageLength
			d.StageType = string(info.Spec.Type)
			d.StageDescription = engine.DescribeStage(info.Spec, maxCards)
			d.EdgeStage = engine.IsEdgeStage(info.Index)
		}
		d.CardsPerHand = engine.CardsPerHand(s.CurrentRound, s.Stages, maxCards)
	} else {
		d.Round = d.TotalRounds
	}

	open := map[string]engine.PlayerRoundResult{}
	if s.OpenRound != nil {
		for _, r := range s.OpenRound.Results {
			open[r.Player] = r
			d.TotalBids += r.Bid
		}
		d.BiddingMode = biddingMode(d.TotalBids, d.CardsPerHand)
	}

	for _, p := range s.Players {
		r := open[p]
		d.Leaderboard = append(d.Leaderboard, Standing{
			Player:   p,
			Score:    s.Scores[p],
			Bid:      r.Bid,
			Tricks:   r.Tricks,
			Blind:    s.BlindBidders[p],
			Dealer:   p == d.Dealer && !d.Finished,
			FirstBid: p == d.FirstToAct && !d.Finished,
		})
	}
	sort.SliceStable(d.Leaderboard, func(i, j int) bool {
		return d.Leaderboard[i].Score > d.Leaderboard[j].Score
	})
	for i := range d.Leaderboard {
		if i > 0 && d.Leaderboard[i].Score == d.Leaderboard[i-1].Score {
			d.Leaderboard[i].Rank = d.Leaderboard[i-1].Rank
		} else {
			d.Leaderboard[i].Rank = i + 1
		}
	}

	if n := len(s.RoundHistory); n > 0 {
		d.LastRound = summarize(s.RoundHistory[n-1], s.Stages)
	}
	return d
}

func summarize(rec engine.RoundRecord, cfg engine.StageConfig) *RoundSummary {
	sum := &RoundSummary{
		Round:        rec.RoundNumber,
		CardsPerHand: rec.CardsPerHand,
		SpecialGame:  string(rec.SpecialGame),
		Deltas:       make([]Delta, 0, len(rec.Results)),
	}
	if info, ok := engine.StageAt(rec.RoundNumber, cfg); ok {
		sum.Stage = info.Number()
		sum.StageRound = info.RoundInStage
		sum.StageLength = info.StageLength
	}
	for _, r := range rec.Results {
		sum.Deltas = append(sum.Deltas, Delta{
			Player: r.Player,
			Bid:    r.Bid,
			Tricks: r.Tricks,
			Points: r.Points,
			Blind:  r.BlindBidding,
		})
	}
	return sum
}
