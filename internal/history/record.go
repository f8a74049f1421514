package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dremmer8/poker/internal/engine"
)

type RoundResult struct {
	Player       string `json:"player"`
	Bid          int    `json:"bid"`
	Tricks       int    `json:"tricks"`
	Points       int    `json:"points"`
	BlindBidding bool   `json:"blindBidding,omitempty"`
}

type Round struct {
	Round        int           `json:"round"`
	CardsPerHand int           `json:"cardsPerHand"`
	Stage        int           `json:"stage"`
	SpecialGame  string        `json:"specialGame,omitempty"`
	Results      []RoundResult `json:"results"`
}

// Record is one archived game. Winner is empty for games ended early.
type Record struct {
	ID              string         `json:"id"`
	Winner          string         `json:"winner"`
	Players         []string       `json:"players"`
	Scores          map[string]int `json:"scores"`
	DeckSize        int            `json:"deckSize"`
	MaxCards        int            `json:"maxCards"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         time.Time      `json:"endTime"`
	DurationMinutes int            `json:"duration"`
	Rounds          []Round        `json:"rounds"`
	TotalRounds     int            `json:"totalRounds"`
	Premature       bool           `json:"prematureEnd"`
	EndedAtRound    int            `json:"endedAtRound,omitempty"`
	DeviceID        string         `json:"deviceId,omitempty"`
}

// Archive stores records shared across devices.
type Archive interface {
	Save(ctx context.Context, r Record) error
	List(ctx context.Context, c Criteria) ([]Record, error)
}

// FromSession archives a session. A premature record keeps the round the
// game stopped at and has no winner.
func FromSession(s *engine.GameSession, premature bool, now time.Time) Record {
	r := Record{
		ID:          s.ID,
		Players:     append([]string{}, s.Players...),
		Scores:      map[string]int{},
		DeckSize:    s.DeckSize,
		MaxCards:    s.MaxCards,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Rounds:      make([]Round, 0, len(s.RoundHistory)),
		TotalRounds: s.TotalRounds(),
		Premature:   premature,
	}
	for _, p := range s.Players {
		r.Scores[p] = s.Scores[p]
	}
	for _, rec := range s.RoundHistory {
		round := Round{
			Round:        rec.RoundNumber,
			CardsPerHand: rec.CardsPerHand,
			Stage:        rec.StageIndex + 1,
			SpecialGame:  string(rec.SpecialGame),
		}
		for _, res := range rec.Results {
			round.Results = append(round.Results, RoundResult{
				Player:       res.Player,
				Bid:          res.Bid,
				Tricks:       res.Tricks,
				Points:       res.Points,
				BlindBidding: res.BlindBidding,
			})
		}
		r.Rounds = append(r.Rounds, round)
	}
	if premature {
		r.EndTime = now
		r.EndedAtRound = s.CurrentRound
	} else {
		r.Winner = s.Winner
	}
	if r.EndTime.IsZero() {
		r.EndTime = now
	}
	if !r.StartTime.IsZero() {
		r.DurationMinutes = int(r.EndTime.Sub(r.StartTime).Round(time.Minute) / time.Minute)
	}
	return r
}

// Criteria filters records. Zero fields match everything.
type Criteria struct {
	Player    string
	Winner    string
	Premature *bool
	Since     time.Time
	Until     time.Time
	Limit     int
}

func (c Criteria) Match(r Record) bool {
	if c.Player != "" && !contains(r.Players, c.Player) {
		return false
	}
	if c.Winner != "" && !strings.EqualFold(r.Winner, c.Winner) {
		return false
	}
	if c.Premature != nil && r.Premature != *c.Premature {
		return false
	}
	if !c.Since.IsZero() && r.StartTime.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && r.StartTime.After(c.Until) {
		return false
	}
	return true
}

// Search returns matching records, most recent first.
func Search(records []Record, c Criteria) []Record {
	out := []Record{}
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EndTime.After(out[j].EndTime)
	})
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
