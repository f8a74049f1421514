package history

import (
	"sort"
	"time"

	"github.com/dremmer8/poker/internal/engine"
)

type GameStatistics struct {
	PlayerCount     int     `json:"playerCount"`
	TotalScore      int     `json:"totalScore"`
	AverageScore    float64 `json:"averageScore"`
	HighestScore    int     `json:"highestScore"`
	LowestScore     int     `json:"lowestScore"`
	ScoreSpread     int     `json:"scoreSpread"`
	RoundsCompleted int     `json:"roundsCompleted"`
	CompletionRate  float64 `json:"completionRate"`
}

// GameStats summarises one record. Highest and lowest are taken with 0 in
// the set, so an all-negative game reports a highest score of 0.
func GameStats(r Record) GameStatistics {
	st := GameStatistics{
		PlayerCount:     len(r.Scores),
		RoundsCompleted: len(r.Rounds),
		CompletionRate:  1,
	}
	for _, sc := range r.Scores {
		st.TotalScore += sc
		if sc > st.HighestScore {
			st.HighestScore = sc
		}
		if sc < st.LowestScore {
			st.LowestScore = sc
		}
	}
	if st.PlayerCount > 0 {
		st.AverageScore = float64(st.TotalScore) / float64(st.PlayerCount)
	}
	st.ScoreSpread = st.HighestScore - st.LowestScore
	if r.Premature {
		ended, total := r.EndedAtRound, r.TotalRounds
		if ended < 1 {
			ended = 1
		}
		if total < 1 {
			total = 1
		}
		st.CompletionRate = float64(ended) / float64(total)
	}
	return st
}

type PlayerStatistics struct {
	Player         string    `json:"player"`
	TotalGames     int       `json:"totalGames"`
	TotalWins      int       `json:"totalWins"`
	TotalScore     int       `json:"totalScore"`
	BestScore      int       `json:"bestScore"`
	AverageScore   float64   `json:"averageScore"`
	TotalRounds    int       `json:"totalRounds"`
	PrematureGames int       `json:"prematureEndGames"`
	LastPlayed     time.Time `json:"lastPlayed"`
}

// PlayerStats aggregates per-player totals. On a tie every player holding
// the top score is credited with a win.
func PlayerStats(records []Record) []PlayerStatistics {
	byPlayer := map[string]*PlayerStatistics{}
	for _, r := range records {
		winners := map[string]bool{}
		switch r.Winner {
		case "":
		case engine.WinnerTie:
			for _, p := range engine.Leaders(r.Scores, r.Players) {
				winners[p] = true
			}
		default:
			winners[r.Winner] = true
		}
		for _, p := range r.Players {
			st, ok := byPlayer[p]
			if !ok {
				st = &PlayerStatistics{Player: p, BestScore: r.Scores[p]}
				byPlayer[p] = st
			}
			sc := r.Scores[p]
			st.TotalGames++
			st.TotalScore += sc
			st.TotalRounds += len(r.Rounds)
			if sc > st.BestScore {
				st.BestScore = sc
			}
			if winners[p] {
				st.TotalWins++
			}
			if r.Premature {
				st.PrematureGames++
			}
			if r.EndTime.After(st.LastPlayed) {
				st.LastPlayed = r.EndTime
			}
		}
	}

	out := make([]PlayerStatistics, 0, len(byPlayer))
	for _, st := range byPlayer {
		st.AverageScore = float64(st.TotalScore) / float64(st.TotalGames)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalWins != out[j].TotalWins {
			return out[i].TotalWins > out[j].TotalWins
		}
		return out[i].Player < out[j].Player
	})
	return out
}

func PlayerStat(records []Record, player string) (PlayerStatistics, bool) {
	for _, st := range PlayerStats(records) {
		if st.Player == player {
			return st, true
		}
	}
	return PlayerStatistics{}, false
}
