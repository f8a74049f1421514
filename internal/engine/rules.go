package engine

// IsEdgeStage reports whether a 0-based stage index uses the one-card
// scoring table. Only the first, fifth and sixth stages do, whatever their
// type or length.
func IsEdgeStage(stageIndex int) bool {
	switch stageIndex {
	case 0, 4, 5:
		return true
	default:
		return false
	}
}

func BaseScore(bid, tricks, stageIndex int) int {
	if IsEdgeStage(stageIndex) {
		return edgeScore(bid, tricks)
	}
	switch {
	case bid == 0 && tricks == 0:
		return 5
	case bid == 0:
		return 1
	case tricks == bid:
		return tricks * 10
	case tricks > bid:
		return tricks
	default:
		return -bid * 10
	}
}

func edgeScore(bid, tricks int) int {
	switch {
	case bid == 1 && tricks == 1:
		return 30
	case bid == 1 && tricks == 0:
		return -30
	case bid == 0 && tricks == 0:
		return 15
	case bid == 0 && tricks == 1:
		return 5
	default:
		return 0
	}
}

func specialScore(bid, tricks, stageIndex int, special SpecialGame) int {
	switch special {
	case SpecialGolden:
		return tricks * 10
	case SpecialMiser:
		return -tricks * 10
	default:
		return BaseScore(bid, tricks, stageIndex)
	}
}

// ScoreRound scores every player of a closed round. The special game
// override is applied first, the blind multiplier last.
func ScoreRound(results []PlayerBid, stageIndex int, special SpecialGame, blind map[string]bool) []PlayerPoints {
	out := make([]PlayerPoints, 0, len(results))
	for _, r := range results {
		pts := specialScore(r.Bid, r.Tricks, stageIndex, special)
		if blind[r.Player] {
			pts *= 2
		}
		out = append(out, PlayerPoints{Player: r.Player, Points: pts})
	}
	return out
}

// Winner returns the single leader or WinnerTie when the top score is
// shared. An empty roster has no winner.
func Winner(scores map[string]int, players []string) string {
	winner := ""
	best := 0
	tied := false
	for i, p := range players {
		sc := scores[p]
		switch {
		case i == 0 || sc > best:
			winner, best, tied = p, sc, false
		case sc == best:
			tied = true
		}
	}
	if tied {
		return WinnerTie
	}
	return winner
}

// Leaders lists every player holding the top score, in seat order.
func Leaders(scores map[string]int, players []string) []string {
	if len(players) == 0 {
		return nil
	}
	best := scores[players[0]]
	for _, p := range players[1:] {
		if scores[p] > best {
			best = scores[p]
		}
	}
	var out []string
	for _, p := range players {
		if scores[p] == best {
			out = append(out, p)
		}
	}
	return out
}
