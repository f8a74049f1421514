package engine

// StageInfo locates a round inside the stage config. Index is 0-based,
// RoundInStage 1-based.
type StageInfo struct {
	Index        int
	RoundInStage int
	StageLength  int
	Spec         StageSpec
}

func (i StageInfo) Number() int { return i.Index + 1 }

// StageAt maps a 1-based round number onto its stage. It reports false for
// rounds outside [1, TotalRounds].
func StageAt(round int, cfg StageConfig) (StageInfo, bool) {
	if round < 1 {
		return StageInfo{}, false
	}
	acc := 0
	for i, s := range cfg.Stages {
		if round <= acc+s.Rounds {
			return StageInfo{
				Index:        i,
				RoundInStage: round - acc,
				StageLength:  s.Rounds,
				Spec:         s,
			}, true
		}
		acc += s.Rounds
	}
	return StageInfo{}, false
}

// CardsPerHand returns the hand size for a round, or 0 when the round is out
// of range. Decreasing stages count down from maxCards.
func CardsPerHand(round int, cfg StageConfig, maxCards int) int {
	info, ok := StageAt(round, cfg)
	if !ok {
		return 0
	}
	switch info.Spec.Rule.Kind {
	case RuleIncrement:
		return info.RoundInStage + 1
	case RuleDecrement:
		return maxCards - info.RoundInStage + 1
	default:
		return info.Spec.Rule.Cards
	}
}

func (s *GameSession) TotalRounds() int { return s.Stages.TotalRounds() }

func (s *GameSession) CurrentStage() (StageInfo, bool) {
	return StageAt(s.CurrentRound, s.Stages)
}

// RecomputeCardsPerHand refreshes the cached hand size. Nothing else writes
// CardsPerHand.
func (s *GameSession) RecomputeCardsPerHand() {
	s.CardsPerHand = CardsPerHand(s.CurrentRound, s.Stages, s.MaxCards)
}
