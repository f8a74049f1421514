package engine

import "testing"

func TestCardsPerHandFourPlayers(t *testing.T) {
	cfg, _ := ResolveStages(4, 36, nil)
	max := MaxCards(4, 36)
	cases := map[int]int{
		1: 1, 4: 1, // golden
		5: 2, 11: 8, // rising
		12: 9, 15: 9, // full
		16: 9, 22: 3, // decreasing counts down from max
		23: 1, 26: 1, // golden
		27: 9, 30: 9, // blind
		0: 0, 31: 0, // out of range
	}
	for round, want := range cases {
		if got := CardsPerHand(round, cfg, max); got != want {
			t.Fatalf("round %d: expected %d cards, got %d", round, want, got)
		}
	}
}

func TestStageAtBoundaries(t *testing.T) {
	cfg, _ := ResolveStages(4, 36, nil)

	info, ok := StageAt(4, cfg)
	if !ok || info.Index != 0 || info.RoundInStage != 4 || info.StageLength != 4 {
		t.Fatalf("round 4: unexpected %+v", info)
	}
	info, ok = StageAt(5, cfg)
	if !ok || info.Index != 1 || info.RoundInStage != 1 || info.Number() != 2 {
		t.Fatalf("round 5: unexpected %+v", info)
	}
	info, ok = StageAt(30, cfg)
	if !ok || info.Index != 5 || info.RoundInStage != 4 {
		t.Fatalf("round 30: unexpected %+v", info)
	}
	if _, ok := StageAt(31, cfg); ok {
		t.Fatalf("round 31 must be out of range")
	}
	if _, ok := StageAt(0, cfg); ok {
		t.Fatalf("round 0 must be out of range")
	}
}

func TestCardsPerHandStaysInBounds(t *testing.T) {
	for _, deck := range []int{36, 54} {
		for players := 2; players <= 6; players++ {
			custom := []StageType{StageGolden, StageRising, StageFull, StageDecreasing, StageGolden, StageBlind}
			for _, stages := range [][]StageType{nil, custom} {
				cfg, _ := ResolveStages(players, deck, stages)
				max := MaxCards(players, deck)
				for r := 1; r <= cfg.TotalRounds(); r++ {
					n := CardsPerHand(r, cfg, max)
					if n < 1 || n > max {
						t.Fatalf("%d/%d round %d: %d cards outside [1,%d]", deck, players, r, n, max)
					}
				}
			}
		}
	}
}

func TestCustomDecreasingEndsAtTwo(t *testing.T) {
	for players := 2; players <= 6; players++ {
		cfg, _ := ResolveStages(players, 36, []StageType{StageRising, StageDecreasing})
		max := MaxCards(players, 36)
		last := cfg.Stages[0].Rounds
		if got := CardsPerHand(last, cfg, max); got != max {
			t.Fatalf("%d players: rising should end at %d, got %d", players, max, got)
		}
		if got := CardsPerHand(cfg.TotalRounds(), cfg, max); got != 2 {
			t.Fatalf("%d players: decreasing should end at 2, got %d", players, got)
		}
	}
}

func TestRecomputeCardsPerHand(t *testing.T) {
	s, err := NewSession("g", []string{"A", "B", "C", "D"}, 36, nil, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.CurrentRound = 12
	s.RecomputeCardsPerHand()
	if s.CardsPerHand != 9 {
		t.Fatalf("expected 9 cards, got %d", s.CardsPerHand)
	}
}
