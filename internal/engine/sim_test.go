package engine_test

import (
	"testing"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/engine/sim"
)

func TestSelfPlayRoundsManySeeds(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		if err := sim.RunSelfPlayRounds(seed, 10, 500); err != nil {
			t.Fatalf("self-play failed: %v", err)
		}
	}
}

func TestSelfPlayWholeGames(t *testing.T) {
	custom := []engine.StageType{engine.StageGolden, engine.StageRising, engine.StageFull, engine.StageDecreasing, engine.StageGolden, engine.StageBlind}
	for _, deck := range []int{36, 54} {
		for players := 2; players <= 6; players++ {
			for _, stages := range [][]engine.StageType{nil, custom} {
				cfg := sim.Config{Players: players, DeckSize: deck, Stages: stages}
				if err := sim.RunSelfPlayGame(int64(deck*10+players), cfg); err != nil {
					t.Fatalf("%d/%d self-play failed: %v", deck, players, err)
				}
			}
		}
	}
}

func FuzzSelfPlayGame(f *testing.F) {
	f.Add(int64(1), 4)
	f.Add(int64(42), 2)
	f.Add(int64(20240301), 6)
	f.Fuzz(func(t *testing.T, seed int64, players int) {
		if players < 2 || players > 8 {
			t.Skip()
		}
		if err := sim.RunSelfPlayGame(seed, sim.Config{Players: players}); err != nil {
			t.Fatalf("self-play failed: %v", err)
		}
	})
}
