package bots

import (
	"testing"
	"time"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/engine/sim"
)

func mixedTable(seed int64) Table {
	return Table{
		Seats: map[string]Bot{
			"P1": NewNormal(seed + 10),
			"P2": NewEasy(seed + 20),
			"P3": NewNormal(seed + 30),
		},
		Default: NewEasy(seed + 40),
	}
}

func TestBotSelfPlayManySeeds(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		cfg := sim.Config{Players: 3 + int(seed%4), Rounds: 12, MaxSteps: 800, Bidder: mixedTable(seed)}
		if err := sim.RunSelfPlayGame(seed, cfg); err != nil {
			t.Fatalf("bot self-play failed: %v", err)
		}
	}
}

func TestBotWholeGame(t *testing.T) {
	cfg := sim.Config{Players: 4, DeckSize: 54, Bidder: mixedTable(7)}
	if err := sim.RunSelfPlayGame(7, cfg); err != nil {
		t.Fatalf("bot self-play failed: %v", err)
	}
}

func FuzzBotSelfPlay(f *testing.F) {
	f.Add(int64(1))
	f.Add(int64(42))
	f.Add(int64(20240301))
	f.Fuzz(func(t *testing.T, seed int64) {
		cfg := sim.Config{Players: 4, Rounds: 8, MaxSteps: 800, Bidder: mixedTable(seed)}
		if err := sim.RunSelfPlayGame(seed, cfg); err != nil {
			t.Fatalf("bot self-play failed: %v", err)
		}
	})
}

func TestBotsAvoidForbiddenBid(t *testing.T) {
	s, err := engine.NewSession("g", []string{"A", "B", "C"}, 36, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.ApplyAction(s, engine.Action{Type: engine.ActionStart}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Round 1 deals one card; nobody has bid, so a lone 1 would be forbidden
	// for whoever bids last.
	if err := engine.ApplyAction(s, engine.Action{Type: engine.ActionSetBid, Player: "B", Value: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for seed := int64(0); seed < 50; seed++ {
		for _, b := range []Bot{NewEasy(seed), NewNormal(seed)} {
			a := b.ChooseAction(*s, "A")
			if a.Type != engine.ActionSetBid || a.Player != "A" {
				t.Fatalf("unexpected action %+v", a)
			}
			if a.Value == 1 {
				t.Fatalf("bot chose forbidden bid")
			}
			if a.Value < 0 || a.Value > s.CardsPerHand {
				t.Fatalf("bid %d out of range", a.Value)
			}
		}
	}
}
