package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dremmer8/poker/internal/engine"
)

type ActionRecord struct {
	Round int
	Step  int
	Phase engine.Phase
	A     engine.Action
}

// Bidder picks the bid for one player. The self-play harness asks every
// seat in turn, starting left of the dealer.
type Bidder interface {
	ChooseAction(s engine.GameSession, player string) engine.Action
}

type Config struct {
	Players  int
	DeckSize int
	Stages   []engine.StageType
	// Rounds caps the number of rounds played; zero plays the whole game.
	Rounds   int
	MaxSteps int
	Bidder   Bidder
}

var simStart = time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)

func seatNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("P%d", i+1)
	}
	return out
}

// RunSelfPlayRounds plays a few rounds of the default 4-player game.
func RunSelfPlayRounds(seed int64, rounds int, maxSteps int) error {
	return RunSelfPlayGame(seed, Config{Players: 4, DeckSize: 36, Rounds: rounds, MaxSteps: maxSteps})
}

// RunSelfPlayGame drives a seeded game through the state machine with
// random trick outcomes, checking invariants after every closed round.
func RunSelfPlayGame(seed int64, cfg Config) error {
	rng := rand.New(rand.NewSource(seed))
	if cfg.Players == 0 {
		cfg.Players = 4
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 10000
	}
	bidder := cfg.Bidder
	if bidder == nil {
		bidder = randomBidder{rng: rng}
	}

	state, err := engine.NewSession(fmt.Sprintf("sim-%d", seed), seatNames(cfg.Players), cfg.DeckSize, cfg.Stages, simStart)
	if err != nil {
		return fmt.Errorf("seed=%d: new session: %w", seed, err)
	}

	records := []ActionRecord{}
	step := 0
	apply := func(a engine.Action) error {
		if step >= cfg.MaxSteps {
			return fmt.Errorf("step limit %d reached", cfg.MaxSteps)
		}
		a.At = simStart.Add(time.Duration(step) * time.Minute)
		if err := engine.ApplyAction(state, a); err != nil {
			return fmt.Errorf("apply %s: %w", a.Type, err)
		}
		records = append(records, ActionRecord{Round: state.CurrentRound, Step: step, Phase: state.Phase, A: a})
		step++
		return nil
	}

	if err := apply(engine.Action{Type: engine.ActionStart}); err != nil {
		return failure(seed, state, step, records, err.Error())
	}

	played := 0
	for state.Phase != engine.PhaseFinished {
		if cfg.Rounds > 0 && played >= cfg.Rounds {
			break
		}
		if err := playRound(state, rng, bidder, apply); err != nil {
			return failure(seed, state, step, records, err.Error())
		}
		played++
		if err := checkInvariants(state); err != nil {
			return failure(seed, state, step, records, err.Error())
		}
	}

	if cfg.Rounds == 0 && state.Phase != engine.PhaseFinished {
		return failure(seed, state, step, records, "game did not finish")
	}
	return nil
}

func playRound(state *engine.GameSession, rng *rand.Rand, bidder Bidder, apply func(engine.Action) error) error {
	order := engine.PlayerOrder(state)
	order = append(order[1:], order[0])
	for _, p := range order {
		a := bidder.ChooseAction(*state, p)
		if err := apply(a); err != nil {
			return err
		}
	}

	first := engine.FirstToAct(state)
	if rng.Intn(4) == 0 && !state.BlindBidders[first] && bidOf(state, first) > 0 {
		if err := apply(engine.Action{Type: engine.ActionToggleBlind, Player: first}); err != nil {
			return err
		}
	}
	if rng.Intn(8) == 0 {
		g := engine.SpecialGames[rng.Intn(len(engine.SpecialGames))]
		if err := apply(engine.Action{Type: engine.ActionSetSpecialGame, Special: g}); err != nil {
			return err
		}
	}
	if err := apply(engine.Action{Type: engine.ActionCompleteBidding}); err != nil {
		return err
	}

	tricks := make([]int, len(state.Players))
	for i := 0; i < state.CardsPerHand; i++ {
		tricks[rng.Intn(len(tricks))]++
	}
	for i, p := range state.Players {
		if err := apply(engine.Action{Type: engine.ActionSetTricks, Player: p, Value: tricks[i]}); err != nil {
			return err
		}
	}
	return apply(engine.Action{Type: engine.ActionCloseRound})
}

func bidOf(state *engine.GameSession, player string) int {
	if state.OpenRound == nil {
		return 0
	}
	for _, r := range state.OpenRound.Results {
		if r.Player == player {
			return r.Bid
		}
	}
	return 0
}

type randomBidder struct {
	rng *rand.Rand
}

func (b randomBidder) ChooseAction(s engine.GameSession, player string) engine.Action {
	bid := b.rng.Intn(s.CardsPerHand + 1)
	if v, ok := engine.ForbiddenBid(&s, player); ok && v == bid {
		bid = (bid + 1) % (s.CardsPerHand + 1)
	}
	return engine.Action{Type: engine.ActionSetBid, Player: player, Value: bid}
}

func checkInvariants(state *engine.GameSession) error {
	n := len(state.Players)
	if state.DealerIndex < 0 || state.DealerIndex >= n {
		return fmt.Errorf("dealer index out of range: %d", state.DealerIndex)
	}
	if len(state.BlindBidders) != 0 {
		return fmt.Errorf("blind set not cleared: %v", state.BlindBidders)
	}
	if state.SpecialGame != engine.SpecialNone {
		return fmt.Errorf("special game not cleared: %s", state.SpecialGame)
	}
	if len(state.RoundHistory) > 0 && !state.IsLocked {
		return fmt.Errorf("session not locked after round 1")
	}

	sums := map[string]int{}
	for _, rec := range state.RoundHistory {
		bids := make([]engine.PlayerBid, 0, len(rec.Results))
		blind := map[string]bool{}
		tricks := 0
		for _, r := range rec.Results {
			bids = append(bids, engine.PlayerBid{Player: r.Player, Bid: r.Bid, Tricks: r.Tricks})
			blind[r.Player] = r.BlindBidding
			tricks += r.Tricks
		}
		if tricks != rec.CardsPerHand {
			return fmt.Errorf("round %d: tricks %d != hand %d", rec.RoundNumber, tricks, rec.CardsPerHand)
		}
		if err := engine.Validate(bids, rec.CardsPerHand, n); err != nil {
			return fmt.Errorf("round %d: recorded bids invalid: %v", rec.RoundNumber, err)
		}
		rescored := engine.ScoreRound(bids, rec.StageIndex, rec.SpecialGame, blind)
		for i, r := range rec.Results {
			if rescored[i].Points != r.Points {
				return fmt.Errorf("round %d: %s scored %d, rescored %d", rec.RoundNumber, r.Player, r.Points, rescored[i].Points)
			}
			sums[r.Player] += r.Points
		}
	}
	for _, p := range state.Players {
		if want := sums[p] + state.Adjustments[p]; state.Scores[p] != want {
			return fmt.Errorf("score mismatch for %s: %d != %d", p, state.Scores[p], want)
		}
	}

	if state.Phase == engine.PhaseFinished {
		if len(state.RoundHistory) != state.TotalRounds() {
			return fmt.Errorf("finished after %d of %d rounds", len(state.RoundHistory), state.TotalRounds())
		}
		if state.Winner != engine.Winner(state.Scores, state.Players) {
			return fmt.Errorf("winner mismatch: %s", state.Winner)
		}
		if state.EndTime.IsZero() {
			return fmt.Errorf("finished without end time")
		}
		return nil
	}
	if len(state.RoundHistory) != state.CurrentRound-1 {
		return fmt.Errorf("history length %d at round %d", len(state.RoundHistory), state.CurrentRound)
	}
	if state.CardsPerHand < 1 || state.CardsPerHand > state.MaxCards {
		return fmt.Errorf("cards per hand %d outside [1,%d]", state.CardsPerHand, state.MaxCards)
	}
	if want := engine.CardsPerHand(state.CurrentRound, state.Stages, state.MaxCards); state.CardsPerHand != want {
		return fmt.Errorf("stale cards per hand %d, want %d", state.CardsPerHand, want)
	}
	return nil
}

func failure(seed int64, state *engine.GameSession, step int, records []ActionRecord, reason string) error {
	start := 0
	if len(records) > 20 {
		start = len(records) - 20
	}
	log := ""
	for _, r := range records[start:] {
		log += fmt.Sprintf("[r%d s%d %v] %s %s=%d\n", r.Round, r.Step, r.Phase, r.A.Type, r.A.Player, r.A.Value)
	}
	return fmt.Errorf("seed=%d round=%d step=%d phase=%v reason=%s\nlast actions:\n%s",
		seed, state.CurrentRound, step, state.Phase, reason, log)
}
