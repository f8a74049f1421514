package visualizer_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/gamesync"
	"github.com/dremmer8/poker/internal/store"
	"github.com/dremmer8/poker/internal/visualizer"
)

func runObserver(t *testing.T, o *visualizer.Observer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestObserverFollowsChannel(t *testing.T) {
	ctx := context.Background()
	ch := gamesync.NewDocumentChannel(store.NewMemoryStore(), "console")
	o := visualizer.NewObserver(ch)
	o.BiddingCompleteFor = 50 * time.Millisecond
	o.RoundCompletedFor = 50 * time.Millisecond

	var mu sync.Mutex
	seen := []visualizer.Display{}
	stop := o.OnChange(func(d visualizer.Display) {
		mu.Lock()
		seen = append(seen, d)
		mu.Unlock()
	})
	defer stop()

	runObserver(t, o)
	assert.False(t, o.Display().Active)

	s := startedSession(t)
	apply(t, s,
		engine.Action{Type: engine.ActionSetBid, Player: "Anna", Value: 1},
		engine.Action{Type: engine.ActionSetBid, Player: "Boris", Value: 1},
	)
	require.NoError(t, ch.SaveSession(ctx, s))
	require.Eventually(t, func() bool {
		return o.Display().TotalBids == 2
	}, time.Second, 5*time.Millisecond)

	apply(t, s, engine.Action{Type: engine.ActionCompleteBidding})
	require.NoError(t, ch.SaveSession(ctx, s))
	require.Eventually(t, func() bool {
		a := o.Display().Announcement
		return a != nil && a.Kind == visualizer.AnnounceBiddingComplete
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return o.Display().Announcement == nil
	}, time.Second, 5*time.Millisecond, "announcement expires")

	apply(t, s,
		engine.Action{Type: engine.ActionSetTricks, Player: "Anna", Value: 1},
		engine.Action{Type: engine.ActionCloseRound},
	)
	require.NoError(t, ch.SaveSession(ctx, s))
	require.Eventually(t, func() bool {
		a := o.Display().Announcement
		return a != nil && a.Kind == visualizer.AnnounceRoundCompleted && a.Round == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ch.ClearSession(ctx))
	require.Eventually(t, func() bool {
		d := o.Display()
		return !d.Active && d.Announcement == nil
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, seen)
}

func TestObserverNewGameClearsAnnouncement(t *testing.T) {
	ctx := context.Background()
	ch := gamesync.NewDocumentChannel(store.NewMemoryStore(), "console")
	o := visualizer.NewObserver(ch)
	runObserver(t, o)

	s := startedSession(t)
	apply(t, s,
		engine.Action{Type: engine.ActionSetBid, Player: "Anna", Value: 1},
		engine.Action{Type: engine.ActionSetBid, Player: "Boris", Value: 1},
	)
	require.NoError(t, ch.SaveSession(ctx, s))
	require.Eventually(t, func() bool {
		return o.Display().TotalBids == 2
	}, time.Second, 5*time.Millisecond)

	apply(t, s, engine.Action{Type: engine.ActionCompleteBidding})
	require.NoError(t, ch.SaveSession(ctx, s))
	require.Eventually(t, func() bool {
		return o.Display().Announcement != nil
	}, time.Second, 5*time.Millisecond)

	other := startedSession(t)
	other.ID = "game-2"
	require.NoError(t, ch.SaveSession(ctx, other))
	require.Eventually(t, func() bool {
		d := o.Display()
		return d.GameID == "game-2" && d.Announcement == nil
	}, time.Second, 5*time.Millisecond)
}

type flakyChannel struct {
	gamesync.Channel
	failures atomic.Int32
}

func (f *flakyChannel) Subscribe(ctx context.Context, fn gamesync.ChangeFunc) (gamesync.Unsubscribe, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, gamesync.ErrSyncUnavailable
	}
	return f.Channel.Subscribe(ctx, fn)
}

func TestObserverRetriesSubscribe(t *testing.T) {
	ch := &flakyChannel{Channel: gamesync.NewDocumentChannel(store.NewMemoryStore(), "console")}
	ch.failures.Store(2)

	o := visualizer.NewObserver(ch)
	o.RetryDelay = 10 * time.Millisecond

	offline := make(chan struct{}, 1)
	stop := o.OnChange(func(d visualizer.Display) {
		if d.Offline {
			select {
			case offline <- struct{}{}:
			default:
			}
		}
	})
	defer stop()

	runObserver(t, o)
	select {
	case <-offline:
	case <-time.After(time.Second):
		t.Fatal("observer never reported offline")
	}
	require.Eventually(t, func() bool {
		return !o.Display().Offline
	}, time.Second, 5*time.Millisecond, "observer recovers once subscribe succeeds")
}

func TestObserverRunStopsWithContext(t *testing.T) {
	ch := gamesync.NewDocumentChannel(store.NewMemoryStore(), "console")
	o := visualizer.NewObserver(ch)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- o.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestCountdown(t *testing.T) {
	var fired atomic.Int32
	c := visualizer.StartCountdown(10*time.Millisecond, func() { fired.Add(1) })
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, c.Cancel(), "cancel after firing is a no-op")
	assert.Zero(t, c.Remaining(time.Now()))

	c = visualizer.StartCountdown(time.Hour, func() { fired.Add(1) })
	assert.Greater(t, c.Remaining(time.Now()), 59*time.Minute)
	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel())

	var nilCountdown *visualizer.Countdown
	assert.False(t, nilCountdown.Cancel())
	assert.EqualValues(t, 1, fired.Load())
}

func TestObserverKeepsFinishedResult(t *testing.T) {
	ctx := context.Background()
	ch := gamesync.NewDocumentChannel(store.NewMemoryStore(), "console")
	o := visualizer.NewObserver(ch)
	o.RoundCompletedFor = time.Hour
	runObserver(t, o)

	s, err := engine.NewSession("game-3", []string{"Anna", "Boris"}, 36, []engine.StageType{engine.StageGolden}, t0)
	require.NoError(t, err)
	apply(t, s,
		engine.Action{Type: engine.ActionStart, At: t0},
		engine.Action{Type: engine.ActionCompleteBidding},
		engine.Action{Type: engine.ActionSetTricks, Player: "Boris", Value: 1},
		engine.Action{Type: engine.ActionCloseRound},
		engine.Action{Type: engine.ActionCompleteBidding},
		engine.Action{Type: engine.ActionSetTricks, Player: "Anna", Value: 1},
	)
	require.NoError(t, ch.SaveSession(ctx, s))
	require.Eventually(t, func() bool {
		return o.Display().Phase == "tricks"
	}, time.Second, 5*time.Millisecond)

	apply(t, s, engine.Action{Type: engine.ActionCloseRound})
	require.NoError(t, ch.SaveSession(ctx, s))
	require.Eventually(t, func() bool {
		a := o.Display().Announcement
		return a != nil && a.Kind == visualizer.AnnounceGameFinished
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ch.ClearSession(ctx))
	time.Sleep(20 * time.Millisecond)
	d := o.Display()
	assert.True(t, d.Finished)
	assert.Equal(t, engine.WinnerTie, d.Winner)
}
