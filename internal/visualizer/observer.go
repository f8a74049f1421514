package visualizer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/gamesync"
)

const (
	DefaultBiddingCompleteFor = 5 * time.Second
	DefaultRoundCompletedFor  = 8 * time.Second
	maxRetryDelay             = time.Minute
)

// Observer follows the shared session slot and keeps a derived display
// for read-only screens. It never writes to the channel.
type Observer struct {
	ch gamesync.Channel

	RetryDelay         time.Duration
	BiddingCompleteFor time.Duration
	RoundCompletedFor  time.Duration

	now func() time.Time

	mu           sync.Mutex
	session      *engine.GameSession
	offline      bool
	announcement *Announcement
	countdown    *Countdown
	listeners    map[int]func(Display)
	nextID       int
}

func NewObserver(ch gamesync.Channel) *Observer {
	return &Observer{
		ch:                 ch,
		RetryDelay:         time.Second,
		BiddingCompleteFor: DefaultBiddingCompleteFor,
		RoundCompletedFor:  DefaultRoundCompletedFor,
		now:                time.Now,
		listeners:          map[int]func(Display){},
	}
}

// Run subscribes to the channel and blocks until ctx is done. A failed
// subscription marks the display offline and is retried with backoff.
func (o *Observer) Run(ctx context.Context) error {
	delay := o.RetryDelay
	for {
		unsub, err := o.ch.Subscribe(ctx, o.handle)
		if err == nil {
			<-ctx.Done()
			unsub()
			o.mu.Lock()
			o.countdown.Cancel()
			o.countdown = nil
			o.mu.Unlock()
			return ctx.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Dur("retry", delay).Msg("visualizer subscribe failed")
		o.setOffline()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (o *Observer) Display() Display {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.displayLocked()
}

// OnChange registers fn to receive every new display. The returned func
// removes it.
func (o *Observer) OnChange(fn func(Display)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

func (o *Observer) displayLocked() Display {
	d := Derive(o.session, o.now())
	d.Offline = o.offline
	if o.announcement != nil {
		a := *o.announcement
		d.Announcement = &a
	}
	return d
}

func (o *Observer) setOffline() {
	o.mu.Lock()
	if o.offline {
		o.mu.Unlock()
		return
	}
	o.offline = true
	o.publishLocked()
}

func (o *Observer) handle(s *engine.GameSession, err error) {
	if err != nil {
		log.Warn().Err(err).Msg("visualizer lost sync")
		o.setOffline()
		return
	}

	o.mu.Lock()
	prev := o.session
	o.offline = false
	if s == nil && prev != nil && prev.Phase == engine.PhaseFinished {
		// The console clears the slot once a game ends; the result stays
		// up until the next game arrives.
		o.publishLocked()
		return
	}
	o.session = s
	o.transitionLocked(prev, s)
	o.publishLocked()
}

// transitionLocked starts or clears the timed announcement for the change
// from prev to next.
func (o *Observer) transitionLocked(prev, next *engine.GameSession) {
	if next == nil || prev == nil || prev.ID != next.ID {
		o.announceLocked("", 0, 0)
		return
	}
	switch {
	case next.Phase == engine.PhaseFinished && prev.Phase != engine.PhaseFinished:
		o.announceLocked(AnnounceGameFinished, prev.CurrentRound, o.RoundCompletedFor)
	case next.CurrentRound > prev.CurrentRound:
		o.announceLocked(AnnounceRoundCompleted, prev.CurrentRound, o.RoundCompletedFor)
	case prev.Phase == engine.PhaseBidding && next.Phase == engine.PhaseTricks:
		o.announceLocked(AnnounceBiddingComplete, next.CurrentRound, o.BiddingCompleteFor)
	case next.CurrentRound < prev.CurrentRound,
		prev.Phase == engine.PhaseTricks && next.Phase == engine.PhaseBidding:
		o.announceLocked("", 0, 0)
	}
}

func (o *Observer) announceLocked(kind string, round int, d time.Duration) {
	o.countdown.Cancel()
	o.countdown = nil
	o.announcement = nil
	if kind == "" {
		return
	}
	a := &Announcement{Kind: kind, Round: round, Until: o.now().Add(d)}
	o.announcement = a
	o.countdown = StartCountdown(d, func() { o.expire(a) })
}

func (o *Observer) expire(a *Announcement) {
	o.mu.Lock()
	if o.announcement != a {
		o.mu.Unlock()
		return
	}
	o.announcement = nil
	o.countdown = nil
	o.publishLocked()
}

// publishLocked releases o.mu before calling listeners.
func (o *Observer) publishLocked() {
	d := o.displayLocked()
	fns := make([]func(Display), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(d)
	}
}
