package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dremmer8/poker/internal/engine"
	"github.com/dremmer8/poker/internal/gamesync"
)

type publishOp struct {
	session *engine.GameSession // nil clears the slot
}

// publisher pushes console state to the sync channel in the background.
// Consecutive saves collapse into the latest one; a clear is never merged
// away. Failures are logged and dropped.
type publisher struct {
	ch      gamesync.Channel
	timeout time.Duration

	mu      sync.Mutex
	queue   []publishOp
	running bool
	idle    *sync.Cond
}

func newPublisher(ch gamesync.Channel) *publisher {
	p := &publisher{ch: ch, timeout: 5 * time.Second}
	p.idle = sync.NewCond(&p.mu)
	return p
}

func (p *publisher) save(s *engine.GameSession) {
	p.enqueue(publishOp{session: s.Clone()})
}

func (p *publisher) clear() {
	p.enqueue(publishOp{})
}

func (p *publisher) enqueue(op publishOp) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.queue); n > 0 && p.queue[n-1].session != nil && op.session != nil {
		p.queue[n-1] = op
	} else {
		p.queue = append(p.queue, op)
	}
	if !p.running {
		p.running = true
		go p.loop()
	}
}

func (p *publisher) loop() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.running = false
			p.idle.Broadcast()
			p.mu.Unlock()
			return
		}
		op := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(op)
	}
}

func (p *publisher) run(op publishOp) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if op.session == nil {
		if err := p.ch.ClearSession(ctx); err != nil {
			log.Warn().Err(err).Msg("clearing shared session")
		}
		return
	}
	if err := p.ch.SaveSession(ctx, op.session); err != nil {
		log.Warn().Err(err).Str("game", op.session.ID).Int("round", op.session.CurrentRound).Msg("publishing session")
	}
}

// flush blocks until every queued op has been attempted.
func (p *publisher) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.running {
		p.idle.Wait()
	}
}
