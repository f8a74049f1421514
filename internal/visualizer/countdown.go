package visualizer

import (
	"sync"
	"time"
)

// Countdown runs fire once after a delay unless cancelled first. Cancel is
// idempotent and safe from any goroutine, including from inside fire.
type Countdown struct {
	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	done     bool
}

func StartCountdown(d time.Duration, fire func()) *Countdown {
	c := &Countdown{deadline: time.Now().Add(d)}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.done {
			c.mu.Unlock()
			return
		}
		c.done = true
		c.mu.Unlock()
		fire()
	})
	return c
}

// Cancel stops the countdown. It reports whether this call prevented fire
// from running.
func (c *Countdown) Cancel() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.done = true
	c.timer.Stop()
	return true
}

func (c *Countdown) Deadline() time.Time {
	return c.deadline
}

func (c *Countdown) Remaining(now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return 0
	}
	if r := c.deadline.Sub(now); r > 0 {
		return r
	}
	return 0
}
