package clock

import (
	"context"
	"sync"
	"time"
)

// Clock answers "what time is it" for subscription checks and reports.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Simulated is an application clock that advances independently of the wall
// clock at a configurable multiplier. All access to the current value is
// guarded; Now may be called from any goroutine.
type Simulated struct {
	mu         sync.Mutex
	resumed    *sync.Cond
	current    time.Time
	multiplier float64
	paused     bool
	stopped    bool
}

func NewSimulated(start time.Time) *Simulated {
	c := &Simulated{
		current:    start,
		multiplier: 1.0,
	}
	c.resumed = sync.NewCond(&c.mu)
	return c
}

// Run advances the clock by one simulated second per tick until ctx is
// cancelled. The tick interval shrinks as the multiplier grows.
func (c *Simulated) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		c.resumed.Broadcast()
	}()
	for {
		c.mu.Lock()
		for c.paused && !c.stopped {
			c.resumed.Wait()
		}
		if c.stopped {
			c.mu.Unlock()
			return
		}
		interval := time.Duration(float64(time.Second) / c.multiplier)
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		c.mu.Lock()
		c.current = c.current.Add(time.Second)
		c.mu.Unlock()
	}
}

func (c *Simulated) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Simulated) SetMultiplier(multiplier float64) {
	if multiplier <= 0 {
		return
	}
	c.mu.Lock()
	c.multiplier = multiplier
	c.mu.Unlock()
}

func (c *Simulated) Multiplier() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.multiplier
}

func (c *Simulated) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Simulated) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.resumed.Broadcast()
}

// AdvanceDays jumps the clock forward, for exercising renewals and reports.
func (c *Simulated) AdvanceDays(days int) {
	c.mu.Lock()
	c.current = c.current.AddDate(0, 0, days)
	c.mu.Unlock()
}
