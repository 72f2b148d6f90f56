// Package speech sequences playback rates and drives a text-to-speech engine.
package speech

import "sync"

// DefaultRates favors the normal rate two times out of three.
var DefaultRates = []float64{0.9, 0.6, 0.9}

// Cycler rotates through a fixed sequence of playback rates.
type Cycler struct {
	mu     sync.Mutex
	rates  []float64
	cursor int
}

// NewCycler returns a Cycler over rates, or DefaultRates when none are given.
func NewCycler(rates ...float64) *Cycler {
	if len(rates) == 0 {
		rates = DefaultRates
	}
	return &Cycler{rates: append([]float64(nil), rates...)}
}

// Next returns the rate at the cursor and advances it.
func (c *Cycler) Next() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.rates[c.cursor]
	c.cursor = (c.cursor + 1) % len(c.rates)
	return r
}

// Current returns the rate Next would return, without advancing.
func (c *Cycler) Current() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rates[c.cursor]
}
