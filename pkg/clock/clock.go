// Package clock abstracts time so that deadline-driven code can be tested
// deterministically.
//
// Production code receives Real(); tests use Fake() and move time forward
// explicitly with Advance:
//
//	clk := clock.Fake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
//	sweeper := interaction.NewSweeper(store, expire, interaction.WithSweeperClock(clk))
//	clk.Advance(3 * time.Minute) // fires pending tickers
package clock

import "time"

// Clock is the subset of the time package used by the session engine.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has elapsed.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a ticker delivering ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. Ticks are dropped when the consumer
// falls behind, matching time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}
