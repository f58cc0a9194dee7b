package market

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/stockwatch/stockwatch/pkg/types"
)

const (
	basePrice  = 100.0
	priceRange = 1000.0
	maxDelta   = 5.0
	minPrice   = 1.0
)

// Rand is the randomness source used by the generator. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a Rand seeded from the current time.
func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Generator holds the current quote for each tracked ticker.
// It is safe for concurrent use.
type Generator struct {
	mu      sync.RWMutex
	rnd     Rand
	tickers []types.Ticker
	quotes  map[types.Ticker]types.Quote
}

// New creates a Generator for tickers, seeding each with a starting price.
// The seeded quotes carry no change values.
func New(tickers []types.Ticker, rnd Rand) *Generator {
	g := &Generator{
		rnd:     rnd,
		tickers: append([]types.Ticker(nil), tickers...),
		quotes:  make(map[types.Ticker]types.Quote, len(tickers)),
	}
	ts := time.Now().UnixMilli()
	for _, t := range g.tickers {
		g.quotes[t] = types.Quote{
			Ticker:    t,
			Price:     basePrice + rnd.Float64()*priceRange,
			Timestamp: ts,
		}
	}
	return g
}

// Tick advances every ticker by one random step and returns the new quotes
// in ticker order.
func (g *Generator) Tick(now time.Time) []types.Quote {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := now.UnixMilli()
	out := make([]types.Quote, 0, len(g.tickers))
	for _, t := range g.tickers {
		prev := g.quotes[t]
		delta := (g.rnd.Float64() - 0.5) * 2 * maxDelta
		pct := delta / prev.Price * 100

		q := types.Quote{
			Ticker:        t,
			Price:         math.Max(minPrice, prev.Price+delta),
			Change:        &delta,
			ChangePercent: &pct,
			Timestamp:     ts,
		}
		g.quotes[t] = q
		out = append(out, q)
	}
	return out
}

// Quotes returns the current quotes in ticker order.
func (g *Generator) Quotes() []types.Quote {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.Quote, 0, len(g.tickers))
	for _, t := range g.tickers {
		out = append(out, g.quotes[t])
	}
	return out
}

// Quote returns the current quote for t and whether t is tracked.
func (g *Generator) Quote(t types.Ticker) (types.Quote, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	q, ok := g.quotes[t]
	return q, ok
}

// Tickers returns the tracked tickers in order.
func (g *Generator) Tickers() []types.Ticker {
	return append([]types.Ticker(nil), g.tickers...)
}
