// Package market produces the simulated price quotes for stockwatch.
//
// New(tickers, rnd) seeds every ticker with a random starting price in
// [100, 1100). Generator.Tick(now) moves each price by a uniform delta in
// [-5, +5), clamped so the price never falls below 1, and records the change
// and change percentage relative to the previous price.
//
// The generator has no timer of its own; the ws hub calls Tick once per
// broadcast interval.
package market
