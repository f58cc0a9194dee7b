package types

import "strings"

// Ticker is a stock symbol from the closed supported set.
type Ticker string

// The supported tickers. The set is fixed at build time.
const (
	GOOG Ticker = "GOOG"
	TSLA Ticker = "TSLA"
	AMZN Ticker = "AMZN"
	META Ticker = "META"
	NVDA Ticker = "NVDA"
)

// supported is the canonical order used for every quote list.
var supported = []Ticker{GOOG, TSLA, AMZN, META, NVDA}

// SupportedTickers returns a copy of the supported set in canonical order.
func SupportedTickers() []Ticker {
	out := make([]Ticker, len(supported))
	copy(out, supported)
	return out
}

// ParseTicker normalises s (trim + upper case) and reports whether the result
// is a supported ticker.
func ParseTicker(s string) (Ticker, bool) {
	t := Ticker(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Supported()
}

// Supported reports whether t is in the supported set.
func (t Ticker) Supported() bool {
	for _, s := range supported {
		if s == t {
			return true
		}
	}
	return false
}

// Quote is the latest simulated price point for one ticker.
// Change and ChangePercent are nil until the first tick has run.
type Quote struct {
	Ticker        Ticker   `json:"ticker"`
	Price         float64  `json:"price"`
	Change        *float64 `json:"change,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
	Timestamp     int64    `json:"timestamp"` // unix millis
}

// UserView is the per-user entry of the userUpdate broadcast.
type UserView struct {
	Email         string   `json:"email"`
	Subscriptions []Ticker `json:"subscriptions"`
}
