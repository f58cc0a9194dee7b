package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedTickers_CanonicalOrder(t *testing.T) {
	assert.Equal(t, []Ticker{GOOG, TSLA, AMZN, META, NVDA}, SupportedTickers())
}

func TestSupportedTickers_ReturnsCopy(t *testing.T) {
	got := SupportedTickers()
	got[0] = "XXXX"
	assert.Equal(t, GOOG, SupportedTickers()[0])
}

func TestParseTicker(t *testing.T) {
	tests := []struct {
		in   string
		want Ticker
		ok   bool
	}{
		{"GOOG", GOOG, true},
		{" nvda ", NVDA, true},
		{"aapl", "AAPL", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTicker(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestQuote_OmitsChangeBeforeFirstTick(t *testing.T) {
	b, err := json.Marshal(Quote{Ticker: GOOG, Price: 120.5, Timestamp: 1700000000000})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "change")
	assert.NotContains(t, m, "changePercent")
	assert.Equal(t, "GOOG", m["ticker"])
}
