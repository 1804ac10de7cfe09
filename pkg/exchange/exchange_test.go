package exchange

import (
	"testing"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestSplitAssetQuote(t *testing.T) {
	tests := []struct {
		symbol, asset, quote string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHBTC", "ETH", "BTC"},
		{"SOLUSDC", "SOL", "USDC"},
		{"USDT", "USDT", ""},
	}

	for _, tc := range tests {
		asset, quote := SplitAssetQuote(tc.symbol)
		assert.Equal(t, tc.asset, asset, tc.symbol)
		assert.Equal(t, tc.quote, quote, tc.symbol)
	}
}

func TestFilterInstruments(t *testing.T) {
	instruments := []core.Instrument{
		{Symbol: "BTCUSDT", Volume: 5e9},
		{Symbol: "ETHBTC", Volume: 9e9},
		{Symbol: "DOGEUSDT", Volume: 1e6},
		{Symbol: "SOLUSDT", Volume: 2e8},
		{Symbol: "BTCUSDT", Volume: 1},
		{Symbol: "XRPUSDT", Volume: 1e7},
	}

	filtered := FilterInstruments(instruments, "usdt", 1e7)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT", "XRPUSDT"}, Symbols(filtered))
	assert.Equal(t, 5e9, filtered[0].Volume)

	assert.Empty(t, FilterInstruments(instruments, "EUR", 0))
	assert.Len(t, FilterInstruments(instruments, "", 0), 5)
}

func TestFilterInstruments_FirstOccurrenceWins(t *testing.T) {
	instruments := []core.Instrument{
		{Symbol: "ETHUSDT", Volume: 3e7},
		{Symbol: "BTCUSDT", Volume: 2e7},
		{Symbol: "ETHUSDT", Volume: 9e9},
		{Symbol: "BTCUSDT", Volume: 8e9},
	}

	filtered := FilterInstruments(instruments, "USDT", 1e7)
	assert.Equal(t, []core.Instrument{
		{Symbol: "ETHUSDT", Volume: 3e7},
		{Symbol: "BTCUSDT", Volume: 2e7},
	}, filtered)
}
