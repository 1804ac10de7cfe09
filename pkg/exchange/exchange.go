package exchange

import (
	"errors"
	"strings"

	"github.com/StudioSol/set"
	"github.com/raykavin/fibscan/pkg/core"
	"github.com/samber/lo"
)

// Common errors
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownSymbol    = errors.New("unknown symbol")
)

// quoteAssets are tried in order when splitting a symbol
var quoteAssets = []string{"USDT", "USDC", "FDUSD", "BUSD", "BTC", "ETH", "BNB"}

// SplitAssetQuote splits a symbol into its base and quote assets
func SplitAssetQuote(symbol string) (asset, quote string) {
	for _, quote = range quoteAssets {
		if len(symbol) > len(quote) && strings.HasSuffix(symbol, quote) {
			return symbol[:len(symbol)-len(quote)], quote
		}
	}
	return symbol, ""
}

// FilterInstruments keeps instruments whose symbol ends with quoteSuffix and whose 24h volume
// is at least minVolume. Duplicate symbols keep their first occurrence and the input order is
// preserved.
func FilterInstruments(instruments []core.Instrument, quoteSuffix string, minVolume float64) []core.Instrument {
	quoteSuffix = strings.ToUpper(quoteSuffix)

	matching := lo.Filter(instruments, func(instrument core.Instrument, _ int) bool {
		return strings.HasSuffix(strings.ToUpper(instrument.Symbol), quoteSuffix) &&
			instrument.Volume >= minVolume
	})

	// the linked set keeps the first insertion of each symbol in order
	symbols := set.NewLinkedHashSetString()
	for _, instrument := range matching {
		symbols.Add(instrument.Symbol)
	}

	filtered := make([]core.Instrument, 0, len(matching))
	for symbol := range symbols.Iter() {
		instrument, _ := lo.Find(matching, func(instrument core.Instrument) bool {
			return instrument.Symbol == symbol
		})
		filtered = append(filtered, instrument)
	}
	return filtered
}

// Symbols returns the symbol of each instrument
func Symbols(instruments []core.Instrument) []string {
	return lo.Map(instruments, func(instrument core.Instrument, _ int) string {
		return instrument.Symbol
	})
}
