// Package sim implements a simulated trading backend: the process the bridge
// supervises in development and in end-to-end tests. Prices, candles and
// trade results are generated, not fetched.
package sim

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// Asset describes one tradable instrument.
type Asset struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	Category   string  `json:"category"`
	IsActive   bool    `json:"isActive"`
	PayoutRate float64 `json:"payoutRate"`
}

// Assets lists the instruments the simulator quotes.
var Assets = []Asset{
	{ID: "EURUSD", Name: "EUR/USD", Symbol: "EUR/USD", Category: "forex", IsActive: true, PayoutRate: 85},
	{ID: "GBPUSD", Name: "GBP/USD", Symbol: "GBP/USD", Category: "forex", IsActive: true, PayoutRate: 84},
	{ID: "USDJPY", Name: "USD/JPY", Symbol: "USD/JPY", Category: "forex", IsActive: true, PayoutRate: 83},
	{ID: "AUDUSD", Name: "AUD/USD", Symbol: "AUD/USD", Category: "forex", IsActive: true, PayoutRate: 84},
	{ID: "USDCAD", Name: "USD/CAD", Symbol: "USD/CAD", Category: "forex", IsActive: true, PayoutRate: 83},
	{ID: "BTCUSD", Name: "Bitcoin", Symbol: "BTC/USD", Category: "crypto", IsActive: true, PayoutRate: 82},
	{ID: "ETHUSD", Name: "Ethereum", Symbol: "ETH/USD", Category: "crypto", IsActive: true, PayoutRate: 81},
}

// basePrices anchor the random walks per asset.
var basePrices = map[string]float64{
	"EURUSD": 1.0850,
	"GBPUSD": 1.2650,
	"USDJPY": 149.50,
	"AUDUSD": 0.6550,
	"USDCAD": 1.3550,
	"BTCUSD": 43256.50,
	"ETHUSD": 2345.67,
}

// BasePrice returns the anchor price for an asset, defaulting to 1.0 for
// unknown ids so arbitrary requests still produce plausible data.
func BasePrice(assetID string) float64 {
	if p, ok := basePrices[assetID]; ok {
		return p
	}
	return 1.0
}

// isCrypto reports whether the asset trades with crypto-style volatility
// and precision.
func isCrypto(assetID string) bool {
	return strings.Contains(assetID, "BTC") || strings.Contains(assetID, "ETH")
}

// Volatility returns the per-candle relative volatility for an asset.
func Volatility(assetID string) float64 {
	if isCrypto(assetID) {
		return 0.02
	}
	return 0.001
}

// Decimals returns the quote precision for an asset.
func Decimals(assetID string) int {
	if isCrypto(assetID) {
		return 2
	}
	return 5
}

// Candle is one simulated OHLCV bar.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// GenerateCandles produces count one-minute candles ending at now, as a
// random walk from the asset's base price. Each candle opens near the
// previous close so the series is continuous.
func GenerateCandles(assetID string, count int, now time.Time, rng *rand.Rand) []Candle {
	base := BasePrice(assetID)
	vol := Volatility(assetID)
	dec := Decimals(assetID)
	ts := now.Unix()

	candles := make([]Candle, 0, count)
	for i := 0; i < count; i++ {
		open := base + (rng.Float64()-0.5)*vol*base

		c := Candle{
			Timestamp: ts - int64(count-i)*60,
			Open:      roundTo(open, dec),
			High:      roundTo(open+rng.Float64()*vol*base, dec),
			Low:       roundTo(open-rng.Float64()*vol*base, dec),
			Close:     roundTo(open+(rng.Float64()-0.5)*vol*base, dec),
			Volume:    1000 + rng.Int63n(99000),
		}
		candles = append(candles, c)
		base = c.Close
	}
	return candles
}

// SpotPrice returns a jittered price around the asset's base.
func SpotPrice(assetID string, rng *rand.Rand) float64 {
	base := BasePrice(assetID)
	return roundTo(base+(rng.Float64()-0.5)*0.01*base, Decimals(assetID))
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
