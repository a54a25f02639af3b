package oracle

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"marketpulse/internal/models"
)

// ErrNoPrice is returned when zero readings were obtained from any source.
// Callers must treat it as retryable, not fatal.
var ErrNoPrice = errors.New("no price available")

// PriceFacts is the aggregator's result: the consensus price, the raw
// per-source readings it was reduced from, and whichever reference prices
// the quote source exposed (equities only).
type PriceFacts struct {
	Price     float64
	Sources   map[string]float64
	Open      *float64
	PrevClose *float64
}

// Aggregator produces one trustworthy price for an asset symbol from
// multiple independent, unreliable upstream feeds.
type Aggregator struct {
	coinGecko     *CoinGeckoClient
	cryptoCompare *CryptoCompareClient
	equity        *EquityClient
}

func NewAggregator(coinGecko *CoinGeckoClient, cryptoCompare *CryptoCompareClient, equity *EquityClient) *Aggregator {
	return &Aggregator{
		coinGecko:     coinGecko,
		cryptoCompare: cryptoCompare,
		equity:        equity,
	}
}

// FetchPriceFacts fetches a consensus price for the given symbol. The
// asset type hint overrides the symbol-shape heuristic when present.
// Individual source failures are swallowed and logged; only a total
// absence of readings surfaces, as ErrNoPrice.
func (a *Aggregator) FetchPriceFacts(ctx context.Context, symbol, assetType string) (*PriceFacts, error) {
	if isCrypto(symbol, assetType) {
		return a.fetchCrypto(ctx, symbol)
	}
	return a.fetchEquity(ctx, symbol)
}

// fetchCrypto queries both spot-price sources concurrently. Either may
// fail independently; a failure is a missing reading, not an error.
func (a *Aggregator) fetchCrypto(ctx context.Context, symbol string) (*PriceFacts, error) {
	var mu sync.Mutex
	sources := make(map[string]float64)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		price, err := a.coinGecko.SpotPrice(gctx, symbol)
		if err != nil {
			log.Warnf("[Oracle] CoinGecko gave no reading for %s: %v", symbol, err)
			return nil
		}
		mu.Lock()
		sources["coingecko"] = price
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		price, err := a.cryptoCompare.SpotPrice(gctx, symbol)
		if err != nil {
			log.Warnf("[Oracle] CryptoCompare gave no reading for %s: %v", symbol, err)
			return nil
		}
		mu.Lock()
		sources["cryptocompare"] = price
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	readings := make([]float64, 0, len(sources))
	for _, p := range sources {
		readings = append(readings, p)
	}
	if len(readings) == 0 {
		return nil, ErrNoPrice
	}

	return &PriceFacts{
		Price:   Median(readings),
		Sources: sources,
	}, nil
}

// fetchEquity queries the single equity quote source. Any of last/open/
// previous-close may be absent from the response; absence of the last
// price is the only condition that surfaces as ErrNoPrice.
func (a *Aggregator) fetchEquity(ctx context.Context, symbol string) (*PriceFacts, error) {
	quote, err := a.equity.Quote(ctx, symbol)
	if err != nil {
		log.Warnf("[Oracle] equity quote gave no reading for %s: %v", symbol, err)
		return nil, ErrNoPrice
	}

	if quote.Last == nil {
		return nil, ErrNoPrice
	}

	sources := map[string]float64{"equity": *quote.Last}
	return &PriceFacts{
		Price:     Median([]float64{*quote.Last}),
		Sources:   sources,
		Open:      quote.Open,
		PrevClose: quote.PrevClose,
	}, nil
}

// Median reduces readings to a single consensus value: the middle reading,
// or the mean of the two middle readings for an even count. The input
// slice is not modified.
func Median(readings []float64) float64 {
	sorted := make([]float64, len(readings))
	copy(sorted, readings)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// cryptoQuoteSuffixes are the common quote-currency endings used by the
// symbol-shape heuristic. Order matters: longer suffixes first.
var cryptoQuoteSuffixes = []string{"USDT", "USDC", "USD"}

// isCrypto classifies a symbol as crypto or equity. Explicit asset-type
// metadata wins; otherwise the symbol shape decides, and equity is the
// default.
func isCrypto(symbol, assetType string) bool {
	switch assetType {
	case models.AssetTypeCrypto:
		return true
	case models.AssetTypeEquity:
		return false
	}

	normalized := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	for _, suffix := range cryptoQuoteSuffixes {
		if strings.HasSuffix(normalized, suffix) && len(normalized) > len(suffix) {
			return true
		}
	}
	return false
}

// baseSymbol strips the quote-currency suffix from a crypto pair, e.g.
// "BTCUSDT" and "BTC/USD" both reduce to "BTC".
func baseSymbol(symbol string) string {
	normalized := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	for _, suffix := range cryptoQuoteSuffixes {
		if strings.HasSuffix(normalized, suffix) && len(normalized) > len(suffix) {
			return strings.TrimSuffix(normalized, suffix)
		}
	}
	return normalized
}
