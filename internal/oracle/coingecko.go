package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// coinGeckoIDs maps base symbols to CoinGecko coin ids. CoinGecko keys its
// simple-price endpoint by coin id, not ticker, so symbols outside this
// map simply yield no reading from this source.
var coinGeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"LTC":  "litecoin",
	"DOT":  "polkadot",
	"AVAX": "avalanche-2",
	"PUMP": "pump-fun",
}

// CoinGeckoClient fetches crypto spot prices from the CoinGecko simple
// price API. Example:
// GET /simple/price?ids=bitcoin&vs_currencies=usd -> {"bitcoin":{"usd":97123.0}}
type CoinGeckoClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// SpotPrice returns the USD spot price for a crypto pair symbol such as
// "BTCUSDT" or "BTC/USD".
func (c *CoinGeckoClient) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	coinID, ok := coinGeckoIDs[baseSymbol(symbol)]
	if !ok {
		return 0, fmt.Errorf("no coingecko id for symbol %s", symbol)
	}

	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(coinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("coingecko returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Response: {"bitcoin":{"usd":97123.0}}
	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("coingecko parse error: %w", err)
	}

	coinData, ok := result[coinID]
	if !ok {
		return 0, fmt.Errorf("coingecko returned no data for %s", coinID)
	}
	price, ok := coinData["usd"]
	if !ok || price == 0 {
		return 0, fmt.Errorf("coingecko returned no usd price for %s", coinID)
	}

	return price, nil
}
