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

const DefaultCryptoCompareURL = "https://min-api.cryptocompare.com"

// CryptoCompareClient fetches crypto spot prices from the CryptoCompare
// price API. Example:
// GET /data/price?fsym=BTC&tsyms=USD -> {"USD": 97123.0}
type CryptoCompareClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewCryptoCompareClient(baseURL string) *CryptoCompareClient {
	if baseURL == "" {
		baseURL = DefaultCryptoCompareURL
	}
	return &CryptoCompareClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// SpotPrice returns the USD spot price for a crypto pair symbol.
// CryptoCompare keys by base currency, so "BTCUSDT" is queried as fsym=BTC.
func (c *CryptoCompareClient) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	fsym := baseSymbol(symbol)

	reqURL := fmt.Sprintf("%s/data/price?fsym=%s&tsyms=USD", c.baseURL, url.QueryEscape(fsym))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cryptocompare request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("cryptocompare returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Response: {"USD": 97123.0}
	var result map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("cryptocompare parse error: %w", err)
	}

	price, ok := result["USD"]
	if !ok || price == 0 {
		return 0, fmt.Errorf("cryptocompare returned no USD price for %s", fsym)
	}

	return price, nil
}
