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

const DefaultEquityQuoteURL = "https://finnhub.io/api/v1"

// EquityQuote holds the fields an equity quote source may return. Any of
// them can be absent; the adapter never lets a missing or zero field leak
// through as a real price.
type EquityQuote struct {
	Last      *float64
	Open      *float64
	PrevClose *float64
}

// EquityClient fetches stock quotes from a Finnhub-style quote endpoint.
// Example:
// GET /quote?symbol=AAPL&token=... -> {"c":151.2,"o":150.0,"pc":149.5}
type EquityClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewEquityClient(baseURL, token string) *EquityClient {
	if baseURL == "" {
		baseURL = DefaultEquityQuoteURL
	}
	return &EquityClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// Quote returns last price, session open and previous close for a ticker.
// The upstream reports 0 for fields it does not know, so zeros are mapped
// to absent.
func (c *EquityClient) Quote(ctx context.Context, symbol string) (*EquityQuote, error) {
	reqURL := fmt.Sprintf("%s/quote?symbol=%s", c.baseURL, url.QueryEscape(strings.ToUpper(symbol)))
	if c.token != "" {
		reqURL += "&token=" + url.QueryEscape(c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("equity quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("equity quote returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Response: {"c": last, "o": open, "pc": previous close}
	var raw struct {
		Current   float64 `json:"c"`
		Open      float64 `json:"o"`
		PrevClose float64 `json:"pc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("equity quote parse error: %w", err)
	}

	quote := &EquityQuote{}
	if raw.Current > 0 {
		quote.Last = &raw.Current
	}
	if raw.Open > 0 {
		quote.Open = &raw.Open
	}
	if raw.PrevClose > 0 {
		quote.PrevClose = &raw.PrevClose
	}

	return quote, nil
}
