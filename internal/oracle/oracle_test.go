package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketpulse/internal/models"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		readings []float64
		want     float64
	}{
		{"single value", []float64{42}, 42},
		{"two values", []float64{100, 102}, 101},
		{"three values", []float64{3, 1, 2}, 2},
		{"four values", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tt := range tests {
		if got := Median(tt.readings); got != tt.want {
			t.Errorf("%s: Median(%v) = %v, want %v", tt.name, tt.readings, got, tt.want)
		}
	}
}

func TestMedianOrderInvariance(t *testing.T) {
	a := Median([]float64{97000, 97100, 96900})
	b := Median([]float64{96900, 97000, 97100})
	c := Median([]float64{97100, 96900, 97000})
	if a != b || b != c {
		t.Errorf("median depends on input order: %v %v %v", a, b, c)
	}
}

func TestSymbolClassification(t *testing.T) {
	tests := []struct {
		symbol    string
		assetType string
		want      bool
	}{
		{"BTCUSDT", "", true},
		{"BTC/USD", "", true},
		{"ETHUSDC", "", true},
		{"AAPL", "", false},
		{"TSLA", "", false},
		{"USD", "", false}, // suffix alone is not a pair
		{"AAPL", models.AssetTypeCrypto, true},
		{"BTCUSDT", models.AssetTypeEquity, false},
	}

	for _, tt := range tests {
		if got := isCrypto(tt.symbol, tt.assetType); got != tt.want {
			t.Errorf("isCrypto(%q, %q) = %v, want %v", tt.symbol, tt.assetType, got, tt.want)
		}
	}
}

func TestBaseSymbol(t *testing.T) {
	tests := map[string]string{
		"BTCUSDT": "BTC",
		"BTC/USD": "BTC",
		"solusdt": "SOL",
		"AAPL":    "AAPL",
	}
	for symbol, want := range tests {
		if got := baseSymbol(symbol); got != want {
			t.Errorf("baseSymbol(%q) = %q, want %q", symbol, got, want)
		}
	}
}

func newTestAggregator(coinGeckoURL, cryptoCompareURL, equityURL string) *Aggregator {
	return NewAggregator(
		NewCoinGeckoClient(coinGeckoURL),
		NewCryptoCompareClient(cryptoCompareURL),
		NewEquityClient(equityURL, "test-token"),
	)
}

func TestFetchCryptoBothSources(t *testing.T) {
	coinGecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":97000}}`))
	}))
	defer coinGecko.Close()

	cryptoCompare := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"USD":97100}`))
	}))
	defer cryptoCompare.Close()

	agg := newTestAggregator(coinGecko.URL, cryptoCompare.URL, "http://127.0.0.1:0")

	facts, err := agg.FetchPriceFacts(context.Background(), "BTCUSDT", "")
	if err != nil {
		t.Fatalf("FetchPriceFacts failed: %v", err)
	}

	if want := 97050.0; facts.Price != want {
		t.Errorf("consensus price = %v, want %v (mean of two middle readings)", facts.Price, want)
	}
	if len(facts.Sources) != 2 {
		t.Errorf("expected 2 source readings, got %d", len(facts.Sources))
	}
	if facts.Open != nil || facts.PrevClose != nil {
		t.Error("crypto facts should carry no open/previous-close")
	}
}

func TestFetchCryptoOneSourceFails(t *testing.T) {
	coinGecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer coinGecko.Close()

	cryptoCompare := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"USD":97100}`))
	}))
	defer cryptoCompare.Close()

	agg := newTestAggregator(coinGecko.URL, cryptoCompare.URL, "http://127.0.0.1:0")

	facts, err := agg.FetchPriceFacts(context.Background(), "BTCUSDT", "")
	if err != nil {
		t.Fatalf("one failed source must not propagate: %v", err)
	}
	if facts.Price != 97100 {
		t.Errorf("consensus price = %v, want 97100 (single surviving reading)", facts.Price)
	}
}

func TestFetchCryptoAllSourcesFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	agg := newTestAggregator(down.URL, down.URL, "http://127.0.0.1:0")

	_, err := agg.FetchPriceFacts(context.Background(), "BTCUSDT", "")
	if err != ErrNoPrice {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

func TestFetchEquityQuote(t *testing.T) {
	equity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "AAPL" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"c":151.2,"o":150.0,"pc":149.5}`))
	}))
	defer equity.Close()

	agg := newTestAggregator("http://127.0.0.1:0", "http://127.0.0.1:0", equity.URL)

	facts, err := agg.FetchPriceFacts(context.Background(), "AAPL", "")
	if err != nil {
		t.Fatalf("FetchPriceFacts failed: %v", err)
	}

	if facts.Price != 151.2 {
		t.Errorf("consensus price = %v, want 151.2", facts.Price)
	}
	if facts.Open == nil || *facts.Open != 150.0 {
		t.Errorf("open = %v, want 150.0", facts.Open)
	}
	if facts.PrevClose == nil || *facts.PrevClose != 149.5 {
		t.Errorf("prev close = %v, want 149.5", facts.PrevClose)
	}
}

func TestFetchEquityMissingFields(t *testing.T) {
	// The upstream reports 0 for fields it does not know.
	equity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":151.2,"o":0,"pc":0}`))
	}))
	defer equity.Close()

	agg := newTestAggregator("http://127.0.0.1:0", "http://127.0.0.1:0", equity.URL)

	facts, err := agg.FetchPriceFacts(context.Background(), "AAPL", "")
	if err != nil {
		t.Fatalf("FetchPriceFacts failed: %v", err)
	}
	if facts.Open != nil || facts.PrevClose != nil {
		t.Error("zero open/prev-close must be treated as absent")
	}
}

func TestFetchEquityNoLastPrice(t *testing.T) {
	equity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"o":150.0,"pc":149.5}`))
	}))
	defer equity.Close()

	agg := newTestAggregator("http://127.0.0.1:0", "http://127.0.0.1:0", equity.URL)

	_, err := agg.FetchPriceFacts(context.Background(), "AAPL", "")
	if err != ErrNoPrice {
		t.Fatalf("expected ErrNoPrice without a last price, got %v", err)
	}
}
