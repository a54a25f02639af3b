package models

import (
	"testing"
	"time"
)

func sampleReport() *ResolutionReport {
	open := 150.0
	prevClose := 149.5
	return &ResolutionReport{
		MarketID:   7,
		Asset:      "AAPL",
		Question:   "Will AAPL close higher today?",
		FinalPrice: 151.2,
		Sources:    map[string]float64{"equity": 151.2},
		Open:       &open,
		PrevClose:  &prevClose,
		ResolvedAt: time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC),
		Outcome:    OutcomeYes,
		Rule:       "close_higher",
		Confidence: "high",
	}
}

func TestReportHashDeterminism(t *testing.T) {
	a, err := sampleReport().Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := sampleReport().Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if a != b {
		t.Errorf("hashing the same report twice gave %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 digest, got %q", a)
	}
}

func TestReportHashChangesWithContent(t *testing.T) {
	base, _ := sampleReport().Hash()

	changed := sampleReport()
	changed.FinalPrice = 151.21
	got, _ := changed.Hash()

	if got == base {
		t.Error("changing the consensus price must change the hash")
	}

	changed = sampleReport()
	changed.Outcome = OutcomeNo
	got, _ = changed.Hash()
	if got == base {
		t.Error("changing the outcome must change the hash")
	}
}
