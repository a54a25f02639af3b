package services

import (
	"regexp"
	"strconv"
	"strings"

	"marketpulse/internal/models"
	"marketpulse/internal/oracle"
)

// Classification confidence levels recorded in the resolution report. The
// sentiment-word fallback is the only low-confidence path.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// ClassifiedOutcome is the classifier's verdict plus the rule that
// produced it, for the audit trail.
type ClassifiedOutcome struct {
	Outcome    string
	Rule       string
	Confidence string
}

// classifierRule pairs a predicate with a resolver. Rules are evaluated in
// order and the first applicable one wins; many question texts satisfy
// several patterns at once, so the ordering is load-bearing.
type classifierRule struct {
	name       string
	confidence string
	applies    func(q string, f *oracle.PriceFacts) bool
	decide     func(q string, f *oracle.PriceFacts) string
}

// OutcomeClassifier turns a natural-language YES/NO question plus priced
// facts into a binary verdict. It prefers the most specific, numerically
// verifiable reading of the question and only degrades to sentiment-word
// matching when no quantitative anchor exists.
type OutcomeClassifier struct {
	rules []classifierRule
}

var (
	// Dollar amounts, comma-grouped numbers, or bare decimals. A bare
	// integer with no $, comma or decimal point is not a price target, so
	// "rise by 2% today" is left for the percent rule.
	priceTargetRe = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?|\b\d{1,3}(?:,\d{3})+(?:\.\d+)?\b|\b\d+\.\d+\b`)
	percentRe     = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)%`)
	directionUpRe = regexp.MustCompile(`(?i)\b(rise|up|higher|increase)\b`)
	closeWordRe   = regexp.MustCompile(`(?i)\bclos(e|es|ing)\b`)
	higherWordRe  = regexp.MustCompile(`(?i)\bhigher\b`)
)

func NewOutcomeClassifier() *OutcomeClassifier {
	return &OutcomeClassifier{
		rules: []classifierRule{
			{
				name:       "price_target",
				confidence: ConfidenceHigh,
				applies: func(q string, f *oracle.PriceFacts) bool {
					_, ok := parsePriceTarget(q)
					return ok
				},
				decide: func(q string, f *oracle.PriceFacts) string {
					target, _ := parsePriceTarget(q)
					return yesNo(f.Price >= target)
				},
			},
			{
				name:       "percent_change",
				confidence: ConfidenceHigh,
				applies: func(q string, f *oracle.PriceFacts) bool {
					_, ok := parsePercent(q)
					return ok && f.Open != nil
				},
				decide: func(q string, f *oracle.PriceFacts) string {
					stated, _ := parsePercent(q)
					change := (f.Price - *f.Open) / *f.Open
					return yesNo(change >= stated/100)
				},
			},
			{
				name:       "close_higher",
				confidence: ConfidenceHigh,
				applies: func(q string, f *oracle.PriceFacts) bool {
					return closeWordRe.MatchString(q) && higherWordRe.MatchString(q) && f.Open != nil
				},
				decide: func(q string, f *oracle.PriceFacts) string {
					return yesNo(f.Price > *f.Open)
				},
			},
			{
				name:       "prev_close_direction",
				confidence: ConfidenceHigh,
				applies: func(q string, f *oracle.PriceFacts) bool {
					return f.PrevClose != nil && directionUpRe.MatchString(q)
				},
				decide: func(q string, f *oracle.PriceFacts) string {
					return yesNo(f.Price >= *f.PrevClose)
				},
			},
			{
				// No usable reference price or explicit target: fall back
				// to the directional cue word alone.
				name:       "direction_word",
				confidence: ConfidenceLow,
				applies: func(q string, f *oracle.PriceFacts) bool {
					return true
				},
				decide: func(q string, f *oracle.PriceFacts) string {
					return yesNo(directionUpRe.MatchString(q))
				},
			},
		},
	}
}

// Classify returns YES or NO for the question, never "unknown"; a price is
// required by the caller before classification happens.
func (c *OutcomeClassifier) Classify(question string, facts *oracle.PriceFacts) ClassifiedOutcome {
	for _, rule := range c.rules {
		if rule.applies(question, facts) {
			return ClassifiedOutcome{
				Outcome:    rule.decide(question, facts),
				Rule:       rule.name,
				Confidence: rule.confidence,
			}
		}
	}
	// Unreachable: the fallback rule always applies.
	return ClassifiedOutcome{Outcome: models.OutcomeNo, Rule: "none", Confidence: ConfidenceLow}
}

// parsePriceTarget extracts the first explicit numeric price target from
// the question text, e.g. "$97,000" or "97000.50". A number immediately
// followed by a percent sign is a percentage, not a price target.
func parsePriceTarget(q string) (float64, bool) {
	for _, loc := range priceTargetRe.FindAllStringIndex(q, -1) {
		if loc[1] < len(q) && q[loc[1]] == '%' {
			continue
		}
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(q[loc[0]:loc[1]])
		target, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			continue
		}
		return target, true
	}
	return 0, false
}

// parsePercent extracts a signed percentage change, e.g. "+2%" or "-3.5%",
// returned in percent units (2 means 2%).
func parsePercent(q string) (float64, bool) {
	match := percentRe.FindStringSubmatch(q)
	if match == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

func yesNo(v bool) string {
	if v {
		return models.OutcomeYes
	}
	return models.OutcomeNo
}
