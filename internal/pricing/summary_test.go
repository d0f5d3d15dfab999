package pricing

import (
	"math"
	"testing"
	"time"
)

var testNow = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func TestSummarizeLineHoldFallbackAndQuoteAge(t *testing.T) {
	// Both rows are over-only, so no book pairs exist and the hold score
	// comes from the fallback.
	rows := []QuoteRow{
		{Book: "book_a", Side: "Over", Price: -110, LastUpdate: time.Date(2026, 2, 14, 11, 50, 0, 0, time.UTC)},
		{Book: "book_b", Side: "Over", Price: -108, LastUpdate: time.Date(2026, 2, 14, 11, 40, 0, 0, time.UTC)},
	}

	summary := SummarizeLine(rows, testNow, 20, fptr(0.06), nil)

	if summary.BookPairCount != 0 {
		t.Fatalf("book_pair_count = %d, want 0", summary.BookPairCount)
	}
	if len(summary.BooksUsed) != 0 {
		t.Errorf("books_used = %v, want empty", summary.BooksUsed)
	}
	if !summary.FreshestQuote.Equal(time.Date(2026, 2, 14, 11, 50, 0, 0, time.UTC)) {
		t.Errorf("freshest_quote = %v", summary.FreshestQuote)
	}
	if summary.QuoteAgeMinutes == nil || *summary.QuoteAgeMinutes != 10.0 {
		t.Errorf("quote_age_minutes = %v, want 10", summary.QuoteAgeMinutes)
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"depth_score", summary.DepthScore, 0.0},
		{"hold_score", summary.HoldScore, 0.5},
		{"dispersion_score", summary.DispersionScore, 0.0},
		{"freshness_score", summary.FreshnessScore, 0.75},
		{"quality_score", summary.QualityScore, 0.275},
		{"uncertainty_band", summary.UncertaintyBand, 0.1275},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestSummarizeLineRespectsExcludedBooks(t *testing.T) {
	update := time.Date(2026, 2, 14, 11, 50, 0, 0, time.UTC)
	rows := []QuoteRow{
		{Book: "book_a", Side: "Over", Price: -110, LastUpdate: update},
		{Book: "book_a", Side: "Under", Price: -110, LastUpdate: update},
		{Book: "book_b", Side: "Over", Price: -105, LastUpdate: update},
		{Book: "book_b", Side: "Under", Price: -115, LastUpdate: update},
	}

	summary := SummarizeLine(rows, testNow, 20, nil, map[string]bool{"book_b": true})

	if summary.BookPairCount != 1 {
		t.Fatalf("book_pair_count = %d, want 1", summary.BookPairCount)
	}
	if len(summary.BooksUsed) != 1 || summary.BooksUsed[0] != "book_a" {
		t.Errorf("books_used = %v, want [book_a]", summary.BooksUsed)
	}
}

func TestSummarizeLineNoTimestampsNoFreshness(t *testing.T) {
	rows := []QuoteRow{
		{Book: "book_a", Side: "Over", Price: -110},
		{Book: "book_a", Side: "Under", Price: -110},
	}

	summary := SummarizeLine(rows, testNow, 20, nil, nil)

	if summary.QuoteAgeMinutes != nil {
		t.Errorf("quote_age_minutes = %v, want nil", summary.QuoteAgeMinutes)
	}
	if summary.FreshnessScore != 0 {
		t.Errorf("freshness_score = %v, want 0", summary.FreshnessScore)
	}
}
