package pricing

import (
	"sort"

	"nba-props-engine/internal/odds"
)

// BookFairPair is one book's paired over/under prices for a line, with
// implied and no-vig probabilities. Only books quoting both sides at the
// point contribute a pair.
type BookFairPair struct {
	Book          string
	OverPrice     int
	UnderPrice    int
	POverImplied  float64
	PUnderImplied float64
	POverFair     float64
	PUnderFair    float64
	Hold          float64
}

// ExtractBookFairPairs groups rows by book, picks each book's best (highest
// signed) price per side, and emits a no-vig pair for every book with both
// sides quoted. Output is sorted by book name so downstream consumers are
// deterministic.
func ExtractBookFairPairs(rows []QuoteRow, excludeBooks map[string]bool) []BookFairPair {
	type sides struct {
		over, under []int
	}
	byBook := make(map[string]*sides)
	for _, row := range rows {
		book := row.Book
		if book == "" || excludeBooks[book] {
			continue
		}
		side := ParseSide(row.Side)
		if side == "" || row.Price == 0 {
			continue
		}
		entry, ok := byBook[book]
		if !ok {
			entry = &sides{}
			byBook[book] = entry
		}
		if side == "over" {
			entry.over = append(entry.over, row.Price)
		} else {
			entry.under = append(entry.under, row.Price)
		}
	}

	books := make([]string, 0, len(byBook))
	for book := range byBook {
		books = append(books, book)
	}
	sort.Strings(books)

	var pairs []BookFairPair
	for _, book := range books {
		entry := byBook[book]
		if len(entry.over) == 0 || len(entry.under) == 0 {
			continue
		}
		overPrice := maxPrice(entry.over)
		underPrice := maxPrice(entry.under)
		pOverImplied, okOver := odds.ImpliedFromAmerican(overPrice)
		pUnderImplied, okUnder := odds.ImpliedFromAmerican(underPrice)
		if !okOver || !okUnder {
			continue
		}
		pOverFair, pUnderFair := odds.NormalizeProbPair(pOverImplied, pUnderImplied)
		pairs = append(pairs, BookFairPair{
			Book:          book,
			OverPrice:     overPrice,
			UnderPrice:    underPrice,
			POverImplied:  pOverImplied,
			PUnderImplied: pUnderImplied,
			POverFair:     pOverFair,
			PUnderFair:    pUnderFair,
			Hold:          odds.Hold(pOverImplied, pUnderImplied),
		})
	}
	return pairs
}

func maxPrice(prices []int) int {
	best := prices[0]
	for _, p := range prices[1:] {
		if p > best {
			best = p
		}
	}
	return best
}
