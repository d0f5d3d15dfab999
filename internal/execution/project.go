// Package execution re-prices an existing strategy report against fresh
// quotes from the books an account can actually bet, applies the stricter
// execution-time gates, and sizes stakes.
package execution

import (
	"math"
	"sort"
	"time"

	"nba-props-engine/internal/mathutil"
	"nba-props-engine/internal/names"
	"nba-props-engine/internal/odds"
	"nba-props-engine/internal/pricing"
	"nba-props-engine/internal/strategy"
)

// Execution-time ineligibility reasons.
const (
	ReasonNoFreshQuote     = "execution_no_fresh_quote"
	ReasonEVBelowThreshold = "execution_ev_below_threshold"
	ReasonPreBetNotReady   = "execution_pre_bet_not_ready"
)

// Config is the execution-side projection configuration. Bookmakers is the
// ordered preference list; earlier books win price ties.
type Config struct {
	Bookmakers        []string
	TierAMinEV        float64
	TierBMinEV        float64
	RequirePreBetReady bool
}

// DefaultConfig mirrors the standard execution floors.
func DefaultConfig(bookmakers []string) Config {
	return Config{
		Bookmakers: bookmakers,
		TierAMinEV: 0.03,
		TierBMinEV: 0.05,
	}
}

type quoteKey struct {
	eventID    string
	market     string
	playerNorm string
	point      float64
	side       string
}

func indexQuotes(rows []pricing.QuoteRow, bookRank map[string]int) map[quoteKey][]pricing.QuoteRow {
	index := map[quoteKey][]pricing.QuoteRow{}
	for _, row := range rows {
		if row.Point == nil || row.Price == 0 {
			continue
		}
		if _, allowed := bookRank[row.Book]; !allowed {
			continue
		}
		side := pricing.ParseSide(row.Side)
		if side == "" {
			continue
		}
		key := quoteKey{row.EventID, row.Market, names.Person(row.Player), *row.Point, side}
		index[key] = append(index[key], row)
	}
	return index
}

// bestExecutionQuote ranks matching quotes by price, then book preference,
// then freshness, then book name.
func bestExecutionQuote(rows []pricing.QuoteRow, bookRank map[string]int) (pricing.QuoteRow, bool) {
	if len(rows) == 0 {
		return pricing.QuoteRow{}, false
	}
	sorted := append([]pricing.QuoteRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Price != b.Price {
			return a.Price > b.Price
		}
		if bookRank[a.Book] != bookRank[b.Book] {
			return bookRank[a.Book] < bookRank[b.Book]
		}
		if !a.LastUpdate.Equal(b.LastUpdate) {
			return a.LastUpdate.After(b.LastUpdate)
		}
		return a.Book < b.Book
	})
	return sorted[0], true
}

// PreBetReady reports whether a candidate has the context confirmation the
// execution desk requires before money moves: a verified roster spot, a
// resolved injury designation, and a non-stale quote.
func PreBetReady(cand *strategy.Candidate) bool {
	switch cand.RosterStatus {
	case strategy.RosterActive, strategy.RosterRostered:
	default:
		return false
	}
	switch cand.InjuryStatus {
	case "out", "out_for_season", "unknown":
		return false
	}
	return cand.OddsStatus == "ok"
}

func copyCandidates(src []*strategy.Candidate) []*strategy.Candidate {
	out := make([]*strategy.Candidate, len(src))
	for i, cand := range src {
		clone := *cand
		out[i] = &clone
	}
	return out
}

// ProjectReport re-prices every ranked play in the report against fresh
// quotes restricted to the configured books and re-applies the execution EV
// floors. The input report is never mutated; candidates that fail move to
// the watchlist of the returned report.
func ProjectReport(report *strategy.Report, freshRows []pricing.QuoteRow, cfg Config, now time.Time) *strategy.Report {
	bookRank := map[string]int{}
	for i, book := range cfg.Bookmakers {
		if _, seen := bookRank[book]; !seen {
			bookRank[book] = i
		}
	}
	quotes := indexQuotes(freshRows, bookRank)
	now = now.UTC()

	projected := *report
	candidates := copyCandidates(report.Candidates)
	projected.Candidates = candidates

	ranked := make([]*strategy.Candidate, 0, len(candidates))
	watchlist := make([]*strategy.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if !cand.Eligible {
			watchlist = append(watchlist, cand)
			continue
		}
		projectCandidate(cand, quotes, bookRank, cfg, now)
		if cand.Eligible {
			ranked = append(ranked, cand)
		} else {
			cand.Rank = 0
			watchlist = append(watchlist, cand)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ae, be := -999.0, -999.0
		if a.BestEV != nil {
			ae = *a.BestEV
		}
		if b.BestEV != nil {
			be = *b.BestEV
		}
		if ae != be {
			return ae > be
		}
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		return a.PlayerNorm < b.PlayerNorm
	})
	for i, cand := range ranked {
		cand.Rank = i + 1
	}

	projected.RankedPlays = ranked
	projected.Watchlist = watchlist
	// The derived sections alias candidates, so rebuild them from the
	// re-priced clones rather than carrying the pre-game versions over.
	projected.UnderSweep = strategy.UnderSweepFor(candidates)
	projected.KellySummary = strategy.KellySummaryFor(ranked, 0)
	projected.PriceDependentWatchlist = strategy.PriceDependentWatchlistFor(watchlist)
	projected.StrategyMode = "watchlist_only"
	if len(ranked) > 0 {
		projected.StrategyMode = "full_board"
	}
	summary := report.Summary
	summary.Eligible = len(ranked)
	summary.Ineligible = len(candidates) - len(ranked)
	summary.ReasonCounts = map[string]int{}
	for _, cand := range watchlist {
		if cand.Reason != "" {
			summary.ReasonCounts[cand.Reason]++
		}
	}
	projected.Summary = summary
	projected.GeneratedAtUTC = now.Format(time.RFC3339)
	return &projected
}

func projectCandidate(cand *strategy.Candidate, quotes map[quoteKey][]pricing.QuoteRow, bookRank map[string]int, cfg Config, now time.Time) {
	key := quoteKey{cand.EventID, cand.Market, cand.PlayerNorm, cand.Point, cand.Side}
	quote, ok := bestExecutionQuote(quotes[key], bookRank)
	if !ok {
		cand.Eligible = false
		cand.Reason = ReasonNoFreshQuote
		return
	}

	cand.Book = quote.Book
	cand.Link = quote.Link
	price := quote.Price
	cand.Price = &price
	if quote.LastUpdate.IsZero() {
		cand.LastUpdate = nil
		cand.OddsStatus = "missing_last_update"
	} else {
		lu := quote.LastUpdate
		cand.LastUpdate = &lu
		cand.OddsStatus = "ok"
		age := now.Sub(lu).Minutes()
		age = mathutil.RoundTo(math.Max(0, age), 6)
		cand.QuoteAgeMinutes = &age
	}

	if cand.ModelPHit != nil {
		if v, ok := odds.EVFromProbAndPrice(*cand.ModelPHit, price); ok {
			v = mathutil.RoundTo(v, 6)
			cand.BestEV = &v
		} else {
			cand.BestEV = nil
		}
		cand.KellyFraction = odds.KellyFraction(*cand.ModelPHit, price, 1.0)
		cand.QuarterKelly = odds.KellyFraction(*cand.ModelPHit, price, 0.25)
	}
	if cand.PHitLow != nil {
		if v, ok := odds.EVFromProbAndPrice(*cand.PHitLow, price); ok {
			v = mathutil.RoundTo(v, 6)
			cand.EVLow = &v
		} else {
			cand.EVLow = nil
		}
	}

	if cfg.RequirePreBetReady && !PreBetReady(cand) {
		cand.Eligible = false
		cand.Reason = ReasonPreBetNotReady
		return
	}

	floor := cfg.TierAMinEV
	if cand.Tier == "B" {
		floor = cfg.TierBMinEV
	}
	if cand.BestEV == nil || *cand.BestEV < floor {
		cand.Eligible = false
		cand.Reason = ReasonEVBelowThreshold
	}
}
