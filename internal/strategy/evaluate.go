package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"nba-props-engine/internal/calibration"
	"nba-props-engine/internal/mathutil"
	"nba-props-engine/internal/names"
	"nba-props-engine/internal/odds"
	"nba-props-engine/internal/portfolio"
	"nba-props-engine/internal/pricing"
	"nba-props-engine/internal/projection"
)

// ReportSchemaVersion tags the strategy report artifact.
const ReportSchemaVersion = 5

// Tier EV floors. The run-level min_ev can only raise these.
const (
	tierAMinEVFloor = 0.03
	tierBMinEVFloor = 0.05
)

// RunConfig is the run-level (non-recipe) strategy configuration.
type RunConfig struct {
	TopN                    int
	MinEV                   float64
	AllowTierB              bool
	RequireOfficialInjuries bool
	RequireFreshContext     bool
	ContextStaleHours       float64
	StaleQuoteMinutes       int
	MaxPicks                int
	MaxPerPlayer            int
	MaxPerGame              int
	ExcludeBooks            []string
}

// DefaultRunConfig mirrors the production run defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		TopN:              10,
		MinEV:             0.0,
		ContextStaleHours: 6.0,
		StaleQuoteMinutes: 45,
		MaxPicks:          6,
		MaxPerPlayer:      1,
		MaxPerGame:        2,
	}
}

// Inputs carries one snapshot's worth of pre-loaded collaborator data. The
// evaluator never reaches out to storage or the network itself.
type Inputs struct {
	SnapshotID   string
	ModeledDay   string
	Now          time.Time
	Rows         []pricing.QuoteRow
	Injuries     *InjuryFeeds
	Roster       *RosterSnapshot
	Events       map[string]EventInfo
	GameLines    []GameLineRow
	Identity     *IdentityMap
	Priors       *calibration.RollingPriors
	Calibration  *calibration.Map
	MinutesModel *projection.MinutesModel
}

// Candidate is one evaluated prop line with full pricing, projection, and
// gate provenance.
type Candidate struct {
	Rank               int        `json:"rank,omitempty"`
	EventID            string     `json:"event_id"`
	HomeTeam           string     `json:"home_team,omitempty"`
	AwayTeam           string     `json:"away_team,omitempty"`
	TipoffUTC          string     `json:"tipoff_utc,omitempty"`
	Player             string     `json:"player"`
	PlayerNorm         string     `json:"player_norm"`
	Team               string     `json:"team,omitempty"`
	TeamAbbrev         string     `json:"team_abbrev,omitempty"`
	Market             string     `json:"market"`
	Point              float64    `json:"point"`
	Side               string     `json:"side"`
	Tier               string     `json:"tier"`
	Book               string     `json:"book,omitempty"`
	Price              *int       `json:"price"`
	Link               string     `json:"link,omitempty"`
	LastUpdate         *time.Time `json:"last_update,omitempty"`
	Books              int        `json:"books"`
	ShopDeltaAmerican  int        `json:"shop_delta_american"`
	BaselineUsed       string     `json:"baseline_used"`
	ReferenceMethod    string     `json:"reference_line_method,omitempty"`
	LineSource         string     `json:"line_source"`
	BaselineBooksUsed  []string   `json:"baseline_books_used,omitempty"`
	BookPairCount      int        `json:"book_pair_count"`
	POverMedian        *float64   `json:"p_over_median,omitempty"`
	HoldMedian         *float64   `json:"hold_median,omitempty"`
	POverIQR           *float64   `json:"p_over_iqr,omitempty"`
	QuoteAgeMinutes    *float64   `json:"quote_age_minutes,omitempty"`
	QualityScore       float64    `json:"quality_score"`
	UncertaintyBand    float64    `json:"uncertainty_band"`
	InjuryStatus       string     `json:"injury_status"`
	InjuryNote         string     `json:"injury_note,omitempty"`
	RosterStatus       string     `json:"roster_status"`
	Minutes            projection.MinutesUsage `json:"minutes_projection"`
	SideAdjustment     float64    `json:"side_adjustment"`
	ProbAdjustment     float64    `json:"prob_adjustment"`
	MinutesP50         *float64   `json:"minutes_p50,omitempty"`
	MinutesBand        *float64   `json:"minutes_band,omitempty"`
	PActive            *float64   `json:"p_active,omitempty"`
	ProbConfidence     *float64   `json:"prob_confidence,omitempty"`
	MinutesProbAdj     float64    `json:"minutes_prob_adjustment"`
	PriorDelta         float64    `json:"prior_delta"`
	PriorSampleSize    int        `json:"prior_sample_size"`
	ModelPHit          *float64   `json:"model_p_hit"`
	PHitLow            *float64   `json:"p_hit_low"`

	PConservative     *float64         `json:"p_conservative,omitempty"`
	PCalibrated       *float64         `json:"p_calibrated,omitempty"`
	CalibrationBin    *calibration.Bin `json:"calibration_bin,omitempty"`
	CalibrationConf   float64          `json:"calibration_confidence"`
	CalibrationSource string           `json:"calibration_source"`
	ConfidenceTier    string           `json:"confidence_tier"`

	BestEV             *float64   `json:"best_ev"`
	EVLow              *float64   `json:"ev_low"`
	EVLowCalibrated    *float64   `json:"ev_low_calibrated,omitempty"`
	FairDecimal        *float64   `json:"fair_decimal,omitempty"`
	PlayToAmerican     *int       `json:"play_to_american,omitempty"`
	BreakevenAmerican  *int       `json:"breakeven_american,omitempty"`
	KellyFraction      float64    `json:"kelly_fraction"`
	QuarterKelly       float64    `json:"quarter_kelly"`
	Score              float64    `json:"score"`
	OddsStatus         string     `json:"odds_status"`
	Eligible           bool       `json:"eligible"`
	Reason             string     `json:"reason,omitempty"`
	PortfolioSelected  bool       `json:"portfolio_selected"`
	PortfolioReason    string     `json:"portfolio_reason,omitempty"`
	PortfolioRank      int        `json:"portfolio_rank,omitempty"`
}

// Health summarizes report-level context freshness.
type Health struct {
	OfficialInjuryReady bool     `json:"official_injury_ready"`
	InjuryAgeHours      *float64 `json:"injury_age_hours,omitempty"`
	RosterAgeHours      *float64 `json:"roster_age_hours,omitempty"`
	OddsAgeMinutes      *float64 `json:"odds_age_minutes,omitempty"`
	OddsStale           bool     `json:"odds_stale"`
	Failing             []string `json:"failing,omitempty"`
}

// Summary is the count rollup for one report.
type Summary struct {
	Candidates   int            `json:"candidates"`
	Eligible     int            `json:"eligible"`
	Ineligible   int            `json:"ineligible"`
	Events       int            `json:"events"`
	Books        int            `json:"books"`
	ReasonCounts map[string]int `json:"reason_counts"`
}

// UnderSweep surfaces the under-side board: enough qualified unders signals
// a slow slate worth shopping.
type UnderSweep struct {
	Status        string       `json:"status"`
	Qualified     []*Candidate `json:"qualified"`
	ClosestMisses []*Candidate `json:"closest_misses"`
}

// KellyRow is one staking suggestion line.
type KellyRow struct {
	Player       string   `json:"player"`
	Market       string   `json:"market"`
	Side         string   `json:"side"`
	Point        float64  `json:"point"`
	Book         string   `json:"book"`
	Price        *int     `json:"price"`
	ModelPHit    *float64 `json:"model_p_hit"`
	Kelly        float64  `json:"kelly_fraction"`
	QuarterKelly float64  `json:"quarter_kelly"`
}

// VerifiedPlayer is one roster-confirmed player on the board.
type VerifiedPlayer struct {
	Player string `json:"player"`
	Team   string `json:"team"`
	Status string `json:"roster_status"`
}

// Audit echoes the resolved knobs that shaped this report.
type Audit struct {
	StrategyID       string                `json:"strategy_id"`
	PortfolioRanking string                `json:"portfolio_ranking"`
	Constraints      portfolio.Constraints `json:"constraints"`
	MinEV            float64               `json:"min_ev"`
	AllowTierB       bool                  `json:"allow_tier_b"`
	UseRollingPriors bool                  `json:"use_rolling_priors"`
	PriorsRowsUsed   int                   `json:"priors_rows_used"`

	CalibrationMapMode       string `json:"calibration_map_mode,omitempty"`
	CalibrationMapModeledDay string `json:"calibration_map_modeled_day,omitempty"`
}

// Report is the full strategy evaluation artifact.
type Report struct {
	SchemaVersion           int              `json:"report_schema_version"`
	GeneratedAtUTC          string           `json:"generated_at_utc"`
	SnapshotID              string           `json:"snapshot_id"`
	StrategyID              string           `json:"strategy_id"`
	ModeledDay              string           `json:"modeled_day"`
	StrategyMode            string           `json:"strategy_mode"`
	StrategyStatus          string           `json:"strategy_status"`
	Health                  Health           `json:"health"`
	Summary                 Summary          `json:"summary"`
	Candidates              []*Candidate     `json:"candidates"`
	RankedPlays             []*Candidate     `json:"ranked_plays"`
	Watchlist               []*Candidate     `json:"watchlist"`
	UnderSweep              UnderSweep       `json:"under_sweep"`
	PriceDependentWatchlist []*Candidate     `json:"price_dependent_watchlist"`
	KellySummary            []KellyRow       `json:"kelly_summary"`
	VerifiedPlayers         []VerifiedPlayer `json:"verified_players"`
	RosterWarnings          []string         `json:"roster_warnings,omitempty"`
	UnresolvedPlayers       []string         `json:"unresolved_players,omitempty"`
	ExecutionPlan           portfolio.Plan   `json:"execution_plan"`
	Audit                   Audit            `json:"audit"`
}

type lineKey struct {
	eventID    string
	market     string
	playerNorm string
	point      float64
}

type curveKey struct {
	eventID    string
	market     string
	playerNorm string
}

// referencePoints aggregates per-point no-vig medians for one player-market
// into reference curve observations, optionally excluding one book.
func referencePoints(rowsByPoint map[float64][]pricing.QuoteRow, excludeBook string) []pricing.ReferencePoint {
	var exclude map[string]bool
	if excludeBook != "" {
		exclude = map[string]bool{excludeBook: true}
	}
	points := make([]pricing.ReferencePoint, 0, len(rowsByPoint))
	for point, rows := range rowsByPoint {
		pairs := pricing.ExtractBookFairPairs(rows, exclude)
		if len(pairs) == 0 {
			continue
		}
		pOvers := make([]float64, 0, len(pairs))
		holds := make([]float64, 0, len(pairs))
		for _, pair := range pairs {
			pOvers = append(pOvers, pair.POverFair)
			holds = append(holds, pair.Hold)
		}
		pOver, _ := mathutil.Median(pOvers)
		rp := pricing.ReferencePoint{Point: point, POver: pOver, Weight: float64(len(pairs))}
		if h, ok := mathutil.Median(holds); ok {
			rp.Hold = &h
		}
		points = append(points, rp)
	}
	return points
}

type sideEval struct {
	side      string
	quote     pricing.QuoteRow
	hasQuote  bool
	books     int
	shopDelta int
	summary   pricing.LineQuality
	baseline  pricing.BaselineSelection
	baselineBooks []string
	modelP    *float64
	pHitLow   *float64
	bestEV    *float64
	evLow     *float64
}

func bestQuoteForSide(rows []pricing.QuoteRow, side string) (pricing.QuoteRow, bool, int, int) {
	var best pricing.QuoteRow
	found := false
	worst := 0
	books := map[string]bool{}
	for _, row := range rows {
		if pricing.ParseSide(row.Side) != side || row.Price == 0 {
			continue
		}
		books[row.Book] = true
		if !found || row.Price > best.Price {
			best = row
		}
		if !found || row.Price < worst {
			worst = row.Price
		}
		found = true
	}
	if !found {
		return pricing.QuoteRow{}, false, 0, 0
	}
	return best, true, len(books), best.Price - worst
}

func bestSidesDevig(rows []pricing.QuoteRow, excludeBook string) (pOver, pUnder, hold *float64, overBook, underBook string) {
	bestPrice := map[string]int{}
	bestBook := map[string]string{}
	for _, row := range rows {
		if row.Price == 0 || row.Book == excludeBook {
			continue
		}
		side := pricing.ParseSide(row.Side)
		if side == "" {
			continue
		}
		if current, ok := bestPrice[side]; !ok || row.Price > current {
			bestPrice[side] = row.Price
			bestBook[side] = row.Book
		}
	}
	overPrice, hasOver := bestPrice["over"]
	underPrice, hasUnder := bestPrice["under"]
	if !hasOver || !hasUnder {
		return nil, nil, nil, bestBook["over"], bestBook["under"]
	}
	overImplied, ok1 := odds.ImpliedFromAmerican(overPrice)
	underImplied, ok2 := odds.ImpliedFromAmerican(underPrice)
	if !ok1 || !ok2 {
		return nil, nil, nil, bestBook["over"], bestBook["under"]
	}
	po, pu := odds.NormalizeProbPair(overImplied, underImplied)
	h := overImplied + underImplied - 1.0
	return &po, &pu, &h, bestBook["over"], bestBook["under"]
}

func playToAmerican(prob float64, targetROI float64) *int {
	if prob <= 0 {
		return nil
	}
	decimalOdds := (1.0 + targetROI) / prob
	if price, ok := odds.DecimalToAmerican(decimalOdds); ok {
		return &price
	}
	return nil
}

func round6(v float64) float64 { return mathutil.RoundTo(v, 6) }

// BuildReport runs the full gate engine for one snapshot and strategy.
func BuildReport(def Definition, cfg RunConfig, in Inputs) (*Report, error) {
	settings, err := def.Recipe.Resolve()
	if err != nil {
		return nil, err
	}
	now := in.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}
	allowTierB := cfg.AllowTierB || settings.ForceAllowTierB
	tierAMinEV := math.Max(cfg.MinEV, tierAMinEVFloor)
	tierBMinEV := math.Max(cfg.MinEV, tierBMinEVFloor)

	injuryIndex := MergeInjuries(in.Injuries)
	byTeam := InjuriesByTeam(injuryIndex)
	eventLines := BuildEventLineIndex(in.GameLines, in.Events)

	excludedBooks := map[string]bool{}
	for _, book := range cfg.ExcludeBooks {
		excludedBooks[strings.ToLower(strings.TrimSpace(book))] = true
	}

	// Group quote rows by exact line and by player-market for the curve.
	byLine := map[lineKey][]pricing.QuoteRow{}
	byCurve := map[curveKey]map[float64][]pricing.QuoteRow{}
	displayName := map[string]string{}
	allBooks := map[string]bool{}
	allEvents := map[string]bool{}
	for _, row := range in.Rows {
		if row.Point == nil || pricing.ParseSide(row.Side) == "" {
			continue
		}
		if excludedBooks[strings.ToLower(row.Book)] {
			continue
		}
		norm := names.Person(row.Player)
		if norm == "" {
			continue
		}
		if _, ok := displayName[norm]; !ok {
			displayName[norm] = row.Player
		}
		lk := lineKey{row.EventID, strings.ToLower(row.Market), norm, *row.Point}
		byLine[lk] = append(byLine[lk], row)
		ck := curveKey{lk.eventID, lk.market, lk.playerNorm}
		if byCurve[ck] == nil {
			byCurve[ck] = map[float64][]pricing.QuoteRow{}
		}
		byCurve[ck][lk.point] = append(byCurve[ck][lk.point], row)
		allBooks[row.Book] = true
		allEvents[row.EventID] = true
	}

	keys := make([]lineKey, 0, len(byLine))
	for lk := range byLine {
		keys = append(keys, lk)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.eventID != b.eventID {
			return a.eventID < b.eventID
		}
		if a.market != b.market {
			return a.market < b.market
		}
		if a.playerNorm != b.playerNorm {
			return a.playerNorm < b.playerNorm
		}
		return a.point < b.point
	})

	candidates := make([]*Candidate, 0, len(keys))
	rosterWarningSet := map[string]bool{}
	unresolvedSet := map[string]bool{}

	for _, lk := range keys {
		rows := byLine[lk]
		player := displayName[lk.playerNorm]

		info, hasEvent := in.Events[lk.eventID]
		rosterStatus := RosterStatus(player, lk.eventID, in.Events, in.Roster, in.Identity)
		team := ResolvePlayerTeam(player, lk.eventID, in.Events, in.Roster, injuryIndex, in.Identity)
		SynthesizeAvailable(injuryIndex, in.Injuries, player, team, rosterStatus)

		injuryStatus := "unknown"
		injuryNote := ""
		if row, ok := injuryIndex[lk.playerNorm]; ok {
			injuryStatus = NormalizeInjuryStatus(row.Status)
			injuryNote = row.Note
		}

		var spreadAbs *float64
		if lines, ok := eventLines[lk.eventID]; ok {
			spreadAbs = lines.SpreadAbs
		}
		opponentTeam := ""
		if hasEvent && team != "" {
			home := names.CanonicalTeam(info.HomeTeam)
			away := names.CanonicalTeam(info.AwayTeam)
			if team == home {
				opponentTeam = away
			} else if team == away {
				opponentTeam = home
			}
		}
		teammates := projection.StatusCounts(CountTeamStatus(byTeam, team, player))
		opponents := projection.StatusCounts(CountTeamStatus(byTeam, opponentTeam, player))
		minutes := projection.MinutesUsageV0(lk.market, injuryStatus, rosterStatus, teammates, spreadAbs)
		sideAdj := projection.MarketSideAdjustment(lk.market, minutes, opponents)
		probAdj := projection.ProbabilityAdjustment(injuryStatus, rosterStatus, teammates, opponents, spreadAbs)

		var profile projection.MinutesProfile
		var minutesProbAdjOver float64
		hasProfile := false
		if settings.ProbabilisticProfile == "minutes_v1" {
			profile, hasProfile = in.MinutesModel.Lookup(lk.eventID, player, lk.market)
			if hasProfile {
				projected := minutes.ProjectedMinutes
				minutesProbAdjOver = projection.MinutesProbAdjustmentOver(lk.market, &projected, profile)
			}
		}

		evalSide := func(side string) sideEval {
			ev := sideEval{side: side}
			quote, ok, books, shopDelta := bestQuoteForSide(rows, side)
			if !ok {
				return ev
			}
			ev.quote, ev.hasQuote, ev.books, ev.shopDelta = quote, true, books, shopDelta

			excludeBook := ""
			if settings.ExcludeSelectedBook {
				excludeBook = quote.Book
			}
			var exclude map[string]bool
			if excludeBook != "" {
				exclude = map[string]bool{excludeBook: true}
			}
			pOverBest, pUnderBest, holdBest, overBook, underBook := bestSidesDevig(rows, excludeBook)
			// The best-sides hold stands in when no single book quotes both
			// sides, so thin lines still get a hold score.
			ev.summary = pricing.SummarizeLine(rows, now, cfg.StaleQuoteMinutes, holdBest, exclude)
			reference := pricing.EstimateReferenceProbability(
				referencePoints(byCurve[curveKey{lk.eventID, lk.market, lk.playerNorm}], excludeBook), lk.point)
			ev.baseline = pricing.ResolveBaseline(pricing.BaselineInputs{
				BaselineMethod:   settings.BaselineMethod,
				BaselineFallback: settings.BaselineFallback,
				POverFairBest:    pOverBest,
				PUnderFairBest:   pUnderBest,
				HoldBest:         holdBest,
				POverBookMedian:  ev.summary.POverMedian,
				HoldBookMedian:   ev.summary.HoldMedian,
				Reference:        reference,
			})
			switch ev.baseline.BaselineUsed {
			case "best_sides", "best_sides_fallback":
				for _, book := range []string{overBook, underBook} {
					if book != "" {
						ev.baselineBooks = append(ev.baselineBooks, book)
					}
				}
			default:
				ev.baselineBooks = append([]string(nil), ev.summary.BooksUsed...)
			}

			var baseP *float64
			if side == "over" {
				baseP = ev.baseline.POverFair
			} else {
				baseP = ev.baseline.PUnderFair
			}
			if baseP == nil {
				return ev
			}

			sideSign := 1.0
			if side == "under" {
				sideSign = -1.0
			}
			p := *baseP + sideSign*(sideAdj+probAdj+minutesProbAdjOver)
			if settings.UseRollingPriors {
				if adj, ok := in.Priors.Adjustment(lk.market, side); ok {
					p += adj.Delta
				}
			}
			p = round6(mathutil.Clamp(p, 0.01, 0.99))
			ev.modelP = &p

			low := round6(mathutil.Clamp(p-ev.summary.UncertaintyBand, 0.01, 0.99))
			ev.pHitLow = &low
			if v, ok := odds.EVFromProbAndPrice(p, quote.Price); ok {
				v = round6(v)
				ev.bestEV = &v
			}
			if v, ok := odds.EVFromProbAndPrice(low, quote.Price); ok {
				v = round6(v)
				ev.evLow = &v
			}
			return ev
		}

		over := evalSide("over")
		under := evalSide("under")
		evOf := func(s sideEval) float64 {
			if s.bestEV == nil {
				return -999.0
			}
			return *s.bestEV
		}
		chosen := over
		if !over.hasQuote || (under.hasQuote && evOf(under) > evOf(over)) {
			chosen = under
		}
		if !chosen.hasQuote {
			continue
		}

		cand := &Candidate{
			EventID:           lk.eventID,
			Player:            player,
			PlayerNorm:        lk.playerNorm,
			Team:              team,
			TeamAbbrev:        names.TeamAbbrev(team),
			Market:            lk.market,
			Point:             lk.point,
			Side:              chosen.side,
			Book:              chosen.quote.Book,
			Link:              chosen.quote.Link,
			Books:             chosen.books,
			ShopDeltaAmerican: chosen.shopDelta,
			BaselineUsed:      chosen.baseline.BaselineUsed,
			ReferenceMethod:   chosen.baseline.ReferenceLineMethod,
			LineSource:        chosen.baseline.LineSource,
			BaselineBooksUsed: chosen.baselineBooks,
			BookPairCount:     chosen.summary.BookPairCount,
			POverMedian:       chosen.summary.POverMedian,
			HoldMedian:        chosen.summary.HoldMedian,
			POverIQR:          chosen.summary.POverIQR,
			QuoteAgeMinutes:   chosen.summary.QuoteAgeMinutes,
			QualityScore:      chosen.summary.QualityScore,
			UncertaintyBand:   chosen.summary.UncertaintyBand,
			InjuryStatus:      injuryStatus,
			InjuryNote:        injuryNote,
			RosterStatus:      rosterStatus,
			Minutes:           minutes,
			SideAdjustment:    sideAdj,
			ProbAdjustment:    probAdj,
			MinutesProbAdj:    minutesProbAdjOver,
			ModelPHit:         chosen.modelP,
			PHitLow:           chosen.pHitLow,
			BestEV:            chosen.bestEV,
			EVLow:             chosen.evLow,
			Eligible:          true,
			CalibrationSource: "none",
			ConfidenceTier:    "unrated",
		}
		price := chosen.quote.Price
		cand.Price = &price
		if !chosen.quote.LastUpdate.IsZero() {
			lu := chosen.quote.LastUpdate
			cand.LastUpdate = &lu
		}
		if hasEvent {
			cand.HomeTeam = info.HomeTeam
			cand.AwayTeam = info.AwayTeam
			if !info.CommenceTime.IsZero() {
				cand.TipoffUTC = info.CommenceTime.UTC().Format(time.RFC3339)
			}
		}
		if hasProfile {
			cand.MinutesP50 = profile.MinutesP50
			cand.MinutesBand = profile.Band()
			cand.PActive = profile.PActive
			cand.ProbConfidence = profile.ConfidenceScore
		}

		cand.Tier = "B"
		if chosen.books >= 2 {
			cand.Tier = "A"
		}

		// Rolling priors provenance and calibration feedback.
		if settings.UseRollingPriors {
			if adj, ok := in.Priors.Adjustment(lk.market, chosen.side); ok {
				cand.PriorDelta = adj.Delta
				cand.PriorSampleSize = adj.SampleSize
			}
			feedback := calibration.CalibrationFeedback(in.Priors, lk.market, chosen.side, chosen.modelP)
			cand.PCalibrated = feedback.PCalibrated
			cand.CalibrationConf = feedback.Confidence
			cand.CalibrationSource = feedback.Source
			if feedback.PCalibrated != nil {
				lowCal := mathutil.Clamp(*feedback.PCalibrated-chosen.summary.UncertaintyBand, 0.01, 0.99)
				if v, ok := odds.EVFromProbAndPrice(lowCal, price); ok {
					v = round6(v)
					cand.EVLowCalibrated = &v
				}
			}
		}

		if chosen.modelP != nil {
			fair := round6(1.0 / *chosen.modelP)
			cand.FairDecimal = &fair
			roi := tierAMinEVFloor
			if cand.Tier == "B" {
				roi = tierBMinEVFloor
			}
			cand.PlayToAmerican = playToAmerican(*chosen.modelP, roi)
			cand.BreakevenAmerican = playToAmerican(*chosen.modelP, 0.0)
			cand.KellyFraction = odds.KellyFraction(*chosen.modelP, price, 1.0)
			cand.QuarterKelly = odds.KellyFraction(*chosen.modelP, price, 0.25)
			cand.ConfidenceTier = calibration.ConfidenceTier(cand.PCalibrated, &cand.QualityScore, &cand.UncertaintyBand)
		}

		// Composite shopping score used as a secondary sort signal.
		scoreEV := -0.5
		if cand.BestEV != nil {
			scoreEV = *cand.BestEV
		}
		holdPenalty := 20.0
		if cand.HoldMedian != nil {
			holdPenalty = *cand.HoldMedian * 100.0
		}
		cand.Score = round6(scoreEV*1000.0 + float64(cand.Books)*5.0 +
			float64(cand.ShopDeltaAmerican)/10.0 - holdPenalty + cand.PriorDelta*250.0)

		// Gate chain: the first failure is terminal.
		fail := func(reason string) {
			if cand.Eligible {
				cand.Eligible = false
				cand.Reason = reason
			}
		}
		if cand.Tier == "B" && !allowTierB {
			fail("tier_b_blocked")
		}
		switch rosterStatus {
		case RosterInactive, RosterNotOnRoster, RosterUnknown, RosterUnknownEvent:
			fail("roster_gate")
		}
		if injuryStatus == "out" || injuryStatus == "out_for_season" {
			fail("injury_gate")
		}
		if chosen.baseline.BaselineUsed == "missing" || chosen.modelP == nil {
			if settings.ExcludeSelectedBook {
				fail("baseline_insufficient_coverage_after_exclusion")
			} else {
				fail("baseline_missing")
			}
		}
		if cand.Tier == "B" && settings.ExcludeSelectedBook &&
			len(chosen.baselineBooks) < settings.TierBMinOtherBooksForBaseline {
			fail("tier_b_baseline_not_independent")
		}
		if chosen.summary.BookPairCount < settings.MinBookPairs {
			fail("book_pairs_gate")
		}
		if settings.HoldCap != nil {
			switch {
			case cand.HoldMedian == nil:
				fail("hold_missing")
			case *cand.HoldMedian > *settings.HoldCap:
				fail("hold_cap")
			}
		}
		if settings.POverIQRCap != nil {
			switch {
			case cand.POverIQR == nil:
				fail("dispersion_missing")
			case *cand.POverIQR > *settings.POverIQRCap:
				fail("dispersion_iqr")
			}
		}
		if settings.MinQualityScore != nil && cand.QualityScore < *settings.MinQualityScore {
			fail("quality_score_gate")
		}
		if settings.MaxUncertaintyBand != nil && cand.UncertaintyBand > *settings.MaxUncertaintyBand {
			fail("uncertainty_band_gate")
		}
		minEVForTier := tierAMinEV
		if cand.Tier == "B" {
			minEVForTier = tierBMinEV
		}
		if cand.BestEV == nil || *cand.BestEV < minEVForTier {
			fail("ev_below_threshold")
		}
		if settings.MinEVLow != nil {
			switch {
			case cand.EVLow == nil:
				fail("ev_low_missing")
			case *cand.EVLow < *settings.MinEVLow:
				fail("ev_low_below_threshold")
			}
		}
		if settings.ProbabilisticProfile == "minutes_v1" {
			if settings.MinProbConfidence != nil {
				switch {
				case cand.ProbConfidence == nil:
					fail("prob_confidence_missing")
				case *cand.ProbConfidence < *settings.MinProbConfidence:
					fail("prob_confidence_gate")
				}
			}
			if settings.MaxMinutesBand != nil {
				switch {
				case cand.MinutesBand == nil:
					fail("minutes_band_missing")
				case *cand.MinutesBand > *settings.MaxMinutesBand:
					fail("minutes_band_gate")
				}
			}
		}
		// A line whose event never mapped is graded unconditionally: the
		// missing mapping takes over whatever reason the chain picked.
		if !hasEvent {
			cand.Eligible = false
			cand.Reason = "event_mapping_missing"
		}

		// Per-candidate odds freshness.
		staleAfter := math.Max(0, float64(cfg.StaleQuoteMinutes))
		switch {
		case cand.LastUpdate == nil:
			cand.OddsStatus = "missing_last_update"
		case now.Sub(*cand.LastUpdate).Minutes() > staleAfter:
			cand.OddsStatus = "stale"
		default:
			cand.OddsStatus = "ok"
		}

		switch rosterStatus {
		case RosterNotOnRoster:
			rosterWarningSet[fmt.Sprintf("%s not found on %s roster", player, names.CanonicalTeam(team))] = true
		case RosterUnknown, RosterUnknownEvent:
			unresolvedSet[lk.playerNorm] = true
		}

		candidates = append(candidates, cand)
	}

	health := buildHealth(cfg, in, now, candidates)
	if len(health.Failing) > 0 {
		reason := "health_gate:" + strings.Join(health.Failing, ",")
		for _, cand := range candidates {
			if cand.Eligible {
				cand.Eligible = false
				cand.Reason = reason
			}
		}
	}

	sortCandidates(candidates)

	ranked := make([]*Candidate, 0, len(candidates))
	watchlist := make([]*Candidate, 0)
	for _, cand := range candidates {
		if cand.Eligible {
			ranked = append(ranked, cand)
			cand.Rank = len(ranked)
		} else {
			watchlist = append(watchlist, cand)
		}
	}

	constraints := portfolio.Constraints{
		MaxPicks:     cfg.MaxPicks,
		MaxPerPlayer: cfg.MaxPerPlayer,
		MaxPerGame:   cfg.MaxPerGame,
	}
	plan, err := runPortfolio(ranked, constraints, settings.PortfolioRanking, in.SnapshotID, now)
	if err != nil {
		return nil, err
	}

	report := &Report{
		SchemaVersion:  ReportSchemaVersion,
		GeneratedAtUTC: now.Format(time.RFC3339),
		SnapshotID:     in.SnapshotID,
		StrategyID:     def.ID,
		ModeledDay:     in.ModeledDay,
		StrategyStatus: "ok",
		StrategyMode:   "watchlist_only",
		Health:         health,
		Candidates:     candidates,
		RankedPlays:    ranked,
		Watchlist:      watchlist,
		ExecutionPlan:  plan,
		Audit: Audit{
			StrategyID:       def.ID,
			PortfolioRanking: string(settings.PortfolioRanking),
			Constraints:      constraints,
			MinEV:            cfg.MinEV,
			AllowTierB:       allowTierB,
			UseRollingPriors: settings.UseRollingPriors,
			PriorsRowsUsed:   priorsRows(in.Priors),
		},
	}
	if len(ranked) > 0 {
		report.StrategyMode = "full_board"
	}
	if len(health.Failing) > 0 {
		report.StrategyStatus = "degraded"
	}

	report.Summary = buildSummary(candidates, allEvents, allBooks)
	report.UnderSweep = buildUnderSweep(candidates)
	report.PriceDependentWatchlist = buildPriceDependentWatchlist(watchlist)
	report.KellySummary = buildKellySummary(ranked, cfg.TopN)
	report.VerifiedPlayers = buildVerifiedPlayers(candidates)
	report.RosterWarnings = sortedSetPrefix(rosterWarningSet, 30)
	report.UnresolvedPlayers = sortedSetPrefix(unresolvedSet, 50)
	AnnotateWithCalibrationMap(report, in.Calibration)
	return report, nil
}

func priorsRows(priors *calibration.RollingPriors) int {
	if priors == nil {
		return 0
	}
	return priors.RowsUsed
}

func buildHealth(cfg RunConfig, in Inputs, now time.Time, candidates []*Candidate) Health {
	health := Health{}
	var failing []string

	if in.Injuries != nil {
		health.OfficialInjuryReady = in.Injuries.Official.Ready
		if !in.Injuries.Official.FetchedAt.IsZero() {
			hours := now.Sub(in.Injuries.Official.FetchedAt).Hours()
			health.InjuryAgeHours = &hours
		}
	}
	if cfg.RequireOfficialInjuries && !health.OfficialInjuryReady {
		failing = append(failing, "official_injury_missing")
	}

	if in.Roster != nil && !in.Roster.FetchedAt.IsZero() {
		hours := now.Sub(in.Roster.FetchedAt).Hours()
		health.RosterAgeHours = &hours
	}
	if cfg.RequireFreshContext && cfg.ContextStaleHours > 0 {
		if health.InjuryAgeHours != nil && *health.InjuryAgeHours > cfg.ContextStaleHours {
			failing = append(failing, "injuries_context_stale")
		}
		if health.RosterAgeHours != nil && *health.RosterAgeHours > cfg.ContextStaleHours {
			failing = append(failing, "roster_context_stale")
		}
	}

	var latest time.Time
	for _, cand := range candidates {
		if cand.LastUpdate != nil && cand.LastUpdate.After(latest) {
			latest = *cand.LastUpdate
		}
	}
	if !latest.IsZero() {
		age := math.Max(0, now.Sub(latest).Minutes())
		health.OddsAgeMinutes = &age
		if age > math.Max(0, float64(cfg.StaleQuoteMinutes)) {
			health.OddsStale = true
			if cfg.RequireFreshContext {
				failing = append(failing, "odds_snapshot_stale")
			}
		}
	}

	sort.Strings(failing)
	health.Failing = failing
	return health
}

func sortCandidates(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Eligible != b.Eligible {
			return a.Eligible
		}
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
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.PlayerNorm != b.PlayerNorm {
			return a.PlayerNorm < b.PlayerNorm
		}
		return a.Point < b.Point
	})
}

func runPortfolio(ranked []*Candidate, constraints portfolio.Constraints, ranking portfolio.Ranking, snapshotID string, now time.Time) (portfolio.Plan, error) {
	entries := make([]portfolio.Entry, len(ranked))
	for i, cand := range ranked {
		entries[i] = portfolio.Entry{
			EventID:               cand.EventID,
			Player:                cand.PlayerNorm,
			Market:                cand.Market,
			Point:                 cand.Point,
			Side:                  cand.Side,
			EVLow:                 cand.EVLow,
			EVLowCalibrated:       cand.EVLowCalibrated,
			BestEV:                cand.BestEV,
			QuoteAgeMinutes:       cand.QuoteAgeMinutes,
			PriorDelta:            cand.PriorDelta,
			CalibrationConfidence: cand.CalibrationConf,
		}
		quality := cand.QualityScore
		entries[i].QualityScore = &quality
	}
	decisions, err := portfolio.Select(entries, constraints, ranking)
	if err != nil {
		return portfolio.Plan{}, err
	}

	plan := portfolio.Plan{
		SchemaVersion:        portfolio.PlanSchemaVersion,
		SnapshotID:           snapshotID,
		GeneratedAtUTC:       now.Format(time.RFC3339),
		Constraints:          constraints,
		ExclusionReasonCount: map[string]int{},
	}
	for i, cand := range ranked {
		decision := decisions[i]
		cand.PortfolioSelected = decision.Selected
		cand.PortfolioReason = decision.Reason
		cand.PortfolioRank = decision.Rank
		quality := cand.QualityScore
		row := portfolio.PlanRow{
			Rank:            decision.Rank,
			EventID:         cand.EventID,
			Market:          cand.Market,
			Player:          cand.PlayerNorm,
			Side:            cand.Side,
			Point:           cand.Point,
			Book:            cand.Book,
			Price:           cand.Price,
			BestEV:          cand.BestEV,
			EVLow:           cand.EVLow,
			QualityScore:    &quality,
			PlayToAmerican:  cand.PlayToAmerican,
			PortfolioReason: decision.Reason,
		}
		if decision.Selected {
			plan.Selected = append(plan.Selected, row)
		} else {
			plan.Excluded = append(plan.Excluded, row)
			plan.ExclusionReasonCount[decision.Reason]++
		}
	}
	sortPlanRows(plan.Selected)
	sortPlanRows(plan.Excluded)
	plan.Counts = portfolio.PlanCounts{
		Eligible: len(ranked),
		Selected: len(plan.Selected),
		Excluded: len(plan.Excluded),
	}
	if err := portfolio.AssertPlan(plan); err != nil {
		return portfolio.Plan{}, err
	}
	return plan, nil
}

func sortPlanRows(rows []portfolio.PlanRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Player != b.Player {
			return a.Player < b.Player
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.Point < b.Point
	})
}

func buildSummary(candidates []*Candidate, events, books map[string]bool) Summary {
	summary := Summary{
		Candidates:   len(candidates),
		Events:       len(events),
		Books:        len(books),
		ReasonCounts: map[string]int{},
	}
	for _, cand := range candidates {
		if cand.Eligible {
			summary.Eligible++
		} else {
			summary.Ineligible++
			summary.ReasonCounts[cand.Reason]++
		}
	}
	return summary
}

func buildUnderSweep(candidates []*Candidate) UnderSweep {
	sweep := UnderSweep{Status: "thin", Qualified: []*Candidate{}, ClosestMisses: []*Candidate{}}
	var misses []*Candidate
	for _, cand := range candidates {
		if cand.Side != "under" {
			continue
		}
		if cand.Eligible {
			if len(sweep.Qualified) < 5 {
				sweep.Qualified = append(sweep.Qualified, cand)
			}
		} else if cand.BestEV != nil {
			misses = append(misses, cand)
		}
	}
	sort.SliceStable(misses, func(i, j int) bool {
		return *misses[i].BestEV > *misses[j].BestEV
	})
	if len(misses) > 5 {
		misses = misses[:5]
	}
	sweep.ClosestMisses = misses
	if len(sweep.Qualified) >= 2 {
		sweep.Status = "ok"
	}
	return sweep
}

func buildPriceDependentWatchlist(watchlist []*Candidate) []*Candidate {
	out := []*Candidate{}
	for _, cand := range watchlist {
		if cand.PlayToAmerican == nil {
			continue
		}
		if cand.Reason == "ev_below_threshold" || cand.Reason == "tier_b_blocked" {
			out = append(out, cand)
		}
	}
	return out
}

func buildKellySummary(ranked []*Candidate, topN int) []KellyRow {
	limit := topN
	if limit < 10 {
		limit = 10
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	rows := make([]KellyRow, 0, limit)
	for _, cand := range ranked[:limit] {
		rows = append(rows, KellyRow{
			Player:       cand.Player,
			Market:       cand.Market,
			Side:         cand.Side,
			Point:        cand.Point,
			Book:         cand.Book,
			Price:        cand.Price,
			ModelPHit:    cand.ModelPHit,
			Kelly:        cand.KellyFraction,
			QuarterKelly: cand.QuarterKelly,
		})
	}
	return rows
}

// UnderSweepFor recomputes the under-side sweep for a candidate set, for
// callers that re-price candidates after the report is built.
func UnderSweepFor(candidates []*Candidate) UnderSweep {
	return buildUnderSweep(candidates)
}

// KellySummaryFor recomputes the staking summary for a ranked board.
func KellySummaryFor(ranked []*Candidate, topN int) []KellyRow {
	return buildKellySummary(ranked, topN)
}

// PriceDependentWatchlistFor recomputes the shop-the-price watchlist.
func PriceDependentWatchlistFor(watchlist []*Candidate) []*Candidate {
	return buildPriceDependentWatchlist(watchlist)
}

func buildVerifiedPlayers(candidates []*Candidate) []VerifiedPlayer {
	seen := map[string]bool{}
	out := []VerifiedPlayer{}
	for _, cand := range candidates {
		if cand.RosterStatus != RosterActive && cand.RosterStatus != RosterRostered {
			continue
		}
		key := cand.PlayerNorm + "|" + cand.Team
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, VerifiedPlayer{Player: cand.Player, Team: cand.Team, Status: cand.RosterStatus})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Player != out[j].Player {
			return out[i].Player < out[j].Player
		}
		return out[i].Team < out[j].Team
	})
	return out
}

func sortedSetPrefix(set map[string]bool, limit int) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
