package pricing

import (
	"math"
	"time"

	"nba-props-engine/internal/mathutil"
)

// Sub-score shape constants. The weights reproduce the documented scoring
// vectors; treat them as tunables only alongside updated fixtures.
const (
	depthSaturationPairs = 4.0
	holdScoreDivisor     = 0.12
	dispersionDivisor    = 0.15

	depthWeight      = 0.30
	holdWeight       = 0.25
	dispersionWeight = 0.25
	freshnessWeight  = 0.20
)

// LineQuality is the aggregated pricing snapshot for one line: pair depth,
// medians, dispersion, freshness, the composite quality score, and the
// uncertainty band used downstream as an EV discount.
type LineQuality struct {
	BookPairs       []BookFairPair
	BooksUsed       []string
	BookPairCount   int
	POverMedian     *float64
	HoldMedian      *float64
	POverIQR        *float64
	POverRange      *float64
	FreshestQuote   time.Time
	QuoteAgeMinutes *float64
	DepthScore      float64
	HoldScore       float64
	DispersionScore float64
	FreshnessScore  float64
	QualityScore    float64
	UncertaintyBand float64
}

// SummarizeLine computes the deterministic quality and uncertainty fields
// for one line's quote rows. holdFallback substitutes for the median hold
// when no book pairs exist; nil means no fallback signal.
func SummarizeLine(rows []QuoteRow, nowUTC time.Time, staleQuoteMinutes int, holdFallback *float64, excludeBooks map[string]bool) LineQuality {
	pairs := ExtractBookFairPairs(rows, excludeBooks)

	pOverValues := make([]float64, 0, len(pairs))
	holdValues := make([]float64, 0, len(pairs))
	booksUsed := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		pOverValues = append(pOverValues, pair.POverFair)
		holdValues = append(holdValues, pair.Hold)
		booksUsed = append(booksUsed, pair.Book)
	}

	var pOverMedian, holdMedian, pOverIQR, pOverRange *float64
	if m, ok := mathutil.Median(pOverValues); ok {
		pOverMedian = &m
	}
	if m, ok := mathutil.Median(holdValues); ok {
		holdMedian = &m
	}
	if v, ok := mathutil.IQR(pOverValues); ok {
		pOverIQR = &v
	}
	if len(pOverValues) > 0 {
		lo, hi := pOverValues[0], pOverValues[0]
		for _, v := range pOverValues[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		r := hi - lo
		pOverRange = &r
	}

	var freshest time.Time
	for _, row := range rows {
		if !row.LastUpdate.IsZero() && row.LastUpdate.After(freshest) {
			freshest = row.LastUpdate
		}
	}
	var quoteAgeMinutes *float64
	if !freshest.IsZero() {
		age := nowUTC.Sub(freshest).Minutes()
		age = mathutil.RoundTo(math.Max(0, age), 6)
		quoteAgeMinutes = &age
	}

	depthScore := mathutil.Clamp(float64(len(pairs))/depthSaturationPairs, 0, 1)

	holdForQuality := holdMedian
	if holdForQuality == nil {
		holdForQuality = holdFallback
	}
	holdScore := 0.0
	if holdForQuality != nil {
		holdScore = mathutil.Clamp(1.0-mathutil.Clamp(*holdForQuality, 0, 1)/holdScoreDivisor, 0, 1)
	}

	dispersionSource := pOverIQR
	if dispersionSource == nil {
		dispersionSource = pOverRange
	}
	dispersionScore := 0.0
	if dispersionSource != nil {
		dispersionScore = mathutil.Clamp(1.0-mathutil.Clamp(*dispersionSource, 0, 1)/dispersionDivisor, 0, 1)
	}

	if staleQuoteMinutes < 1 {
		staleQuoteMinutes = 1
	}
	freshnessHorizon := math.Max(5.0, float64(staleQuoteMinutes*2))
	freshnessScore := 0.0
	if quoteAgeMinutes != nil {
		freshnessScore = mathutil.Clamp(1.0-*quoteAgeMinutes/freshnessHorizon, 0, 1)
	}

	qualityScore := mathutil.RoundTo(
		depthScore*depthWeight+
			holdScore*holdWeight+
			dispersionScore*dispersionWeight+
			freshnessScore*freshnessWeight, 6)

	uncertaintyBand := 0.01 +
		(1.0-depthScore)*0.05 +
		(1.0-holdScore)*0.02 +
		(1.0-dispersionScore)*0.05 +
		(1.0-freshnessScore)*0.03
	if pOverIQR != nil {
		uncertaintyBand = math.Max(uncertaintyBand, *pOverIQR/2.0)
	}
	uncertaintyBand = mathutil.RoundTo(mathutil.Clamp(uncertaintyBand, 0.01, 0.2), 6)

	return LineQuality{
		BookPairs:       pairs,
		BooksUsed:       booksUsed,
		BookPairCount:   len(pairs),
		POverMedian:     pOverMedian,
		HoldMedian:      holdMedian,
		POverIQR:        pOverIQR,
		POverRange:      pOverRange,
		FreshestQuote:   freshest,
		QuoteAgeMinutes: quoteAgeMinutes,
		DepthScore:      depthScore,
		HoldScore:       holdScore,
		DispersionScore: dispersionScore,
		FreshnessScore:  freshnessScore,
		QualityScore:    qualityScore,
		UncertaintyBand: uncertaintyBand,
	}
}
