package pricing

import (
	"sort"

	"nba-props-engine/internal/mathutil"
)

// ReferencePoint is one weighted fair-probability observation at a point
// value, aggregated across books quoting that line.
type ReferencePoint struct {
	Point  float64
	POver  float64
	Hold   *float64
	Weight float64
}

// ReferenceEstimate is the curve's answer for a target point, with
// provenance: "exact", "interpolated", "clamped_low", "clamped_high", or
// "missing" when no curve exists.
type ReferenceEstimate struct {
	POver      *float64
	Hold       *float64
	Method     string
	PointsUsed int
}

func clampProbability(value float64) float64 {
	return mathutil.Clamp(value, 0.01, 0.99)
}

type pavBlock struct {
	start, end int
	weight     float64
	value      float64
}

// pavNonIncreasing enforces a non-increasing sequence via pool-adjacent
// violators: adjacent blocks that violate the order merge into their
// weighted mean, backing up after each merge.
func pavNonIncreasing(values, weights []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	blocks := make([]pavBlock, len(values))
	for i, v := range values {
		w := weights[i]
		if w < 1e-9 {
			w = 1e-9
		}
		blocks[i] = pavBlock{start: i, end: i, weight: w, value: v}
	}

	i := 0
	for i < len(blocks)-1 {
		left, right := blocks[i], blocks[i+1]
		if left.value < right.value {
			merged := pavBlock{
				start:  left.start,
				end:    right.end,
				weight: left.weight + right.weight,
				value:  (left.value*left.weight + right.value*right.weight) / (left.weight + right.weight),
			}
			blocks[i] = merged
			blocks = append(blocks[:i+1], blocks[i+2:]...)
			if i > 0 {
				i--
			}
			continue
		}
		i++
	}

	adjusted := make([]float64, len(values))
	for _, block := range blocks {
		value := clampProbability(block.value)
		for pos := block.start; pos <= block.end; pos++ {
			adjusted[pos] = value
		}
	}
	return adjusted
}

// BuildReferenceCurve aggregates observations by point (weighted mean of
// probability and hold per point), sorts by point ascending, and enforces
// that the OVER probability never increases with the point. The input is
// not modified.
func BuildReferenceCurve(points []ReferencePoint) []ReferencePoint {
	if len(points) == 0 {
		return nil
	}

	type agg struct {
		pWeightedSum    float64
		holdWeightedSum float64
		holdWeight      float64
		weight          float64
	}
	grouped := make(map[float64]*agg)
	for _, row := range points {
		weight := row.Weight
		if weight < 1e-9 {
			weight = 1e-9
		}
		entry, ok := grouped[row.Point]
		if !ok {
			entry = &agg{}
			grouped[row.Point] = entry
		}
		entry.pWeightedSum += clampProbability(row.POver) * weight
		entry.weight += weight
		if row.Hold != nil {
			entry.holdWeightedSum += *row.Hold * weight
			entry.holdWeight += weight
		}
	}

	sortedPoints := make([]float64, 0, len(grouped))
	for point := range grouped {
		sortedPoints = append(sortedPoints, point)
	}
	sort.Float64s(sortedPoints)

	rawProbs := make([]float64, len(sortedPoints))
	rawWeights := make([]float64, len(sortedPoints))
	for i, point := range sortedPoints {
		rawProbs[i] = grouped[point].pWeightedSum / grouped[point].weight
		rawWeights[i] = grouped[point].weight
	}
	adjusted := pavNonIncreasing(rawProbs, rawWeights)

	curve := make([]ReferencePoint, len(sortedPoints))
	for i, point := range sortedPoints {
		entry := grouped[point]
		var hold *float64
		if entry.holdWeight > 0 {
			h := entry.holdWeightedSum / entry.holdWeight
			hold = &h
		}
		curve[i] = ReferencePoint{
			Point:  point,
			POver:  adjusted[i],
			Hold:   hold,
			Weight: entry.weight,
		}
	}
	return curve
}

func interpolate(x0, x1, y0, y1, target float64) float64 {
	if x1 == x0 {
		return y0
	}
	ratio := (target - x0) / (x1 - x0)
	return y0 + (y1-y0)*ratio
}

// EstimateReferenceProbability builds the curve from points and answers the
// target point: exact match, boundary clamp, or linear interpolation between
// the two neighboring points.
func EstimateReferenceProbability(points []ReferencePoint, targetPoint float64) ReferenceEstimate {
	curve := BuildReferenceCurve(points)
	if len(curve) < 2 {
		return ReferenceEstimate{Method: "missing"}
	}

	holds := make([]float64, 0, len(curve))
	for _, row := range curve {
		if row.Hold != nil {
			holds = append(holds, *row.Hold)
		}
	}
	var holdMedian *float64
	if m, ok := mathutil.Median(holds); ok {
		holdMedian = &m
	}

	pointEstimate := func(row ReferencePoint, method string) ReferenceEstimate {
		p := clampProbability(row.POver)
		hold := row.Hold
		if hold == nil {
			hold = holdMedian
		}
		return ReferenceEstimate{POver: &p, Hold: hold, Method: method, PointsUsed: len(curve)}
	}

	for _, row := range curve {
		if row.Point == targetPoint {
			return pointEstimate(row, "exact")
		}
	}
	if targetPoint <= curve[0].Point {
		return pointEstimate(curve[0], "clamped_low")
	}
	if targetPoint >= curve[len(curve)-1].Point {
		return pointEstimate(curve[len(curve)-1], "clamped_high")
	}

	for i := 0; i < len(curve)-1; i++ {
		left, right := curve[i], curve[i+1]
		if left.Point <= targetPoint && targetPoint <= right.Point {
			p := clampProbability(interpolate(left.Point, right.Point, left.POver, right.POver, targetPoint))
			hold := holdMedian
			if left.Hold != nil && right.Hold != nil {
				h := interpolate(left.Point, right.Point, *left.Hold, *right.Hold, targetPoint)
				hold = &h
			}
			return ReferenceEstimate{POver: &p, Hold: hold, Method: "interpolated", PointsUsed: 2}
		}
	}

	return pointEstimate(curve[len(curve)-1], "fallback_last")
}
