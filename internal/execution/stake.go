package execution

import (
	"github.com/shopspring/decimal"

	"nba-props-engine/internal/strategy"
)

// Stake is one sized bet suggestion.
type Stake struct {
	Player       string          `json:"player"`
	Market       string          `json:"market"`
	Side         string          `json:"side"`
	Point        float64         `json:"point"`
	Book         string          `json:"book"`
	Price        *int            `json:"price"`
	QuarterKelly float64         `json:"quarter_kelly"`
	Amount       decimal.Decimal `json:"amount"`
}

// SizeStakes turns quarter-Kelly fractions into dollar stakes against the
// bankroll, rounded to cents with exact decimal arithmetic. maxStake of
// zero means uncapped; fractions at or below zero produce no stake.
func SizeStakes(ranked []*strategy.Candidate, bankroll, maxStake decimal.Decimal) []Stake {
	stakes := make([]Stake, 0, len(ranked))
	for _, cand := range ranked {
		if cand.QuarterKelly <= 0 {
			continue
		}
		amount := bankroll.Mul(decimal.NewFromFloat(cand.QuarterKelly)).Round(2)
		if maxStake.IsPositive() && amount.GreaterThan(maxStake) {
			amount = maxStake
		}
		if !amount.IsPositive() {
			continue
		}
		stakes = append(stakes, Stake{
			Player:       cand.Player,
			Market:       cand.Market,
			Side:         cand.Side,
			Point:        cand.Point,
			Book:         cand.Book,
			Price:        cand.Price,
			QuarterKelly: cand.QuarterKelly,
			Amount:       amount,
		})
	}
	return stakes
}

// TotalStaked sums sized stakes exactly.
func TotalStaked(stakes []Stake) decimal.Decimal {
	total := decimal.Zero
	for _, stake := range stakes {
		total = total.Add(stake.Amount)
	}
	return total
}
