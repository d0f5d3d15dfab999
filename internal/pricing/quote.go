// Package pricing turns raw per-book quote rows into no-vig fair
// probabilities, line quality scores, and a resolved baseline for one
// candidate line.
package pricing

import (
	"strings"
	"time"
)

// QuoteRow is one bookmaker price for one outcome, produced upstream by the
// quote normalizer. Point is nil for markets without a line. A zero
// LastUpdate means the book did not report a timestamp.
type QuoteRow struct {
	EventID    string    `json:"event_id"`
	Market     string    `json:"market"`
	Player     string    `json:"player"`
	Side       string    `json:"side"`
	Point      *float64  `json:"point"`
	Price      int       `json:"price"`
	Book       string    `json:"book"`
	LastUpdate time.Time `json:"last_update"`
	Link       string    `json:"link,omitempty"`
}

// ParseSide maps side spellings to the canonical "over"/"under"; anything
// else returns "".
func ParseSide(side string) string {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "over", "o":
		return "over"
	case "under", "u":
		return "under"
	}
	return ""
}
