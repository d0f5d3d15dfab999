// Package results fetches final box scores for settlement. The client is
// rate limited and retries transient failures; callers receive the plain
// ResultsPayload contract and never see HTTP details.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"nba-props-engine/internal/names"
	"nba-props-engine/internal/settlement"
)

const (
	defaultBaseURL    = "https://api.balldontlie.io/v1"
	requestsPerMinute = 600
	requestTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// Client is a rate-limited results API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	log        *logrus.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host, used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a client limited to the vendor's request budget: a
// steady 10 req/s with a 10-second burst allowance.
func NewClient(apiKey string, log *logrus.Logger, opts ...Option) *Client {
	perSecond := rate.Limit(float64(requestsPerMinute) / 60.0)
	client := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(perSecond, requestsPerMinute/6),
		maxRetries: defaultMaxRetries,
		log:        logrus.NewEntry(log).WithField("component", "results"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.backoff(ctx, attempt, 100*time.Millisecond)
			continue
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited (429)")
			c.log.WithField("attempt", attempt).Warn("rate limited, backing off")
			c.backoff(ctx, attempt, time.Second)
			continue
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			c.backoff(ctx, attempt, 100*time.Millisecond)
			continue
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) backoff(ctx context.Context, attempt int, unit time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(1<<attempt) * unit):
	}
}

// Wire shapes for the box-score endpoint.
type boxScoreResponse struct {
	Data []boxScoreGame `json:"data"`
}

type boxScoreGame struct {
	ID          int            `json:"id"`
	Status      string         `json:"status"`
	HomeTeam    boxScoreTeam   `json:"home_team"`
	VisitorTeam boxScoreTeam   `json:"visitor_team"`
}

type boxScoreTeam struct {
	FullName string           `json:"full_name"`
	Players  []boxScorePlayer `json:"players"`
}

type boxScorePlayer struct {
	Player struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"player"`
	Pts     *float64 `json:"pts"`
	Reb     *float64 `json:"reb"`
	Ast     *float64 `json:"ast"`
	Fg3m    *float64 `json:"fg3m"`
	Minutes string   `json:"min"`
}

func normalizeGameStatus(status string) string {
	switch status {
	case "Final", "final":
		return "final"
	case "":
		return "unknown"
	}
	// The feed reports tipoff times for unstarted games and period/clock
	// text for live ones.
	if t, err := time.Parse(time.RFC3339, status); err == nil {
		if t.After(time.Now()) {
			return "scheduled"
		}
		return "in_progress"
	}
	return "in_progress"
}

func (p boxScorePlayer) statistics() map[string]float64 {
	stats := map[string]float64{}
	if p.Pts != nil {
		stats["points"] = *p.Pts
	}
	if p.Reb != nil {
		stats["reboundsTotal"] = *p.Reb
	}
	if p.Ast != nil {
		stats["assists"] = *p.Ast
	}
	if p.Fg3m != nil {
		stats["threePointersMade"] = *p.Fg3m
	}
	return stats
}

// FetchBoxScores pulls all box scores for one calendar day and maps them to
// the settlement contract. Partial vendor data degrades to missing players
// or unknown statuses, never an error for the whole payload.
func (c *Client) FetchBoxScores(ctx context.Context, day string) (*settlement.ResultsPayload, error) {
	endpoint := fmt.Sprintf("%s/box_scores?date=%s", c.baseURL, url.QueryEscape(day))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching box scores for %s: %w", day, err)
	}
	var decoded boxScoreResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding box scores: %w", err)
	}

	payload := &settlement.ResultsPayload{Status: "ok"}
	for _, game := range decoded.Data {
		result := settlement.GameResult{
			GameID:         fmt.Sprintf("%d", game.ID),
			HomeTeam:       game.HomeTeam.FullName,
			AwayTeam:       game.VisitorTeam.FullName,
			GameStatus:     normalizeGameStatus(game.Status),
			GameStatusText: game.Status,
			Players:        map[string]settlement.PlayerLine{},
		}
		for _, team := range []boxScoreTeam{game.HomeTeam, game.VisitorTeam} {
			for _, player := range team.Players {
				full := player.Player.FirstName + " " + player.Player.LastName
				key := names.Person(full)
				if key == "" {
					continue
				}
				result.Players[key] = settlement.PlayerLine{
					Name:       full,
					Statistics: player.statistics(),
				}
			}
		}
		payload.Games = append(payload.Games, result)
	}
	c.log.WithFields(logrus.Fields{"day": day, "games": len(payload.Games)}).Debug("box scores fetched")
	return payload, nil
}
