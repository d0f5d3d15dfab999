// Package store persists backtest seed rows between the evening selection
// run and the morning settlement run.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"nba-props-engine/internal/settlement"
)

// ticketKeyVersion invalidates all keys when the identity fields change.
const ticketKeyVersion = 2

// TicketKey derives the stable identity of one pick: event, player, market,
// point, and side. Book, price, snapshot, and strategy are deliberately left
// out so a re-priced or re-shopped ticket keeps the same key across runs.
func TicketKey(row settlement.SeedRow) string {
	point := "null"
	if row.Point != nil {
		point = strconv.FormatFloat(*row.Point, 'f', -1, 64)
	}
	payload := fmt.Sprintf(
		`{"event_id":%q,"market":%q,"player":%q,"point":%s,"side":%q,"version":%d}`,
		strings.TrimSpace(row.EventID),
		strings.ToLower(strings.TrimSpace(row.Market)),
		strings.ToLower(strings.TrimSpace(row.Player)),
		point,
		strings.ToLower(strings.TrimSpace(row.Side)),
		ticketKeyVersion,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:16]
}

// SeedStore is the sqlite-backed seed row store.
type SeedStore struct {
	db *sql.DB
}

// Open opens (and migrates) the seed database at path.
func Open(path string) (*SeedStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening seed database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SeedStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS seed_rows (
		ticket_key TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		snapshot_id TEXT NOT NULL,
		strategy_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		home_team TEXT NOT NULL DEFAULT '',
		away_team TEXT NOT NULL DEFAULT '',
		player TEXT NOT NULL,
		market TEXT NOT NULL,
		point REAL,
		side TEXT NOT NULL,
		book TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL DEFAULT 0,
		model_p_hit REAL,
		result TEXT NOT NULL DEFAULT '',
		result_reason TEXT NOT NULL DEFAULT '',
		actual_value REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_seed_rows_day ON seed_rows(day);
	CREATE INDEX IF NOT EXISTS idx_seed_rows_strategy_day ON seed_rows(strategy_id, day);
	CREATE INDEX IF NOT EXISTS idx_seed_rows_result ON seed_rows(result);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SeedStore) Close() error {
	return s.db.Close()
}

// UpsertSeeds inserts rows, assigning ticket keys where missing. Existing
// keys keep their grading state: only quote fields refresh.
func (s *SeedStore) UpsertSeeds(rows []settlement.SeedRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning seed upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO seed_rows (
			ticket_key, day, snapshot_id, strategy_id, event_id,
			home_team, away_team, player, market, point, side, book, price, model_p_hit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_key) DO UPDATE SET
			book = excluded.book,
			price = excluded.price,
			model_p_hit = excluded.model_p_hit
	`)
	if err != nil {
		return fmt.Errorf("preparing seed upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		key := row.TicketKey
		if key == "" {
			key = TicketKey(row)
		}
		if _, err := stmt.Exec(
			key, row.Day, row.SnapshotID, row.StrategyID, row.EventID,
			row.HomeTeam, row.AwayTeam, row.Player, row.Market,
			row.Point, row.Side, row.Book, row.Price, row.ModelPHit,
		); err != nil {
			return fmt.Errorf("upserting seed %s: %w", key, err)
		}
	}
	return tx.Commit()
}

const seedColumns = `
	ticket_key, day, snapshot_id, strategy_id, event_id,
	home_team, away_team, player, market, point, side, book, price,
	model_p_hit, result, result_reason, actual_value`

func scanSeedRows(rows *sql.Rows) ([]settlement.SeedRow, error) {
	var out []settlement.SeedRow
	for rows.Next() {
		var row settlement.SeedRow
		var point, modelP, actual sql.NullFloat64
		if err := rows.Scan(
			&row.TicketKey, &row.Day, &row.SnapshotID, &row.StrategyID, &row.EventID,
			&row.HomeTeam, &row.AwayTeam, &row.Player, &row.Market,
			&point, &row.Side, &row.Book, &row.Price,
			&modelP, &row.Result, &row.ResultReason, &actual,
		); err != nil {
			return nil, fmt.Errorf("scanning seed row: %w", err)
		}
		if point.Valid {
			row.Point = &point.Float64
		}
		if modelP.Valid {
			row.ModelPHit = &modelP.Float64
		}
		if actual.Valid {
			row.ActualValue = &actual.Float64
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SeedsForDay returns all seed rows for one calendar day, ordered for
// deterministic settlement output.
func (s *SeedStore) SeedsForDay(day string) ([]settlement.SeedRow, error) {
	rows, err := s.db.Query(`
		SELECT `+seedColumns+`
		FROM seed_rows
		WHERE day = ?
		ORDER BY strategy_id, event_id, market, player, side, ticket_key
	`, day)
	if err != nil {
		return nil, fmt.Errorf("querying seeds for %s: %w", day, err)
	}
	defer rows.Close()
	return scanSeedRows(rows)
}

// SettledRows returns every row graded win or loss for one strategy,
// oldest day first: the calibration and priors inputs.
func (s *SeedStore) SettledRows(strategyID string) ([]settlement.SeedRow, error) {
	rows, err := s.db.Query(`
		SELECT `+seedColumns+`
		FROM seed_rows
		WHERE strategy_id = ? AND result IN ('win', 'loss')
		ORDER BY day, event_id, market, player, side, ticket_key
	`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("querying settled rows for %s: %w", strategyID, err)
	}
	defer rows.Close()
	return scanSeedRows(rows)
}

// Strategies returns the distinct strategy ids present in the store.
func (s *SeedStore) Strategies() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT strategy_id FROM seed_rows ORDER BY strategy_id`)
	if err != nil {
		return nil, fmt.Errorf("querying strategies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning strategy id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordResults writes back grading outcomes.
func (s *SeedStore) RecordResults(rows []settlement.SeedRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning result update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE seed_rows
		SET result = ?, result_reason = ?, actual_value = ?
		WHERE ticket_key = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing result update: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Result, row.ResultReason, row.ActualValue, row.TicketKey); err != nil {
			return fmt.Errorf("recording result for %s: %w", row.TicketKey, err)
		}
	}
	return tx.Commit()
}
