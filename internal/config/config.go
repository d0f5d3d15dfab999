package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for configuration values.
const (
	DefaultStrategyID        = "s009"
	DefaultDBPath            = "data/seeds.db"
	DefaultArtifactsDir      = "artifacts"
	DefaultBankroll          = 1000.0
	DefaultKellyFraction     = 0.25
	DefaultStaleQuoteMinutes = 45
	DefaultContextStaleHours = 6
	DefaultTopN              = 10
	DefaultMaxPicks          = 6
	DefaultMaxPerPlayer      = 1
	DefaultMaxPerGame        = 2
)

// Config holds all application configuration.
type Config struct {
	ResultsAPIKey  string
	ResultsBaseURL string

	StrategyID   string
	DBPath       string
	ArtifactsDir string

	Bankroll      float64
	MaxStake      float64
	KellyFraction float64

	MinEV             float64
	StaleQuoteMinutes int
	ContextStaleHours int
	TopN              int
	MaxPicks          int
	MaxPerPlayer      int
	MaxPerGame        int

	AllowTierB              bool
	RequireOfficialInjuries bool
	RequireFreshContext     bool
}

// RunOptions is the optional yaml file layered on top of the environment:
// the knobs that change per run rather than per deployment.
type RunOptions struct {
	StrategyID      string   `yaml:"strategy_id"`
	Bookmakers      []string `yaml:"bookmakers"`
	ExcludeBooks    []string `yaml:"exclude_books"`
	OddsSnapshot    string   `yaml:"odds_snapshot"`
	InjuriesFile    string   `yaml:"injuries_file"`
	RosterFile      string   `yaml:"roster_file"`
	EventsFile      string   `yaml:"events_file"`
	GameLinesFile   string   `yaml:"game_lines_file"`
	IdentityFile    string   `yaml:"identity_file"`
	MinutesFile     string   `yaml:"minutes_file"`
	CalibrationFile string   `yaml:"calibration_file"`
	ArtifactsDir    string   `yaml:"artifacts_dir"`
}

// Load reads configuration from environment variables (and .env file if present).
func Load() Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := Config{
		ResultsAPIKey:  os.Getenv("BALLDONTLIE_API_KEY"),
		ResultsBaseURL: os.Getenv("RESULTS_BASE_URL"),

		StrategyID:   DefaultStrategyID,
		DBPath:       DefaultDBPath,
		ArtifactsDir: DefaultArtifactsDir,

		Bankroll:      DefaultBankroll,
		MaxStake:      0, // 0 = no cap
		KellyFraction: DefaultKellyFraction,

		StaleQuoteMinutes: DefaultStaleQuoteMinutes,
		ContextStaleHours: DefaultContextStaleHours,
		TopN:              DefaultTopN,
		MaxPicks:          DefaultMaxPicks,
		MaxPerPlayer:      DefaultMaxPerPlayer,
		MaxPerGame:        DefaultMaxPerGame,

		AllowTierB:              os.Getenv("ALLOW_TIER_B") == "true",
		RequireOfficialInjuries: os.Getenv("REQUIRE_OFFICIAL_INJURIES") == "true",
		RequireFreshContext:     os.Getenv("REQUIRE_FRESH_CONTEXT") == "true",
	}

	if v := os.Getenv("STRATEGY_ID"); v != "" {
		cfg.StrategyID = v
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if v := os.Getenv("ARTIFACTS_DIR"); v != "" {
		cfg.ArtifactsDir = v
	}

	if v := os.Getenv("BANKROLL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Bankroll = f
		}
	}

	if v := os.Getenv("MAX_STAKE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxStake = f
		}
	}

	if v := os.Getenv("KELLY_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.KellyFraction = f
		}
	}

	if v := os.Getenv("MIN_EV"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinEV = f
		}
	}

	if v := os.Getenv("STALE_QUOTE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StaleQuoteMinutes = n
		}
	}

	if v := os.Getenv("CONTEXT_STALE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContextStaleHours = n
		}
	}

	if v := os.Getenv("TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TopN = n
		}
	}

	if v := os.Getenv("MAX_PICKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPicks = n
		}
	}

	if v := os.Getenv("MAX_PER_PLAYER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPerPlayer = n
		}
	}

	if v := os.Getenv("MAX_PER_GAME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPerGame = n
		}
	}

	return cfg
}

// LoadRunOptions parses the yaml run options file. A missing path is not
// an error: it returns empty options.
func LoadRunOptions(path string) (RunOptions, error) {
	var opts RunOptions
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("reading run options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing run options %s: %w", path, err)
	}
	return opts, nil
}

// Apply overlays non-empty run options onto the config.
func (cfg Config) Apply(opts RunOptions) Config {
	if opts.StrategyID != "" {
		cfg.StrategyID = opts.StrategyID
	}
	if opts.ArtifactsDir != "" {
		cfg.ArtifactsDir = opts.ArtifactsDir
	}
	return cfg
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg Config) error {
	if cfg.MinEV < 0 || cfg.MinEV > 1 {
		return fmt.Errorf("MIN_EV must be between 0 and 1, got %f", cfg.MinEV)
	}
	if cfg.KellyFraction <= 0 || cfg.KellyFraction > 1 {
		return fmt.Errorf("KELLY_FRACTION must be between 0 and 1, got %f", cfg.KellyFraction)
	}
	if cfg.Bankroll < 0 {
		return fmt.Errorf("BANKROLL must be non-negative, got %f", cfg.Bankroll)
	}
	if cfg.MaxStake < 0 {
		return fmt.Errorf("MAX_STAKE must be non-negative, got %f", cfg.MaxStake)
	}
	if cfg.StaleQuoteMinutes <= 0 {
		return fmt.Errorf("STALE_QUOTE_MINUTES must be positive, got %d", cfg.StaleQuoteMinutes)
	}
	if cfg.ContextStaleHours <= 0 {
		return fmt.Errorf("CONTEXT_STALE_HOURS must be positive, got %d", cfg.ContextStaleHours)
	}
	if cfg.MaxPicks < 0 || cfg.MaxPerPlayer < 0 || cfg.MaxPerGame < 0 {
		return fmt.Errorf("portfolio caps must be non-negative, got %d/%d/%d",
			cfg.MaxPicks, cfg.MaxPerPlayer, cfg.MaxPerGame)
	}
	return nil
}

// FormatMaxStake returns a human-readable string for the max stake setting.
func FormatMaxStake(maxStake float64) string {
	if maxStake <= 0 {
		return "no cap"
	}
	return fmt.Sprintf("$%.2f", maxStake)
}
